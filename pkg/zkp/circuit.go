// Package zkp provides ProofVerifier implementations: a Groth16
// backend over a binding circuit, and a deterministic static verifier
// for consensus tests. The ledger core only ever sees the
// Verify(proof, publicInputs) seam.
package zkp

import (
	"crypto/sha256"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	mimcNative "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// BindingCircuit ties a proof to one specific set of public inputs:
// the prover demonstrates knowledge of a preimage whose MiMC hash is
// the public digest, and the verifier recomputes the digest from the
// transaction's binding bytes. Any tampering with nullifiers,
// commitments or block context changes the digest and invalidates the
// proof.
type BindingCircuit struct {
	Digest   frontend.Variable `gnark:",public"`
	Preimage frontend.Variable
}

func (c *BindingCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Preimage)
	api.AssertIsEqual(c.Digest, h.Sum())
	return nil
}

// BindingPreimage reduces arbitrary public-input bytes into the BN254
// scalar field: SHA-256, then mod r. Deterministic by construction.
func BindingPreimage(publicInputs []byte) *big.Int {
	sum := sha256.Sum256(publicInputs)
	pre := new(big.Int).SetBytes(sum[:])
	return pre.Mod(pre, ecc.BN254.ScalarField())
}

// BindingDigest is the in-field MiMC of the preimage, matching what
// BindingCircuit computes in-circuit.
func BindingDigest(publicInputs []byte) *big.Int {
	pre := BindingPreimage(publicInputs)
	var buf [32]byte
	pre.FillBytes(buf[:])
	h := mimcNative.NewMiMC()
	h.Write(buf[:])
	return new(big.Int).SetBytes(h.Sum(nil))
}
