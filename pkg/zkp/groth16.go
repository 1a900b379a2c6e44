package zkp

import (
	"bytes"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// Groth16Verifier checks opaque proof bytes against the binding
// circuit. The verifying key is the chain's common reference string;
// every node must load the same one.
type Groth16Verifier struct {
	ccs constraint.ConstraintSystem
	vk  groth16.VerifyingKey
	pk  groth16.ProvingKey // only set by Setup, for provers and tests
}

// Setup compiles the binding circuit and runs an insecure one-party
// trusted setup. Production deployments load keys from the published
// ceremony output instead; Setup exists for tests and local nets.
func Setup() (*Groth16Verifier, error) {
	var circuit BindingCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, err
	}
	return &Groth16Verifier{ccs: ccs, vk: vk, pk: pk}, nil
}

// Verify implements the ledger's ProofVerifier seam. Any
// deserialization or pairing failure is a rejection, never a panic:
// proof bytes arrive from the network.
func (v *Groth16Verifier) Verify(proof []byte, publicInputs []byte) bool {
	p := groth16.NewProof(ecc.BN254)
	if _, err := p.ReadFrom(bytes.NewReader(proof)); err != nil {
		return false
	}
	assignment := &BindingCircuit{Digest: BindingDigest(publicInputs)}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false
	}
	return groth16.Verify(p, v.vk, witness) == nil
}

// Prove produces proof bytes binding to publicInputs. Lives on the
// miner/wallet side of the protocol; the verifier node never calls it.
func (v *Groth16Verifier) Prove(publicInputs []byte) ([]byte, error) {
	assignment := &BindingCircuit{
		Digest:   BindingDigest(publicInputs),
		Preimage: BindingPreimage(publicInputs),
	}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	proof, err := groth16.Prove(v.ccs, v.pk, witness)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
