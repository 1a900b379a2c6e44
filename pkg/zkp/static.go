package zkp

import (
	"bytes"
	"crypto/sha256"
)

// StaticVerifier is a deterministic fake for tests: it accepts any
// proof whose bytes are the SHA-256 of the public inputs (see
// StaticProof), so tests can mint "valid" proofs without a trusted
// setup while wrong-binding proofs still fail.
type StaticVerifier struct {
	// RejectAll forces every proof to fail, for exercising the
	// InvalidProof paths.
	RejectAll bool
}

func (v StaticVerifier) Verify(proof []byte, publicInputs []byte) bool {
	if v.RejectAll {
		return false
	}
	want := sha256.Sum256(publicInputs)
	return bytes.Equal(proof, want[:])
}

// StaticProof mints the proof bytes StaticVerifier accepts for the
// given public inputs.
func StaticProof(publicInputs []byte) []byte {
	sum := sha256.Sum256(publicInputs)
	return sum[:]
}
