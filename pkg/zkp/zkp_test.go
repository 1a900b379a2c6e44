package zkp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticVerifier(t *testing.T) {
	public := []byte("nullifiers|commitments|blockhash")

	v := StaticVerifier{}
	require.True(t, v.Verify(StaticProof(public), public))
	require.False(t, v.Verify(StaticProof(public), []byte("different binding")))
	require.False(t, v.Verify([]byte("forged"), public))

	require.False(t, StaticVerifier{RejectAll: true}.Verify(StaticProof(public), public))
}

func TestBindingDigestDeterministic(t *testing.T) {
	a := []byte("payload-a")
	b := []byte("payload-b")

	require.Equal(t, 0, BindingDigest(a).Cmp(BindingDigest(a)))
	require.NotEqual(t, 0, BindingDigest(a).Cmp(BindingDigest(b)))

	// preimage is reduced into the scalar field
	require.Equal(t, 0, BindingPreimage(a).Cmp(BindingPreimage(a)))
	require.True(t, BindingPreimage(a).Sign() >= 0)
}

func TestGroth16RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("trusted setup is slow")
	}
	v, err := Setup()
	require.NoError(t, err)

	public := []byte("nullifier-1|commitment-1|block-aa")
	proof, err := v.Prove(public)
	require.NoError(t, err)
	require.NotEmpty(t, proof)

	require.True(t, v.Verify(proof, public))

	// the proof binds to its exact public inputs
	require.False(t, v.Verify(proof, []byte("nullifier-2|commitment-1|block-aa")))
	require.False(t, v.Verify(proof, []byte("nullifier-1|commitment-1|block-bb")))

	// mangled proof bytes are a rejection, not a panic
	require.False(t, v.Verify([]byte("not a proof"), public))
	require.False(t, v.Verify(nil, public))

	mangled := make([]byte, len(proof))
	copy(mangled, proof)
	mangled[0] ^= 0xFF
	require.False(t, v.Verify(mangled, public))
}
