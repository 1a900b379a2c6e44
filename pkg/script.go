package zledger

import (
	"crypto/sha256"

	"github.com/consensys/gnark-crypto/ecc/secp256k1/ecdsa"
)

// Single-signature locking scripts: the locking script is the owner's
// serialized secp256k1 public key; the unlocking script is an ECDSA
// signature over the spending transaction's sighash. There is no
// script interpreter; the chain supports only this one script form.

// VerifyUnlock checks an input's unlocking script against the locking
// script of the output it spends. Returns a BadUnlockingScript error
// on any failure; the decision depends only on the three byte slices.
func VerifyUnlock(lockingScript, unlockingScript, sigHash []byte) error {
	if len(lockingScript) == 0 {
		return NewErr(BadUnlockingScript, "empty locking script")
	}
	if len(unlockingScript) == 0 {
		return NewErr(BadUnlockingScript, "empty unlocking script")
	}
	var pub ecdsa.PublicKey
	if _, err := pub.SetBytes(lockingScript); err != nil {
		return NewErr(BadUnlockingScript, "bad public key in locking script: %v", err)
	}
	ok, err := pub.Verify(unlockingScript, sigHash, sha256.New())
	if err != nil {
		return NewErr(BadUnlockingScript, "signature check: %v", err)
	}
	if !ok {
		return NewErr(BadUnlockingScript, "signature does not match locking script")
	}
	return nil
}

// SignInput produces an unlocking script for a sighash. Used by
// wallets and tests; the validator never signs.
func SignInput(priv *ecdsa.PrivateKey, sigHash []byte) ([]byte, error) {
	sig, err := priv.Sign(sigHash, sha256.New())
	if err != nil {
		return nil, NewErr(UnknownError, "signing: %v", err)
	}
	return sig, nil
}

// LockingScriptFor serializes a public key into locking-script form.
func LockingScriptFor(pub *ecdsa.PublicKey) []byte {
	b := pub.Bytes()
	return b
}
