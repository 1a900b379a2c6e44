// Package equihash verifies solutions to the chain's memory-hard
// proof-of-work puzzle. It is pure and stateless: functions of header
// bytes only, safe to run in parallel across many headers during sync.
//
// This implements the chain's collision-tree contract, not the
// wire-level Equihash used by other networks: the full Wagner
// birthday structure and hash personalisation are intentionally out
// of scope, so solutions are not interchangeable with e.g. zhash
// miners built for other chains.
package equihash

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

var (
	ErrSolutionWidth  = errors.New("equihash: wrong solution index count")
	ErrDuplicateIndex = errors.New("equihash: duplicate solution index")
	ErrIndexRange     = errors.New("equihash: solution index out of range")
	ErrCollision      = errors.New("equihash: collision tree check failed")
	ErrRawSolution    = errors.New("equihash: malformed raw solution bytes")
)

// Challenge serializes the header fields a solution commits to:
// everything except the solution itself. Scalars are little-endian,
// matching the miner side of the protocol.
func Challenge(h Header) []byte {
	data := make([]byte, 0, 84)
	var scratch [8]byte

	binary.LittleEndian.PutUint32(scratch[:4], h.Version)
	data = append(data, scratch[:4]...)
	data = append(data, h.PrevBlockHash[:]...)
	data = append(data, h.MerkleRoot[:]...)
	binary.LittleEndian.PutUint32(scratch[:4], h.Timestamp)
	data = append(data, scratch[:4]...)
	binary.LittleEndian.PutUint32(scratch[:4], h.Bits)
	data = append(data, scratch[:4]...)
	binary.LittleEndian.PutUint64(scratch[:], h.Nonce)
	data = append(data, scratch[:]...)

	return data
}

// Header carries the fields that form a mining challenge. It mirrors
// the block header consumed from the orchestrator, minus the solution.
type Header struct {
	Version       uint32
	PrevBlockHash [32]byte
	MerkleRoot    [32]byte
	Timestamp     uint32
	Bits          uint32
	Nonce         uint64
}

// VerifySolution checks a candidate index list against a challenge.
// It short-circuits on the first structural violation so the worst
// case stays bounded: wrong width, duplicate index and out-of-range
// index are all rejected before any hashing happens.
func VerifySolution(p Params, challenge []byte, indices []uint32) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if len(indices) != p.SolutionWidth() {
		return fmt.Errorf("%w: got %d, want %d", ErrSolutionWidth, len(indices), p.SolutionWidth())
	}
	seen := make(map[uint32]struct{}, len(indices))
	maxIndex := p.MaxIndex()
	for _, idx := range indices {
		if _, dup := seen[idx]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateIndex, idx)
		}
		seen[idx] = struct{}{}
		if idx >= maxIndex {
			return fmt.Errorf("%w: %d >= %d", ErrIndexRange, idx, maxIndex)
		}
	}

	leaves := make([][]byte, len(indices))
	for i, idx := range indices {
		leaves[i] = IndexHash(p, challenge, idx)
	}
	return verifyTree(p, leaves, 0, len(leaves))
}

// verifyTree checks the binary collision tree top-down: at every
// internal node the digests of the two halves must agree on the
// leading CollisionBitLength bits.
func verifyTree(p Params, leaves [][]byte, start, end int) error {
	if end-start <= 1 {
		return nil
	}
	mid := (start + end) / 2
	left := rangeDigest(p, leaves, start, mid)
	right := rangeDigest(p, leaves, mid, end)
	if !hasCollision(p, left, right) {
		return fmt.Errorf("%w: leaves [%d,%d) vs [%d,%d)", ErrCollision, start, mid, mid, end)
	}
	if err := verifyTree(p, leaves, start, mid); err != nil {
		return err
	}
	return verifyTree(p, leaves, mid, end)
}

// IndexHash is a leaf of the collision tree: the challenge bound to
// one candidate index, truncated to the collision length.
func IndexHash(p Params, challenge []byte, index uint32) []byte {
	h, _ := blake2b.New256(nil)
	h.Write(challenge)
	var le [4]byte
	binary.LittleEndian.PutUint32(le[:], index)
	h.Write(le[:])
	return h.Sum(nil)[:p.CollisionByteLength()]
}

// rangeDigest combines a run of leaf hashes into one node digest.
// A single leaf is its own digest.
func rangeDigest(p Params, leaves [][]byte, start, end int) []byte {
	if end-start == 1 {
		return leaves[start]
	}
	h, _ := blake2b.New256(nil)
	for _, leaf := range leaves[start:end] {
		h.Write(leaf)
	}
	return h.Sum(nil)[:p.CollisionByteLength()]
}

// hasCollision compares the leading CollisionBitLength bits of two
// node digests.
func hasCollision(p Params, a, b []byte) bool {
	byteLen := p.CollisionByteLength()
	if len(a) < byteLen || len(b) < byteLen {
		return false
	}
	whole := byteLen
	rem := p.CollisionBitLength() % 8
	if rem != 0 {
		whole--
	}
	for i := 0; i < whole; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	if rem != 0 {
		mask := byte(0xFF << (8 - rem))
		if (a[whole] & mask) != (b[whole] & mask) {
			return false
		}
	}
	return true
}

// SolutionHash is the digest compared against the difficulty target:
// the challenge followed by the serialized solution indices.
func SolutionHash(challenge []byte, indices []uint32) []byte {
	h, _ := blake2b.New256(nil)
	h.Write(challenge)
	var le [4]byte
	for _, idx := range indices {
		binary.LittleEndian.PutUint32(le[:], idx)
		h.Write(le[:])
	}
	return h.Sum(nil)
}

// ParseSolution decodes a raw miner submission: an 8-byte
// little-endian nonce followed by SolutionWidth little-endian uint32
// indices.
func ParseSolution(p Params, raw []byte) (nonce uint64, indices []uint32, err error) {
	if len(raw) < 8 {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrRawSolution, len(raw))
	}
	nonce = binary.LittleEndian.Uint64(raw[:8])
	body := raw[8:]
	if len(body) != p.SolutionWidth()*4 {
		return 0, nil, fmt.Errorf("%w: %d index bytes, want %d", ErrRawSolution, len(body), p.SolutionWidth()*4)
	}
	indices = make([]uint32, p.SolutionWidth())
	for i := range indices {
		indices[i] = binary.LittleEndian.Uint32(body[i*4 : (i+1)*4])
	}
	return nonce, indices, nil
}
