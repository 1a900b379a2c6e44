package equihash

import "fmt"

// Params selects an Equihash instance. The chain runs (144, 5)
// ("zhash"); tests use smaller instances so a full solution can be
// found in-process.
type Params struct {
	N uint32 // hash bit length
	K uint32 // collision tree depth
}

// Default is the production instance. Solving it needs on the order
// of 2^(N/(K+1)+1) candidate hashes resident at once (~1 GB), while
// verifying costs only O(2^K) hash evaluations. That asymmetry is the
// ASIC-resistance property and must not be weakened.
var Default = Params{N: 144, K: 5}

// Validate rejects parameter combinations the collision tree cannot
// express.
func (p Params) Validate() error {
	if p.K == 0 || p.K >= 32 {
		return fmt.Errorf("equihash: k out of range: %d", p.K)
	}
	if p.N == 0 || p.N%(p.K+1) != 0 {
		return fmt.Errorf("equihash: n must be a positive multiple of k+1: n=%d k=%d", p.N, p.K)
	}
	if p.CollisionBitLength() >= 31 {
		return fmt.Errorf("equihash: collision bit length too large: %d", p.CollisionBitLength())
	}
	return nil
}

// CollisionBitLength is the number of leading bits that must collide
// at each level of the tree. 24 for (144, 5).
func (p Params) CollisionBitLength() uint32 {
	return p.N / (p.K + 1)
}

// CollisionByteLength is CollisionBitLength rounded up to whole bytes;
// hashes are truncated to this length before comparison.
func (p Params) CollisionByteLength() int {
	return int(p.CollisionBitLength()+7) / 8
}

// SolutionWidth is the required index count, 2^K. 32 for (144, 5).
func (p Params) SolutionWidth() int {
	return 1 << p.K
}

// MaxIndex bounds every solution index: [0, 2^(CollisionBitLength+1)).
func (p Params) MaxIndex() uint32 {
	return 1 << (p.CollisionBitLength() + 1)
}
