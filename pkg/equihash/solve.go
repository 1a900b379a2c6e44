package equihash

// A reference Wagner-style solver. It carries every candidate hash in
// memory at once, which is the whole point of the puzzle: at the
// production instance this costs on the order of a gigabyte, so nodes
// use it for local nets and tests while real miners run optimised
// external solvers. Verification stays cheap either way.

type solveNode struct {
	digest  []byte
	indices []uint32
	leaves  [][]byte
}

// Solve searches for one valid solution to the challenge. Returns
// false when the challenge admits none (try another nonce).
func Solve(p Params, challenge []byte) ([]uint32, bool) {
	if p.Validate() != nil {
		return nil, false
	}

	max := int(p.MaxIndex())
	nodes := make([]solveNode, 0, max)
	for i := 0; i < max; i++ {
		leaf := IndexHash(p, challenge, uint32(i))
		nodes = append(nodes, solveNode{
			digest:  leaf,
			indices: []uint32{uint32(i)},
			leaves:  [][]byte{leaf},
		})
	}

	for level := uint32(0); level < p.K; level++ {
		buckets := make(map[uint32][]int, len(nodes))
		for i := range nodes {
			key := collisionKey(p, nodes[i].digest)
			buckets[key] = append(buckets[key], i)
		}

		var next []solveNode
		for _, members := range buckets {
			for a := 0; a < len(members); a++ {
				for b := a + 1; b < len(members); b++ {
					left, right := nodes[members[a]], nodes[members[b]]
					if sharesIndex(left, right) {
						continue
					}
					leaves := make([][]byte, 0, len(left.leaves)*2)
					leaves = append(leaves, left.leaves...)
					leaves = append(leaves, right.leaves...)
					indices := make([]uint32, 0, len(leaves))
					indices = append(indices, left.indices...)
					indices = append(indices, right.indices...)
					next = append(next, solveNode{
						digest:  rangeDigest(p, leaves, 0, len(leaves)),
						indices: indices,
						leaves:  leaves,
					})
				}
			}
		}
		// keep the working set bounded even on dense instances
		if len(next) > 4*max {
			next = next[:4*max]
		}
		if len(next) == 0 {
			return nil, false
		}
		nodes = next
	}

	for i := range nodes {
		if VerifySolution(p, challenge, nodes[i].indices) == nil {
			return nodes[i].indices, true
		}
	}
	return nil, false
}

// collisionKey packs the leading CollisionBitLength bits of a digest
// into an integer, the same bits hasCollision compares.
func collisionKey(p Params, digest []byte) uint32 {
	var key uint32
	for i := 0; i < p.CollisionByteLength(); i++ {
		key = key<<8 | uint32(digest[i])
	}
	if rem := p.CollisionBitLength() % 8; rem != 0 {
		key >>= 8 - rem
	}
	return key
}

func sharesIndex(a, b solveNode) bool {
	for _, x := range a.indices {
		for _, y := range b.indices {
			if x == y {
				return true
			}
		}
	}
	return false
}
