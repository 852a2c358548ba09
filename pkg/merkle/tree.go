// Package merkle implements the full and partial Merkle trees behind
// record commitments.
//
// A full tree commits to an ordered sequence of leaf hashes: leaves are
// padded with the zero hash up to the next power of two and combined
// pairwise with the personalized node digest from pkg/crypto. A partial
// tree is the authentication structure for a chosen subset of a full
// tree's leaves: it keeps the revealed leaves in place, collapses every
// subtree containing no revealed leaf to a single pruned node, and can
// re-derive the full root from that shape alone.
package merkle

import (
	"errors"
	"fmt"

	"github.com/suffix-labs/tearoff/pkg/crypto"
)

// Tree is a full Merkle tree over an ordered sequence of leaf hashes.
// Immutable after Build.
type Tree struct {
	// levels[0] holds the padded leaves, levels[len-1] the root.
	levels    [][]crypto.SecureHash
	leafCount int
}

// Build constructs the full tree for the given ordered leaves. The leaf
// slice is copied; at least one leaf is required.
func Build(leaves []crypto.SecureHash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, errors.New("cannot build a Merkle tree with no leaves")
	}

	padded := make([]crypto.SecureHash, nextPowerOfTwo(len(leaves)))
	copy(padded, leaves)
	// Unfilled tail slots stay crypto.ZeroHash.

	levels := [][]crypto.SecureHash{padded}
	for width := len(padded); width > 1; width /= 2 {
		lower := levels[len(levels)-1]
		upper := make([]crypto.SecureHash, width/2)
		for i := range upper {
			upper[i] = crypto.NodeHash(lower[2*i], lower[2*i+1])
		}
		levels = append(levels, upper)
	}

	return &Tree{levels: levels, leafCount: len(leaves)}, nil
}

// Root returns the root hash of the tree.
func (t *Tree) Root() crypto.SecureHash {
	return t.levels[len(t.levels)-1][0]
}

// LeafCount returns the number of leaves the tree was built from,
// excluding padding.
func (t *Tree) LeafCount() int {
	return t.leafCount
}

// Width returns the padded leaf count (a power of two).
func (t *Tree) Width() int {
	return len(t.levels[0])
}

// Leaf returns the leaf hash at the given original position.
func (t *Tree) Leaf(index int) (crypto.SecureHash, error) {
	if index < 0 || index >= t.leafCount {
		return crypto.SecureHash{}, fmt.Errorf("leaf index %d out of range [0, %d)", index, t.leafCount)
	}
	return t.levels[0][index], nil
}

// nextPowerOfTwo returns the smallest power of two >= n (n >= 1).
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
