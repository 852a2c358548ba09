package merkle

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/suffix-labs/tearoff/pkg/crypto"
)

// partialNode is one node of a partial tree. Three shapes exist:
//   - includedLeaf: a revealed leaf of the original tree
//   - prunedNode:   a subtree containing no revealed leaf, collapsed to
//     its root hash (this covers unrevealed leaves and padding alike)
//   - branchNode:   an interior node with at least one revealed leaf below
type partialNode interface {
	isPartialNode()
}

type includedLeaf struct {
	hash crypto.SecureHash
}

type prunedNode struct {
	hash crypto.SecureHash
}

type branchNode struct {
	left  partialNode
	right partialNode
}

func (includedLeaf) isPartialNode() {}
func (prunedNode) isPartialNode()   {}
func (branchNode) isPartialNode()   {}

// PartialTree authenticates a subset of a full tree's leaves against the
// full tree's root. Immutable after BuildPartial or UnmarshalBinary.
type PartialTree struct {
	root  partialNode
	width int // padded leaf count of the source tree
}

// BuildPartial builds the partial tree for the given subset of the full
// tree's leaf hashes. Every included hash must be a leaf of the tree;
// the subset may be empty, producing a tree whose only node is the
// pruned root.
func BuildPartial(tree *Tree, included []crypto.SecureHash) (*PartialTree, error) {
	wanted := make(map[crypto.SecureHash]bool, len(included))
	for _, h := range included {
		wanted[h] = true
	}

	found := make(map[crypto.SecureHash]bool, len(included))
	root, _ := buildNode(tree, len(tree.levels)-1, 0, wanted, found)

	for _, h := range included {
		if !found[h] {
			return nil, fmt.Errorf("hash %s is not a leaf of the tree", h.Short())
		}
	}

	return &PartialTree{root: root, width: tree.Width()}, nil
}

// buildNode recursively builds the partial node for the subtree rooted
// at (height, pos) in the full tree, where height counts from the leaf
// level. Returns the node and whether any revealed leaf lies below it.
func buildNode(tree *Tree, height, pos int, wanted, found map[crypto.SecureHash]bool) (partialNode, bool) {
	if height == 0 {
		leaf := tree.levels[0][pos]
		// Padding slots beyond the original leaves are never revealed.
		if pos < tree.leafCount && wanted[leaf] {
			found[leaf] = true
			return includedLeaf{hash: leaf}, true
		}
		return prunedNode{hash: leaf}, false
	}

	left, leftHasLeaf := buildNode(tree, height-1, 2*pos, wanted, found)
	right, rightHasLeaf := buildNode(tree, height-1, 2*pos+1, wanted, found)
	if !leftHasLeaf && !rightHasLeaf {
		return prunedNode{hash: tree.levels[height][pos]}, false
	}
	return branchNode{left: left, right: right}, true
}

// Root recomputes the root hash from the partial tree's shape.
func (p *PartialTree) Root() crypto.SecureHash {
	root, _ := p.RootAndIncludedHashes()
	return root
}

// RootAndIncludedHashes recomputes the root hash, collecting the revealed
// leaf hashes in original leaf order along the way.
func (p *PartialTree) RootAndIncludedHashes() (crypto.SecureHash, []crypto.SecureHash) {
	var used []crypto.SecureHash
	root := rootAndUsed(p.root, &used)
	return root, used
}

func rootAndUsed(node partialNode, used *[]crypto.SecureHash) crypto.SecureHash {
	switch n := node.(type) {
	case includedLeaf:
		*used = append(*used, n.hash)
		return n.hash
	case prunedNode:
		return n.hash
	case branchNode:
		left := rootAndUsed(n.left, used)
		right := rootAndUsed(n.right, used)
		return crypto.NodeHash(left, right)
	default:
		panic("unreachable partial node kind")
	}
}

// Verify reports whether the partial tree reproves expectedRoot and its
// revealed leaves are exactly the given hashes. Order does not matter,
// multiplicity does.
func (p *PartialTree) Verify(expectedRoot crypto.SecureHash, leaves []crypto.SecureHash) bool {
	root, used := p.RootAndIncludedHashes()
	if root != expectedRoot {
		return false
	}
	if len(used) != len(leaves) {
		return false
	}

	counts := make(map[crypto.SecureHash]int, len(used))
	for _, h := range used {
		counts[h]++
	}
	for _, h := range leaves {
		counts[h]--
		if counts[h] < 0 {
			return false
		}
	}
	return true
}

// LeafIndex returns the position the given revealed leaf hash held in
// the original full tree's leaf order.
func (p *PartialTree) LeafIndex(leaf crypto.SecureHash) (int, error) {
	index := leafIndex(p.root, leaf, 0, p.width)
	if index < 0 {
		return 0, fmt.Errorf("hash %s is not an included leaf of the partial tree", leaf.Short())
	}
	return index, nil
}

// leafIndex searches the subtree covering original positions
// [offset, offset+span). Returns -1 when the leaf is not included there.
func leafIndex(node partialNode, leaf crypto.SecureHash, offset, span int) int {
	switch n := node.(type) {
	case includedLeaf:
		if n.hash == leaf {
			return offset
		}
		return -1
	case prunedNode:
		return -1
	case branchNode:
		if index := leafIndex(n.left, leaf, offset, span/2); index >= 0 {
			return index
		}
		return leafIndex(n.right, leaf, offset+span/2, span/2)
	default:
		panic("unreachable partial node kind")
	}
}

// IncludedLeafCount returns the number of revealed leaves.
func (p *PartialTree) IncludedLeafCount() int {
	_, used := p.RootAndIncludedHashes()
	return len(used)
}

// Width returns the padded leaf count of the source tree.
func (p *PartialTree) Width() int {
	return p.width
}

// Binary encoding: uvarint width, then the node shape in preorder. Node
// tags: 0 = pruned, 1 = included leaf, 2 = branch; leaf nodes carry
// their 32-byte hash.
const (
	tagPruned   byte = 0
	tagIncluded byte = 1
	tagBranch   byte = 2
)

// MarshalBinary encodes the partial tree.
func (p *PartialTree) MarshalBinary() ([]byte, error) {
	buf := binary.AppendUvarint(nil, uint64(p.width))
	return marshalNode(buf, p.root), nil
}

func marshalNode(buf []byte, node partialNode) []byte {
	switch n := node.(type) {
	case prunedNode:
		buf = append(buf, tagPruned)
		return append(buf, n.hash[:]...)
	case includedLeaf:
		buf = append(buf, tagIncluded)
		return append(buf, n.hash[:]...)
	case branchNode:
		buf = append(buf, tagBranch)
		buf = marshalNode(buf, n.left)
		return marshalNode(buf, n.right)
	default:
		panic("unreachable partial node kind")
	}
}

// UnmarshalBinary decodes a partial tree produced by MarshalBinary.
func (p *PartialTree) UnmarshalBinary(data []byte) error {
	width, n := binary.Uvarint(data)
	if n <= 0 {
		return errors.New("partial tree: truncated width")
	}
	if width == 0 || width > 1<<24 || (width&(width-1)) != 0 {
		return fmt.Errorf("partial tree: width %d is not a valid power of two", width)
	}

	rest := data[n:]
	root, rest, err := unmarshalNode(rest, treeDepth(int(width)))
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("partial tree: %d trailing bytes", len(rest))
	}

	p.root = root
	p.width = int(width)
	return nil
}

func unmarshalNode(data []byte, depthBudget int) (partialNode, []byte, error) {
	if len(data) == 0 {
		return nil, nil, errors.New("partial tree: truncated node")
	}
	tag, rest := data[0], data[1:]

	switch tag {
	case tagPruned, tagIncluded:
		if len(rest) < crypto.HashSize {
			return nil, nil, errors.New("partial tree: truncated leaf hash")
		}
		var h crypto.SecureHash
		copy(h[:], rest[:crypto.HashSize])
		rest = rest[crypto.HashSize:]
		if tag == tagIncluded {
			return includedLeaf{hash: h}, rest, nil
		}
		return prunedNode{hash: h}, rest, nil
	case tagBranch:
		if depthBudget == 0 {
			return nil, nil, errors.New("partial tree: deeper than its declared width allows")
		}
		left, rest, err := unmarshalNode(rest, depthBudget-1)
		if err != nil {
			return nil, nil, err
		}
		right, rest, err := unmarshalNode(rest, depthBudget-1)
		if err != nil {
			return nil, nil, err
		}
		return branchNode{left: left, right: right}, rest, nil
	default:
		return nil, nil, fmt.Errorf("partial tree: unknown node tag 0x%02x", tag)
	}
}

func treeDepth(width int) int {
	depth := 0
	for w := 1; w < width; w *= 2 {
		depth++
	}
	return depth
}

