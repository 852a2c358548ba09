package tx

import (
	"sort"

	"github.com/suffix-labs/tearoff/pkg/crypto"
	"github.com/suffix-labs/tearoff/pkg/merkle"
	"github.com/suffix-labs/tearoff/pkg/wire"
)

// WireTransaction is a full record: every component group it was built
// with, the privacy salt its nonces derive from, and the commitment
// structure over them. Immutable after construction; safe for
// concurrent readers.
//
// The id is the root of the top-level Merkle tree over the group hash
// vector. The vector has one entry per discriminant from zero up to the
// highest present group; absent discriminants carry the all-ones
// sentinel so "no group" commits differently from every real group.
type WireTransaction struct {
	traversable

	salt        crypto.PrivacySalt
	id          crypto.SecureHash
	groupHashes []crypto.SecureHash

	// Precomputed commitment tables, addressed by group discriminant.
	// Entries are nil for absent discriminants.
	groupTrees      []*merkle.Tree
	componentNonces [][]crypto.SecureHash
	componentHashes [][]crypto.SecureHash
}

// NewWireTransaction assembles a full record from its component groups,
// privacy salt, and deserialization context, computing every group tree
// and the record id. Groups may be given in any order; duplicates,
// negative discriminants and empty groups are rejected.
func NewWireTransaction(groups []ComponentGroup, salt crypto.PrivacySalt, ctx *wire.Context) (*WireTransaction, error) {
	if salt.IsZero() {
		return nil, &MalformedTransactionError{Group: -1, Index: -1, Message: "privacy salt is unset"}
	}

	sorted := make([]ComponentGroup, len(groups))
	copy(sorted, groups)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	maxIndex := int(KnownGroupCount) - 1
	for i := range sorted {
		g := sorted[i].Index
		if g < 0 {
			return nil, &MalformedTransactionError{Group: g, Index: -1, Message: "negative group discriminant"}
		}
		if len(sorted[i].Components) == 0 {
			return nil, &MalformedTransactionError{Group: g, Index: -1, Message: "group has no components; absent groups must be omitted"}
		}
		if i > 0 && sorted[i-1].Index == g {
			return nil, &MalformedTransactionError{Group: g, Index: -1, Message: "duplicate group discriminant"}
		}
		if int(g) > maxIndex {
			maxIndex = int(g)
		}
	}

	wtx := &WireTransaction{
		traversable:     newTraversable(sorted, ctx),
		salt:            salt,
		groupHashes:     make([]crypto.SecureHash, maxIndex+1),
		groupTrees:      make([]*merkle.Tree, maxIndex+1),
		componentNonces: make([][]crypto.SecureHash, maxIndex+1),
		componentHashes: make([][]crypto.SecureHash, maxIndex+1),
	}
	for i := range wtx.groupHashes {
		wtx.groupHashes[i] = crypto.AllOnesHash
	}

	for i := range sorted {
		g := int(sorted[i].Index)
		components := sorted[i].Components

		nonces := make([]crypto.SecureHash, len(components))
		hashes := make([]crypto.SecureHash, len(components))
		for j, component := range components {
			nonces[j] = crypto.ComponentNonce(salt, g, j)
			hashes[j] = crypto.ComponentHash(nonces[j], component)
		}

		tree, err := merkle.Build(hashes)
		if err != nil {
			return nil, &MalformedTransactionError{Group: GroupIndex(g), Index: -1, Message: "cannot build group tree", Cause: err}
		}

		wtx.componentNonces[g] = nonces
		wtx.componentHashes[g] = hashes
		wtx.groupTrees[g] = tree
		wtx.groupHashes[g] = tree.Root()
	}

	top, err := merkle.Build(wtx.groupHashes)
	if err != nil {
		return nil, &MalformedTransactionError{Group: -1, Index: -1, Message: "cannot build top-level tree", Cause: err}
	}
	wtx.id = top.Root()

	return wtx, nil
}

// ID returns the record's canonical identifier: the top-level Merkle
// root.
func (w *WireTransaction) ID() crypto.SecureHash {
	return w.id
}

// GroupHashes returns a copy of the per-group root vector.
func (w *WireTransaction) GroupHashes() []crypto.SecureHash {
	hashes := make([]crypto.SecureHash, len(w.groupHashes))
	copy(hashes, w.groupHashes)
	return hashes
}

// PrivacySalt returns the salt the component nonces derive from.
func (w *WireTransaction) PrivacySalt() crypto.PrivacySalt {
	return w.salt
}

// ComponentGroups returns a copy of the record's component groups in
// ascending discriminant order.
func (w *WireTransaction) ComponentGroups() []ComponentGroup {
	groups := make([]ComponentGroup, len(w.groups))
	copy(groups, w.groups)
	return groups
}

// Commands reconstructs the record's commands. A full record requires
// exactly one signer list per command payload; command i pairs with
// signer list i.
func (w *WireTransaction) Commands() ([]Command, error) {
	payloads, err := w.commandData()
	if err != nil {
		return nil, err
	}
	signers, err := w.signerLists()
	if err != nil {
		return nil, err
	}
	if len(payloads) != len(signers) {
		return nil, &MalformedTransactionError{
			Group:   CommandsGroup,
			Index:   -1,
			Message: "command and signer list counts differ",
		}
	}

	commands := make([]Command, len(payloads))
	for i := range payloads {
		commands[i] = Command{Data: payloads[i], Signers: signers[i]}
	}
	return commands, nil
}
