// Package tx implements the record commitment core: component groups,
// full records, filtered (tear-off) records, and the verification
// predicates over them.
//
// A record's parts are split into typed component groups. Each group is
// committed by a Merkle tree over nonce-salted component hashes; the
// group roots are committed by a top-level Merkle tree whose root is the
// record id. A filtered record reveals an arbitrary subset of
// components and stays provably bound to that id via per-group partial
// Merkle trees.
package tx

import (
	"strconv"

	"github.com/suffix-labs/tearoff/pkg/crypto"
	"github.com/suffix-labs/tearoff/pkg/merkle"
)

// GroupIndex is the discriminant of a component group. Values below
// KnownGroupCount are reserved; higher values belong to unknown,
// forward-compatible groups that are preserved opaquely.
type GroupIndex int

// Known group discriminants, in top-level commitment order.
const (
	InputsGroup GroupIndex = iota
	OutputsGroup
	CommandsGroup
	AttachmentsGroup
	NotaryGroup
	TimeWindowGroup
	SignersGroup
	ReferencesGroup
	KnownGroupCount
)

// String returns the group's name, or "unknown(N)" for
// forward-compatible discriminants.
func (g GroupIndex) String() string {
	switch g {
	case InputsGroup:
		return "inputs"
	case OutputsGroup:
		return "outputs"
	case CommandsGroup:
		return "commands"
	case AttachmentsGroup:
		return "attachments"
	case NotaryGroup:
		return "notary"
	case TimeWindowGroup:
		return "time-window"
	case SignersGroup:
		return "signers"
	case ReferencesGroup:
		return "references"
	default:
		return "unknown(" + strconv.Itoa(int(g)) + ")"
	}
}

// IsKnown reports whether the discriminant is one this library
// understands.
func (g GroupIndex) IsKnown() bool {
	return g >= 0 && g < KnownGroupCount
}

// ComponentGroup is an ordered collection of opaque serialized
// components sharing one discriminant. At most one group per
// discriminant exists within a record.
type ComponentGroup struct {
	Index      GroupIndex
	Components [][]byte
}

// FilteredComponentGroup is a component group as it appears in a
// filtered record: the revealed components, their nonces, and the
// partial Merkle tree binding them to the group's full root.
// Invariant: len(Components) == len(Nonces).
type FilteredComponentGroup struct {
	ComponentGroup
	Nonces      []crypto.SecureHash
	PartialTree *merkle.PartialTree
}

// componentHashes recomputes the commitment of every revealed component
// from its nonce and bytes.
func (g *FilteredComponentGroup) componentHashes() []crypto.SecureHash {
	hashes := make([]crypto.SecureHash, len(g.Components))
	for i, component := range g.Components {
		hashes[i] = crypto.ComponentHash(g.Nonces[i], component)
	}
	return hashes
}
