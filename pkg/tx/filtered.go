package tx

import (
	"fmt"

	"github.com/suffix-labs/tearoff/pkg/crypto"
	"github.com/suffix-labs/tearoff/pkg/merkle"
	"github.com/suffix-labs/tearoff/pkg/wire"
)

// Predicate decides, per typed component value, whether the component is
// revealed in a filtered view. Values are the typed forms the group
// accessors return: wire.StateRef, wire.OutputState, Command,
// wire.AttachmentID, wire.Party, wire.TimeWindow, or
// wire.OpaqueComponent for unknown groups. Policy is entirely the
// caller's; this package only enforces the signer-visibility invariant
// on top of it.
type Predicate func(value interface{}) bool

// FilteredTransaction is a tear-off: a reduced view of a full record
// that reveals a subset of components while staying provably bound to
// the original record id. It owns its filtered groups and holds the id
// and group hash vector by value; it has no reference back to the full
// record and is independently verifiable.
type FilteredTransaction struct {
	traversable

	id             crypto.SecureHash
	groupHashes    []crypto.SecureHash
	filteredGroups []FilteredComponentGroup
}

// groupAccumulator collects the revealed components of one group during
// filtering, preserving original relative order.
type groupAccumulator struct {
	components [][]byte
	nonces     []crypto.SecureHash
	hashes     []crypto.SecureHash
}

// NewFilteredTransaction derives a filtered view of a full record.
//
// Every typed component of every group (except signers) is offered to
// the predicate in group order; components that pass are copied into the
// view together with their nonce and hash. The signers group is
// all-or-nothing: the moment any command is revealed, the entire
// signers group is copied unconditionally, so a verifier can always
// reconstruct which keys must sign each revealed command. A predicate
// that reveals nothing yields a valid view with zero groups, attesting
// only the id.
func NewFilteredTransaction(wtx *WireTransaction, include Predicate) (*FilteredTransaction, error) {
	// Index-addressed accumulators: one slot per discriminant up to the
	// record's highest, nil until a component of that group is revealed.
	accumulators := make([]*groupAccumulator, len(wtx.groupHashes))

	reveal := func(group GroupIndex, index int) {
		g := int(group)
		if accumulators[g] == nil {
			accumulators[g] = &groupAccumulator{}
		}
		acc := accumulators[g]
		acc.components = append(acc.components, wtx.rawComponents(group)[index])
		acc.nonces = append(acc.nonces, wtx.componentNonces[g][index])
		acc.hashes = append(acc.hashes, wtx.componentHashes[g][index])
	}

	revealAll := func(group GroupIndex) {
		for i := range wtx.rawComponents(group) {
			reveal(group, i)
		}
	}

	inputs, err := wtx.Inputs()
	if err != nil {
		return nil, err
	}
	for i, ref := range inputs {
		if include(ref) {
			reveal(InputsGroup, i)
		}
	}

	outputs, err := wtx.Outputs()
	if err != nil {
		return nil, err
	}
	for i, state := range outputs {
		if include(state) {
			reveal(OutputsGroup, i)
		}
	}

	commands, err := wtx.Commands()
	if err != nil {
		return nil, err
	}
	signersCopied := false
	for i, command := range commands {
		if include(command) {
			reveal(CommandsGroup, i)
			if !signersCopied {
				// Commands imply full signer visibility: signers are
				// never predicate-filtered, only gated on whether any
				// command is visible at all.
				revealAll(SignersGroup)
				signersCopied = true
			}
		}
	}

	attachments, err := wtx.Attachments()
	if err != nil {
		return nil, err
	}
	for i, id := range attachments {
		if include(id) {
			reveal(AttachmentsGroup, i)
		}
	}

	notary, err := wtx.Notary()
	if err != nil {
		return nil, err
	}
	if notary != nil && include(*notary) {
		reveal(NotaryGroup, 0)
	}

	window, err := wtx.TimeWindow()
	if err != nil {
		return nil, err
	}
	if window != nil && include(*window) {
		reveal(TimeWindowGroup, 0)
	}

	references, err := wtx.References()
	if err != nil {
		return nil, err
	}
	for i, ref := range references {
		if include(wire.ReferenceStateRef{StateRef: ref}) {
			reveal(ReferencesGroup, i)
		}
	}

	for _, group := range wtx.unknownGroups() {
		for i, component := range group.Components {
			if include(wire.OpaqueComponent{Group: int(group.Index), Bytes: component}) {
				reveal(group.Index, i)
			}
		}
	}

	filteredGroups := make([]FilteredComponentGroup, 0, len(accumulators))
	for g, acc := range accumulators {
		if acc == nil {
			continue
		}
		partial, err := merkle.BuildPartial(wtx.groupTrees[g], acc.hashes)
		if err != nil {
			return nil, &MalformedTransactionError{
				Group:   GroupIndex(g),
				Index:   -1,
				Message: "cannot build partial tree for filtered group",
				Cause:   err,
			}
		}
		filteredGroups = append(filteredGroups, FilteredComponentGroup{
			ComponentGroup: ComponentGroup{
				Index:      GroupIndex(g),
				Components: acc.components,
			},
			Nonces:      acc.nonces,
			PartialTree: partial,
		})
	}

	return newFilteredTransaction(wtx.ID(), wtx.GroupHashes(), filteredGroups, wtx.ctx)
}

// newFilteredTransaction assembles a filtered record from its already-
// built parts. Shared by the filtering algorithm and the parser.
func newFilteredTransaction(id crypto.SecureHash, groupHashes []crypto.SecureHash, filteredGroups []FilteredComponentGroup, ctx *wire.Context) (*FilteredTransaction, error) {
	groups := make([]ComponentGroup, len(filteredGroups))
	for i := range filteredGroups {
		fg := &filteredGroups[i]
		if len(fg.Components) != len(fg.Nonces) {
			return nil, &MalformedTransactionError{
				Group:   fg.Index,
				Index:   -1,
				Message: fmt.Sprintf("%d components but %d nonces", len(fg.Components), len(fg.Nonces)),
			}
		}
		if i > 0 && filteredGroups[i-1].Index >= fg.Index {
			return nil, &MalformedTransactionError{
				Group:   fg.Index,
				Index:   -1,
				Message: "filtered groups out of order or duplicated",
			}
		}
		groups[i] = fg.ComponentGroup
	}

	return &FilteredTransaction{
		traversable:    newTraversable(groups, ctx),
		id:             id,
		groupHashes:    groupHashes,
		filteredGroups: filteredGroups,
	}, nil
}

// ID returns the originating record's identifier.
func (f *FilteredTransaction) ID() crypto.SecureHash {
	return f.id
}

// GroupHashes returns a copy of the per-group root vector.
func (f *FilteredTransaction) GroupHashes() []crypto.SecureHash {
	hashes := make([]crypto.SecureHash, len(f.groupHashes))
	copy(hashes, f.groupHashes)
	return hashes
}

// FilteredComponentGroups returns the revealed groups in ascending
// discriminant order.
func (f *FilteredTransaction) FilteredComponentGroups() []FilteredComponentGroup {
	groups := make([]FilteredComponentGroup, len(f.filteredGroups))
	copy(groups, f.filteredGroups)
	return groups
}

// filteredGroup returns the filtered group with the given discriminant,
// or nil when that group is not part of the view.
func (f *FilteredTransaction) filteredGroup(group GroupIndex) *FilteredComponentGroup {
	for i := range f.filteredGroups {
		if f.filteredGroups[i].Index == group {
			return &f.filteredGroups[i]
		}
	}
	return nil
}

// Commands reconstructs the revealed commands. In a filtered record the
// commands group may be an arbitrary subset, so command i's signer list
// is NOT list i: the command's original position is recovered from the
// partial tree's leaf index for its component hash, and that position
// selects the signer list. The signers group itself is always complete
// when any command is revealed (see NewFilteredTransaction).
func (f *FilteredTransaction) Commands() ([]Command, error) {
	payloads, err := f.commandData()
	if err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, nil
	}
	signers, err := f.signerLists()
	if err != nil {
		return nil, err
	}
	if len(payloads) > len(signers) {
		return nil, &MalformedTransactionError{
			Group:   SignersGroup,
			Index:   -1,
			Message: "fewer signer lists than revealed commands",
		}
	}

	fg := f.filteredGroup(CommandsGroup)
	commands := make([]Command, len(payloads))
	for i := range payloads {
		hash := crypto.ComponentHash(fg.Nonces[i], fg.Components[i])
		position, err := fg.PartialTree.LeafIndex(hash)
		if err != nil {
			return nil, &MalformedTransactionError{
				Group:   CommandsGroup,
				Index:   i,
				Message: "cannot recover command's original position",
				Cause:   err,
			}
		}
		if position >= len(signers) {
			return nil, &MalformedTransactionError{
				Group:   CommandsGroup,
				Index:   i,
				Message: "command has no corresponding signer list",
			}
		}
		commands[i] = Command{Data: payloads[i], Signers: signers[position]}
	}
	return commands, nil
}

// Verify proves the filtered record is a faithful partial view of some
// record with this id: the group hash vector reproduces the id, and
// every revealed group's components reprove that group's recorded root
// through its partial tree. A view with zero groups verifies on the id
// alone (blind-signature case).
func (f *FilteredTransaction) Verify() error {
	if len(f.groupHashes) == 0 {
		return &VerificationError{Group: -1, Message: "at least one component group hash is required"}
	}

	top, err := merkle.Build(f.groupHashes)
	if err != nil {
		return &VerificationError{Group: -1, Message: err.Error()}
	}
	if top.Root() != f.id {
		return &VerificationError{Group: -1, Message: "top-level Merkle tree root does not match the record id"}
	}

	if len(f.filteredGroups) == 0 {
		return nil
	}

	for i := range f.filteredGroups {
		fg := &f.filteredGroups[i]
		g := int(fg.Index)
		if g < 0 || g >= len(f.groupHashes) {
			return &VerificationError{Group: g, Message: "no matching group hash"}
		}
		if len(fg.Components) != len(fg.Nonces) {
			return &VerificationError{Group: g, Message: "component and nonce counts differ"}
		}
		if fg.PartialTree == nil {
			return &VerificationError{Group: g, Message: "filtered group has no partial tree"}
		}
		if fg.PartialTree.Root() != f.groupHashes[g] {
			return &VerificationError{Group: g, Message: "partial Merkle tree root does not match the group hash"}
		}
		if !fg.PartialTree.Verify(f.groupHashes[g], fg.componentHashes()) {
			return &VerificationError{Group: g, Message: "components cannot be verified against partial tree"}
		}
	}
	return nil
}

// CheckAllComponentsVisible proves that the given group was disclosed in
// full, not partially. The root of a FULL tree rebuilt from the visible
// components must equal the group's recorded root; a genuine subset
// would produce a different root, so equality shows nothing was
// withheld. A group absent from the view passes only when the record
// never had it (sentinel hash, or discriminant beyond the vector).
func (f *FilteredTransaction) CheckAllComponentsVisible(group GroupIndex) error {
	g := int(group)
	fg := f.filteredGroup(group)

	if fg == nil {
		if g >= len(f.groupHashes) {
			return nil
		}
		if f.groupHashes[g] != crypto.AllOnesHash {
			return &VisibilityError{Group: g, Message: "group is present in the record but hidden from this view"}
		}
		return nil
	}

	if g >= len(f.groupHashes) {
		return &VisibilityError{Group: g, Message: "no group hash recorded for this group"}
	}

	full, err := merkle.Build(fg.componentHashes())
	if err != nil {
		return &VisibilityError{Group: g, Message: err.Error()}
	}
	if full.Root() != f.groupHashes[g] {
		return &VisibilityError{Group: g, Message: "hidden components detected in group"}
	}

	top, err := merkle.Build(f.groupHashes)
	if err != nil {
		return &VisibilityError{Group: -1, Message: err.Error()}
	}
	if top.Root() != f.id {
		return &VisibilityError{Group: -1, Message: "top-level Merkle tree root does not match the record id"}
	}
	return nil
}

// CheckCommandVisibility proves that every command the original record
// required the given key to sign is present in this view. The signers
// group must be fully visible; the number of signer lists containing
// the key (expected) must equal the number of revealed commands whose
// signer set contains it (received). Exact equality, not a lower bound:
// a signing oracle must see everything it is attesting to.
func (f *FilteredTransaction) CheckCommandVisibility(key *crypto.PublicKey) error {
	if err := f.CheckAllComponentsVisible(SignersGroup); err != nil {
		return err
	}

	signers, err := f.signerLists()
	if err != nil {
		return err
	}
	expected := 0
	for _, list := range signers {
		if crypto.KeyInSet(key, list) {
			expected++
		}
	}

	commands, err := f.Commands()
	if err != nil {
		return err
	}
	received := 0
	for _, command := range commands {
		if crypto.KeyInSet(key, command.Signers) {
			received++
		}
	}

	if expected != received {
		return &VisibilityError{
			Group: int(CommandsGroup),
			Message: fmt.Sprintf("%d commands signed by key %s were expected, but %d are visible",
				expected, key.Fingerprint(), received),
		}
	}
	return nil
}
