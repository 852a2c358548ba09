package tx

import (
	"sync"

	"github.com/suffix-labs/tearoff/pkg/wire"
)

// Command is a reconstructed command: its payload paired with the
// ordered key set that must sign it. Commands are never stored as a
// single group; the payloads live in the commands group and the key
// sets in the signers group, paired by original position.
type Command struct {
	Data    wire.CommandData
	Signers wire.SignerList
}

// slot addresses one component for the memo cache.
type slot struct {
	group GroupIndex
	index int
}

// traversable is the shared deserialization core of both record kinds.
// Typed accessors decode lazily and memoize per component: a record
// whose outputs are never read never pays to deserialize them, which is
// what makes filtered views with absent groups cheap.
//
// The memo cache is write-once per slot: concurrent first accesses may
// decode the same component twice, but both decodes are deterministic
// and the first stored value wins, so readers always converge.
type traversable struct {
	groups []ComponentGroup // ascending by Index, unique
	ctx    *wire.Context

	mu   sync.Mutex
	memo map[slot]interface{}
}

func newTraversable(groups []ComponentGroup, ctx *wire.Context) traversable {
	return traversable{
		groups: groups,
		ctx:    ctx,
		memo:   make(map[slot]interface{}),
	}
}

// rawComponents returns the opaque component blobs of a group, or nil
// when the group is absent. Absent and empty are the same thing to
// readers: an empty sequence, never an error.
func (t *traversable) rawComponents(group GroupIndex) [][]byte {
	for i := range t.groups {
		if t.groups[i].Index == group {
			return t.groups[i].Components
		}
	}
	return nil
}

// component returns the memoized typed value for one component, decoding
// it on first access. Decode failures are wrapped with the group and
// position before propagating.
func (t *traversable) component(group GroupIndex, index int, raw []byte, decode func([]byte) (interface{}, error)) (interface{}, error) {
	key := slot{group: group, index: index}

	t.mu.Lock()
	if value, ok := t.memo[key]; ok {
		t.mu.Unlock()
		return value, nil
	}
	t.mu.Unlock()

	value, err := decode(raw)
	if err != nil {
		return nil, &MalformedTransactionError{
			Group:   group,
			Index:   index,
			Message: "cannot deserialize component",
			Cause:   err,
		}
	}

	t.mu.Lock()
	if stored, ok := t.memo[key]; ok {
		value = stored
	} else {
		t.memo[key] = value
	}
	t.mu.Unlock()
	return value, nil
}

// decodeGroup decodes every component of a group through the memo cache.
func (t *traversable) decodeGroup(group GroupIndex, decode func([]byte) (interface{}, error)) ([]interface{}, error) {
	raws := t.rawComponents(group)
	if len(raws) == 0 {
		return nil, nil
	}
	values := make([]interface{}, len(raws))
	for i, raw := range raws {
		value, err := t.component(group, i, raw, decode)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

// Inputs returns the typed inputs group, possibly empty.
func (t *traversable) Inputs() ([]wire.StateRef, error) {
	values, err := t.decodeGroup(InputsGroup, func(b []byte) (interface{}, error) {
		return wire.DecodeStateRef(b)
	})
	if err != nil {
		return nil, err
	}
	refs := make([]wire.StateRef, len(values))
	for i, v := range values {
		refs[i] = v.(wire.StateRef)
	}
	return refs, nil
}

// References returns the typed references group, possibly empty.
func (t *traversable) References() ([]wire.StateRef, error) {
	values, err := t.decodeGroup(ReferencesGroup, func(b []byte) (interface{}, error) {
		return wire.DecodeStateRef(b)
	})
	if err != nil {
		return nil, err
	}
	refs := make([]wire.StateRef, len(values))
	for i, v := range values {
		refs[i] = v.(wire.StateRef)
	}
	return refs, nil
}

// Outputs returns the typed outputs group, possibly empty. Outputs
// decode attachment-aware: their contract names must resolve against
// the record's deserialization context.
func (t *traversable) Outputs() ([]wire.OutputState, error) {
	ctx := t.ctx
	values, err := t.decodeGroup(OutputsGroup, func(b []byte) (interface{}, error) {
		return wire.DecodeOutputState(b, ctx)
	})
	if err != nil {
		return nil, err
	}
	outputs := make([]wire.OutputState, len(values))
	for i, v := range values {
		outputs[i] = v.(wire.OutputState)
	}
	return outputs, nil
}

// Attachments returns the typed attachments group, possibly empty.
func (t *traversable) Attachments() ([]wire.AttachmentID, error) {
	values, err := t.decodeGroup(AttachmentsGroup, func(b []byte) (interface{}, error) {
		return wire.DecodeAttachmentID(b)
	})
	if err != nil {
		return nil, err
	}
	ids := make([]wire.AttachmentID, len(values))
	for i, v := range values {
		ids[i] = v.(wire.AttachmentID)
	}
	return ids, nil
}

// Notary returns the notary party, or nil when the record has none.
// More than one notary component is a malformed record.
func (t *traversable) Notary() (*wire.Party, error) {
	values, err := t.decodeGroup(NotaryGroup, func(b []byte) (interface{}, error) {
		return wire.DecodeParty(b)
	})
	if err != nil {
		return nil, err
	}
	switch len(values) {
	case 0:
		return nil, nil
	case 1:
		party := values[0].(wire.Party)
		return &party, nil
	default:
		return nil, &MalformedTransactionError{
			Group:   NotaryGroup,
			Index:   -1,
			Message: "more than one notary detected",
		}
	}
}

// TimeWindow returns the record's time window, or nil when it has none.
// More than one time window component is a malformed record.
func (t *traversable) TimeWindow() (*wire.TimeWindow, error) {
	values, err := t.decodeGroup(TimeWindowGroup, func(b []byte) (interface{}, error) {
		return wire.DecodeTimeWindow(b)
	})
	if err != nil {
		return nil, err
	}
	switch len(values) {
	case 0:
		return nil, nil
	case 1:
		window := values[0].(wire.TimeWindow)
		return &window, nil
	default:
		return nil, &MalformedTransactionError{
			Group:   TimeWindowGroup,
			Index:   -1,
			Message: "more than one time window detected",
		}
	}
}

// commandData returns the typed command payloads. Commands decode
// attachment-aware, like outputs.
func (t *traversable) commandData() ([]wire.CommandData, error) {
	ctx := t.ctx
	values, err := t.decodeGroup(CommandsGroup, func(b []byte) (interface{}, error) {
		return wire.DecodeCommandData(b, ctx)
	})
	if err != nil {
		return nil, err
	}
	commands := make([]wire.CommandData, len(values))
	for i, v := range values {
		commands[i] = v.(wire.CommandData)
	}
	return commands, nil
}

// signerLists returns the typed signers group: one ordered key set per
// original command position.
func (t *traversable) signerLists() ([]wire.SignerList, error) {
	values, err := t.decodeGroup(SignersGroup, func(b []byte) (interface{}, error) {
		return wire.DecodeSignerList(b)
	})
	if err != nil {
		return nil, err
	}
	lists := make([]wire.SignerList, len(values))
	for i, v := range values {
		lists[i] = v.(wire.SignerList)
	}
	return lists, nil
}

// unknownGroups returns the forward-compatible groups (discriminant
// beyond KnownGroupCount) in ascending order.
func (t *traversable) unknownGroups() []ComponentGroup {
	var unknown []ComponentGroup
	for i := range t.groups {
		if !t.groups[i].Index.IsKnown() {
			unknown = append(unknown, t.groups[i])
		}
	}
	return unknown
}
