package tx

import (
	"fmt"

	"github.com/suffix-labs/tearoff/pkg/crypto"
	"github.com/suffix-labs/tearoff/pkg/wire"
)

// Builder assembles a full record. It collects typed parts, serializes
// them into component groups, draws a privacy salt, and computes the
// commitment structure. The zero Builder is not usable; call NewBuilder.
//
// The builder registers the contract and command class names it sees,
// so the resulting record's deserialization context resolves exactly
// the classes the record uses.
type Builder struct {
	inputs      []wire.StateRef
	outputs     []wire.OutputState
	commands    []Command
	attachments []wire.AttachmentID
	notary      *wire.Party
	timeWindow  *wire.TimeWindow
	references  []wire.StateRef
	unknown     map[GroupIndex][][]byte
	classNames  []string
}

// NewBuilder creates an empty record builder.
func NewBuilder() *Builder {
	return &Builder{unknown: make(map[GroupIndex][][]byte)}
}

// AddInput appends a state reference to the inputs group.
func (b *Builder) AddInput(ref wire.StateRef) *Builder {
	b.inputs = append(b.inputs, ref)
	return b
}

// AddOutput appends an output state and registers its contract class.
func (b *Builder) AddOutput(state wire.OutputState) *Builder {
	b.outputs = append(b.outputs, state)
	b.classNames = append(b.classNames, state.ContractName)
	return b
}

// AddCommand appends a command with its required signers and registers
// the command class.
func (b *Builder) AddCommand(data wire.CommandData, signers ...*crypto.PublicKey) *Builder {
	b.commands = append(b.commands, Command{Data: data, Signers: signers})
	b.classNames = append(b.classNames, data.Name)
	return b
}

// AddAttachment appends an attachment id.
func (b *Builder) AddAttachment(id wire.AttachmentID) *Builder {
	b.attachments = append(b.attachments, id)
	return b
}

// SetNotary sets the record's notary party.
func (b *Builder) SetNotary(party wire.Party) *Builder {
	b.notary = &party
	return b
}

// SetTimeWindow sets the record's time window.
func (b *Builder) SetTimeWindow(window wire.TimeWindow) *Builder {
	b.timeWindow = &window
	return b
}

// AddReference appends a state reference to the references group.
func (b *Builder) AddReference(ref wire.StateRef) *Builder {
	b.references = append(b.references, ref)
	return b
}

// AddUnknownGroup appends already-serialized components under a
// forward-compatible discriminant. Used to round-trip groups produced
// by a newer version of the format.
func (b *Builder) AddUnknownGroup(group GroupIndex, components ...[]byte) error {
	if group.IsKnown() || group < 0 {
		return fmt.Errorf("discriminant %d is reserved; unknown groups start at %d", group, KnownGroupCount)
	}
	b.unknown[group] = append(b.unknown[group], components...)
	return nil
}

// Build serializes the collected parts into component groups, draws a
// fresh privacy salt, and constructs the full record.
func (b *Builder) Build() (*WireTransaction, error) {
	salt, err := crypto.NewPrivacySalt()
	if err != nil {
		return nil, err
	}
	return b.BuildWithSalt(salt)
}

// BuildWithSalt is Build with a caller-supplied privacy salt, for
// deterministic reconstruction of an existing record.
func (b *Builder) BuildWithSalt(salt crypto.PrivacySalt) (*WireTransaction, error) {
	for i, command := range b.commands {
		if len(command.Signers) == 0 {
			return nil, &MalformedTransactionError{
				Group:   CommandsGroup,
				Index:   i,
				Message: "command has no signers",
			}
		}
	}

	var groups []ComponentGroup

	if len(b.inputs) > 0 {
		components := make([][]byte, len(b.inputs))
		for i, ref := range b.inputs {
			components[i] = wire.EncodeStateRef(ref)
		}
		groups = append(groups, ComponentGroup{Index: InputsGroup, Components: components})
	}

	if len(b.outputs) > 0 {
		components := make([][]byte, len(b.outputs))
		for i, state := range b.outputs {
			components[i] = wire.EncodeOutputState(state)
		}
		groups = append(groups, ComponentGroup{Index: OutputsGroup, Components: components})
	}

	if len(b.commands) > 0 {
		payloads := make([][]byte, len(b.commands))
		signerLists := make([][]byte, len(b.commands))
		for i, command := range b.commands {
			payloads[i] = wire.EncodeCommandData(command.Data)
			signerLists[i] = wire.EncodeSignerList(command.Signers)
		}
		groups = append(groups,
			ComponentGroup{Index: CommandsGroup, Components: payloads},
			ComponentGroup{Index: SignersGroup, Components: signerLists})
	}

	if len(b.attachments) > 0 {
		components := make([][]byte, len(b.attachments))
		for i, id := range b.attachments {
			components[i] = wire.EncodeAttachmentID(id)
		}
		groups = append(groups, ComponentGroup{Index: AttachmentsGroup, Components: components})
	}

	if b.notary != nil {
		groups = append(groups, ComponentGroup{
			Index:      NotaryGroup,
			Components: [][]byte{wire.EncodeParty(*b.notary)},
		})
	}

	if b.timeWindow != nil {
		groups = append(groups, ComponentGroup{
			Index:      TimeWindowGroup,
			Components: [][]byte{wire.EncodeTimeWindow(*b.timeWindow)},
		})
	}

	if len(b.references) > 0 {
		components := make([][]byte, len(b.references))
		for i, ref := range b.references {
			components[i] = wire.EncodeStateRef(ref)
		}
		groups = append(groups, ComponentGroup{Index: ReferencesGroup, Components: components})
	}

	for group, components := range b.unknown {
		groups = append(groups, ComponentGroup{Index: group, Components: components})
	}

	return NewWireTransaction(groups, salt, wire.NewContext(b.classNames...))
}
