package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/tearoff/pkg/wire"
)

func revealEverything(interface{}) bool { return true }
func revealNothing(interface{}) bool    { return false }

// revealGroups admits components of the given known groups only.
func revealGroups(groups ...GroupIndex) Predicate {
	wanted := make(map[GroupIndex]bool)
	for _, g := range groups {
		wanted[g] = true
	}
	return func(value interface{}) bool {
		switch value.(type) {
		case wire.StateRef:
			return wanted[InputsGroup]
		case wire.ReferenceStateRef:
			return wanted[ReferencesGroup]
		case wire.OutputState:
			return wanted[OutputsGroup]
		case Command:
			return wanted[CommandsGroup]
		case wire.AttachmentID:
			return wanted[AttachmentsGroup]
		case wire.Party:
			return wanted[NotaryGroup]
		case wire.TimeWindow:
			return wanted[TimeWindowGroup]
		default:
			return false
		}
	}
}

func revealCommandsNamed(names ...string) Predicate {
	wanted := make(map[string]bool)
	for _, name := range names {
		wanted[name] = true
	}
	return func(value interface{}) bool {
		command, ok := value.(Command)
		return ok && wanted[command.Data.Name]
	}
}

func TestFilterRevealEverything(t *testing.T) {
	wtx, _, _ := testRecord(t)

	ftx, err := NewFilteredTransaction(wtx, revealEverything)
	require.NoError(t, err)

	assert.Equal(t, wtx.ID(), ftx.ID())
	require.NoError(t, ftx.Verify())

	// All eight known groups plus unknown group 9.
	assert.Len(t, ftx.FilteredComponentGroups(), 9)
	for g := GroupIndex(0); g < KnownGroupCount; g++ {
		assert.NoError(t, ftx.CheckAllComponentsVisible(g), "group %s", g)
	}
	assert.NoError(t, ftx.CheckAllComponentsVisible(9))
}

func TestFilterRevealNothing(t *testing.T) {
	wtx, _, _ := testRecord(t)

	ftx, err := NewFilteredTransaction(wtx, revealNothing)
	require.NoError(t, err)

	assert.Empty(t, ftx.FilteredComponentGroups())
	assert.Equal(t, wtx.ID(), ftx.ID())
	require.NoError(t, ftx.Verify(), "an id-only view still verifies")

	// The record has inputs; hiding them all fails the visibility check.
	err = ftx.CheckAllComponentsVisible(InputsGroup)
	var visibility *VisibilityError
	require.ErrorAs(t, err, &visibility)
}

func TestFilterSubsetOfGroups(t *testing.T) {
	wtx, _, _ := testRecord(t)

	ftx, err := NewFilteredTransaction(wtx, revealGroups(OutputsGroup, NotaryGroup))
	require.NoError(t, err)
	require.NoError(t, ftx.Verify())

	groups := ftx.FilteredComponentGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, OutputsGroup, groups[0].Index)
	assert.Equal(t, NotaryGroup, groups[1].Index)

	outputs, err := ftx.Outputs()
	require.NoError(t, err)
	assert.Len(t, outputs, 2)

	inputs, err := ftx.Inputs()
	require.NoError(t, err)
	assert.Empty(t, inputs, "hidden groups read as empty, not as an error")

	assert.NoError(t, ftx.CheckAllComponentsVisible(OutputsGroup))
	assert.NoError(t, ftx.CheckAllComponentsVisible(NotaryGroup))
	assert.Error(t, ftx.CheckAllComponentsVisible(CommandsGroup))
}

// Widening the predicate never invalidates what a narrower one proved.
func TestFilterVisibilityIsMonotonic(t *testing.T) {
	wtx, _, _ := testRecord(t)

	narrow, err := NewFilteredTransaction(wtx, revealGroups(OutputsGroup))
	require.NoError(t, err)
	wide, err := NewFilteredTransaction(wtx, revealGroups(OutputsGroup, InputsGroup, CommandsGroup))
	require.NoError(t, err)

	require.NoError(t, narrow.Verify())
	require.NoError(t, wide.Verify())
	assert.Equal(t, narrow.ID(), wide.ID())
	assert.NoError(t, narrow.CheckAllComponentsVisible(OutputsGroup))
	assert.NoError(t, wide.CheckAllComponentsVisible(OutputsGroup))
}

func TestFilterCommandImpliesAllSigners(t *testing.T) {
	wtx, keyA, _ := testRecord(t)

	// Reveal a single command; the record has three.
	ftx, err := NewFilteredTransaction(wtx, revealCommandsNamed("Transfer"))
	require.NoError(t, err)
	require.NoError(t, ftx.Verify())

	var commandsGroup, signersGroup *FilteredComponentGroup
	for _, fg := range ftx.FilteredComponentGroups() {
		fg := fg
		switch fg.Index {
		case CommandsGroup:
			commandsGroup = &fg
		case SignersGroup:
			signersGroup = &fg
		}
	}
	require.NotNil(t, commandsGroup)
	require.NotNil(t, signersGroup)

	assert.Len(t, commandsGroup.Components, 1)
	assert.Len(t, signersGroup.Components, 3,
		"revealing any command must copy the whole signers group")
	assert.NoError(t, ftx.CheckAllComponentsVisible(SignersGroup))

	commands, err := ftx.Commands()
	require.NoError(t, err)
	require.Len(t, commands, 1)
	assert.Equal(t, "Transfer", commands[0].Data.Name)
	require.Len(t, commands[0].Signers, 1)
	assert.True(t, keyA.PublicKey().Equal(commands[0].Signers[0]))
}

func TestFilterNoCommandsNoSigners(t *testing.T) {
	wtx, _, _ := testRecord(t)

	ftx, err := NewFilteredTransaction(wtx, revealGroups(OutputsGroup))
	require.NoError(t, err)

	for _, fg := range ftx.FilteredComponentGroups() {
		assert.NotEqual(t, SignersGroup, fg.Index,
			"no revealed command means no signers group")
	}
}

// Revealing the first and third commands must pair each with the signer
// list at its original position, not at its position in the subset.
func TestFilteredCommandPairingByOriginalPosition(t *testing.T) {
	wtx, keyA, keyB := testRecord(t)

	ftx, err := NewFilteredTransaction(wtx, revealCommandsNamed("Transfer", "Burn"))
	require.NoError(t, err)
	require.NoError(t, ftx.Verify())

	commands, err := ftx.Commands()
	require.NoError(t, err)
	require.Len(t, commands, 2)

	assert.Equal(t, "Transfer", commands[0].Data.Name)
	require.Len(t, commands[0].Signers, 1)
	assert.True(t, keyA.PublicKey().Equal(commands[0].Signers[0]))

	assert.Equal(t, "Burn", commands[1].Data.Name)
	require.Len(t, commands[1].Signers, 1)
	assert.True(t, keyB.PublicKey().Equal(commands[1].Signers[0]),
		"Burn must pair with signer list 2, not list 1")
}

func TestCheckCommandVisibility(t *testing.T) {
	wtx, keyA, keyB := testRecord(t)
	keyC := testPrivateKey(t, 0x0C)

	// All commands revealed: every key sees exactly what it must sign.
	full, err := NewFilteredTransaction(wtx, revealCommandsNamed("Transfer", "Issue", "Burn"))
	require.NoError(t, err)
	assert.NoError(t, full.CheckCommandVisibility(keyA.PublicKey()))
	assert.NoError(t, full.CheckCommandVisibility(keyB.PublicKey()))
	assert.NoError(t, full.CheckCommandVisibility(keyC.PublicKey()),
		"a key signing nothing expects to see nothing")

	// Issue hidden: A expects Transfer and Issue but sees one command;
	// B expects Issue and Burn but sees one.
	partial, err := NewFilteredTransaction(wtx, revealCommandsNamed("Transfer", "Burn"))
	require.NoError(t, err)
	require.NoError(t, partial.Verify(), "the view itself is valid, it just hides too much")

	var visibility *VisibilityError
	err = partial.CheckCommandVisibility(keyA.PublicKey())
	require.ErrorAs(t, err, &visibility)
	assert.Contains(t, visibility.Error(), "2 commands")

	err = partial.CheckCommandVisibility(keyB.PublicKey())
	assert.ErrorAs(t, err, &visibility)

	assert.NoError(t, partial.CheckCommandVisibility(keyC.PublicKey()))
}

func TestCheckCommandVisibilityRequiresSigners(t *testing.T) {
	wtx, keyA, _ := testRecord(t)

	// No commands revealed, so no signers group; the record has one.
	ftx, err := NewFilteredTransaction(wtx, revealGroups(OutputsGroup))
	require.NoError(t, err)

	err = ftx.CheckCommandVisibility(keyA.PublicKey())
	var visibility *VisibilityError
	require.ErrorAs(t, err, &visibility)
	assert.Equal(t, int(SignersGroup), visibility.Group)
}

func TestCheckAllComponentsVisibleDetectsPartialGroup(t *testing.T) {
	wtx, _, _ := testRecord(t)

	// Reveal only the first of two outputs.
	first := true
	ftx, err := NewFilteredTransaction(wtx, func(value interface{}) bool {
		if _, ok := value.(wire.OutputState); ok && first {
			first = false
			return true
		}
		return false
	})
	require.NoError(t, err)
	require.NoError(t, ftx.Verify(), "a partial group is a valid view")

	err = ftx.CheckAllComponentsVisible(OutputsGroup)
	var visibility *VisibilityError
	require.ErrorAs(t, err, &visibility)
	assert.Contains(t, visibility.Error(), "hidden components")
}

func TestCheckAllComponentsVisibleAbsentGroup(t *testing.T) {
	// The small record has no time window and no unknown groups.
	wtx := testSmallRecord(t)

	ftx, err := NewFilteredTransaction(wtx, revealEverything)
	require.NoError(t, err)

	assert.NoError(t, ftx.CheckAllComponentsVisible(TimeWindowGroup),
		"a group the record never had is trivially fully visible")
	assert.NoError(t, ftx.CheckAllComponentsVisible(42),
		"a discriminant beyond the vector was never present")
}

func TestFilterUnknownGroup(t *testing.T) {
	wtx, _, _ := testRecord(t)

	ftx, err := NewFilteredTransaction(wtx, func(value interface{}) bool {
		opaque, ok := value.(wire.OpaqueComponent)
		return ok && opaque.Group == 9
	})
	require.NoError(t, err)
	require.NoError(t, ftx.Verify())

	groups := ftx.FilteredComponentGroups()
	require.Len(t, groups, 1)
	assert.Equal(t, GroupIndex(9), groups[0].Index)
	assert.Equal(t, [][]byte{[]byte("opaque-1"), []byte("opaque-2")}, groups[0].Components)
	assert.NoError(t, ftx.CheckAllComponentsVisible(9))
}

func TestVerifyDetectsTamperedComponent(t *testing.T) {
	wtx, _, _ := testRecord(t)

	ftx, err := NewFilteredTransaction(wtx, revealGroups(OutputsGroup))
	require.NoError(t, err)
	require.NoError(t, ftx.Verify())

	ftx.filteredGroups[0].Components[0][0] ^= 0x01

	err = ftx.Verify()
	var verification *VerificationError
	require.ErrorAs(t, err, &verification)
	assert.Equal(t, int(OutputsGroup), verification.Group)
}

func TestVerifyDetectsTamperedNonce(t *testing.T) {
	wtx, _, _ := testRecord(t)

	ftx, err := NewFilteredTransaction(wtx, revealGroups(OutputsGroup))
	require.NoError(t, err)

	ftx.filteredGroups[0].Nonces[0][0] ^= 0x01
	assert.Error(t, ftx.Verify())
}

func TestVerifyDetectsTamperedID(t *testing.T) {
	wtx, _, _ := testRecord(t)

	ftx, err := NewFilteredTransaction(wtx, revealGroups(OutputsGroup))
	require.NoError(t, err)

	ftx.id[0] ^= 0x01

	err = ftx.Verify()
	var verification *VerificationError
	require.ErrorAs(t, err, &verification)
	assert.Equal(t, -1, verification.Group)
}

func TestVerifyDetectsTamperedGroupHash(t *testing.T) {
	wtx, _, _ := testRecord(t)

	ftx, err := NewFilteredTransaction(wtx, revealGroups(OutputsGroup))
	require.NoError(t, err)

	// Any change to the vector breaks the top-level root.
	ftx.groupHashes[InputsGroup][0] ^= 0x01
	assert.Error(t, ftx.Verify())
}

func TestVerifyRejectsEmptyGroupHashVector(t *testing.T) {
	ftx := &FilteredTransaction{}
	err := ftx.Verify()
	var verification *VerificationError
	require.ErrorAs(t, err, &verification)
	assert.Contains(t, verification.Error(), "at least one")
}

func TestNewFilteredTransactionRejectsMismatchedNonces(t *testing.T) {
	wtx, _, _ := testRecord(t)
	ftx, err := NewFilteredTransaction(wtx, revealGroups(OutputsGroup))
	require.NoError(t, err)

	broken := ftx.FilteredComponentGroups()
	broken[0].Nonces = broken[0].Nonces[:1]
	_, err = newFilteredTransaction(ftx.ID(), ftx.GroupHashes(), broken, wire.DefaultContext())
	assert.Error(t, err)
}

func TestNewFilteredTransactionRejectsUnorderedGroups(t *testing.T) {
	wtx, _, _ := testRecord(t)
	ftx, err := NewFilteredTransaction(wtx, revealGroups(InputsGroup, OutputsGroup))
	require.NoError(t, err)

	groups := ftx.FilteredComponentGroups()
	require.Len(t, groups, 2)
	groups[0], groups[1] = groups[1], groups[0]
	_, err = newFilteredTransaction(ftx.ID(), ftx.GroupHashes(), groups, wire.DefaultContext())
	assert.Error(t, err)
}

func TestFilteredViewIsDetachedFromSource(t *testing.T) {
	wtx, _, _ := testRecord(t)

	ftx, err := NewFilteredTransaction(wtx, revealGroups(InputsGroup))
	require.NoError(t, err)
	id := wtx.ID()
	require.NoError(t, ftx.Verify())

	// Recreating the record must not be needed for verification.
	wtx = nil
	_ = wtx
	assert.Equal(t, id, ftx.ID())
	assert.NoError(t, ftx.Verify())
}

func TestFilteredSingletonAccessors(t *testing.T) {
	wtx, _, _ := testRecord(t)

	ftx, err := NewFilteredTransaction(wtx, revealGroups(NotaryGroup, TimeWindowGroup))
	require.NoError(t, err)

	notary, err := ftx.Notary()
	require.NoError(t, err)
	require.NotNil(t, notary)
	assert.Equal(t, "Notary", notary.Name)

	window, err := ftx.TimeWindow()
	require.NoError(t, err)
	require.NotNil(t, window)
	assert.True(t, window.Contains(1_700_000_100))

	hidden, err := NewFilteredTransaction(wtx, revealNothing)
	require.NoError(t, err)
	notary, err = hidden.Notary()
	require.NoError(t, err)
	assert.Nil(t, notary, "a hidden notary reads as absent")
}

func TestCheckVisibilityWithTamperedIDFails(t *testing.T) {
	wtx, _, _ := testRecord(t)

	ftx, err := NewFilteredTransaction(wtx, revealGroups(InputsGroup))
	require.NoError(t, err)
	ftx.id[0] ^= 0x01

	err = ftx.CheckAllComponentsVisible(InputsGroup)
	var visibility *VisibilityError
	require.ErrorAs(t, err, &visibility,
		"full-visibility proof must recheck the binding to the id")
}
