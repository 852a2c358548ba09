package tx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/tearoff/pkg/wire"
)

func testContext() *wire.Context {
	return wire.NewContext(testContract, "Transfer", "Issue", "Burn")
}

func TestWireRoundTrip(t *testing.T) {
	wtx, _, _ := testRecord(t)

	data := SerializeWire(wtx)
	assert.True(t, bytes.HasPrefix(data, []byte(MagicBytes)))

	parsed, err := ParseWire(data, testContext())
	require.NoError(t, err)

	assert.Equal(t, wtx.ID(), parsed.ID(), "the parsed record recomputes the same commitment")
	assert.Equal(t, wtx.PrivacySalt(), parsed.PrivacySalt())
	assert.Equal(t, wtx.ComponentGroups(), parsed.ComponentGroups())

	commands, err := parsed.Commands()
	require.NoError(t, err)
	assert.Len(t, commands, 3)
}

func TestWireSerializationIsStable(t *testing.T) {
	wtx, _, _ := testRecord(t)

	first := SerializeWire(wtx)
	parsed, err := ParseWire(first, testContext())
	require.NoError(t, err)
	second := SerializeWire(parsed)
	assert.Equal(t, first, second)
}

func TestFilteredRoundTrip(t *testing.T) {
	wtx, keyA, _ := testRecord(t)

	ftx, err := NewFilteredTransaction(wtx, revealCommandsNamed("Transfer", "Issue", "Burn"))
	require.NoError(t, err)

	data, err := SerializeFiltered(ftx)
	require.NoError(t, err)

	parsed, err := ParseFiltered(data, testContext())
	require.NoError(t, err)

	assert.Equal(t, ftx.ID(), parsed.ID())
	assert.Equal(t, ftx.GroupHashes(), parsed.GroupHashes())
	require.NoError(t, parsed.Verify(), "a parsed view must still prove its binding")

	commands, err := parsed.Commands()
	require.NoError(t, err)
	assert.Len(t, commands, 3)
	assert.NoError(t, parsed.CheckCommandVisibility(keyA.PublicKey()))
}

func TestFilteredRoundTripEmptyView(t *testing.T) {
	wtx, _, _ := testRecord(t)

	ftx, err := NewFilteredTransaction(wtx, revealNothing)
	require.NoError(t, err)

	data, err := SerializeFiltered(ftx)
	require.NoError(t, err)

	parsed, err := ParseFiltered(data, wire.DefaultContext())
	require.NoError(t, err)
	assert.Empty(t, parsed.FilteredComponentGroups())
	assert.NoError(t, parsed.Verify())
}

func TestParseFilteredWithDefaultContextStillVerifies(t *testing.T) {
	// Verification never decodes components, so the default context is
	// enough even when the view carries outputs and commands.
	wtx, _, _ := testRecord(t)
	ftx, err := NewFilteredTransaction(wtx, revealEverything)
	require.NoError(t, err)

	data, err := SerializeFiltered(ftx)
	require.NoError(t, err)

	parsed, err := ParseFiltered(data, wire.DefaultContext())
	require.NoError(t, err)
	assert.NoError(t, parsed.Verify())

	// Typed reads of attachment-aware kinds do need the classes.
	_, err = parsed.Outputs()
	assert.Error(t, err)
}

func TestParseFilteredDetectsTamperedPayload(t *testing.T) {
	wtx, _, _ := testRecord(t)
	ftx, err := NewFilteredTransaction(wtx, revealGroups(InputsGroup))
	require.NoError(t, err)

	data, err := SerializeFiltered(ftx)
	require.NoError(t, err)

	// Flip one byte of the first revealed component. The layout puts it
	// after the header, id and group hash vector; locate it by content.
	component := ftx.FilteredComponentGroups()[0].Components[0]
	offset := bytes.Index(data, component)
	require.GreaterOrEqual(t, offset, 0)
	data[offset] ^= 0x01

	parsed, err := ParseFiltered(data, wire.DefaultContext())
	require.NoError(t, err, "structure is intact, only the proof is broken")
	assert.Error(t, parsed.Verify())
}

func TestParseRejectsBadHeader(t *testing.T) {
	wtx, _, _ := testRecord(t)
	ftx, err := NewFilteredTransaction(wtx, revealNothing)
	require.NoError(t, err)
	data, err := SerializeFiltered(ftx)
	require.NoError(t, err)

	short := data[:5]
	_, err = ParseFiltered(short, wire.DefaultContext())
	assert.Error(t, err, "short input")

	badMagic := append([]byte{}, data...)
	copy(badMagic, "NOPE")
	_, err = ParseFiltered(badMagic, wire.DefaultContext())
	assert.Error(t, err, "bad magic")

	badVersion := append([]byte{}, data...)
	badVersion[4] = 0xFF
	_, err = ParseFiltered(badVersion, wire.DefaultContext())
	assert.Error(t, err, "unknown version")

	_, err = ParseWire(data, wire.DefaultContext())
	assert.Error(t, err, "filtered bytes are not a full record")

	trailing := append(append([]byte{}, data...), 0x00)
	_, err = ParseFiltered(trailing, wire.DefaultContext())
	assert.Error(t, err, "trailing bytes")
}

func TestParseWireRejectsZeroSalt(t *testing.T) {
	wtx, _, _ := testRecord(t)
	data := SerializeWire(wtx)

	// The salt sits immediately after the 9-byte header.
	for i := 9; i < 9+32; i++ {
		data[i] = 0
	}
	_, err := ParseWire(data, wire.DefaultContext())
	assert.Error(t, err)
}

func TestParseFilteredRejectsTruncation(t *testing.T) {
	wtx, _, _ := testRecord(t)
	ftx, err := NewFilteredTransaction(wtx, revealGroups(OutputsGroup))
	require.NoError(t, err)
	data, err := SerializeFiltered(ftx)
	require.NoError(t, err)

	for _, cut := range []int{10, 30, len(data) / 2, len(data) - 1} {
		_, err := ParseFiltered(data[:cut], wire.DefaultContext())
		assert.Error(t, err, "truncated at %d", cut)
	}
}
