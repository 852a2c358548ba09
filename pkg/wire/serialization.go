package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/suffix-labs/tearoff/pkg/crypto"
)

// maxFieldLen bounds varint-prefixed fields so a corrupt length prefix
// cannot drive a huge allocation.
const maxFieldLen = 1 << 20

// Encoding helpers (LEB128 varints, varint-prefixed byte strings).

func encodeVarInt(w io.Writer, n uint64) {
	for {
		b := uint8(n & 0x7F)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		w.Write([]byte{b})
		if n == 0 {
			return
		}
	}
}

func encodeBytes(w io.Writer, b []byte) {
	encodeVarInt(w, uint64(len(b)))
	w.Write(b)
}

func encodeString(w io.Writer, s string) {
	encodeBytes(w, []byte(s))
}

func decodeVarInt(r *bytes.Reader) (uint64, error) {
	var value uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, errors.New("truncated varint")
		}
		if shift >= 64 {
			return 0, errors.New("varint overflows 64 bits")
		}
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
	}
}

func decodeBytes(r *bytes.Reader) ([]byte, error) {
	length, err := decodeVarInt(r)
	if err != nil {
		return nil, err
	}
	if length > maxFieldLen {
		return nil, fmt.Errorf("field length %d exceeds limit", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.New("truncated byte field")
	}
	return buf, nil
}

func decodeString(r *bytes.Reader) (string, error) {
	b, err := decodeBytes(r)
	return string(b), err
}

func decodeHash(r *bytes.Reader) (crypto.SecureHash, error) {
	var h crypto.SecureHash
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return h, errors.New("truncated hash")
	}
	return h, nil
}

func decodeU32(r *bytes.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.New("truncated u32")
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, nil
}

func encodeU32(w io.Writer, v uint32) {
	w.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func encodeI64(w io.Writer, v int64) {
	u := uint64(v)
	w.Write([]byte{
		byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24),
		byte(u >> 32), byte(u >> 40), byte(u >> 48), byte(u >> 56),
	})
}

func decodeI64(r *bytes.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.New("truncated i64")
	}
	var u uint64
	for i := 7; i >= 0; i-- {
		u = u<<8 | uint64(buf[i])
	}
	return int64(u), nil
}

// finish asserts the component was consumed exactly. Trailing bytes mean
// the blob does not encode the claimed kind.
func finish(r *bytes.Reader) error {
	if r.Len() != 0 {
		return fmt.Errorf("%d trailing bytes after component", r.Len())
	}
	return nil
}

// StateRef: txid (32) || index (u32le)

// EncodeStateRef serializes a state reference.
func EncodeStateRef(ref StateRef) []byte {
	buf := new(bytes.Buffer)
	buf.Write(ref.TxID[:])
	encodeU32(buf, ref.Index)
	return buf.Bytes()
}

// DecodeStateRef deserializes a state reference.
func DecodeStateRef(data []byte) (StateRef, error) {
	r := bytes.NewReader(data)
	txid, err := decodeHash(r)
	if err != nil {
		return StateRef{}, err
	}
	index, err := decodeU32(r)
	if err != nil {
		return StateRef{}, err
	}
	if err := finish(r); err != nil {
		return StateRef{}, err
	}
	return StateRef{TxID: txid, Index: index}, nil
}

// OutputState: contract name (varint string) || data (varint bytes)

// EncodeOutputState serializes an output state.
func EncodeOutputState(s OutputState) []byte {
	buf := new(bytes.Buffer)
	encodeString(buf, s.ContractName)
	encodeBytes(buf, s.Data)
	return buf.Bytes()
}

// DecodeOutputState deserializes an output state. The contract name must
// resolve against the context's attachment registry.
func DecodeOutputState(data []byte, ctx *Context) (OutputState, error) {
	r := bytes.NewReader(data)
	name, err := decodeString(r)
	if err != nil {
		return OutputState{}, err
	}
	payload, err := decodeBytes(r)
	if err != nil {
		return OutputState{}, err
	}
	if err := finish(r); err != nil {
		return OutputState{}, err
	}
	if err := ctx.resolveClass("contract", name); err != nil {
		return OutputState{}, err
	}
	return OutputState{ContractName: name, Data: payload}, nil
}

// CommandData: command name (varint string) || payload (varint bytes)

// EncodeCommandData serializes a command payload.
func EncodeCommandData(c CommandData) []byte {
	buf := new(bytes.Buffer)
	encodeString(buf, c.Name)
	encodeBytes(buf, c.Payload)
	return buf.Bytes()
}

// DecodeCommandData deserializes a command payload. The command name
// must resolve against the context's attachment registry.
func DecodeCommandData(data []byte, ctx *Context) (CommandData, error) {
	r := bytes.NewReader(data)
	name, err := decodeString(r)
	if err != nil {
		return CommandData{}, err
	}
	payload, err := decodeBytes(r)
	if err != nil {
		return CommandData{}, err
	}
	if err := finish(r); err != nil {
		return CommandData{}, err
	}
	if err := ctx.resolveClass("command", name); err != nil {
		return CommandData{}, err
	}
	return CommandData{Name: name, Payload: payload}, nil
}

// SignerList: count (varint) || compressed keys (33 bytes each)

// EncodeSignerList serializes an ordered signer set.
func EncodeSignerList(signers SignerList) []byte {
	buf := new(bytes.Buffer)
	encodeVarInt(buf, uint64(len(signers)))
	for _, key := range signers {
		buf.Write(key.Bytes())
	}
	return buf.Bytes()
}

// DecodeSignerList deserializes an ordered signer set.
func DecodeSignerList(data []byte) (SignerList, error) {
	r := bytes.NewReader(data)
	count, err := decodeVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > maxFieldLen/crypto.CompressedPubKeySize {
		return nil, fmt.Errorf("signer count %d exceeds limit", count)
	}
	signers := make(SignerList, 0, count)
	for i := uint64(0); i < count; i++ {
		var raw [crypto.CompressedPubKeySize]byte
		if _, err := io.ReadFull(r, raw[:]); err != nil {
			return nil, fmt.Errorf("truncated signer key %d", i)
		}
		key, err := crypto.ParsePublicKey(raw[:])
		if err != nil {
			return nil, fmt.Errorf("signer key %d: %w", i, err)
		}
		signers = append(signers, key)
	}
	if err := finish(r); err != nil {
		return nil, err
	}
	return signers, nil
}

// AttachmentID: 32 raw bytes

// EncodeAttachmentID serializes an attachment id.
func EncodeAttachmentID(id AttachmentID) []byte {
	out := make([]byte, crypto.HashSize)
	copy(out, id[:])
	return out
}

// DecodeAttachmentID deserializes an attachment id.
func DecodeAttachmentID(data []byte) (AttachmentID, error) {
	if len(data) != crypto.HashSize {
		return AttachmentID{}, fmt.Errorf("attachment id must be %d bytes, got %d", crypto.HashSize, len(data))
	}
	var id AttachmentID
	copy(id[:], data)
	return id, nil
}

// Party: name (varint string) || compressed key (33 bytes)

// EncodeParty serializes a party.
func EncodeParty(p Party) []byte {
	buf := new(bytes.Buffer)
	encodeString(buf, p.Name)
	buf.Write(p.Key.Bytes())
	return buf.Bytes()
}

// DecodeParty deserializes a party.
func DecodeParty(data []byte) (Party, error) {
	r := bytes.NewReader(data)
	name, err := decodeString(r)
	if err != nil {
		return Party{}, err
	}
	var raw [crypto.CompressedPubKeySize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Party{}, errors.New("truncated party key")
	}
	key, err := crypto.ParsePublicKey(raw[:])
	if err != nil {
		return Party{}, err
	}
	if err := finish(r); err != nil {
		return Party{}, err
	}
	return Party{Name: name, Key: key}, nil
}

// TimeWindow: flags (1 byte: bit0 = from set, bit1 = until set)
// || from (i64le, if set) || until (i64le, if set)

// EncodeTimeWindow serializes a time window.
func EncodeTimeWindow(w TimeWindow) []byte {
	buf := new(bytes.Buffer)
	var flags byte
	if w.From != nil {
		flags |= 0x01
	}
	if w.Until != nil {
		flags |= 0x02
	}
	buf.WriteByte(flags)
	if w.From != nil {
		encodeI64(buf, *w.From)
	}
	if w.Until != nil {
		encodeI64(buf, *w.Until)
	}
	return buf.Bytes()
}

// DecodeTimeWindow deserializes a time window. A window with neither
// bound set is rejected: it would constrain nothing.
func DecodeTimeWindow(data []byte) (TimeWindow, error) {
	r := bytes.NewReader(data)
	flags, err := r.ReadByte()
	if err != nil {
		return TimeWindow{}, errors.New("truncated time window")
	}
	if flags&^byte(0x03) != 0 {
		return TimeWindow{}, fmt.Errorf("unknown time window flags 0x%02x", flags)
	}
	if flags == 0 {
		return TimeWindow{}, errors.New("time window must set at least one bound")
	}

	var window TimeWindow
	if flags&0x01 != 0 {
		from, err := decodeI64(r)
		if err != nil {
			return TimeWindow{}, err
		}
		window.From = &from
	}
	if flags&0x02 != 0 {
		until, err := decodeI64(r)
		if err != nil {
			return TimeWindow{}, err
		}
		window.Until = &until
	}
	if window.From != nil && window.Until != nil && *window.From >= *window.Until {
		return TimeWindow{}, errors.New("time window bounds are inverted")
	}
	if err := finish(r); err != nil {
		return TimeWindow{}, err
	}
	return window, nil
}
