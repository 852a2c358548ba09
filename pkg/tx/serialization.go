// Record serialization.
//
// File format: "TFTX" (4 bytes) || version (u32le) || kind (1 byte) ||
// kind-specific body. Kind 0x01 is a full record, 0x02 a filtered
// record. Sequences carry LEB128 varint length prefixes; integers are
// little-endian. The component blobs themselves are copied verbatim -
// their bytes are what the hash commitments bind, so this layer never
// re-encodes them.
package tx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/suffix-labs/tearoff/pkg/crypto"
	"github.com/suffix-labs/tearoff/pkg/merkle"
	"github.com/suffix-labs/tearoff/pkg/wire"
)

const (
	// MagicBytes opens every serialized record.
	MagicBytes = "TFTX"
	// FormatVersion1 is the only format version so far.
	FormatVersion1 = uint32(1)

	kindWire     = byte(0x01)
	kindFiltered = byte(0x02)

	// maxSeqLen bounds varint-prefixed sequence counts during parsing.
	maxSeqLen = 1 << 20
)

// SerializeWire encodes a full record.
func SerializeWire(wtx *WireTransaction) []byte {
	buf := new(bytes.Buffer)
	writeHeader(buf, kindWire)

	salt := wtx.PrivacySalt()
	buf.Write(salt[:])

	writeVarInt(buf, uint64(len(wtx.groups)))
	for _, group := range wtx.groups {
		writeVarInt(buf, uint64(group.Index))
		writeVarInt(buf, uint64(len(group.Components)))
		for _, component := range group.Components {
			writeVarInt(buf, uint64(len(component)))
			buf.Write(component)
		}
	}
	return buf.Bytes()
}

// ParseWire decodes a full record, recomputing its entire commitment
// structure from the groups and salt. The context supplies attachment
// class resolution for later typed reads.
func ParseWire(data []byte, ctx *wire.Context) (*WireTransaction, error) {
	r, err := readHeader(data, kindWire)
	if err != nil {
		return nil, err
	}

	var rawSalt [crypto.HashSize]byte
	if _, err := io.ReadFull(r, rawSalt[:]); err != nil {
		return nil, parseErr("truncated privacy salt", err)
	}
	salt, err := crypto.PrivacySaltFromBytes(rawSalt[:])
	if err != nil {
		return nil, parseErr("invalid privacy salt", err)
	}

	groups, err := readGroups(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, parseErr(fmt.Sprintf("%d trailing bytes", r.Len()), nil)
	}

	return NewWireTransaction(groups, salt, ctx)
}

// SerializeFiltered encodes a filtered record.
func SerializeFiltered(ftx *FilteredTransaction) ([]byte, error) {
	buf := new(bytes.Buffer)
	writeHeader(buf, kindFiltered)

	buf.Write(ftx.id[:])

	writeVarInt(buf, uint64(len(ftx.groupHashes)))
	for _, h := range ftx.groupHashes {
		buf.Write(h[:])
	}

	writeVarInt(buf, uint64(len(ftx.filteredGroups)))
	for i := range ftx.filteredGroups {
		fg := &ftx.filteredGroups[i]
		writeVarInt(buf, uint64(fg.Index))
		writeVarInt(buf, uint64(len(fg.Components)))
		for _, component := range fg.Components {
			writeVarInt(buf, uint64(len(component)))
			buf.Write(component)
		}
		writeVarInt(buf, uint64(len(fg.Nonces)))
		for _, nonce := range fg.Nonces {
			buf.Write(nonce[:])
		}
		tree, err := fg.PartialTree.MarshalBinary()
		if err != nil {
			return nil, err
		}
		writeVarInt(buf, uint64(len(tree)))
		buf.Write(tree)
	}
	return buf.Bytes(), nil
}

// ParseFiltered decodes a filtered record. Parsing checks structure
// only; call Verify on the result before trusting it.
func ParseFiltered(data []byte, ctx *wire.Context) (*FilteredTransaction, error) {
	r, err := readHeader(data, kindFiltered)
	if err != nil {
		return nil, err
	}

	var id crypto.SecureHash
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return nil, parseErr("truncated record id", err)
	}

	hashCount, err := readCount(r, "group hash count")
	if err != nil {
		return nil, err
	}
	groupHashes := make([]crypto.SecureHash, hashCount)
	for i := range groupHashes {
		if _, err := io.ReadFull(r, groupHashes[i][:]); err != nil {
			return nil, parseErr("truncated group hash", err)
		}
	}

	groupCount, err := readCount(r, "filtered group count")
	if err != nil {
		return nil, err
	}
	filteredGroups := make([]FilteredComponentGroup, 0, groupCount)
	for i := uint64(0); i < groupCount; i++ {
		index, err := readCount(r, "group discriminant")
		if err != nil {
			return nil, err
		}

		componentCount, err := readCount(r, "component count")
		if err != nil {
			return nil, err
		}
		components := make([][]byte, componentCount)
		for j := range components {
			components[j], err = readBlob(r)
			if err != nil {
				return nil, err
			}
		}

		nonceCount, err := readCount(r, "nonce count")
		if err != nil {
			return nil, err
		}
		nonces := make([]crypto.SecureHash, nonceCount)
		for j := range nonces {
			if _, err := io.ReadFull(r, nonces[j][:]); err != nil {
				return nil, parseErr("truncated nonce", err)
			}
		}

		treeBytes, err := readBlob(r)
		if err != nil {
			return nil, err
		}
		tree := new(merkle.PartialTree)
		if err := tree.UnmarshalBinary(treeBytes); err != nil {
			return nil, parseErr("invalid partial tree", err)
		}

		filteredGroups = append(filteredGroups, FilteredComponentGroup{
			ComponentGroup: ComponentGroup{
				Index:      GroupIndex(index),
				Components: components,
			},
			Nonces:      nonces,
			PartialTree: tree,
		})
	}

	if r.Len() != 0 {
		return nil, parseErr(fmt.Sprintf("%d trailing bytes", r.Len()), nil)
	}

	return newFilteredTransaction(id, groupHashes, filteredGroups, ctx)
}

// Header and primitive helpers.

func writeHeader(buf *bytes.Buffer, kind byte) {
	buf.WriteString(MagicBytes)
	var version [4]byte
	binary.LittleEndian.PutUint32(version[:], FormatVersion1)
	buf.Write(version[:])
	buf.WriteByte(kind)
}

func readHeader(data []byte, wantKind byte) (*bytes.Reader, error) {
	if len(data) < 9 {
		return nil, parseErr("data too short", nil)
	}
	if string(data[0:4]) != MagicBytes {
		return nil, parseErr("invalid magic bytes", nil)
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != FormatVersion1 {
		return nil, parseErr(fmt.Sprintf("unsupported format version %d", version), nil)
	}
	if data[8] != wantKind {
		return nil, parseErr(fmt.Sprintf("unexpected record kind 0x%02x", data[8]), nil)
	}
	return bytes.NewReader(data[9:]), nil
}

func writeVarInt(buf *bytes.Buffer, n uint64) {
	var scratch [binary.MaxVarintLen64]byte
	buf.Write(scratch[:binary.PutUvarint(scratch[:], n)])
}

func readCount(r *bytes.Reader, what string) (uint64, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, parseErr("truncated "+what, err)
	}
	if n > maxSeqLen {
		return 0, parseErr(fmt.Sprintf("%s %d exceeds limit", what, n), nil)
	}
	return n, nil
}

func readBlob(r *bytes.Reader) ([]byte, error) {
	length, err := readCount(r, "field length")
	if err != nil {
		return nil, err
	}
	blob := make([]byte, length)
	if _, err := io.ReadFull(r, blob); err != nil {
		return nil, parseErr("truncated field", err)
	}
	return blob, nil
}

func readGroups(r *bytes.Reader) ([]ComponentGroup, error) {
	groupCount, err := readCount(r, "group count")
	if err != nil {
		return nil, err
	}
	groups := make([]ComponentGroup, 0, groupCount)
	for i := uint64(0); i < groupCount; i++ {
		index, err := readCount(r, "group discriminant")
		if err != nil {
			return nil, err
		}
		componentCount, err := readCount(r, "component count")
		if err != nil {
			return nil, err
		}
		components := make([][]byte, componentCount)
		for j := range components {
			components[j], err = readBlob(r)
			if err != nil {
				return nil, err
			}
		}
		groups = append(groups, ComponentGroup{Index: GroupIndex(index), Components: components})
	}
	return groups, nil
}

func parseErr(message string, cause error) error {
	return &MalformedTransactionError{Group: -1, Index: -1, Message: "parse: " + message, Cause: cause}
}
