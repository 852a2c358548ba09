// Package wire defines the typed component model of a record and its
// deterministic binary encoding.
//
// A record stores its parts as opaque serialized blobs grouped by kind;
// this package is the serialization service that turns those blobs back
// into typed values. The component model is a closed set of variants,
// one per known group kind, plus an opaque passthrough for
// forward-compatible unknown groups.
//
// All encodings are deterministic: little-endian integers, LEB128 varint
// length prefixes, fixed field order. Determinism matters because the
// hash commitments are taken over these exact bytes.
package wire

import (
	"github.com/suffix-labs/tearoff/pkg/crypto"
)

// StateRef points at one output of a previous record: the record id plus
// the output's position. Used by the inputs and references groups.
type StateRef struct {
	TxID  crypto.SecureHash // id of the record that produced the state
	Index uint32            // position within that record's outputs
}

// ReferenceStateRef wraps a StateRef from the references group.
// Filtering predicates receive this wrapper instead of a bare StateRef
// so reference states can be revealed independently of inputs.
type ReferenceStateRef struct {
	StateRef
}

// OutputState is one state produced by a record. The contract name is
// resolved against the deserialization context's attachment registry;
// the data payload stays opaque to this layer.
type OutputState struct {
	ContractName string // governing contract, resolved via attachments
	Data         []byte // contract-defined state payload
}

// CommandData is the payload half of a command. Signers live in a
// separate group and are paired back by position (see pkg/tx).
type CommandData struct {
	Name    string // command class, resolved via attachments
	Payload []byte // command-defined arguments
}

// SignerList is one component of the signers group: the ordered set of
// keys that must sign for the command at the same original position.
type SignerList []*crypto.PublicKey

// AttachmentID identifies an attachment by the hash of its contents.
type AttachmentID crypto.SecureHash

// String returns the hex encoding of the attachment id.
func (a AttachmentID) String() string {
	return crypto.SecureHash(a).String()
}

// Party is a named key holder; the notary group holds at most one.
type Party struct {
	Name string
	Key  *crypto.PublicKey
}

// String renders the party as name plus key fingerprint.
func (p Party) String() string {
	return p.Name + " (" + p.Key.Fingerprint() + ")"
}

// TimeWindow constrains when a record may be notarised. Either bound may
// be open; at least one is set. Times are unix seconds.
type TimeWindow struct {
	From  *int64 // inclusive lower bound, nil = open
	Until *int64 // exclusive upper bound, nil = open
}

// Contains reports whether the given unix time falls inside the window.
func (w TimeWindow) Contains(unix int64) bool {
	if w.From != nil && unix < *w.From {
		return false
	}
	if w.Until != nil && unix >= *w.Until {
		return false
	}
	return true
}

// OpaqueComponent is one component of an unknown (forward-compatible)
// group, preserved byte for byte. Filtering predicates receive these for
// groups this version of the library does not understand.
type OpaqueComponent struct {
	Group int
	Bytes []byte
}
