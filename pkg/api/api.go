// Package api provides the high-level public API for building and
// verifying filtered records.
//
// This is the main entry point for applications using the tearoff
// library:
//
//  1. BuildFiltered - derives a filtered view of a full record
//  2. Verify - proves a filtered view is bound to its record id
//  3. CheckAllComponentsVisible - proves a group was disclosed in full
//  4. CheckCommandVisibility - proves every command a key must sign is visible
//  5. SerializeFiltered / ParseFiltered - binary encoding/decoding
//
// The functions delegate to pkg/tx; applications that need the full
// record builder or the typed group accessors use pkg/tx directly.
package api

import (
	"github.com/suffix-labs/tearoff/pkg/crypto"
	"github.com/suffix-labs/tearoff/pkg/tx"
	"github.com/suffix-labs/tearoff/pkg/wire"
)

// BuildFiltered derives a filtered view of a full record. The predicate
// supplies the disclosure policy; the library enforces the
// commands-imply-signers invariant on top of it.
func BuildFiltered(wtx *tx.WireTransaction, include tx.Predicate) (*tx.FilteredTransaction, error) {
	return tx.NewFilteredTransaction(wtx, include)
}

// Verify proves the filtered record is a faithful partial view of the
// record identified by its id. Returns a *tx.VerificationError on
// failure.
func Verify(ftx *tx.FilteredTransaction) error {
	return ftx.Verify()
}

// CheckAllComponentsVisible proves the given group was disclosed in
// full. Returns a *tx.VisibilityError on failure.
func CheckAllComponentsVisible(ftx *tx.FilteredTransaction, group tx.GroupIndex) error {
	return ftx.CheckAllComponentsVisible(group)
}

// CheckCommandVisibility proves every command the record requires the
// key to sign is visible in the filtered view. Returns a
// *tx.VisibilityError on failure.
func CheckCommandVisibility(ftx *tx.FilteredTransaction, key *crypto.PublicKey) error {
	return ftx.CheckCommandVisibility(key)
}

// SerializeFiltered encodes a filtered record for transport.
func SerializeFiltered(ftx *tx.FilteredTransaction) ([]byte, error) {
	return tx.SerializeFiltered(ftx)
}

// ParseFiltered decodes a filtered record. The context supplies
// attachment class resolution for typed reads; verification itself
// needs none, so wire.DefaultContext() is enough to parse and Verify.
func ParseFiltered(data []byte, ctx *wire.Context) (*tx.FilteredTransaction, error) {
	return tx.ParseFiltered(data, ctx)
}
