// Package tx error types.
//
// Three kinds, all non-retryable: they report malformed input or a
// failed cryptographic proof, never a transient condition. All are
// propagated as values to the caller; nothing is recovered locally.
package tx

import "fmt"

// MalformedTransactionError reports a structural problem in a record:
// undeserializable component bytes, singleton-group cardinality
// violations, or a command/signer pairing that cannot be reconstructed.
type MalformedTransactionError struct {
	Group   GroupIndex // offending group
	Index   int        // offending component position, -1 when not applicable
	Message string
	Cause   error // underlying error (if any)
}

func (e *MalformedTransactionError) Error() string {
	position := "record"
	if e.Group >= 0 {
		position = fmt.Sprintf("group %s", e.Group)
		if e.Index >= 0 {
			position = fmt.Sprintf("group %s, component %d", e.Group, e.Index)
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("malformed transaction [%s]: %s: %v", position, e.Message, e.Cause)
	}
	return fmt.Sprintf("malformed transaction [%s]: %s", position, e.Message)
}

func (e *MalformedTransactionError) Unwrap() error {
	return e.Cause
}

// VerificationError reports a failed structural proof during Verify: a
// Merkle root mismatch at either level, a filtered group with no
// recorded hash, or an empty group hash vector.
type VerificationError struct {
	Group   int // offending group discriminant, -1 for the top level
	Message string
}

func (e *VerificationError) Error() string {
	if e.Group < 0 {
		return fmt.Sprintf("verification failed: %s", e.Message)
	}
	return fmt.Sprintf("verification failed [group %s]: %s", GroupIndex(e.Group), e.Message)
}

// VisibilityError reports partial disclosure where full disclosure was
// required, or a signed-command count mismatch for a key. Distinct from
// VerificationError so callers can tell "forged view" from "valid view
// that hides too much".
type VisibilityError struct {
	Group   int // offending group discriminant, -1 when record-wide
	Message string
}

func (e *VisibilityError) Error() string {
	if e.Group < 0 {
		return fmt.Sprintf("visibility check failed: %s", e.Message)
	}
	return fmt.Sprintf("visibility check failed [group %s]: %s", GroupIndex(e.Group), e.Message)
}
