package domain

import (
	"errors"
	"fmt"
)

// DomainError is a persistence-layer error with a structured code. Codes are
// stable across releases and follow the format KS-<AREA>-<NNNN>; callers match
// on the code (via errors.Is against the sentinel, or IsDomainError), never on
// the message text.
type DomainError struct {
	Code    string // Stable error code (e.g., "KS-SLOT-4000")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches two DomainErrors by code, so errors.Is(err, ErrCrypto) holds for
// any derived copy regardless of details or cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithDetailsf returns a copy of the error with formatted details.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Slot Errors (SLOT)
// ============================================================================

var (
	// ErrInvalidSlot indicates a slot index outside the configured range.
	// The operation is rejected before any I/O happens.
	ErrInvalidSlot = NewDomainError("KS-SLOT-4000", "slot index out of range")

	// ErrSlotEmpty indicates no save artifact exists at the requested slot.
	ErrSlotEmpty = NewDomainError("KS-SLOT-4040", "slot is empty")

	// ErrSlotBusy indicates another operation holds the slot. Only reported
	// by non-blocking probes; regular operations queue on the slot guard.
	ErrSlotBusy = NewDomainError("KS-SLOT-4090", "slot operation already in progress")
)

// ============================================================================
// Codec Errors (CODEC)
// ============================================================================

var (
	// ErrSerialization indicates the artifact body is not well-formed
	// structured data, or a record could not be encoded.
	ErrSerialization = NewDomainError("KS-CODEC-4001", "serialization failed")

	// ErrCompression indicates a truncated or non-conformant compressed
	// buffer, or a compressor failure on encode.
	ErrCompression = NewDomainError("KS-CODEC-4002", "compression failed")

	// ErrCrypto indicates a wrong key, a truncated ciphertext, or a
	// ciphertext whose authentication tag does not verify.
	ErrCrypto = NewDomainError("KS-CODEC-4003", "encryption failed")

	// ErrKeyConfig indicates unusable key material configuration
	// (no passphrase or key, key of invalid length, unknown KDF).
	ErrKeyConfig = NewDomainError("KS-CODEC-4004", "invalid key configuration")
)

// ============================================================================
// Version Errors (VER)
// ============================================================================

var (
	// ErrVersionMismatch indicates the artifact was produced by a different
	// build. It is a warning condition: loads proceed best-effort and report
	// it alongside the result, never instead of it.
	ErrVersionMismatch = NewDomainError("KS-VER-4090", "save format version mismatch")
)

// ============================================================================
// Backup and Repair Errors (BACK)
// ============================================================================

var (
	// ErrNoBackups indicates no backup entries exist for the slot.
	ErrNoBackups = NewDomainError("KS-BACK-4040", "no backups available")

	// ErrNoValidBackup indicates backups exist but none survived a decode.
	ErrNoValidBackup = NewDomainError("KS-BACK-4041", "no decodable backup found")

	// ErrRepairFailed indicates a repair attempt did not produce a slot that
	// passes validation.
	ErrRepairFailed = NewDomainError("KS-BACK-5001", "repair failed")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrIO indicates a disk or file failure. Surfaced to the caller as-is;
	// the engine never retries I/O on its own.
	ErrIO = NewDomainError("KS-SYS-5001", "storage i/o error")

	// ErrConfigInvalid indicates the engine configuration failed verification.
	ErrConfigInvalid = NewDomainError("KS-SYS-4000", "invalid configuration")

	// ErrClosed indicates the component has been shut down.
	ErrClosed = NewDomainError("KS-SYS-5030", "engine closed")
)
