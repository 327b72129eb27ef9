// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"bytes"
	"fmt"

	"golang.org/x/xerrors"
)

const (
	// AnyCommandCode is used to match any command code when using
	// {As,Is}TPMError, {As,Is}TPMHandleError, {As,Is}TPMParameterError,
	// {As,Is}TPMSessionError and {As,Is}TPMWarning.
	AnyCommandCode CommandCode = 0xc0000000

	// AnyErrorCode is used to match any error code when using
	// {As,Is}TPMError, {As,Is}TPMHandleError, {As,Is}TPMParameterError
	// and {As,Is}TPMSessionError.
	AnyErrorCode ErrorCode = 0x100

	// AnyHandleIndex is used to match any handle when using
	// {As,Is}TPMHandleError.
	AnyHandleIndex int = -1

	// AnyParameterIndex is used to match any parameter when using
	// {As,Is}TPMParameterError.
	AnyParameterIndex int = -1

	// AnySessionIndex is used to match any session when using
	// {As,Is}TPMSessionError.
	AnySessionIndex int = -1

	// AnyWarningCode is used to match any warning code when using
	// {As,Is}TPMWarning.
	AnyWarningCode WarningCode = 0x80
)

// InvalidResponseError is returned from any TPMContext method that executes
// a TPM command if the TPM's response violates a structural invariant of the
// protocol. An invalid response could be one that is shorter than the
// response header, one with an invalid responseSize field, a payload that
// unmarshals incorrectly because of an invalid union selector value or a
// boolean flag octet outside of {0, 1}, or an invalid response
// authorization.
//
// Errors of this type indicate a transport or firmware bug rather than a
// command failure, and are not retryable. Any sessions used in the command
// that caused this error should be considered invalid.
type InvalidResponseError struct {
	Command CommandCode
	msg     string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("TPM returned an invalid response for command %s: %v", e.Command, e.msg)
}

// InvalidAuthResponseError is returned from any TPMContext method that
// executes a TPM command if the response authorization for a session is
// invalid.
type InvalidAuthResponseError struct {
	Command CommandCode
	msg     string
}

func (e *InvalidAuthResponseError) Error() string {
	return fmt.Sprintf("TPM returned an invalid auth response for command %s: %v", e.Command, e.msg)
}

// TctiError is returned from any TPMContext method if the underlying TCTI
// returns an error.
type TctiError struct {
	Op  string // The operation that caused the error
	err error
}

func (e *TctiError) Error() string {
	return fmt.Sprintf("cannot complete %s operation on TCTI: %v", e.Op, e.err)
}

func (e *TctiError) Unwrap() error {
	return e.err
}

// TPM1Error is returned from DecodeResponseCode and any TPMContext method
// that executes a command on the TPM if the TPM response code indicates an
// error from a TPM 1.2 device.
type TPM1Error struct {
	Command CommandCode  // Command code associated with this error
	Code    ResponseCode // Response code
}

func (e *TPM1Error) Error() string {
	return fmt.Sprintf("TPM returned a 1.2 error whilst executing command %s: 0x%08x", e.Command, e.Code)
}

// TPMVendorError is returned from DecodeResponseCode and any TPMContext
// method that executes a command on the TPM if the TPM response code
// indicates a vendor-specific error.
type TPMVendorError struct {
	Command CommandCode  // Command code associated with this error
	Code    ResponseCode // Response code
}

func (e *TPMVendorError) Error() string {
	return fmt.Sprintf("TPM returned a vendor defined error whilst executing command %s: 0x%08x",
		e.Command, e.Code)
}

// WarningCode represents a response from the TPM that is not necessarily an
// error.
type WarningCode ResponseCode

const (
	WarningContextGap     WarningCode = 0x01 // TPM_RC_CONTEXT_GAP
	WarningObjectMemory   WarningCode = 0x02 // TPM_RC_OBJECT_MEMORY
	WarningSessionMemory  WarningCode = 0x03 // TPM_RC_SESSION_MEMORY
	WarningMemory         WarningCode = 0x04 // TPM_RC_MEMORY
	WarningSessionHandles WarningCode = 0x05 // TPM_RC_SESSION_HANDLES
	WarningObjectHandles  WarningCode = 0x06 // TPM_RC_OBJECT_HANDLES
	WarningLocality       WarningCode = 0x07 // TPM_RC_LOCALITY
	WarningYielded        WarningCode = 0x08 // TPM_RC_YIELDED
	WarningCanceled       WarningCode = 0x09 // TPM_RC_CANCELED
	WarningTesting        WarningCode = 0x0a // TPM_RC_TESTING
	WarningNVRate         WarningCode = 0x20 // TPM_RC_NV_RATE
	WarningLockout        WarningCode = 0x21 // TPM_RC_LOCKOUT
	WarningRetry          WarningCode = 0x22 // TPM_RC_RETRY
	WarningNVUnavailable  WarningCode = 0x23 // TPM_RC_NV_UNAVAILABLE
)

// TPMWarning is returned from DecodeResponseCode and any TPMContext method
// that executes a command on the TPM if the TPM response code indicates a
// condition that is not necessarily an error.
type TPMWarning struct {
	Command CommandCode // Command code associated with this error
	Code    WarningCode // Warning code
}

func (e *TPMWarning) Error() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "TPM returned a warning whilst executing command %s: 0x%02x", e.Command, uint8(e.Code))
	if desc, hasDesc := warningCodeDescriptions[e.Code]; hasDesc {
		fmt.Fprintf(&builder, " (%s)", desc)
	}
	return builder.String()
}

// ErrorCode represents an error code from the TPM. Format-zero TPM2 error
// numbers occupy the range from 0 to 0x7f, and format-one error numbers are
// offset by errorCode1Start.
type ErrorCode ResponseCode

const (
	errorCode1Start ErrorCode = 0x80

	ErrorInitialize      ErrorCode = 0x00 // TPM_RC_INITIALIZE
	ErrorFailure         ErrorCode = 0x01 // TPM_RC_FAILURE
	ErrorSequence        ErrorCode = 0x03 // TPM_RC_SEQUENCE
	ErrorDisabled        ErrorCode = 0x20 // TPM_RC_DISABLED
	ErrorExclusive       ErrorCode = 0x21 // TPM_RC_EXCLUSIVE
	ErrorAuthType        ErrorCode = 0x24 // TPM_RC_AUTH_TYPE
	ErrorAuthMissing     ErrorCode = 0x25 // TPM_RC_AUTH_MISSING
	ErrorPolicy          ErrorCode = 0x26 // TPM_RC_POLICY
	ErrorPCR             ErrorCode = 0x27 // TPM_RC_PCR
	ErrorPCRChanged      ErrorCode = 0x28 // TPM_RC_PCR_CHANGED
	ErrorUpgrade         ErrorCode = 0x2d // TPM_RC_UPGRADE
	ErrorTooManyContexts ErrorCode = 0x2e // TPM_RC_TOO_MANY_CONTEXTS
	ErrorAuthUnavailable ErrorCode = 0x2f // TPM_RC_AUTH_UNAVAILABLE
	ErrorReboot          ErrorCode = 0x30 // TPM_RC_REBOOT
	ErrorCommandSize     ErrorCode = 0x42 // TPM_RC_COMMAND_SIZE
	ErrorCommandCode     ErrorCode = 0x43 // TPM_RC_COMMAND_CODE
	ErrorAuthsize        ErrorCode = 0x44 // TPM_RC_AUTHSIZE
	ErrorAuthContext     ErrorCode = 0x45 // TPM_RC_AUTH_CONTEXT
	ErrorNeedsTest       ErrorCode = 0x53 // TPM_RC_NEEDS_TEST
	ErrorNoResult        ErrorCode = 0x54 // TPM_RC_NO_RESULT
	ErrorSensitive       ErrorCode = 0x55 // TPM_RC_SENSITIVE

	ErrorAsymmetric   ErrorCode = errorCode1Start + 0x01 // TPM_RC_ASYMMETRIC
	ErrorAttributes   ErrorCode = errorCode1Start + 0x02 // TPM_RC_ATTRIBUTES
	ErrorHash         ErrorCode = errorCode1Start + 0x03 // TPM_RC_HASH
	ErrorValue        ErrorCode = errorCode1Start + 0x04 // TPM_RC_VALUE
	ErrorHierarchy    ErrorCode = errorCode1Start + 0x05 // TPM_RC_HIERARCHY
	ErrorKeySize      ErrorCode = errorCode1Start + 0x07 // TPM_RC_KEY_SIZE
	ErrorMGF          ErrorCode = errorCode1Start + 0x08 // TPM_RC_MGF
	ErrorMode         ErrorCode = errorCode1Start + 0x09 // TPM_RC_MODE
	ErrorType         ErrorCode = errorCode1Start + 0x0a // TPM_RC_TYPE
	ErrorHandle       ErrorCode = errorCode1Start + 0x0b // TPM_RC_HANDLE
	ErrorKDF          ErrorCode = errorCode1Start + 0x0c // TPM_RC_KDF
	ErrorRange        ErrorCode = errorCode1Start + 0x0d // TPM_RC_RANGE
	ErrorAuthFail     ErrorCode = errorCode1Start + 0x0e // TPM_RC_AUTH_FAIL
	ErrorNonce        ErrorCode = errorCode1Start + 0x0f // TPM_RC_NONCE
	ErrorPP           ErrorCode = errorCode1Start + 0x10 // TPM_RC_PP
	ErrorScheme       ErrorCode = errorCode1Start + 0x12 // TPM_RC_SCHEME
	ErrorSize         ErrorCode = errorCode1Start + 0x15 // TPM_RC_SIZE
	ErrorSymmetric    ErrorCode = errorCode1Start + 0x16 // TPM_RC_SYMMETRIC
	ErrorTag          ErrorCode = errorCode1Start + 0x17 // TPM_RC_TAG
	ErrorSelector     ErrorCode = errorCode1Start + 0x18 // TPM_RC_SELECTOR
	ErrorInsufficient ErrorCode = errorCode1Start + 0x1a // TPM_RC_INSUFFICIENT
	ErrorSignature    ErrorCode = errorCode1Start + 0x1b // TPM_RC_SIGNATURE
	ErrorKey          ErrorCode = errorCode1Start + 0x1c // TPM_RC_KEY
	ErrorPolicyFail   ErrorCode = errorCode1Start + 0x1d // TPM_RC_POLICY_FAIL
	ErrorIntegrity    ErrorCode = errorCode1Start + 0x1f // TPM_RC_INTEGRITY
	ErrorTicket       ErrorCode = errorCode1Start + 0x20 // TPM_RC_TICKET
	ErrorReservedBits ErrorCode = errorCode1Start + 0x21 // TPM_RC_RESERVED_BITS
	ErrorBadAuth      ErrorCode = errorCode1Start + 0x22 // TPM_RC_BAD_AUTH
	ErrorExpired      ErrorCode = errorCode1Start + 0x23 // TPM_RC_EXPIRED
	ErrorPolicyCC     ErrorCode = errorCode1Start + 0x24 // TPM_RC_POLICY_CC
	ErrorBinding      ErrorCode = errorCode1Start + 0x25 // TPM_RC_BINDING
	ErrorCurve        ErrorCode = errorCode1Start + 0x26 // TPM_RC_CURVE
	ErrorECCPoint     ErrorCode = errorCode1Start + 0x27 // TPM_RC_ECC_POINT
)

// TPMError is returned from DecodeResponseCode and any TPMContext method
// that executes a command on the TPM if the TPM response code indicates an
// error that is not associated with a handle, parameter or session.
type TPMError struct {
	Command CommandCode // Command code associated with this error
	Code    ErrorCode   // Error code
}

func (e *TPMError) Error() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "TPM returned an error whilst executing command %s: 0x%02x", e.Command, uint8(e.Code))
	if desc, hasDesc := errorCodeDescriptions[e.Code]; hasDesc {
		fmt.Fprintf(&builder, " (%s)", desc)
	}
	return builder.String()
}

// TPMParameterError is returned from DecodeResponseCode and any TPMContext
// method that executes a command on the TPM if the TPM response code
// indicates an error that is associated with a command parameter. It wraps
// a *TPMError.
type TPMParameterError struct {
	*TPMError
	Index int // Index of the parameter associated with this error, starting from 1
}

func (e *TPMParameterError) Error() string {
	return fmt.Sprintf("TPM returned an error for parameter %d whilst executing command %s: 0x%02x",
		e.Index, e.Command, uint8(e.Code))
}

func (e *TPMParameterError) Unwrap() error {
	return e.TPMError
}

// TPMSessionError is returned from DecodeResponseCode and any TPMContext
// method that executes a command on the TPM if the TPM response code
// indicates an error that is associated with a session. It wraps a
// *TPMError.
type TPMSessionError struct {
	*TPMError
	Index int // Index of the session associated with this error, starting from 1
}

func (e *TPMSessionError) Error() string {
	return fmt.Sprintf("TPM returned an error for session %d whilst executing command %s: 0x%02x",
		e.Index, e.Command, uint8(e.Code))
}

func (e *TPMSessionError) Unwrap() error {
	return e.TPMError
}

// TPMHandleError is returned from DecodeResponseCode and any TPMContext
// method that executes a command on the TPM if the TPM response code
// indicates an error that is associated with a command handle. It wraps a
// *TPMError.
type TPMHandleError struct {
	*TPMError
	// Index is the index of the handle associated with this error, starting
	// from 1. An index of 0 corresponds to an unspecified handle.
	Index int
}

func (e *TPMHandleError) Error() string {
	return fmt.Sprintf("TPM returned an error for handle %d whilst executing command %s: 0x%02x",
		e.Index, e.Command, uint8(e.Code))
}

func (e *TPMHandleError) Unwrap() error {
	return e.TPMError
}

// AsTPMError indicates whether the error or any error within its chain is a
// *TPMError with the specified ErrorCode and CommandCode, and sets out to
// the value of error if it is. To test for any error code, use
// AnyErrorCode. To test for any command code, use AnyCommandCode.
func AsTPMError(err error, code ErrorCode, command CommandCode, out **TPMError) bool {
	return xerrors.As(err, out) && (code == AnyErrorCode || (*out).Code == code) &&
		(command == AnyCommandCode || (*out).Command == command)
}

// IsTPMError indicates whether the error or any error within its chain is a
// *TPMError with the specified ErrorCode and CommandCode.
func IsTPMError(err error, code ErrorCode, command CommandCode) bool {
	var e *TPMError
	return AsTPMError(err, code, command, &e)
}

// AsTPMHandleError indicates whether the error or any error within its
// chain is a *TPMHandleError with the specified ErrorCode, CommandCode and
// handle index, and sets out to the value of error if it is.
func AsTPMHandleError(err error, code ErrorCode, command CommandCode, handle int, out **TPMHandleError) bool {
	return xerrors.As(err, out) && (code == AnyErrorCode || (*out).Code == code) &&
		(command == AnyCommandCode || (*out).Command == command) &&
		(handle == AnyHandleIndex || (*out).Index == handle)
}

// IsTPMHandleError indicates whether the error or any error within its
// chain is a *TPMHandleError with the specified ErrorCode, CommandCode and
// handle index. To test for any handle index, use AnyHandleIndex.
func IsTPMHandleError(err error, code ErrorCode, command CommandCode, handle int) bool {
	var e *TPMHandleError
	return AsTPMHandleError(err, code, command, handle, &e)
}

// AsTPMParameterError indicates whether the error or any error within its
// chain is a *TPMParameterError with the specified ErrorCode, CommandCode
// and parameter index, and sets out to the value of error if it is.
func AsTPMParameterError(err error, code ErrorCode, command CommandCode, param int, out **TPMParameterError) bool {
	return xerrors.As(err, out) && (code == AnyErrorCode || (*out).Code == code) &&
		(command == AnyCommandCode || (*out).Command == command) &&
		(param == AnyParameterIndex || (*out).Index == param)
}

// IsTPMParameterError indicates whether the error or any error within its
// chain is a *TPMParameterError with the specified ErrorCode, CommandCode
// and parameter index. To test for any parameter index, use
// AnyParameterIndex.
func IsTPMParameterError(err error, code ErrorCode, command CommandCode, param int) bool {
	var e *TPMParameterError
	return AsTPMParameterError(err, code, command, param, &e)
}

// AsTPMSessionError indicates whether the error or any error within its
// chain is a *TPMSessionError with the specified ErrorCode, CommandCode and
// session index, and sets out to the value of error if it is.
func AsTPMSessionError(err error, code ErrorCode, command CommandCode, session int, out **TPMSessionError) bool {
	return xerrors.As(err, out) && (code == AnyErrorCode || (*out).Code == code) &&
		(command == AnyCommandCode || (*out).Command == command) &&
		(session == AnySessionIndex || (*out).Index == session)
}

// IsTPMSessionError indicates whether the error or any error within its
// chain is a *TPMSessionError with the specified ErrorCode, CommandCode and
// session index. To test for any session index, use AnySessionIndex.
func IsTPMSessionError(err error, code ErrorCode, command CommandCode, session int) bool {
	var e *TPMSessionError
	return AsTPMSessionError(err, code, command, session, &e)
}

// AsTPMWarning indicates whether the error or any error within its chain is
// a *TPMWarning with the specified WarningCode and CommandCode, and sets
// out to the value of error if it is.
func AsTPMWarning(err error, code WarningCode, command CommandCode, out **TPMWarning) bool {
	return xerrors.As(err, out) && (code == AnyWarningCode || (*out).Code == code) &&
		(command == AnyCommandCode || (*out).Command == command)
}

// IsTPMWarning indicates whether the error or any error within its chain is
// a *TPMWarning with the specified WarningCode and CommandCode.
func IsTPMWarning(err error, code WarningCode, command CommandCode) bool {
	var e *TPMWarning
	return AsTPMWarning(err, code, command, &e)
}

const (
	formatMask ResponseCode = 1 << 7 // Bit 7 selects format-zero or format-one

	fmt0ErrorCodeMask ResponseCode = 0x7f    // Format-zero error numbers are 7-bits
	fmt0VersionMask   ResponseCode = 1 << 8  // Zero for TPM1.2 errors, one for TPM2 errors
	fmt0VendorMask    ResponseCode = 1 << 10 // Zero for TCG defined errors, one for vendor defined errors
	fmt0SeverityMask  ResponseCode = 1 << 11 // Zero for errors, one for warnings

	fmt1ErrorCodeMask            ResponseCode = 0x3f // Format-one error numbers are 6-bits
	fmt1IndexShift               uint         = 8    // Offset of the index field in format-one errors
	fmt1ParameterIndexMask       ResponseCode = 0xf << fmt1IndexShift
	fmt1HandleOrSessionIndexMask ResponseCode = 0x7 << fmt1IndexShift
	// Bit 6 of format-one errors is zero for errors associated with a handle
	// or session, and one for errors associated with a parameter.
	fmt1ParameterMask ResponseCode = 1 << 6
	// Bit 11 of format-one errors associated with a handle or session is
	// zero for errors associated with a handle and one for errors
	// associated with a session.
	fmt1SessionMask ResponseCode = 1 << 11
)

// DecodeResponseCode decodes the ResponseCode provided via resp. If the
// specified response code is Success, it returns no error, else it returns
// an error that is appropriate for the response code, preserving the
// original numeric value for diagnostics. The command code is used for
// adding context to the returned error.
func DecodeResponseCode(command CommandCode, resp ResponseCode) error {
	switch {
	case resp == Success:
		return nil
	case resp&formatMask == 0:
		// Format-zero response codes
		switch {
		case resp&fmt0VersionMask == 0:
			return &TPM1Error{command, resp}
		case resp&fmt0VendorMask > 0:
			return &TPMVendorError{command, resp}
		case resp&fmt0SeverityMask > 0:
			return &TPMWarning{command, WarningCode(resp & fmt0ErrorCodeMask)}
		default:
			return &TPMError{command, ErrorCode(resp & fmt0ErrorCodeMask)}
		}
	default:
		// Format-one response codes
		err := &TPMError{command, ErrorCode(resp&fmt1ErrorCodeMask) + errorCode1Start}
		switch {
		case resp&fmt1ParameterMask > 0:
			return &TPMParameterError{err, int((resp & fmt1ParameterIndexMask) >> fmt1IndexShift)}
		case resp&fmt1SessionMask > 0:
			return &TPMSessionError{err, int((resp & fmt1HandleOrSessionIndexMask) >> fmt1IndexShift)}
		case resp&fmt1HandleOrSessionIndexMask > 0:
			return &TPMHandleError{err, int((resp & fmt1HandleOrSessionIndexMask) >> fmt1IndexShift)}
		default:
			return err
		}
	}
}
