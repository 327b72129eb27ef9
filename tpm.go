// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/canonical/go-esys/mu"

	"golang.org/x/xerrors"
)

func makeInvalidArgError(name, msg string) error {
	return fmt.Errorf("invalid %s argument: %s", name, msg)
}

func wrapMarshallingError(commandCode CommandCode, context string, err error) error {
	return fmt.Errorf("cannot marshal %s for command %s: %v", context, commandCode, err)
}

// handleUnmarshallingError maps unmarshalling failures that indicate a
// malformed response payload on to *InvalidResponseError. A truncated
// buffer, an out of range union selector or a boolean octet that isn't 0 or
// 1 can only be caused by the TPM sending something this package doesn't
// understand.
func handleUnmarshallingError(context *cmdContext, scope string, err error) error {
	var s *mu.InvalidSelectorError
	var b *mu.InvalidBoolValueError
	if xerrors.Is(err, io.EOF) || xerrors.Is(err, io.ErrUnexpectedEOF) || xerrors.As(err, &s) ||
		xerrors.As(err, &b) {
		return &InvalidResponseError{context.commandCode, fmt.Sprintf("cannot unmarshal %s: %v", scope, err)}
	}

	return fmt.Errorf("cannot unmarshal %s for command %s: %v", scope, context.commandCode, err)
}

func isSessionAllowed(commandCode CommandCode) bool {
	switch commandCode {
	case CommandStartup:
		return false
	case CommandContextLoad:
		return false
	case CommandContextSave:
		return false
	case CommandFlushContext:
		return false
	default:
		return true
	}
}

type responseAuthAreaRawSlice struct {
	Data []authResponse `tpm2:"raw"`
}

type commandHeader struct {
	Tag         StructTag
	CommandSize uint32
	CommandCode CommandCode
}

type responseHeader struct {
	Tag          StructTag
	ResponseSize uint32
	ResponseCode ResponseCode
}

type cmdContext struct {
	commandCode   CommandCode
	sessions      []*Session
	handleNames   []Name
	responseCode  ResponseCode
	responseTag   StructTag
	responseBytes []byte
}

type delimiterSentinel struct{}

// Delimiter is a sentinel value used to delimit command handle, command
// parameter, response handle pointer and response parameter pointer blocks
// in the variable length params argument in TPMContext.RunCommand.
var Delimiter delimiterSentinel

// TPMContext is the main entry point by which commands are executed on a TPM
// device using this package. It communicates with the underlying device via
// a transmission interface, which is an implementation of io.ReadWriteCloser
// provided to NewTPMContext.
//
// Authorization sessions are owned by the context. Up to 3 sessions can be
// set with SetSessions, and they will be used to build the authorization
// area of every subsequent command that accepts sessions, until they are
// replaced or removed with ClearSessions. Sessions that the TPM flushes
// after use are removed from the context automatically.
//
// Methods that execute commands on the TPM will return errors where the TPM
// responds with them. These are in the form of *TPMError, *TPMWarning,
// *TPMHandleError, *TPMSessionError, *TPMParameterError and *TPMVendorError
// types.
//
// TPMContext is not safe to use from more than one goroutine
// simultaneously.
type TPMContext struct {
	tcti           io.ReadWriteCloser
	sessions       []*Session
	maxSubmissions uint
}

// Close calls Close on the transmission interface.
func (t *TPMContext) Close() error {
	if err := t.tcti.Close(); err != nil {
		return &TctiError{"close", err}
	}

	return nil
}

// SetSessions sets the sessions that will be used to authorize subsequent
// commands executed via this context, replacing any previously set
// sessions. Up to 3 sessions can be provided, in the order of the command
// handles that they authorize. A session created with
// TPMContext.StartAuthSession or the value of PasswordSession can be used.
func (t *TPMContext) SetSessions(sessions ...*Session) error {
	if len(sessions) > 3 {
		return makeInvalidArgError("sessions", "too many sessions provided")
	}
	for i, session := range sessions {
		if session == nil {
			return makeInvalidArgError("sessions", fmt.Sprintf("nil session at index %d", i))
		}
		if session.Handle() == HandleUnassigned {
			return makeInvalidArgError("sessions", fmt.Sprintf("session at index %d has been flushed", i))
		}
	}
	t.sessions = sessions
	return nil
}

// ClearSessions removes all sessions previously set with SetSessions, so
// that subsequent commands are executed without an authorization area.
func (t *TPMContext) ClearSessions() {
	t.sessions = nil
}

// Sessions returns the sessions that are currently set on this context, in
// the order that they will appear in the authorization area.
func (t *TPMContext) Sessions() []*Session {
	out := make([]*Session, len(t.sessions))
	copy(out, t.sessions)
	return out
}

// PasswordSession returns a session that authorizes with a plaintext
// password in place of an HMAC. An empty authValue authorizes an entity
// with no authorization value set.
func PasswordSession(authValue []byte) *Session {
	return &Session{handle: HandlePW, AuthValue: authValue}
}

// RunCommandBytes is a low-level interface for executing the command
// defined by the specified commandCode. It will construct an appropriate
// header, but the caller is responsible for providing the rest of the
// serialized command structure in commandBytes. Valid values for tag are
// TagNoSessions if the authorization area is empty, else it must be
// TagSessions.
//
// If successful, this function will return the ResponseCode and StructTag
// from the response header along with the rest of the response structure
// (everything except for the header). It will not return an error if the
// TPM responds with an error as long as the returned response structure is
// correctly formed, but will return an error if marshalling of the command
// header or unmarshalling of the response header fails, or the transmission
// interface returns an error.
func (t *TPMContext) RunCommandBytes(tag StructTag, commandCode CommandCode, commandBytes []byte) (ResponseCode, StructTag, []byte, error) {
	cHeader := commandHeader{tag, 0, commandCode}
	cHeader.CommandSize = uint32(binary.Size(cHeader) + len(commandBytes))

	bytes, err := mu.MarshalToBytes(cHeader, mu.RawBytes(commandBytes))
	if err != nil {
		panic(fmt.Sprintf("cannot marshal complete command packet bytes: %v", err))
	}

	if _, err := t.tcti.Write(bytes); err != nil {
		return 0, 0, nil, &TctiError{"write", err}
	}

	var rHeader responseHeader
	rHeaderSize := uint32(binary.Size(rHeader))
	rHeaderBytes := make([]byte, rHeaderSize)
	if n, err := io.ReadFull(t.tcti, rHeaderBytes); err != nil {
		if xerrors.Is(err, io.ErrUnexpectedEOF) {
			return 0, 0, nil, &InvalidResponseError{commandCode,
				fmt.Sprintf("insufficient bytes for response header (got %d, expected %d)", n, rHeaderSize)}
		}
		return 0, 0, nil, &TctiError{"read", err}
	}

	if _, err := mu.UnmarshalFromBytes(rHeaderBytes, &rHeader); err != nil {
		panic(fmt.Sprintf("cannot unmarshal response header: %v", err))
	}

	if rHeader.ResponseSize < rHeaderSize {
		return 0, 0, nil, &InvalidResponseError{commandCode,
			fmt.Sprintf("invalid responseSize value (%d)", rHeader.ResponseSize)}
	}

	responseBytes := make([]byte, rHeader.ResponseSize-rHeaderSize)
	if n, err := io.ReadFull(t.tcti, responseBytes); err != nil {
		if xerrors.Is(err, io.ErrUnexpectedEOF) {
			return 0, 0, nil, &InvalidResponseError{commandCode,
				fmt.Sprintf("insufficient bytes for response payload (got %d, expected %d)", n, len(responseBytes))}
		}
		return 0, 0, nil, &TctiError{"read", err}
	}

	return rHeader.ResponseCode, rHeader.Tag, responseBytes, nil
}

func (t *TPMContext) runCommandWithoutProcessingResponse(commandCode CommandCode, handles, params []interface{}) (*cmdContext, error) {
	handleVals := make([]interface{}, 0, len(handles))
	handleNames := make([]Name, 0, len(handles))

	for i, handle := range handles {
		h, isHandle := handle.(Handle)
		if !isHandle {
			return nil, wrapMarshallingError(commandCode, "command handles",
				fmt.Errorf("cannot process command handle parameter at index %d: invalid type (%s)",
					i, reflect.TypeOf(handle)))
		}
		handleVals = append(handleVals, h)
		handleNames = append(handleNames, makeName(h))
	}

	var sessions []*Session
	if isSessionAllowed(commandCode) {
		sessions = t.sessions
	}

	if s, _ := decryptSession(sessions); s != nil && (len(params) == 0 || !isParamEncryptable(params[0])) {
		return nil, fmt.Errorf("command %s does not support command parameter encryption", commandCode)
	}

	cBytes := new(bytes.Buffer)

	if _, err := mu.MarshalToWriter(cBytes, handleVals...); err != nil {
		panic(fmt.Sprintf("cannot marshal command handles: %v", err))
	}

	cpBytes := new(bytes.Buffer)
	if _, err := mu.MarshalToWriter(cpBytes, params...); err != nil {
		return nil, wrapMarshallingError(commandCode, "command parameters", err)
	}

	tag := TagNoSessions
	if len(sessions) > 0 {
		tag = TagSessions
		authArea, err := buildCommandAuthArea(commandCode, handleNames, cpBytes.Bytes(), sessions)
		if err != nil {
			return nil, fmt.Errorf("cannot build command auth area for command %s: %v", commandCode, err)
		}
		if _, err := mu.MarshalToWriter(cBytes, &authArea); err != nil {
			panic(fmt.Sprintf("cannot marshal command auth area: %v", err))
		}
	}

	if _, err := cpBytes.WriteTo(cBytes); err != nil {
		panic(fmt.Sprintf("cannot write command parameter bytes to command buffer: %v", err))
	}

	var responseCode ResponseCode
	var responseTag StructTag
	var responseBytes []byte

	for tries := uint(1); ; tries++ {
		var err error
		responseCode, responseTag, responseBytes, err = t.RunCommandBytes(tag, commandCode, cBytes.Bytes())
		if err != nil {
			return nil, err
		}

		err = DecodeResponseCode(commandCode, responseCode)
		if err == nil {
			break
		}

		if tries >= t.maxSubmissions {
			return nil, err
		}
		if e, ok := err.(*TPMWarning); !ok || !(e.Code == WarningYielded || e.Code == WarningTesting || e.Code == WarningRetry) {
			return nil, err
		}
	}

	return &cmdContext{
		commandCode:   commandCode,
		sessions:      sessions,
		handleNames:   handleNames,
		responseCode:  responseCode,
		responseTag:   responseTag,
		responseBytes: responseBytes}, nil
}

func (t *TPMContext) processResponse(context *cmdContext, handles, params []interface{}) error {
	for i, handle := range handles {
		_, isHandle := handle.(*Handle)
		if !isHandle {
			return fmt.Errorf("cannot process response handle parameter for command %s at index %d: invalid type (%s)",
				context.commandCode, i, reflect.TypeOf(handle))
		}
	}

	buf := bytes.NewReader(context.responseBytes)

	if len(handles) > 0 {
		if _, err := mu.UnmarshalFromReader(buf, handles...); err != nil {
			return handleUnmarshallingError(context, "response handles", err)
		}
	}

	var rpBuf *bytes.Reader

	switch context.responseTag {
	case TagSessions:
		if len(context.sessions) == 0 {
			return &InvalidResponseError{context.commandCode, "unexpected auth area in response"}
		}
		var parameterSize uint32
		if _, err := mu.UnmarshalFromReader(buf, &parameterSize); err != nil {
			return handleUnmarshallingError(context, "parameterSize field", err)
		}
		rpBytes := make([]byte, parameterSize)
		if _, err := io.ReadFull(buf, rpBytes); err != nil {
			return handleUnmarshallingError(context, "response parameters",
				fmt.Errorf("error reading parameters to temporary buffer: %v", err))
		}

		authArea := responseAuthAreaRawSlice{make([]authResponse, len(context.sessions))}
		if _, err := mu.UnmarshalFromReader(buf, &authArea); err != nil {
			return handleUnmarshallingError(context, "response auth area", err)
		}
		if err := processResponseAuthArea(context.responseCode, context.commandCode, context.handleNames,
			rpBytes, authArea.Data, context.sessions); err != nil {
			if _, isInvalidAuth := err.(*InvalidAuthResponseError); isInvalidAuth {
				return err
			}
			return &InvalidResponseError{context.commandCode,
				fmt.Sprintf("cannot process response auth area: %v", err)}
		}

		t.dropFlushedSessions()

		rpBuf = bytes.NewReader(rpBytes)
	case TagNoSessions:
		if len(context.sessions) > 0 {
			return &InvalidResponseError{context.commandCode, "missing auth area in response"}
		}
		rpBuf = buf
	default:
		return &InvalidResponseError{context.commandCode,
			fmt.Sprintf("unexpected response tag: %v", context.responseTag)}
	}

	if len(params) > 0 {
		if _, err := mu.UnmarshalFromReader(rpBuf, params...); err != nil {
			return handleUnmarshallingError(context, "response parameters", err)
		}
	}

	if rpBuf != buf && rpBuf.Len() > 0 {
		return &InvalidResponseError{context.commandCode,
			fmt.Sprintf("parameter area contains %d trailing bytes", rpBuf.Len())}
	}
	if buf.Len() > 0 {
		return &InvalidResponseError{context.commandCode,
			fmt.Sprintf("response contains %d trailing bytes", buf.Len())}
	}

	return nil
}

func (t *TPMContext) dropFlushedSessions() {
	var remaining []*Session
	for _, session := range t.sessions {
		if session.flushed {
			continue
		}
		remaining = append(remaining, session)
	}
	t.sessions = remaining
}

// RunCommand is the high-level generic interface for executing the command
// specified by commandCode. All of the methods on TPMContext exported by
// this package that execute commands on the TPM are essentially wrappers
// around this function. It takes care of marshalling command handles and
// command parameters, as well as constructing and marshalling the
// authorization area from the sessions set with SetSessions and choosing
// the correct StructTag value. It takes care of unmarshalling response
// handles and response parameters, as well as unmarshalling the response
// authorization area and performing checks on the authorization response.
//
// The variable length params argument provides a mechanism for the caller
// to provide command handles, command parameters, response handle pointers
// and response parameter pointers (in that order), with each group of
// arguments being separated by the Delimiter sentinel value.
//
// Command handles are provided as Handle values. Command parameters are
// provided as the go equivalent types for the types defined in the TPM
// Library Specification. Response handles are provided as pointers to
// Handle values, and response parameters are provided as pointers to values
// of the go equivalent types.
//
// If the TPM responds with a warning that indicates the command could not
// be started and should be retried, this function will resubmit the command
// a finite number of times before returning an error. The maximum number of
// retries can be set via TPMContext.SetMaxSubmissions.
//
// In addition to returning an error if any marshalling or unmarshalling
// fails, or if the transmission backend returns an error, this function
// will also return an error if the TPM responds with any ResponseCode other
// than Success.
func (t *TPMContext) RunCommand(commandCode CommandCode, params ...interface{}) error {
	var commandHandles []interface{}
	var commandParams []interface{}
	var responseHandles []interface{}
	var responseParams []interface{}

	sentinels := 0
	for _, param := range params {
		if param == Delimiter {
			sentinels++
			continue
		}

		switch sentinels {
		case 0:
			commandHandles = append(commandHandles, param)
		case 1:
			commandParams = append(commandParams, param)
		case 2:
			responseHandles = append(responseHandles, param)
		case 3:
			responseParams = append(responseParams, param)
		}
	}

	ctx, err := t.runCommandWithoutProcessingResponse(commandCode, commandHandles, commandParams)
	if err != nil {
		return err
	}

	return t.processResponse(ctx, responseHandles, responseParams)
}

// SetMaxSubmissions sets the maximum number of times that RunCommand will
// attempt to submit a command before failing with an error. The default
// value is 5.
func (t *TPMContext) SetMaxSubmissions(max uint) {
	t.maxSubmissions = max
}

func newTpmContext(tcti io.ReadWriteCloser) *TPMContext {
	r := new(TPMContext)
	r.tcti = tcti
	r.maxSubmissions = 5

	return r
}

// NewTPMContext creates a new instance of TPMContext, which communicates
// with the TPM using the transmission interface provided via the tcti
// parameter.
//
// If the tcti parameter is nil, this function will try to autodetect a TPM
// interface using the following order:
//   - Linux TPM device (/dev/tpmrm0)
//   - Linux TPM device (/dev/tpm0)
//   - TPM simulator (localhost:2321 for the TPM command server and
//     localhost:2322 for the platform server)
//
// It will return an error if a TPM interface cannot be detected.
//
// If the tcti parameter is not nil, this function never returns an error.
func NewTPMContext(tcti io.ReadWriteCloser) (*TPMContext, error) {
	if tcti == nil {
		for _, path := range []string{"/dev/tpmrm0", "/dev/tpm0"} {
			d, err := OpenTPMDevice(path)
			if err == nil {
				tcti = d
				break
			}
		}
	}
	if tcti == nil {
		if m, err := OpenMssim("localhost", 2321, 2322); err == nil {
			tcti = m
		}
	}

	if tcti == nil {
		return nil, errors.New("cannot find TPM interface to auto-open")
	}

	return newTpmContext(tcti), nil
}
