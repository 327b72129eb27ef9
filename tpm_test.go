// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys_test

import (
	"golang.org/x/xerrors"

	. "github.com/canonical/go-esys"
	"github.com/canonical/go-esys/mu"

	. "gopkg.in/check.v1"
)

type tpmSuite struct{}

var _ = Suite(&tpmSuite{})

func (s *tpmSuite) TestRunCommandBytes(c *C) {
	tpm, tcti := newScriptedContext(c)

	tcti.queue(makeResponse(TagNoSessions, Success, uint32(0xa5a5a5a5)))

	rc, tag, payload, err := tpm.RunCommandBytes(TagNoSessions, CommandGetTestResult, nil)
	c.Assert(err, IsNil)
	c.Check(rc, Equals, Success)
	c.Check(tag, Equals, TagNoSessions)
	c.Check(payload, DeepEquals, mu.MustMarshalToBytes(uint32(0xa5a5a5a5)))

	expected := mu.MustMarshalToBytes(TagNoSessions, uint32(10), CommandGetTestResult)
	c.Check(tcti.lastCommand(c), DeepEquals, expected)
}

func (s *tpmSuite) TestCommandRetry(c *C) {
	tpm, tcti := newScriptedContext(c)

	retry := ResponseCode(0x922)
	tcti.queue(makeResponse(TagNoSessions, retry))
	tcti.queue(makeResponse(TagNoSessions, retry))
	tcti.queue(makeResponse(TagNoSessions, Success))

	c.Check(tpm.Startup(StartupClear), IsNil)
	c.Check(tcti.commands, HasLen, 3)
}

func (s *tpmSuite) TestCommandRetryExhausted(c *C) {
	tpm, tcti := newScriptedContext(c)
	tpm.SetMaxSubmissions(2)

	retry := ResponseCode(0x922)
	tcti.queue(makeResponse(TagNoSessions, retry))
	tcti.queue(makeResponse(TagNoSessions, retry))

	err := tpm.Startup(StartupClear)
	c.Check(IsTPMWarning(err, WarningRetry, CommandStartup), Equals, true)
	c.Check(tcti.commands, HasLen, 2)
}

func (s *tpmSuite) TestCommandErrorNotRetried(c *C) {
	tpm, tcti := newScriptedContext(c)

	tcti.queue(makeResponse(TagNoSessions, ResponseCode(0x101)))

	err := tpm.Startup(StartupClear)
	c.Check(IsTPMError(err, ErrorFailure, CommandStartup), Equals, true)
	c.Check(tcti.commands, HasLen, 1)
}

func (s *tpmSuite) TestTPM12Response(c *C) {
	tpm, tcti := newScriptedContext(c)

	tcti.queue(makeResponse(TagRspCommand, ResponseCode(0x1e)))

	err := tpm.Startup(StartupClear)
	c.Assert(err, FitsTypeOf, &TPM1Error{})
	c.Check(err.(*TPM1Error).Code, Equals, ResponseCode(0x1e))
}

func (s *tpmSuite) TestTrailingResponseBytes(c *C) {
	tpm, tcti := newScriptedContext(c)

	tcti.queue(makeResponse(TagNoSessions, Success, uint16(0)))

	err := tpm.Startup(StartupClear)
	c.Assert(err, FitsTypeOf, &InvalidResponseError{})
	c.Check(err, ErrorMatches, `.*response contains 2 trailing bytes`)
}

func (s *tpmSuite) TestTrailingParameterAreaBytes(c *C) {
	tpm, tcti := newScriptedContext(c)

	tcti.queue(makeResponse(TagNoSessions, Success, Handle(0x02000000), make(Nonce, 32)))
	session, err := tpm.StartAuthSession(HandleNull, nil, SessionTypeHMAC, nil, HashAlgorithmSHA256)
	c.Assert(err, IsNil)
	c.Assert(tpm.SetSessions(session.WithAttrs(AttrContinueSession)), IsNil)

	capData := CapabilityData{
		Capability: CapabilityAlgs,
		Data:       CapabilitiesU{Algorithms: testAlgProperties[:1]}}
	rp := mu.MustMarshalToBytes(false, &capData)
	rp = append(rp, 0x00, 0x00)

	tcti.queue(makeResponse(TagSessions, Success, uint32(len(rp)), mu.RawBytes(rp),
		AuthResponse{Nonce: make(Nonce, 32), SessionAttrs: RawAttrContinueSession}))

	_, _, err = tpm.GetCapability(CapabilityAlgs, uint32(AlgorithmRSA), 1)
	c.Assert(err, FitsTypeOf, &InvalidResponseError{})
	c.Check(err, ErrorMatches, `.*parameter area contains 2 trailing bytes`)
}

func (s *tpmSuite) TestShortResponseHeader(c *C) {
	tpm, tcti := newScriptedContext(c)

	tcti.queue([]byte{0x80, 0x01, 0x00})

	err := tpm.Startup(StartupClear)
	c.Assert(err, FitsTypeOf, &InvalidResponseError{})
	c.Check(err, ErrorMatches, `.*insufficient bytes for response header \(got 3, expected 10\)`)
}

func (s *tpmSuite) TestInvalidResponseSize(c *C) {
	tpm, tcti := newScriptedContext(c)

	tcti.queue(mu.MustMarshalToBytes(TagNoSessions, uint32(5), Success))

	err := tpm.Startup(StartupClear)
	c.Assert(err, FitsTypeOf, &InvalidResponseError{})
	c.Check(err, ErrorMatches, `.*invalid responseSize value \(5\)`)
}

func (s *tpmSuite) TestTruncatedResponsePayload(c *C) {
	tpm, tcti := newScriptedContext(c)

	// The header claims 4 payload bytes but only 2 arrive.
	tcti.queue(mu.MustMarshalToBytes(TagNoSessions, uint32(14), Success, uint16(0)))

	err := tpm.Startup(StartupClear)
	c.Assert(err, FitsTypeOf, &InvalidResponseError{})
	c.Check(err, ErrorMatches, `.*insufficient bytes for response payload \(got 2, expected 4\)`)
}

func (s *tpmSuite) TestUnexpectedResponseTag(c *C) {
	tpm, tcti := newScriptedContext(c)

	tcti.queue(makeResponse(StructTag(0x8003), Success))

	err := tpm.Startup(StartupClear)
	c.Assert(err, FitsTypeOf, &InvalidResponseError{})
	c.Check(err, ErrorMatches, `.*unexpected response tag.*`)
}

func (s *tpmSuite) TestUnexpectedResponseAuthArea(c *C) {
	tpm, tcti := newScriptedContext(c)

	// A TPM_ST_SESSIONS response to a command submitted with no sessions.
	tcti.queue(makeResponse(TagSessions, Success, uint32(0)))

	err := tpm.Startup(StartupClear)
	c.Assert(err, FitsTypeOf, &InvalidResponseError{})
	c.Check(err, ErrorMatches, `.*unexpected auth area in response`)
}

func (s *tpmSuite) TestWriteError(c *C) {
	tpm, _ := newScriptedContext(c)

	err := tpm.Startup(StartupClear)
	var e *TctiError
	c.Assert(xerrors.As(err, &e), Equals, true)
	c.Check(e.Op, Equals, "write")
}

func (s *tpmSuite) TestSetSessionsTooMany(c *C) {
	tpm, _ := newScriptedContext(c)

	err := tpm.SetSessions(PasswordSession(nil), PasswordSession(nil), PasswordSession(nil),
		PasswordSession(nil))
	c.Check(err, ErrorMatches, `invalid sessions argument: too many sessions provided`)
}

func (s *tpmSuite) TestSetSessionsNil(c *C) {
	tpm, _ := newScriptedContext(c)

	err := tpm.SetSessions(PasswordSession(nil), nil)
	c.Check(err, ErrorMatches, `invalid sessions argument: nil session at index 1`)
}

func (s *tpmSuite) TestClearSessions(c *C) {
	tpm, _ := newScriptedContext(c)

	c.Assert(tpm.SetSessions(PasswordSession([]byte("secret"))), IsNil)
	c.Check(tpm.Sessions(), HasLen, 1)

	tpm.ClearSessions()
	c.Check(tpm.Sessions(), HasLen, 0)
}
