// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys_test

import (
	. "github.com/canonical/go-esys"

	. "gopkg.in/check.v1"
)

type errorsSuite struct{}

var _ = Suite(&errorsSuite{})

func (s *errorsSuite) TestDecodeSuccess(c *C) {
	c.Check(DecodeResponseCode(CommandGetCapability, Success), IsNil)
}

func (s *errorsSuite) TestDecodeTPM1Error(c *C) {
	err := DecodeResponseCode(CommandGetCapability, ResponseCode(0x1e))
	c.Assert(err, FitsTypeOf, &TPM1Error{})
	e := err.(*TPM1Error)
	c.Check(e.Command, Equals, CommandGetCapability)
	c.Check(e.Code, Equals, ResponseCode(0x1e))
	c.Check(err, ErrorMatches, `TPM returned a 1\.2 error whilst executing command TPM_CC_GetCapability: 0x0000001e`)
}

func (s *errorsSuite) TestDecodeVendorError(c *C) {
	err := DecodeResponseCode(CommandGetCapability, ResponseCode(0x557))
	c.Assert(err, FitsTypeOf, &TPMVendorError{})
	e := err.(*TPMVendorError)
	c.Check(e.Command, Equals, CommandGetCapability)
	c.Check(e.Code, Equals, ResponseCode(0x557))
}

func (s *errorsSuite) TestDecodeWarning(c *C) {
	err := DecodeResponseCode(CommandStartup, ResponseCode(0x922))
	c.Assert(err, FitsTypeOf, &TPMWarning{})
	e := err.(*TPMWarning)
	c.Check(e.Command, Equals, CommandStartup)
	c.Check(e.Code, Equals, WarningRetry)
	c.Check(err, ErrorMatches, `TPM returned a warning whilst executing command TPM_CC_Startup: 0x22.*`)
}

func (s *errorsSuite) TestDecodeFormatZeroError(c *C) {
	err := DecodeResponseCode(CommandStartup, ResponseCode(0x101))
	c.Assert(err, FitsTypeOf, &TPMError{})
	e := err.(*TPMError)
	c.Check(e.Command, Equals, CommandStartup)
	c.Check(e.Code, Equals, ErrorFailure)
}

func (s *errorsSuite) TestDecodeFormatOneError(c *C) {
	err := DecodeResponseCode(CommandTestParms, ResponseCode(0x84))
	c.Assert(err, FitsTypeOf, &TPMError{})
	e := err.(*TPMError)
	c.Check(e.Command, Equals, CommandTestParms)
	c.Check(e.Code, Equals, ErrorValue)
}

func (s *errorsSuite) TestDecodeParameterError(c *C) {
	err := DecodeResponseCode(CommandTestParms, ResponseCode(0x1c4))
	c.Assert(err, FitsTypeOf, &TPMParameterError{})
	e := err.(*TPMParameterError)
	c.Check(e.Command, Equals, CommandTestParms)
	c.Check(e.Code, Equals, ErrorValue)
	c.Check(e.Index, Equals, 1)
	c.Check(err, ErrorMatches, `TPM returned an error for parameter 1 whilst executing command TPM_CC_TestParms: 0x84`)
}

func (s *errorsSuite) TestDecodeSessionError(c *C) {
	err := DecodeResponseCode(CommandStartAuthSession, ResponseCode(0x98e))
	c.Assert(err, FitsTypeOf, &TPMSessionError{})
	e := err.(*TPMSessionError)
	c.Check(e.Command, Equals, CommandStartAuthSession)
	c.Check(e.Code, Equals, ErrorAuthFail)
	c.Check(e.Index, Equals, 1)
}

func (s *errorsSuite) TestDecodeHandleError(c *C) {
	err := DecodeResponseCode(CommandStartAuthSession, ResponseCode(0x18b))
	c.Assert(err, FitsTypeOf, &TPMHandleError{})
	e := err.(*TPMHandleError)
	c.Check(e.Command, Equals, CommandStartAuthSession)
	c.Check(e.Code, Equals, ErrorHandle)
	c.Check(e.Index, Equals, 1)
}

func (s *errorsSuite) TestIsTPMError(c *C) {
	err := DecodeResponseCode(CommandTestParms, ResponseCode(0x84))

	c.Check(IsTPMError(err, ErrorValue, CommandTestParms), Equals, true)
	c.Check(IsTPMError(err, ErrorValue, AnyCommandCode), Equals, true)
	c.Check(IsTPMError(err, AnyErrorCode, CommandTestParms), Equals, true)
	c.Check(IsTPMError(err, ErrorHash, CommandTestParms), Equals, false)
	c.Check(IsTPMError(err, ErrorValue, CommandStartup), Equals, false)
	c.Check(IsTPMError(nil, AnyErrorCode, AnyCommandCode), Equals, false)
}

func (s *errorsSuite) TestIsTPMWarning(c *C) {
	err := DecodeResponseCode(CommandStartup, ResponseCode(0x922))

	c.Check(IsTPMWarning(err, WarningRetry, CommandStartup), Equals, true)
	c.Check(IsTPMWarning(err, AnyWarningCode, AnyCommandCode), Equals, true)
	c.Check(IsTPMWarning(err, WarningYielded, CommandStartup), Equals, false)
}

func (s *errorsSuite) TestIsTPMParameterError(c *C) {
	err := DecodeResponseCode(CommandTestParms, ResponseCode(0x1c4))

	c.Check(IsTPMParameterError(err, ErrorValue, CommandTestParms, 1), Equals, true)
	c.Check(IsTPMParameterError(err, AnyErrorCode, AnyCommandCode, AnyParameterIndex), Equals, true)
	c.Check(IsTPMParameterError(err, ErrorValue, CommandTestParms, 2), Equals, false)

	// A parameter error unwraps to the underlying *TPMError.
	c.Check(IsTPMError(err, ErrorValue, CommandTestParms), Equals, true)
}

func (s *errorsSuite) TestIsTPMSessionError(c *C) {
	err := DecodeResponseCode(CommandStartAuthSession, ResponseCode(0x98e))

	c.Check(IsTPMSessionError(err, ErrorAuthFail, CommandStartAuthSession, 1), Equals, true)
	c.Check(IsTPMSessionError(err, ErrorAuthFail, CommandStartAuthSession, AnySessionIndex), Equals, true)
	c.Check(IsTPMSessionError(err, ErrorAuthFail, CommandStartAuthSession, 2), Equals, false)
}

func (s *errorsSuite) TestIsTPMHandleError(c *C) {
	err := DecodeResponseCode(CommandStartAuthSession, ResponseCode(0x18b))

	c.Check(IsTPMHandleError(err, ErrorHandle, CommandStartAuthSession, 1), Equals, true)
	c.Check(IsTPMHandleError(err, ErrorHandle, CommandStartAuthSession, AnyHandleIndex), Equals, true)
	c.Check(IsTPMHandleError(err, ErrorHandle, CommandStartAuthSession, 0), Equals, false)
}
