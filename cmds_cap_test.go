// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys_test

import (
	"github.com/google/go-cmp/cmp"

	. "github.com/canonical/go-esys"
	"github.com/canonical/go-esys/mu"

	. "gopkg.in/check.v1"
)

type capabilitiesSuite struct{}

var _ = Suite(&capabilitiesSuite{})

var testAlgProperties = AlgorithmPropertyList{
	{Alg: AlgorithmRSA, Properties: AttrAsymmetric | AttrObject},
	{Alg: AlgorithmSHA1, Properties: AttrHash},
	{Alg: AlgorithmHMAC, Properties: AttrHash | AttrSigning},
	{Alg: AlgorithmAES, Properties: AttrSymmetric},
	{Alg: AlgorithmMGF1, Properties: AttrHash | AttrMethod},
	{Alg: AlgorithmKeyedHash, Properties: AttrHash | AttrEncrypting | AttrSigning | AttrObject},
	{Alg: AlgorithmXOR, Properties: AttrHash | AttrSymmetric},
	{Alg: AlgorithmSHA256, Properties: AttrHash},
	{Alg: AlgorithmECC, Properties: AttrAsymmetric | AttrObject},
	{Alg: AlgorithmSymCipher, Properties: AttrObject}}

func (s *capabilitiesSuite) TestGetCapability(c *C) {
	tpm, tcti := newScriptedContext(c)

	rsp := CapabilityData{
		Capability: CapabilityAlgs,
		Data:       CapabilitiesU{Algorithms: testAlgProperties}}
	tcti.queue(makeResponse(TagNoSessions, Success, false, &rsp))

	data, moreData, err := tpm.GetCapability(CapabilityAlgs, uint32(AlgorithmRSA), 40)
	c.Assert(err, IsNil)
	c.Check(moreData, Equals, false)
	c.Assert(data, NotNil)
	c.Check(data.Capability, Equals, CapabilityAlgs)
	c.Check(cmp.Diff(data.Data.Algorithms, testAlgProperties), Equals, "")

	// Check the layout of the submitted command packet.
	expected := mu.MustMarshalToBytes(TagNoSessions, uint32(22), CommandGetCapability,
		CapabilityAlgs, uint32(AlgorithmRSA), uint32(40))
	c.Check(tcti.lastCommand(c), DeepEquals, expected)
}

func (s *capabilitiesSuite) TestGetCapabilityMoreData(c *C) {
	tpm, tcti := newScriptedContext(c)

	rsp := CapabilityData{
		Capability: CapabilityAlgs,
		Data:       CapabilitiesU{Algorithms: testAlgProperties[:2]}}
	tcti.queue(makeResponse(TagNoSessions, Success, true, &rsp))

	data, moreData, err := tpm.GetCapability(CapabilityAlgs, uint32(AlgorithmRSA), 40)
	c.Assert(err, IsNil)
	c.Check(moreData, Equals, true)
	c.Check(data.Data.Algorithms, HasLen, 2)
}

func (s *capabilitiesSuite) TestGetCapabilityInvalidMoreDataOctet(c *C) {
	tpm, tcti := newScriptedContext(c)

	rsp := CapabilityData{
		Capability: CapabilityAlgs,
		Data:       CapabilitiesU{Algorithms: testAlgProperties}}
	// A more-data octet of 2 is a protocol violation.
	tcti.queue(makeResponse(TagNoSessions, Success, uint8(2), &rsp))

	_, _, err := tpm.GetCapability(CapabilityAlgs, uint32(AlgorithmRSA), 40)
	c.Assert(err, FitsTypeOf, &InvalidResponseError{})
	c.Check(err, ErrorMatches, `.*invalid boolean value: 0x02.*`)
}

func (s *capabilitiesSuite) TestGetCapabilityUnexpectedCapability(c *C) {
	tpm, tcti := newScriptedContext(c)

	rsp := CapabilityData{
		Capability: CapabilityHandles,
		Data:       CapabilitiesU{Handles: HandleList{HandleOwner}}}
	tcti.queue(makeResponse(TagNoSessions, Success, false, &rsp))

	_, _, err := tpm.GetCapability(CapabilityAlgs, uint32(AlgorithmRSA), 40)
	c.Assert(err, FitsTypeOf, &InvalidResponseError{})
	c.Check(err, ErrorMatches, `.*unexpected capability TPM_CAP_HANDLES.*`)
}

func (s *capabilitiesSuite) TestGetCapabilityAll(c *C) {
	tpm, tcti := newScriptedContext(c)

	rsp1 := CapabilityData{
		Capability: CapabilityAlgs,
		Data:       CapabilitiesU{Algorithms: testAlgProperties[:4]}}
	rsp2 := CapabilityData{
		Capability: CapabilityAlgs,
		Data:       CapabilitiesU{Algorithms: testAlgProperties[4:]}}
	tcti.queue(makeResponse(TagNoSessions, Success, true, &rsp1))
	tcti.queue(makeResponse(TagNoSessions, Success, false, &rsp2))

	data, err := tpm.GetCapabilityAll(CapabilityAlgs, uint32(AlgorithmRSA), 40)
	c.Assert(err, IsNil)
	c.Check(cmp.Diff(data.Data.Algorithms, testAlgProperties), Equals, "")
	c.Check(tcti.commands, HasLen, 2)
}

func (s *capabilitiesSuite) TestGetCapabilityAllBogusMoreData(c *C) {
	tpm, tcti := newScriptedContext(c)

	// The TPM indicates more properties but returns none, which would
	// otherwise loop forever.
	rsp := CapabilityData{Capability: CapabilityAlgs}
	tcti.queue(makeResponse(TagNoSessions, Success, true, &rsp))

	_, err := tpm.GetCapabilityAll(CapabilityAlgs, uint32(AlgorithmRSA), 40)
	c.Assert(err, FitsTypeOf, &InvalidResponseError{})
}

func (s *capabilitiesSuite) TestGetCapabilityAllTooManyProperties(c *C) {
	tpm, tcti := newScriptedContext(c)

	// More properties returned than were requested.
	rsp := CapabilityData{
		Capability: CapabilityAlgs,
		Data:       CapabilitiesU{Algorithms: testAlgProperties[:3]}}
	tcti.queue(makeResponse(TagNoSessions, Success, false, &rsp))

	_, err := tpm.GetCapabilityAll(CapabilityAlgs, uint32(AlgorithmRSA), 1)
	c.Assert(err, FitsTypeOf, &InvalidResponseError{})
	c.Check(err, ErrorMatches, `.*TPM returned more properties than the 1 remaining in the request`)
}

func (s *capabilitiesSuite) TestGetCapabilityAlgs(c *C) {
	tpm, tcti := newScriptedContext(c)

	rsp := CapabilityData{
		Capability: CapabilityAlgs,
		Data:       CapabilitiesU{Algorithms: testAlgProperties}}
	tcti.queue(makeResponse(TagNoSessions, Success, false, &rsp))

	algs, err := tpm.GetCapabilityAlgs(AlgorithmRSA, 40)
	c.Assert(err, IsNil)
	c.Check(cmp.Diff(algs, testAlgProperties), Equals, "")
}

func (s *capabilitiesSuite) TestGetCapabilityHandles(c *C) {
	tpm, tcti := newScriptedContext(c)

	expected := HandleList{HandleOwner, HandleNull, HandlePW, HandleLockout}
	rsp := CapabilityData{
		Capability: CapabilityHandles,
		Data:       CapabilitiesU{Handles: expected}}
	tcti.queue(makeResponse(TagNoSessions, Success, false, &rsp))

	handles, err := tpm.GetCapabilityHandles(HandleOwner, 10)
	c.Assert(err, IsNil)
	c.Check(handles, DeepEquals, expected)
}

func (s *capabilitiesSuite) TestGetCapabilityTPMProperties(c *C) {
	tpm, tcti := newScriptedContext(c)

	expected := TaggedTPMPropertyList{
		{Property: PropertyFamilyIndicator, Value: 0x322e3000},
		{Property: PropertyLevel, Value: 0},
		{Property: PropertyManufacturer, Value: 0x49424d20}}
	rsp := CapabilityData{
		Capability: CapabilityTPMProperties,
		Data:       CapabilitiesU{TPMProperties: expected}}
	tcti.queue(makeResponse(TagNoSessions, Success, false, &rsp))

	props, err := tpm.GetCapabilityTPMProperties(PropertyFixed, 3)
	c.Assert(err, IsNil)
	c.Check(cmp.Diff(props, expected), Equals, "")
}

func (s *capabilitiesSuite) TestGetCapabilityTPMProperty(c *C) {
	tpm, tcti := newScriptedContext(c)

	rsp := CapabilityData{
		Capability: CapabilityTPMProperties,
		Data: CapabilitiesU{TPMProperties: TaggedTPMPropertyList{
			{Property: PropertyManufacturer, Value: 0x49424d20}}}}
	tcti.queue(makeResponse(TagNoSessions, Success, false, &rsp))

	value, err := tpm.GetCapabilityTPMProperty(PropertyManufacturer)
	c.Assert(err, IsNil)
	c.Check(value, Equals, uint32(0x49424d20))
}

func (s *capabilitiesSuite) TestGetCapabilityTPMPropertyMissing(c *C) {
	tpm, tcti := newScriptedContext(c)

	rsp := CapabilityData{Capability: CapabilityTPMProperties}
	tcti.queue(makeResponse(TagNoSessions, Success, false, &rsp))

	_, err := tpm.GetCapabilityTPMProperty(PropertyManufacturer)
	c.Check(err, ErrorMatches, `property .* not returned by TPM`)
}

func (s *capabilitiesSuite) TestGetCapabilityECCCurves(c *C) {
	tpm, tcti := newScriptedContext(c)

	expected := ECCCurveList{ECCCurveNIST_P256, ECCCurveNIST_P384}
	rsp := CapabilityData{
		Capability: CapabilityECCCurves,
		Data:       CapabilitiesU{ECCCurves: expected}}
	tcti.queue(makeResponse(TagNoSessions, Success, false, &rsp))

	curves, err := tpm.GetCapabilityECCCurves()
	c.Assert(err, IsNil)
	c.Check(curves, DeepEquals, expected)
}

func rsaTestParams() *PublicParams {
	return &PublicParams{
		Type: ObjectTypeRSA,
		Parameters: &PublicParamsU{
			RSADetail: &RSAParams{
				Symmetric: SymDefObject{
					Algorithm: SymObjectAlgorithmAES,
					KeyBits:   &SymKeyBitsU{Sym: 128},
					Mode:      &SymModeU{Sym: SymModeCFB}},
				Scheme:   RSAScheme{Scheme: RSASchemeNull},
				KeyBits:  2048,
				Exponent: 0}}}
}

func (s *capabilitiesSuite) TestTestParms(c *C) {
	tpm, tcti := newScriptedContext(c)

	tcti.queue(makeResponse(TagNoSessions, Success))

	c.Check(tpm.TestParms(rsaTestParams()), IsNil)

	// The parameters are marshalled after the header with no handles.
	expected := mu.MustMarshalToBytes(TagNoSessions, uint32(0), CommandTestParms, rsaTestParams())
	cmd := tcti.lastCommand(c)
	c.Check(cmd[10:], DeepEquals, expected[10:])
}

func (s *capabilitiesSuite) TestTestParmsRejected(c *C) {
	tpm, tcti := newScriptedContext(c)

	// Format-one TPM_RC_VALUE associated with parameter 1.
	rc := ResponseCode(0x1c4)
	tcti.queue(makeResponse(TagNoSessions, rc))

	err := tpm.TestParms(rsaTestParams())
	c.Assert(err, NotNil)
	var e *TPMParameterError
	c.Assert(AsTPMParameterError(err, ErrorValue, CommandTestParms, 1, &e), Equals, true)
	c.Check(e.Index, Equals, 1)
}

func (s *capabilitiesSuite) TestTestParmsNil(c *C) {
	tpm, _ := newScriptedContext(c)
	c.Check(tpm.TestParms(nil), ErrorMatches, `invalid parameters argument: nil parameters`)
}
