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

type typesSuite struct{}

var _ = Suite(&typesSuite{})

func (s *typesSuite) TestPCRSelectMarshal(c *C) {
	sel := PCRSelect{4, 8, 9}
	b := mu.MustMarshalToBytes(&sel)
	c.Check(b, DeepEquals, []byte{0x03, 0x10, 0x03, 0x00})

	var out PCRSelect
	_, err := mu.UnmarshalFromBytes(b, &out)
	c.Assert(err, IsNil)
	c.Check(out, DeepEquals, sel)
}

func (s *typesSuite) TestPCRSelectMarshalHighIndex(c *C) {
	sel := PCRSelect{26}
	b := mu.MustMarshalToBytes(&sel)
	c.Check(b, DeepEquals, []byte{0x04, 0x00, 0x00, 0x00, 0x04})

	var out PCRSelect
	_, err := mu.UnmarshalFromBytes(b, &out)
	c.Assert(err, IsNil)
	c.Check(out, DeepEquals, sel)
}

func (s *typesSuite) TestPCRSelectMarshalInvalidIndex(c *C) {
	sel := PCRSelect{-1}
	_, err := mu.MarshalToBytes(&sel)
	c.Check(err, ErrorMatches, `.*invalid PCR index`)
}

func (s *typesSuite) TestTaggedHashMarshal(c *C) {
	digest := make([]byte, 20)
	digest[0] = 0xaa
	th := TaggedHash{HashAlg: HashAlgorithmSHA1, Digest: digest}

	b := mu.MustMarshalToBytes(&th)
	c.Check(b, DeepEquals, append([]byte{0x00, 0x04}, digest...))

	var out TaggedHash
	_, err := mu.UnmarshalFromBytes(b, &out)
	c.Assert(err, IsNil)
	c.Check(out, DeepEquals, th)
}

func (s *typesSuite) TestTaggedHashMarshalInvalidDigestSize(c *C) {
	th := TaggedHash{HashAlg: HashAlgorithmSHA256, Digest: []byte{0x01}}
	_, err := mu.MarshalToBytes(&th)
	c.Check(err, ErrorMatches, `.*invalid digest size`)
}

func (s *typesSuite) TestTaggedHashUnmarshalNull(c *C) {
	b := mu.MustMarshalToBytes(HashAlgorithmNull)

	var out TaggedHash
	_, err := mu.UnmarshalFromBytes(b, &out)
	c.Assert(err, IsNil)
	c.Check(out.HashAlg, Equals, HashAlgorithmNull)
	c.Check(out.Digest, IsNil)
}

func (s *typesSuite) TestCommandAttributes(c *C) {
	attrs := CommandAttributes(CommandNVUndefineSpaceSpecial) | CommandAttributes(2<<25) | AttrNVCommand

	c.Check(attrs.CommandCode(), Equals, CommandNVUndefineSpaceSpecial)
	c.Check(attrs.NumberOfCommandHandles(), Equals, 2)
	c.Check(attrs&AttrNVCommand, Equals, AttrNVCommand)
}

func (s *typesSuite) TestNameIsHandle(c *C) {
	name := MakeName(HandleOwner)
	c.Check(name.IsHandle(), Equals, true)
	c.Check(name.Handle(), Equals, HandleOwner)

	digestName := Name(make([]byte, 34))
	c.Check(digestName.IsHandle(), Equals, false)
	c.Check(func() { digestName.Handle() }, PanicMatches, `name is not a handle`)
}

func (s *typesSuite) TestHandleType(c *C) {
	c.Check(HandleOwner.Type(), Equals, HandleTypePermanent)
	c.Check(Handle(0x02000001).Type(), Equals, HandleTypeHMACSession)
	c.Check(Handle(0x03000001).Type(), Equals, HandleTypePolicySession)

	c.Check(Handle(0x02000001).IsSession(), Equals, true)
	c.Check(HandleOwner.IsSession(), Equals, false)
}

func (s *typesSuite) TestCapabilityDataRoundTrip(c *C) {
	in := CapabilityData{
		Capability: CapabilityTPMProperties,
		Data: CapabilitiesU{TPMProperties: TaggedTPMPropertyList{
			{Property: PropertyManufacturer, Value: 0x49424d20},
			{Property: PropertyPCRCount, Value: 24}}}}

	b := mu.MustMarshalToBytes(&in)

	var out CapabilityData
	_, err := mu.UnmarshalFromBytes(b, &out)
	c.Assert(err, IsNil)
	c.Check(out.Capability, Equals, CapabilityTPMProperties)
	c.Check(cmp.Diff(out.Data.TPMProperties, in.Data.TPMProperties), Equals, "")
}

func (s *typesSuite) TestCapabilityDataUnmarshalInvalidCapability(c *C) {
	b := mu.MustMarshalToBytes(Capability(100), uint32(0))

	var out CapabilityData
	_, err := mu.UnmarshalFromBytes(b, &out)
	c.Check(mu.IsInvalidSelector(err), Equals, true)
}

func (s *typesSuite) TestPublicParamsRoundTrip(c *C) {
	in := rsaTestParams()

	b := mu.MustMarshalToBytes(in)

	var out PublicParams
	_, err := mu.UnmarshalFromBytes(b, &out)
	c.Assert(err, IsNil)
	c.Check(out.Type, Equals, ObjectTypeRSA)
	c.Assert(out.Parameters, NotNil)
	c.Assert(out.Parameters.RSADetail, NotNil)
	c.Check(out.Parameters.RSADetail.KeyBits, Equals, uint16(2048))
	c.Check(out.Parameters.RSADetail.Symmetric.Algorithm, Equals, SymObjectAlgorithmAES)
	c.Check(out.Parameters.RSADetail.Symmetric.KeyBits.Sym, Equals, uint16(128))
}

func (s *typesSuite) TestPCRSelectionListRoundTrip(c *C) {
	in := PCRSelectionList{
		{Hash: HashAlgorithmSHA256, Select: PCRSelect{0, 7}},
		{Hash: HashAlgorithmSHA1, Select: PCRSelect{7}}}

	b := mu.MustMarshalToBytes(&in)

	var out PCRSelectionList
	_, err := mu.UnmarshalFromBytes(b, &out)
	c.Assert(err, IsNil)
	c.Check(cmp.Diff(out, in), Equals, "")
}
