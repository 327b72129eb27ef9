// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys_test

import (
	"crypto/aes"
	"crypto/cipher"
	_ "crypto/sha256"

	"golang.org/x/xerrors"

	. "github.com/canonical/go-esys"
	"github.com/canonical/go-esys/internal"
	"github.com/canonical/go-esys/mu"

	. "gopkg.in/check.v1"
)

type paramcryptSuite struct{}

var _ = Suite(&paramcryptSuite{})

func (s *paramcryptSuite) newSession(symmetric *SymDef, attrs SessionAttributes) *Session {
	sessionKey := []byte("0123456789abcdef0123456789abcdef")
	nonceCaller := make(Nonce, 32)
	nonceCaller[0] = 0xc0
	nonceTPM := make(Nonce, 32)
	nonceTPM[0] = 0x1f

	session := NewTestSession(Handle(0x02000000), HashAlgorithmSHA256, SessionTypeHMAC, sessionKey,
		nonceCaller, nonceTPM)
	return session.WithSymmetric(symmetric).WithAttrs(attrs)
}

func (s *paramcryptSuite) TestEncryptCommandParameterXOR(c *C) {
	session := s.newSession(&SymDef{
		Algorithm: SymAlgorithmXOR,
		KeyBits:   &SymKeyBitsU{XOR: HashAlgorithmSHA256}}, AttrCommandEncrypt)

	data := []byte("sensitive command parameter")
	cpBytes := mu.MustMarshalToBytes(data)

	decryptNonce, err := EncryptCommandParameter(cpBytes, []*Session{session})
	c.Assert(err, IsNil)
	c.Check(decryptNonce, IsNil)
	c.Check(cpBytes[2:], Not(DeepEquals), data)

	// The obfuscation is symmetric, so applying it again with the same
	// key stream recovers the original parameter.
	internal.XORObfuscation(HashAlgorithmSHA256.GetHash(), []byte("0123456789abcdef0123456789abcdef"),
		session.NonceCaller(), session.NonceTPM(), cpBytes[2:])
	c.Check(cpBytes[2:], DeepEquals, data)
}

func (s *paramcryptSuite) TestEncryptCommandParameterAES(c *C) {
	session := s.newSession(&SymDef{
		Algorithm: SymAlgorithmAES,
		KeyBits:   &SymKeyBitsU{Sym: 128},
		Mode:      &SymModeU{Sym: SymModeCFB}}, AttrCommandEncrypt)

	data := []byte("sensitive command parameter")
	cpBytes := mu.MustMarshalToBytes(data)

	_, err := EncryptCommandParameter(cpBytes, []*Session{session})
	c.Assert(err, IsNil)
	c.Check(cpBytes[2:], Not(DeepEquals), data)

	k := internal.KDFa(HashAlgorithmSHA256.GetHash(), []byte("0123456789abcdef0123456789abcdef"),
		[]byte(CFBKeyLabel), session.NonceCaller(), session.NonceTPM(), 128+(aes.BlockSize*8))
	block, err := aes.NewCipher(k[:16])
	c.Assert(err, IsNil)
	cipher.NewCFBDecrypter(block, k[16:]).XORKeyStream(cpBytes[2:], cpBytes[2:])
	c.Check(cpBytes[2:], DeepEquals, data)
}

func (s *paramcryptSuite) TestEncryptCommandParameterShortArea(c *C) {
	session := s.newSession(&SymDef{
		Algorithm: SymAlgorithmXOR,
		KeyBits:   &SymKeyBitsU{XOR: HashAlgorithmSHA256}}, AttrCommandEncrypt)

	_, err := EncryptCommandParameter([]byte{0x00}, []*Session{session})
	c.Check(err, ErrorMatches, `parameter area too small`)
}

func (s *paramcryptSuite) TestEncryptCommandParameterSizeOutOfRange(c *C) {
	session := s.newSession(&SymDef{
		Algorithm: SymAlgorithmXOR,
		KeyBits:   &SymKeyBitsU{XOR: HashAlgorithmSHA256}}, AttrCommandEncrypt)

	_, err := EncryptCommandParameter([]byte{0xff, 0xff}, []*Session{session})
	c.Check(err, ErrorMatches, `invalid size of first parameter \(65535 bytes\)`)
}

func (s *paramcryptSuite) TestDecryptResponseParameterXOR(c *C) {
	session := s.newSession(&SymDef{
		Algorithm: SymAlgorithmXOR,
		KeyBits:   &SymKeyBitsU{XOR: HashAlgorithmSHA256}}, AttrResponseEncrypt)

	data := []byte("sensitive response parameter")
	rpBytes := mu.MustMarshalToBytes(data)
	internal.XORObfuscation(HashAlgorithmSHA256.GetHash(), []byte("0123456789abcdef0123456789abcdef"),
		session.NonceTPM(), session.NonceCaller(), rpBytes[2:])
	c.Check(rpBytes[2:], Not(DeepEquals), data)

	c.Assert(DecryptResponseParameter(rpBytes, []*Session{session}), IsNil)
	c.Check(rpBytes[2:], DeepEquals, data)
}

func (s *paramcryptSuite) TestDecryptResponseParameterShortArea(c *C) {
	session := s.newSession(&SymDef{
		Algorithm: SymAlgorithmXOR,
		KeyBits:   &SymKeyBitsU{XOR: HashAlgorithmSHA256}}, AttrResponseEncrypt)

	err := DecryptResponseParameter(nil, []*Session{session})
	c.Check(err, ErrorMatches, `parameter area too small`)
}

func (s *paramcryptSuite) TestDecryptResponseParameterSizeOutOfRange(c *C) {
	session := s.newSession(&SymDef{
		Algorithm: SymAlgorithmXOR,
		KeyBits:   &SymKeyBitsU{XOR: HashAlgorithmSHA256}}, AttrResponseEncrypt)

	err := DecryptResponseParameter([]byte{0x00, 0x04, 0xaa}, []*Session{session})
	c.Check(err, ErrorMatches, `invalid size of first parameter \(4 bytes\)`)
}

func (s *paramcryptSuite) startEncryptSession(c *C, tpm *TPMContext, tcti *scriptedTcti) *Session {
	tcti.queue(makeResponse(TagNoSessions, Success, Handle(0x02000000), make(Nonce, 32)))

	session, err := tpm.StartAuthSession(HandleNull, nil, SessionTypeHMAC, nil, HashAlgorithmSHA256)
	c.Assert(err, IsNil)
	c.Assert(tpm.SetSessions(session.WithAttrs(AttrContinueSession|AttrResponseEncrypt)), IsNil)
	return session
}

func (s *paramcryptSuite) TestResponseDecryptEmptyParameterArea(c *C) {
	tpm, tcti := newScriptedContext(c)
	s.startEncryptSession(c, tpm, tcti)

	tcti.queue(makeResponse(TagSessions, Success, uint32(0),
		AuthResponse{Nonce: make(Nonce, 32), SessionAttrs: RawAttrContinueSession | RawAttrEncrypt}))

	_, _, err := tpm.GetCapability(CapabilityAlgs, uint32(AlgorithmRSA), 1)
	var e *InvalidResponseError
	c.Assert(xerrors.As(err, &e), Equals, true)
	c.Check(err, ErrorMatches, `TPM returned an invalid response for command TPM_CC_GetCapability: `+
		`cannot process response auth area: cannot decrypt first response parameter: parameter area too small`)
}

func (s *paramcryptSuite) TestResponseDecryptSizeExceedsParameterArea(c *C) {
	tpm, tcti := newScriptedContext(c)
	s.startEncryptSession(c, tpm, tcti)

	tcti.queue(makeResponse(TagSessions, Success, uint32(2), mu.RawBytes([]byte{0x00, 0x10}),
		AuthResponse{Nonce: make(Nonce, 32), SessionAttrs: RawAttrContinueSession | RawAttrEncrypt}))

	_, _, err := tpm.GetCapability(CapabilityAlgs, uint32(AlgorithmRSA), 1)
	var e *InvalidResponseError
	c.Assert(xerrors.As(err, &e), Equals, true)
	c.Check(err, ErrorMatches, `TPM returned an invalid response for command TPM_CC_GetCapability: `+
		`cannot process response auth area: cannot decrypt first response parameter: `+
		`invalid size of first parameter \(16 bytes\)`)
}
