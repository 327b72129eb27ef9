// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

// Export constants and unexported entities for testing

type AuthCommand = authCommand
type AuthResponse = authResponse
type CommandAuthArea = commandAuthArea

const (
	RawAttrContinueSession = attrContinueSession
	RawAttrDecrypt         = attrDecrypt
	RawAttrEncrypt         = attrEncrypt
)

var (
	AttrsFromSession         = attrsFromSession
	BuildCommandAuthArea     = buildCommandAuthArea
	ComputeBindName          = computeBindName
	ComputeSessionHMACKey    = computeSessionHMACKey
	DecryptResponseParameter = decryptResponseParameter
	EncryptCommandParameter  = encryptCommandParameter
	MakeName                 = makeName
	ProcessResponseAuthArea  = processResponseAuthArea
)

// NewTestSession constructs a session with the supplied state, for tests
// that exercise the authorization machinery without a TPM.
func NewTestSession(handle Handle, hashAlg HashAlgorithmId, sessionType SessionType, sessionKey []byte,
	nonceCaller, nonceTPM Nonce) *Session {
	return &Session{
		handle:      handle,
		hashAlg:     hashAlg,
		sessionType: sessionType,
		sessionKey:  sessionKey,
		nonceCaller: nonceCaller,
		nonceTPM:    nonceTPM}
}

// NonceCaller returns the most recent caller nonce for the session.
func (s *Session) NonceCaller() Nonce {
	return s.nonceCaller
}

// WithSymmetric sets the algorithm used for parameter encryption with the
// session.
func (s *Session) WithSymmetric(symmetric *SymDef) *Session {
	s.symmetric = symmetric
	return s
}

// BindTo marks the session as bound to the entity with the supplied name.
func (s *Session) BindTo(entity Name) *Session {
	s.isBound = true
	s.boundEntity = entity
	return s
}
