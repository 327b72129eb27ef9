// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

// Section 11 - Session Commands

import (
	"fmt"

	"github.com/canonical/go-esys/internal"
)

// StartAuthSession executes the TPM2_StartAuthSession command to start an
// unsalted authorization session of the specified sessionType, and returns
// a new Session instance that can be passed to TPMContext.SetSessions.
//
// The session digest algorithm is specified by authHash, which must be
// available in the current binary. The symmetric argument selects the
// algorithm used for session based parameter encryption, and may be nil for
// sessions that will not encrypt parameters.
//
// If bind is not HandleNull and sessionType is SessionTypeHMAC, the session
// will be bound to the entity associated with bind, and bindAuth must be
// the authorization value of that entity. The session key is derived from
// the authorization value and the initial nonces, and commands
// authorized for the bound entity will not require the entity's
// authorization value again.
func (t *TPMContext) StartAuthSession(bind Handle, bindAuth []byte, sessionType SessionType,
	symmetric *SymDef, authHash HashAlgorithmId) (*Session, error) {
	if symmetric == nil {
		symmetric = &SymDef{Algorithm: SymAlgorithmNull}
	}
	if !authHash.Available() {
		return nil, makeInvalidArgError("authHash",
			fmt.Sprintf("unsupported digest algorithm or algorithm not linked in to binary %v", authHash))
	}
	digestSize := authHash.Size()

	var isBound bool
	var boundEntity Name
	if bind != HandleNull && sessionType == SessionTypeHMAC {
		boundEntity = computeBindName(makeName(bind), bindAuth)
		isBound = true
	}

	nonceCaller := make([]byte, digestSize)
	if err := cryptComputeNonce(nonceCaller); err != nil {
		return nil, fmt.Errorf("cannot compute initial nonceCaller: %v", err)
	}

	var sessionHandle Handle
	var nonceTPM Nonce

	if err := t.RunCommand(CommandStartAuthSession, HandleNull, bind, Delimiter,
		Nonce(nonceCaller), EncryptedSecret(nil), sessionType, symmetric, authHash, Delimiter,
		&sessionHandle, Delimiter, &nonceTPM); err != nil {
		return nil, err
	}

	session := &Session{
		handle:      sessionHandle,
		hashAlg:     authHash,
		sessionType: sessionType,
		isBound:     isBound,
		boundEntity: boundEntity,
		nonceCaller: Nonce(nonceCaller),
		nonceTPM:    nonceTPM,
		symmetric:   symmetric}

	if bind != HandleNull {
		session.sessionKey = internal.KDFa(authHash.GetHash(), bindAuth, []byte(SessionKeyLabel),
			nonceTPM, nonceCaller, digestSize*8)
	}

	return session, nil
}

// FlushContext executes the TPM2_FlushContext command to flush the supplied
// session from the TPM. The session is also removed from this context if it
// was previously set with SetSessions.
func (t *TPMContext) FlushContext(session *Session) error {
	if session == nil {
		return makeInvalidArgError("session", "nil session")
	}
	if session.flushed {
		return makeInvalidArgError("session", "session has already been flushed")
	}

	if err := t.RunCommand(CommandFlushContext, Delimiter, session.handle); err != nil {
		return err
	}

	session.flushed = true
	t.dropFlushedSessions()
	return nil
}
