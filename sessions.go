// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"bytes"
	"crypto/hmac"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/canonical/go-esys/mu"
)

// SessionAttributes provides a way to specify the attributes of a session
// for a command.
type SessionAttributes int

const (
	// AttrContinueSession specifies that the session should not be flushed
	// from the TPM after it is used.
	AttrContinueSession SessionAttributes = 1 << iota

	// AttrAuditExclusive specifies that the command should only be executed
	// if the session is exclusive at the start of the command.
	AttrAuditExclusive

	// AttrAuditReset specifies that the audit digest of the session should
	// be reset.
	AttrAuditReset

	// AttrCommandEncrypt specifies that the session should be used for
	// encryption of the first command parameter before being sent from the
	// host to the TPM.
	AttrCommandEncrypt

	// AttrResponseEncrypt specifies that the session should be used for
	// encryption of the first response parameter before being sent from the
	// TPM to the host.
	AttrResponseEncrypt

	// AttrAudit specifies that the session should be used for audit.
	AttrAudit
)

type sessionAttrs uint8

const (
	attrContinueSession sessionAttrs = 1 << iota
	attrAuditExclusive
	attrAuditReset
	attrDecrypt = 1 << (iota + 2)
	attrEncrypt
	attrAudit
)

// Session corresponds to an authorization session that has been loaded in to
// the TPM. Instances are created by TPMContext.StartAuthSession, which sets
// up the state that is required for computing command and response HMACs.
// It is not safe to use a Session from more than one goroutine
// simultaneously.
type Session struct {
	handle      Handle
	hashAlg     HashAlgorithmId
	sessionType SessionType
	isBound     bool
	boundEntity Name
	sessionKey  []byte
	nonceCaller Nonce
	nonceTPM    Nonce
	symmetric   *SymDef
	flushed     bool

	// Attrs is the set of attributes that the session will be used with.
	Attrs SessionAttributes

	// AuthValue is the authorization value of the entity that the session
	// is used to authorize, for sessions that aren't bound to that entity.
	AuthValue []byte
}

// Handle returns the handle of the session on the TPM, or HandleUnassigned
// if the session has been flushed.
func (s *Session) Handle() Handle {
	if s.flushed {
		return HandleUnassigned
	}
	return s.handle
}

// HashAlg returns the digest algorithm of the session.
func (s *Session) HashAlg() HashAlgorithmId {
	return s.hashAlg
}

// NonceTPM returns the most recent TPM nonce for the session.
func (s *Session) NonceTPM() Nonce {
	return s.nonceTPM
}

// WithAttrs returns the session with the specified attributes set, as a
// convenience for passing to TPMContext.SetSessions.
func (s *Session) WithAttrs(attrs SessionAttributes) *Session {
	s.Attrs = attrs
	return s
}

// WithAuthValue returns the session with the specified authorization value
// set, as a convenience for passing to TPMContext.SetSessions.
func (s *Session) WithAuthValue(authValue []byte) *Session {
	s.AuthValue = authValue
	return s
}

func (s *Session) isBoundTo(entity Name) bool {
	if !s.isBound {
		return false
	}
	return bytes.Equal(s.boundEntity, entity)
}

type authCommand struct {
	SessionHandle Handle
	Nonce         Nonce
	SessionAttrs  sessionAttrs
	HMAC          Auth
}

type authResponse struct {
	Nonce        Nonce
	SessionAttrs sessionAttrs
	HMAC         Auth
}

type commandAuthArea []authCommand

func (a commandAuthArea) Marshal(w io.Writer) error {
	tmpBuf := new(bytes.Buffer)
	if _, err := mu.MarshalToWriter(tmpBuf, mu.Raw([]authCommand(a))); err != nil {
		return err
	}

	if err := binary.Write(w, binary.BigEndian, uint32(tmpBuf.Len())); err != nil {
		return fmt.Errorf("cannot write size of auth area to buffer: %w", err)
	}

	_, err := w.Write(tmpBuf.Bytes())
	return err
}

func (a *commandAuthArea) Unmarshal(r mu.Reader) error {
	return errors.New("no need to unmarshal a command's auth area")
}

func attrsFromSession(session *Session) sessionAttrs {
	var attrs sessionAttrs
	if session.Attrs&AttrContinueSession > 0 {
		attrs |= attrContinueSession
	}
	if session.Attrs&AttrAuditExclusive > 0 {
		attrs |= attrAuditExclusive
	}
	if session.Attrs&AttrAuditReset > 0 {
		attrs |= attrAuditReset
	}
	if session.Attrs&AttrCommandEncrypt > 0 {
		attrs |= attrDecrypt
	}
	if session.Attrs&AttrResponseEncrypt > 0 {
		attrs |= attrEncrypt
	}
	if session.Attrs&AttrAudit > 0 {
		attrs |= attrAudit
	}
	return attrs
}

// computeBindName computes the bind name of an entity from its name and
// authorization value, as described in section 19.6.10 of part 1 of the TPM
// reference.
func computeBindName(name Name, auth Auth) Name {
	if len(auth) > len(name) {
		auth = auth[0:len(name)]
	}
	r := make(Name, len(name))
	copy(r, name)
	j := 0
	for i := len(name) - len(auth); i < len(name); i++ {
		r[i] ^= auth[j]
		j++
	}
	return r
}

func computeSessionHMACKey(session *Session, associatedEntity Name) []byte {
	var key []byte
	key = append(key, session.sessionKey...)

	includeAuthValue := true
	if session.sessionType == SessionTypeHMAC {
		includeAuthValue = !session.isBoundTo(associatedEntity)
	}
	if includeAuthValue {
		key = append(key, session.AuthValue...)
	}

	return key
}

func cryptComputeSessionCommandHMAC(session *Session, key, cpHash []byte, decryptNonce, encryptNonce Nonce,
	attrs sessionAttrs) []byte {
	h := hmac.New(session.hashAlg.GetHash().New, key)

	h.Write(cpHash)
	h.Write(session.nonceCaller)
	h.Write(session.nonceTPM)
	h.Write(decryptNonce)
	h.Write(encryptNonce)
	h.Write([]byte{uint8(attrs)})

	return h.Sum(nil)
}

func cryptComputeSessionResponseHMAC(session *Session, key, rpHash []byte, attrs sessionAttrs) []byte {
	h := hmac.New(session.hashAlg.GetHash().New, key)

	h.Write(rpHash)
	h.Write(session.nonceTPM)
	h.Write(session.nonceCaller)
	h.Write([]byte{uint8(attrs)})

	return h.Sum(nil)
}

func computeCallerNonces(sessions []*Session) error {
	for _, session := range sessions {
		if session.handle == HandlePW {
			continue
		}
		if err := cryptComputeNonce(session.nonceCaller); err != nil {
			return fmt.Errorf("cannot compute new caller nonce: %v", err)
		}
	}
	return nil
}

func buildCommandSessionAuth(commandCode CommandCode, commandHandles []Name, cpBytes []byte,
	session *Session, associatedEntity Name, decryptNonce, encryptNonce Nonce) *authCommand {
	attrs := attrsFromSession(session)

	var hmac []byte
	key := computeSessionHMACKey(session, associatedEntity)
	if len(key) > 0 {
		cpHash := cryptComputeCpHash(session.hashAlg, commandCode, commandHandles, cpBytes)
		hmac = cryptComputeSessionCommandHMAC(session, key, cpHash, decryptNonce, encryptNonce, attrs)
	}

	return &authCommand{
		SessionHandle: session.handle,
		Nonce:         session.nonceCaller,
		SessionAttrs:  attrs,
		HMAC:          hmac}
}

func buildCommandPasswordAuth(authValue Auth) *authCommand {
	return &authCommand{SessionHandle: HandlePW, SessionAttrs: attrContinueSession, HMAC: authValue}
}

func buildCommandAuthArea(commandCode CommandCode, commandHandles []Name, cpBytes []byte,
	sessions []*Session) (commandAuthArea, error) {
	if err := computeCallerNonces(sessions); err != nil {
		return nil, fmt.Errorf("cannot compute caller nonces: %v", err)
	}

	decryptNonce, err := encryptCommandParameter(cpBytes, sessions)
	if err != nil {
		return nil, fmt.Errorf("cannot encrypt first command parameter: %v", err)
	}

	encryptNonce := computeEncryptNonce(sessions)

	var area commandAuthArea
	for i, session := range sessions {
		var a *authCommand
		switch {
		case session.Handle() == HandlePW:
			a = buildCommandPasswordAuth(Auth(session.AuthValue))
		default:
			var dn, en Nonce
			if i == 0 {
				dn = decryptNonce
				en = encryptNonce
			}
			var associatedEntity Name
			if i < len(commandHandles) {
				associatedEntity = commandHandles[i]
			}
			a = buildCommandSessionAuth(commandCode, commandHandles, cpBytes, session,
				associatedEntity, dn, en)
		}
		area = append(area, *a)
	}

	return area, nil
}

func processResponseSessionAuth(responseCode ResponseCode, commandCode CommandCode, rpBytes []byte,
	resp authResponse, session *Session, associatedEntity Name) error {
	if session.handle == HandlePW {
		if len(resp.HMAC) != 0 {
			return &InvalidAuthResponseError{Command: commandCode,
				msg: "non-zero length HMAC for password auth"}
		}
		return nil
	}

	session.nonceTPM = resp.Nonce

	if resp.SessionAttrs&attrContinueSession == 0 {
		session.flushed = true
	}

	key := computeSessionHMACKey(session, associatedEntity)
	if len(key) == 0 {
		return nil
	}

	rpHash := cryptComputeRpHash(session.hashAlg, responseCode, commandCode, rpBytes)
	hmac := cryptComputeSessionResponseHMAC(session, key, rpHash, resp.SessionAttrs)

	if !bytes.Equal(hmac, resp.HMAC) {
		return &InvalidAuthResponseError{Command: commandCode, msg: "incorrect HMAC"}
	}

	return nil
}

func processResponseAuthArea(responseCode ResponseCode, commandCode CommandCode, commandHandles []Name,
	rpBytes []byte, authResponses []authResponse, sessions []*Session) error {
	for i, resp := range authResponses {
		var associatedEntity Name
		if i < len(commandHandles) {
			associatedEntity = commandHandles[i]
		}
		if err := processResponseSessionAuth(responseCode, commandCode, rpBytes, resp,
			sessions[i], associatedEntity); err != nil {
			return err
		}
	}

	if err := decryptResponseParameter(rpBytes, sessions); err != nil {
		return fmt.Errorf("cannot decrypt first response parameter: %v", err)
	}

	return nil
}
