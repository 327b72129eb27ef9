// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"crypto/aes"
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"github.com/canonical/go-esys/internal"
)

// isParamEncryptable indicates whether the supplied parameter value is
// marshalled as a sized buffer, which is the only kind of parameter that
// supports session based encryption.
func isParamEncryptable(param interface{}) bool {
	t := reflect.TypeOf(param)
	return t != nil && t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

func computeSessionValue(session *Session) []byte {
	var key []byte
	key = append(key, session.sessionKey...)
	key = append(key, session.AuthValue...)
	return key
}

func decryptSession(sessions []*Session) (*Session, int) {
	for i, session := range sessions {
		if session.Attrs&AttrCommandEncrypt > 0 {
			return session, i
		}
	}
	return nil, -1
}

func encryptSession(sessions []*Session) (*Session, int) {
	for i, session := range sessions {
		if session.Attrs&AttrResponseEncrypt > 0 {
			return session, i
		}
	}
	return nil, -1
}

func computeEncryptNonce(sessions []*Session) Nonce {
	s, i := encryptSession(sessions)
	if s == nil || i == 0 {
		return nil
	}
	if ds, di := decryptSession(sessions); ds != nil && di == i {
		return nil
	}
	return s.nonceTPM
}

// encryptCommandParameter encrypts the first command parameter in place
// using the session with the AttrCommandEncrypt attribute, if there is one.
// It returns the decrypt nonce that must be included in the HMAC of the
// first session when the encrypt session is not also the first session.
func encryptCommandParameter(cpBytes []byte, sessions []*Session) (Nonce, error) {
	session, i := decryptSession(sessions)
	if session == nil {
		return nil, nil
	}

	hashAlg := session.hashAlg
	sessionValue := computeSessionValue(session)

	if len(cpBytes) < 2 {
		return nil, errors.New("parameter area too small")
	}
	size := int(binary.BigEndian.Uint16(cpBytes))
	if size+2 > len(cpBytes) {
		return nil, fmt.Errorf("invalid size of first parameter (%d bytes)", size)
	}
	data := cpBytes[2 : size+2]

	symmetric := session.symmetric

	switch symmetric.Algorithm {
	case SymAlgorithmAES:
		if symmetric.Mode.Sym != SymModeCFB {
			return nil, errors.New("unsupported cipher mode")
		}
		k := internal.KDFa(hashAlg.GetHash(), sessionValue, []byte(CFBKeyLabel), session.nonceCaller,
			session.nonceTPM, int(symmetric.KeyBits.Sym)+(aes.BlockSize*8))
		offset := (symmetric.KeyBits.Sym + 7) / 8
		symKey := k[0:offset]
		iv := k[offset:]
		if err := cryptSymmetricEncrypt(symmetric.Algorithm, symKey, iv, data); err != nil {
			return nil, fmt.Errorf("AES encryption failed: %v", err)
		}
	case SymAlgorithmXOR:
		internal.XORObfuscation(hashAlg.GetHash(), sessionValue, session.nonceCaller, session.nonceTPM, data)
	default:
		return nil, fmt.Errorf("unknown symmetric algorithm: %v", symmetric.Algorithm)
	}

	if i > 0 {
		return session.nonceTPM, nil
	}
	return nil, nil
}

// decryptResponseParameter decrypts the first response parameter in place
// using the session with the AttrResponseEncrypt attribute, if there is one.
func decryptResponseParameter(rpBytes []byte, sessions []*Session) error {
	session, _ := encryptSession(sessions)
	if session == nil {
		return nil
	}

	hashAlg := session.hashAlg
	sessionValue := computeSessionValue(session)

	if len(rpBytes) < 2 {
		return errors.New("parameter area too small")
	}
	size := int(binary.BigEndian.Uint16(rpBytes))
	if size+2 > len(rpBytes) {
		return fmt.Errorf("invalid size of first parameter (%d bytes)", size)
	}
	data := rpBytes[2 : size+2]

	symmetric := session.symmetric

	switch symmetric.Algorithm {
	case SymAlgorithmAES:
		if symmetric.Mode.Sym != SymModeCFB {
			return errors.New("unsupported cipher mode")
		}
		k := internal.KDFa(hashAlg.GetHash(), sessionValue, []byte(CFBKeyLabel), session.nonceTPM,
			session.nonceCaller, int(symmetric.KeyBits.Sym)+(aes.BlockSize*8))
		offset := (symmetric.KeyBits.Sym + 7) / 8
		symKey := k[0:offset]
		iv := k[offset:]
		if err := cryptSymmetricDecrypt(symmetric.Algorithm, symKey, iv, data); err != nil {
			return fmt.Errorf("AES decryption failed: %v", err)
		}
	case SymAlgorithmXOR:
		internal.XORObfuscation(hashAlg.GetHash(), sessionValue, session.nonceTPM, session.nonceCaller, data)
	default:
		return fmt.Errorf("unknown symmetric algorithm: %v", symmetric.Algorithm)
	}

	return nil
}
