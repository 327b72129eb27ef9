// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/xerrors"
)

// NewCipherFunc creates a block cipher from the supplied key.
type NewCipherFunc func([]byte) (cipher.Block, error)

type symmetricCipher struct {
	fn        NewCipherFunc
	blockSize int
}

var symmetricAlgs = map[SymAlgorithmId]*symmetricCipher{
	SymAlgorithmAES: {aes.NewCipher, aes.BlockSize},
}

// RegisterCipher allows a go block cipher implementation to be registered for the
// specified algorithm, so binaries don't need to link against every implementation.
func RegisterCipher(alg SymAlgorithmId, fn NewCipherFunc, blockSize int) {
	symmetricAlgs[alg] = &symmetricCipher{fn, blockSize}
}

// Available indicates whether a block cipher implementation is registered
// for this algorithm.
func (a SymAlgorithmId) Available() bool {
	_, ok := symmetricAlgs[a]
	return ok
}

// BlockSize returns the block size of this algorithm. It panics if no block
// cipher implementation is registered for it.
func (a SymAlgorithmId) BlockSize() int {
	c, ok := symmetricAlgs[a]
	if !ok {
		panic("unavailable cipher")
	}
	return c.blockSize
}

// NewCipher constructs a new block cipher with the supplied key. It returns
// an error if no block cipher implementation is registered for this
// algorithm.
func (a SymAlgorithmId) NewCipher(key []byte) (cipher.Block, error) {
	c, ok := symmetricAlgs[a]
	if !ok {
		return nil, fmt.Errorf("unavailable cipher %v", AlgorithmId(a))
	}
	return c.fn(key)
}

func cryptComputeCpHash(hashAlg HashAlgorithmId, commandCode CommandCode, commandHandles []Name,
	cpBytes []byte) []byte {
	hash := hashAlg.NewHash()

	binary.Write(hash, binary.BigEndian, commandCode)
	for _, name := range commandHandles {
		hash.Write([]byte(name))
	}
	hash.Write(cpBytes)

	return hash.Sum(nil)
}

func cryptComputeRpHash(hashAlg HashAlgorithmId, responseCode ResponseCode, commandCode CommandCode,
	rpBytes []byte) []byte {
	hash := hashAlg.NewHash()

	binary.Write(hash, binary.BigEndian, responseCode)
	binary.Write(hash, binary.BigEndian, commandCode)
	hash.Write(rpBytes)

	return hash.Sum(nil)
}

func cryptComputeNonce(nonce []byte) error {
	_, err := rand.Read(nonce)
	return err
}

func cryptSymmetricEncrypt(alg SymAlgorithmId, key, iv, data []byte) error {
	switch alg {
	case SymAlgorithmXOR, SymAlgorithmNull:
		return errors.New("unsupported symmetric algorithm")
	default:
		c, err := alg.NewCipher(key)
		if err != nil {
			return xerrors.Errorf("cannot create cipher: %w", err)
		}
		// The TPM uses CFB cipher mode for all secret sharing
		s := cipher.NewCFBEncrypter(c, iv)
		s.XORKeyStream(data, data)
		return nil
	}
}

func cryptSymmetricDecrypt(alg SymAlgorithmId, key, iv, data []byte) error {
	switch alg {
	case SymAlgorithmXOR, SymAlgorithmNull:
		return errors.New("unsupported symmetric algorithm")
	default:
		c, err := alg.NewCipher(key)
		if err != nil {
			return xerrors.Errorf("cannot create cipher: %w", err)
		}
		// The TPM uses CFB cipher mode for all secret sharing
		s := cipher.NewCFBDecrypter(c, iv)
		s.XORKeyStream(data, data)
		return nil
	}
}
