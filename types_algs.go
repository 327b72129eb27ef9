// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"crypto"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"hash"
	"reflect"

	"github.com/canonical/go-esys/mu"
)

// This file contains types defined in section 11 (Algorithm Parameters
// and Structures) in part 2 of the library spec.

// HashAlgorithmId corresponds to the TPMI_ALG_HASH type.
type HashAlgorithmId AlgorithmId

const (
	HashAlgorithmNull    HashAlgorithmId = HashAlgorithmId(AlgorithmNull)    // TPM_ALG_NULL
	HashAlgorithmSHA1    HashAlgorithmId = HashAlgorithmId(AlgorithmSHA1)    // TPM_ALG_SHA1
	HashAlgorithmSHA256  HashAlgorithmId = HashAlgorithmId(AlgorithmSHA256)  // TPM_ALG_SHA256
	HashAlgorithmSHA384  HashAlgorithmId = HashAlgorithmId(AlgorithmSHA384)  // TPM_ALG_SHA384
	HashAlgorithmSHA512  HashAlgorithmId = HashAlgorithmId(AlgorithmSHA512)  // TPM_ALG_SHA512
	HashAlgorithmSM3_256 HashAlgorithmId = HashAlgorithmId(AlgorithmSM3_256) // TPM_ALG_SM3_256
)

// GetHash returns the equivalent crypto.Hash value for this algorithm if one
// exists, and 0 if one does not exist.
func (a HashAlgorithmId) GetHash() crypto.Hash {
	switch a {
	case HashAlgorithmSHA1:
		return crypto.SHA1
	case HashAlgorithmSHA256:
		return crypto.SHA256
	case HashAlgorithmSHA384:
		return crypto.SHA384
	case HashAlgorithmSHA512:
		return crypto.SHA512
	default:
		return 0
	}
}

// Available determines if the TPM digest algorithm has an equivalent go
// crypto.Hash that is linked into the current binary.
func (a HashAlgorithmId) Available() bool {
	return a.GetHash().Available()
}

// NewHash constructs a new hash.Hash implementation for this algorithm. It
// will panic if HashAlgorithmId.Available returns false.
func (a HashAlgorithmId) NewHash() hash.Hash {
	return a.GetHash().New()
}

// Size returns the size of the algorithm. It will panic if
// HashAlgorithmId.Available returns false.
func (a HashAlgorithmId) Size() int {
	return a.GetHash().Size()
}

// SymAlgorithmId corresponds to the TPMI_ALG_SYM type.
type SymAlgorithmId AlgorithmId

const (
	SymAlgorithmTDES     SymAlgorithmId = SymAlgorithmId(AlgorithmTDES)     // TPM_ALG_TDES
	SymAlgorithmAES      SymAlgorithmId = SymAlgorithmId(AlgorithmAES)      // TPM_ALG_AES
	SymAlgorithmXOR      SymAlgorithmId = SymAlgorithmId(AlgorithmXOR)      // TPM_ALG_XOR
	SymAlgorithmNull     SymAlgorithmId = SymAlgorithmId(AlgorithmNull)     // TPM_ALG_NULL
	SymAlgorithmSM4      SymAlgorithmId = SymAlgorithmId(AlgorithmSM4)      // TPM_ALG_SM4
	SymAlgorithmCamellia SymAlgorithmId = SymAlgorithmId(AlgorithmCamellia) // TPM_ALG_CAMELLIA
)

// SymObjectAlgorithmId corresponds to the TPMI_ALG_SYM_OBJECT type.
type SymObjectAlgorithmId AlgorithmId

const (
	SymObjectAlgorithmAES      SymObjectAlgorithmId = SymObjectAlgorithmId(AlgorithmAES)      // TPM_ALG_AES
	SymObjectAlgorithmNull     SymObjectAlgorithmId = SymObjectAlgorithmId(AlgorithmNull)     // TPM_ALG_NULL
	SymObjectAlgorithmSM4      SymObjectAlgorithmId = SymObjectAlgorithmId(AlgorithmSM4)      // TPM_ALG_SM4
	SymObjectAlgorithmCamellia SymObjectAlgorithmId = SymObjectAlgorithmId(AlgorithmCamellia) // TPM_ALG_CAMELLIA
)

// SymModeId corresponds to the TPMI_ALG_SYM_MODE type.
type SymModeId AlgorithmId

const (
	SymModeNull SymModeId = SymModeId(AlgorithmNull) // TPM_ALG_NULL
	SymModeCTR  SymModeId = SymModeId(AlgorithmCTR)  // TPM_ALG_CTR
	SymModeOFB  SymModeId = SymModeId(AlgorithmOFB)  // TPM_ALG_OFB
	SymModeCBC  SymModeId = SymModeId(AlgorithmCBC)  // TPM_ALG_CBC
	SymModeCFB  SymModeId = SymModeId(AlgorithmCFB)  // TPM_ALG_CFB
	SymModeECB  SymModeId = SymModeId(AlgorithmECB)  // TPM_ALG_ECB
)

// RSASchemeId corresponds to the TPMI_ALG_RSA_SCHEME type.
type RSASchemeId AlgorithmId

const (
	RSASchemeNull   RSASchemeId = RSASchemeId(AlgorithmNull)   // TPM_ALG_NULL
	RSASchemeRSASSA RSASchemeId = RSASchemeId(AlgorithmRSASSA) // TPM_ALG_RSASSA
	RSASchemeRSAES  RSASchemeId = RSASchemeId(AlgorithmRSAES)  // TPM_ALG_RSAES
	RSASchemeRSAPSS RSASchemeId = RSASchemeId(AlgorithmRSAPSS) // TPM_ALG_RSAPSS
	RSASchemeOAEP   RSASchemeId = RSASchemeId(AlgorithmOAEP)   // TPM_ALG_OAEP
)

// ECCSchemeId corresponds to the TPMI_ALG_ECC_SCHEME type.
type ECCSchemeId AlgorithmId

const (
	ECCSchemeNull      ECCSchemeId = ECCSchemeId(AlgorithmNull)      // TPM_ALG_NULL
	ECCSchemeECDSA     ECCSchemeId = ECCSchemeId(AlgorithmECDSA)     // TPM_ALG_ECDSA
	ECCSchemeECDH      ECCSchemeId = ECCSchemeId(AlgorithmECDH)      // TPM_ALG_ECDH
	ECCSchemeECDAA     ECCSchemeId = ECCSchemeId(AlgorithmECDAA)     // TPM_ALG_ECDAA
	ECCSchemeSM2       ECCSchemeId = ECCSchemeId(AlgorithmSM2)       // TPM_ALG_SM2
	ECCSchemeECSchnorr ECCSchemeId = ECCSchemeId(AlgorithmECSchnorr) // TPM_ALG_ECSCHNORR
	ECCSchemeECMQV     ECCSchemeId = ECCSchemeId(AlgorithmECMQV)     // TPM_ALG_ECMQV
)

// KeyedHashSchemeId corresponds to the TPMI_ALG_KEYEDHASH_SCHEME type.
type KeyedHashSchemeId AlgorithmId

const (
	KeyedHashSchemeNull KeyedHashSchemeId = KeyedHashSchemeId(AlgorithmNull) // TPM_ALG_NULL
	KeyedHashSchemeHMAC KeyedHashSchemeId = KeyedHashSchemeId(AlgorithmHMAC) // TPM_ALG_HMAC
	KeyedHashSchemeXOR  KeyedHashSchemeId = KeyedHashSchemeId(AlgorithmXOR)  // TPM_ALG_XOR
)

// KDFAlgorithmId corresponds to the TPMI_ALG_KDF type.
type KDFAlgorithmId AlgorithmId

const (
	KDFAlgorithmNull           KDFAlgorithmId = KDFAlgorithmId(AlgorithmNull)           // TPM_ALG_NULL
	KDFAlgorithmMGF1           KDFAlgorithmId = KDFAlgorithmId(AlgorithmMGF1)           // TPM_ALG_MGF1
	KDFAlgorithmKDF1_SP800_56A KDFAlgorithmId = KDFAlgorithmId(AlgorithmKDF1_SP800_56A) // TPM_ALG_KDF1_SP800_56A
	KDFAlgorithmKDF2           KDFAlgorithmId = KDFAlgorithmId(AlgorithmKDF2)           // TPM_ALG_KDF2
	KDFAlgorithmKDF1_SP800_108 KDFAlgorithmId = KDFAlgorithmId(AlgorithmKDF1_SP800_108) // TPM_ALG_KDF1_SP800_108
)

// AlgorithmAttributes corresponds to the TPMA_ALGORITHM type, and represents
// the attributes for an algorithm.
type AlgorithmAttributes uint32

const (
	AttrAsymmetric AlgorithmAttributes = 1 << 0
	AttrSymmetric  AlgorithmAttributes = 1 << 1
	AttrHash       AlgorithmAttributes = 1 << 2
	AttrObject     AlgorithmAttributes = 1 << 3
	AttrSigning    AlgorithmAttributes = 1 << 8
	AttrEncrypting AlgorithmAttributes = 1 << 9
	AttrMethod     AlgorithmAttributes = 1 << 10
)

// AlgorithmProperty corresponds to the TPMS_ALG_PROPERTY type. It is used to
// report the properties of an algorithm.
type AlgorithmProperty struct {
	Alg        AlgorithmId         // Algorithm identifier
	Properties AlgorithmAttributes // Attributes of the algorithm
}

// AlgorithmPropertyList is a slice of AlgorithmProperty values, and
// corresponds to the TPML_ALG_PROPERTY type.
type AlgorithmPropertyList []AlgorithmProperty

// Empty corresponds to a TPM structure with no contents.
type Empty struct{}

// SchemeHash corresponds to the TPMS_SCHEME_HASH type, and is used by
// schemes that only require a hash algorithm.
type SchemeHash struct {
	HashAlg HashAlgorithmId
}

// SchemeECDAA corresponds to the TPMS_SCHEME_ECDAA type.
type SchemeECDAA struct {
	HashAlg HashAlgorithmId
	Count   uint16
}

// SchemeXOR corresponds to the TPMS_SCHEME_XOR type.
type SchemeXOR struct {
	HashAlg HashAlgorithmId
	KDF     KDFAlgorithmId
}

type SchemeHMAC = SchemeHash

// SchemeKeyedHashU is a union type that corresponds to the
// TPMU_SCHEME_KEYED_HASH type. The selector type is KeyedHashSchemeId.
type SchemeKeyedHashU struct {
	HMAC *SchemeHMAC
	XOR  *SchemeXOR
}

// Select implements mu.Union.
func (d *SchemeKeyedHashU) Select(selector reflect.Value) interface{} {
	switch selector.Interface().(KeyedHashSchemeId) {
	case KeyedHashSchemeHMAC:
		return &d.HMAC
	case KeyedHashSchemeXOR:
		return &d.XOR
	case KeyedHashSchemeNull:
		return mu.NilUnionValue
	default:
		return nil
	}
}

// KeyedHashScheme corresponds to the TPMT_KEYEDHASH_SCHEME type.
type KeyedHashScheme struct {
	Scheme  KeyedHashSchemeId
	Details *SchemeKeyedHashU `tpm2:"selector:Scheme"`
}

type SigSchemeRSASSA = SchemeHash
type SigSchemeRSAPSS = SchemeHash
type SigSchemeECDSA = SchemeHash
type SigSchemeECDAA = SchemeECDAA
type SigSchemeSM2 = SchemeHash
type SigSchemeECSchnorr = SchemeHash
type EncSchemeRSAES = Empty
type EncSchemeOAEP = SchemeHash
type KeySchemeECDH = SchemeHash

// AsymSchemeU is a union type that corresponds to the TPMU_ASYM_SCHEME
// type. The selector type is RSASchemeId or ECCSchemeId.
type AsymSchemeU struct {
	RSASSA    *SigSchemeRSASSA
	RSAES     *EncSchemeRSAES
	RSAPSS    *SigSchemeRSAPSS
	OAEP      *EncSchemeOAEP
	ECDSA     *SigSchemeECDSA
	ECDH      *KeySchemeECDH
	ECDAA     *SigSchemeECDAA
	SM2       *SigSchemeSM2
	ECSchnorr *SigSchemeECSchnorr
}

// Select implements mu.Union.
func (d *AsymSchemeU) Select(selector reflect.Value) interface{} {
	switch AlgorithmId(selector.Uint()) {
	case AlgorithmRSASSA:
		return &d.RSASSA
	case AlgorithmRSAES:
		return &d.RSAES
	case AlgorithmRSAPSS:
		return &d.RSAPSS
	case AlgorithmOAEP:
		return &d.OAEP
	case AlgorithmECDSA:
		return &d.ECDSA
	case AlgorithmECDH:
		return &d.ECDH
	case AlgorithmECDAA:
		return &d.ECDAA
	case AlgorithmSM2:
		return &d.SM2
	case AlgorithmECSchnorr:
		return &d.ECSchnorr
	case AlgorithmNull:
		return mu.NilUnionValue
	default:
		return nil
	}
}

// RSAScheme corresponds to the TPMT_RSA_SCHEME type.
type RSAScheme struct {
	Scheme  RSASchemeId
	Details *AsymSchemeU `tpm2:"selector:Scheme"`
}

// ECCScheme corresponds to the TPMT_ECC_SCHEME type.
type ECCScheme struct {
	Scheme  ECCSchemeId
	Details *AsymSchemeU `tpm2:"selector:Scheme"`
}

// KDFSchemeU is a union type that corresponds to the TPMU_KDF_SCHEME type.
// The selector type is KDFAlgorithmId.
type KDFSchemeU struct {
	MGF1           *SchemeHash
	KDF1_SP800_56A *SchemeHash
	KDF2           *SchemeHash
	KDF1_SP800_108 *SchemeHash
}

// Select implements mu.Union.
func (d *KDFSchemeU) Select(selector reflect.Value) interface{} {
	switch selector.Interface().(KDFAlgorithmId) {
	case KDFAlgorithmMGF1:
		return &d.MGF1
	case KDFAlgorithmKDF1_SP800_56A:
		return &d.KDF1_SP800_56A
	case KDFAlgorithmKDF2:
		return &d.KDF2
	case KDFAlgorithmKDF1_SP800_108:
		return &d.KDF1_SP800_108
	case KDFAlgorithmNull:
		return mu.NilUnionValue
	default:
		return nil
	}
}

// KDFScheme corresponds to the TPMT_KDF_SCHEME type.
type KDFScheme struct {
	Scheme  KDFAlgorithmId
	Details *KDFSchemeU `tpm2:"selector:Scheme"`
}

// SymKeyBitsU is a union type that corresponds to the TPMU_SYM_KEY_BITS
// type. The selector type is SymAlgorithmId or SymObjectAlgorithmId.
type SymKeyBitsU struct {
	Sym uint16
	XOR HashAlgorithmId
}

// Select implements mu.Union.
func (b *SymKeyBitsU) Select(selector reflect.Value) interface{} {
	switch AlgorithmId(selector.Uint()) {
	case AlgorithmTDES, AlgorithmAES, AlgorithmSM4, AlgorithmCamellia:
		return &b.Sym
	case AlgorithmXOR:
		return &b.XOR
	case AlgorithmNull:
		return mu.NilUnionValue
	default:
		return nil
	}
}

// SymModeU is a union type that corresponds to the TPMU_SYM_MODE type. The
// selector type is SymAlgorithmId or SymObjectAlgorithmId.
type SymModeU struct {
	Sym SymModeId
}

// Select implements mu.Union.
func (m *SymModeU) Select(selector reflect.Value) interface{} {
	switch AlgorithmId(selector.Uint()) {
	case AlgorithmTDES, AlgorithmAES, AlgorithmSM4, AlgorithmCamellia:
		return &m.Sym
	case AlgorithmXOR, AlgorithmNull:
		return mu.NilUnionValue
	default:
		return nil
	}
}

// SymDef corresponds to the TPMT_SYM_DEF type, and is used to select the
// algorithm used for parameter encryption.
type SymDef struct {
	Algorithm SymAlgorithmId
	KeyBits   *SymKeyBitsU `tpm2:"selector:Algorithm"`
	Mode      *SymModeU    `tpm2:"selector:Algorithm"`
}

// SymDefObject corresponds to the TPMT_SYM_DEF_OBJECT type, and is used to
// define an object's symmetric algorithm.
type SymDefObject struct {
	Algorithm SymObjectAlgorithmId
	KeyBits   *SymKeyBitsU `tpm2:"selector:Algorithm"`
	Mode      *SymModeU    `tpm2:"selector:Algorithm"`
}

// SymCipherParams corresponds to the TPMS_SYMCIPHER_PARMS type, and
// contains the parameters for a symmetric object.
type SymCipherParams struct {
	Sym SymDefObject
}
