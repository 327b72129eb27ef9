// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"reflect"

	"github.com/canonical/go-esys/mu"
)

// This file contains types defined in section 12 (Key/Object Complex)
// in part 2 of the library spec.

// ObjectTypeId corresponds to the TPMI_ALG_PUBLIC type.
type ObjectTypeId AlgorithmId

const (
	ObjectTypeRSA       ObjectTypeId = ObjectTypeId(AlgorithmRSA)       // TPM_ALG_RSA
	ObjectTypeKeyedHash ObjectTypeId = ObjectTypeId(AlgorithmKeyedHash) // TPM_ALG_KEYEDHASH
	ObjectTypeECC       ObjectTypeId = ObjectTypeId(AlgorithmECC)       // TPM_ALG_ECC
	ObjectTypeSymCipher ObjectTypeId = ObjectTypeId(AlgorithmSymCipher) // TPM_ALG_SYMCIPHER
)

// IsAsymmetric determines if the type corresponds to an asymmetric object.
func (t ObjectTypeId) IsAsymmetric() bool {
	return t == ObjectTypeRSA || t == ObjectTypeECC
}

// KeyedHashParams corresponds to the TPMS_KEYEDHASH_PARMS type, and defines
// the public parameters of a keyed hash object.
type KeyedHashParams struct {
	Scheme KeyedHashScheme
}

// RSAParams corresponds to the TPMS_RSA_PARMS type, and defines the public
// parameters of an RSA object.
type RSAParams struct {
	Symmetric SymDefObject
	Scheme    RSAScheme
	KeyBits   uint16
	Exponent  uint32
}

// ECCParams corresponds to the TPMS_ECC_PARMS type, and defines the public
// parameters of an ECC object.
type ECCParams struct {
	Symmetric SymDefObject
	Scheme    ECCScheme
	CurveID   ECCCurve
	KDF       KDFScheme
}

// PublicParamsU is a union type that corresponds to the TPMU_PUBLIC_PARMS
// type. The selector type is ObjectTypeId.
type PublicParamsU struct {
	KeyedHashDetail *KeyedHashParams
	SymDetail       *SymCipherParams
	RSADetail       *RSAParams
	ECCDetail       *ECCParams
}

// Select implements mu.Union.
func (p *PublicParamsU) Select(selector reflect.Value) interface{} {
	switch selector.Interface().(ObjectTypeId) {
	case ObjectTypeKeyedHash:
		return &p.KeyedHashDetail
	case ObjectTypeSymCipher:
		return &p.SymDetail
	case ObjectTypeRSA:
		return &p.RSADetail
	case ObjectTypeECC:
		return &p.ECCDetail
	default:
		return nil
	}
}

// PublicParams corresponds to the TPMT_PUBLIC_PARMS type, and describes the
// algorithm parameters of an object's public area. Values are immutable
// once constructed - conversion to the wire representation is total for
// well-typed values, with the conversion consuming the value for a single
// command call.
type PublicParams struct {
	Type       ObjectTypeId
	Parameters *PublicParamsU `tpm2:"selector:Type"`
}

var _ mu.Union = (*PublicParamsU)(nil)
var _ mu.Union = (*CapabilitiesU)(nil)
