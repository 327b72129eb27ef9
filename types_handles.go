// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"github.com/canonical/go-esys/mu"
)

// This file contains types defined in section 7 (Handles) in
// part 2 of the library spec.

// Handle corresponds to the TPM_HANDLE type, and is a numeric identifier
// that references a resource on the TPM.
type Handle uint32

const (
	HandleOwner       Handle = 0x40000001 // TPM_RH_OWNER
	HandleRevoke      Handle = 0x40000002 // TPM_RH_REVOKE
	HandleTransport   Handle = 0x40000003 // TPM_RH_TRANSPORT
	HandleOperator    Handle = 0x40000004 // TPM_RH_OPERATOR
	HandleAdmin       Handle = 0x40000005 // TPM_RH_ADMIN
	HandleEK          Handle = 0x40000006 // TPM_RH_EK
	HandleNull        Handle = 0x40000007 // TPM_RH_NULL
	HandleUnassigned  Handle = 0x40000008 // TPM_RH_UNASSIGNED
	HandlePW          Handle = 0x40000009 // TPM_RS_PW
	HandleLockout     Handle = 0x4000000a // TPM_RH_LOCKOUT
	HandleEndorsement Handle = 0x4000000b // TPM_RH_ENDORSEMENT
	HandlePlatform    Handle = 0x4000000c // TPM_RH_PLATFORM
	HandlePlatformNV  Handle = 0x4000000d // TPM_RH_PLATFORM_NV
)

// HandleType corresponds to the TPM_HT type, and is the type of a handle
// encoded in its most significant octet.
type HandleType uint8

const (
	HandleTypePCR           HandleType = 0x00 // TPM_HT_PCR
	HandleTypeNVIndex       HandleType = 0x01 // TPM_HT_NV_INDEX
	HandleTypeHMACSession   HandleType = 0x02 // TPM_HT_HMAC_SESSION
	HandleTypePolicySession HandleType = 0x03 // TPM_HT_POLICY_SESSION
	HandleTypePermanent     HandleType = 0x40 // TPM_HT_PERMANENT
	HandleTypeTransient     HandleType = 0x80 // TPM_HT_TRANSIENT
	HandleTypePersistent    HandleType = 0x81 // TPM_HT_PERSISTENT
)

// Type returns the type of the handle.
func (h Handle) Type() HandleType {
	return HandleType(h >> 24)
}

// IsSession indicates that the handle references a HMAC or policy session.
func (h Handle) IsSession() bool {
	switch h.Type() {
	case HandleTypeHMACSession, HandleTypePolicySession:
		return true
	default:
		return false
	}
}

// Name corresponds to the TPM2B_NAME type. For PCR, session and permanent
// resources, the name is the TPM representation of the handle. For NV
// indexes and objects, it is a digest of the resource's public area.
type Name []byte

// IsHandle indicates that this name is a handle representation.
func (n Name) IsHandle() bool {
	return len(n) == 4
}

// Handle returns the handle this name contains. It panics if IsHandle is
// false.
func (n Name) Handle() Handle {
	if !n.IsHandle() {
		panic("name is not a handle")
	}
	var h Handle
	if _, err := mu.UnmarshalFromBytes(n, &h); err != nil {
		panic(err)
	}
	return h
}

// makeName returns the name of the entity referenced by the supplied handle,
// for handle types where the name is the handle itself.
func makeName(handle Handle) Name {
	return Name(mu.MustMarshalToBytes(handle))
}

// HandleList is a slice of Handle values, and corresponds to the
// TPML_HANDLE type.
type HandleList []Handle
