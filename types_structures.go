// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/canonical/go-esys/mu"
)

// This file contains types defined in section 10 (Structures) in
// part 2 of the library spec.

// Digest corresponds to the TPM2B_DIGEST type.
type Digest []byte

// Nonce corresponds to the TPM2B_NONCE type.
type Nonce = Digest

// Auth corresponds to the TPM2B_AUTH type.
type Auth = Digest

// Data corresponds to the TPM2B_DATA type.
type Data []byte

// MaxBuffer corresponds to the TPM2B_MAX_BUFFER type.
type MaxBuffer []byte

// EncryptedSecret corresponds to the TPM2B_ENCRYPTED_SECRET type.
type EncryptedSecret []byte

// TaggedHash corresponds to the TPMT_HA type, and is a digest tagged with
// the algorithm that created it. The digest is not marshalled with a size
// field - its length is implied by the algorithm.
type TaggedHash struct {
	HashAlg HashAlgorithmId
	Digest  []byte
}

// Marshal implements mu.CustomMarshaller.
func (p TaggedHash) Marshal(w io.Writer) error {
	if p.HashAlg != HashAlgorithmNull && !p.HashAlg.Available() {
		return fmt.Errorf("cannot determine digest size for unknown algorithm %v", p.HashAlg)
	}
	if p.HashAlg != HashAlgorithmNull && len(p.Digest) != p.HashAlg.Size() {
		return errors.New("invalid digest size")
	}
	if _, err := mu.MarshalToWriter(w, p.HashAlg); err != nil {
		return err
	}
	_, err := w.Write(p.Digest)
	return err
}

// Unmarshal implements mu.CustomUnmarshaller.
func (p *TaggedHash) Unmarshal(r mu.Reader) error {
	if _, err := mu.UnmarshalFromReader(r, &p.HashAlg); err != nil {
		return err
	}
	if p.HashAlg == HashAlgorithmNull {
		p.Digest = nil
		return nil
	}
	if !p.HashAlg.Available() {
		return fmt.Errorf("cannot determine digest size for unknown algorithm %v", p.HashAlg)
	}
	p.Digest = make([]byte, p.HashAlg.Size())
	_, err := io.ReadFull(r, p.Digest)
	return err
}

// PCRSelect is a set of PCR indexes, marshalled to and from the TPMS_PCR_SELECT
// bitmask representation.
type PCRSelect []int

// Marshal implements mu.CustomMarshaller.
func (d PCRSelect) Marshal(w io.Writer) error {
	bytes := make([]byte, 3)

	for _, i := range d {
		if i < 0 {
			return errors.New("invalid PCR index")
		}
		octet := i / 8
		for octet >= len(bytes) {
			bytes = append(bytes, byte(0))
		}
		bit := uint(i % 8)
		bytes[octet] |= 1 << bit
	}

	if _, err := mu.MarshalToWriter(w, uint8(len(bytes))); err != nil {
		return err
	}
	_, err := w.Write(bytes)
	return err
}

// Unmarshal implements mu.CustomUnmarshaller.
func (d *PCRSelect) Unmarshal(r mu.Reader) error {
	var size uint8
	if _, err := mu.UnmarshalFromReader(r, &size); err != nil {
		return err
	}

	bytes := make([]byte, size)
	if _, err := io.ReadFull(r, bytes); err != nil {
		return err
	}

	*d = nil
	for i, octet := range bytes {
		for bit := uint(0); bit < 8; bit++ {
			if octet&(1<<bit) == 0 {
				continue
			}
			*d = append(*d, int(bit)+(i*8))
		}
	}

	return nil
}

// PCRSelection corresponds to the TPMS_PCR_SELECTION type.
type PCRSelection struct {
	Hash   HashAlgorithmId // Hash is the digest algorithm associated with the selection
	Select PCRSelect       // The selected PCRs
}

// PCRSelectionList is a slice of PCRSelection values, and corresponds to
// the TPML_PCR_SELECTION type.
type PCRSelectionList []PCRSelection

// TaggedProperty corresponds to the TPMS_TAGGED_PROPERTY type, and
// represents the value of a property.
type TaggedProperty struct {
	Property Property
	Value    uint32
}

// TaggedPCRSelect corresponds to the TPMS_TAGGED_PCR_SELECT type, and is a
// set of PCR indexes associated with a property.
type TaggedPCRSelect struct {
	Tag    PropertyPCR
	Select PCRSelect
}

// TaggedPolicy corresponds to the TPMS_TAGGED_POLICY type, and is the
// authorization policy associated with a permanent resource.
type TaggedPolicy struct {
	Handle     Handle
	PolicyHash TaggedHash
}

// ACTData corresponds to the TPMS_ACT_DATA type, and is the state of an
// authenticated countdown timer.
type ACTData struct {
	Handle     Handle
	Timeout    uint32
	Attributes uint32
}

// CommandAttributes corresponds to the TPMA_CC type, and defines the
// attributes of a command.
type CommandAttributes uint32

const (
	AttrNVCommand CommandAttributes = 1 << 22
	AttrExtensive CommandAttributes = 1 << 23
	AttrFlushed   CommandAttributes = 1 << 24
	AttrRHandle   CommandAttributes = 1 << 28
	AttrV         CommandAttributes = 1 << 29
)

// CommandCode returns the command code that these attributes belong to.
func (a CommandAttributes) CommandCode() CommandCode {
	return CommandCode(a & 0xffff)
}

// NumberOfCommandHandles returns the number of command handles for the
// command that these attributes belong to.
func (a CommandAttributes) NumberOfCommandHandles() int {
	return int((a & 0x0e000000) >> 25)
}

// CommandCodeList is a slice of CommandCode values, and corresponds to the
// TPML_CC type.
type CommandCodeList []CommandCode

// CommandAttributesList is a slice of CommandAttributes values, and
// corresponds to the TPML_CCA type.
type CommandAttributesList []CommandAttributes

// ECCCurveList is a slice of ECCCurve values, and corresponds to the
// TPML_ECC_CURVE type.
type ECCCurveList []ECCCurve

// TaggedTPMPropertyList is a slice of TaggedProperty values, and
// corresponds to the TPML_TAGGED_TPM_PROPERTY type.
type TaggedTPMPropertyList []TaggedProperty

// TaggedPCRPropertyList is a slice of TaggedPCRSelect values, and
// corresponds to the TPML_TAGGED_PCR_PROPERTY type.
type TaggedPCRPropertyList []TaggedPCRSelect

// TaggedPolicyList is a slice of TaggedPolicy values, and corresponds to
// the TPML_TAGGED_POLICY type.
type TaggedPolicyList []TaggedPolicy

// ACTDataList is a slice of ACTData values, and corresponds to the
// TPML_ACT_DATA type.
type ACTDataList []ACTData

// CapabilitiesU is a union type that corresponds to the TPMU_CAPABILITIES
// type. The selector type is Capability. It is a closed sum over the
// capability categories known to this package - an unrecognized selector
// fails union selection rather than interpreting undefined fields.
type CapabilitiesU struct {
	Algorithms    AlgorithmPropertyList
	Handles       HandleList
	Command       CommandAttributesList
	PPCommands    CommandCodeList
	AuditCommands CommandCodeList
	AssignedPCR   PCRSelectionList
	TPMProperties TaggedTPMPropertyList
	PCRProperties TaggedPCRPropertyList
	ECCCurves     ECCCurveList
	AuthPolicies  TaggedPolicyList
	ACTData       ACTDataList
}

// Select implements mu.Union.
func (d *CapabilitiesU) Select(selector reflect.Value) interface{} {
	switch selector.Interface().(Capability) {
	case CapabilityAlgs:
		return &d.Algorithms
	case CapabilityHandles:
		return &d.Handles
	case CapabilityCommands:
		return &d.Command
	case CapabilityPPCommands:
		return &d.PPCommands
	case CapabilityAuditCommands:
		return &d.AuditCommands
	case CapabilityPCRs:
		return &d.AssignedPCR
	case CapabilityTPMProperties:
		return &d.TPMProperties
	case CapabilityPCRProperties:
		return &d.PCRProperties
	case CapabilityECCCurves:
		return &d.ECCCurves
	case CapabilityAuthPolicies:
		return &d.AuthPolicies
	case CapabilityACT:
		return &d.ACTData
	default:
		return nil
	}
}

// CapabilityData corresponds to the TPMS_CAPABILITY_DATA type, and is
// returned by TPMContext.GetCapability. The capability category selects
// which member of the Data union is populated.
type CapabilityData struct {
	Capability Capability
	Data       CapabilitiesU `tpm2:"selector:Capability"`
}
