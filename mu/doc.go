// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

/*
Package mu provides helpers for marshalling to and unmarshalling from the TPM
wire format.

Go types are marshalled to and from the TPM wire format according to the
following rules:
  - UINT8 / BYTE / INT8 / UINT16 / INT16 / UINT32 / INT32 / UINT64 / INT64
    <-> the corresponding fixed-size go type, big-endian.
  - BOOL <-> bool. A boolean is exactly one octet with the value 0 or 1 on
    the wire; unmarshalling any other octet fails with a wrapped
    *InvalidBoolValueError.
  - TPM2B prefixed types (sized buffers with a 2-byte size field) fall in to
    2 categories:
      - Byte buffer <-> []byte, or any type with an identical underlying type.
      - Sized structure <-> struct referenced via a pointer field in an
        enclosing struct, where the field has the `tpm2:"sized"` tag. A zero
        sized struct is represented as a nil pointer.
  - TPMA prefixed types (attributes) <-> whichever go type corresponds to the
    underlying TPM type.
  - TPML prefixed types (lists with a 4-byte length field) <-> slice of
    whichever go type corresponds to the element type.
  - TPMS prefixed types (structures) <-> struct.
  - TPMT prefixed types (structures with a tag field used as a union
    selector) <-> struct.
  - TPMU prefixed types (unions) <-> struct which implements the Union
    interface. These must be referenced from a field in an enclosing struct,
    where the field has the `tpm2:"selector:<field_name>"` tag referencing a
    valid selector field name in the enclosing struct. Unmarshalling a union
    with an unrecognized selector value fails with a wrapped
    *InvalidSelectorError rather than interpreting undefined fields.

The `tpm2:"raw"` tag on a slice field indicates that it is marshalled and
unmarshalled without a corresponding size or length field. The slice must be
pre-allocated to the correct length by the caller during unmarshalling.

Types that require custom behaviour implement the CustomMarshaller and
CustomUnmarshaller interfaces.
*/
package mu
