// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

// Section 30 - Capability Commands

import (
	"fmt"
	"log/slog"
)

// GetCapability executes a single TPM2_GetCapability command, which returns
// various properties of the TPM and its current state. The capability
// argument defines the group of properties to be returned, property defines
// the first property of the group to return, and propertyCount defines the
// number of properties to return.
//
// The returned boolean indicates whether there are more properties in the
// requested group after the ones that were returned, in which case the
// caller can execute the command again with an updated property argument,
// or use GetCapabilityAll to have this done automatically.
//
// If the TPM returns properties for a different capability group than the
// one requested, or the more-data octet in the response is anything other
// than 0 or 1, a *InvalidResponseError is returned.
func (t *TPMContext) GetCapability(capability Capability, property, propertyCount uint32) (*CapabilityData, bool, error) {
	var moreData bool
	var capabilityData CapabilityData

	if err := t.RunCommand(CommandGetCapability, Delimiter, capability, property, propertyCount,
		Delimiter, Delimiter, &moreData, &capabilityData); err != nil {
		slog.Error("get capability failed", "capability", capability, "error", err)
		return nil, false, err
	}

	if capabilityData.Capability != capability {
		err := &InvalidResponseError{CommandGetCapability,
			fmt.Sprintf("unexpected capability %v", capabilityData.Capability)}
		slog.Error("get capability failed", "capability", capability, "error", err)
		return nil, false, err
	}

	return &capabilityData, moreData, nil
}

// GetCapabilityAll works like GetCapability, but if the TPM indicates that
// there are more properties in the requested group than it returned, the
// command is executed repeatedly until the requested number of properties
// has been gathered, and the results are combined in to a single
// CapabilityData instance.
func (t *TPMContext) GetCapabilityAll(capability Capability, property, propertyCount uint32) (*CapabilityData, error) {
	var capabilityData *CapabilityData

	nextProperty := property
	remaining := propertyCount

	for {
		data, moreData, err := t.GetCapability(capability, nextProperty, remaining)
		if err != nil {
			return nil, err
		}

		var s int
		switch capability {
		case CapabilityAlgs:
			s = len(data.Data.Algorithms)
		case CapabilityHandles:
			s = len(data.Data.Handles)
		case CapabilityCommands:
			s = len(data.Data.Command)
		case CapabilityPPCommands:
			s = len(data.Data.PPCommands)
		case CapabilityAuditCommands:
			s = len(data.Data.AuditCommands)
		case CapabilityPCRs:
			s = len(data.Data.AssignedPCR)
		case CapabilityTPMProperties:
			s = len(data.Data.TPMProperties)
		case CapabilityPCRProperties:
			s = len(data.Data.PCRProperties)
		case CapabilityECCCurves:
			s = len(data.Data.ECCCurves)
		case CapabilityAuthPolicies:
			s = len(data.Data.AuthPolicies)
		case CapabilityACT:
			s = len(data.Data.ACTData)
		}

		if capabilityData == nil {
			capabilityData = data
		} else {
			switch capability {
			case CapabilityAlgs:
				capabilityData.Data.Algorithms = append(capabilityData.Data.Algorithms, data.Data.Algorithms...)
			case CapabilityHandles:
				capabilityData.Data.Handles = append(capabilityData.Data.Handles, data.Data.Handles...)
			case CapabilityCommands:
				capabilityData.Data.Command = append(capabilityData.Data.Command, data.Data.Command...)
			case CapabilityPPCommands:
				capabilityData.Data.PPCommands = append(capabilityData.Data.PPCommands, data.Data.PPCommands...)
			case CapabilityAuditCommands:
				capabilityData.Data.AuditCommands = append(capabilityData.Data.AuditCommands, data.Data.AuditCommands...)
			case CapabilityPCRs:
				capabilityData.Data.AssignedPCR = append(capabilityData.Data.AssignedPCR, data.Data.AssignedPCR...)
			case CapabilityTPMProperties:
				capabilityData.Data.TPMProperties = append(capabilityData.Data.TPMProperties, data.Data.TPMProperties...)
			case CapabilityPCRProperties:
				capabilityData.Data.PCRProperties = append(capabilityData.Data.PCRProperties, data.Data.PCRProperties...)
			case CapabilityECCCurves:
				capabilityData.Data.ECCCurves = append(capabilityData.Data.ECCCurves, data.Data.ECCCurves...)
			case CapabilityAuthPolicies:
				capabilityData.Data.AuthPolicies = append(capabilityData.Data.AuthPolicies, data.Data.AuthPolicies...)
			case CapabilityACT:
				capabilityData.Data.ACTData = append(capabilityData.Data.ACTData, data.Data.ACTData...)
			}
		}

		if uint32(s) > remaining {
			return nil, &InvalidResponseError{CommandGetCapability,
				fmt.Sprintf("TPM returned more properties than the %d remaining in the request", remaining)}
		}

		nextProperty += uint32(s)
		remaining -= uint32(s)

		if !moreData {
			break
		}

		if s == 0 || remaining < 1 {
			return nil, &InvalidResponseError{CommandGetCapability,
				"TPM indicates there are more properties to fetch after returning the expected number"}
		}
	}

	return capabilityData, nil
}

// GetCapabilityAlgs returns properties of the algorithms supported by the
// TPM, starting from the algorithm specified by first.
func (t *TPMContext) GetCapabilityAlgs(first AlgorithmId, propertyCount uint32) (AlgorithmPropertyList, error) {
	data, err := t.GetCapabilityAll(CapabilityAlgs, uint32(first), propertyCount)
	if err != nil {
		return nil, err
	}
	return data.Data.Algorithms, nil
}

// GetCapabilityCommands returns attributes of the commands supported by the
// TPM, starting from the command specified by first.
func (t *TPMContext) GetCapabilityCommands(first CommandCode, propertyCount uint32) (CommandAttributesList, error) {
	data, err := t.GetCapabilityAll(CapabilityCommands, uint32(first), propertyCount)
	if err != nil {
		return nil, err
	}
	return data.Data.Command, nil
}

// GetCapabilityPPCommands returns the commands that require assertion of
// physical presence, starting from the command specified by first.
func (t *TPMContext) GetCapabilityPPCommands(first CommandCode, propertyCount uint32) (CommandCodeList, error) {
	data, err := t.GetCapabilityAll(CapabilityPPCommands, uint32(first), propertyCount)
	if err != nil {
		return nil, err
	}
	return data.Data.PPCommands, nil
}

// GetCapabilityAuditCommands returns the commands being audited, starting
// from the command specified by first.
func (t *TPMContext) GetCapabilityAuditCommands(first CommandCode, propertyCount uint32) (CommandCodeList, error) {
	data, err := t.GetCapabilityAll(CapabilityAuditCommands, uint32(first), propertyCount)
	if err != nil {
		return nil, err
	}
	return data.Data.AuditCommands, nil
}

// GetCapabilityHandles returns the handles of resources on the TPM of the
// type determined by handleType, starting from the handle specified by
// handleType.
func (t *TPMContext) GetCapabilityHandles(handleType Handle, propertyCount uint32) (HandleList, error) {
	data, err := t.GetCapabilityAll(CapabilityHandles, uint32(handleType), propertyCount)
	if err != nil {
		return nil, err
	}
	return data.Data.Handles, nil
}

// GetCapabilityPCRs returns the current allocation of PCRs on the TPM.
func (t *TPMContext) GetCapabilityPCRs() (PCRSelectionList, error) {
	data, err := t.GetCapabilityAll(CapabilityPCRs, 0, CapabilityMaxProperties)
	if err != nil {
		return nil, err
	}
	return data.Data.AssignedPCR, nil
}

// GetCapabilityTPMProperties returns values of properties of the TPM,
// starting from the property specified by first.
func (t *TPMContext) GetCapabilityTPMProperties(first Property, propertyCount uint32) (TaggedTPMPropertyList, error) {
	data, err := t.GetCapabilityAll(CapabilityTPMProperties, uint32(first), propertyCount)
	if err != nil {
		return nil, err
	}
	return data.Data.TPMProperties, nil
}

// GetCapabilityTPMProperty returns the value of the specified property.
func (t *TPMContext) GetCapabilityTPMProperty(property Property) (uint32, error) {
	props, err := t.GetCapabilityTPMProperties(property, 1)
	if err != nil {
		return 0, err
	}
	if len(props) == 0 || props[0].Property != property {
		return 0, fmt.Errorf("property %v not returned by TPM", property)
	}
	return props[0].Value, nil
}

// GetCapabilityPCRProperties returns properties of the PCRs on the TPM,
// starting from the property specified by first.
func (t *TPMContext) GetCapabilityPCRProperties(first PropertyPCR, propertyCount uint32) (TaggedPCRPropertyList, error) {
	data, err := t.GetCapabilityAll(CapabilityPCRProperties, uint32(first), propertyCount)
	if err != nil {
		return nil, err
	}
	return data.Data.PCRProperties, nil
}

// GetCapabilityECCCurves returns the ECC curves supported by the TPM.
func (t *TPMContext) GetCapabilityECCCurves() (ECCCurveList, error) {
	data, err := t.GetCapabilityAll(CapabilityECCCurves, uint32(ECCCurveFirst), CapabilityMaxProperties)
	if err != nil {
		return nil, err
	}
	return data.Data.ECCCurves, nil
}

// GetCapabilityAuthPolicies returns the auth policy digests of permanent
// handles, starting from the handle specified by first.
func (t *TPMContext) GetCapabilityAuthPolicies(first Handle, propertyCount uint32) (TaggedPolicyList, error) {
	data, err := t.GetCapabilityAll(CapabilityAuthPolicies, uint32(first), propertyCount)
	if err != nil {
		return nil, err
	}
	return data.Data.AuthPolicies, nil
}

// TestParms executes the TPM2_TestParms command to check that the supplied
// algorithm parameters are valid and supported by the TPM. It returns nil
// if they are. A *TPMParameterError with an error code that describes the
// problem is returned if the TPM rejects the parameters.
func (t *TPMContext) TestParms(parameters *PublicParams) error {
	if parameters == nil {
		return makeInvalidArgError("parameters", "nil parameters")
	}

	if err := t.RunCommand(CommandTestParms, Delimiter, parameters); err != nil {
		if IsTPMParameterError(err, AnyErrorCode, CommandTestParms, AnyParameterIndex) {
			slog.Warn("TPM rejected algorithm parameters", "type", parameters.Type, "error", err)
		} else {
			slog.Error("test parms failed", "error", err)
		}
		return err
	}

	return nil
}
