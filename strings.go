// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import "fmt"

var commandCodeNames = map[CommandCode]string{
	CommandNVUndefineSpaceSpecial: "TPM_CC_NV_UndefineSpaceSpecial",
	CommandEvictControl:           "TPM_CC_EvictControl",
	CommandNVUndefineSpace:        "TPM_CC_NV_UndefineSpace",
	CommandClear:                  "TPM_CC_Clear",
	CommandNVDefineSpace:          "TPM_CC_NV_DefineSpace",
	CommandCreatePrimary:          "TPM_CC_CreatePrimary",
	CommandStartup:                "TPM_CC_Startup",
	CommandShutdown:               "TPM_CC_Shutdown",
	CommandSelfTest:               "TPM_CC_SelfTest",
	CommandStartAuthSession:       "TPM_CC_StartAuthSession",
	CommandGetCapability:          "TPM_CC_GetCapability",
	CommandGetRandom:              "TPM_CC_GetRandom",
	CommandGetTestResult:          "TPM_CC_GetTestResult",
	CommandPCRRead:                "TPM_CC_PCR_Read",
	CommandPolicyRestart:          "TPM_CC_PolicyRestart",
	CommandReadClock:              "TPM_CC_ReadClock",
	CommandTestParms:              "TPM_CC_TestParms",
	CommandFlushContext:           "TPM_CC_FlushContext",
}

func (c CommandCode) String() string {
	if name, ok := commandCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("TPM_CC_%08x", uint32(c))
}

var capabilityNames = map[Capability]string{
	CapabilityAlgs:          "TPM_CAP_ALGS",
	CapabilityHandles:       "TPM_CAP_HANDLES",
	CapabilityCommands:      "TPM_CAP_COMMANDS",
	CapabilityPPCommands:    "TPM_CAP_PP_COMMANDS",
	CapabilityAuditCommands: "TPM_CAP_AUDIT_COMMANDS",
	CapabilityPCRs:          "TPM_CAP_PCRS",
	CapabilityTPMProperties: "TPM_CAP_TPM_PROPERTIES",
	CapabilityPCRProperties: "TPM_CAP_PCR_PROPERTIES",
	CapabilityECCCurves:     "TPM_CAP_ECC_CURVES",
	CapabilityAuthPolicies:  "TPM_CAP_AUTH_POLICIES",
	CapabilityACT:           "TPM_CAP_ACT",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("TPM_CAP_%08x", uint32(c))
}

func (t StructTag) String() string {
	switch t {
	case TagNoSessions:
		return "TPM_ST_NO_SESSIONS"
	case TagSessions:
		return "TPM_ST_SESSIONS"
	case TagRspCommand:
		return "TPM_ST_RSP_COMMAND"
	default:
		return fmt.Sprintf("TPM_ST_%04x", uint16(t))
	}
}

func (h Handle) String() string {
	switch h {
	case HandleOwner:
		return "TPM_RH_OWNER"
	case HandleNull:
		return "TPM_RH_NULL"
	case HandleUnassigned:
		return "TPM_RH_UNASSIGNED"
	case HandlePW:
		return "TPM_RS_PW"
	case HandleLockout:
		return "TPM_RH_LOCKOUT"
	case HandleEndorsement:
		return "TPM_RH_ENDORSEMENT"
	case HandlePlatform:
		return "TPM_RH_PLATFORM"
	case HandlePlatformNV:
		return "TPM_RH_PLATFORM_NV"
	default:
		return fmt.Sprintf("0x%08x", uint32(h))
	}
}

var warningCodeDescriptions = map[WarningCode]string{
	WarningContextGap:     "gap for context ID is too large",
	WarningObjectMemory:   "out of memory for object contexts",
	WarningSessionMemory:  "out of memory for session contexts",
	WarningMemory:         "out of shared object/session memory or need space for internal operations",
	WarningSessionHandles: "out of session handles - a session must be flushed before a new session may be created",
	WarningObjectHandles:  "out of object handles - the handle space for objects is depleted and a reboot is required",
	WarningLocality:       "bad locality",
	WarningYielded:        "the TPM has suspended operation on the command; forward progress was made and the command may be retried",
	WarningCanceled:       "the command was canceled",
	WarningTesting:        "TPM is performing self-tests",
	WarningNVRate:         "the TPM is rate-limiting accesses to prevent wearout of NV",
	WarningLockout:        "authorizations for objects subject to DA protection are not allowed at this time because the TPM is in DA lockout mode",
	WarningRetry:          "the TPM was not able to start the command",
	WarningNVUnavailable:  "the command may require writing of NV and NV is not current accessible",
}

var errorCodeDescriptions = map[ErrorCode]string{
	ErrorInitialize:      "TPM not initialized by TPM2_Startup or already initialized",
	ErrorFailure:         "commands not being accepted because of a TPM failure",
	ErrorSequence:        "improper use of a sequence handle",
	ErrorDisabled:        "the command is disabled",
	ErrorExclusive:       "command failed because audit sequence required exclusivity",
	ErrorAuthType:        "authorization handle is not correct for command",
	ErrorAuthMissing:     "command requires an authorization session for handle and it is not present",
	ErrorPolicy:          "policy failure in math operation or an invalid authPolicy value",
	ErrorPCR:             "PCR check fail",
	ErrorPCRChanged:      "PCR have changed since checked",
	ErrorUpgrade:         "TPM is in field upgrade mode",
	ErrorTooManyContexts: "context ID counter is at maximum",
	ErrorAuthUnavailable: "authValue or authPolicy is not available for selected entity",
	ErrorReboot:          "a _TPM_Init and Startup(CLEAR) is required before the TPM can resume operation",
	ErrorCommandSize:     "command commandSize value is inconsistent with contents of the command buffer",
	ErrorCommandCode:     "command code not supported",
	ErrorAuthsize:        "the value of authorizationSize is out of range or the number of octets in the Authorization Area is greater than required",
	ErrorAuthContext:     "use of an authorization session with a context command or another command that cannot have an authorization session",
	ErrorNeedsTest:       "the command needs an untested function that has not been tested",
	ErrorNoResult:        "cannot process a request due to an unspecified problem",
	ErrorSensitive:       "the sensitive area did not unmarshal correctly after decryption",

	ErrorAsymmetric:   "asymmetric algorithm not supported or not correct",
	ErrorAttributes:   "inconsistent attributes",
	ErrorHash:         "hash algorithm not supported or not appropriate",
	ErrorValue:        "value is out of range or is not correct for the context",
	ErrorHierarchy:    "hierarchy is not enabled or is not correct for the use",
	ErrorKeySize:      "key size is not supported",
	ErrorMGF:          "mask generation function not supported",
	ErrorMode:         "mode of operation not supported",
	ErrorType:         "the type of the value is not appropriate for the use",
	ErrorHandle:       "the handle is not correct for the use",
	ErrorKDF:          "unsupported key derivation function or function not appropriate for use",
	ErrorRange:        "value was out of allowed range",
	ErrorAuthFail:     "the authorization HMAC check failed and DA counter incremented",
	ErrorNonce:        "invalid nonce size or nonce value mismatch",
	ErrorPP:           "authorization requires assertion of PP",
	ErrorScheme:       "unsupported or incompatible scheme",
	ErrorSize:         "structure is the wrong size",
	ErrorSymmetric:    "unsupported symmetric algorithm or key size, or not appropriate for instance",
	ErrorTag:          "incorrect structure tag",
	ErrorSelector:     "union selector is incorrect",
	ErrorInsufficient: "the TPM was unable to unmarshal a value because there were not enough octets in the input buffer",
	ErrorSignature:    "the signature is not valid",
	ErrorKey:          "key fields are not compatible with the selected use",
	ErrorPolicyFail:   "a policy check failed",
	ErrorIntegrity:    "integrity check failed",
	ErrorTicket:       "invalid ticket",
	ErrorReservedBits: "reserved bits not set to zero as required",
	ErrorBadAuth:      "authorization failure without DA implications",
	ErrorExpired:      "the policy has expired",
	ErrorPolicyCC:     "the commandCode in the policy is not the commandCode of the command",
	ErrorBinding:      "public and sensitive portions of an object are not cryptographically bound",
	ErrorCurve:        "curve not supported",
	ErrorECCPoint:     "point is not on the required curve",
}
