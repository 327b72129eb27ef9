// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

// This file contains types defined in section 6 (Constants) in
// part 2 of the library spec.

// TPMGenerated corresponds to the TPM_GENERATED type.
type TPMGenerated uint32

const (
	TPMGeneratedValue TPMGenerated = 0xff544347
)

// AlgorithmId corresponds to the TPM_ALG_ID type.
type AlgorithmId uint16

const (
	AlgorithmError          AlgorithmId = 0x0000 // TPM_ALG_ERROR
	AlgorithmRSA            AlgorithmId = 0x0001 // TPM_ALG_RSA
	AlgorithmTDES           AlgorithmId = 0x0003 // TPM_ALG_TDES
	AlgorithmSHA1           AlgorithmId = 0x0004 // TPM_ALG_SHA1
	AlgorithmHMAC           AlgorithmId = 0x0005 // TPM_ALG_HMAC
	AlgorithmAES            AlgorithmId = 0x0006 // TPM_ALG_AES
	AlgorithmMGF1           AlgorithmId = 0x0007 // TPM_ALG_MGF1
	AlgorithmKeyedHash      AlgorithmId = 0x0008 // TPM_ALG_KEYEDHASH
	AlgorithmXOR            AlgorithmId = 0x000a // TPM_ALG_XOR
	AlgorithmSHA256         AlgorithmId = 0x000b // TPM_ALG_SHA256
	AlgorithmSHA384         AlgorithmId = 0x000c // TPM_ALG_SHA384
	AlgorithmSHA512         AlgorithmId = 0x000d // TPM_ALG_SHA512
	AlgorithmNull           AlgorithmId = 0x0010 // TPM_ALG_NULL
	AlgorithmSM3_256        AlgorithmId = 0x0012 // TPM_ALG_SM3_256
	AlgorithmSM4            AlgorithmId = 0x0013 // TPM_ALG_SM4
	AlgorithmRSASSA         AlgorithmId = 0x0014 // TPM_ALG_RSASSA
	AlgorithmRSAES          AlgorithmId = 0x0015 // TPM_ALG_RSAES
	AlgorithmRSAPSS         AlgorithmId = 0x0016 // TPM_ALG_RSAPSS
	AlgorithmOAEP           AlgorithmId = 0x0017 // TPM_ALG_OAEP
	AlgorithmECDSA          AlgorithmId = 0x0018 // TPM_ALG_ECDSA
	AlgorithmECDH           AlgorithmId = 0x0019 // TPM_ALG_ECDH
	AlgorithmECDAA          AlgorithmId = 0x001a // TPM_ALG_ECDAA
	AlgorithmSM2            AlgorithmId = 0x001b // TPM_ALG_SM2
	AlgorithmECSchnorr      AlgorithmId = 0x001c // TPM_ALG_ECSCHNORR
	AlgorithmECMQV          AlgorithmId = 0x001d // TPM_ALG_ECMQV
	AlgorithmKDF1_SP800_56A AlgorithmId = 0x0020 // TPM_ALG_KDF1_SP800_56A
	AlgorithmKDF2           AlgorithmId = 0x0021 // TPM_ALG_KDF2
	AlgorithmKDF1_SP800_108 AlgorithmId = 0x0022 // TPM_ALG_KDF1_SP800_108
	AlgorithmECC            AlgorithmId = 0x0023 // TPM_ALG_ECC
	AlgorithmSymCipher      AlgorithmId = 0x0025 // TPM_ALG_SYMCIPHER
	AlgorithmCamellia       AlgorithmId = 0x0026 // TPM_ALG_CAMELLIA
	AlgorithmSHA3_256       AlgorithmId = 0x0027 // TPM_ALG_SHA3_256
	AlgorithmSHA3_384       AlgorithmId = 0x0028 // TPM_ALG_SHA3_384
	AlgorithmSHA3_512       AlgorithmId = 0x0029 // TPM_ALG_SHA3_512
	AlgorithmCTR            AlgorithmId = 0x0040 // TPM_ALG_CTR
	AlgorithmOFB            AlgorithmId = 0x0041 // TPM_ALG_OFB
	AlgorithmCBC            AlgorithmId = 0x0042 // TPM_ALG_CBC
	AlgorithmCFB            AlgorithmId = 0x0043 // TPM_ALG_CFB
	AlgorithmECB            AlgorithmId = 0x0044 // TPM_ALG_ECB

	AlgorithmFirst AlgorithmId = AlgorithmRSA
)

// ECCCurve corresponds to the TPM_ECC_CURVE type.
type ECCCurve uint16

const (
	ECCCurveNIST_P192 ECCCurve = 0x0001 // TPM_ECC_NIST_P192
	ECCCurveNIST_P224 ECCCurve = 0x0002 // TPM_ECC_NIST_P224
	ECCCurveNIST_P256 ECCCurve = 0x0003 // TPM_ECC_NIST_P256
	ECCCurveNIST_P384 ECCCurve = 0x0004 // TPM_ECC_NIST_P384
	ECCCurveNIST_P521 ECCCurve = 0x0005 // TPM_ECC_NIST_P521
	ECCCurveBN_P256   ECCCurve = 0x0010 // TPM_ECC_BN_P256
	ECCCurveBN_P638   ECCCurve = 0x0011 // TPM_ECC_BN_P638
	ECCCurveSM2_P256  ECCCurve = 0x0020 // TPM_ECC_SM2_P256

	ECCCurveFirst ECCCurve = ECCCurveNIST_P192
)

// CommandCode corresponds to the TPM_CC type.
type CommandCode uint32

const (
	CommandFirst CommandCode = 0x0000011f

	CommandNVUndefineSpaceSpecial CommandCode = 0x0000011f // TPM_CC_NV_UndefineSpaceSpecial
	CommandEvictControl           CommandCode = 0x00000120 // TPM_CC_EvictControl
	CommandNVUndefineSpace        CommandCode = 0x00000122 // TPM_CC_NV_UndefineSpace
	CommandClear                  CommandCode = 0x00000126 // TPM_CC_Clear
	CommandNVDefineSpace          CommandCode = 0x0000012a // TPM_CC_NV_DefineSpace
	CommandCreatePrimary          CommandCode = 0x00000131 // TPM_CC_CreatePrimary
	CommandSelfTest               CommandCode = 0x00000143 // TPM_CC_SelfTest
	CommandStartup                CommandCode = 0x00000144 // TPM_CC_Startup
	CommandShutdown               CommandCode = 0x00000145 // TPM_CC_Shutdown
	CommandContextLoad            CommandCode = 0x00000161 // TPM_CC_ContextLoad
	CommandContextSave            CommandCode = 0x00000162 // TPM_CC_ContextSave
	CommandFlushContext           CommandCode = 0x00000165 // TPM_CC_FlushContext
	CommandReadPublic             CommandCode = 0x00000173 // TPM_CC_ReadPublic
	CommandStartAuthSession       CommandCode = 0x00000176 // TPM_CC_StartAuthSession
	CommandGetCapability          CommandCode = 0x0000017a // TPM_CC_GetCapability
	CommandGetRandom              CommandCode = 0x0000017b // TPM_CC_GetRandom
	CommandGetTestResult          CommandCode = 0x0000017c // TPM_CC_GetTestResult
	CommandPCRRead                CommandCode = 0x0000017e // TPM_CC_PCR_Read
	CommandPolicyRestart          CommandCode = 0x00000180 // TPM_CC_PolicyRestart
	CommandReadClock              CommandCode = 0x00000181 // TPM_CC_ReadClock
	CommandTestParms              CommandCode = 0x0000018a // TPM_CC_TestParms
)

// ResponseCode corresponds to the TPM_RC type.
type ResponseCode uint32

const (
	// Success corresponds to TPM_RC_SUCCESS.
	Success ResponseCode = 0x000
)

// StructTag corresponds to the TPM_ST type.
type StructTag uint16

const (
	TagRspCommand StructTag = 0x00c4 // TPM_ST_RSP_COMMAND
	TagNoSessions StructTag = 0x8001 // TPM_ST_NO_SESSIONS
	TagSessions   StructTag = 0x8002 // TPM_ST_SESSIONS

	TagAttestNV           StructTag = 0x8014 // TPM_ST_ATTEST_NV
	TagAttestCommandAudit StructTag = 0x8015 // TPM_ST_ATTEST_COMMAND_AUDIT
	TagAttestSessionAudit StructTag = 0x8016 // TPM_ST_ATTEST_SESSION_AUDIT
	TagAttestCertify      StructTag = 0x8017 // TPM_ST_ATTEST_CERTIFY
	TagAttestQuote        StructTag = 0x8018 // TPM_ST_ATTEST_QUOTE
	TagAttestTime         StructTag = 0x8019 // TPM_ST_ATTEST_TIME
	TagAttestCreation     StructTag = 0x801a // TPM_ST_ATTEST_CREATION
)

// StartupType corresponds to the TPM_SU type.
type StartupType uint16

const (
	StartupClear StartupType = iota // TPM_SU_CLEAR
	StartupState                    // TPM_SU_STATE
)

// SessionType corresponds to the TPM_SE type.
type SessionType uint8

const (
	SessionTypeHMAC   SessionType = 0x00 // TPM_SE_HMAC
	SessionTypePolicy SessionType = 0x01 // TPM_SE_POLICY
	SessionTypeTrial  SessionType = 0x03 // TPM_SE_TRIAL
)

// Capability corresponds to the TPM_CAP type, and selects the category of
// data returned by TPMContext.GetCapability.
type Capability uint32

const (
	CapabilityAlgs          Capability = 0 // TPM_CAP_ALGS
	CapabilityHandles       Capability = 1 // TPM_CAP_HANDLES
	CapabilityCommands      Capability = 2 // TPM_CAP_COMMANDS
	CapabilityPPCommands    Capability = 3 // TPM_CAP_PP_COMMANDS
	CapabilityAuditCommands Capability = 4 // TPM_CAP_AUDIT_COMMANDS
	CapabilityPCRs          Capability = 5 // TPM_CAP_PCRS
	CapabilityTPMProperties Capability = 6 // TPM_CAP_TPM_PROPERTIES
	CapabilityPCRProperties Capability = 7 // TPM_CAP_PCR_PROPERTIES
	CapabilityECCCurves     Capability = 8 // TPM_CAP_ECC_CURVES
	CapabilityAuthPolicies  Capability = 9 // TPM_CAP_AUTH_POLICIES
	CapabilityACT           Capability = 10 // TPM_CAP_ACT
)

// Property corresponds to the TPM_PT type.
type Property uint32

const (
	propertyGroup Property = 0x100

	PropertyFixed Property = propertyGroup * 1 // PT_FIXED

	PropertyFamilyIndicator   Property = PropertyFixed + 0  // TPM_PT_FAMILY_INDICATOR
	PropertyLevel             Property = PropertyFixed + 1  // TPM_PT_LEVEL
	PropertyRevision          Property = PropertyFixed + 2  // TPM_PT_REVISION
	PropertyDayOfYear         Property = PropertyFixed + 3  // TPM_PT_DAY_OF_YEAR
	PropertyYear              Property = PropertyFixed + 4  // TPM_PT_YEAR
	PropertyManufacturer      Property = PropertyFixed + 5  // TPM_PT_MANUFACTURER
	PropertyVendorString1     Property = PropertyFixed + 6  // TPM_PT_VENDOR_STRING_1
	PropertyInputBuffer       Property = PropertyFixed + 13 // TPM_PT_INPUT_BUFFER
	PropertyHRTransientMin    Property = PropertyFixed + 14 // TPM_PT_HR_TRANSIENT_MIN
	PropertyHRPersistentMin   Property = PropertyFixed + 15 // TPM_PT_HR_PERSISTENT_MIN
	PropertyHRLoadedMin       Property = PropertyFixed + 16 // TPM_PT_HR_LOADED_MIN
	PropertyActiveSessionsMax Property = PropertyFixed + 17 // TPM_PT_ACTIVE_SESSIONS_MAX
	PropertyPCRCount          Property = PropertyFixed + 18 // TPM_PT_PCR_COUNT
	PropertyMaxCommandSize    Property = PropertyFixed + 30 // TPM_PT_MAX_COMMAND_SIZE
	PropertyMaxResponseSize   Property = PropertyFixed + 31 // TPM_PT_MAX_RESPONSE_SIZE
	PropertyNVBufferMax       Property = PropertyFixed + 44 // TPM_PT_NV_BUFFER_MAX

	PropertyVar Property = propertyGroup * 2 // PT_VAR

	PropertyPermanent    Property = PropertyVar + 0 // TPM_PT_PERMANENT
	PropertyStartupClear Property = PropertyVar + 1 // TPM_PT_STARTUP_CLEAR
)

// PropertyPCR corresponds to the TPM_PT_PCR type.
type PropertyPCR uint32

const (
	PropertyPCRSave        PropertyPCR = 0x00 // TPM_PT_PCR_SAVE
	PropertyPCRExtendL0    PropertyPCR = 0x01 // TPM_PT_PCR_EXTEND_L0
	PropertyPCRResetL0     PropertyPCR = 0x02 // TPM_PT_PCR_RESET_L0
	PropertyPCRDRTMReset   PropertyPCR = 0x12 // TPM_PT_PCR_DRTM_RESET
	PropertyPCRPolicy      PropertyPCR = 0x13 // TPM_PT_PCR_POLICY
	PropertyPCRAuth        PropertyPCR = 0x14 // TPM_PT_PCR_AUTH
)

// TPMManufacturer corresponds to the TPM manufacturer, reported in the
// TPM_PT_MANUFACTURER property.
type TPMManufacturer uint32

const (
	TPMManufacturerAMD  TPMManufacturer = 0x414d4400 // AMD
	TPMManufacturerATML TPMManufacturer = 0x41544d4c // Atmel
	TPMManufacturerBRCM TPMManufacturer = 0x4252434d // Broadcom
	TPMManufacturerIBM  TPMManufacturer = 0x49424d00 // IBM
	TPMManufacturerIFX  TPMManufacturer = 0x49465800 // Infineon
	TPMManufacturerINTC TPMManufacturer = 0x494e5443 // Intel
	TPMManufacturerMSFT TPMManufacturer = 0x4d534654 // Microsoft
	TPMManufacturerNTC  TPMManufacturer = 0x4e544300 // Nuvoton Technology
	TPMManufacturerSTM  TPMManufacturer = 0x53544d20 // ST Microelectronics
	TPMManufacturerGOOG TPMManufacturer = 0x474f4f47 // Google
)

const (
	// CapabilityMaxProperties requests the maximum number of properties
	// from TPMContext.GetCapability.
	CapabilityMaxProperties uint32 = 0xffffffff

	// SessionKeyLabel is the label for the session key derivation
	// performed by TPM2_StartAuthSession.
	SessionKeyLabel = "ATH"

	// CFBKeyLabel is the label for the symmetric key derivation used in
	// session-based parameter encryption.
	CFBKeyLabel = "CFB"

	// XORKeyLabel is the label for the mask derivation used in XOR
	// session-based parameter obfuscation.
	XORKeyLabel = "XOR"
)
