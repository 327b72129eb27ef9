// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

/*
Package esys implements a typed client for communicating with TPM 2.0 devices.

This documentation refers to TPM commands and types that are described in more
detail in the TPM 2.0 Library Specification, which can be found at
https://trustedcomputinggroup.org/resource/tpm-library-specification/.
Knowledge of this specification is assumed in this documentation.

Communication with Linux TPM character devices and TPM simulators
implementing the Microsoft TPM2 simulator interface is supported. The core
type by which consumers of this package communicate with a TPM is
TPMContext.

In order to create a new TPMContext that can be used to communicate with a
Linux TPM character device:

	tcti, err := esys.OpenTPMDevice("/dev/tpm0")
	if err != nil {
		return err
	}
	tpm, _ := esys.NewTPMContext(tcti)

In order to read the manufacturer of the TPM:

	manufacturer, err := tpm.GetCapabilityTPMProperty(esys.PropertyManufacturer)
	if err != nil {
		return err
	}

Commands that require authorization use sessions that are set on the
context beforehand:

	session, err := tpm.StartAuthSession(esys.HandleNull, nil, esys.SessionTypeHMAC, nil, esys.HashAlgorithmSHA256)
	if err != nil {
		return err
	}
	tpm.SetSessions(session.WithAttrs(esys.AttrContinueSession))
*/
package esys
