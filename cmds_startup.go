// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

// Section 9 - Start-up

// Startup executes the TPM2_Startup command with the specified StartupType.
func (t *TPMContext) Startup(startupType StartupType) error {
	return t.RunCommand(CommandStartup, Delimiter, startupType)
}

// Shutdown executes the TPM2_Shutdown command with the specified
// StartupType, which orders the TPM to prepare for a loss of power.
func (t *TPMContext) Shutdown(shutdownType StartupType) error {
	return t.RunCommand(CommandShutdown, Delimiter, shutdownType)
}
