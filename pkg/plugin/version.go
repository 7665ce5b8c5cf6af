// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package plugin

import (
	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
)

// CodeVersionMismatch marks interface-version gate failures.
const CodeVersionMismatch = "INTERFACE_VERSION_MISMATCH"

// CheckInterfaceVersion gates a plugin's reported interface version against
// the host's InterfaceVersion. Compatible means the same major version and
// a plugin minor version no newer than the host's; patch differences never
// matter. This is a compatibility gate evaluated at registration, not a
// runtime error condition for the plugin itself.
func CheckInterfaceVersion(reported string) error {
	host := semver.MustParse(InterfaceVersion)

	got, err := semver.NewVersion(reported)
	if err != nil {
		return oops.Code(CodeVersionMismatch).
			With("reported", reported).
			Wrapf(err, "plugin interface version is not valid semver")
	}

	if got.Major() != host.Major() {
		return oops.Code(CodeVersionMismatch).
			With("reported", reported).
			With("supported", InterfaceVersion).
			Errorf("plugin interface major version %d does not match host %d", got.Major(), host.Major())
	}
	if got.Minor() > host.Minor() {
		return oops.Code(CodeVersionMismatch).
			With("reported", reported).
			With("supported", InterfaceVersion).
			Errorf("plugin was built against a newer interface (%s) than the host supports (%s)", reported, InterfaceVersion)
	}
	return nil
}
