// SPDX-License-Identifier: ice License 1.0

package config

// Private API.

const (
	applicationFile  = "application.yaml"
	maxDotEnvLookups = 5
)
