// SPDX-License-Identifier: ice License 1.0

package terror

// Public API.

type (
	// Err is a sentinel error decorated with structured data that survives wrapping.
	Err struct {
		error
		Data map[string]any `json:"data"`
	}
)

const (
	FieldKey = "field"
)
