// SPDX-License-Identifier: ice License 1.0

package log

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:paralleltest // It swaps the global logger.
func TestJSONLogger(t *testing.T) {
	defer setup(os.Stderr, false, defaultLevel)
	var buf bytes.Buffer
	setup(&buf, true, "info")
	assert.Equal(t, "info", Level())

	Debug("hidden")
	Info("boundary crossed", "counter", 1)
	Error(errors.New("boom"), "credentialId", "a")
	Error(nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &info))
	assert.Equal(t, "info", info["level"])
	assert.Equal(t, "boundary crossed", info["message"])
	assert.InDelta(t, 1, info["counter"], 0)
	var failure map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failure))
	assert.Equal(t, "error", failure["level"])
	assert.Equal(t, "boom", failure["error"])
	assert.Equal(t, "a", failure["credentialId"])
}

//nolint:paralleltest // It swaps the global logger.
func TestPanic(t *testing.T) {
	defer setup(os.Stderr, false, defaultLevel)
	var buf bytes.Buffer
	setup(&buf, true, "debug")

	assert.NotPanics(t, func() { Panic(nil) })
	assert.Panics(t, func() { Panic(errors.New("must not happen")) })
	assert.Contains(t, buf.String(), "must not happen")
}

func TestInvalidLevel(t *testing.T) {
	t.Parallel()
	_, err := buildLogger(new(bytes.Buffer), true, "loud")
	require.Error(t, err)
}
