// SPDX-License-Identifier: ice License 1.0

package clock

import (
	"context"
	"sync"
	stdlibtime "time"

	"github.com/imroc/req/v3"
	"github.com/pkg/errors"
)

// Public API.

const (
	LocalSource   = "local"
	NetworkSource = "network"
)

var (
	ErrClockUnavailable = errors.New("clock unavailable")
)

type (
	// TimeSource is the single notion of "now" used to derive codes.
	// Codes are derived from exactly what it returns: there is no skew tolerance.
	TimeSource interface {
		Now(ctx context.Context) (stdlibtime.Time, error)
	}
	NetworkConfig struct {
		URL            string              `yaml:"url" mapstructure:"url"`
		RequestTimeout stdlibtime.Duration `yaml:"requestTimeout" mapstructure:"requestTimeout"`
		SyncInterval   stdlibtime.Duration `yaml:"syncInterval" mapstructure:"syncInterval"`
		MaxOffsetAge   stdlibtime.Duration `yaml:"maxOffsetAge" mapstructure:"maxOffsetAge"`
	}
)

// Private API.

const (
	defaultRequestTimeout = 5 * stdlibtime.Second
	defaultSyncInterval   = 10 * stdlibtime.Minute
	defaultMaxOffsetAge   = stdlibtime.Hour
)

type (
	local   struct{}
	network struct {
		syncedAt stdlibtime.Time
		client   *req.Client
		now      func() stdlibtime.Time
		cfg      NetworkConfig
		offset   stdlibtime.Duration
		mx       sync.Mutex
		synced   bool
	}
	config struct {
		Source  string        `yaml:"source" mapstructure:"source"`
		Network NetworkConfig `yaml:"network" mapstructure:"network"`
	}
)
