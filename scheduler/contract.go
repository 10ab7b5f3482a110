// SPDX-License-Identifier: ice License 1.0

package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	stdlibtime "time"

	"github.com/pkg/errors"

	"github.com/ice-blockchain/authenticator/clock"
	"github.com/ice-blockchain/authenticator/credentials"
	"github.com/ice-blockchain/authenticator/totp"
)

// Public API.

const (
	DefaultTickInterval = stdlibtime.Second
)

var (
	ErrAlreadyStarted = errors.New("scheduler already started")
)

type (
	Config struct {
		TickInterval stdlibtime.Duration `yaml:"tickInterval" mapstructure:"tickInterval"` //nolint:tagliatelle // Nope.
	}
	// Tick is what one pass observed. Refreshed is set when the pass crossed a step boundary and regenerated every code.
	// ClockUnavailable is set when no time could be read; every code is then failed and Remaining is 0.
	Tick struct {
		Now              stdlibtime.Time `json:"now"`
		Counter          uint64          `json:"counter"`
		Remaining        int64           `json:"remainingSeconds"`
		Failed           int             `json:"failed"`
		Refreshed        bool            `json:"refreshed"`
		ClockUnavailable bool            `json:"clockUnavailable"`
	}
	Scheduler interface {
		// Start runs the refresh loop until ctx is done or Stop is called.
		Start(ctx context.Context) error
		// Stop cancels the loop and waits for it to exit. It is safe to call more than once.
		Stop()
		// Tick runs one pass synchronously. On a clock failure it returns both the failed tick and the error.
		Tick(ctx context.Context) (*Tick, error)
		// Subscribe returns a channel that always holds the latest tick only, and a func to cancel the subscription.
		Subscribe() (<-chan *Tick, func())
		// Remaining is the countdown published by the last successful pass.
		Remaining() int64
	}
)

// Private API.

type (
	scheduler struct {
		source      credentials.Source
		generator   totp.Generator
		timeSource  clock.TimeSource
		subscribers map[uint64]chan *Tick
		cancel      context.CancelFunc
		done        chan struct{}
		cfg         Config
		remaining   atomic.Int64
		lastCounter uint64
		nextSubID   uint64
		tickMx      sync.Mutex
		subsMx      sync.Mutex
		lifecycleMx sync.Mutex
		synced      bool
	}
)
