// SPDX-License-Identifier: ice License 1.0

package scheduler

import (
	"context"
	stdlibtime "time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/authenticator/clock"
	appcfg "github.com/ice-blockchain/authenticator/config"
	"github.com/ice-blockchain/authenticator/credentials"
	"github.com/ice-blockchain/authenticator/log"
	"github.com/ice-blockchain/authenticator/totp"
)

// New builds a stopped scheduler. Step, digits and algorithm are the generator's.
func New(source credentials.Source, generator totp.Generator, timeSource clock.TimeSource, cfg *Config) Scheduler {
	s := &scheduler{
		source:      source,
		generator:   generator,
		timeSource:  timeSource,
		subscribers: make(map[uint64]chan *Tick),
	}
	if cfg != nil {
		s.cfg = *cfg
	}
	if s.cfg.TickInterval <= 0 {
		s.cfg.TickInterval = DefaultTickInterval
	}

	return s
}

// LoadConfig reads the scheduler section of application.yaml.
func LoadConfig(applicationYAMLKey string) *Config {
	var cfg Config
	appcfg.MustLoadFromKey(applicationYAMLKey, &cfg)

	return &cfg
}

func (s *scheduler) Start(ctx context.Context) error {
	s.lifecycleMx.Lock()
	defer s.lifecycleMx.Unlock()
	if s.done != nil {
		select {
		case <-s.done:
			s.cancel()
		default:
			return ErrAlreadyStarted
		}
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel, s.done = cancel, make(chan struct{})
	go s.run(loopCtx, s.done) //nolint:contextcheck // Owned by the loop until Stop.

	return nil
}

func (s *scheduler) Stop() {
	s.lifecycleMx.Lock()
	defer s.lifecycleMx.Unlock()
	if s.done == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
}

func (s *scheduler) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := stdlibtime.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		s.Tick(ctx) //nolint:errcheck // Tick logs its own failures; the loop keeps ticking.
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *scheduler) Tick(ctx context.Context) (*Tick, error) {
	s.tickMx.Lock()
	defer s.tickMx.Unlock()
	now, err := s.now(ctx)
	if err != nil {
		s.synced = false
		log.Error(err)
		s.remaining.Store(0)
		tick := &Tick{ClockUnavailable: true, Failed: s.invalidate()}
		s.publish(tick)

		return tick, err
	}
	timestamp, step := now.Unix(), s.generator.Options().Step
	tick := &Tick{Now: now, Counter: totp.Counter(timestamp, step), Remaining: totp.Remaining(timestamp, step)}
	s.remaining.Store(tick.Remaining)
	if !s.synced || tick.Counter != s.lastCounter {
		tick.Failed = s.refresh(timestamp, tick.Counter)
		tick.Refreshed = true
		s.synced, s.lastCounter = true, tick.Counter
	}
	s.publish(tick)

	return tick, nil
}

func (s *scheduler) now(ctx context.Context) (stdlibtime.Time, error) {
	now, err := s.timeSource.Now(ctx)
	if err == nil && now.Unix() < 0 {
		err = errors.Errorf("time %v is before the unix epoch", now)
	}
	if err != nil && !errors.Is(err, clock.ErrClockUnavailable) {
		err = multierror.Append(clock.ErrClockUnavailable, err)
	}

	return now, errors.Wrap(err, "failed to read time")
}

// refresh regenerates every code for counter, one pass over a frozen snapshot, and reports how many failed.
func (s *scheduler) refresh(timestamp int64, counter uint64) (failed int) {
	snapshot := s.source.Snapshot()
	codes := make(map[string]credentials.Code, len(snapshot))
	for ix := range snapshot {
		credential := &snapshot[ix]
		value, err := s.generator.Generate(credential.Secret, timestamp)
		if err != nil {
			failed++
			log.Warn("code generation failed", "credentialId", credential.ID, "issuer", credential.Issuer, "error", err.Error())
			codes[credential.ID] = credentials.Code{Status: credentials.Failed, Reason: err.Error(), Counter: counter}

			continue
		}
		codes[credential.ID] = credentials.Code{Status: credentials.Ready, Value: value, Counter: counter}
	}
	s.source.Apply(codes)
	log.Debug("time step boundary crossed", "counter", counter, "credentials", len(snapshot), "failed", failed)

	return failed
}

// invalidate marks every code failed, since the current step can't be known without a clock.
func (s *scheduler) invalidate() (failed int) {
	snapshot := s.source.Snapshot()
	codes := make(map[string]credentials.Code, len(snapshot))
	for ix := range snapshot {
		codes[snapshot[ix].ID] = credentials.Code{Status: credentials.Failed, Reason: clock.ErrClockUnavailable.Error()}
	}
	s.source.Apply(codes)

	return len(codes)
}

func (s *scheduler) Subscribe() (<-chan *Tick, func()) {
	s.subsMx.Lock()
	defer s.subsMx.Unlock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan *Tick, 1)
	s.subscribers[id] = ch

	return ch, func() {
		s.subsMx.Lock()
		defer s.subsMx.Unlock()
		if _, found := s.subscribers[id]; found {
			delete(s.subscribers, id)
			close(ch)
		}
	}
}

func (s *scheduler) publish(tick *Tick) {
	s.subsMx.Lock()
	defer s.subsMx.Unlock()
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- tick
	}
}

func (s *scheduler) Remaining() int64 {
	return s.remaining.Load()
}
