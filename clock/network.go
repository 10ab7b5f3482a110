// SPDX-License-Identifier: ice License 1.0

package clock

import (
	"context"
	"net/http"
	stdlibtime "time"

	"github.com/imroc/req/v3"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/authenticator/log"
)

// NewNetwork builds a TimeSource that trusts the `Date` header of cfg.URL.
// The measured offset is applied to the local clock and refreshed every SyncInterval.
func NewNetwork(cfg *NetworkConfig) (TimeSource, error) {
	return newNetwork(cfg, stdlibtime.Now)
}

func newNetwork(cfg *NetworkConfig, now func() stdlibtime.Time) (*network, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("network clock requires an url")
	}
	resolved := *cfg
	if resolved.RequestTimeout <= 0 {
		resolved.RequestTimeout = defaultRequestTimeout
	}
	if resolved.SyncInterval <= 0 {
		resolved.SyncInterval = defaultSyncInterval
	}
	if resolved.MaxOffsetAge < resolved.SyncInterval {
		resolved.MaxOffsetAge = max(defaultMaxOffsetAge, resolved.SyncInterval)
	}

	return &network{
		client: req.C().SetTimeout(resolved.RequestTimeout),
		cfg:    resolved,
		now:    now,
	}, nil
}

func (n *network) Now(ctx context.Context) (stdlibtime.Time, error) {
	n.mx.Lock()
	defer n.mx.Unlock()
	if localNow := n.now(); !n.synced || localNow.Sub(n.syncedAt) >= n.cfg.SyncInterval {
		if err := n.sync(ctx); err != nil {
			if !n.synced || localNow.Sub(n.syncedAt) >= n.cfg.MaxOffsetAge {
				return stdlibtime.Time{}, errors.Wrapf(ErrClockUnavailable, "%v", err)
			}
			log.Warn("network clock sync failed, using last known offset", "error", err.Error(), "offset", n.offset)
		}
	}

	return n.now().Add(n.offset).UTC(), nil
}

func (n *network) sync(ctx context.Context) error {
	sentAt := n.now()
	resp, err := n.client.R().SetContext(ctx).Head(n.cfg.URL)
	receivedAt := n.now()
	if err != nil {
		return errors.Wrapf(err, "time request to `%v` failed", n.cfg.URL)
	}
	if resp.IsErrorState() {
		return errors.Errorf("time request to `%v` failed with status %v", n.cfg.URL, resp.GetStatusCode())
	}
	remote, err := http.ParseTime(resp.Header.Get("Date"))
	if err != nil {
		return errors.Wrapf(err, "invalid Date header from `%v`", n.cfg.URL)
	}
	roundTrip := receivedAt.Sub(sentAt)
	n.offset = remote.Add(roundTrip / 2).Sub(receivedAt) //nolint:mnd,gomnd // Half of the round trip.
	n.syncedAt = receivedAt
	n.synced = true
	log.Debug("network clock synced", "offset", n.offset, "roundTrip", roundTrip)

	return nil
}
