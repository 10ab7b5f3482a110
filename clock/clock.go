// SPDX-License-Identifier: ice License 1.0

package clock

import (
	"context"
	"strings"
	stdlibtime "time"

	"github.com/pkg/errors"

	appcfg "github.com/ice-blockchain/authenticator/config"
)

func New(applicationYAMLKey string) (TimeSource, error) {
	var cfg config
	appcfg.MustLoadFromKey(applicationYAMLKey, &cfg)
	switch strings.ToLower(cfg.Source) {
	case "", LocalSource:
		return NewLocal(), nil
	case NetworkSource:
		return NewNetwork(&cfg.Network)
	default:
		return nil, errors.Errorf("unsupported clock source %q", cfg.Source)
	}
}

func NewLocal() TimeSource {
	return local{}
}

func (local) Now(context.Context) (stdlibtime.Time, error) {
	return stdlibtime.Now().UTC(), nil
}
