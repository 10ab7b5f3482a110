// SPDX-License-Identifier: ice License 1.0

package fixture

import (
	"context"
	stdlibtime "time"
)

func New(now stdlibtime.Time) *Clock {
	return &Clock{now: now}
}

// NewAt builds a clock at the given unix second.
func NewAt(unixSeconds int64) *Clock {
	return New(stdlibtime.Unix(unixSeconds, 0).UTC())
}

func (c *Clock) Now(context.Context) (stdlibtime.Time, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.err != nil {
		return stdlibtime.Time{}, c.err
	}

	return c.now, nil
}

func (c *Clock) Set(now stdlibtime.Time) {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.now = now
}

func (c *Clock) SetUnix(unixSeconds int64) {
	c.Set(stdlibtime.Unix(unixSeconds, 0).UTC())
}

func (c *Clock) Advance(d stdlibtime.Duration) {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.now = c.now.Add(d)
}

// Fail makes every subsequent Now return err, until called again with nil.
func (c *Clock) Fail(err error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.err = err
}
