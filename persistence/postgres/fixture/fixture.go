// SPDX-License-Identifier: ice License 1.0

package fixture

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"sync/atomic"
	stdlibtime "time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" //nolint:revive // Registers the pgx driver for wait.ForSQL.
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func New(ctx context.Context) (*Container, error) {
	container, err := postgres.Run(ctx, pgImage,
		postgres.WithDatabase(pgDatabase),
		postgres.WithUsername(pgUser),
		postgres.WithPassword(pgPass),
		testcontainers.WithWaitStrategyAndDeadline(
			stdlibtime.Minute,
			wait.ForExposedPort(),
			wait.ForSQL(nat.Port(dbPort), "pgx", func(host string, port nat.Port) string {
				return connectionURL(host, port.Port(), pgDatabase)
			}),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start postgres container")
	}

	return &Container{container: container, seed: uint64(stdlibtime.Now().UnixMilli())}, nil //nolint:gosec // Positive.
}

func (c *Container) ConnectionString(ctx context.Context, dbName string) (string, error) {
	port, err := c.container.MappedPort(ctx, dbPort)
	if err != nil {
		return "", errors.Wrap(err, "failed to get mapped port")
	}
	host, err := c.container.Host(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to get container host")
	}
	if dbName == "" {
		dbName = pgDatabase
	}

	return connectionURL(host, port.Port(), dbName), nil
}

// TempDB creates a fresh database and returns its connection string.
func (c *Container) TempDB(ctx context.Context) (string, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	primary, err := c.ConnectionString(ctx, pgDatabase)
	if err != nil {
		return "", err
	}
	conn, err := pgx.Connect(ctx, primary)
	if err != nil {
		return "", errors.Wrap(err, "failed to connect to postgres container")
	}
	defer conn.Close(ctx) //nolint:errcheck // Best effort.
	dbName := "authenticatortest" + strconv.FormatUint(atomic.AddUint64(&c.seed, 1), 10)
	if _, err = conn.Exec(ctx, `CREATE DATABASE `+dbName+` TEMPLATE `+pgDatabase); err != nil {
		return "", errors.Wrapf(err, "failed to create database %v", dbName)
	}

	return c.ConnectionString(ctx, dbName)
}

func (c *Container) Close(ctx context.Context) error {
	return errors.Wrap(c.container.Terminate(ctx), "failed to terminate postgres container")
}

func connectionURL(host, port, dbName string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(pgUser, pgPass),
		Host:   net.JoinHostPort(host, port),
		Path:   dbName,
	}

	return u.String()
}
