// SPDX-License-Identifier: ice License 1.0

package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ice-blockchain/authenticator/api"
	"github.com/ice-blockchain/authenticator/clock"
	appcfg "github.com/ice-blockchain/authenticator/config"
	"github.com/ice-blockchain/authenticator/credentials"
	"github.com/ice-blockchain/authenticator/identity"
	"github.com/ice-blockchain/authenticator/log"
	"github.com/ice-blockchain/authenticator/persistence"
	"github.com/ice-blockchain/authenticator/persistence/memory"
	"github.com/ice-blockchain/authenticator/persistence/postgres"
	"github.com/ice-blockchain/authenticator/persistence/sqlite"
	"github.com/ice-blockchain/authenticator/privacy"
	"github.com/ice-blockchain/authenticator/scheduler"
	"github.com/ice-blockchain/authenticator/server"
	"github.com/ice-blockchain/authenticator/totp"
)

const (
	applicationYamlKey = "authenticator"
	persistenceYamlKey = applicationYamlKey + "/persistence"
)

type (
	persistenceConfig struct {
		Driver   string          `yaml:"driver" mapstructure:"driver"`
		SQLite   sqlite.Config   `yaml:"sqlite" mapstructure:"sqlite"`
		Postgres postgres.Config `yaml:"postgres" mapstructure:"postgres"`
	}
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := must(openRepository(ctx))
	defer func() {
		log.Error(errors.Wrap(repo.Close(), "failed to close repository"))
	}()
	generator := must(totp.New(applicationYamlKey + "/totp"))
	timeSource := must(clock.New(applicationYamlKey + "/clock"))
	provider := must(identity.New(applicationYamlKey + "/identity"))

	store := credentials.New(repo, identity.ContextGate())
	if err := store.Load(ctx); err != nil {
		if errors.Is(err, credentials.ErrPersistence) {
			log.Panic(err)
		}
		log.Error(err)
	}
	sched := scheduler.New(store, generator, timeSource, scheduler.LoadConfig(applicationYamlKey+"/scheduler"))
	if err := sched.Start(ctx); err != nil {
		log.Panic(err)
	}
	defer sched.Stop()

	server.New(api.New(store, sched, generator, timeSource), applicationYamlKey+"/server", provider).ListenAndServe(ctx, cancel)
}

func openRepository(ctx context.Context) (persistence.Repository, error) {
	var cfg persistenceConfig
	appcfg.MustLoadFromKey(persistenceYamlKey, &cfg)

	return newRepository(ctx, &cfg, func() (privacy.EncryptDecrypter, error) {
		return privacy.New(applicationYamlKey + "/privacy")
	})
}

func newRepository(
	ctx context.Context, cfg *persistenceConfig, encryptDecrypter func() (privacy.EncryptDecrypter, error),
) (persistence.Repository, error) {
	switch cfg.Driver {
	case persistence.MemoryDriver:
		return memory.New(), nil
	case persistence.SQLiteDriver, persistence.PostgresDriver:
	default:
		return nil, errors.Errorf("unsupported persistence driver %q", cfg.Driver)
	}
	ed, err := encryptDecrypter()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build encrypter")
	}
	if cfg.Driver == persistence.SQLiteDriver {
		return sqlite.New(ctx, &cfg.SQLite, ed) //nolint:wrapcheck // No need, it's already wrapped.
	}

	return postgres.New(ctx, persistenceYamlKey, &cfg.Postgres, ed) //nolint:wrapcheck // No need, it's already wrapped.
}

func must[T any](val T, err error) T {
	if err != nil {
		log.Panic(err)
	}

	return val
}
