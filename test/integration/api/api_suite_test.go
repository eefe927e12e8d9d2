// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

//go:build integration

package api_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fundhub/fundhub/internal/auth"
	authpg "github.com/fundhub/fundhub/internal/auth/postgres"
	"github.com/fundhub/fundhub/internal/project"
	projectpg "github.com/fundhub/fundhub/internal/project/postgres"
	"github.com/fundhub/fundhub/internal/store"
	"github.com/fundhub/fundhub/internal/web"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "HTTP API Integration Suite")
}

// testEnv holds the database and the running API server.
type testEnv struct {
	ctx       context.Context
	pool      *pgxpool.Pool
	container testcontainers.Container
	server    *httptest.Server
	sessions  *auth.SessionManager
	clock     *clock
}

// clock is a settable time source shared by the session manager.
type clock struct {
	offset time.Duration
}

func (c *clock) now() time.Time { return time.Now().Add(c.offset) }

var env *testEnv

var _ = BeforeSuite(func() {
	var err error
	env, err = setupTestEnv()
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if env != nil {
		env.cleanup()
	}
})

var _ = BeforeEach(func() {
	_, err := env.pool.Exec(env.ctx, "TRUNCATE sessions, projects, identities")
	Expect(err).NotTo(HaveOccurred())
	env.clock.offset = 0
})

func setupTestEnv() (*testEnv, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("fundhub_test"),
		postgres.WithUsername("fundhub"),
		postgres.WithPassword("fundhub"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}
	_ = migrator.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool, err := store.Connect(ctx, connStr, store.ConnectOptions{RetryAttempts: 3, Logger: logger})
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	clk := &clock{}
	identities := authpg.NewIdentityRepository(pool)
	sessions, err := auth.NewSessionManager(authpg.NewSessionRepository(pool),
		auth.WithClock(clk.now),
		auth.WithDefaultTTL(time.Hour),
		auth.WithSessionLogger(logger))
	if err != nil {
		return nil, err
	}
	authService, err := auth.NewService(identities, sessions,
		auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 64, Threads: 1}),
		auth.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	authorizer, err := auth.NewAuthorizer(sessions, identities, logger)
	if err != nil {
		return nil, err
	}
	projects, err := project.NewService(projectpg.NewRepository(pool), project.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	router := web.NewRouter(web.RouterDeps{
		Auth:       authService,
		Sessions:   sessions,
		Authorizer: authorizer,
		Projects:   projects,
		Tokens:     web.TokenSource{},
		Health:     pool.Ping,
		Logger:     logger,
	})

	return &testEnv{
		ctx:       ctx,
		pool:      pool,
		container: container,
		server:    httptest.NewServer(router),
		sessions:  sessions,
		clock:     clk,
	}, nil
}

func (e *testEnv) cleanup() {
	if e.server != nil {
		e.server.Close()
	}
	if e.pool != nil {
		e.pool.Close()
	}
	if e.container != nil {
		_ = e.container.Terminate(e.ctx)
	}
}
