// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fundhub/fundhub/internal/auth"
	"github.com/fundhub/fundhub/internal/auth/authtest"
)

func TestNewSweeper_NilSessionManager(t *testing.T) {
	s, err := auth.NewSweeper(nil, time.Minute, nil)
	require.Error(t, err)
	assert.Nil(t, s)
}

func TestSweeper_RunOnce(t *testing.T) {
	ctx := context.Background()
	store := authtest.NewSessionStore()
	clock := newClock()
	sessions, err := auth.NewSessionManager(store, auth.WithClock(clock.Now))
	require.NoError(t, err)

	_, _, err = sessions.Create(ctx, ulid.Make(), time.Minute, auth.ClientInfo{})
	require.NoError(t, err)
	clock.Advance(time.Hour)

	sweeper, err := auth.NewSweeper(sessions, time.Minute, nil)
	require.NoError(t, err)

	n, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 0, store.Len())
}

func TestSweeper_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	store := authtest.NewSessionStore()
	sessions, err := auth.NewSessionManager(store)
	require.NoError(t, err)

	_, _, err = sessions.Create(ctx, ulid.Make(), time.Millisecond, auth.ClientInfo{})
	require.NoError(t, err)

	sweeper, err := auth.NewSweeper(sessions, 5*time.Millisecond, nil)
	require.NoError(t, err)

	sweeper.Start(ctx)
	sweeper.Start(ctx) // second start is a no-op

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	sweeper.Stop() // idempotent
}
