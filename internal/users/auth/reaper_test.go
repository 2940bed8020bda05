// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/addressbook/internal/users/auth"
	"github.com/taibuivan/addressbook/internal/users/auth/authtest"
)

func plantTokens(tokens *authtest.RefreshTokens, now time.Time) {
	recent := now.Add(-time.Hour)
	old := now.Add(-8 * 24 * time.Hour)

	tokens.Put(auth.RefreshToken{ID: 1, UserID: 1, TokenHash: "active", ExpiresAt: now.Add(time.Hour)})
	tokens.Put(auth.RefreshToken{ID: 2, UserID: 1, TokenHash: "expired", ExpiresAt: now.Add(-time.Minute)})
	tokens.Put(auth.RefreshToken{ID: 3, UserID: 1, TokenHash: "revoked-recently", ExpiresAt: now.Add(time.Hour), RevokedAt: &recent})
	tokens.Put(auth.RefreshToken{ID: 4, UserID: 1, TokenHash: "revoked-long-ago", ExpiresAt: now.Add(time.Hour), RevokedAt: &old})
}

/*
TestReaper_Sweep removes expired and long-revoked tokens only.
*/
func TestReaper_Sweep(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	tokens := authtest.NewRefreshTokens()
	plantTokens(tokens, now)

	reaper := auth.NewReaper(tokens, time.Hour, discardLogger).WithClock(func() time.Time { return now })

	deleted, err := reaper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []string
	for _, row := range tokens.ForUser(1) {
		remaining = append(remaining, row.TokenHash)
	}
	assert.Equal(t, []string{"active", "revoked-recently"}, remaining)
}

/*
TestReaper_RunSweepsAtStartup checks the immediate first pass and shutdown on cancel.
*/
func TestReaper_RunSweepsAtStartup(t *testing.T) {
	now := time.Now()
	tokens := authtest.NewRefreshTokens()
	plantTokens(tokens, now)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		auth.NewReaper(tokens, time.Hour, discardLogger).Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop after cancellation")
	}
	assert.Equal(t, 2, tokens.Len())
}

type failingTokens struct {
	*authtest.RefreshTokens
	calls chan struct{}
}

func (f *failingTokens) DeleteStale(context.Context, time.Time, time.Time) (int64, error) {
	f.calls <- struct{}{}
	return 0, errors.New("connection refused")
}

func TestReaper_KeepsTickingAfterFailure(t *testing.T) {
	repository := &failingTokens{RefreshTokens: authtest.NewRefreshTokens(), calls: make(chan struct{}, 16)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go auth.NewReaper(repository, 10*time.Millisecond, discardLogger).Run(ctx)

	for range 3 {
		select {
		case <-repository.calls:
		case <-time.After(2 * time.Second):
			t.Fatal("reaper stopped after a failed sweep")
		}
	}
}

func TestReaper_SweepError(t *testing.T) {
	repository := &failingTokens{RefreshTokens: authtest.NewRefreshTokens(), calls: make(chan struct{}, 1)}

	_, err := auth.NewReaper(repository, time.Hour, discardLogger).Sweep(context.Background())
	assert.Error(t, err)
}
