package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leadcapture/internal/common/config"
)

// ==========================
// retryWithBackoff
// ==========================

func TestRetryWithBackoff_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, 5, time.Millisecond, zap.NewNop(), "test connection")

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_GivesUp(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(context.Background(), func() error {
		attempts++
		return errors.New("connection refused")
	}, 3, time.Millisecond, zap.NewNop(), "test connection")

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestRetryWithBackoff_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	start := time.Now()
	err := retryWithBackoff(ctx, func() error {
		attempts++
		cancel()
		return errors.New("connection refused")
	}, 15, time.Minute, zap.NewNop(), "test connection")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), time.Second)
}

// ==========================
// connectStores
// ==========================

func TestConnectStores_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{}
	cfg.Database.Redis = config.RedisConfig{Enabled: true, Address: mr.Addr()}

	st := connectStores(context.Background(), cfg, zap.NewNop())
	t.Cleanup(func() { st.close(zap.NewNop()) })

	require.NotNil(t, st.redis)
	assert.Nil(t, st.pg)
	assert.Nil(t, st.es)
	assert.NoError(t, st.ping(context.Background()))
}
