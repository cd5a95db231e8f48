package server

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.EndpointAddrGRPC = "127.0.0.1:0"
	cfg.ServerKey = "0123456789abcdef"
	cfg.ConnectRetries = 0
	cfg.ConnectRetryInterval = time.Millisecond
	cfg.HealthCheckInterval = 10 * time.Millisecond
	return cfg
}

func TestNewApp_SchemesEndToEnd(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{name: "memory cache", mutate: func(c *config.Config) {}},
		{name: "redis cache", mutate: func(c *config.Config) {
			c.SessionBackend = config.SessionBackendRedis
			c.RedisURL = "redis://" + mr.Addr()
		}},
		{name: "signed", mutate: func(c *config.Config) { c.SessionScheme = config.SessionSchemeSigned }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			app, err := NewApp(context.Background(), cfg, nil)
			require.NoError(t, err)
			t.Cleanup(func() { _ = app.Close() })

			ctx := context.Background()
			_, err = app.Auth().Register(ctx, "bob", "hunter2", "Bob Jones")
			require.NoError(t, err)

			token, err := app.Auth().Login(ctx, "bob", "hunter2")
			require.NoError(t, err)
			assert.True(t, app.Auth().IsAuthorized(ctx, "bob", token))
			assert.False(t, app.Auth().IsAuthorized(ctx, "eve", token))

			activity, err := app.Auth().AuthorizedActivity(ctx, "bob", token)
			require.NoError(t, err)
			assert.Len(t, activity, 1)
		})
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.ServerKey = "short"

	_, err := NewApp(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "invalid config")
}

func TestNewApp_UnreachableStores(t *testing.T) {
	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		cfg := testConfig()
		cfg.SessionBackend = config.SessionBackendRedis
		cfg.RedisURL = "redis://" + addr

		_, err := NewApp(context.Background(), cfg, nil)
		assert.ErrorContains(t, err, "session cache init error")
	})

	t.Run("postgres", func(t *testing.T) {
		cfg := testConfig()
		cfg.UserStore = config.UserStorePostgres
		cfg.DatabaseDSN = "postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1"

		_, err := NewApp(context.Background(), cfg, nil)
		assert.ErrorContains(t, err, "db init error")
	})
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestConsistencyLevels(t *testing.T) {
	cfg := testConfig()
	levels, err := consistencyLevels(cfg)
	require.NoError(t, err)
	assert.Equal(t, "linearizable", string(levels.Create))
	assert.Equal(t, "local", string(levels.Fetch))
	assert.Equal(t, "quorum", string(levels.Record))

	cfg.FetchConsistency = "eventual"
	_, err = consistencyLevels(cfg)
	assert.Error(t, err)
}
