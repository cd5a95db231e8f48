package config

import (
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, 2, c.TokenTTLDays)
	assert.Equal(t, time.Hour, c.SessionCacheTTL)
	assert.Equal(t, SessionSchemeCache, c.SessionScheme)
	assert.Equal(t, SessionBackendMemory, c.SessionBackend)
	assert.Equal(t, UserStoreMemory, c.UserStore)
	assert.Equal(t, "linearizable", c.CreateConsistency)
	assert.Equal(t, "local", c.FetchConsistency)
	assert.Equal(t, "quorum", c.RecordConsistency)
	assert.Equal(t, 5, c.ActivityEntries)
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	c := LoadConfig()
	require.NotNil(t, c)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, &want, c)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "32 byte key", mutate: func(c *Config) { c.ServerKey = "0123456789abcdef0123456789abcdef" }},
		{name: "short key", mutate: func(c *Config) { c.ServerKey = "short" }, wantErr: "invalid server key"},
		{name: "zero ttl", mutate: func(c *Config) { c.TokenTTLDays = 0 }, wantErr: "token ttl"},
		{name: "negative cache ttl", mutate: func(c *Config) { c.SessionCacheTTL = -time.Second }, wantErr: "session cache ttl"},
		{name: "scheme", mutate: func(c *Config) { c.SessionScheme = "jwt" }, wantErr: `unknown session scheme "jwt"`},
		{name: "backend", mutate: func(c *Config) { c.SessionBackend = "memcached" }, wantErr: "unknown session backend"},
		{name: "user store", mutate: func(c *Config) { c.UserStore = "mongo" }, wantErr: "unknown user store"},
		{name: "consistency", mutate: func(c *Config) { c.RecordConsistency = "eventual" }, wantErr: "unknown consistency level"},
		{name: "activity entries", mutate: func(c *Config) { c.ActivityEntries = 0 }, wantErr: "activity entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)

			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.ServerKey = ""
	c.UserStore = ""

	err := c.Validate()
	assert.ErrorIs(t, err, common.ErrorInvalidKey)
	assert.ErrorContains(t, err, "unknown user store")
}
