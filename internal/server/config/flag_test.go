package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-l", "debug", "-k", "0123456789abcdef",
				"-t", "7", "-m", "30m", "-s", "signed", "-b", "redis", "-r", "redis://cache:6379/1",
				"-u", "postgres", "-d", "db", "-p", "replica",
				"-create-consistency", "quorum", "-fetch-consistency=linearizable", "-record-consistency", "local",
				"-w", "3s", "-n", "10", "-retries", "9", "-retry-interval", "1s", "-health-interval", "15s",
			},
			expected: &Config{
				EndpointAddrGRPC:     "127.0.0.1:9090",
				LogLevel:             "debug",
				ServerKey:            "0123456789abcdef",
				TokenTTLDays:         7,
				SessionCacheTTL:      30 * time.Minute,
				SessionScheme:        "signed",
				SessionBackend:       "redis",
				RedisURL:             "redis://cache:6379/1",
				UserStore:            "postgres",
				DatabaseDSN:          "db",
				ReplicaDSN:           "replica",
				CreateConsistency:    "quorum",
				FetchConsistency:     "linearizable",
				RecordConsistency:    "local",
				WriteTimeout:         3 * time.Second,
				ActivityEntries:      10,
				ConnectRetries:       9,
				ConnectRetryInterval: time.Second,
				HealthCheckInterval:  15 * time.Second,
			},
		},
		{
			name: "double dash forms",
			args: []string{"cmd",
				"--create-consistency", "quorum", "--fetch-consistency=local",
				"--record-consistency", "linearizable", "--retries", "4", "--a", ":2",
			},
			expected: &Config{
				EndpointAddrGRPC:  ":2",
				CreateConsistency: "quorum",
				FetchConsistency:  "local",
				RecordConsistency: "linearizable",
				ConnectRetries:    4,
			},
		},
		{
			name:     "unknown flags are ignored",
			args:     []string{"cmd", "-x", "1", "-c", "cfg.json", "-a", ":1"},
			expected: &Config{EndpointAddrGRPC: ":1"},
		},
		{
			name:        "bad value panics",
			args:        []string{"cmd", "-t", "many"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
