package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept either a
// string such as "1h" or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC     string         `json:"endpoint_addr_grpc"`
	LogLevel             string         `json:"log_level"`
	ServerKey            string         `json:"server_key"`
	TokenTTLDays         int            `json:"token_ttl_days"`
	SessionCacheTTL      timex.Duration `json:"session_cache_ttl"`
	SessionScheme        string         `json:"session_scheme"`
	SessionBackend       string         `json:"session_backend"`
	RedisURL             string         `json:"redis_url"`
	UserStore            string         `json:"user_store"`
	DatabaseDSN          string         `json:"database_dsn"`
	ReplicaDSN           string         `json:"replica_dsn"`
	CreateConsistency    string         `json:"create_consistency"`
	FetchConsistency     string         `json:"fetch_consistency"`
	RecordConsistency    string         `json:"record_consistency"`
	WriteTimeout         timex.Duration `json:"write_timeout"`
	ActivityEntries      int            `json:"activity_entries"`
	ConnectRetries       uint64         `json:"connect_retries"`
	ConnectRetryInterval timex.Duration `json:"connect_retry_interval"`
	HealthCheckInterval  timex.Duration `json:"health_check_interval"`
}

// parseJson overlays values from the file named by -c/-config onto config.
// Fields missing from the file keep their current value. An unreadable or
// malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFile(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.ServerKey, c.ServerKey)
	setInt(&config.TokenTTLDays, c.TokenTTLDays)
	setDuration(&config.SessionCacheTTL, c.SessionCacheTTL)
	setString(&config.SessionScheme, c.SessionScheme)
	setString(&config.SessionBackend, c.SessionBackend)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.UserStore, c.UserStore)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.ReplicaDSN, c.ReplicaDSN)
	setString(&config.CreateConsistency, c.CreateConsistency)
	setString(&config.FetchConsistency, c.FetchConsistency)
	setString(&config.RecordConsistency, c.RecordConsistency)
	setDuration(&config.WriteTimeout, c.WriteTimeout)
	setInt(&config.ActivityEntries, c.ActivityEntries)
	if c.ConnectRetries != 0 {
		config.ConnectRetries = c.ConnectRetries
	}
	setDuration(&config.ConnectRetryInterval, c.ConnectRetryInterval)
	setDuration(&config.HealthCheckInterval, c.HealthCheckInterval)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
