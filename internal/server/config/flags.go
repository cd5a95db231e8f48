package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

var knownFlags = []string{
	"-a", "-l", "-k", "-t", "-m", "-s", "-b", "-r", "-u", "-d", "-p",
	"-create-consistency", "-fetch-consistency", "-record-consistency",
	"-w", "-n", "-retries", "-retry-interval", "-health-interval",
}

// parseFlags overlays command-line flags onto config.
//
//	-a string   gRPC bind address (e.g. ":50051")
//	-l string   log level
//	-k string   server AES key (16, 24 or 32 bytes)
//	-t int      signed token lifetime, days
//	-m dur      session cache ttl
//	-s string   session scheme: cache | signed
//	-b string   session cache backend: memory | redis
//	-r string   Redis URL
//	-u string   user store: memory | postgres
//	-d string   PostgreSQL DSN
//	-p string   PostgreSQL replica DSN for local reads
//	-create-consistency, -fetch-consistency, -record-consistency
//	            linearizable | quorum | local
//	-w dur      write timeout
//	-n int      activity entries returned by default
//	-retries int, -retry-interval dur   startup connection retries
//	-health-interval dur               health probe period
//
// Each flag may also be spelled with two dashes. Flags not listed above are
// ignored so other layers can share os.Args.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.ServerKey, "k", config.ServerKey, "server key")
	fs.IntVar(&config.TokenTTLDays, "t", config.TokenTTLDays, "signed token validity (in days)")
	fs.DurationVar(&config.SessionCacheTTL, "m", config.SessionCacheTTL, "session cache ttl")
	fs.StringVar(&config.SessionScheme, "s", config.SessionScheme, "session scheme (cache|signed)")
	fs.StringVar(&config.SessionBackend, "b", config.SessionBackend, "session cache backend (memory|redis)")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL")
	fs.StringVar(&config.UserStore, "u", config.UserStore, "user store (memory|postgres)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.ReplicaDSN, "p", config.ReplicaDSN, "replica database DSN")
	fs.StringVar(&config.CreateConsistency, "create-consistency", config.CreateConsistency, "consistency of user creation")
	fs.StringVar(&config.FetchConsistency, "fetch-consistency", config.FetchConsistency, "consistency of user lookups")
	fs.StringVar(&config.RecordConsistency, "record-consistency", config.RecordConsistency, "consistency of access recording")
	fs.DurationVar(&config.WriteTimeout, "w", config.WriteTimeout, "write timeout")
	fs.IntVar(&config.ActivityEntries, "n", config.ActivityEntries, "activity entries")
	fs.Uint64Var(&config.ConnectRetries, "retries", config.ConnectRetries, "startup connection retries")
	fs.DurationVar(&config.ConnectRetryInterval, "retry-interval", config.ConnectRetryInterval, "startup connection retry interval")
	fs.DurationVar(&config.HealthCheckInterval, "health-interval", config.HealthCheckInterval, "health check interval")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
