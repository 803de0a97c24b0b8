package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultPollInterval    = 30 * time.Second
	DefaultFetchTimeout    = 10 * time.Second
	DefaultSubscriberWait  = 10 * time.Second
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1
)
