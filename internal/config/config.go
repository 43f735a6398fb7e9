// Package config provides runtime configuration values for the engine.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration knobs for the HTTP surface, the remote backend,
// and session persistence.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	RemoteBaseURL   string
	RemoteTimeout   time.Duration
	SessionBlobPath string
	SessionBlobKey  string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults. An empty
// REMOTE_BASE_URL makes the binary embed its own in-process backend.
func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 15),
		RemoteBaseURL:   getenv("REMOTE_BASE_URL", ""),
		RemoteTimeout:   durenvms("REMOTE_TIMEOUT_MS", 10000),
		SessionBlobPath: getenv("SESSION_BLOB_PATH", "session_store.json"),
		SessionBlobKey:  getenv("SESSION_BLOB_KEY", "userData"),
	}
}
