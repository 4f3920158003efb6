package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default configuration values
const (
	DefaultRelayURL       = "ws://localhost:8080/ws"
	DefaultSTUN           = "stun:stun.services.mozilla.com"
	DefaultConnectTimeout = 30 * time.Second
	DefaultListenAddr     = ":8080"
	DefaultRedisPrefix    = "prust"
)

// Config holds application configuration
type Config struct {
	// RelayURL is the websocket endpoint of the signaling relay
	RelayURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay restricts ICE to TURN relay candidates
	ForceRelay bool

	// ConnectTimeout bounds the wait for the data channel to open
	ConnectTimeout time.Duration

	// Relay server settings
	ListenAddr  string
	RedisAddr   string
	RedisPrefix string
}

// Options carries CLI flag overrides. Zero values mean "not set".
type Options struct {
	RelayURL       string
	STUNServer     string
	TURNServer     string
	TURNUser       string
	TURNPass       string
	ForceRelay     bool
	ConnectTimeout time.Duration
	ListenAddr     string
	RedisAddr      string
	RedisPrefix    string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		RelayURL:    pick(opts.RelayURL, "RELAY_URL", DefaultRelayURL),
		STUNServer:  pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer:  pick(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:    pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:    pick(opts.TURNPass, "TURN_PASSWORD", ""),
		ListenAddr:  pick(opts.ListenAddr, "LISTEN_ADDR", DefaultListenAddr),
		RedisAddr:   pick(opts.RedisAddr, "REDIS_ADDR", ""),
		RedisPrefix: pick(opts.RedisPrefix, "REDIS_PREFIX", DefaultRedisPrefix),
	}

	cfg.ForceRelay = opts.ForceRelay
	if !cfg.ForceRelay {
		if v, ok := os.LookupEnv("FORCE_RELAY"); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("invalid FORCE_RELAY %q: %w", v, err)
			}
			cfg.ForceRelay = b
		}
	}

	cfg.ConnectTimeout = opts.ConnectTimeout
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
		if v, ok := os.LookupEnv("CONNECT_TIMEOUT"); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid CONNECT_TIMEOUT %q: %w", v, err)
			}
			cfg.ConnectTimeout = d
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// Validate checks values that cannot be fixed up later.
func (c *Config) Validate() error {
	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return fmt.Errorf("invalid relay URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("relay URL must use ws or wss, got %q", c.RelayURL)
	}
	if u.Host == "" {
		return fmt.Errorf("relay URL has no host: %q", c.RelayURL)
	}
	if c.ForceRelay && c.TURNServer == "" {
		return errors.New("force relay requires a TURN server")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got %s", c.ConnectTimeout)
	}
	return nil
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured. A bare host is
// expanded to the usual UDP, TCP and TLS endpoints.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	if strings.Contains(c.TURNServer, "?transport=") {
		return []string{c.TURNServer}
	}

	host := strings.TrimPrefix(strings.TrimPrefix(c.TURNServer, "turns:"), "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
