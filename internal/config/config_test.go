package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"RELAY_URL", "STUN_SERVER", "TURN_SERVER", "TURN_USERNAME", "TURN_PASSWORD",
		"FORCE_RELAY", "CONNECT_TIMEOUT", "LISTEN_ADDR", "REDIS_ADDR", "REDIS_PREFIX",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RelayURL != DefaultRelayURL {
		t.Fatalf("RelayURL = %q", cfg.RelayURL)
	}
	if cfg.STUNServer != DefaultSTUN {
		t.Fatalf("STUNServer = %q", cfg.STUNServer)
	}
	if cfg.ConnectTimeout != DefaultConnectTimeout {
		t.Fatalf("ConnectTimeout = %s", cfg.ConnectTimeout)
	}
	if cfg.ListenAddr != DefaultListenAddr || cfg.RedisPrefix != DefaultRedisPrefix {
		t.Fatalf("relay settings = %q %q", cfg.ListenAddr, cfg.RedisPrefix)
	}
	if cfg.TURNServer != "" || cfg.ForceRelay || cfg.RedisAddr != "" {
		t.Fatalf("unexpected optional settings: %+v", cfg)
	}
}

func TestLoadPriority(t *testing.T) {
	clearEnv(t)
	t.Setenv("RELAY_URL", "wss://env.example/ws")
	t.Setenv("STUN_SERVER", "stun:env.example:3478")
	t.Setenv("CONNECT_TIMEOUT", "5s")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(Options{RelayURL: "ws://flag.example/ws"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RelayURL != "ws://flag.example/ws" {
		t.Fatalf("flag did not win: %q", cfg.RelayURL)
	}
	if cfg.STUNServer != "stun:env.example:3478" {
		t.Fatalf("env did not win over default: %q", cfg.STUNServer)
	}
	if cfg.ConnectTimeout != 5*time.Second {
		t.Fatalf("ConnectTimeout = %s", cfg.ConnectTimeout)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("RedisAddr = %q", cfg.RedisAddr)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		opts Options
		want string
	}{
		{name: "http scheme", opts: Options{RelayURL: "http://relay/ws"}, want: "ws or wss"},
		{name: "no host", opts: Options{RelayURL: "ws:///ws"}, want: "no host"},
		{name: "force relay without turn", opts: Options{ForceRelay: true}, want: "TURN"},
		{name: "bad force relay", env: map[string]string{"FORCE_RELAY": "maybe"}, want: "FORCE_RELAY"},
		{name: "bad timeout", env: map[string]string{"CONNECT_TIMEOUT": "soon"}, want: "CONNECT_TIMEOUT"},
		{name: "negative timeout", opts: Options{ConnectTimeout: -time.Second}, want: "positive"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(tc.opts)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestForceRelayFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("FORCE_RELAY", "true")
	t.Setenv("TURN_SERVER", "turn.example.com")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.ForceRelay {
		t.Fatalf("ForceRelay not set from env")
	}
}

func TestGetTURNServers(t *testing.T) {
	tests := []struct {
		server string
		want   []string
	}{
		{"", nil},
		{"turn.example.com", []string{
			"turn:turn.example.com:3478?transport=udp",
			"turn:turn.example.com:3478?transport=tcp",
			"turns:turn.example.com:5349?transport=tcp",
		}},
		{"turn:turn.example.com", []string{
			"turn:turn.example.com:3478?transport=udp",
			"turn:turn.example.com:3478?transport=tcp",
			"turns:turn.example.com:5349?transport=tcp",
		}},
		{"turn:turn.example.com:3478?transport=udp", []string{"turn:turn.example.com:3478?transport=udp"}},
	}
	for _, tc := range tests {
		cfg := &Config{TURNServer: tc.server}
		if got := cfg.GetTURNServers(); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("GetTURNServers(%q) = %v, want %v", tc.server, got, tc.want)
		}
	}
}

func TestGetSTUNServers(t *testing.T) {
	if got := (&Config{}).GetSTUNServers(); got != nil {
		t.Fatalf("GetSTUNServers on empty config = %v", got)
	}
	if got := (&Config{STUNServer: "stun:a"}).GetSTUNServers(); !reflect.DeepEqual(got, []string{"stun:a"}) {
		t.Fatalf("GetSTUNServers = %v", got)
	}
}
