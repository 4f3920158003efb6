package dns

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestLookupPassesIPLiteralsThrough(t *testing.T) {
	r := NewResolver()
	r.lookup = func(context.Context, *net.Resolver, string) ([]string, error) {
		t.Fatalf("resolver should not be consulted for IP literals")
		return nil, nil
	}

	for _, host := range []string{"127.0.0.1", "::1", "10.1.2.3"} {
		got, err := r.Lookup(context.Background(), host)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", host, err)
		}
		if got != net.ParseIP(host).String() {
			t.Fatalf("Lookup(%q) = %q", host, got)
		}
	}
}

func TestLookupPrefersIPv4(t *testing.T) {
	r := NewResolver()
	r.lookup = func(context.Context, *net.Resolver, string) ([]string, error) {
		return []string{"2001:db8::1", "192.0.2.7"}, nil
	}

	got, err := r.Lookup(context.Background(), "relay.example")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != "192.0.2.7" {
		t.Fatalf("Lookup = %q, want 192.0.2.7", got)
	}
}

func TestLookupFallsBackToPublicResolvers(t *testing.T) {
	r := &Resolver{
		Fallback:      []string{"192.0.2.53"},
		LocalTimeout:  time.Second,
		RemoteTimeout: time.Second,
	}
	calls := 0
	r.lookup = func(_ context.Context, res *net.Resolver, host string) ([]string, error) {
		calls++
		if res.Dial == nil {
			return nil, errors.New("system resolver down")
		}
		return []string{"198.51.100.4"}, nil
	}

	got, err := r.Lookup(context.Background(), "relay.example")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != "198.51.100.4" {
		t.Fatalf("Lookup = %q", got)
	}
	if calls != 2 {
		t.Fatalf("resolver calls = %d, want 2", calls)
	}
}

func TestLookupWithoutFallbackReturnsLocalError(t *testing.T) {
	r := &Resolver{LocalTimeout: time.Second}
	r.lookup = func(context.Context, *net.Resolver, string) ([]string, error) {
		return nil, nil
	}

	if _, err := r.Lookup(context.Background(), "relay.example"); !errors.Is(err, ErrNoAddress) {
		t.Fatalf("Lookup = %v, want ErrNoAddress", err)
	}
}
