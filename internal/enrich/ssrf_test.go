package enrich

import (
	"errors"
	"net/netip"
	"net/url"
	"testing"
)

func TestBlockedAddr(t *testing.T) {
	tests := []struct {
		addr    string
		blocked bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"100.64.0.1", true},
		{"0.0.0.0", true},
		{"::1", true},
		{"fd00::1", true},
		{"::ffff:127.0.0.1", true},
		{"93.184.216.34", false},
		{"2606:2800:220:1:248:1893:25c8:1946", false},
	}
	for _, tt := range tests {
		if got := blockedAddr(netip.MustParseAddr(tt.addr)); got != tt.blocked {
			t.Errorf("blockedAddr(%s) = %v, want %v", tt.addr, got, tt.blocked)
		}
	}
}

func TestCheckURL(t *testing.T) {
	tests := []struct {
		raw          string
		allowPrivate bool
		wantErr      bool
	}{
		{"https://example.com/a", false, false},
		{"http://93.184.216.34/", false, false},
		{"file:///etc/passwd", false, true},
		{"gopher://example.com", true, true},
		{"http://127.0.0.1:8080/", false, true},
		{"http://127.0.0.1:8080/", true, false},
		{"http://localhost/", false, true},
		{"http://[::1]/", false, true},
		{"http:///nohost", false, true},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		if err != nil {
			t.Fatalf("parse %s: %v", tt.raw, err)
		}
		err = checkURL(u, tt.allowPrivate)
		if (err != nil) != tt.wantErr {
			t.Errorf("checkURL(%s, %v) error = %v, wantErr %v", tt.raw, tt.allowPrivate, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrBlockedDestination) {
			t.Errorf("checkURL(%s) error should wrap ErrBlockedDestination", tt.raw)
		}
	}
}

func TestDialControl(t *testing.T) {
	if err := dialControl("tcp", "127.0.0.1:80", nil); !errors.Is(err, ErrBlockedDestination) {
		t.Errorf("expected loopback dial to be blocked, got %v", err)
	}
	if err := dialControl("tcp", "93.184.216.34:443", nil); err != nil {
		t.Errorf("expected public dial to pass, got %v", err)
	}
}

func TestIsHTML(t *testing.T) {
	tests := map[string]bool{
		"text/html":                 true,
		"text/html; charset=utf-8":  true,
		"application/xhtml+xml":     true,
		"":                          true,
		"application/json":          false,
		"image/png":                 false,
		"not a / valid; media type": false,
	}
	for ct, want := range tests {
		if got := isHTML(ct); got != want {
			t.Errorf("isHTML(%q) = %v, want %v", ct, got, want)
		}
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	if got := NormalizeUserAgent("TrueScope/0.1 (+https://example.com)"); got != "TrueScope" {
		t.Errorf("unexpected product token %q", got)
	}
}
