package enrich

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
)

// ErrBlockedDestination is returned for targets the enricher refuses to contact
var ErrBlockedDestination = errors.New("destination not allowed")

var cgnat = netip.MustParsePrefix("100.64.0.0/10")

// blockedAddr reports whether ip is loopback, private, link-local or otherwise internal
func blockedAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		cgnat.Contains(ip)
}

// checkURL rejects non-http(s) schemes, missing hosts and literal internal IPs.
// With allowPrivate only the scheme and host checks apply.
func checkURL(u *url.URL, allowPrivate bool) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrBlockedDestination, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: no host", ErrBlockedDestination)
	}
	if allowPrivate {
		return nil
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return fmt.Errorf("%w: %s", ErrBlockedDestination, host)
	}
	if ip, err := netip.ParseAddr(host); err == nil && blockedAddr(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedDestination, ip)
	}
	return nil
}

// dialControl runs after DNS resolution, so it also catches hostnames that
// resolve to internal addresses.
func dialControl(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: unparseable address %q", ErrBlockedDestination, host)
	}
	if blockedAddr(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedDestination, ip)
	}
	return nil
}
