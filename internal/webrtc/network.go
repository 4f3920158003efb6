package webrtc

import (
	"net"
	"strings"
)

// cgnat is 100.64.0.0/10, used by carrier NAT, Tailscale and Cloudflare WARP.
var cgnat = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

var tunnelNameHints = []string{"tun", "tap", "wg", "ppp", "warp"}

// behindTunnel reports whether the host looks like it sits behind a VPN or
// CGNAT, where direct paths usually fail and TURN should be forced.
func behindTunnel() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		ips := make([]net.IP, 0, len(addrs))
		for _, addr := range addrs {
			switch v := addr.(type) {
			case *net.IPNet:
				ips = append(ips, v.IP)
			case *net.IPAddr:
				ips = append(ips, v.IP)
			}
		}

		if looksLikeTunnel(iface.Name, ips) {
			return true
		}
	}
	return false
}

func looksLikeTunnel(name string, ips []net.IP) bool {
	name = strings.ToLower(name)
	for _, hint := range tunnelNameHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	for _, ip := range ips {
		if cgnat.Contains(ip) {
			return true
		}
	}
	return false
}
