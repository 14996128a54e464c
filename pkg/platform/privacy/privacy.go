// Package privacy provides helpers for keeping raw identifiers out of
// operational log lines. Audit records keep full values; logs get masked ones.
package privacy

import (
	"net"
	"strings"
)

// AnonymizeIP masks the host portion of an IP for logging.
// IPv4 addresses are masked to /24 ("192.0.2.0/24"), IPv6 to /64.
// Unparseable input collapses to "invalid" so raw garbage never hits logs.
func AnonymizeIP(ip string) string {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "invalid"
	}
	if v4 := parsed.To4(); v4 != nil {
		masked := v4.Mask(net.CIDRMask(24, 32))
		return masked.String() + "/24"
	}
	masked := parsed.Mask(net.CIDRMask(64, 128))
	return masked.String() + "/64"
}
