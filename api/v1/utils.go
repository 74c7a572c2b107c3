package v1

import (
	"net"
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// proxyHeaders are consulted in order after X-Forwarded-For.
var proxyHeaders = []string{
	"X-Real-IP",
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Client-IP",
}

// getClientIP resolves the client address behind reverse proxies. Private
// and loopback addresses are skipped so a proxy hop never becomes the
// session identity; IPv4 is preferred over IPv6 when a header lists both.
func getClientIP(c *fiber.Ctx) string {
	if ip := selectPreferredIP(strings.Split(c.Get("X-Forwarded-For"), ",")); ip != "" {
		return ip
	}

	for _, header := range proxyHeaders {
		if value := c.Get(header); value != "" {
			if ip := selectPreferredIP([]string{value}); ip != "" {
				return ip
			}
		}
	}

	if forwarded := c.Get("Forwarded"); forwarded != "" {
		if ip := selectPreferredIP(parseForwardedHeader(forwarded)); ip != "" {
			return ip
		}
	}

	remoteAddr := c.Context().RemoteAddr().String()
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		if parsed := net.ParseIP(host); parsed != nil && !isPrivateIP(parsed) {
			return host
		}
	} else if parsed := net.ParseIP(remoteAddr); parsed != nil && !isPrivateIP(parsed) {
		return remoteAddr
	}

	if ip := strings.TrimSpace(c.IP()); ip != "" && ip != "0.0.0.0" && ip != "::" {
		if parsed := net.ParseIP(ip); parsed != nil && !isPrivateIP(parsed) {
			return ip
		}
	}

	return "127.0.0.1"
}

// selectPreferredIP picks the first public IPv4 from the candidate list,
// falling back to the first public IPv6.
func selectPreferredIP(values []string) string {
	var ipv6Fallback string

	for _, raw := range values {
		clean, parsed := normalizeIP(raw)
		if parsed == nil || isPrivateIP(parsed) {
			continue
		}

		if parsed.To4() != nil {
			return clean
		}

		if ipv6Fallback == "" {
			ipv6Fallback = clean
		}
	}

	return ipv6Fallback
}

// normalizeIP parses a raw candidate from a proxy header, stripping quotes,
// zone identifiers, ports, and IPv6 brackets, and unmapping 4-in-6 forms.
func normalizeIP(raw string) (string, net.IP) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"")
	if clean == "" {
		return "", nil
	}

	if percent := strings.Index(clean, "%"); percent != -1 {
		clean = clean[:percent]
	}

	if addrPort, err := netip.ParseAddrPort(clean); err == nil {
		return canonicalAddr(addrPort.Addr())
	}

	trimmed := clean
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		trimmed = strings.TrimSuffix(strings.TrimPrefix(trimmed, "["), "]")
	}
	if addr, err := netip.ParseAddr(trimmed); err == nil {
		return canonicalAddr(addr)
	}

	if host, _, err := net.SplitHostPort(clean); err == nil {
		return normalizeIP(host)
	}

	return "", nil
}

func canonicalAddr(addr netip.Addr) (string, net.IP) {
	if addr.Is4In6() {
		addr = addr.Unmap()
	}
	ipStr := addr.String()
	return ipStr, net.ParseIP(ipStr)
}

// parseForwardedHeader extracts the for= entries of an RFC 7239 header.
func parseForwardedHeader(header string) []string {
	var candidates []string

	for _, entry := range strings.Split(header, ",") {
		for _, part := range strings.Split(entry, ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(strings.ToLower(part), "for=") {
				candidates = append(candidates, strings.TrimPrefix(part, "for="))
			}
		}
	}

	return candidates
}

var privateIPBlocks = buildPrivateIPBlocks()

func buildPrivateIPBlocks() []*net.IPNet {
	cidrs := []string{
		"10.0.0.0/8",     // RFC 1918
		"172.16.0.0/12",  // RFC 1918
		"192.168.0.0/16", // RFC 1918
		"fc00::/7",       // RFC 4193 Unique Local Addresses
		"fe80::/10",      // RFC 4291 Link-Local
		"::1/128",        // Loopback
		"127.0.0.0/8",    // Loopback
	}

	blocks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, block, _ := net.ParseCIDR(cidr)
		blocks = append(blocks, block)
	}
	return blocks
}

func isPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}

	for _, block := range privateIPBlocks {
		candidate := ip

		switch len(block.IP) {
		case net.IPv4len:
			if ip4 := ip.To4(); ip4 != nil {
				candidate = ip4
			} else {
				continue
			}
		case net.IPv6len:
			candidate = ip.To16()
			if candidate == nil {
				continue
			}
		}

		if block.Contains(candidate) {
			return true
		}
	}
	return false
}
