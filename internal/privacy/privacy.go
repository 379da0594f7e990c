// Package privacy scrubs host and credential details from text that leaves the
// machine, such as telemetry events and log fields.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

var (
	urlPattern   = regexp.MustCompile(`\b(?:https?|tcp|ssl|mqtt|mqtts|ws|wss|mysql)://\S+`)
	homePattern  = regexp.MustCompile(`(/home/|/Users/|\\Users\\)[^/\\\s]+`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	credPattern  = regexp.MustCompile(`(?i)\b(password|passwd|token|secret|api[_-]?key)([=:])\S+`)
)

// ScrubMessage replaces URLs with stable anonymized tokens, redacts
// key=value credentials and masks user names in home directory paths and
// email addresses.
func ScrubMessage(message string) string {
	if message == "" {
		return message
	}
	out := urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	out = credPattern.ReplaceAllString(out, "${1}${2}[REDACTED]")
	out = emailPattern.ReplaceAllString(out, "[EMAIL]")
	return homePattern.ReplaceAllString(out, "${1}[USER]")
}

// AnonymizeURL maps a URL to "url-<hash>" where the hash covers only the
// scheme, host category and port, so equal endpoints hash equally without
// revealing the host.
func AnonymizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		sum := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", sum[:8])
	}

	parts := []string{u.Scheme, categorizeHost(u.Hostname())}
	if port := u.Port(); port != "" {
		parts = append(parts, "port-"+port)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("url-%x", sum[:12])
}

// RedactURL drops credentials, path and query from a URL and keeps the
// scheme and host for display. Strings that do not parse come back unchanged.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}

func categorizeHost(host string) string {
	switch host {
	case "":
		return "no-host"
	case "localhost":
		return "localhost"
	}

	if ip := net.ParseIP(host); ip != nil {
		switch {
		case ip.IsLoopback():
			return "localhost"
		case ip.IsPrivate(), ip.IsLinkLocalUnicast():
			return "private-ip"
		default:
			return "public-ip"
		}
	}

	if strings.HasSuffix(host, ".local") || !strings.Contains(host, ".") {
		return "local-name"
	}
	return "domain-" + host[strings.LastIndex(host, ".")+1:]
}
