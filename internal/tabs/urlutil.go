package tabs

import "strings"

// NormalizeWebURL turns command-bar style input into a loadable URL. Inputs
// that already carry a scheme pass through; bare hosts get https, except
// loopback-style hosts which get http.
func NormalizeWebURL(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	if strings.Contains(trimmed, "://") ||
		strings.HasPrefix(trimmed, "about:") ||
		strings.HasPrefix(trimmed, "file:") ||
		strings.HasPrefix(trimmed, "data:") {
		return trimmed
	}

	scheme := "https"
	if isLocalHost(trimmed) {
		scheme = "http"
	}
	return scheme + "://" + trimmed
}

func isLocalHost(input string) bool {
	end := strings.IndexAny(input, "/?#")
	if end < 0 {
		end = len(input)
	}
	host := input[:end]

	if at := strings.LastIndexByte(host, '@'); at >= 0 {
		host = host[at+1:]
	}

	if strings.HasPrefix(host, "[") {
		if closing := strings.IndexByte(host, ']'); closing >= 0 {
			host = host[1:closing]
		}
	} else if colon := strings.LastIndexByte(host, ':'); colon >= 0 {
		name, port := host[:colon], host[colon+1:]
		if !strings.Contains(name, ":") && port != "" && isDigits(port) {
			host = name
		}
	}

	host = strings.ToLower(host)
	switch host {
	case "localhost", "0.0.0.0", "::1", "127.0.0.1":
		return true
	}

	if !strings.HasPrefix(host, "127.") {
		return false
	}
	for i := 0; i < len(host); i++ {
		if host[i] != '.' && (host[i] < '0' || host[i] > '9') {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
