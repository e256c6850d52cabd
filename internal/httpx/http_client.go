package httpx

import (
	"net/http"
	"time"
	"unicode/utf8"
)

const defaultExternalHTTPTimeout = 30 * time.Second

var externalHTTPClient = &http.Client{
	Timeout: defaultExternalHTTPTimeout,
}

func ExternalHTTPClient() *http.Client {
	return externalHTTPClient
}

// ConfigureExternalHTTPClient sets the per-request timeout of the shared
// client and returns the value applied. Non-positive values keep the default.
func ConfigureExternalHTTPClient(timeoutSeconds int) time.Duration {
	timeout := defaultExternalHTTPTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	externalHTTPClient.Timeout = timeout
	return timeout
}

// Truncate shortens s to at most n bytes, backing up to a rune boundary, and
// marks the cut.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "...(truncated)"
}
