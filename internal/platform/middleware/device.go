package middleware

import (
	"strings"

	"github.com/mssola/useragent"
)

// DeviceDisplayName builds a short human-readable device description from a
// User-Agent string, e.g. "Chrome on Mac OS X". Used for request logs only;
// no fingerprinting or IP material is derived from it.
func DeviceDisplayName(userAgentString string) string {
	if userAgentString == "" {
		return "unknown"
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	browser = strings.TrimSpace(browser)
	if browser == "" {
		browser = "unknown"
	}

	os := strings.TrimSpace(ua.OS())
	if os == "" {
		if ua.Bot() {
			return browser + " (bot)"
		}
		return browser
	}

	return browser + " on " + os
}
