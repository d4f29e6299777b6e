package auth

import (
	"net/url"
	"strings"
)

// CookieSettings contains cookie security settings derived from the base URL.
type CookieSettings struct {
	// Secure indicates whether the cookie should only be sent over HTTPS.
	Secure bool
	// Domain is the cookie domain scope (e.g., ".socialflow.app" for
	// cross-subdomain sharing between the dashboard and the API).
	Domain string
}

// DeriveCookieSettings determines JWT cookie security settings from the
// configured base URL:
//   - localhost (http://localhost:8443) → Secure: false, Domain: ""
//   - staging (https://api.staging.socialflow.app) → Secure: true, Domain: ".staging.socialflow.app"
//   - production (https://api.socialflow.app) → Secure: true, Domain: ".socialflow.app"
//
// The configCookieDomain parameter allows an explicit override for
// self-hosted deployments on custom domains.
func DeriveCookieSettings(baseURL string, configCookieDomain string) CookieSettings {
	if configCookieDomain != "" {
		return CookieSettings{
			Secure: isHTTPS(baseURL),
			Domain: configCookieDomain,
		}
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil || baseURL == "" {
		// Safe defaults for invalid URLs
		return CookieSettings{Secure: true, Domain: ""}
	}

	secure := parsedURL.Scheme != "http"
	hostname := parsedURL.Hostname()

	var domain string
	switch {
	case hostname == "localhost" || hostname == "127.0.0.1":
		domain = ""
	case strings.HasSuffix(hostname, ".staging.socialflow.app"):
		domain = ".staging.socialflow.app"
	case strings.HasSuffix(hostname, ".socialflow.app"):
		domain = ".socialflow.app"
	default:
		// Custom domain: isolate to the specific hostname
		domain = ""
	}

	return CookieSettings{
		Secure: secure,
		Domain: domain,
	}
}

// isHTTPS reports whether the base URL uses HTTPS. Empty or unparseable
// URLs default to true so cookies stay Secure.
func isHTTPS(baseURL string) bool {
	if baseURL == "" {
		return true
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return true
	}

	return parsedURL.Scheme != "http"
}
