package auth

import (
	"crypto/sha256"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
)

// Store holds short-lived OAuth login state (the CSRF state parameter and
// the URL the user was originally visiting) between the login redirect and
// the completion callback.
var Store *sessions.CookieStore

// SessionName is the name of the OAuth login session cookie.
const SessionName = "sf-login"

// Session value keys.
const (
	sessionKeyState       = "state"
	sessionKeyOriginalURL = "original_url"
)

// ErrStateMismatch is returned when the state presented at OAuth completion
// does not match the state stored when the login flow started.
var ErrStateMismatch = errors.New("oauth state mismatch")

// InitSessionStore initializes the cookie-based session store for the OAuth
// login flow. The secret can be any passphrase; it is SHA-256 hashed to a
// 32-byte signing key, so it must be consistent across restarts and across
// servers behind a load balancer.
//
// The session has a short TTL (10 minutes) since it only needs to survive
// the redirect round trip to the identity provider.
func InitSessionStore(secret string) {
	key := sha256.Sum256([]byte(secret))

	Store = sessions.NewCookieStore(key[:])
	Store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// BeginLogin records the state parameter and the user's original URL in the
// login session, to be checked and consumed by CompleteLogin.
func BeginLogin(r *http.Request, w http.ResponseWriter, state, originalURL string) error {
	session, err := Store.Get(r, SessionName)
	if err != nil {
		// A stale or re-keyed cookie decodes with an error but still
		// yields a usable new session.
		session, _ = Store.New(r, SessionName)
	}

	session.Values[sessionKeyState] = state
	session.Values[sessionKeyOriginalURL] = originalURL
	return session.Save(r, w)
}

// CompleteLogin validates the presented state against the login session and
// consumes the session. On success it returns the original URL recorded at
// login start (may be empty). Returns ErrStateMismatch if the state does not
// match or no login flow is in progress.
func CompleteLogin(r *http.Request, w http.ResponseWriter, state string) (string, error) {
	session, err := Store.Get(r, SessionName)
	if err != nil {
		return "", ErrStateMismatch
	}

	storedState, _ := session.Values[sessionKeyState].(string)
	if storedState == "" || storedState != state {
		return "", ErrStateMismatch
	}

	originalURL, _ := session.Values[sessionKeyOriginalURL].(string)

	delete(session.Values, sessionKeyState)
	delete(session.Values, sessionKeyOriginalURL)
	if err := session.Save(r, w); err != nil {
		return "", err
	}

	return originalURL, nil
}
