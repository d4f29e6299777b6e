package apperrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrNoActiveWebhook    = errors.New("no active webhook configuration")
	ErrCredentialInactive = errors.New("credential is not active")
	ErrKeyMismatch        = errors.New("credentials were encrypted with a different key")
)
