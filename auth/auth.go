// Package auth gates the operational endpoints behind an API key. Content
// endpoints need no key; payment is their access control.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/0xmeta/newsgate/utils"
)

// Authenticate checks the X-API-Key header against the configured key. An
// empty configured key disables authentication.
func Authenticate(r *http.Request, staticKey string) error {
	if staticKey == "" {
		return nil
	}

	providedKey := r.Header.Get("X-API-Key")

	if subtle.ConstantTimeCompare([]byte(providedKey), []byte(staticKey)) != 1 {
		return utils.NewStatusError(
			errors.New("unauthorized"),
			http.StatusUnauthorized,
		)
	}

	return nil
}
