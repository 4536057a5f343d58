package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	apierrors "github.com/maisonmara/server/internal/errors"
)

// decodeJSON decodes a JSON request body into the destination struct.
// The reader is closed after decoding.
func decodeJSON(r io.ReadCloser, dest any) error {
	defer r.Close()
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

// bearerToken extracts the bearer credential from the Authorization header.
// An absent header returns ("", nil), which means guest. A header that is
// present but not a well-formed bearer credential is an authentication error;
// treating it as guest would silently drop the caller's identity and with it
// the expected-user check on sync.
func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", nil
	}
	const prefix = "bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", apierrors.New(apierrors.ErrCodeInvalidCredential, "malformed authorization header")
	}
	token := strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		return "", apierrors.New(apierrors.ErrCodeInvalidCredential, "malformed authorization header")
	}
	return token, nil
}

// resolveOrigin picks the redirect origin for a checkout: the request's
// declared Origin when allow-listed, else the configured default. A browser
// on an unknown origin still checks out, it just lands back on the default
// storefront.
func (h *handlers) resolveOrigin(r *http.Request) string {
	declared := strings.TrimRight(strings.TrimSpace(r.Header.Get("Origin")), "/")
	if declared != "" {
		for _, allowed := range h.cfg.Checkout.AllowedOrigins {
			if strings.EqualFold(declared, strings.TrimRight(allowed, "/")) {
				return declared
			}
		}
	}
	return strings.TrimRight(h.cfg.Checkout.DefaultOrigin, "/")
}
