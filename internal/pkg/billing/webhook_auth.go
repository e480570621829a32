package billing

import (
	"crypto/subtle"
	"strings"
)

// VerifyRelaySecret compares the Authorization header supplied by the billing
// relay against the configured shared secret in constant time. An empty
// configured secret disables verification (operator responsibility).
func VerifyRelaySecret(authorizationHeader, configuredSecret string) bool {
	secret := strings.TrimSpace(configuredSecret)
	if secret == "" {
		return true
	}

	header := strings.TrimSpace(authorizationHeader)
	// The relay may send the raw secret or a Bearer-prefixed form.
	header = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if header == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(header), []byte(secret)) == 1
}
