// Package vapid builds signed ES256 JWTs for Web Push authentication, per
// RFC 8292.
package vapid

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arguslabs/argus-go/internal/webpush/crypto"
)

// DefaultLifetime is the default JWT validity window.
const DefaultLifetime = 12 * time.Hour

// ValidateSubject checks that subject begins with "mailto:" or "https://",
// as required by an RFC 8292 VAPID JWT's sub claim.
func ValidateSubject(subject string) error {
	if strings.HasPrefix(subject, "mailto:") || strings.HasPrefix(subject, "https://") {
		return nil
	}
	return fmt.Errorf("vapid: subject must begin with mailto: or https://, got %q", subject)
}

// ExtractAudience returns scheme://host (no path) for a push endpoint URL.
func ExtractAudience(endpointURL string) (string, error) {
	u, err := url.Parse(endpointURL)
	if err != nil {
		return "", fmt.Errorf("vapid: parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("vapid: endpoint missing scheme or host: %q", endpointURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// Build constructs and signs a VAPID JWT for audience aud and subject sub,
// using the base64url-encoded 32-byte P-256 private scalar privateKeyB64.
// lifetime of 0 defaults to DefaultLifetime. now is injected by the caller
// so callers can exercise deterministic test times. jwt/v5's ES256 signer
// already emits the raw R||S signature RFC 8292 expects, not DER.
func Build(privateKeyB64, aud, sub string, lifetime time.Duration, now time.Time) (string, error) {
	if err := ValidateSubject(sub); err != nil {
		return "", err
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	priv, err := crypto.ECDSAPrivateKeyFromBase64(privateKeyB64)
	if err != nil {
		return "", fmt.Errorf("vapid: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"aud": aud,
		"exp": now.Add(lifetime).Unix(),
		"sub": sub,
	})
	token.Header = map[string]any{"typ": "JWT", "alg": "ES256"}

	signed, err := token.SignedString(priv)
	if err != nil {
		return "", fmt.Errorf("vapid: sign jwt: %w", err)
	}
	return signed, nil
}
