package implicit

import (
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// IdToken is an oidc id_token
type IdToken string

// RedactedIdToken is the redacted string or json for an oidc id_token
const RedactedIdToken = "[REDACTED: id_token]"

// String will redact the token
func (t IdToken) String() string {
	return RedactedIdToken
}

// MarshalJSON will redact the token
func (t IdToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedIdToken)
}

// Claims decodes the IdToken payload into the provided claims.  The token's
// signature is NOT verified; callers needing verified claims must perform
// their own verification against the provider's keys.
func (t IdToken) Claims(claims jwt.Claims) error {
	const op = "IdToken.Claims"
	if len(t) == 0 {
		return fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	if _, _, err := jwt.NewParser().ParseUnverified(string(t), claims); err != nil {
		return fmt.Errorf("%s: unable to parse id_token: %w", op, err)
	}
	return nil
}

// MapClaims decodes the IdToken payload into a generic claims map, without
// verifying the token's signature.
func (t IdToken) MapClaims() (jwt.MapClaims, error) {
	const op = "IdToken.MapClaims"
	claims := jwt.MapClaims{}
	if err := t.Claims(claims); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return claims, nil
}
