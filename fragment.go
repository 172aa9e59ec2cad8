package implicit

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Fragment keys recognized by the callback decoders.  Unknown keys are
// ignored.
const (
	paramAccessToken      = "access_token"
	paramIDToken          = "id_token"
	paramExpiresIn        = "expires_in"
	paramTokenType        = "token_type"
	paramState            = "state"
	paramError            = "error"
	paramErrorDescription = "error_description"
)

// TokenCallback represents a successful implicit-flow grant decoded from a
// redirect URL fragment.  Fields are populated strictly from keys present in
// the fragment; a TokenCallback is immutable once returned from
// ParseTokenCallback.
type TokenCallback struct {
	// AccessToken is the granted access token. It is the empty string when
	// the access_token key carried no value.
	AccessToken AccessToken

	// IdToken is the granted id_token.  It is nil when the provider did not
	// return one, which is the normal outcome for an authorization request
	// made without the openid scope.
	IdToken *IdToken

	// ExpiresIn is the access token's lifetime in seconds.  It is nil when
	// the expires_in key was absent or its value was not an integer.
	ExpiresIn *int

	// TokenType is the token's type (typically "Bearer"), nil when absent.
	TokenType *string

	// State is the opaque request state echoed back by the provider, nil
	// when absent.
	State *string
}

// Token converts the callback into an oauth2 token.  Expiry is computed from
// ExpiresIn relative to the time of the call and is the zero time when
// ExpiresIn is nil.
func (t *TokenCallback) Token() *oauth2.Token {
	if t == nil {
		return nil
	}
	tk := &oauth2.Token{
		AccessToken: string(t.AccessToken),
	}
	if t.TokenType != nil {
		tk.TokenType = *t.TokenType
	}
	if t.ExpiresIn != nil {
		tk.Expiry = time.Now().Add(time.Duration(*t.ExpiresIn) * time.Second)
	}
	return tk
}

// ErrorCallback represents an authorization failure decoded from a redirect
// URL fragment.  See:
// https://openid.net/specs/openid-connect-core-1_0.html#AuthError
type ErrorCallback struct {
	// Error is the machine-readable error code (for example
	// "access_denied").
	Error string

	// Description is the human-readable detail accompanying the code.
	Description string
}

// String returns the callback in an "error: description" form suitable for
// logging.
func (e *ErrorCallback) String() string {
	if e == nil {
		return ""
	}
	if e.Description == "" {
		return e.Error
	}
	return fmt.Sprintf("%s: %s", e.Error, e.Description)
}

// ParseTokenCallback decodes the fragment portion of an implicit-flow
// redirect URL into a TokenCallback.  A single leading "#" is stripped
// before classification, so callers may pass either the raw value of
// window.location.hash or the already-trimmed fragment.
//
// The fragment is routed here only when it leads with the access_token key
// (the key must be followed by "=" or be the entire fragment); otherwise
// ParseTokenCallback returns an error wrapping ErrNoMatch so the caller can
// fall through to other route handling.  Once routed, decoding never fails:
// malformed chunks and unparsable field values resolve to the field's
// absent/empty default rather than aborting the parse.
//
// When a key appears more than once, the leftmost occurrence wins.  Values
// are not percent-decoded; callers must decode percent-escapes themselves if
// their provider produces them.
func ParseTokenCallback(fragment string) (*TokenCallback, error) {
	const op = "implicit.ParseTokenCallback"
	frag := strings.TrimPrefix(fragment, "#")
	if !leadsWithKey(frag, paramAccessToken) {
		return nil, fmt.Errorf("%s: fragment is not a token callback: %w", op, ErrNoMatch)
	}
	cb := &TokenCallback{}
	pairs := splitFragment(frag)
	// Fold right to left so the leftmost occurrence of a duplicated key
	// wins.
	for i := len(pairs) - 1; i >= 0; i-- {
		k, v := pairs[i][0], pairs[i][1]
		switch k {
		case paramAccessToken:
			cb.AccessToken = AccessToken(v)
		case paramIDToken:
			tk := IdToken(v)
			cb.IdToken = &tk
		case paramExpiresIn:
			if n, err := strconv.Atoi(v); err == nil {
				cb.ExpiresIn = &n
			} else {
				cb.ExpiresIn = nil
			}
		case paramTokenType:
			tt := v
			cb.TokenType = &tt
		case paramState:
			st := v
			cb.State = &st
		}
	}
	return cb, nil
}

// ParseErrorCallback decodes the fragment portion of an implicit-flow
// redirect URL into an ErrorCallback.  A single leading "#" is stripped
// before classification.
//
// The fragment is routed here only when it leads with the error key (the key
// must be followed by "=" or be the entire fragment); otherwise
// ParseErrorCallback returns an error wrapping ErrNoMatch.  Decoding follows
// the same rules as ParseTokenCallback: leftmost duplicate wins, malformed
// chunks are discarded, no percent-decoding.
func ParseErrorCallback(fragment string) (*ErrorCallback, error) {
	const op = "implicit.ParseErrorCallback"
	frag := strings.TrimPrefix(fragment, "#")
	if !leadsWithKey(frag, paramError) {
		return nil, fmt.Errorf("%s: fragment is not an error callback: %w", op, ErrNoMatch)
	}
	cb := &ErrorCallback{}
	pairs := splitFragment(frag)
	for i := len(pairs) - 1; i >= 0; i-- {
		k, v := pairs[i][0], pairs[i][1]
		switch k {
		case paramError:
			cb.Error = v
		case paramErrorDescription:
			cb.Description = v
		}
	}
	return cb, nil
}

// leadsWithKey reports whether frag is exactly key, or starts with key
// immediately followed by "=".  A bare prefix test would also accept
// fragments such as "access_token_extra=...", so the key boundary is
// required.
func leadsWithKey(frag, key string) bool {
	return frag == key || strings.HasPrefix(frag, key+"=")
}

// splitFragment breaks a fragment into its ordered key/value pairs.  Chunks
// that do not split on "=" into exactly two parts contribute nothing.
func splitFragment(frag string) [][2]string {
	chunks := strings.Split(frag, "&")
	pairs := make([][2]string, 0, len(chunks))
	for _, c := range chunks {
		kv := strings.Split(c, "=")
		if len(kv) != 2 {
			continue
		}
		pairs = append(pairs, [2]string{kv[0], kv[1]})
	}
	return pairs
}
