package implicit_test

import (
	"errors"
	"fmt"

	"github.com/oidc-kit/implicit"
)

func Example() {
	// Candidate fragments, typically the portion of a redirect URL after
	// "#".  The parsers do no percent-decoding, so escaped values pass
	// through as-is.
	fragments := []string{
		"access_token=abc123&token_type=Bearer&expires_in=3600&state=st_1",
		"error=access_denied&error_description=User%20denied",
		"unrelated=route",
	}

	for _, frag := range fragments {
		if cb, err := implicit.ParseTokenCallback(frag); err == nil {
			fmt.Printf("token grant: access_token=%s token_type=%s expires_in=%d\n", cb.AccessToken, *cb.TokenType, *cb.ExpiresIn)
			continue
		} else if !errors.Is(err, implicit.ErrNoMatch) {
			// unreachable: the parsers only fail with ErrNoMatch
			return
		}
		if cb, err := implicit.ParseErrorCallback(frag); err == nil {
			fmt.Printf("authorization error: %s\n", cb)
			continue
		}
		fmt.Println("no match: falling through to the next route")
	}

	// Output:
	// token grant: access_token=[REDACTED: access_token] token_type=Bearer expires_in=3600
	// authorization error: access_denied: User%20denied
	// no match: falling through to the next route
}
