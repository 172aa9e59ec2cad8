package implicit

import (
	"fmt"
	"time"
)

// Request basically represents one implicit-flow authentication attempt for a
// user.  It contains the data needed to uniquely represent that one-time flow
// across the multiple interactions needed to complete it.  State() is sent
// with the authorization request and echoed back by the provider in the
// callback fragment, which lets the callback be matched to the attempt that
// started it.  The State() and Nonce() cannot be equal, and are used to
// prevent CSRF and replay attacks (see the oidc spec for specifics).
type Request interface {
	// State is a unique identifier and an opaque value used to maintain
	// state between the authorization request and the callback.  State
	// cannot equal the Nonce.
	State() string

	// Nonce is a unique nonce and a string value used to associate a client
	// session with an id_token, and to mitigate replay attacks.  Nonce
	// cannot equal the State.
	Nonce() string

	// RedirectURL is the URL the provider will redirect the user's agent
	// back to after the authorization attempt.
	RedirectURL() string

	// IsExpired returns true if the request has expired.  Implementations
	// should support a WithExpirySkew option and use a default skew when
	// none is provided.
	IsExpired(opt ...Option) bool
}

// Req represents one implicit-flow authentication attempt.  Its State() is
// passed throughout the flow to uniquely identify the attempt.
type Req struct {
	// state is a unique identifier and an opaque value used to maintain
	// state between the authorization request and the callback
	state string

	// nonce is a unique nonce suitable for use as an oidc nonce
	nonce string

	// redirectURL is where the provider sends the callback fragment
	redirectURL string

	// expiration is the expiration time for the request
	expiration time.Time
}

// ensure that Req implements the Request interface
var _ Request = (*Req)(nil)

// NewRequest creates a new Request (*Req).  The expireIn bounds how long the
// attempt may take end to end; an expired request must not be accepted by a
// callback.
func NewRequest(expireIn time.Duration, redirectURL string) (*Req, error) {
	const op = "implicit.NewRequest"
	if expireIn <= 0 {
		return nil, fmt.Errorf("%s: expireIn not greater than zero: %w", op, ErrInvalidParameter)
	}
	if redirectURL == "" {
		return nil, fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter)
	}
	nonce, err := NewID(WithPrefix("n"))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a request's nonce: %w", op, err)
	}
	state, err := NewID(WithPrefix("st"))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a request's state: %w", op, err)
	}
	return &Req{
		state:       state,
		nonce:       nonce,
		redirectURL: redirectURL,
		expiration:  time.Now().Add(expireIn),
	}, nil
}

func (r *Req) State() string       { return r.state }       // State implements the Request.State() interface function
func (r *Req) Nonce() string       { return r.nonce }       // Nonce implements the Request.Nonce() interface function
func (r *Req) RedirectURL() string { return r.redirectURL } // RedirectURL implements the Request.RedirectURL() interface function

// DefaultExpirySkew defines a default time skew when checking a Request's
// expiration.
const DefaultExpirySkew = 1 * time.Second

// IsExpired returns true if the request has expired.  Supports the
// WithExpirySkew option and if none is provided it will use the
// DefaultExpirySkew.
func (r *Req) IsExpired(opt ...Option) bool {
	opts := getReqOpts(opt...)
	return r.expiration.Before(time.Now().Add(opts.withExpirySkew))
}

// reqOptions is the set of available options for Req functions
type reqOptions struct {
	withExpirySkew time.Duration
}

// reqDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func reqDefaults() reqOptions {
	return reqOptions{
		withExpirySkew: DefaultExpirySkew,
	}
}

// getReqOpts gets the request defaults and applies the opt overrides passed
// in
func getReqOpts(opt ...Option) reqOptions {
	opts := reqDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithExpirySkew provides an optional expiry skew duration for a Request
func WithExpirySkew(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withExpirySkew = d
		}
	}
}
