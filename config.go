package implicit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-multierror"

	"github.com/oidc-kit/implicit/internal/strutils"
	"github.com/oidc-kit/implicit/internal/transport"
)

// DefaultScopes are the scopes requested when a config doesn't override them.
// The openid scope is what makes the provider include an id_token in the
// callback fragment.
var DefaultScopes = []string{"openid"}

// Config represents the configuration for an implicit-flow relying party.
// There is no client secret: the implicit flow is designed for public clients
// which cannot keep one.
type Config struct {
	// ClientID is the relying party id
	ClientID string

	// Issuer is a case-sensitive URL string using the https scheme that
	// contains scheme, host, and optionally, port number and path components
	// and no query or fragment components.
	Issuer string

	// AllowedRedirectURLs is the list of redirect URLs the relying party
	// will accept for its requests.  A Request with a redirect URL outside
	// this list is refused an auth URL.
	AllowedRedirectURLs []string

	// Scopes is the list of oidc scopes to request of the provider.  When
	// empty, DefaultScopes is used.  Omitting the openid scope requests an
	// access token only (response_type=token).
	Scopes []string

	// ProviderCA is an optional CA cert to use when sending requests to the
	// provider.
	ProviderCA string
}

// NewConfig composes a new config for an implicit-flow relying party.
//
// Supported options: WithScopes, WithProviderCA
func NewConfig(issuer string, clientID string, allowedRedirectURLs []string, opt ...Option) (*Config, error) {
	const op = "implicit.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		Issuer:              issuer,
		ClientID:            clientID,
		AllowedRedirectURLs: allowedRedirectURLs,
		Scopes:              opts.withScopes,
		ProviderCA:          opts.withProviderCA,
	}
	if len(c.Scopes) == 0 {
		c.Scopes = append([]string{}, DefaultScopes...)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid relying party config: %w", op, err)
	}
	return c, nil
}

// Validate the config.  All violations are reported, not just the first one
// found.  Among other things it verifies the issuer is a parsable http or
// https URL, but it doesn't verify the issuer is discoverable via an http
// request.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter))
	}
	switch {
	case c.Issuer == "":
		result = multierror.Append(result, fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter))
	default:
		u, err := url.Parse(c.Issuer)
		switch {
		case err != nil:
			result = multierror.Append(result, fmt.Errorf("%s: issuer %s is invalid (%s): %w", op, c.Issuer, err, ErrInvalidIssuer))
		case !strutils.StrListContains([]string{"https", "http"}, u.Scheme):
			result = multierror.Append(result, fmt.Errorf("%s: issuer %s scheme is not http or https: %w", op, c.Issuer, ErrInvalidIssuer))
		}
	}
	if len(c.AllowedRedirectURLs) == 0 {
		result = multierror.Append(result, fmt.Errorf("%s: allowed redirect URLs are empty: %w", op, ErrInvalidParameter))
	}
	for _, allowed := range c.AllowedRedirectURLs {
		if _, err := url.Parse(allowed); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: allowed redirect URL %s is invalid (%s): %w", op, allowed, err, ErrInvalidParameter))
		}
	}
	return result.ErrorOrNil()
}

// HTTPClient is a helper function that creates a new http client for the
// configured provider, using the config's ProviderCA if one was given.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	client, err := transport.NewClient(c.ProviderCA)
	if err != nil {
		if err == transport.ErrInvalidCertificatePem {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// HTTPClientContext is a helper function that returns a new Context that
// carries the provided HTTP client.  This function sets the same context key
// used by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so
// the returned context works for those packages as well.
func HTTPClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}

// configOptions is the set of available options for Config functions
type configOptions struct {
	withScopes     []string
	withProviderCA string
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{}
}

// getConfigOpts gets the config defaults and applies the opt overrides
// passed in
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScopes provides an optional list of scopes for the config
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithProviderCA provides an optional CA cert for the config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}
