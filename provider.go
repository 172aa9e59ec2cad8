package implicit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/oidc-kit/implicit/internal/strutils"
)

// Provider provides integration with an implicit-flow identity provider.  It
// discovers the provider's endpoints from its issuer and builds the
// authorization URLs that start a flow.  It does not perform the redirect
// itself, and it does not verify the tokens that come back in the callback
// fragment; both belong to the caller.
//
// A Provider is safe for concurrent use.  Done() must be called to release
// its resources when the caller is finished with it.
type Provider struct {
	config   *Config
	provider *oidc.Provider
	client   *http.Client

	backgroundCtx       context.Context
	backgroundCtxCancel context.CancelFunc
}

// NewProvider creates and initializes a Provider.  Discovery of the issuer's
// endpoints happens here, so the issuer must be reachable.  Done() must be
// called to release provider resources.
func NewProvider(c *Config) (*Provider, error) {
	const op = "implicit.NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	client, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}

	// state shared by the goroutines of all the provider's requests
	ctx, cancel := context.WithCancel(context.Background())

	discovered, err := oidc.NewProvider(HTTPClientContext(ctx, client), c.Issuer)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s: unable to discover provider endpoints: %w", op, err)
	}
	return &Provider{
		config:              c,
		provider:            discovered,
		client:              client,
		backgroundCtx:       ctx,
		backgroundCtxCancel: cancel,
	}, nil
}

// Done with the provider's background resources and must be called for every
// Provider created.
func (p *Provider) Done() {
	if p == nil {
		return
	}
	if p.backgroundCtxCancel != nil {
		p.backgroundCtxCancel()
		p.backgroundCtxCancel = nil
	}
}

// AuthURL returns a URL that will start the implicit flow with the provider
// for the given Request.  The URL asks for response_type "id_token token",
// or just "token" when the config's scopes omit openid, and for the response
// parameters to be returned in the redirect URL's fragment.
//
// The Request's redirect URL must be among the config's
// AllowedRedirectURLs, and its State and Nonce must differ.
func (p *Provider) AuthURL(ctx context.Context, r Request) (string, error) {
	const op = "Provider.AuthURL"
	if r == nil {
		return "", fmt.Errorf("%s: request is nil: %w", op, ErrNilParameter)
	}
	if r.State() == "" {
		return "", fmt.Errorf("%s: request state is empty: %w", op, ErrInvalidParameter)
	}
	if r.Nonce() == "" {
		return "", fmt.Errorf("%s: request nonce is empty: %w", op, ErrInvalidParameter)
	}
	if r.State() == r.Nonce() {
		return "", fmt.Errorf("%s: request state and nonce are equal: %w", op, ErrInvalidParameter)
	}
	if !strutils.StrListContains(p.config.AllowedRedirectURLs, r.RedirectURL()) {
		return "", fmt.Errorf("%s: redirect URL %s is not allowed: %w", op, r.RedirectURL(), ErrInvalidParameter)
	}

	oauth2Config := oauth2.Config{
		ClientID:    p.config.ClientID,
		Endpoint:    p.provider.Endpoint(),
		RedirectURL: r.RedirectURL(),
		Scopes:      p.config.Scopes,
	}
	responseType := "token"
	if strutils.StrListContains(p.config.Scopes, "openid") {
		responseType = "id_token token"
	}
	return oauth2Config.AuthCodeURL(
		r.State(),
		oauth2.SetAuthURLParam("response_type", responseType),
		oauth2.SetAuthURLParam("response_mode", "fragment"),
		oauth2.SetAuthURLParam("nonce", r.Nonce()),
	), nil
}

// HTTPClient returns the http client the provider uses for discovery, built
// from the config's ProviderCA when one was given.
func (p *Provider) HTTPClient() *http.Client {
	return p.client
}

// Config returns a copy of the provider's config
func (p *Provider) Config() Config {
	c := *p.config
	c.AllowedRedirectURLs = append([]string{}, p.config.AllowedRedirectURLs...)
	c.Scopes = append([]string{}, p.config.Scopes...)
	return c
}
