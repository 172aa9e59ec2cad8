package implicit

import (
	"bytes"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"

	"github.com/oidc-kit/implicit/internal/strutils"
)

// TestProvider is a local server that simulates an implicit-flow identity
// provider, which makes writing tests much easier.  Its /authorize endpoint
// answers with the fragment redirects a real provider would produce: a token
// fragment on success and an error fragment on failure.  It also serves a
// discovery document and a JWKS endpoint so a Provider can be pointed at it.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	jwks         *jose.JSONWebKeySet
	replySubject string

	mu                  sync.Mutex
	clientID            string
	allowedRedirectURIs []string
	expectedAuthNonce   string
	overrideState       string
	customClaims        map[string]interface{}
	expiresIn           int
	rawExpiresIn        string
	omitIDToken         bool
	omitState           bool
	disableImplicit     bool

	ecdsaPublicKey  string
	ecdsaPrivateKey string

	t *testing.T
}

// StartTestProvider creates and starts a running TestProvider.  Its server
// is stopped when the test and all its subtests complete.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		t: t,
		allowedRedirectURIs: []string{
			"https://example.com",
		},
		replySubject: "alice@example.com",
		expiresIn:    3600,
	}
	p.ecdsaPublicKey, p.ecdsaPrivateKey = TestGenerateKeys(t)
	p.jwks = testJWKS(t, p.ecdsaPublicKey)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(ioutil.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	cert := p.httpServer.Certificate()

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running
// webserver.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// SigningKeys returns the test provider's pem-encoded keys used to sign
// id_tokens.
func (p *TestProvider) SigningKeys() (pub, priv string) {
	return p.ecdsaPublicKey, p.ecdsaPrivateKey
}

// HTTPClient returns an http client that trusts the test provider's TLS
// certificate.
func (p *TestProvider) HTTPClient() *http.Client {
	return p.httpServer.Client()
}

// SetClientID configures the client id embedded in the id_token's audience.
func (p *TestProvider) SetClientID(clientID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
}

// SetAllowedRedirectURIs configures the allowed redirect URIs.  If not
// configured a sample of "https://example.com" is used.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetExpectedAuthNonce configures the nonce value required for /authorize.
func (p *TestProvider) SetExpectedAuthNonce(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthNonce = nonce
}

// SetOverrideState configures a state value to write into the reply fragment
// in place of the one the request carried, which forces the
// state-not-matching error path in callers.
func (p *TestProvider) SetOverrideState(state string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overrideState = state
}

// SetCustomClaims lets you set claims to return in the id_token issued by
// /authorize.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// SetExpiresIn configures the expires_in seconds written into the reply
// fragment.  The default is 3600.
func (p *TestProvider) SetExpiresIn(seconds int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expiresIn = seconds
	p.rawExpiresIn = ""
}

// SetRawExpiresIn configures a literal expires_in value for the reply
// fragment, which lets tests produce an unparsable value.
func (p *TestProvider) SetRawExpiresIn(raw string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rawExpiresIn = raw
}

// SetOmitIDToken forces the reply fragment to omit the id_token, as a
// provider would for a request without the openid scope.
func (p *TestProvider) SetOmitIDToken(omit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = omit
}

// SetOmitState forces the reply fragment to omit the state key.
func (p *TestProvider) SetOmitState(omit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitState = omit
}

// SetDisableImplicit makes /authorize answer every request with an
// access_denied error fragment.
func (p *TestProvider) SetDisableImplicit(disable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableImplicit = disable
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

// writeAuthErrorResponse redirects back to the request's redirect_uri with
// an error fragment.  The state, when the request carried one, rides along
// as an extra fragment key the error decoder will ignore.
func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, errorCode, errorMessage string) {
	qv := req.URL.Query()

	frag := "error=" + url.QueryEscape(errorCode)
	if errorMessage != "" {
		frag += "&error_description=" + url.QueryEscape(errorMessage)
	}
	if state := qv.Get("state"); state != "" {
		frag += "&state=" + url.QueryEscape(state)
	}

	http.Redirect(w, req, qv.Get("redirect_uri")+"#"+frag, http.StatusFound)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.t.Helper()
	require := require.New(p.t)

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		reply := struct {
			Issuer        string `json:"issuer"`
			AuthEndpoint  string `json:"authorization_endpoint"`
			TokenEndpoint string `json:"token_endpoint"`
			JWKSURI       string `json:"jwks_uri"`
		}{
			Issuer:        p.Addr(),
			AuthEndpoint:  p.Addr() + "/authorize",
			TokenEndpoint: p.Addr() + "/token",
			JWKSURI:       p.Addr() + "/certs",
		}
		if err := p.writeJSON(w, &reply); err != nil {
			return
		}

	case "/authorize":
		if req.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		qv := req.URL.Query()

		redirectURI := qv.Get("redirect_uri")
		if redirectURI == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("missing redirect_uri parameter"))
			return
		}
		if !strutils.StrListContains(p.allowedRedirectURIs, redirectURI) {
			p.writeAuthErrorResponse(w, req, "invalid_request", "redirect_uri is not allowed")
			return
		}

		responseType := qv.Get("response_type")
		if responseType != "token" && responseType != "id_token token" {
			p.writeAuthErrorResponse(w, req, "unsupported_response_type", "")
			return
		}
		if p.disableImplicit {
			p.writeAuthErrorResponse(w, req, "access_denied", "the implicit flow is disabled")
			return
		}

		state := qv.Get("state")
		if state == "" {
			p.writeAuthErrorResponse(w, req, "invalid_request", "missing state parameter")
			return
		}

		nonce := qv.Get("nonce")
		if p.expectedAuthNonce != "" && p.expectedAuthNonce != nonce {
			p.writeAuthErrorResponse(w, req, "access_denied", "unexpected nonce")
			return
		}

		accessToken, err := NewID(WithPrefix("at"))
		require.NoError(err)

		frag := "access_token=" + url.QueryEscape(accessToken) +
			"&token_type=Bearer"
		switch {
		case p.rawExpiresIn != "":
			frag += "&expires_in=" + p.rawExpiresIn
		default:
			frag += "&expires_in=" + strconv.Itoa(p.expiresIn)
		}
		if p.overrideState != "" {
			state = p.overrideState
		}
		if !p.omitState {
			frag += "&state=" + url.QueryEscape(state)
		}

		withOpenID := strutils.StrListContains(strings.Fields(qv.Get("scope")), "openid")
		if withOpenID && !p.omitIDToken {
			now := time.Now()
			stdClaims := jwt.Claims{
				Subject:   p.replySubject,
				Issuer:    p.Addr(),
				NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
				Expiry:    jwt.NewNumericDate(now.Add(time.Duration(p.expiresIn) * time.Second)),
				Audience:  jwt.Audience{p.clientID},
			}
			privateClaims := map[string]interface{}{
				"nonce": nonce,
			}
			for k, v := range p.customClaims {
				privateClaims[k] = v
			}
			frag += "&id_token=" + TestSignJWT(p.t, p.ecdsaPrivateKey, stdClaims, privateClaims)
		}

		http.Redirect(w, req, redirectURI+"#"+frag, http.StatusFound)

	case "/certs":
		if req.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := p.writeJSON(w, p.jwks); err != nil {
			return
		}

	case "/token":
		// the implicit flow never exchanges a code
		w.WriteHeader(http.StatusMethodNotAllowed)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// testJWKS converts a pem-encoded public key into JWKS data suitable for a
// verification endpoint response
func testJWKS(t *testing.T, pubKey string) *jose.JSONWebKeySet {
	t.Helper()
	require := require.New(t)

	block, _ := pem.Decode([]byte(pubKey))
	require.NotNil(block)

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(err)

	return &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key: pub,
			},
		},
	}
}

// TestFragment renders a token callback back into its fragment encoding,
// which is handy when a test needs a literal fragment for a record it has in
// hand.
func TestFragment(t *testing.T, cb *TokenCallback) string {
	t.Helper()
	require := require.New(t)
	require.NotNil(cb)

	frag := fmt.Sprintf("%s=%s", paramAccessToken, string(cb.AccessToken))
	if cb.TokenType != nil {
		frag += fmt.Sprintf("&%s=%s", paramTokenType, *cb.TokenType)
	}
	if cb.ExpiresIn != nil {
		frag += fmt.Sprintf("&%s=%d", paramExpiresIn, *cb.ExpiresIn)
	}
	if cb.State != nil {
		frag += fmt.Sprintf("&%s=%s", paramState, *cb.State)
	}
	if cb.IdToken != nil {
		frag += fmt.Sprintf("&%s=%s", paramIDToken, string(*cb.IdToken))
	}
	return frag
}
