package callback

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yhat/scrape"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/oidc-kit/implicit"
)

// testNilRequestReader is a RequestReader that finds nothing without
// erroring.
type testNilRequestReader struct{}

func (*testNilRequestReader) Read(ctx context.Context, state string) (implicit.Request, error) {
	return nil, nil
}

func testNewRequest(t *testing.T, expireIn time.Duration) *implicit.Req {
	t.Helper()
	require := require.New(t)
	r, err := implicit.NewRequest(expireIn, "http://localhost:3000/callback")
	require.NoError(err)
	return r
}

func testPostFragment(t *testing.T, handler http.HandlerFunc, relayParm, frag string) *httptest.ResponseRecorder {
	t.Helper()
	require := require.New(t)

	form := url.Values{}
	form.Add(relayParm, frag)
	req, err := http.NewRequest("POST", "/callback", strings.NewReader(form.Encode()))
	require.NoError(err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestFragment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rw := &SingleRequestReader{testNewRequest(t, 1*time.Minute)}

	tests := []struct {
		name    string
		rw      RequestReader
		sFn     SuccessResponseFunc
		eFn     ErrorResponseFunc
		wantErr bool
	}{
		{"valid", rw, testSuccessFn, testFailFn, false},
		{"nil-rw", nil, testSuccessFn, testFailFn, true},
		{"nil-sFn", rw, nil, testFailFn, true},
		{"nil-eFn", rw, testSuccessFn, nil, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := Fragment(ctx, tt.rw, tt.sFn, tt.eFn)
			if tt.wantErr {
				require.Error(err)
				assert.ErrorIs(err, implicit.ErrInvalidParameter)
				return
			}
			require.NoError(err)
			assert.NotEmpty(got)
		})
	}
}

func TestFragment_RelayPage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name      string
		opt       []implicit.Option
		wantParm  string
		queryParm string
	}{
		{
			name:     "default-parameter",
			wantParm: DefaultRelayParameter,
		},
		{
			name:     "custom-parameter",
			opt:      []implicit.Option{WithRelayParameter("relayed_hash")},
			wantParm: "relayed_hash",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			rw := &SingleRequestReader{testNewRequest(t, 1*time.Minute)}
			handler, err := Fragment(ctx, rw, testSuccessFn, testFailFn, tt.opt...)
			require.NoError(err)

			req, err := http.NewRequest("GET", "/callback", nil)
			require.NoError(err)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			require.Equal(http.StatusOK, rr.Code)
			assert.Contains(rr.Header().Get("Content-Type"), "text/html")

			// the page must carry a form which posts the fragment back under
			// the relay parameter's name
			root, err := html.Parse(rr.Body)
			require.NoError(err)
			form, ok := scrape.Find(root, scrape.ByTag(atom.Form))
			require.True(ok)
			assert.Equal("post", scrape.Attr(form, "method"))

			input, ok := scrape.Find(form, scrape.ById(tt.wantParm))
			require.True(ok)
			assert.Equal(tt.wantParm, scrape.Attr(input, "name"))
		})
	}
}

func TestFragment_Responses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name                string
		exp                 time.Duration
		fragmentFn          func(r *implicit.Req) string
		readerOverride      RequestReader
		wantStatusCode      int
		wantError           bool
		wantRespError       string
		wantRespDescription string
	}{
		{
			name: "basic",
			exp:  1 * time.Minute,
			fragmentFn: func(r *implicit.Req) string {
				return "access_token=abc123&token_type=Bearer&expires_in=3600&state=" + r.State()
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "leading-hash",
			exp:  1 * time.Minute,
			fragmentFn: func(r *implicit.Req) string {
				return "#access_token=abc123&state=" + r.State()
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "expired",
			exp:  1 * time.Nanosecond,
			fragmentFn: func(r *implicit.Req) string {
				return "access_token=abc123&state=" + r.State()
			},
			wantStatusCode:      http.StatusInternalServerError,
			wantError:           true,
			wantRespError:       "internal-callback-error",
			wantRespDescription: "expired",
		},
		{
			name: "state-not-matching",
			exp:  1 * time.Minute,
			fragmentFn: func(r *implicit.Req) string {
				return "access_token=abc123&state=not-matching"
			},
			wantStatusCode:      http.StatusInternalServerError,
			wantError:           true,
			wantRespError:       "internal-callback-error",
			wantRespDescription: "not found",
		},
		{
			name: "missing-state",
			exp:  1 * time.Minute,
			fragmentFn: func(r *implicit.Req) string {
				return "access_token=abc123"
			},
			wantStatusCode:      http.StatusInternalServerError,
			wantError:           true,
			wantRespError:       "internal-callback-error",
			wantRespDescription: "not found",
		},
		{
			name: "reader-returns-nil",
			exp:  1 * time.Minute,
			fragmentFn: func(r *implicit.Req) string {
				return "access_token=abc123&state=" + r.State()
			},
			readerOverride:      &testNilRequestReader{},
			wantStatusCode:      http.StatusInternalServerError,
			wantError:           true,
			wantRespError:       "internal-callback-error",
			wantRespDescription: "not found",
		},
		{
			name: "provider-error",
			exp:  1 * time.Minute,
			fragmentFn: func(r *implicit.Req) string {
				return "error=access_denied&error_description=User%20denied"
			},
			wantStatusCode:      http.StatusUnauthorized,
			wantError:           true,
			wantRespError:       "access_denied",
			wantRespDescription: "User%20denied",
		},
		{
			name: "unrecognized-fragment",
			exp:  1 * time.Minute,
			fragmentFn: func(r *implicit.Req) string {
				return "foo=bar"
			},
			wantStatusCode:      http.StatusInternalServerError,
			wantError:           true,
			wantRespError:       "internal-callback-error",
			wantRespDescription: "does not match",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			r := testNewRequest(t, tt.exp)
			var reader RequestReader
			switch {
			case tt.readerOverride != nil:
				reader = tt.readerOverride
			default:
				reader = &SingleRequestReader{r}
			}
			handler, err := Fragment(ctx, reader, testSuccessFn, testFailFn)
			require.NoError(err)

			rr := testPostFragment(t, handler, DefaultRelayParameter, tt.fragmentFn(r))
			assert.Equal(tt.wantStatusCode, rr.Code)

			contents, err := ioutil.ReadAll(rr.Body)
			require.NoError(err)
			if tt.wantError {
				var errResp implicit.ErrorCallback
				require.NoError(json.Unmarshal(contents, &errResp))
				assert.Equal(tt.wantRespError, errResp.Error)
				if tt.wantRespDescription != "" {
					assert.Contains(errResp.Description, tt.wantRespDescription)
				}
				return
			}
			assert.Contains(string(contents), "login successful")
		})
	}
}

// TestFragment_RoundTrip drives the full flow: the test provider answers an
// auth URL with a fragment redirect, and the fragment is relayed to the
// callback handler the way the relay page's script would.
func TestFragment_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	const redirectURL = "http://localhost:3000/callback"

	tp := implicit.StartTestProvider(t)
	tp.SetClientID("test-client-id")
	tp.SetAllowedRedirectURIs([]string{redirectURL})

	c, err := implicit.NewConfig(tp.Addr(), "test-client-id", []string{redirectURL}, implicit.WithProviderCA(tp.CACert()))
	require.NoError(t, err)
	p, err := implicit.NewProvider(c)
	require.NoError(t, err)
	t.Cleanup(p.Done)

	t.Run("token-grant", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		r := testNewRequest(t, 1*time.Minute)
		tp.SetExpectedAuthNonce(r.Nonce())

		var gotToken *implicit.TokenCallback
		sFn := func(state string, cb *implicit.TokenCallback, w http.ResponseWriter, req *http.Request) {
			gotToken = cb
			testSuccessFn(state, cb, w, req)
		}
		handler, err := Fragment(ctx, &SingleRequestReader{r}, sFn, testFailFn)
		require.NoError(err)

		authURL, err := p.AuthURL(ctx, r)
		require.NoError(err)

		client := &http.Client{
			Transport: tp.HTTPClient().Transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
		resp, err := client.Get(authURL)
		require.NoError(err)
		defer resp.Body.Close()
		require.Equal(http.StatusFound, resp.StatusCode)

		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(err)
		require.NotEmpty(loc.Fragment)

		rr := testPostFragment(t, handler, DefaultRelayParameter, loc.Fragment)
		assert.Equal(http.StatusOK, rr.Code)
		require.NotNil(gotToken)
		assert.NotEmpty(gotToken.AccessToken)
		require.NotNil(gotToken.State)
		assert.Equal(r.State(), *gotToken.State)
		require.NotNil(gotToken.IdToken)

		claims, err := gotToken.IdToken.MapClaims()
		require.NoError(err)
		assert.Equal(r.Nonce(), claims["nonce"])
	})
	t.Run("authorization-error", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp.SetDisableImplicit(true)
		defer tp.SetDisableImplicit(false)

		r := testNewRequest(t, 1*time.Minute)
		handler, err := Fragment(ctx, &SingleRequestReader{r}, testSuccessFn, testFailFn)
		require.NoError(err)

		authURL, err := p.AuthURL(ctx, r)
		require.NoError(err)

		client := &http.Client{
			Transport: tp.HTTPClient().Transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
		resp, err := client.Get(authURL)
		require.NoError(err)
		defer resp.Body.Close()

		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(err)

		rr := testPostFragment(t, handler, DefaultRelayParameter, loc.Fragment)
		assert.Equal(http.StatusUnauthorized, rr.Code)

		var errResp implicit.ErrorCallback
		require.NoError(json.Unmarshal(rr.Body.Bytes(), &errResp))
		assert.Equal("access_denied", errResp.Error)
	})
}
