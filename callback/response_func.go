package callback

import (
	"net/http"

	"github.com/oidc-kit/implicit"
)

// SuccessResponseFunc is used by the callback to create a http response when
// the callback is successful.
//
// The state parameter contains the state echoed back in the token callback
// fragment, and the implicit.TokenCallback holds the decoded grant.  The
// function should use the http.ResponseWriter to send back whatever content
// (headers, html, JSON, etc) it wishes to the client that originated the
// flow.  Remember that the decoded tokens are unverified; any signature or
// nonce verification the caller requires happens here.
type SuccessResponseFunc func(state string, t *implicit.TokenCallback, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by the callback to create a http response when
// the callback fails.
//
// The function receives the state echoed back in the callback fragment, when
// there was one.  It also gets parameters for the provider's authorization
// error response and/or the callback error raised while processing the
// request.  The function should use the http.ResponseWriter to send back
// whatever content (headers, html, JSON, etc) it wishes to the client that
// originated the flow.
type ErrorResponseFunc func(state string, respErr *implicit.ErrorCallback, e error, w http.ResponseWriter, req *http.Request)
