package callback

import (
	"context"
	"fmt"
	"html/template"
	"net/http"

	"github.com/oidc-kit/implicit"
)

// Fragment creates an implicit flow callback handler which uses a
// RequestReader to read existing implicit.Request(s) via the decoded
// fragment's "state" value as a key for the lookup.
//
// An implicit flow provider redirects back with the tokens in the URL's
// fragment, which the browser never sends to a server.  Requests without a
// relayed fragment are therefore answered with a small html page whose
// script posts window.location.hash back to the same URL; requests with one
// are routed through implicit.ParseErrorCallback and
// implicit.ParseTokenCallback.
//
// The SuccessResponseFunc is used to create a response when the callback is
// successful.  The ErrorResponseFunc is used to create a response when the
// callback fails, including when the provider answered with an error
// callback.  Note that a successful callback's tokens are decoded, not
// verified.
//
// Supported options: WithLogger, WithRelayParameter
func Fragment(ctx context.Context, rw RequestReader, sFn SuccessResponseFunc, eFn ErrorResponseFunc, opt ...implicit.Option) (http.HandlerFunc, error) {
	const op = "callback.Fragment"
	if rw == nil {
		return nil, fmt.Errorf("%s: request reader is nil: %w", op, implicit.ErrInvalidParameter)
	}
	if sFn == nil {
		return nil, fmt.Errorf("%s: success response func is nil: %w", op, implicit.ErrInvalidParameter)
	}
	if eFn == nil {
		return nil, fmt.Errorf("%s: error response func is nil: %w", op, implicit.ErrInvalidParameter)
	}
	opts := getFragmentOpts(opt...)
	logger := opts.withLogger

	return func(w http.ResponseWriter, req *http.Request) {
		// get the fragment from either the body or query parameters.
		// FormValue prioritizes body values, if found
		frag := req.FormValue(opts.withRelayParm)
		if frag == "" {
			logger.Debug("serving fragment relay page", "path", req.URL.Path)
			writeRelayPage(w, opts.withRelayParm)
			return
		}

		if respErr, err := implicit.ParseErrorCallback(frag); err == nil {
			logger.Debug("authorization error callback", "error", respErr.Error)
			eFn("", respErr, nil, w, req)
			return
		}

		cb, err := implicit.ParseTokenCallback(frag)
		if err != nil {
			responseErr := fmt.Errorf("%s: unable to decode callback fragment: %w", op, err)
			eFn("", nil, responseErr, w, req)
			return
		}
		var reqState string
		if cb.State != nil {
			reqState = *cb.State
		}

		authRequest, err := rw.Read(ctx, reqState)
		if err != nil {
			responseErr := fmt.Errorf("%s: unable to read auth request: %w", op, err)
			eFn(reqState, nil, responseErr, w, req)
			return
		}
		if authRequest == nil {
			// could have expired or it could be invalid... no way to know for
			// sure
			responseErr := fmt.Errorf("%s: auth request not found: %w", op, implicit.ErrNotFound)
			eFn(reqState, nil, responseErr, w, req)
			return
		}
		if authRequest.IsExpired() {
			responseErr := fmt.Errorf("%s: authentication request is expired: %w", op, implicit.ErrExpiredRequest)
			eFn(reqState, nil, responseErr, w, req)
			return
		}
		if reqState != authRequest.State() {
			// the reader didn't return the correct request for the key
			// given... this is an internal sort of error on the part of the
			// reader
			responseErr := fmt.Errorf("%s: auth request state (%s) and callback state (%s) are not equal: %w", op, authRequest.State(), reqState, implicit.ErrResponseStateInvalid)
			eFn(reqState, nil, responseErr, w, req)
			return
		}

		logger.Debug("token callback", "state", reqState)
		sFn(reqState, cb, w, req)
	}, nil
}

// relayPage posts the fragment back to the callback URL, since the browser
// keeps it out of the redirect request itself.
const relayPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Completing login</title>
</head>
<body onload="relayFragment()">
<noscript>JavaScript is required to complete the login.</noscript>
<form id="relay-form" method="post">
<input type="hidden" id="{{.RelayParameter}}" name="{{.RelayParameter}}" value="">
</form>
<script>
function relayFragment() {
	var frag = window.location.hash;
	if (frag.length > 1) {
		document.getElementById({{.RelayParameter}}).value = frag.substring(1);
		document.getElementById("relay-form").submit();
	}
}
</script>
</body>
</html>
`

var relayPageTemplate = template.Must(template.New("relay").Parse(relayPage))

func writeRelayPage(w http.ResponseWriter, relayParm string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		RelayParameter string
	}{
		RelayParameter: relayParm,
	}
	// a failed page write leaves nothing useful to send
	_ = relayPageTemplate.Execute(w, data)
}
