// Package implicit supports relying parties that use the OAuth2/OIDC
// implicit flow, where the provider returns tokens directly in the redirect
// URL's fragment rather than exchanging an authorization code with a
// backend.
//
// The heart of the package is a pair of fragment decoders:
// ParseTokenCallback recognizes a successful token grant and
// ParseErrorCallback recognizes an authorization error.  Both report
// ErrNoMatch when a fragment is neither, so callers can compose them into
// their own routing and fall through to a default route.  The package also
// provides a Config/Provider pair for building the authorization URLs that
// start a flow, and the callback subpackage provides an http.Handler that
// relays fragments back from the browser and routes them through the
// decoders.
//
// The package never validates token signatures, refreshes tokens, or
// persists session state; it only decodes what is already present in the
// URL.
package implicit
