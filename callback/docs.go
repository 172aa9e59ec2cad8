/*
callback is a package that provides an http.HandlerFunc for handling OIDC
provider responses to implicit flow authentication attempts.  The tokens of
an implicit flow ride in the redirect URL's fragment, which the browser never
sends to a server, so the handler first serves a small relay page that posts
the fragment back, then routes the relayed fragment through the
github.com/oidc-kit/implicit decoders.
*/
package callback
