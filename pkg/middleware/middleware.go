// Package middleware holds the HTTP middleware the API module runs behind:
// CORS, request logging, and OIDC bearer authentication.
package middleware

import (
	"net/http"
	"slices"
)

// Chain is an ordered middleware stack. The first entry sees each request
// first.
type Chain []func(http.Handler) http.Handler

// Then wraps h with the chain. Nil entries are skipped.
func (c Chain) Then(h http.Handler) http.Handler {
	for _, mw := range slices.Backward(c) {
		if mw != nil {
			h = mw(h)
		}
	}
	return h
}
