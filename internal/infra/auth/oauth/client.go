// Package oauth verifies access tokens issued by external identity providers.
package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// bearerClient returns an HTTP client that presents accessToken on every request.
// The base client carries the transport timeout.
func bearerClient(ctx context.Context, base *http.Client, accessToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
}
