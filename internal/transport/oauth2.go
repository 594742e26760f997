package transport

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// WithOAuth2Client makes golang.org/x/oauth2 send its requests through the client's http.Client.
func (c *Client) WithOAuth2Client(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// MapOAuth2Error converts an error returned by golang.org/x/oauth2 into an autherror.
func MapOAuth2Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := http.StatusBadRequest
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		description := retrieveErr.ErrorDescription
		if description == "" {
			description = string(retrieveErr.Body)
		}
		apiErr := autherror.FromOAuth(status, retrieveErr.ErrorCode, description)
		apiErr.Err = err
		return apiErr
	}
	if ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return autherror.Wrap(autherror.KindTimeout, err, "token request deadline exceeded")
	}
	return autherror.Wrap(autherror.KindNetwork, err, "token request failed")
}
