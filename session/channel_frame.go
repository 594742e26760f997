package session

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/pkg/errors"
)

const defaultMaxRedirects = 10

// FrameChannel sends the authorize request directly with the user's session
// cookies and reads the response off the redirect back to the client.
type FrameChannel struct {
	client       *http.Client
	maxRedirects int
}

// FrameOption configures a FrameChannel.
type FrameOption func(*FrameChannel)

// WithMaxRedirects bounds the redirects followed before the client's redirect URI is reached.
func WithMaxRedirects(n int) FrameOption {
	return func(f *FrameChannel) {
		if n > 0 {
			f.maxRedirects = n
		}
	}
}

// WithTransport sets the round tripper used for requests.
func WithTransport(rt http.RoundTripper) FrameOption {
	return func(f *FrameChannel) {
		if rt != nil {
			f.client.Transport = rt
		}
	}
}

// NewFrameChannel creates a FrameChannel that presents the cookies in jar. A nil
// jar starts with an empty session.
func NewFrameChannel(jar http.CookieJar, opts ...FrameOption) (*FrameChannel, error) {
	if jar == nil {
		var err error
		if jar, err = cookiejar.New(nil); err != nil {
			return nil, errors.Wrap(err, "[session.NewFrameChannel] creating cookie jar")
		}
	}
	f := &FrameChannel{
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxRedirects: defaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Await follows redirects until one targets req.RedirectURI and returns its
// fragment, or its query when there is no fragment.
func (f *FrameChannel) Await(ctx context.Context, req ChannelRequest) (string, error) {
	if req.ResponseMode == oauthmodel.WebMessageResponseMode || req.ResponseMode == oauthmodel.FormPostResponseMode {
		return "", autherror.Configuration("response mode %q cannot be read from a redirect", req.ResponseMode)
	}

	redirect, err := url.Parse(req.RedirectURI)
	if err != nil || redirect.Host == "" {
		return "", autherror.Configuration("invalid redirect uri %q", req.RedirectURI)
	}

	next := req.URL
	for hop := 0; hop <= f.maxRedirects; hop++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, next, nil)
		if err != nil {
			return "", autherror.Configuration("building renewal request: %v", err)
		}
		resp, err := f.client.Do(httpReq)
		if err != nil {
			return "", autherror.Wrap(autherror.KindNetwork, err, "renewal request failed")
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()

		if resp.StatusCode < 300 || resp.StatusCode > 399 {
			return "", autherror.FromOAuth(resp.StatusCode, "", "authorize endpoint answered without redirecting")
		}
		location, err := resp.Location()
		if err != nil {
			return "", autherror.Wrap(autherror.KindServer, err, "redirect without location")
		}
		if sameEndpoint(location, redirect) {
			if fragment := location.EscapedFragment(); fragment != "" {
				return fragment, nil
			}
			return location.RawQuery, nil
		}
		next = location.String()
	}
	return "", autherror.Newf(autherror.KindServer, "gave up after %d redirects", f.maxRedirects)
}

// sameEndpoint compares scheme, host and path exactly.
func sameEndpoint(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) &&
		strings.EqualFold(a.Host, b.Host) &&
		endpointPath(a) == endpointPath(b)
}

func endpointPath(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}
