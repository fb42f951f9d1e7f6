package zoom

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultTokenURL is Zoom's server-to-server OAuth token endpoint.
const DefaultTokenURL = "https://zoom.us/oauth/token"

// TokenProvider supplies bearer tokens for Zoom API requests.
// This abstraction allows different token sources (server-to-server OAuth,
// a fixed token in tests) behind the same client.
type TokenProvider interface {
	// Token returns a currently valid bearer token, fetching or refreshing
	// one as needed.
	Token(ctx context.Context) (string, error)

	// Invalidate discards any cached token so the next Token call fetches a
	// fresh one. Called once when the API answers 401.
	Invalidate()
}

// Credentials holds the server-to-server OAuth application credentials.
type Credentials struct {
	AccountID    string
	ClientID     string
	ClientSecret string
}

// Validate reports whether all credential fields are populated.
func (c Credentials) Validate() error {
	switch {
	case c.AccountID == "":
		return &ValidationError{Message: "missing OAuth credential: account id"}
	case c.ClientID == "":
		return &ValidationError{Message: "missing OAuth credential: client id"}
	case c.ClientSecret == "":
		return &ValidationError{Message: "missing OAuth credential: client secret"}
	}
	return nil
}

// oauthTokenProvider implements TokenProvider on top of the two-legged
// client-credentials flow. Zoom's server-to-server variant uses the
// account_credentials grant with the account id as an endpoint parameter.
type oauthTokenProvider struct {
	conf *clientcredentials.Config

	mu sync.Mutex
	ts oauth2.TokenSource
}

// NewTokenProvider builds a TokenProvider for Zoom server-to-server OAuth.
// tokenURL is overridable for tests; pass "" for the production endpoint.
func NewTokenProvider(creds Credentials, tokenURL string) (TokenProvider, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &oauthTokenProvider{
		conf: &clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
			EndpointParams: url.Values{
				"grant_type": {"account_credentials"},
				"account_id": {creds.AccountID},
			},
		},
	}, nil
}

func (p *oauthTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.ts == nil {
		// TokenSource caches and renews on expiry; Invalidate drops it.
		p.ts = p.conf.TokenSource(ctx)
	}
	ts := p.ts
	p.mu.Unlock()

	tok, err := ts.Token()
	if err != nil {
		return "", &AuthError{APIError{Message: fmt.Sprintf("failed to obtain access token: %v", err)}}
	}
	return tok.AccessToken, nil
}

func (p *oauthTokenProvider) Invalidate() {
	p.mu.Lock()
	p.ts = nil
	p.mu.Unlock()
}

// StaticTokenProvider returns a TokenProvider that always yields the same
// token. Intended for tests.
func StaticTokenProvider(token string) TokenProvider {
	return staticTokenProvider(token)
}

type staticTokenProvider string

func (p staticTokenProvider) Token(context.Context) (string, error) { return string(p), nil }
func (p staticTokenProvider) Invalidate()                           {}
