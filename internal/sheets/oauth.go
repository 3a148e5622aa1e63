package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

var ErrNoToken = errors.New("google authorization required")

// Authorizer owns the OAuth client configuration and the cached token file.
// A token is obtained once through the consent redirect and then reused and
// refreshed until the refresh token stops working.
type Authorizer struct {
	config    *oauth2.Config
	tokenFile string

	mu sync.Mutex
}

// NewAuthorizer reads an installed/web client secrets file as downloaded from
// the Google Cloud console.
func NewAuthorizer(credentialsFile, tokenFile, redirectURL string) (*Authorizer, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets: %w", err)
	}

	conf, err := google.ConfigFromJSON(b, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets: %w", err)
	}
	conf.RedirectURL = redirectURL

	return NewAuthorizerWithConfig(conf, tokenFile), nil
}

func NewAuthorizerWithConfig(conf *oauth2.Config, tokenFile string) *Authorizer {
	return &Authorizer{config: conf, tokenFile: tokenFile}
}

// AuthCodeURL is where the operator is redirected to grant access.
func (a *Authorizer) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades the authorization code for a token and caches it.
func (a *Authorizer) Exchange(ctx context.Context, code string) error {
	tok, err := a.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return a.SaveToken(tok)
}

func (a *Authorizer) LoadToken() (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.Open(a.tokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("%w: failed to decode token file: %v", ErrNoToken, err)
	}
	return tok, nil
}

func (a *Authorizer) SaveToken(tok *oauth2.Token) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if dir := filepath.Dir(a.tokenFile); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(a.tokenFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Authorized reports whether a usable (valid or refreshable) token is cached.
func (a *Authorizer) Authorized() bool {
	tok, err := a.LoadToken()
	if err != nil {
		return false
	}
	return tok.Valid() || tok.RefreshToken != ""
}

// HTTPClient returns a client that signs requests with the cached token,
// refreshing it when expired. ErrNoToken means the consent flow must run.
func (a *Authorizer) HTTPClient(ctx context.Context) (*http.Client, error) {
	tok, err := a.LoadToken()
	if err != nil {
		return nil, err
	}
	if !tok.Valid() && tok.RefreshToken == "" {
		return nil, ErrNoToken
	}

	ts := &persistingTokenSource{
		base: a.config.TokenSource(ctx, tok),
		last: tok.AccessToken,
		save: a.SaveToken,
	}

	// Surface a dead refresh token now rather than on the first API call.
	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoToken, err)
	}

	return oauth2.NewClient(ctx, ts), nil
}

// Service implements ServiceProvider.
func (a *Authorizer) Service(ctx context.Context) (*gsheets.Service, error) {
	client, err := a.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := gsheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return svc, nil
}

// persistingTokenSource writes refreshed tokens back to the token file.
type persistingTokenSource struct {
	base oauth2.TokenSource
	save func(*oauth2.Token) error

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok.AccessToken != p.last {
		if err := p.save(tok); err != nil {
			log.Warn().Err(err).Msg("failed to persist refreshed google token")
		} else {
			log.Info().Time("expiry", tok.Expiry).Msg("google token refreshed")
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}
