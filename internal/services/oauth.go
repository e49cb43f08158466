package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/hubtwin/internal/shared"
)

var twinfieldScopes = []string{"openid", "twf.user", "twf.organisation", "twf.organisationUser", "offline_access"}

// TwinfieldAuth drives the Twinfield OpenID Connect authorization code flow.
type TwinfieldAuth struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewTwinfieldAuth creates the OAuth2 client from the twinfield credentials section.
// httpClient, when set, is used for token endpoint calls.
func NewTwinfieldAuth(cfg shared.TwinfieldConfig, httpClient *http.Client) (*TwinfieldAuth, error) {
	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if cfg.AuthorizationURL == "" || cfg.TokenURL == "" {
		missing = append(missing, "authorization_url/token_url")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: twinfield %s", shared.ErrMissingCredentials, strings.Join(missing, ", "))
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = twinfieldScopes
	}

	return &TwinfieldAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizationURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpClient,
	}, nil
}

// AuthURL returns the URL the operator opens to grant access.
func (a *TwinfieldAuth) AuthURL(state, nonce string) string {
	return a.config.AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", nonce))
}

// Exchange trades an authorization code for tokens.
func (a *TwinfieldAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.config.Exchange(a.context(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// TokenSource returns a source that refreshes token when it expires.
func (a *TwinfieldAuth) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return a.config.TokenSource(a.context(ctx), token)
}

// Refresh forces a refresh using the stored refresh token.
func (a *TwinfieldAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Now().Add(-time.Minute)}
	token, err := a.TokenSource(ctx, expired).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

func (a *TwinfieldAuth) context(ctx context.Context) context.Context {
	if a.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

// TokenFromConfig rebuilds the stored token, or nil when none has been saved.
func TokenFromConfig(cfg shared.TwinfieldConfig) *oauth2.Token {
	if cfg.AccessToken == "" && cfg.RefreshToken == "" {
		return nil
	}
	token := &oauth2.Token{
		AccessToken:  cfg.AccessToken,
		RefreshToken: cfg.RefreshToken,
		TokenType:    "Bearer",
	}
	if expiry, err := time.Parse(time.RFC3339, cfg.Expiry); err == nil {
		token.Expiry = expiry
	}
	return token
}

// StoreToken copies token into the config section so it can be saved.
// An empty refresh token keeps the previous one.
func StoreToken(cfg *shared.TwinfieldConfig, token *oauth2.Token) {
	cfg.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		cfg.RefreshToken = token.RefreshToken
	}
	cfg.Expiry = ""
	if !token.Expiry.IsZero() {
		cfg.Expiry = token.Expiry.UTC().Format(time.RFC3339)
	}
}
