package auth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// tokenSafetyMargin mirrors the tenant token cache: treat a user token as
// expired a minute before the issuer does.
const tokenSafetyMargin = 60 * time.Second

// OAuth wraps the authorization-code flow for calendar access.
type OAuth struct {
	cfg oauth2.Config
}

// NewOAuth builds the flow from the app identity and endpoint URLs.
func NewOAuth(appID, appSecret, authURL, tokenURL, redirectURI, scope string) *OAuth {
	var scopes []string
	if scope != "" {
		scopes = []string{scope}
	}
	return &OAuth{
		cfg: oauth2.Config{
			ClientID:     appID,
			ClientSecret: appSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: redirectURI,
			Scopes:      scopes,
		},
	}
}

// Configured reports whether the flow can run (a redirect URI is set).
func (o *OAuth) Configured() bool {
	return o.cfg.RedirectURL != ""
}

// AuthorizeURL returns the URL the user must visit; state carries the
// user id back through the callback.
func (o *OAuth) AuthorizeURL(state string) string {
	return o.cfg.AuthCodeURL(state)
}

// Exchange redeems an authorization code for a user token, applying the
// safety margin to its expiry.
func (o *OAuth) Exchange(ctx context.Context, code string) (*UserToken, error) {
	tok, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth exchange: %w", err)
	}
	ut := &UserToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		ut.ExpireAt = tok.Expiry.Add(-tokenSafetyMargin)
	}
	return ut, nil
}
