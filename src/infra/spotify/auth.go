package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"maestro/src/infra/credentials"
	"maestro/src/player"
)

// tokenResponse is the accounts endpoint's answer to a code exchange.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// exchangeCode trades an authorization code for a bearer token. The code
// itself is obtained through an out-of-band interactive flow; this only
// performs the final exchange.
func (d *Driver) exchangeCode(ctx context.Context, code string) (credentials.Record, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", d.cfg.RedirectURI)

	endpoint := d.accountsBase + "/api/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return credentials.Record{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(d.cfg.ClientID, d.cfg.ClientSecret)

	resp, err := d.authHTTP.Do(req)
	if err != nil {
		return credentials.Record{}, &player.ConnectionError{Backend: "spotify", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return credentials.Record{}, &player.AuthorizationError{
			Reason: fmt.Sprintf("token exchange rejected with status %d", resp.StatusCode),
		}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return credentials.Record{}, &player.ParseError{Source: "token", Err: err}
	}
	if tok.AccessToken == "" {
		return credentials.Record{}, &player.AuthorizationError{Reason: "token exchange returned no access token"}
	}

	return credentials.Record{
		AccessToken: tok.AccessToken,
		IssuingCode: code,
		ExpiresAt:   time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}, nil
}
