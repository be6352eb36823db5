package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const tokenPath = "/oauth/token"

// Token is the result of an OAuth exchange. DisplayName and ID are only
// populated for grants made on behalf of a user.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	ID           string `json:"id,omitempty"`
}

// AuthError is returned when the token endpoint refuses a grant or cannot be
// reached.
type AuthError struct {
	Grant      string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("workspace auth (%s): status %d", e.Grant, e.StatusCode)
	}
	return fmt.Sprintf("workspace auth (%s): %v", e.Grant, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ClientCredentials obtains an app token from the app id and secret.
func (c *Client) ClientCredentials(ctx context.Context) (Token, error) {
	return c.exchange(ctx, url.Values{"grant_type": {"client_credentials"}})
}

// RefreshToken trades a refresh token for a new user token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (Token, error) {
	return c.exchange(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

// AuthorizationCode completes the OAuth authorization code flow.
func (c *Client) AuthorizationCode(ctx context.Context, code, redirectURI string) (Token, error) {
	return c.exchange(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
	})
}

func (c *Client) exchange(ctx context.Context, form url.Values) (Token, error) {
	grant := form.Get("grant_type")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.appID, c.appSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debug("issuing authentication request", "grant_type", grant)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Token{}, &AuthError{Grant: grant, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Token{}, &AuthError{Grant: grant, StatusCode: resp.StatusCode}
	}

	var tok Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return Token{}, &AuthError{Grant: grant, Err: fmt.Errorf("decoding token: %w", err)}
	}
	if tok.AccessToken == "" {
		return Token{}, &AuthError{Grant: grant, Err: errors.New("empty access token")}
	}
	return tok, nil
}
