package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/dabbahouse/foodorder/internal/httputil"
)

const (
	stateCookie = "fo_oauth_state"
	stateMaxAge = 10 * 60

	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
)

// ExternalIdentity is what a provider vouches for after a successful login.
type ExternalIdentity struct {
	Email string
	Name  string
}

// IdentityProvider is an OAuth2 single sign-on provider.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (ExternalIdentity, error)
}

// GoogleConfig configures GoogleProvider. Empty endpoints use Google's.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	UserInfoURL  string
	AuthURL      string
	TokenURL     string
}

// GoogleProvider signs customers in with their Google account.
type GoogleProvider struct {
	oauth       *oauth2.Config
	client      *httputil.Client
	userInfoURL string
}

// NewGoogleProvider constructs the provider. client is used for the token
// exchange and the userinfo request.
func NewGoogleProvider(cfg GoogleConfig, client *httputil.Client) *GoogleProvider {
	if client == nil {
		client = httputil.NewClient(httputil.ClientConfig{})
	}
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = googleAuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = googleTokenURL
	}
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client:      client,
		userInfoURL: cfg.UserInfoURL,
	}
}

// AuthCodeURL returns the consent page URL.
func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades the authorization code for a token and reads the user's
// verified email and name.
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (ExternalIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client.HTTPClient())
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("exchange code: %w", err)
	}

	body, err := g.client.GetBytes(ctx, g.userInfoURL, http.Header{
		"Authorization": {"Bearer " + token.AccessToken},
	})
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	return parseUserInfo(body)
}

func parseUserInfo(body []byte) (ExternalIdentity, error) {
	if !gjson.ValidBytes(body) {
		return ExternalIdentity{}, fmt.Errorf("userinfo is not valid JSON")
	}
	info := gjson.ParseBytes(body)
	email := strings.TrimSpace(info.Get("email").String())
	if email == "" {
		return ExternalIdentity{}, fmt.Errorf("userinfo has no email")
	}
	if verified := info.Get("email_verified"); verified.Exists() && !verified.Bool() {
		return ExternalIdentity{}, fmt.Errorf("email %s is not verified", email)
	}
	name := info.Get("name").String()
	if name == "" {
		name = strings.TrimSpace(info.Get("given_name").String() + " " + info.Get("family_name").String())
	}
	return ExternalIdentity{Email: email, Name: name}, nil
}

// NewState returns a random OAuth state and stores it in a short-lived cookie.
func NewState(w http.ResponseWriter, secure bool) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := hex.EncodeToString(buf)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}

// VerifyState checks the state echoed by the provider against the cookie
// and clears the cookie.
func VerifyState(w http.ResponseWriter, r *http.Request, secure bool) bool {
	expected := cookieValue(r, stateCookie)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/api/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	got := r.URL.Query().Get("state")
	if expected == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
