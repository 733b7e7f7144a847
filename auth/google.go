package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

var ErrInvalidState = errors.New("invalid oauth state")

// GoogleUser is the subset of Google's userinfo response we care about.
type GoogleUser struct {
	Sub   string `json:"sub"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GoogleClient drives the authorization-code flow against Google. Issued
// state tokens are kept in memory and consumed on the first callback.
type GoogleClient struct {
	config oauth2.Config

	stateMu sync.Mutex
	state   map[string]struct{}
}

func NewGoogleClient(clientID, clientSecret, redirectURL string) *GoogleClient {
	return &GoogleClient{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		state: make(map[string]struct{}),
	}
}

// LoginURL registers a fresh state token and returns the consent URL to
// redirect the user to.
func (c *GoogleClient) LoginURL() (string, error) {
	state, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	c.stateMu.Lock()
	c.state[state] = struct{}{}
	c.stateMu.Unlock()

	return c.config.AuthCodeURL(state), nil
}

// Exchange validates the callback state, trades the authorization code for
// an access token and fetches the user's profile.
func (c *GoogleClient) Exchange(ctx context.Context, state, code string) (GoogleUser, error) {
	c.stateMu.Lock()
	_, ok := c.state[state]
	delete(c.state, state)
	c.stateMu.Unlock()

	if !ok {
		return GoogleUser{}, ErrInvalidState
	}

	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return GoogleUser{}, err
	}

	return c.userInfo(ctx, token)
}

func (c *GoogleClient) userInfo(ctx context.Context, token *oauth2.Token) (GoogleUser, error) {
	client := c.config.Client(ctx, token)
	res, err := client.Get(userInfoURL)
	if err != nil {
		return GoogleUser{}, err
	}
	defer res.Body.Close()

	var user GoogleUser
	if err := json.NewDecoder(res.Body).Decode(&user); err != nil {
		return GoogleUser{}, err
	}

	return user, nil
}
