package dummyauth

import (
	"net/http"
	"net/url"

	"github.com/hashicorp/go-hclog"
)

// AuthenticationConfig provides the data for a client that wants to
// authenticate users.
type AuthenticationConfig struct {
	ClientID    *url.URL
	RedirectURI *url.URL

	// MaxRedirects is the longest redirect chain followed when discovering
	// endpoints.
	MaxRedirects int

	Client *http.Client
	Logger hclog.Logger
}

// Authentication returns a config for the client identified by clientID, that
// expects users to be sent back to redirectURI. It uses a client from
// NewClient and follows up to DefaultMaxRedirects redirects.
func Authentication(clientID, redirectURI string) (*AuthenticationConfig, error) {
	clientURL, err := url.Parse(clientID)
	if err != nil {
		return nil, err
	}
	redirectURL, err := url.Parse(redirectURI)
	if err != nil {
		return nil, err
	}

	return &AuthenticationConfig{
		ClientID:     clientURL,
		RedirectURI:  redirectURL,
		MaxRedirects: DefaultMaxRedirects,
		Client:       NewClient(0),
	}, nil
}

// NewSpider returns a Spider that will discover the endpoints for the profile
// URL, or "me", given.
func (c *AuthenticationConfig) NewSpider(me string) *Spider {
	return &Spider{
		URL:          me,
		MaxRedirects: c.MaxRedirects,
		Client:       c.Client,
		Logger:       c.logger().Named("spider"),
	}
}

// NewValidator returns a Validator that will check the code with the
// authorization endpoint that issued it. The code will usually be in
// r.FormValue("code"), but before validating be sure to check the value of
// r.FormValue("state") is as expected.
func (c *AuthenticationConfig) NewValidator(authorizationEndpoint, code string) *Validator {
	return &Validator{
		AuthorizationEndpoint: authorizationEndpoint,
		Code:                  code,
		ClientID:              c.ClientID.String(),
		RedirectURI:           c.RedirectURI.String(),
		Client:                c.Client,
		Logger:                c.logger().Named("validator"),
	}
}

// RedirectURL returns a URL to the authorization endpoint for the profile URL,
// or "me", given. Any query already on the endpoint is kept.
func (c *AuthenticationConfig) RedirectURL(authorizationEndpoint *url.URL, me, state string) string {
	query := authorizationEndpoint.Query()
	query.Set("me", me)
	query.Set("client_id", c.ClientID.String())
	query.Set("redirect_uri", c.RedirectURI.String())
	query.Set("state", state)
	query.Set("response_type", "id")

	redirectURL := *authorizationEndpoint
	redirectURL.RawQuery = query.Encode()
	return redirectURL.String()
}

func (c *AuthenticationConfig) logger() hclog.Logger {
	return orNull(c.Logger)
}
