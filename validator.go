package dummyauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// maxResponseSize is the most that will be read of an authorization endpoint's
// response.
const maxResponseSize = 1 << 20

// Validation is the outcome of checking an authorization code.
type Validation struct {
	// Valid is true when the authorization endpoint accepted the code and
	// returned the user's profile URL.
	Valid bool

	// ProfileURL is the "me" returned by the authorization endpoint, it is only
	// set when Valid is true.
	ProfileURL string

	// Error is only meaningful when Valid is false. It is the "error" returned
	// by the authorization endpoint, which may be empty, or
	// ErrorInvalidPayload when the endpoint accepted the code without
	// returning a profile URL.
	Error string
}

// A Validator checks an authorization code with the authorization endpoint
// that issued it.
//
// A Validator makes its request the first time Validate is called, later calls
// return the same result.
type Validator struct {
	AuthorizationEndpoint string
	Code                  string
	ClientID              string
	RedirectURI           string

	// Client is used to make the request, if nil a client from NewClient is
	// used.
	Client *http.Client

	Logger hclog.Logger

	mu         sync.Mutex
	fetched    bool
	validation *Validation
	err        error
}

// NewValidator returns a Validator for the code given.
func NewValidator(authorizationEndpoint, code, clientID, redirectURI string) *Validator {
	return &Validator{
		AuthorizationEndpoint: authorizationEndpoint,
		Code:                  code,
		ClientID:              clientID,
		RedirectURI:           redirectURI,
	}
}

// Validate asks the authorization endpoint whether the code is valid. A
// rejected code is not an error, the reason will be given in the returned
// Validation. An error is returned when the request fails or the response
// cannot be understood, for instance an *UnsupportedContentTypeError.
//
// If ctx is cancelled before validation completes nothing is remembered, so
// Validate may be called again.
func (v *Validator) Validate(ctx context.Context) (*Validation, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.fetched {
		return v.validation, v.err
	}

	validation, err := v.validate(ctx)
	if err != nil && ctx.Err() != nil {
		return nil, err
	}

	v.fetched = true
	v.validation, v.err = validation, err
	return validation, err
}

func (v *Validator) validate(ctx context.Context) (*Validation, error) {
	client := v.Client
	if client == nil {
		client = NewClient(0)
	}
	logger := orNull(v.Logger).With("authorization_endpoint", v.AuthorizationEndpoint)

	form := url.Values{
		"code":         {v.Code},
		"client_id":    {v.ClientID},
		"redirect_uri": {v.RedirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.AuthorizationEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request %s: %w", v.AuthorizationEndpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("could not read response from %s: %w", v.AuthorizationEndpoint, err)
	}

	b, err := decodeBody(resp.StatusCode, resp.Header.Get("Content-Type"), data)
	if err != nil {
		logger.Warn("could not decode response", "status", resp.StatusCode, "error", err)
		return nil, err
	}

	validation := &Validation{}

	if resp.StatusCode != http.StatusOK {
		validation.Error, _ = b.get("error")
		logger.Debug("code rejected", "status", resp.StatusCode, "media_type", b.mediaType, "error", validation.Error)
		return validation, nil
	}

	me, ok := b.get("me")
	if !ok {
		validation.Error = ErrorInvalidPayload
		logger.Debug("code accepted without profile url", "media_type", b.mediaType)
		return validation, nil
	}

	validation.Valid = true
	validation.ProfileURL = me
	logger.Debug("code accepted", "me", me)
	return validation, nil
}
