package dummyauth

import (
	"fmt"
)

// ErrorInvalidPayload is the Validation.Error given when an authorization
// endpoint accepts a code but does not say who the user is.
const ErrorInvalidPayload = "invalid_payload"

type clientError int

func (e clientError) Error() string {
	switch e {
	case ErrTooManyRedirects:
		return "too many redirects"
	case ErrMissingLocation:
		return "redirect response has no location"
	case ErrInconsistentResponse:
		return "GET response does not match HEAD response"
	default:
		panic("missing error definition")
	}
}

const (
	// ErrTooManyRedirects means discovery gave up following a chain of
	// redirects. Errors returned by Discover for this reason will be a
	// *TooManyRedirectsError.
	ErrTooManyRedirects clientError = iota

	// ErrMissingLocation means a page answered with a redirect status but did
	// not say where to go.
	ErrMissingLocation

	// ErrInconsistentResponse means the page answered the GET needed to read
	// its HTML with a different status than the HEAD that preceded it.
	ErrInconsistentResponse
)

// TooManyRedirectsError is returned when the redirect chain starting at a
// profile URL is longer than the limit allowed.
type TooManyRedirectsError struct {
	// URL is the page that issued the redirect which exceeded the limit.
	URL   string
	Limit int
}

func (e *TooManyRedirectsError) Error() string {
	return fmt.Sprintf("%s: more than %d redirects, last from %s", ErrTooManyRedirects, e.Limit, e.URL)
}

func (e *TooManyRedirectsError) Unwrap() error {
	return ErrTooManyRedirects
}

// UnsupportedContentTypeError is returned when an authorization endpoint
// responds with a body that is neither JSON nor form encoded.
type UnsupportedContentTypeError struct {
	ContentType string
}

func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("unsupported content-type: %q", e.ContentType)
}

// ResponseError is returned when an authorization endpoint responds with a
// body of a supported type which could not be decoded.
type ResponseError struct {
	StatusCode int
	MediaType  string
	Body       []byte
	Err        error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("received a malformed %d (%s) response: %v", e.StatusCode, e.MediaType, e.Err)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}
