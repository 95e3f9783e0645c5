// Package profile prepares the profile URLs users type in to sign in.
//
// See https://indieauth.spec.indieweb.org/#user-profile-url
package profile

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrMissingProfile = errors.New("must not be empty")
	ErrMissingScheme  = errors.New("must have a scheme")
	ErrInvalidScheme  = errors.New("scheme must be http or https")
	ErrMissingHost    = errors.New("must have a host")
	ErrDotSegment     = errors.New("path must not contain . or .. segments")
	ErrFragment       = errors.New("must not contain a fragment")
	ErrUserinfo       = errors.New("must not contain a username or password")
	ErrPort           = errors.New("must not contain a port")
	ErrIPAddress      = errors.New("host must be a domain name, not an IP address")
)

// Canonicalize turns what a user typed into a URL. A missing scheme becomes
// http, the host is lowercased and an empty path becomes "/". Anything else,
// even if invalid, is kept so that Validate can reject it.
func Canonicalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return s
	}

	u.Host = strings.ToLower(u.Host)
	if u.Path == "" && u.RawPath == "" {
		u.Path = "/"
	}

	return u.String()
}

// Validate checks that s can be used as a profile URL. Every rule that s
// breaks is reported.
func Validate(s string) error {
	if s == "" {
		return ErrMissingProfile
	}

	u, err := url.Parse(s)
	if err != nil {
		return err
	}

	var result *multierror.Error

	switch {
	case u.Scheme == "":
		result = multierror.Append(result, ErrMissingScheme)
	case u.Scheme != "http" && u.Scheme != "https":
		result = multierror.Append(result, fmt.Errorf("%w, not %s", ErrInvalidScheme, u.Scheme))
	}

	if u.Host == "" {
		result = multierror.Append(result, ErrMissingHost)
	}

	for _, segment := range strings.Split(u.EscapedPath(), "/") {
		if segment == "." || segment == ".." {
			result = multierror.Append(result, ErrDotSegment)
			break
		}
	}

	if u.Fragment != "" || strings.Contains(s, "#") {
		result = multierror.Append(result, ErrFragment)
	}

	if u.User != nil {
		result = multierror.Append(result, ErrUserinfo)
	}

	if u.Port() != "" {
		result = multierror.Append(result, ErrPort)
	}

	if net.ParseIP(u.Hostname()) != nil {
		result = multierror.Append(result, ErrIPAddress)
	}

	return result.ErrorOrNil()
}
