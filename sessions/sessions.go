// Package sessions implements the web side of signing in with dummyauth.
//
// This is basically a wrapper for gorilla/sessions and a set of handlers: a
// sign-in form, the callback the authorization endpoint returns to, pages for
// success and failure, and sign-out. The authorization endpoint and state are
// kept in the session between sign-in and callback.
package sessions

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/sessions"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-uuid"
	"hawx.me/code/dummyauth"
	"hawx.me/code/dummyauth/profile"
)

const (
	sessionName = "session"

	keyEndpoint = "login.endpoint"
	keyState    = "login.state"
	keyProfile  = "login.profile"
	keyError    = "login.error"
	keyMessage  = "login.message"

	errorValidation = "validation_error"
	errorGeneric    = "generic_error"
	errorException  = "exception"

	noEndpoint = "No authorization endpoint found"
)

// Sessions provides the handlers for signing users in.
type Sessions struct {
	store  sessions.Store
	auth   *dummyauth.AuthenticationConfig
	logger hclog.Logger
	now    func() time.Time
}

// New creates a new Sessions. Cookies are signed with secret, which must be
// non-empty.
func New(secret []byte, auth *dummyauth.AuthenticationConfig, logger hclog.Logger) (*Sessions, error) {
	if len(secret) == 0 {
		return nil, errors.New("secret must be non-empty")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	store := sessions.NewCookieStore(secret)
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode

	return &Sessions{
		store:  store,
		auth:   auth,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Handler routes requests to the handlers below:
//
//	GET, POST /    SignIn
//	GET /callback  Callback
//	GET /success   Success
//	GET /error     Failure
//	POST /logout   SignOut
func (s *Sessions) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", s.SignIn())
	mux.Handle("/callback", s.Callback())
	mux.Handle("/success", s.Success())
	mux.Handle("/error", s.Failure())
	mux.Handle("/logout", s.SignOut())
	return mux
}

// SignIn shows a form asking for the user's domain. When posted the endpoints
// for the domain are discovered, and the user is redirected to their
// authorization endpoint.
func (s *Sessions) SignIn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		switch r.Method {
		case http.MethodGet:
			if s.getString(r, keyProfile) != "" {
				http.Redirect(w, r, "/success", http.StatusFound)
				return
			}
			s.render(w, http.StatusOK, welcomeTmpl, welcomeData{})

		case http.MethodPost:
			s.signIn(w, r)

		default:
			w.Header().Set("Allow", "GET, POST")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	}
}

func (s *Sessions) signIn(w http.ResponseWriter, r *http.Request) {
	domain := r.FormValue("domain")
	me := profile.Canonicalize(domain)

	if err := profile.Validate(me); err != nil {
		s.render(w, http.StatusBadRequest, welcomeTmpl, welcomeData{
			Domain: domain,
			Errors: messages(err),
		})
		return
	}

	discovery, err := s.auth.NewSpider(me).Discover(r.Context())
	if err != nil {
		s.logger.Warn("discovery failed", "me", me, "error", err)
	}
	if err != nil || discovery.Endpoints.Authorization == nil {
		s.render(w, http.StatusBadRequest, welcomeTmpl, welcomeData{
			Domain: domain,
			Errors: []string{noEndpoint},
		})
		return
	}

	state, err := s.newState()
	if err != nil {
		s.logger.Error("could not create state", "error", err)
		http.Error(w, "could not start auth", http.StatusInternalServerError)
		return
	}

	session, _ := s.store.Get(r, sessionName)
	session.Values[keyEndpoint] = discovery.Endpoints.Authorization.String()
	session.Values[keyState] = state
	if err := session.Save(r, w); err != nil {
		s.logger.Error("could not save session", "error", err)
		http.Error(w, "could not start auth", http.StatusInternalServerError)
		return
	}

	s.logger.Info("redirecting to authorization endpoint",
		"me", discovery.CanonicalURL,
		"authorization_endpoint", discovery.Endpoints.Authorization.String())

	redirectURL := s.auth.RedirectURL(discovery.Endpoints.Authorization, discovery.CanonicalURL, state)
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// Callback should be assigned to the RedirectURI configured. It checks the
// state returned matches the one sent, then validates the code with the
// authorization endpoint.
func (s *Sessions) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := s.store.Get(r, sessionName)

		for _, key := range []string{keyEndpoint, keyState} {
			if v, _ := session.Values[key].(string); v == "" {
				s.fail(w, http.StatusBadRequest, fmt.Sprintf("Missing session key: %s", key))
				return
			}
		}

		endpoint, _ := session.Values[keyEndpoint].(string)
		state, _ := session.Values[keyState].(string)

		if r.FormValue("state") != state {
			s.fail(w, http.StatusUnauthorized, "The given CSRF state mismatches the sent CSRF state.")
			return
		}

		validation, err := s.auth.NewValidator(endpoint, r.FormValue("code")).Validate(r.Context())
		if err != nil {
			s.logger.Warn("validation failed", "authorization_endpoint", endpoint, "error", err)
			s.fail(w, http.StatusUnauthorized, err.Error())
			return
		}

		if validation.Valid {
			// the code can only be used once
			delete(session.Values, keyEndpoint)
			delete(session.Values, keyState)
			delete(session.Values, keyError)
			delete(session.Values, keyMessage)
			session.Values[keyProfile] = validation.ProfileURL
			s.save(w, r, session, "/success")
			return
		}

		s.logger.Info("code rejected", "authorization_endpoint", endpoint, "error", validation.Error)
		session.Values[keyError] = errorValidation
		session.Values[keyMessage] = validation.Error
		s.save(w, r, session, "/error")
	}
}

// Success shows the signed in user's profile URL, or redirects to sign in.
func (s *Sessions) Success() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me := s.getString(r, keyProfile)
		if me == "" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		s.render(w, http.StatusOK, successTmpl, successData{Profile: me})
	}
}

// Failure shows why the last sign in failed.
func (s *Sessions) Failure() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := failureData{Error: s.getString(r, keyError)}
		if data.Error == "" {
			data.Error = errorGeneric
		}
		if data.Error == errorValidation {
			data.Message = s.getString(r, keyMessage)
		}

		s.render(w, http.StatusOK, failureTmpl, data)
	}
}

// SignOut removes everything from the user's session.
func (s *Sessions) SignOut() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		session, _ := s.store.Get(r, sessionName)
		session.Values = map[interface{}]interface{}{}
		s.save(w, r, session, "/")
	}
}

func (s *Sessions) getString(r *http.Request, key string) string {
	session, _ := s.store.Get(r, sessionName)
	v, _ := session.Values[key].(string)

	return v
}

func (s *Sessions) save(w http.ResponseWriter, r *http.Request, session *sessions.Session, to string) {
	if err := session.Save(r, w); err != nil {
		s.logger.Error("could not save session", "error", err)
		http.Error(w, "could not save session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, to, http.StatusFound)
}

func (s *Sessions) fail(w http.ResponseWriter, status int, message string) {
	s.render(w, status, failureTmpl, failureData{
		Error:   errorException,
		Message: message,
	})
}

// newState returns a nonce made from the current time and a random UUID.
func (s *Sessions) newState() (string, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(s.now().Unix(), 10) + "." + id, nil
}

func messages(err error) []string {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return []string{err.Error()}
	}

	list := make([]string, len(merr.Errors))
	for i, e := range merr.Errors {
		list[i] = e.Error()
	}
	return list
}
