/*
Package dummyauth authenticates users with IndieAuth.

It implements the two requests a client makes: discovering the endpoints a
profile URL declares, and checking the authorization code the user comes back
with.

Discovery

Given the URL a user has entered, a Spider finds the URL to treat as their
identity and the authorization endpoint to send them to. Redirects are
followed; a permanent redirect (301, 308) moves the identity, a temporary one
(302, 307) does not.

    config, _ := dummyauth.Authentication(
      "http://client.example.com/",
      "http://client.example.com/callback")

    func SignIn(w http.ResponseWriter, r *http.Request) {
      discovery, err := config.NewSpider(r.FormValue("me")).Discover(r.Context())
      if err != nil || discovery.Endpoints.Authorization == nil {
        http.Error(w, "no authorization endpoint found", http.StatusBadRequest)
        return
      }

      // remember discovery.Endpoints.Authorization and state for the callback
      http.Redirect(w, r, config.RedirectURL(
        discovery.Endpoints.Authorization, discovery.CanonicalURL, state), http.StatusFound)
    }

Validation

The authorization endpoint sends the user back to the redirect URI with a
"code" and the "state" given. Once the state is checked the code can be
validated.

    func Callback(w http.ResponseWriter, r *http.Request) {
      if r.FormValue("state") != state {
        http.Error(w, "state does not match", http.StatusBadRequest)
        return
      }

      validation, err := config.NewValidator(endpoint, r.FormValue("code")).Validate(r.Context())
      if err != nil || !validation.Valid {
        http.Error(w, "not authorized", http.StatusForbidden)
        return
      }

      fmt.Fprintf(w, "Hello %v\n", validation.ProfileURL)
    }

Further Reading

Spec: https://indieauth.spec.indieweb.org/
*/
package dummyauth
