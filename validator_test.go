package dummyauth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"hawx.me/code/assert"
)

// testAuthEndpoint responds to every request with the same response, recording
// the requests made.
type testAuthEndpoint struct {
	status      int
	contentType string
	body        string

	mu       sync.Mutex
	requests []*http.Request
	forms    []map[string]string
}

func (e *testAuthEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()

	e.mu.Lock()
	e.requests = append(e.requests, r)
	e.forms = append(e.forms, map[string]string{
		"code":         r.PostFormValue("code"),
		"client_id":    r.PostFormValue("client_id"),
		"redirect_uri": r.PostFormValue("redirect_uri"),
	})
	e.mu.Unlock()

	w.Header().Set("Content-Type", e.contentType)
	if e.status != 0 {
		w.WriteHeader(e.status)
	}
	io.WriteString(w, e.body)
}

func (e *testAuthEndpoint) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.requests)
}

func validate(t *testing.T, e *testAuthEndpoint) (*Validation, error) {
	t.Helper()

	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)

	validator := NewValidator(ts.URL+"/login", "deadbeef", "http://client.example.com/", "http://client.example.com/callback")
	validator.Client = ts.Client()
	return validator.Validate(context.Background())
}

func TestValidateValid(t *testing.T) {
	assert := assert.Wrap(t)

	endpoint := &testAuthEndpoint{
		contentType: "application/json",
		body:        `{"me": "http://johndoe.example.com/"}`,
	}

	validation, err := validate(t, endpoint)
	assert(err).Must.Nil()

	assert(cmp.Diff(&Validation{
		Valid:      true,
		ProfileURL: "http://johndoe.example.com/",
	}, validation)).Equal("")
}

func TestValidateSendsCode(t *testing.T) {
	assert := assert.Wrap(t)

	endpoint := &testAuthEndpoint{
		contentType: "application/json",
		body:        `{"me": "http://johndoe.example.com/"}`,
	}

	_, err := validate(t, endpoint)
	assert(err).Must.Nil()
	if endpoint.count() != 1 {
		t.Fatalf("expected 1 request, got %d", endpoint.count())
	}

	req := endpoint.requests[0]
	assert(req.Method).Equal(http.MethodPost)
	assert(req.URL.Path).Equal("/login")
	assert(req.Header.Get("Content-Type")).Equal("application/x-www-form-urlencoded")

	assert(cmp.Diff(map[string]string{
		"code":         "deadbeef",
		"client_id":    "http://client.example.com/",
		"redirect_uri": "http://client.example.com/callback",
	}, endpoint.forms[0])).Equal("")
}

func TestValidateFormEncoded(t *testing.T) {
	assert := assert.Wrap(t)

	endpoint := &testAuthEndpoint{
		contentType: "application/x-www-form-urlencoded",
		body:        "me=http%3A%2F%2Fjohndoe.example.com%2F&me=http%3A%2F%2Fother.example.com%2F",
	}

	validation, err := validate(t, endpoint)
	assert(err).Must.Nil()

	assert(validation.Valid).True()
	assert(validation.ProfileURL).Equal("http://johndoe.example.com/")
}

func TestValidateContentTypeParameters(t *testing.T) {
	assert := assert.Wrap(t)

	endpoint := &testAuthEndpoint{
		contentType: "application/json; charset=utf-8",
		body:        `{"me": "http://johndoe.example.com/"}`,
	}

	validation, err := validate(t, endpoint)
	assert(err).Must.Nil()
	assert(validation.Valid).True()
}

func TestValidateRejected(t *testing.T) {
	testCases := []struct {
		Name        string
		ContentType string
		Body        string
		Error       string
	}{
		{
			Name:        "json",
			ContentType: "application/json",
			Body:        `{"error": "invalid_request"}`,
			Error:       "invalid_request",
		},
		{
			Name:        "form encoded",
			ContentType: "application/x-www-form-urlencoded",
			Body:        "error=invalid_grant&error_description=expired",
			Error:       "invalid_grant",
		},
		{
			Name:        "without error",
			ContentType: "application/json",
			Body:        `{}`,
			Error:       "",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			assert := assert.Wrap(t)

			endpoint := &testAuthEndpoint{
				status:      http.StatusBadRequest,
				contentType: testCase.ContentType,
				body:        testCase.Body,
			}

			validation, err := validate(t, endpoint)
			assert(err).Must.Nil()

			assert(cmp.Diff(&Validation{
				Valid: false,
				Error: testCase.Error,
			}, validation)).Equal("")
		})
	}
}

func TestValidateRejectedWithProfileURL(t *testing.T) {
	assert := assert.Wrap(t)

	endpoint := &testAuthEndpoint{
		status:      http.StatusUnauthorized,
		contentType: "application/json",
		body:        `{"me": "http://johndoe.example.com/", "error": "access_denied"}`,
	}

	validation, err := validate(t, endpoint)
	assert(err).Must.Nil()

	assert(validation.Valid).Equal(false)
	assert(validation.ProfileURL).Equal("")
	assert(validation.Error).Equal("access_denied")
}

func TestValidateInvalidPayload(t *testing.T) {
	assert := assert.Wrap(t)

	endpoint := &testAuthEndpoint{
		contentType: "application/json",
		body:        `{"scope": "profile"}`,
	}

	validation, err := validate(t, endpoint)
	assert(err).Must.Nil()

	assert(validation.Valid).Equal(false)
	assert(validation.ProfileURL).Equal("")
	assert(validation.Error).Equal(ErrorInvalidPayload)
}

func TestValidateUnsupportedContentType(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusBadRequest} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			assert := assert.Wrap(t)

			endpoint := &testAuthEndpoint{
				status:      status,
				contentType: "text/plain",
				body:        "me=http://johndoe.example.com/",
			}

			validation, err := validate(t, endpoint)
			assert(validation == nil).True()

			var unsupported *UnsupportedContentTypeError
			if !errors.As(err, &unsupported) {
				t.Fatalf("expected *UnsupportedContentTypeError, got %v", err)
			}
			assert(unsupported.ContentType).Equal("text/plain")
		})
	}
}

func TestValidateMalformedJSON(t *testing.T) {
	assert := assert.Wrap(t)

	endpoint := &testAuthEndpoint{
		contentType: "application/json",
		body:        `{"me": `,
	}

	_, err := validate(t, endpoint)

	var responseErr *ResponseError
	if !errors.As(err, &responseErr) {
		t.Fatalf("expected *ResponseError, got %v", err)
	}
	assert(responseErr.StatusCode).Equal(http.StatusOK)
	assert(responseErr.MediaType).Equal("application/json")
}

func TestValidateOnlyOnce(t *testing.T) {
	assert := assert.Wrap(t)

	endpoint := &testAuthEndpoint{
		contentType: "application/json",
		body:        `{"me": "http://johndoe.example.com/"}`,
	}
	ts := httptest.NewServer(endpoint)
	defer ts.Close()

	validator := NewValidator(ts.URL, "deadbeef", "http://client.example.com/", "http://client.example.com/callback")
	validator.Client = ts.Client()

	for i := 0; i < 3; i++ {
		validation, err := validator.Validate(context.Background())
		assert(err).Must.Nil()
		assert(validation.Valid).True()
		assert(validation.ProfileURL).Equal("http://johndoe.example.com/")
		assert(validation.Error).Equal("")
	}

	assert(endpoint.count()).Equal(1)
}

func TestValidateRemembersFaults(t *testing.T) {
	assert := assert.Wrap(t)

	endpoint := &testAuthEndpoint{contentType: "text/plain"}
	ts := httptest.NewServer(endpoint)
	defer ts.Close()

	validator := NewValidator(ts.URL, "deadbeef", "http://client.example.com/", "http://client.example.com/callback")
	validator.Client = ts.Client()

	_, first := validator.Validate(context.Background())
	_, second := validator.Validate(context.Background())

	assert(first == second).True()
	assert(endpoint.count()).Equal(1)
}

func TestValidateCancelled(t *testing.T) {
	assert := assert.Wrap(t)

	endpoint := &testAuthEndpoint{
		contentType: "application/json",
		body:        `{"me": "http://johndoe.example.com/"}`,
	}
	ts := httptest.NewServer(endpoint)
	defer ts.Close()

	validator := NewValidator(ts.URL, "deadbeef", "http://client.example.com/", "http://client.example.com/callback")
	validator.Client = ts.Client()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := validator.Validate(ctx)
	assert(errors.Is(err, context.Canceled)).True()

	validation, err := validator.Validate(context.Background())
	assert(err).Must.Nil()
	assert(validation.Valid).True()
}

func TestDecodeBody(t *testing.T) {
	assert := assert.Wrap(t)

	b, err := decodeBody(http.StatusOK, "application/json", []byte(`{"me": "http://a/", "n": 5, "list": ["x"]}`))
	assert(err).Must.Nil()
	assert(b.kind).Equal(jsonBody)
	assert(cmp.Diff(map[string]string{"me": "http://a/"}, b.values)).Equal("")

	b, err = decodeBody(http.StatusOK, "application/x-www-form-urlencoded; charset=utf-8", []byte("a=1&a=2&b=3"))
	assert(err).Must.Nil()
	assert(b.kind).Equal(formBody)
	assert(b.mediaType).Equal("application/x-www-form-urlencoded")
	assert(cmp.Diff(map[string]string{"a": "1", "b": "3"}, b.values)).Equal("")

	_, err = decodeBody(http.StatusOK, "", []byte(strings.Repeat("x", 10)))
	var unsupported *UnsupportedContentTypeError
	assert(errors.As(err, &unsupported)).True()
}
