package dummyauth

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
)

// DefaultTimeout is the timeout used by clients created with NewClient when
// given a zero timeout.
const DefaultTimeout = 10 * time.Second

// NewClient returns a client suitable for talking to profile pages and
// authorization endpoints. It does not retry requests, and gives up on any
// request that takes longer than timeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := cleanhttp.DefaultPooledClient()
	client.Timeout = timeout

	return client
}

// noFollow returns a copy of client that hands redirect responses back to the
// caller instead of following them.
func noFollow(client *http.Client) *http.Client {
	if client == nil {
		client = NewClient(0)
	}

	c := *client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &c
}

func orNull(logger hclog.Logger) hclog.Logger {
	if logger == nil {
		return hclog.NewNullLogger()
	}

	return logger
}
