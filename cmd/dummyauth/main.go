// Command dummyauth runs a web app that signs users in with IndieAuth, useful
// for testing an authorization endpoint.
//
// The secret used to sign cookies is read from SECRET_KEY.
package main

import (
	"flag"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"hawx.me/code/dummyauth"
	"hawx.me/code/dummyauth/sessions"
)

const devSecret = "57eb82b5a0e36e3a"

func main() {
	var (
		addr         = flag.String("addr", ":8080", "address to listen on")
		baseURL      = flag.String("base-url", "http://localhost:8080", "URL the app is reachable at")
		clientID     = flag.String("client-id", "", "client_id to identify as (default: base-url)")
		maxRedirects = flag.Int("max-redirects", dummyauth.DefaultMaxRedirects, "redirects to follow when discovering endpoints")
		timeout      = flag.Duration("timeout", dummyauth.DefaultTimeout, "timeout for requests to other sites")
		logLevel     = flag.String("log-level", "info", "one of trace, debug, info, warn or error")
		dev          = flag.Bool("dev", false, "use a development secret if SECRET_KEY is not set")
	)
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "dummyauth",
		Level: hclog.LevelFromString(*logLevel),
	})

	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		if !*dev {
			logger.Error("SECRET_KEY must be set")
			os.Exit(1)
		}
		logger.Warn("using development secret")
		secret = devSecret
	}

	base := strings.TrimRight(*baseURL, "/")
	if *clientID == "" {
		*clientID = base + "/"
	}

	config, err := dummyauth.Authentication(*clientID, base+"/callback")
	if err != nil {
		logger.Error("invalid client", "error", err)
		os.Exit(1)
	}
	config.MaxRedirects = *maxRedirects
	config.Client = dummyauth.NewClient(*timeout)
	config.Logger = logger

	s, err := sessions.New([]byte(secret), config, logger.Named("web"))
	if err != nil {
		logger.Error("could not create sessions", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              *addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
	}

	logger.Info("listening", "addr", *addr, "client_id", *clientID)
	if err := server.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
