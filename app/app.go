// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package app serves the demo page: it wires the auth client, the redirect
// callback, the view controller, the profile renderer and the protected
// resource caller behind a few http routes.
package app

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/cap-spa/auth"
	"github.com/hashicorp/cap-spa/callback"
	"github.com/hashicorp/cap-spa/config"
	"github.com/hashicorp/cap-spa/jwt"
	"github.com/hashicorp/cap-spa/profile"
	"github.com/hashicorp/cap-spa/resource"
	"github.com/hashicorp/go-hclog"
)

// App is the demo's http application.  An App which failed to initialize
// still serves its page, which displays the initialization error.
type App struct {
	cfg      *config.Config
	client   *auth.Client
	caller   *resource.Caller
	renderer *profile.Renderer
	callback http.HandlerFunc
	outputs  *outputStore
	logger   hclog.Logger

	// initErr is the error which prevented the App from initializing.
	initErr error
}

// New creates an App and initializes its auth client, which includes
// discovering the provider.  Initialization errors are kept and displayed by
// every page load, see Err.
//
// Supported options:
//
//	WithLogger
//	WithFetcher
func New(cfg *config.Config, opt ...Option) *App {
	opts := getAppOpts(opt...)
	a := &App{
		cfg:      cfg,
		outputs:  newOutputStore(),
		logger:   opts.withLogger,
		renderer: profile.NewRenderer(profile.WithLogger(opts.withLogger.Named("profile"))),
	}
	if err := a.init(opts); err != nil {
		a.logger.Error("unable to initialize", "error", err)
		a.initErr = err
	}
	return a
}

func (a *App) init(opts appOptions) error {
	const op = "app.New"
	if a.cfg == nil {
		return fmt.Errorf("%s: config is nil: %w", op, auth.ErrNilParameter)
	}
	ac, err := a.cfg.AuthConfig()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	client, err := auth.NewClient(ac, auth.WithLogger(a.logger.Named("auth")))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	a.client = client

	fetcher := opts.withFetcher
	if fetcher == nil {
		var mockOpts []resource.Option
		if a.cfg.APIValidate {
			v, err := a.tokenValidator(ac)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			mockOpts = append(mockOpts, resource.WithTokenValidator(v, a.expectedToken(ac)))
		}
		fetcher = resource.NewMock(a.cfg.APIDelay, mockOpts...)
	}
	a.caller, err = resource.NewCaller(client, client,
		resource.WithFetcher(fetcher),
		resource.WithAudience(a.cfg.Audience),
		resource.WithScope(a.cfg.APIScope),
		resource.WithLogger(a.logger.Named("resource")),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	a.callback, err = callback.AuthCode(client, a.callbackSuccess, a.callbackFailed)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// tokenValidator validates access tokens with the keys the provider
// publishes.  The keys are fetched when the first token is validated.
func (a *App) tokenValidator(ac *auth.Config) (*jwt.Validator, error) {
	const op = "app.tokenValidator"
	ks, err := jwt.NewOIDCDiscoveryKeySet(context.Background(), ac.Issuer(), ac.ProviderCA)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	v, err := jwt.NewValidator(ks)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// expectedToken are the claims the mock API expects of access tokens.
func (a *App) expectedToken(ac *auth.Config) jwt.Expected {
	e := jwt.Expected{
		Issuer: ac.Issuer(),
		Scopes: strings.Fields(a.cfg.APIScope),
	}
	if a.cfg.Audience != "" {
		e.Audiences = []string{a.cfg.Audience}
	}
	return e
}

// Err returns the error which prevented the App from initializing, if any.
func (a *App) Err() error {
	return a.initErr
}

// Done releases the App's resources.
func (a *App) Done() {
	a.client.Done()
}

// Handler returns the App's http handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", a.pageHandler)
	mux.HandleFunc("/login", a.loginHandler)
	mux.HandleFunc("/logout", a.logoutHandler)
	mux.HandleFunc("/api/call", a.callAPIHandler)
	return mux
}

// origin is the page's origin, which is where users return to after
// logging out.
func (a *App) origin() string {
	u, err := url.Parse(a.cfg.Redirect())
	if err != nil || u.Host == "" {
		return a.cfg.Origin() + "/"
	}
	return u.Scheme + "://" + u.Host + "/"
}
