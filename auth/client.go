// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	sdkHttp "github.com/hashicorp/cap-spa/sdk/http"
	"github.com/hashicorp/cap-spa/sdk/id"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
)

// Client is the handle to an identity provider. It owns everything needed to
// authenticate users with the authorization code flow (with PKCE): the
// provider's discovered metadata, the pending authentication requests and
// the sessions of authenticated users.
//
// A Client is created once with NewClient and is safe for concurrent use.
// See Client.Done() which must be called to release its resources.
type Client struct {
	config        *Config
	provider      *oidc.Provider
	httpClient    *http.Client
	endSessionURL string

	requests *requestCache
	sessions *sessionStore

	logger        hclog.Logger
	nowFunc       func() time.Time
	requestExpiry time.Duration

	mu sync.Mutex

	// backgroundCtx is the context used by the client for background
	// activities like refreshing the provider's JWKs key set.
	backgroundCtx context.Context

	// backgroundCtxCancel is used to cancel any background activities running
	// in spawned go routines.
	backgroundCtxCancel context.CancelFunc
}

// NewClient creates and initializes a Client.  Initializing the client
// includes making an http request to the provider's discovery endpoint.
//
// An invalid config returns an error wrapping ErrConfiguration, any other
// failure returns an error wrapping ErrInitialization.
//
// Supported options:
//
//	WithLogger
//	WithNow
//	WithRequestExpiry
func NewClient(c *Config, opt ...Option) (*Client, error) {
	const op = "auth.NewClient"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w: %w", op, ErrInitialization, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts := getClientOpts(opt...)

	ctx, cancel := context.WithCancel(context.Background())
	// initializing the Client with it's background ctx/cancel will allow us
	// to use cl.Done() to release any resources when returning errors from
	// this function.
	cl := &Client{
		config:              c,
		requests:            newRequestCache(),
		sessions:            newSessionStore(),
		logger:              opts.withLogger,
		nowFunc:             opts.withNowFunc,
		requestExpiry:       opts.withRequestExpiry,
		backgroundCtx:       ctx,
		backgroundCtxCancel: cancel,
	}

	client, err := c.HTTPClient()
	if err != nil {
		cl.Done()
		return nil, fmt.Errorf("%s: unable to create http client: %w: %w", op, ErrInitialization, err)
	}
	cl.httpClient = client

	provider, err := oidc.NewProvider(sdkHttp.ClientContext(cl.backgroundCtx, client), c.Issuer()) // makes http req to issuer for discovery
	if err != nil {
		cl.Done()
		return nil, fmt.Errorf("%s: unable to discover provider %s: %w: %w", op, c.Issuer(), ErrInitialization, err)
	}
	cl.provider = provider

	var meta struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&meta); err != nil {
		cl.Done()
		return nil, fmt.Errorf("%s: unable to read provider metadata: %w: %w", op, ErrInitialization, err)
	}
	cl.endSessionURL = meta.EndSessionEndpoint

	cl.logger.Debug("provider discovered", "issuer", c.Issuer(), "end_session", cl.endSessionURL != "")
	return cl, nil
}

// Done with the client's background resources and must be called for every
// Client created
func (c *Client) Done() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backgroundCtxCancel != nil {
		c.backgroundCtxCancel()
		c.backgroundCtxCancel = nil
	}
}

// LoginURL starts a new authentication attempt and returns the provider URL
// the user must be redirected to.  The attempt must be completed with
// HandleRedirectCallback before it expires.
func (c *Client) LoginURL(ctx context.Context) (string, error) {
	const op = "Client.LoginURL"
	r, err := NewRequest(c.requestExpiry, WithNow(c.nowFunc))
	if err != nil {
		return "", fmt.Errorf("%s: unable to create authentication request: %w", op, err)
	}
	c.requests.Add(r)

	authCodeOpts := []oauth2.AuthCodeOption{
		oidc.Nonce(r.Nonce()),
		oauth2.S256ChallengeOption(r.Verifier()),
	}
	if c.config.Audience != "" {
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("audience", c.config.Audience))
	}
	if len(c.config.UILocales) > 0 {
		locales := make([]string, 0, len(c.config.UILocales))
		for _, l := range c.config.UILocales {
			locales = append(locales, l.String())
		}
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("ui_locales", strings.Join(locales, " ")))
	}
	return c.oauth2Config().AuthCodeURL(r.State(), authCodeOpts...), nil
}

// HandleRedirectCallback completes an authentication attempt.  It exchanges
// the authorization code for tokens, verifies the id_token and creates a
// session for the user.  The returned session id is what the caller uses to
// refer to the user in later calls.
//
// Every attempt's state can only be used once.
func (c *Client) HandleRedirectCallback(ctx context.Context, state, code string) (string, error) {
	const op = "Client.HandleRedirectCallback"
	switch {
	case state == "":
		return "", fmt.Errorf("%s: state is empty: %w", op, ErrInvalidParameter)
	case code == "":
		return "", fmt.Errorf("%s: code is empty: %w", op, ErrInvalidParameter)
	}
	r, err := c.requests.Take(state)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	oidcCtx := sdkHttp.ClientContext(ctx, c.httpClient)
	t, err := c.oauth2Config().Exchange(oidcCtx, code, oauth2.VerifierOption(r.Verifier()))
	if err != nil {
		return "", fmt.Errorf("%s: unable to exchange auth code with provider: %w: %w", op, ErrExchangeFailed, err)
	}

	rawIDToken, ok := t.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", fmt.Errorf("%s: id_token is missing from auth code exchange: %w", op, ErrMissingIDToken)
	}
	idToken, err := c.verifier().Verify(oidcCtx, rawIDToken)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrIDTokenVerificationFailed, err)
	}
	if idToken.Nonce != r.Nonce() {
		return "", fmt.Errorf("%s: invalid id_token nonce: %w", op, ErrInvalidNonce)
	}
	claims := map[string]interface{}{}
	if err := idToken.Claims(&claims); err != nil {
		return "", fmt.Errorf("%s: unable to read id_token claims: %w: %w", op, ErrIDTokenVerificationFailed, err)
	}

	sessionID, err := id.New("sess")
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate session id: %w: %w", op, ErrIDGeneratorFailed, err)
	}
	c.sessions.Add(&Session{
		ID:           sessionID,
		IDToken:      IDToken(rawIDToken),
		Claims:       claims,
		Scopes:       grantedScopes(t, c.config.Scopes),
		RefreshToken: t.RefreshToken,
		Created:      c.now(),
		token:        t,
	})
	c.logger.Debug("session created", "subject", idToken.Subject)
	return sessionID, nil
}

// IsAuthenticated reports whether the session belongs to an authenticated
// user: the session exists and still holds a usable access_token or a
// refresh_token. An empty or unknown session id is not an error.
func (c *Client) IsAuthenticated(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	s, err := c.sessions.Read(sessionID)
	if err != nil {
		return false, nil
	}
	return validAt(s.token, c.now()) || s.RefreshToken != "", nil
}

// User returns the profile of the session's user.  The profile is built on
// every call from the verified id_token claims, merged with the provider's
// UserInfo claims when the config enables it.
func (c *Client) User(ctx context.Context, sessionID string) (*Profile, error) {
	const op = "Client.User"
	s, err := c.sessions.Read(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims := s.Claims
	if c.config.UserInfo {
		if err := c.mergeUserInfo(ctx, s, claims); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return newProfile(claims), nil
}

func (c *Client) mergeUserInfo(ctx context.Context, s *Session, claims map[string]interface{}) error {
	const op = "Client.mergeUserInfo"
	if !validAt(s.token, c.now()) {
		return fmt.Errorf("%s: no valid access_token for the user info request: %w", op, ErrUserInfoFailed)
	}
	oidcCtx := sdkHttp.ClientContext(ctx, c.httpClient)
	info, err := c.provider.UserInfo(oidcCtx, oauth2.StaticTokenSource(s.token))
	if err != nil {
		return fmt.Errorf("%s: provider UserInfo request failed: %w: %w", op, ErrUserInfoFailed, err)
	}
	if sub, _ := claims["sub"].(string); info.Subject != sub {
		return fmt.Errorf("%s: user info subject %q doesn't match id_token subject %q: %w", op, info.Subject, sub, ErrUserInfoFailed)
	}
	infoClaims := map[string]interface{}{}
	if err := info.Claims(&infoClaims); err != nil {
		return fmt.Errorf("%s: failed to get UserInfo claims: %w: %w", op, ErrUserInfoFailed, err)
	}
	for k, v := range infoClaims {
		claims[k] = v
	}
	return nil
}

// AccessToken returns an access_token for the session without any user
// interaction.  An empty audience or scope means the ones configured for the
// client.  A cached, unexpired token is returned as is, otherwise the token
// is refreshed with the session's refresh_token.
//
// It returns an error wrapping ErrLoginRequired when no token can be
// acquired silently: the session is unknown, the audience or scopes weren't
// granted at login, or there's nothing left to refresh with.
func (c *Client) AccessToken(ctx context.Context, sessionID, audience, scope string) (AccessToken, error) {
	const op = "Client.AccessToken"
	s, err := c.sessions.Read(sessionID)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrLoginRequired, err)
	}
	if audience == "" {
		audience = c.config.Audience
	}
	if audience != c.config.Audience {
		return "", fmt.Errorf("%s: audience %q was not granted at login: %w", op, audience, ErrLoginRequired)
	}
	requested := c.config.Scopes
	if scope != "" {
		requested = strings.Fields(scope)
	}
	if !containsAll(s.Scopes, requested) {
		return "", fmt.Errorf("%s: scope %q was not granted at login: %w", op, strings.Join(requested, " "), ErrLoginRequired)
	}

	if validAt(s.token, c.now()) {
		return AccessToken(s.token.AccessToken), nil
	}
	if s.RefreshToken == "" {
		return "", fmt.Errorf("%s: access_token is expired and there is no refresh_token: %w", op, ErrLoginRequired)
	}

	oidcCtx := sdkHttp.ClientContext(ctx, c.httpClient)
	t, err := c.oauth2Config().TokenSource(oidcCtx, &oauth2.Token{RefreshToken: s.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("%s: unable to refresh access_token: %w: %w", op, ErrLoginRequired, err)
	}
	if err := c.sessions.SetToken(sessionID, t); err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrLoginRequired, err)
	}
	c.logger.Debug("access_token refreshed", "expiry", t.Expiry)
	return AccessToken(t.AccessToken), nil
}

// LogoutURL ends the session and returns the provider URL the user must be
// redirected to, so the provider ends its own session as well.  The provider
// sends the user back to returnTo.
//
// When the provider advertises an end_session_endpoint it's used (OIDC RP
// initiated logout), otherwise the provider's /v2/logout endpoint is used.
func (c *Client) LogoutURL(ctx context.Context, sessionID, returnTo string) (string, error) {
	const op = "Client.LogoutURL"
	if returnTo == "" {
		return "", fmt.Errorf("%s: return to URL is empty: %w", op, ErrInvalidParameter)
	}
	var hint IDToken
	if s, err := c.sessions.Read(sessionID); err == nil {
		hint = s.IDToken
	}
	c.sessions.Delete(sessionID)

	if c.endSessionURL != "" {
		u, err := url.Parse(c.endSessionURL)
		if err != nil {
			return "", fmt.Errorf("%s: invalid end_session_endpoint: %w", op, err)
		}
		q := u.Query()
		q.Set("client_id", c.config.ClientID)
		q.Set("post_logout_redirect_uri", returnTo)
		if hint != "" {
			q.Set("id_token_hint", string(hint))
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	u, err := url.Parse(c.config.Issuer())
	if err != nil {
		return "", fmt.Errorf("%s: invalid issuer: %w", op, err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v2/logout"
	q := url.Values{}
	q.Set("client_id", c.config.ClientID)
	q.Set("returnTo", returnTo)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: string(c.config.ClientSecret),
		RedirectURL:  c.config.RedirectURL,
		Endpoint:     c.provider.Endpoint(),
		Scopes:       c.config.Scopes,
	}
}

func (c *Client) verifier() *oidc.IDTokenVerifier {
	return c.provider.Verifier(&oidc.Config{
		ClientID:             c.config.ClientID,
		SupportedSigningAlgs: supportedSigningAlgs,
		Now:                  c.now,
	})
}

func (c *Client) now() time.Time {
	if c.nowFunc != nil {
		return c.nowFunc()
	}
	return time.Now()
}

// clientOptions is the set of available options for Client functions
type clientOptions struct {
	withLogger        hclog.Logger
	withNowFunc       func() time.Time
	withRequestExpiry time.Duration
}

// clientDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func clientDefaults() clientOptions {
	return clientOptions{
		withLogger:        hclog.NewNullLogger(),
		withRequestExpiry: DefaultRequestExpiry,
	}
}

// getClientOpts gets the client defaults and applies the opt overrides passed
// in
func getClientOpts(opt ...Option) clientOptions {
	opts := clientDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
