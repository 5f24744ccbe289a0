// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/cap-spa/sdk/id"
	"golang.org/x/oauth2"
)

// DefaultRequestExpiry is how long a user has to complete an authentication
// attempt with the provider.
const DefaultRequestExpiry = 2 * time.Minute

// Request represents one authentication attempt for a user. It carries the
// data needed to validate the provider's redirect callback: the state sent
// with the authorization request, the nonce which must come back in the
// id_token and the PKCE verifier for the code exchange. The state and nonce
// are never equal.
type Request struct {
	state      string
	nonce      string
	verifier   string
	expiration time.Time
	nowFunc    func() time.Time
}

// NewRequest creates a new Request which expires after expireIn.
//
// Supported options:
//
//	WithNow
func NewRequest(expireIn time.Duration, opt ...Option) (*Request, error) {
	const op = "auth.NewRequest"
	if expireIn <= 0 {
		return nil, fmt.Errorf("%s: expireIn not greater than zero: %w", op, ErrInvalidParameter)
	}
	opts := getRequestOpts(opt...)
	state, err := id.New("st")
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a request's state: %w: %w", op, ErrIDGeneratorFailed, err)
	}
	nonce, err := id.New("n")
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a request's nonce: %w: %w", op, ErrIDGeneratorFailed, err)
	}
	r := &Request{
		state:    state,
		nonce:    nonce,
		verifier: oauth2.GenerateVerifier(),
		nowFunc:  opts.withNowFunc,
	}
	r.expiration = r.now().Add(expireIn)
	return r, nil
}

func (r *Request) State() string    { return r.state }    // State is the oauth2 state parameter
func (r *Request) Nonce() string    { return r.nonce }    // Nonce is the oidc nonce parameter
func (r *Request) Verifier() string { return r.verifier } // Verifier is the PKCE code verifier

// IsExpired returns true if the request has expired.
func (r *Request) IsExpired() bool {
	return !r.now().Before(r.expiration)
}

func (r *Request) now() time.Time {
	if r.nowFunc != nil {
		return r.nowFunc()
	}
	return time.Now()
}

// requestOptions is the set of available options for Request functions
type requestOptions struct {
	withNowFunc func() time.Time
}

func requestDefaults() requestOptions {
	return requestOptions{}
}

func getRequestOpts(opt ...Option) requestOptions {
	opts := requestDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// requestCache holds the pending authentication requests, keyed by state.
// It is concurrently safe.
type requestCache struct {
	m sync.Mutex
	c map[string]*Request
}

func newRequestCache() *requestCache {
	return &requestCache{
		c: map[string]*Request{},
	}
}

// Add a request, dropping any expired requests along the way.
func (rc *requestCache) Add(r *Request) {
	rc.m.Lock()
	defer rc.m.Unlock()
	for k, v := range rc.c {
		if v.IsExpired() {
			delete(rc.c, k)
		}
	}
	rc.c[r.State()] = r
}

// Take returns the request for the state and deletes it, so every request
// can be used at most once.
func (rc *requestCache) Take(state string) (*Request, error) {
	const op = "requestCache.Take"
	rc.m.Lock()
	defer rc.m.Unlock()
	r, ok := rc.c[state]
	if !ok {
		return nil, fmt.Errorf("%s: state %q not found: %w", op, state, ErrInvalidState)
	}
	delete(rc.c, state)
	if r.IsExpired() {
		return nil, fmt.Errorf("%s: state %q: %w", op, state, ErrExpiredRequest)
	}
	return r, nil
}

// Len returns the number of pending requests.
func (rc *requestCache) Len() int {
	rc.m.Lock()
	defer rc.m.Unlock()
	return len(rc.c)
}
