// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/cap-spa/auth"
	"github.com/hashicorp/cap-spa/view"
	"github.com/hashicorp/go-hclog"
)

const (
	// DefaultAudience is the audience of the access tokens requested for the
	// protected API.
	DefaultAudience = "https://api.example.com"

	// DefaultScope is the scope of the access tokens requested for the
	// protected API.
	DefaultScope = "openid profile email"

	// CallingMessage is displayed while a call is in progress.
	CallingMessage = "Calling API..."
)

// TokenSource acquires access tokens without user interaction.  It's
// satisfied by *auth.Client.
type TokenSource interface {
	AccessToken(ctx context.Context, sessionID, audience, scope string) (auth.AccessToken, error)
}

// UserSource returns the profile of a session's user.  It's satisfied by
// *auth.Client.
type UserSource interface {
	User(ctx context.Context, sessionID string) (*auth.Profile, error)
}

// Caller calls the protected API for a user and displays the outcome.
type Caller struct {
	tokens   TokenSource
	users    UserSource
	fetcher  Fetcher
	audience string
	scope    string
	logger   hclog.Logger
}

// NewCaller creates a Caller.
//
// Supported options:
//
//	WithFetcher
//	WithAudience
//	WithScope
//	WithLogger
func NewCaller(tokens TokenSource, users UserSource, opt ...Option) (*Caller, error) {
	const op = "resource.NewCaller"
	switch {
	case tokens == nil:
		return nil, fmt.Errorf("%s: token source is nil: %w", op, ErrInvalidParameter)
	case users == nil:
		return nil, fmt.Errorf("%s: user source is nil: %w", op, ErrInvalidParameter)
	}
	opts := getCallerOpts(opt...)
	return &Caller{
		tokens:   tokens,
		users:    users,
		fetcher:  opts.withFetcher,
		audience: opts.withAudience,
		scope:    opts.withScope,
		logger:   opts.withLogger,
	}, nil
}

// Call calls the protected API for the session's user.  The display's API
// output region first shows CallingMessage, then either the indented JSON
// payload or "Error: " followed by the reason the call failed.  The error is
// also returned, but it's never meant to fail the page.
//
// Calls aren't coordinated: when two calls overlap the last one to finish
// wins the output region.
func (c *Caller) Call(ctx context.Context, d view.Display, sessionID string) error {
	const op = "Caller.Call"
	if d == nil {
		return fmt.Errorf("%s: display is nil: %w", op, ErrInvalidParameter)
	}
	d.SetText(view.RegionAPIOutput, CallingMessage)

	payload, err := c.fetch(ctx, sessionID)
	if err != nil {
		c.logger.Error("protected API call failed", "error", err)
		d.SetText(view.RegionAPIOutput, "Error: "+err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		d.SetText(view.RegionAPIOutput, "Error: "+err.Error())
		return fmt.Errorf("%s: unable to encode payload: %w", op, err)
	}
	d.SetText(view.RegionAPIOutput, string(out))
	return nil
}

func (c *Caller) fetch(ctx context.Context, sessionID string) (*Payload, error) {
	const op = "Caller.fetch"
	token, err := c.tokens.AccessToken(ctx, sessionID, c.audience, c.scope)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to get access token: %w", op, err)
	}
	u, err := c.users.User(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to get user: %w", op, err)
	}
	payload, err := c.fetcher.Fetch(ctx, token, u.Subject)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payload, nil
}
