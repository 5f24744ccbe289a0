// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package view

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Controller owns a page's State and is the only thing which changes it.
// Every change is applied to the page's Display.  It is concurrently safe.
type Controller struct {
	mu      sync.Mutex
	display Display
	state   State
	logger  hclog.Logger
}

// NewController creates a Controller in the Loading state and applies it to
// the display.
//
// Supported options:
//
//	WithLogger
func NewController(d Display, opt ...Option) (*Controller, error) {
	const op = "view.NewController"
	if d == nil {
		return nil, fmt.Errorf("%s: display is nil: %w", op, ErrInvalidParameter)
	}
	opts := getControllerOpts(opt...)
	c := &Controller{
		display: d,
		state:   Loading(),
		logger:  opts.withLogger,
	}
	c.apply(c.state)
	return c, nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transition changes the state and applies it to the display.  It returns an
// error wrapping ErrInvalidTransition when going back to Loading or leaving
// Error.
func (c *Controller) Transition(to State) error {
	const op = "Controller.Transition"
	c.mu.Lock()
	defer c.mu.Unlock()
	if !canTransition(c.state, to) {
		return fmt.Errorf("%s: %s to %s: %w", op, c.state.kind, to.kind, ErrInvalidTransition)
	}
	if c.state == to {
		return nil
	}
	c.logger.Debug("view transition", "from", c.state.kind, "to", to.kind)
	c.state = to
	c.apply(to)
	return nil
}

// Fail moves the page to the Error state with the error's message.  The
// first failure wins: a page already in Error keeps its message.
func (c *Controller) Fail(err error) {
	if err == nil {
		return
	}
	if terr := c.Transition(Failed(err.Error())); terr != nil {
		c.logger.Debug("already failed", "error", err)
	}
}

// Run executes one fallible step of the page's flow.  A failed step moves the
// page to Error and Run returns false.  Steps aren't run once the page is in
// Error, so a flow can be written as a sequence of Run calls.
func (c *Controller) Run(ctx context.Context, name string, step func(context.Context) error) bool {
	if c.State().kind == KindError {
		return false
	}
	if err := step(ctx); err != nil {
		c.logger.Error("step failed", "step", name, "error", err)
		c.Fail(err)
		return false
	}
	return true
}

// apply toggles the display's regions for the state.  The logged-in and
// logged-out panels are never visible together.
func (c *Controller) apply(s State) {
	loggedIn := s.kind == KindLoggedIn
	loggedOut := s.kind == KindLoggedOut

	c.display.SetVisible(RegionLoading, s.kind == KindLoading)
	c.display.SetVisible(RegionError, s.kind == KindError)
	if s.kind == KindError {
		c.display.SetText(RegionErrorDetails, s.message)
	}
	c.display.SetVisible(RegionApp, loggedIn || loggedOut)
	c.display.SetVisible(RegionLoggedOut, loggedOut)
	c.display.SetVisible(RegionLoggedIn, loggedIn)
	c.display.SetVisible(RegionProfile, loggedIn)
}

// controllerOptions is the set of available options for Controller functions
type controllerOptions struct {
	withLogger hclog.Logger
}

// controllerDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func controllerDefaults() controllerOptions {
	return controllerOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

// getControllerOpts gets the controller defaults and applies the opt
// overrides passed in
func getControllerOpts(opt ...Option) controllerOptions {
	opts := controllerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
