// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package profile renders a user's profile card, with a fallback for every
// claim the provider didn't return.
package profile

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/cap-spa/auth"
	"github.com/hashicorp/cap-spa/view"
	"github.com/hashicorp/go-hclog"
)

const (
	// FallbackName is displayed for a user without a name.
	FallbackName = "User"

	// FallbackEmail is displayed for a user without an email.
	FallbackEmail = "No email provided"

	// FallbackPicture is a generic silhouette displayed for a user without a
	// picture, or when their picture fails to load.
	FallbackPicture = "data:image/svg+xml;base64,PHN2ZyB4bWxucz0iaHR0cDovL3d3dy53My5vcmcvMjAwMC9zdmciIHZpZXdCb3g9IjAgMCA5NiA5NiI+PHJlY3Qgd2lkdGg9Ijk2IiBoZWlnaHQ9Ijk2IiBmaWxsPSIjZTBlMGUwIi8+PGNpcmNsZSBjeD0iNDgiIGN5PSIzNiIgcj0iMTgiIGZpbGw9IiM5ZTllOWUiLz48cGF0aCBkPSJNMTQgOTBjNC0yMCAxOC0zMCAzNC0zMHMzMCAxMCAzNCAzMHoiIGZpbGw9IiM5ZTllOWUiLz48L3N2Zz4="
)

// Card is what's displayed for a user.
type Card struct {
	Name    string
	Email   string
	Picture string
}

// NewCard creates the card for a profile.  Missing claims are replaced by
// their fallback, as is a picture which isn't an absolute http(s) URL.
func NewCard(p *auth.Profile) (*Card, error) {
	const op = "profile.NewCard"
	if p == nil {
		return nil, fmt.Errorf("%s: profile is nil: %w", op, auth.ErrNilParameter)
	}
	c := &Card{
		Name:    strings.TrimSpace(p.Name),
		Email:   strings.TrimSpace(p.Email),
		Picture: strings.TrimSpace(p.Picture),
	}
	if c.Name == "" {
		c.Name = FallbackName
	}
	if c.Email == "" {
		c.Email = FallbackEmail
	}
	if !validPicture(c.Picture) {
		c.Picture = FallbackPicture
	}
	return c, nil
}

func validPicture(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}

// Renderer writes profile cards to a display.
type Renderer struct {
	logger hclog.Logger
}

// NewRenderer creates a Renderer.
//
// Supported options:
//
//	WithLogger
func NewRenderer(opt ...Option) *Renderer {
	opts := getRendererOpts(opt...)
	return &Renderer{logger: opts.withLogger}
}

// Render writes the profile's card to the display.  It never fails its
// caller: errors are logged and the display is left as it was.  The picture
// region gets the fallback picture for browsers to use if the picture can't
// be loaded.
//
// The card's regions are written in a single batch when the display is a
// view.Batcher.  Other displays are written region by region, so one which
// fails part way keeps the regions written before the failure.
func (r *Renderer) Render(d view.Display, p *auth.Profile) {
	const op = "Renderer.Render"
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("unable to render profile", "op", op, "panic", rec)
		}
	}()
	if d == nil {
		r.logger.Error("unable to render profile", "op", op, "error", "display is nil")
		return
	}
	c, err := NewCard(p)
	if err != nil {
		r.logger.Error("unable to render profile", "op", op, "error", err)
		return
	}
	if b, ok := d.(view.Batcher); ok {
		b.Batch(c.write)
		return
	}
	c.write(d)
}

func (c *Card) write(d view.Display) {
	d.SetText(view.RegionProfileName, c.Name)
	d.SetText(view.RegionProfileEmail, c.Email)
	d.SetImage(view.RegionProfilePicture, c.Picture, FallbackPicture)
}

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// WithLogger provides an optional logger for the Renderer.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*rendererOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

type rendererOptions struct {
	withLogger hclog.Logger
}

func rendererDefaults() rendererOptions {
	return rendererOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

func getRendererOpts(opt ...Option) rendererOptions {
	opts := rendererDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
