// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"time"

	"github.com/hashicorp/cap-spa/jwt"
	"github.com/hashicorp/go-hclog"
)

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

// WithFetcher provides an optional Fetcher for the Caller.
func WithFetcher(f Fetcher) Option {
	return func(o interface{}) {
		if o, ok := o.(*callerOptions); ok && f != nil {
			o.withFetcher = f
		}
	}
}

// WithAudience provides an optional audience for the Caller's access tokens.
func WithAudience(aud string) Option {
	return func(o interface{}) {
		if o, ok := o.(*callerOptions); ok && aud != "" {
			o.withAudience = aud
		}
	}
}

// WithScope provides an optional scope for the Caller's access tokens.
func WithScope(scope string) Option {
	return func(o interface{}) {
		if o, ok := o.(*callerOptions); ok && scope != "" {
			o.withScope = scope
		}
	}
}

// WithLogger provides an optional logger for the Caller.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*callerOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithNow provides an optional func for determining what the current time it
// is, for the Mock.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*mockOptions); ok && now != nil {
			o.withNowFunc = now
		}
	}
}

// WithTokenValidator provides an optional TokenValidator for the Mock, and
// the claims it expects of access tokens.  The expected subject is always the
// one the Mock is called with.
func WithTokenValidator(v TokenValidator, expected jwt.Expected) Option {
	return func(o interface{}) {
		if o, ok := o.(*mockOptions); ok && v != nil {
			o.withValidator = v
			o.withExpected = expected
		}
	}
}

type callerOptions struct {
	withFetcher  Fetcher
	withAudience string
	withScope    string
	withLogger   hclog.Logger
}

func callerDefaults() callerOptions {
	return callerOptions{
		withFetcher:  NewMock(DefaultDelay),
		withAudience: DefaultAudience,
		withScope:    DefaultScope,
		withLogger:   hclog.NewNullLogger(),
	}
}

func getCallerOpts(opt ...Option) callerOptions {
	opts := callerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

type mockOptions struct {
	withNowFunc   func() time.Time
	withValidator TokenValidator
	withExpected  jwt.Expected
}

func mockDefaults() mockOptions {
	return mockOptions{}
}

func getMockOpts(opt ...Option) mockOptions {
	opts := mockDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
