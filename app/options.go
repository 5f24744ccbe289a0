// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package app

import (
	"github.com/hashicorp/cap-spa/resource"
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

// WithLogger provides an optional logger for the App.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*appOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithFetcher provides an optional Fetcher for the protected API calls,
// instead of a resource.Mock.
func WithFetcher(f resource.Fetcher) Option {
	return func(o interface{}) {
		if o, ok := o.(*appOptions); ok {
			o.withFetcher = f
		}
	}
}

type appOptions struct {
	withLogger  hclog.Logger
	withFetcher resource.Fetcher
}

func appDefaults() appOptions {
	return appOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

func getAppOpts(opt ...Option) appOptions {
	opts := appDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
