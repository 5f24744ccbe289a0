// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

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

// WithEnvFile provides an optional .env file for Load.  An empty path
// disables reading a .env file.
func WithEnvFile(path string) Option {
	return func(o interface{}) {
		if o, ok := o.(*loadOptions); ok {
			o.withEnvFile = path
		}
	}
}

// WithEnvironment provides the variables Load uses instead of the process'
// environment.
func WithEnvironment(vars map[string]string) Option {
	return func(o interface{}) {
		if o, ok := o.(*loadOptions); ok {
			o.withEnvironment = vars
		}
	}
}

type loadOptions struct {
	withEnvFile     string
	withEnvironment map[string]string
}

func loadDefaults() loadOptions {
	return loadOptions{
		withEnvFile: DefaultEnvFile,
	}
}

func getLoadOpts(opt ...Option) loadOptions {
	opts := loadDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
