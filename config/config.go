// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package config loads the demo's configuration from an optional .env file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/cap-spa/auth"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// DefaultEnvFile is the .env file read by Load, if it exists.
const DefaultEnvFile = ".env"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNotSet           = errors.New("not set")
)

// Config is the demo's configuration.  Only the provider's domain and the
// client id are required.
type Config struct {
	Domain       string        `env:"AUTH_DOMAIN"`
	ClientID     string        `env:"AUTH_CLIENT_ID"`
	ClientSecret string        `env:"AUTH_CLIENT_SECRET"`
	RedirectURL  string        `env:"AUTH_REDIRECT_URL"`
	Audience     string        `env:"AUTH_AUDIENCE" envDefault:"https://api.example.com"`
	Scope        string        `env:"AUTH_SCOPE" envDefault:"openid profile email offline_access"`
	ProviderCA   string        `env:"AUTH_PROVIDER_CA"`
	UILocales    []string      `env:"AUTH_UI_LOCALES" envSeparator:","`
	UserInfo     bool          `env:"AUTH_USERINFO"`
	Addr         string        `env:"DEMO_ADDR" envDefault:"localhost:3000"`
	APIDelay     time.Duration `env:"DEMO_API_DELAY" envDefault:"1s"`
	APIScope     string        `env:"DEMO_API_SCOPE" envDefault:"openid profile email"`
	APIValidate  bool          `env:"DEMO_API_VALIDATE" envDefault:"false"`
	LogLevel     string        `env:"DEMO_LOG_LEVEL" envDefault:"info"`
}

// Load the configuration.  Values from the environment take precedence over
// the ones in the .env file, and a missing .env file is ignored.  Load
// doesn't validate the configuration, see Validate.
//
// Supported options:
//
//	WithEnvFile
//	WithEnvironment
func Load(opt ...Option) (*Config, error) {
	const op = "config.Load"
	opts := getLoadOpts(opt...)

	vars := map[string]string{}
	if opts.withEnvFile != "" {
		fileVars, err := godotenv.Read(opts.withEnvFile)
		switch {
		case err == nil:
			for k, v := range fileVars {
				vars[k] = v
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("%s: unable to read %s: %w", op, opts.withEnvFile, err)
		}
	}
	environment := opts.withEnvironment
	if environment == nil {
		environment = env.ToMap(os.Environ())
	}
	for k, v := range environment {
		vars[k] = v
	}

	var c Config
	if err := env.ParseWithOptions(&c, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidParameter, err)
	}
	c.Domain = strings.TrimSpace(c.Domain)
	c.ClientID = strings.TrimSpace(c.ClientID)
	return &c, nil
}

// Validate the configuration.  Every problem is reported, using the names of
// the variables to set.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrInvalidParameter)
	}
	var merr *multierror.Error
	if c.Domain == "" {
		merr = multierror.Append(merr, fmt.Errorf("AUTH_DOMAIN is %w", ErrNotSet))
	}
	if c.ClientID == "" {
		merr = multierror.Append(merr, fmt.Errorf("AUTH_CLIENT_ID is %w", ErrNotSet))
	}
	if _, err := c.Locales(); err != nil {
		merr = multierror.Append(merr, err)
	}
	if c.APIDelay < 0 {
		merr = multierror.Append(merr, fmt.Errorf("DEMO_API_DELAY %s is negative: %w", c.APIDelay, ErrInvalidParameter))
	}
	if merr == nil {
		return nil
	}
	merr.ErrorFormat = func(es []error) string {
		msgs := make([]string, 0, len(es))
		for _, e := range es {
			msgs = append(msgs, e.Error())
		}
		return strings.Join(msgs, "; ")
	}
	return fmt.Errorf("%s: %w", op, merr)
}

// Origin is the base URL of the demo's page.
func (c *Config) Origin() string {
	host, port, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return "http://" + c.Addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Redirect is where the provider sends users back to: AUTH_REDIRECT_URL or
// the page's origin.
func (c *Config) Redirect() string {
	if c.RedirectURL != "" {
		return c.RedirectURL
	}
	return c.Origin() + "/"
}

// Locales parses AUTH_UI_LOCALES.
func (c *Config) Locales() ([]language.Tag, error) {
	var tags []language.Tag
	for _, l := range c.UILocales {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("AUTH_UI_LOCALES %q is not a valid language tag: %w", l, ErrInvalidParameter)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// Level is the log level of DEMO_LOG_LEVEL, defaulting to info.
func (c *Config) Level() hclog.Level {
	if l := hclog.LevelFromString(c.LogLevel); l != hclog.NoLevel {
		return l
	}
	return hclog.Info
}

// AuthConfig creates the configuration of the auth client.
func (c *Config) AuthConfig() (*auth.Config, error) {
	const op = "Config.AuthConfig"
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	locales, err := c.Locales()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts := []auth.Option{
		auth.WithRedirectURL(c.Redirect()),
		auth.WithClientSecret(auth.ClientSecret(c.ClientSecret)),
		auth.WithAudience(c.Audience),
		auth.WithScopes(strings.Fields(c.Scope)...),
		auth.WithProviderCA(c.ProviderCA),
		auth.WithUILocales(locales...),
	}
	if c.UserInfo {
		opts = append(opts, auth.WithUserInfo())
	}
	ac, err := auth.NewConfig(c.Domain, c.ClientID, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ac, nil
}
