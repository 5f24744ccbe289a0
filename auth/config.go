// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	sdkHttp "github.com/hashicorp/cap-spa/sdk/http"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/text/language"
)

// ClientSecret is an oauth client secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// ScopeOpenID is the mandatory scope for all OpenID Connect OAuth2 requests.
const ScopeOpenID = "openid"

// DefaultScopes are requested when a Config has no scopes.
var DefaultScopes = []string{ScopeOpenID, "profile", "email"}

// supportedSigningAlgs are the id_token signing algorithms the Client will
// accept.
var supportedSigningAlgs = []string{"RS256", "ES256"}

// Config represents the configuration for an identity provider's
// authorization code flow with PKCE.
type Config struct {
	// Domain is the provider's domain (for example: "tenant.us.auth0.com"). A
	// domain which includes a scheme is used as the issuer URL as is.
	Domain string

	// ClientID is the relying party id
	ClientID string

	// ClientSecret is an optional relying party secret. Public clients
	// (like a browser app) leave it empty and rely on PKCE.
	ClientSecret ClientSecret

	// RedirectURL is where the provider sends the user after authentication.
	RedirectURL string

	// Audience is an optional API audience requested during login and
	// used as the default audience for access tokens.
	Audience string

	// Scopes is the list of scopes to request. The required "openid" scope
	// is always requested.
	Scopes []string

	// ProviderCA is an optional CA cert to use when sending requests to the provider.
	ProviderCA string

	// UILocales is an optional list of preferred languages for the provider's
	// login pages.
	UILocales []language.Tag

	// UserInfo will merge the provider's UserInfo claims into the user's
	// profile.
	UserInfo bool
}

// NewConfig composes a new config for a provider.
//
// Supported options:
//
//	WithRedirectURL
//	WithClientSecret
//	WithAudience
//	WithScopes
//	WithProviderCA
//	WithUILocales
//	WithUserInfo
func NewConfig(domain, clientID string, opt ...Option) (*Config, error) {
	const op = "auth.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		Domain:       strings.TrimSpace(domain),
		ClientID:     strings.TrimSpace(clientID),
		ClientSecret: opts.withClientSecret,
		RedirectURL:  opts.withRedirectURL,
		Audience:     opts.withAudience,
		Scopes:       withOpenID(opts.withScopes),
		ProviderCA:   opts.withProviderCA,
		UILocales:    opts.withUILocales,
		UserInfo:     opts.withUserInfo,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// Validate the configuration. Every problem found is reported, so a
// configuration missing both its domain and client id names both.  It
// doesn't verify the provider is discoverable via an http request.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var merr *multierror.Error
	if c.Domain == "" {
		merr = multierror.Append(merr, fmt.Errorf("domain is empty: %w", ErrInvalidParameter))
	}
	if c.ClientID == "" {
		merr = multierror.Append(merr, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if c.Domain != "" {
		if _, err := url.Parse(c.Issuer()); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("domain %q is invalid: %w", c.Domain, ErrInvalidParameter))
		}
	}
	switch {
	case c.RedirectURL == "":
		merr = multierror.Append(merr, fmt.Errorf("redirect URL is empty: %w", ErrInvalidParameter))
	default:
		u, err := url.Parse(c.RedirectURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			merr = multierror.Append(merr, fmt.Errorf("redirect URL %q is not an absolute http(s) URL: %w", c.RedirectURL, ErrInvalidParameter))
		}
	}
	if merr == nil {
		return nil
	}
	merr.ErrorFormat = listFormat
	return fmt.Errorf("%s: %w: %w", op, ErrConfiguration, merr)
}

// Issuer returns the provider's issuer URL derived from the Domain.
func (c *Config) Issuer() string {
	if strings.Contains(c.Domain, "://") {
		return c.Domain
	}
	return "https://" + strings.TrimSuffix(c.Domain, "/") + "/"
}

// HTTPClient is a helper function that creates a new http client for the
// provider configured
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	client, err := sdkHttp.NewClient(c.ProviderCA)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// listFormat renders every error on a single line.
func listFormat(es []error) string {
	msgs := make([]string, 0, len(es))
	for _, e := range es {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// withOpenID returns the scopes with "openid" first and duplicates removed.
func withOpenID(scopes []string) []string {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	result := []string{ScopeOpenID}
	seen := map[string]bool{ScopeOpenID: true}
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		result = append(result, s)
	}
	return result
}

// configOptions is the set of available options for Config functions
type configOptions struct {
	withRedirectURL  string
	withClientSecret ClientSecret
	withAudience     string
	withScopes       []string
	withProviderCA   string
	withUILocales    []language.Tag
	withUserInfo     bool
}

// configDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func configDefaults() configOptions {
	return configOptions{}
}

// getConfigOpts gets the defaults and applies the opt overrides passed
// in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithRedirectURL provides the redirect target for the Config.
func WithRedirectURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withRedirectURL = u
		}
	}
}

// WithClientSecret provides an optional client secret for the Config.
func WithClientSecret(secret ClientSecret) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withClientSecret = secret
		}
	}
}

// WithAudience provides an optional API audience for the Config.
func WithAudience(aud string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withAudience = aud
		}
	}
}

// WithScopes provides an optional list of scopes for the Config.
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithProviderCA provides an optional CA cert for the Config.
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithUILocales provides optional preferred languages for the provider's
// login pages.
func WithUILocales(locales ...language.Tag) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withUILocales = locales
		}
	}
}

// WithUserInfo enables merging UserInfo claims into user profiles.
func WithUserInfo() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withUserInfo = true
		}
	}
}
