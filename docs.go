// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// spa is a demo web page which delegates authentication to an OIDC identity
// provider.  It logs users in with the authorization code flow (with PKCE),
// displays their profile and calls a (mocked) protected API with an access
// token acquired silently.
//
// The auth package is the provider client.  The callback, view, profile and
// resource packages are the page's components, and jwt validates the access
// tokens the mock API receives.  The app package serves them over http and
// examples/spa is the binary.
//
// See README.md
package spa
