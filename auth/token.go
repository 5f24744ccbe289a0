// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// AccessToken is an oauth access_token.
type AccessToken string

// RedactedAccessToken is the redacted string or json for an oauth access_token.
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token.
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// MarshalJSON will redact the token.
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAccessToken)
}

// IDToken is an oidc id_token.
type IDToken string

// RedactedIDToken is the redacted string or json for an oidc id_token.
const RedactedIDToken = "[REDACTED: id_token]"

// String will redact the token.
func (t IDToken) String() string {
	return RedactedIDToken
}

// MarshalJSON will redact the token.
func (t IDToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedIDToken)
}

// expirySkew is subtracted from an access_token's expiry when deciding if it
// can still be handed out.
const expirySkew = 10 * time.Second

// validAt reports whether the token has an access_token which isn't expired
// at the given time.
func validAt(t *oauth2.Token, now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	if t.Expiry.IsZero() {
		return true
	}
	return t.Expiry.Round(0).After(now.Add(expirySkew))
}

// grantedScopes returns the scopes the provider granted with the token,
// falling back to the requested scopes when the provider didn't say.
func grantedScopes(t *oauth2.Token, requested []string) []string {
	if t != nil {
		if s, ok := t.Extra("scope").(string); ok && s != "" {
			return strings.Fields(s)
		}
	}
	return requested
}

// containsAll reports whether every want is in have.
func containsAll(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}
