// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

// Profile is the user's identity as asserted by the provider. Any field may be
// empty when the provider didn't return the claim.
type Profile struct {
	Subject string `json:"sub"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`

	// Claims holds every claim, including the ones above.
	Claims map[string]interface{} `json:"-"`
}

func newProfile(claims map[string]interface{}) *Profile {
	str := func(k string) string {
		s, _ := claims[k].(string)
		return s
	}
	return &Profile{
		Subject: str("sub"),
		Name:    str("name"),
		Email:   str("email"),
		Picture: str("picture"),
		Claims:  claims,
	}
}
