// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
jwt validates the JWT access tokens presented to a protected API.

A KeySet verifies a token's signature, either with the keys published by the
provider (JSON Web Key Set or OIDC discovery) or with local public keys.  A
Validator checks the signature with its KeySet and then validates the
registered claims (iss, sub, aud, exp, nbf, iat) plus the token's granted
scope against the Expected values.

Example:

	ctx := context.Background()
	ks, err := jwt.NewOIDCDiscoveryKeySet(ctx, "https://your-tenant.us.auth0.com/", "")
	if err != nil {
		// handle error
	}
	v, err := jwt.NewValidator(ks)
	if err != nil {
		// handle error
	}
	claims, err := v.Validate(ctx, accessToken, jwt.Expected{
		Issuer:    "https://your-tenant.us.auth0.com/",
		Audiences: []string{"https://api.example.com"},
		Scopes:    []string{"openid", "profile", "email"},
	})
*/
package jwt
