// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/square/go-jose.v2/jwt"
)

// Validator validates JSON Web Tokens (JWT) by providing signature
// verification and claims set validation.  Validator can contain either a
// single or multiple KeySets and will attempt to verify the JWT by iterating
// through the configured KeySets.
type Validator struct {
	keySets []KeySet
}

// NewValidator returns a Validator that uses the given KeySets to verify JWT
// signatures.
func NewValidator(keySets ...KeySet) (*Validator, error) {
	const op = "NewValidator"
	if len(keySets) == 0 {
		return nil, fmt.Errorf("%s: no key sets: %w", op, ErrInvalidParameter)
	}
	for _, ks := range keySets {
		if ks == nil {
			return nil, fmt.Errorf("%s: key set is nil: %w", op, ErrNilParameter)
		}
	}
	return &Validator{
		keySets: keySets,
	}, nil
}

// Expected defines the expected claims values to assert when validating a
// JWT.  For claims that involve validation of the JWT with respect to time,
// leeway fields are provided to account for potential clock skew.
type Expected struct {
	// The expected JWT "iss" (issuer) claim value. If empty, validation is
	// skipped.
	Issuer string

	// The expected JWT "sub" (subject) claim value. If empty, validation is
	// skipped.
	Subject string

	// The expected JWT "jti" (JWT ID) claim value. If empty, validation is
	// skipped.
	ID string

	// The list of expected JWT "aud" (audience) claim values to match against.
	// The JWT claim will be considered valid if it matches any of the expected
	// audiences. If empty, validation is skipped.
	Audiences []string

	// The scopes which must all be present in the space separated "scope"
	// claim. If empty, validation is skipped.
	Scopes []string

	// SigningAlgorithms provides the list of expected JWS "alg" (algorithm)
	// header parameter values to match against. The JWS header parameter will
	// be considered valid if it matches any of the expected signing
	// algorithms. DefaultAlgorithms are used when empty.
	SigningAlgorithms []Alg

	// ClockSkewLeeway provides the leeway applied to the time based claims
	// (exp, nbf, iat). jwt.DefaultLeeway is used when zero.
	ClockSkewLeeway time.Duration

	// Now provides the current time used during claims validation. Defaults
	// to time.Now when nil.
	Now func() time.Time
}

// Validate validates JWTs of the JWS compact serialization form.
//
// The given JWT is considered valid if:
//  1. Its signature is successfully verified by one of the Validator's KeySets.
//  2. Its header "alg" is one of the expected signing algorithms.
//  3. It has an "exp" claim, and the time based claims are valid at the
//     current time, give or take the leeway.
//  4. All of the expected claims and scopes are present and match.
func (v *Validator) Validate(ctx context.Context, token string, expected Expected) (map[string]interface{}, error) {
	const op = "Validator.Validate"
	if token == "" {
		return nil, fmt.Errorf("%s: token is empty: %w", op, ErrInvalidParameter)
	}
	if err := validateSigningAlgorithm(token, expected.SigningAlgorithms); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		allClaims map[string]interface{}
		verifyErr error
	)
	for _, ks := range v.keySets {
		allClaims, verifyErr = ks.VerifySignature(ctx, token)
		if verifyErr == nil {
			break
		}
	}
	if verifyErr != nil {
		return nil, fmt.Errorf("%s: %w", op, verifyErr)
	}

	claims, err := registeredClaims(allClaims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if claims.Expiry == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingExpiration)
	}

	now := time.Now()
	if expected.Now != nil {
		now = expected.Now()
	}
	leeway := expected.ClockSkewLeeway
	if leeway == 0 {
		leeway = jwt.DefaultLeeway
	}
	if err := claims.ValidateWithLeeway(jwt.Expected{
		Issuer:  expected.Issuer,
		Subject: expected.Subject,
		ID:      expected.ID,
		Time:    now,
	}, leeway); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidClaims, err)
	}
	if err := validateAudience(expected.Audiences, claims.Audience); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := validateScopes(expected.Scopes, allClaims["scope"]); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return allClaims, nil
}

// registeredClaims converts the claims in a token's payload into the
// registered claims.
func registeredClaims(allClaims map[string]interface{}) (*jwt.Claims, error) {
	const op = "registeredClaims"
	b, err := json.Marshal(allClaims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformedToken, err)
	}
	var claims jwt.Claims
	if err := json.Unmarshal(b, &claims); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformedToken, err)
	}
	return &claims, nil
}

// validateSigningAlgorithm checks the token's alg header against the
// expected algorithms.
func validateSigningAlgorithm(token string, expectedAlgorithms []Alg) error {
	const op = "validateSigningAlgorithm"
	if len(expectedAlgorithms) == 0 {
		expectedAlgorithms = DefaultAlgorithms
	}
	if err := SupportedSigningAlgorithm(expectedAlgorithms...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	alg, err := headerAlg(token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, a := range expectedAlgorithms {
		if a == alg {
			return nil
		}
	}
	return fmt.Errorf("%s: token signed with %q: %w", op, alg, ErrUnsupportedAlg)
}

// validateAudience returns an error if audClaim does not match any of the
// expected audiences.  A trailing slash is ignored when comparing.
func validateAudience(expectedAudiences, audClaim []string) error {
	const op = "validateAudience"
	if len(expectedAudiences) == 0 {
		return nil
	}
	for _, e := range expectedAudiences {
		for _, a := range audClaim {
			if strings.TrimSuffix(e, "/") == strings.TrimSuffix(a, "/") {
				return nil
			}
		}
	}
	return fmt.Errorf("%s: aud claim %q doesn't match any of %q: %w", op, audClaim, expectedAudiences, ErrInvalidAudience)
}

// validateScopes returns an error if any of the expected scopes is missing
// from the space separated scope claim.
func validateScopes(expectedScopes []string, scopeClaim interface{}) error {
	const op = "validateScopes"
	if len(expectedScopes) == 0 {
		return nil
	}
	s, _ := scopeClaim.(string)
	granted := map[string]bool{}
	for _, g := range strings.Fields(s) {
		granted[g] = true
	}
	var missing []string
	for _, e := range expectedScopes {
		if !granted[e] {
			missing = append(missing, e)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: %s: %w", op, strings.Join(missing, " "), ErrMissingScope)
	}
	return nil
}
