// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"fmt"

	"gopkg.in/square/go-jose.v2"
)

// Alg represents asymmetric signing algorithms
type Alg string

const (
	// JOSE asymmetric signing algorithm values as defined by RFC 7518.
	//
	// See: https://tools.ietf.org/html/rfc7518#section-3.1
	RS256 Alg = "RS256" // RSASSA-PKCS-v1.5 using SHA-256
	RS384 Alg = "RS384" // RSASSA-PKCS-v1.5 using SHA-384
	RS512 Alg = "RS512" // RSASSA-PKCS-v1.5 using SHA-512
	ES256 Alg = "ES256" // ECDSA using P-256 and SHA-256
	ES384 Alg = "ES384" // ECDSA using P-384 and SHA-384
	ES512 Alg = "ES512" // ECDSA using P-521 and SHA-512
	PS256 Alg = "PS256" // RSASSA-PSS using SHA256 and MGF1-SHA256
	PS384 Alg = "PS384" // RSASSA-PSS using SHA384 and MGF1-SHA384
	PS512 Alg = "PS512" // RSASSA-PSS using SHA512 and MGF1-SHA512
	EdDSA Alg = "EdDSA" // Ed25519 using SHA-512
)

var supportedAlgorithms = map[Alg]bool{
	RS256: true,
	RS384: true,
	RS512: true,
	ES256: true,
	ES384: true,
	ES512: true,
	PS256: true,
	PS384: true,
	PS512: true,
	EdDSA: true,
}

// DefaultAlgorithms are accepted when Expected doesn't name any signing
// algorithms.
var DefaultAlgorithms = []Alg{RS256, ES256}

// SupportedSigningAlgorithm returns an error if any of the given algorithms
// is not a supported signing algorithm.
func SupportedSigningAlgorithm(algs ...Alg) error {
	const op = "SupportedSigningAlgorithm"
	for _, a := range algs {
		if !supportedAlgorithms[a] {
			return fmt.Errorf("%s: %q: %w", op, a, ErrUnsupportedAlg)
		}
	}
	return nil
}

// headerAlg returns the alg header of a jws in compact serialization, without
// verifying its signature.
func headerAlg(token string) (Alg, error) {
	const op = "headerAlg"
	jws, err := jose.ParseSigned(token)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrMalformedToken, err)
	}
	if len(jws.Signatures) != 1 {
		return "", fmt.Errorf("%s: expected exactly one signature: %w", op, ErrMalformedToken)
	}
	return Alg(jws.Signatures[0].Header.Algorithm), nil
}
