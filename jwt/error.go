// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import "errors"

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrNilParameter      = errors.New("nil parameter")
	ErrInvalidCACert     = errors.New("invalid CA certificate")
	ErrInvalidPublicKey  = errors.New("invalid public key")
	ErrMalformedToken    = errors.New("malformed jwt")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrUnsupportedAlg    = errors.New("unsupported signing algorithm")
	ErrInvalidClaims     = errors.New("invalid claims")
	ErrInvalidAudience   = errors.New("invalid audience")
	ErrMissingScope      = errors.New("missing scope")
	ErrMissingExpiration = errors.New("missing exp claim")
)
