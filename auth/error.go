// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"errors"
)

var (
	ErrInvalidParameter          = errors.New("invalid parameter")
	ErrNilParameter              = errors.New("nil parameter")
	ErrInvalidCACert             = errors.New("invalid CA certificate")
	ErrConfiguration             = errors.New("invalid configuration")
	ErrInitialization            = errors.New("initialization failed")
	ErrIDGeneratorFailed         = errors.New("id generation failed")
	ErrNotFound                  = errors.New("not found")
	ErrInvalidState              = errors.New("invalid authorization state")
	ErrExpiredRequest            = errors.New("authentication request is expired")
	ErrExchangeFailed            = errors.New("authorization code exchange failed")
	ErrMissingIDToken            = errors.New("id_token is missing")
	ErrIDTokenVerificationFailed = errors.New("id_token verification failed")
	ErrInvalidNonce              = errors.New("invalid nonce")
	ErrLoginRequired             = errors.New("login required")
	ErrUserInfoFailed            = errors.New("user info failed")
)
