// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package resource

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrFetchFailed      = errors.New("protected resource fetch failed")
	ErrUnauthorized     = errors.New("access token rejected")
)
