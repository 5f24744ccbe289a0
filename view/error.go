// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package view

import "errors"

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrInvalidTransition = errors.New("invalid view state transition")
)
