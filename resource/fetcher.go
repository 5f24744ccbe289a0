// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/cap-spa/auth"
	"github.com/hashicorp/cap-spa/jwt"
)

// DefaultDelay is the simulated latency of the Mock.
const DefaultDelay = time.Second

// MockMessage is the message of every payload returned by the Mock.
const MockMessage = "Successfully called the protected API"

// Payload is the protected API's response.
type Payload struct {
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	TokenLength int       `json:"tokenLength"`
	UserID      string    `json:"userId"`
}

// Fetcher calls the protected API with an access token.
type Fetcher interface {
	Fetch(ctx context.Context, token auth.AccessToken, subject string) (*Payload, error)
}

// TokenValidator validates access tokens.  It's satisfied by *jwt.Validator.
type TokenValidator interface {
	Validate(ctx context.Context, token string, expected jwt.Expected) (map[string]interface{}, error)
}

// Mock is a Fetcher which doesn't make any request: it waits for its delay
// and returns a payload describing the token and user it was given.  The
// token is only validated when the Mock has a TokenValidator.
type Mock struct {
	delay     time.Duration
	nowFunc   func() time.Time
	validator TokenValidator
	expected  jwt.Expected
}

// NewMock creates a Mock which responds after the delay.  A negative delay is
// treated as zero.
//
// Supported options:
//
//	WithNow
//	WithTokenValidator
func NewMock(delay time.Duration, opt ...Option) *Mock {
	opts := getMockOpts(opt...)
	if delay < 0 {
		delay = 0
	}
	return &Mock{
		delay:     delay,
		nowFunc:   opts.withNowFunc,
		validator: opts.withValidator,
		expected:  opts.withExpected,
	}
}

// Fetch implements the Fetcher interface.  It returns early with the
// context's error if the context is done before the delay elapses.  With a
// TokenValidator, a token which isn't valid for the subject is rejected with
// ErrUnauthorized before any delay.
func (m *Mock) Fetch(ctx context.Context, token auth.AccessToken, subject string) (*Payload, error) {
	const op = "Mock.Fetch"
	if m.validator != nil {
		expected := m.expected
		expected.Subject = subject
		if expected.Now == nil && m.nowFunc != nil {
			expected.Now = m.nowFunc
		}
		if _, err := m.validator.Validate(ctx, string(token), expected); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
		}
	}
	timer := time.NewTimer(m.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w: %w", op, ErrFetchFailed, ctx.Err())
	case <-timer.C:
	}
	return &Payload{
		Message:     MockMessage,
		Timestamp:   m.now(),
		TokenLength: len(token),
		UserID:      subject,
	}, nil
}

func (m *Mock) now() time.Time {
	if m.nowFunc != nil {
		return m.nowFunc()
	}
	return time.Now()
}
