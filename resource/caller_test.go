// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/cap-spa/auth"
	"github.com/hashicorp/cap-spa/jwt"
	"github.com/hashicorp/cap-spa/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDisplay records every text written to the API output region.
type testDisplay struct {
	mu     sync.Mutex
	writes []string
}

func (d *testDisplay) SetVisible(view.Region, bool)         {}
func (d *testDisplay) SetImage(view.Region, string, string) {}
func (d *testDisplay) SetText(r view.Region, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r == view.RegionAPIOutput {
		d.writes = append(d.writes, text)
	}
}

func (d *testDisplay) Writes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.writes...)
}

type testTokens struct {
	token    auth.AccessToken
	err      error
	audience string
	scope    string
}

func (s *testTokens) AccessToken(_ context.Context, _, audience, scope string) (auth.AccessToken, error) {
	s.audience, s.scope = audience, scope
	return s.token, s.err
}

type testUsers struct {
	profile *auth.Profile
	err     error
}

func (s *testUsers) User(context.Context, string) (*auth.Profile, error) {
	return s.profile, s.err
}

type testFetcher struct {
	err error
}

func (f *testFetcher) Fetch(context.Context, auth.AccessToken, string) (*Payload, error) {
	return nil, f.err
}

func TestNewCaller(t *testing.T) {
	t.Parallel()
	tokens, users := &testTokens{}, &testUsers{}
	tests := []struct {
		name      string
		tokens    TokenSource
		users     UserSource
		wantIsErr error
	}{
		{"valid", tokens, users, nil},
		{"nil-tokens", nil, users, ErrInvalidParameter},
		{"nil-users", tokens, nil, ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewCaller(tt.tokens, tt.users)
			if tt.wantIsErr != nil {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			assert.Equal(DefaultAudience, got.audience)
			assert.Equal(DefaultScope, got.scope)
			assert.IsType(&Mock{}, got.fetcher)
		})
	}
}

func TestCaller_Call(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	alice := &auth.Profile{Subject: "auth0|alice"}

	t.Run("success", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tokens := &testTokens{token: "0123456789"}
		now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		c, err := NewCaller(tokens, &testUsers{profile: alice},
			WithFetcher(NewMock(10*time.Millisecond, WithNow(func() time.Time { return now }))),
			WithAudience("https://api.test"),
			WithScope("openid"),
		)
		require.NoError(err)

		d := &testDisplay{}
		require.NoError(c.Call(ctx, d, "sess_1"))
		assert.Equal("https://api.test", tokens.audience)
		assert.Equal("openid", tokens.scope)

		writes := d.Writes()
		require.Len(writes, 2)
		assert.Equal(CallingMessage, writes[0])

		var got Payload
		require.NoError(json.Unmarshal([]byte(writes[1]), &got))
		assert.Equal(MockMessage, got.Message)
		assert.True(now.Equal(got.Timestamp))
		assert.Equal(10, got.TokenLength)
		assert.Equal("auth0|alice", got.UserID)
		assert.Contains(writes[1], `"tokenLength": 10`)
		assert.Contains(writes[1], `"userId": "auth0|alice"`)
	})
	t.Run("token-failure", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tokens := &testTokens{err: fmt.Errorf("test: %w", auth.ErrLoginRequired)}
		c, err := NewCaller(tokens, &testUsers{profile: alice}, WithFetcher(NewMock(0)))
		require.NoError(err)

		d := &testDisplay{}
		err = c.Call(ctx, d, "sess_1")
		assert.Truef(errors.Is(err, auth.ErrLoginRequired), "wanted \"%s\" but got \"%s\"", auth.ErrLoginRequired, err)

		writes := d.Writes()
		require.Len(writes, 2)
		assert.Equal(CallingMessage, writes[0])
		assert.True(strings.HasPrefix(writes[1], "Error: "))
		assert.Contains(writes[1], auth.ErrLoginRequired.Error())
		assert.NotContains(writes[1], "tokenLength")
	})
	t.Run("user-failure", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewCaller(&testTokens{token: "t"}, &testUsers{err: auth.ErrNotFound}, WithFetcher(NewMock(0)))
		require.NoError(err)

		d := &testDisplay{}
		err = c.Call(ctx, d, "sess_1")
		assert.Truef(errors.Is(err, auth.ErrNotFound), "wanted \"%s\" but got \"%s\"", auth.ErrNotFound, err)
		assert.True(strings.HasPrefix(d.Writes()[1], "Error: "))
	})
	t.Run("fetch-failure", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewCaller(&testTokens{token: "t"}, &testUsers{profile: alice}, WithFetcher(&testFetcher{err: ErrFetchFailed}))
		require.NoError(err)

		d := &testDisplay{}
		err = c.Call(ctx, d, "sess_1")
		assert.Truef(errors.Is(err, ErrFetchFailed), "wanted \"%s\" but got \"%s\"", ErrFetchFailed, err)
		assert.True(strings.HasPrefix(d.Writes()[1], "Error: "))
		assert.Contains(d.Writes()[1], ErrFetchFailed.Error())
	})
	t.Run("nil-display", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewCaller(&testTokens{token: "t"}, &testUsers{profile: alice})
		require.NoError(err)
		err = c.Call(ctx, nil, "sess_1")
		assert.Truef(errors.Is(err, ErrInvalidParameter), "wanted \"%s\" but got \"%s\"", ErrInvalidParameter, err)
	})
}

func TestCaller_CallWithProvider(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	tp := auth.StartTestProvider(t)
	client := auth.TestClient(t, tp, "https://example.com/", auth.WithAudience(DefaultAudience))

	authURL, err := client.LoginURL(ctx)
	require.NoError(err)
	state, code := tp.Authorize(t, authURL)
	sessionID, err := client.HandleRedirectCallback(ctx, state, code)
	require.NoError(err)

	c, err := NewCaller(client, client, WithFetcher(NewMock(0)))
	require.NoError(err)

	p := view.NewPage()
	require.NoError(c.Call(ctx, p, sessionID))
	var got Payload
	require.NoError(json.Unmarshal([]byte(p.Text(view.RegionAPIOutput)), &got))
	assert.Equal(auth.TestSubject, got.UserID)
	assert.Greater(got.TokenLength, 0)

	// once logged out, there's no token to be had
	_, err = client.LogoutURL(ctx, sessionID, "https://example.com/")
	require.NoError(err)
	err = c.Call(ctx, p, sessionID)
	assert.Truef(errors.Is(err, auth.ErrLoginRequired), "wanted \"%s\" but got \"%s\"", auth.ErrLoginRequired, err)
	assert.True(strings.HasPrefix(p.Text(view.RegionAPIOutput), "Error: "))
}

func TestCaller_CallWithValidatingMock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tp := auth.StartTestProvider(t)
	client := auth.TestClient(t, tp, "https://example.com/", auth.WithAudience(DefaultAudience))

	authURL, err := client.LoginURL(ctx)
	require.NoError(t, err)
	state, code := tp.Authorize(t, authURL)
	sessionID, err := client.HandleRedirectCallback(ctx, state, code)
	require.NoError(t, err)

	ks, err := jwt.NewOIDCDiscoveryKeySet(ctx, tp.Addr(), tp.CACert())
	require.NoError(t, err)
	v, err := jwt.NewValidator(ks)
	require.NoError(t, err)

	tests := []struct {
		name      string
		expected  jwt.Expected
		wantErrIs error
	}{
		{
			name: "accepted",
			expected: jwt.Expected{
				Issuer:    tp.Addr(),
				Audiences: []string{DefaultAudience},
				Scopes:    strings.Fields(DefaultScope),
			},
		},
		{
			name:      "wrong-audience",
			expected:  jwt.Expected{Audiences: []string{"https://other.example.com"}},
			wantErrIs: jwt.ErrInvalidAudience,
		},
		{
			name:      "missing-scope",
			expected:  jwt.Expected{Scopes: []string{"read:messages"}},
			wantErrIs: jwt.ErrMissingScope,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			c, err := NewCaller(client, client, WithFetcher(NewMock(0, WithTokenValidator(v, tt.expected))))
			require.NoError(err)
			d := &testDisplay{}
			err = c.Call(ctx, d, sessionID)
			writes := d.Writes()
			require.Len(writes, 2)
			assert.Equal(CallingMessage, writes[0])
			if tt.wantErrIs != nil {
				require.Error(err)
				assert.Truef(errors.Is(err, ErrUnauthorized), "wanted \"%s\" but got \"%s\"", ErrUnauthorized, err)
				assert.Truef(errors.Is(err, tt.wantErrIs), "wanted \"%s\" but got \"%s\"", tt.wantErrIs, err)
				assert.True(strings.HasPrefix(writes[1], "Error: "))
				return
			}
			require.NoError(err)
			var got Payload
			require.NoError(json.Unmarshal([]byte(writes[1]), &got))
			assert.Equal(auth.TestSubject, got.UserID)
		})
	}
}

type testValidator struct {
	err      error
	token    string
	expected jwt.Expected
}

func (v *testValidator) Validate(_ context.Context, token string, expected jwt.Expected) (map[string]interface{}, error) {
	v.token, v.expected = token, expected
	if v.err != nil {
		return nil, v.err
	}
	return map[string]interface{}{"sub": expected.Subject}, nil
}

func TestMock_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("delay", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		m := NewMock(20 * time.Millisecond)
		start := time.Now()
		got, err := m.Fetch(context.Background(), "abc", "auth0|alice")
		require.NoError(err)
		assert.GreaterOrEqual(time.Since(start), 20*time.Millisecond)
		assert.Equal(3, got.TokenLength)
		assert.Equal("auth0|alice", got.UserID)
		assert.Equal(MockMessage, got.Message)
	})
	t.Run("canceled", func(t *testing.T) {
		assert := assert.New(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewMock(time.Hour).Fetch(ctx, "abc", "auth0|alice")
		assert.Truef(errors.Is(err, ErrFetchFailed), "wanted \"%s\" but got \"%s\"", ErrFetchFailed, err)
		assert.Truef(errors.Is(err, context.Canceled), "wanted \"%s\" but got \"%s\"", context.Canceled, err)
	})
	t.Run("validated", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		now := time.Now()
		v := &testValidator{}
		m := NewMock(0, WithNow(func() time.Time { return now }), WithTokenValidator(v, jwt.Expected{
			Issuer:  "https://example.com/",
			Subject: "ignored",
		}))
		got, err := m.Fetch(context.Background(), "abc", "auth0|alice")
		require.NoError(err)
		assert.Equal("auth0|alice", got.UserID)
		assert.Equal("abc", v.token)
		assert.Equal("https://example.com/", v.expected.Issuer)
		assert.Equal("auth0|alice", v.expected.Subject)
		require.NotNil(v.expected.Now)
		assert.True(now.Equal(v.expected.Now()))
	})
	t.Run("rejected", func(t *testing.T) {
		assert := assert.New(t)
		m := NewMock(time.Hour, WithTokenValidator(&testValidator{err: jwt.ErrInvalidClaims}, jwt.Expected{}))
		got, err := m.Fetch(context.Background(), "abc", "auth0|alice")
		assert.Nil(got)
		assert.Truef(errors.Is(err, ErrUnauthorized), "wanted \"%s\" but got \"%s\"", ErrUnauthorized, err)
		assert.Truef(errors.Is(err, jwt.ErrInvalidClaims), "wanted \"%s\" but got \"%s\"", jwt.ErrInvalidClaims, err)
	})
	t.Run("nil-validator", func(t *testing.T) {
		assert := assert.New(t)
		assert.Nil(NewMock(0, WithTokenValidator(nil, jwt.Expected{Issuer: "x"})).validator)
	})
	t.Run("negative-delay", func(t *testing.T) {
		assert := assert.New(t)
		assert.Equal(time.Duration(0), NewMock(-time.Second).delay)
	})
}
