// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func Test_sessionStore(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ss := newSessionStore()
	ss.Add(&Session{
		ID:           "sess_1",
		Claims:       map[string]interface{}{"sub": "alice"},
		Scopes:       []string{"openid"},
		RefreshToken: "rt_1",
	})
	assert.Equal(1, ss.Len())

	got, err := ss.Read("sess_1")
	require.NoError(err)
	// reads are copies
	got.Claims["sub"] = "mallory"
	got.Scopes[0] = "admin"
	again, err := ss.Read("sess_1")
	require.NoError(err)
	assert.Equal("alice", again.Claims["sub"])
	assert.Equal([]string{"openid"}, again.Scopes)

	// a token without a refresh_token keeps the current one
	require.NoError(ss.SetToken("sess_1", &oauth2.Token{AccessToken: "at_1"}))
	got, err = ss.Read("sess_1")
	require.NoError(err)
	assert.Equal("at_1", got.token.AccessToken)
	assert.Equal("rt_1", got.RefreshToken)

	// a rotated refresh_token replaces it
	require.NoError(ss.SetToken("sess_1", &oauth2.Token{AccessToken: "at_2", RefreshToken: "rt_2"}))
	got, err = ss.Read("sess_1")
	require.NoError(err)
	assert.Equal("rt_2", got.RefreshToken)

	err = ss.SetToken("sess_unknown", &oauth2.Token{})
	assert.Truef(errors.Is(err, ErrNotFound), "wanted \"%s\" but got \"%s\"", ErrNotFound, err)

	ss.Delete("sess_1")
	_, err = ss.Read("sess_1")
	assert.Truef(errors.Is(err, ErrNotFound), "wanted \"%s\" but got \"%s\"", ErrNotFound, err)
	assert.Equal(0, ss.Len())
}

func Test_newProfile(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	got := newProfile(map[string]interface{}{
		"sub":     "alice",
		"name":    "Alice",
		"email":   42,
		"picture": "https://example.com/a.png",
	})
	assert.Equal("alice", got.Subject)
	assert.Equal("Alice", got.Name)
	assert.Empty(got.Email)
	assert.Equal("https://example.com/a.png", got.Picture)
	assert.Len(got.Claims, 4)
}
