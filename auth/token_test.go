// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestAccessToken_Redacted(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tk := AccessToken("super secret token")
	assert.Equal(RedactedAccessToken, tk.String())
	got, err := tk.MarshalJSON()
	require.NoError(err)
	assert.Equal([]byte(fmt.Sprintf(`"%s"`, RedactedAccessToken)), got)
}

func TestIDToken_Redacted(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tk := IDToken("super secret token")
	assert.Equal(RedactedIDToken, tk.String())
	got, err := tk.MarshalJSON()
	require.NoError(err)
	assert.Equal([]byte(fmt.Sprintf(`"%s"`, RedactedIDToken)), got)
}

func Test_validAt(t *testing.T) {
	t.Parallel()
	now := time.Now()
	tests := []struct {
		name  string
		token *oauth2.Token
		want  bool
	}{
		{"nil", nil, false},
		{"no-access-token", &oauth2.Token{RefreshToken: "rt"}, false},
		{"no-expiry", &oauth2.Token{AccessToken: "at"}, true},
		{"valid", &oauth2.Token{AccessToken: "at", Expiry: now.Add(time.Minute)}, true},
		{"within-skew", &oauth2.Token{AccessToken: "at", Expiry: now.Add(expirySkew / 2)}, false},
		{"expired", &oauth2.Token{AccessToken: "at", Expiry: now.Add(-time.Minute)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validAt(tt.token, now))
		})
	}
}

func Test_grantedScopes(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	requested := []string{"openid", "profile"}

	assert.Equal(requested, grantedScopes(nil, requested))
	assert.Equal(requested, grantedScopes(&oauth2.Token{}, requested))

	tk := (&oauth2.Token{AccessToken: "at"}).WithExtra(map[string]interface{}{"scope": "openid email"})
	assert.Equal([]string{"openid", "email"}, grantedScopes(tk, requested))

	assert.True(containsAll([]string{"openid", "email"}, []string{"email"}))
	assert.False(containsAll([]string{"openid"}, []string{"openid", "email"}))
	assert.True(containsAll(nil, nil))
}
