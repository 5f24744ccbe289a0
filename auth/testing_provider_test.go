// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2/jwt"
)

func TestTestProvider_Discovery(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tp := StartTestProvider(t)
	tp.EnableEndSession()

	resp, err := tp.HTTPClient().Get(tp.Addr() + "/.well-known/openid-configuration")
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)

	var got map[string]interface{}
	require.NoError(json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(tp.Addr(), got["issuer"])
	assert.Equal(tp.Addr()+"/authorize", got["authorization_endpoint"])
	assert.Equal(tp.Addr()+"/oidc/logout", got["end_session_endpoint"])
}

func TestTestProvider_Authorize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("denied", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.DenyAuthorization()
		c := TestClient(t, tp, testRedirect)
		authURL, err := c.LoginURL(ctx)
		require.NoError(err)

		client := *tp.HTTPClient()
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		resp, err := client.Get(authURL)
		require.NoError(err)
		defer resp.Body.Close()
		require.Equal(http.StatusFound, resp.StatusCode)
		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(err)
		assert.Equal("access_denied", loc.Query().Get("error"))
		assert.NotEmpty(loc.Query().Get("state"))
	})
	t.Run("unregistered-redirect", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		c := TestClient(t, tp, testRedirect)
		tp.SetAllowedRedirectURIs("https://elsewhere.example.com/")
		authURL, err := c.LoginURL(ctx)
		require.NoError(err)

		resp, err := tp.HTTPClient().Get(authURL)
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}

func TestTestProvider_SignJWT(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tp := StartTestProvider(t)

	token := tp.SignJWT(t, map[string]interface{}{"sub": "alice", "scope": "openid"})
	parsed, err := jwt.ParseSigned(token)
	require.NoError(err)
	require.Len(parsed.Headers, 1)
	assert.Equal("ES256", parsed.Headers[0].Algorithm)
	assert.Equal(testKeyID, parsed.Headers[0].KeyID)

	claims := map[string]interface{}{}
	require.NoError(parsed.Claims(tp.PublicKey(), &claims))
	assert.Equal("alice", claims["sub"])
	assert.Equal("openid", claims["scope"])
}
