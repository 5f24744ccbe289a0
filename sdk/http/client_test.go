// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewClient(t *testing.T) {
	t.Parallel()
	t.Run("system-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewClient("")
		require.NoError(err)
		tr, ok := c.Transport.(*http.Transport)
		require.True(ok)
		assert.Nil(tr.TLSClientConfig)
	})
	t.Run("invalid-pem", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewClient("not a pem")
		require.Error(err)
		assert.Truef(errors.Is(err, ErrInvalidCertificatePem), "wanted \"%s\" but got \"%s\"", ErrInvalidCertificatePem, err)
		assert.Nil(c)
	})
	t.Run("custom-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		c, err := NewClient(testCertPEM(t, srv))
		require.NoError(err)
		tr, ok := c.Transport.(*http.Transport)
		require.True(ok)
		require.NotNil(tr.TLSClientConfig)
		assert.Equal(uint16(tls.VersionTLS12), tr.TLSClientConfig.MinVersion)

		resp, err := c.Get(srv.URL)
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal(http.StatusNoContent, resp.StatusCode)
	})
}

func TestClientContext(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	c := &http.Client{}
	ctx := ClientContext(context.Background(), c)
	assert.Equal(c, ctx.Value(oauth2.HTTPClient))
}
