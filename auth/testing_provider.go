// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/cap-spa/sdk/id"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// Defaults used by the TestProvider until they're overridden.
const (
	TestClientID       = "test-client-id"
	TestSubject        = "auth0|alice"
	TestAccessTokenTTL = 5 * time.Minute
	testKeyID          = "test-signing-key"
)

// TestProvider is a local https server which supports just enough of an
// identity provider to exercise a Client end to end: discovery, the
// authorization endpoint (which approves every valid request without asking),
// the token endpoint (authorization_code with PKCE and refresh_token grants),
// UserInfo, JWKS and logout.
//
// Most of this is modeled after Consul's oauthtest package.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	privKey *ecdsa.PrivateKey
	jwks    *jose.JSONWebKeySet

	mu                  sync.Mutex
	clientID            string
	clientSecret        string
	allowedRedirectURIs []string
	subject             string
	customClaims        map[string]interface{}
	userInfo            map[string]interface{}
	grantedScope        string
	nonceOverride       string
	accessTokenTTL      time.Duration
	omitIDToken         bool
	omitRefreshToken    bool
	opaqueAccessTokens  bool
	disableUserInfo     bool
	denyAuthorization   bool
	failRefresh         bool
	endSession          bool
	refreshCount        int

	codes         map[string]testAuthCode
	refreshTokens map[string]testGrant
	accessTokens  map[string]bool

	t *testing.T
}

// testGrant is what the provider remembers about a user's authorization.
type testGrant struct {
	nonce    string
	audience string
	scope    string
}

type testAuthCode struct {
	testGrant
	challenge   string
	redirectURI string
}

// StartTestProvider creates a disposable TestProvider.  It's stopped when the
// test completes.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(err)

	p := &TestProvider{
		privKey:             priv,
		clientID:            TestClientID,
		allowedRedirectURIs: []string{"https://example.com/"},
		subject:             TestSubject,
		customClaims: map[string]interface{}{
			"name":    "Alice Smith",
			"email":   "alice@example.com",
			"picture": "https://example.com/alice.png",
		},
		userInfo: map[string]interface{}{
			"nickname": "alice",
		},
		accessTokenTTL: TestAccessTokenTTL,
		codes:          map[string]testAuthCode{},
		refreshTokens:  map[string]testGrant{},
		accessTokens:   map[string]bool{},
		t:              t,
	}
	p.jwks = &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       priv.Public(),
				KeyID:     testKeyID,
				Algorithm: string(jose.ES256),
				Use:       "sig",
			},
		},
	}

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.Stop)

	var buf bytes.Buffer
	err = pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: p.httpServer.Certificate().Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running webserver,
// which is also the provider's issuer.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// HTTPClient returns an http.Client which trusts the test provider.
func (p *TestProvider) HTTPClient() *http.Client {
	return p.httpServer.Client()
}

// SetClientCreds configures the client the provider accepts. An empty secret
// means a public client, which isn't required to authenticate.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetAllowedRedirectURIs allows you to configure the allowed redirect URIs for
// the OIDC workflow. If not configured a sample of "https://example.com/" is
// used.
func (p *TestProvider) SetAllowedRedirectURIs(uris ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetSubject configures the "sub" of the user who logs in.
func (p *TestProvider) SetSubject(sub string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subject = sub
}

// SetCustomClaims lets you set the claims added to the id_token, replacing the
// default name, email and picture claims.
func (p *TestProvider) SetCustomClaims(claims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = claims
}

// SetUserInfo lets you set the claims returned by the UserInfo endpoint (in
// addition to "sub").
func (p *TestProvider) SetUserInfo(claims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfo = claims
}

// SetGrantedScope makes the token endpoint report the granted scope, instead
// of leaving it out of its responses.
func (p *TestProvider) SetGrantedScope(scope string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grantedScope = scope
}

// SetAccessTokenTTL sets the lifetime of the issued access_tokens.  A negative
// ttl issues tokens which are already expired.
func (p *TestProvider) SetAccessTokenTTL(ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessTokenTTL = ttl
}

// SetNonceOverride forces the nonce in issued id_tokens.
func (p *TestProvider) SetNonceOverride(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonceOverride = nonce
}

// OmitIDTokens forces an error state where the token endpoint does not return
// an id_token.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// OmitRefreshTokens stops the token endpoint from issuing refresh_tokens.
func (p *TestProvider) OmitRefreshTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitRefreshToken = true
}

// IssueOpaqueAccessTokens makes the token endpoint issue random access_tokens
// instead of signed JWTs, the way providers do when no API audience is
// requested.
func (p *TestProvider) IssueOpaqueAccessTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opaqueAccessTokens = true
}

// DisableUserInfo makes the userinfo endpoint return 404 and omits it from the
// discovery config.
func (p *TestProvider) DisableUserInfo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableUserInfo = true
}

// DenyAuthorization makes the authorization endpoint answer every request
// with an access_denied error.
func (p *TestProvider) DenyAuthorization() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.denyAuthorization = true
}

// FailRefresh makes every refresh_token grant fail with invalid_grant.
func (p *TestProvider) FailRefresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failRefresh = true
}

// EnableEndSession advertises an end_session_endpoint in the discovery
// config. It must be called before a Client discovers the provider.
func (p *TestProvider) EnableEndSession() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endSession = true
}

// RefreshCount returns how many refresh_token grants were successful.
func (p *TestProvider) RefreshCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshCount
}

// PublicKey returns the public half of the provider's signing key.
func (p *TestProvider) PublicKey() *ecdsa.PublicKey { return &p.privKey.PublicKey }

// SignJWT signs claims with the provider's signing key, which makes the jwt
// verifiable with the provider's JWKS.
func (p *TestProvider) SignJWT(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	token, err := p.sign(jwt.Claims{}, claims)
	require.NoError(t, err)
	return token
}

// Authorize runs the authorization request in authURL (as returned by
// Client.LoginURL) and returns the state and code the provider redirected
// with.
func (p *TestProvider) Authorize(t *testing.T, authURL string) (state, code string) {
	t.Helper()
	require := require.New(t)
	client := *p.HTTPClient()
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := client.Get(authURL)
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(err)
	require.Empty(loc.Query().Get("error"), "authorization failed: %s", loc.Query().Get("error_description"))
	return loc.Query().Get("state"), loc.Query().Get("code")
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, errorCode, errorMessage string) {
	qv := req.URL.Query()
	u, err := url.Parse(qv.Get("redirect_uri"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	rq := u.Query()
	rq.Set("state", qv.Get("state"))
	rq.Set("error", errorCode)
	if errorMessage != "" {
		rq.Set("error_description", errorMessage)
	}
	u.RawQuery = rq.Encode()
	http.Redirect(w, req, u.String(), http.StatusFound)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}
	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		reply := struct {
			Issuer              string   `json:"issuer"`
			AuthEndpoint        string   `json:"authorization_endpoint"`
			TokenEndpoint       string   `json:"token_endpoint"`
			JWKSURI             string   `json:"jwks_uri"`
			UserinfoEndpoint    string   `json:"userinfo_endpoint,omitempty"`
			EndSessionEndpoint  string   `json:"end_session_endpoint,omitempty"`
			Algs                []string `json:"id_token_signing_alg_values_supported"`
			ChallengeMethods    []string `json:"code_challenge_methods_supported"`
			ResponseTypes       []string `json:"response_types_supported"`
			SubjectTypes        []string `json:"subject_types_supported"`
			TokenEndpointAuthns []string `json:"token_endpoint_auth_methods_supported"`
		}{
			Issuer:              p.Addr(),
			AuthEndpoint:        p.Addr() + "/authorize",
			TokenEndpoint:       p.Addr() + "/oauth/token",
			JWKSURI:             p.Addr() + "/.well-known/jwks.json",
			UserinfoEndpoint:    p.Addr() + "/userinfo",
			Algs:                []string{string(jose.ES256)},
			ChallengeMethods:    []string{"S256"},
			ResponseTypes:       []string{"code"},
			SubjectTypes:        []string{"public"},
			TokenEndpointAuthns: []string{"client_secret_basic", "client_secret_post", "none"},
		}
		if p.disableUserInfo {
			reply.UserinfoEndpoint = ""
		}
		if p.endSession {
			reply.EndSessionEndpoint = p.Addr() + "/oidc/logout"
		}
		_ = p.writeJSON(w, &reply)

	case "/.well-known/jwks.json":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = p.writeJSON(w, p.jwks)

	case "/authorize":
		p.authorize(w, req)

	case "/oauth/token":
		p.token(w, req)

	case "/userinfo":
		if p.disableUserInfo {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodGet && req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		tk := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
		if !p.accessTokens[tk] {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		reply := map[string]interface{}{}
		for k, v := range p.userInfo {
			reply[k] = v
		}
		reply["sub"] = p.subject
		_ = p.writeJSON(w, reply)

	case "/v2/logout":
		http.Redirect(w, req, req.URL.Query().Get("returnTo"), http.StatusFound)

	case "/oidc/logout":
		if !p.endSession {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Redirect(w, req, req.URL.Query().Get("post_logout_redirect_uri"), http.StatusFound)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *TestProvider) authorize(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	qv := req.URL.Query()

	redirectURI := qv.Get("redirect_uri")
	if !contains(p.allowedRedirectURIs, redirectURI) {
		// never redirect to an unknown uri
		_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed")
		return
	}

	switch {
	case qv.Get("client_id") != p.clientID:
		p.writeAuthErrorResponse(w, req, "unauthorized_client", "unknown client_id")
		return
	case qv.Get("response_type") != "code":
		p.writeAuthErrorResponse(w, req, "unsupported_response_type", "")
		return
	case qv.Get("state") == "":
		p.writeAuthErrorResponse(w, req, "invalid_request", "missing state parameter")
		return
	case qv.Get("code_challenge") == "" || qv.Get("code_challenge_method") != "S256":
		p.writeAuthErrorResponse(w, req, "invalid_request", "PKCE with S256 is required")
		return
	case !contains(strings.Fields(qv.Get("scope")), "openid"):
		p.writeAuthErrorResponse(w, req, "invalid_scope", "openid scope is required")
		return
	case p.denyAuthorization:
		p.writeAuthErrorResponse(w, req, "access_denied", "user denied access")
		return
	}

	code, err := id.New("code")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	p.codes[code] = testAuthCode{
		testGrant: testGrant{
			nonce:    qv.Get("nonce"),
			audience: qv.Get("audience"),
			scope:    qv.Get("scope"),
		},
		challenge:   qv.Get("code_challenge"),
		redirectURI: redirectURI,
	}

	u, err := url.Parse(redirectURI)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	rq := u.Query()
	rq.Set("code", code)
	rq.Set("state", qv.Get("state"))
	u.RawQuery = rq.Encode()
	http.Redirect(w, req, u.String(), http.StatusFound)
}

func (p *TestProvider) token(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	clientID, clientSecret, ok := req.BasicAuth()
	if ok {
		clientID, _ = url.QueryUnescape(clientID)
		clientSecret, _ = url.QueryUnescape(clientSecret)
	} else {
		clientID, clientSecret = req.FormValue("client_id"), req.FormValue("client_secret")
	}
	if clientID != p.clientID || (p.clientSecret != "" && clientSecret != p.clientSecret) {
		_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return
	}

	var grant testGrant
	switch req.FormValue("grant_type") {
	case "authorization_code":
		code, ok := p.codes[req.FormValue("code")]
		if !ok {
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unexpected auth code")
			return
		}
		delete(p.codes, req.FormValue("code"))
		if req.FormValue("redirect_uri") != code.redirectURI {
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "redirect_uri mismatch")
			return
		}
		sum := sha256.Sum256([]byte(req.FormValue("code_verifier")))
		if base64.RawURLEncoding.EncodeToString(sum[:]) != code.challenge {
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "code_verifier doesn't match code_challenge")
			return
		}
		grant = code.testGrant

	case "refresh_token":
		g, ok := p.refreshTokens[req.FormValue("refresh_token")]
		if !ok || p.failRefresh {
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unknown or expired refresh_token")
			return
		}
		p.refreshCount++
		grant = g

	default:
		_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "unsupported_grant_type", "")
		return
	}

	reply, err := p.issue(grant, req.FormValue("grant_type") == "authorization_code", req.FormValue("refresh_token"))
	if err != nil {
		_ = p.writeTokenErrorResponse(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	_ = p.writeJSON(w, reply)
}

type testTokenReply struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	IDToken      string `json:"id_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// issue signs the tokens for a grant. The id_token is only issued for the
// authorization_code grant and refresh_tokens are kept across refreshes.
func (p *TestProvider) issue(g testGrant, withIDToken bool, refreshToken string) (*testTokenReply, error) {
	now := time.Now()
	aud := g.audience
	if aud == "" {
		aud = p.clientID
	}
	var accessToken string
	var err error
	if p.opaqueAccessTokens {
		accessToken, err = id.New("at")
	} else {
		accessToken, err = p.sign(jwt.Claims{
			Issuer:   p.Addr(),
			Subject:  p.subject,
			Audience: jwt.Audience{aud},
			IssuedAt: jwt.NewNumericDate(now),
			Expiry:   jwt.NewNumericDate(now.Add(p.accessTokenTTL)),
		}, map[string]interface{}{"scope": g.scope})
	}
	if err != nil {
		return nil, err
	}
	p.accessTokens[accessToken] = true

	reply := &testTokenReply{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(p.accessTokenTTL / time.Second),
		Scope:       p.grantedScope,
	}
	if p.accessTokenTTL < 0 {
		// expires_in must be positive, so the closest we can get is "now"
		reply.ExpiresIn = 1
	}

	if withIDToken && !p.omitIDToken {
		nonce := g.nonce
		if p.nonceOverride != "" {
			nonce = p.nonceOverride
		}
		claims := map[string]interface{}{"nonce": nonce}
		for k, v := range p.customClaims {
			claims[k] = v
		}
		reply.IDToken, err = p.sign(jwt.Claims{
			Issuer:    p.Addr(),
			Subject:   p.subject,
			Audience:  jwt.Audience{p.clientID},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
			Expiry:    jwt.NewNumericDate(now.Add(5 * time.Minute)),
		}, claims)
		if err != nil {
			return nil, err
		}
	}

	if !p.omitRefreshToken {
		if refreshToken == "" {
			refreshToken, err = id.New("rt")
			if err != nil {
				return nil, err
			}
			p.refreshTokens[refreshToken] = g
		}
		reply.RefreshToken = refreshToken
	}
	return reply, nil
}

func (p *TestProvider) sign(claims jwt.Claims, privateClaims interface{}) (string, error) {
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.ES256, Key: jose.JSONWebKey{Key: p.privKey, KeyID: testKeyID}},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", err
	}
	return jwt.Signed(sig).Claims(claims).Claims(privateClaims).CompactSerialize()
}

// TestConfig creates a Config for a client of the TestProvider.  The
// redirectURL is registered with the provider.
func TestConfig(t *testing.T, p *TestProvider, redirectURL string, opt ...Option) *Config {
	t.Helper()
	require := require.New(t)
	p.mu.Lock()
	clientID := p.clientID
	if !contains(p.allowedRedirectURIs, redirectURL) {
		p.allowedRedirectURIs = append(p.allowedRedirectURIs, redirectURL)
	}
	p.mu.Unlock()

	opts := append([]Option{WithRedirectURL(redirectURL), WithProviderCA(p.CACert())}, opt...)
	c, err := NewConfig(p.Addr(), clientID, opts...)
	require.NoError(err)
	return c
}

// TestClient creates a Client for the TestProvider which is released when the
// test completes.
func TestClient(t *testing.T, p *TestProvider, redirectURL string, opt ...Option) *Client {
	t.Helper()
	require := require.New(t)
	c, err := NewClient(TestConfig(t, p, redirectURL, opt...), opt...)
	require.NoError(err)
	t.Cleanup(c.Done)
	return c
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
