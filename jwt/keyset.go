// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	sdkHttp "github.com/hashicorp/cap-spa/sdk/http"
	"gopkg.in/square/go-jose.v2/jwt"
)

// KeySet represents a set of keys that can be used to verify the signatures
// of JWTs.  A KeySet is expected to be backed by a set of local or remote
// keys.
type KeySet interface {
	// VerifySignature parses the given JWT, verifies its signature, and
	// returns the claims in its payload.
	VerifySignature(ctx context.Context, token string) (claims map[string]interface{}, err error)
}

// jsonWebKeySet verifies JWT signatures using keys obtained from a JWKS URL.
type jsonWebKeySet struct {
	remoteJWKS oidc.KeySet
}

// staticKeySet verifies JWT signatures using local public keys.
type staticKeySet struct {
	publicKeys []crypto.PublicKey
}

// NewJSONWebKeySet returns a KeySet that verifies JWT signatures using keys
// from the JSON Web Key Set (JWKS) at the given jwksURL.  The client used to
// obtain the remote JWKS will verify server certificates using the root
// certificates provided by jwksCAPEM, or the system's when it's empty.
//
// The keys are fetched lazily using ctx, so it must not be cancelled before
// the KeySet is done being used.
func NewJSONWebKeySet(ctx context.Context, jwksURL string, jwksCAPEM string) (KeySet, error) {
	const op = "NewJSONWebKeySet"
	if jwksURL == "" {
		return nil, fmt.Errorf("%s: jwks url is empty: %w", op, ErrInvalidParameter)
	}
	caCtx, err := createCAContext(ctx, jwksCAPEM)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &jsonWebKeySet{
		remoteJWKS: oidc.NewRemoteKeySet(caCtx, jwksURL),
	}, nil
}

// NewOIDCDiscoveryKeySet returns a KeySet that verifies JWT signatures using
// keys from the JWKS published in the discovery document of the given
// issuer.  The client used for discovery and to obtain the remote keys will
// verify server certificates using the root certificates provided by
// issuerCAPEM, or the system's when it's empty.
//
// The keys are fetched lazily using ctx, so it must not be cancelled before
// the KeySet is done being used.
func NewOIDCDiscoveryKeySet(ctx context.Context, issuer string, issuerCAPEM string) (KeySet, error) {
	const op = "NewOIDCDiscoveryKeySet"
	if issuer == "" {
		return nil, fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	}
	caCtx, err := createCAContext(ctx, issuerCAPEM)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	provider, err := oidc.NewProvider(caCtx, issuer)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to discover provider: %w", op, err)
	}
	var discovered struct {
		JWKSURL string `json:"jwks_uri"`
	}
	if err := provider.Claims(&discovered); err != nil {
		return nil, fmt.Errorf("%s: unable to read discovery document: %w", op, err)
	}
	if discovered.JWKSURL == "" {
		return nil, fmt.Errorf("%s: discovery document has no jwks_uri: %w", op, ErrInvalidParameter)
	}
	return &jsonWebKeySet{
		remoteJWKS: oidc.NewRemoteKeySet(caCtx, discovered.JWKSURL),
	}, nil
}

// VerifySignature parses the given JWT, verifies its signature using JWKS
// keys, and returns the claims in its payload.  The given JWT must be of the
// JWS compact serialization form.
func (ks *jsonWebKeySet) VerifySignature(ctx context.Context, token string) (map[string]interface{}, error) {
	const op = "jsonWebKeySet.VerifySignature"
	payload, err := ks.remoteJWKS.VerifySignature(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidSignature, err)
	}

	// Unmarshal payload into a set of all received claims
	allClaims := map[string]interface{}{}
	if err := json.Unmarshal(payload, &allClaims); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformedToken, err)
	}
	return allClaims, nil
}

// NewStaticKeySet returns a KeySet that verifies JWT signatures using the
// given public keys, which must be *rsa.PublicKey, *ecdsa.PublicKey or
// ed25519.PublicKey.
func NewStaticKeySet(publicKeys []crypto.PublicKey) (KeySet, error) {
	const op = "NewStaticKeySet"
	if len(publicKeys) == 0 {
		return nil, fmt.Errorf("%s: no public keys: %w", op, ErrInvalidParameter)
	}
	for _, k := range publicKeys {
		switch k.(type) {
		case *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey:
		default:
			return nil, fmt.Errorf("%s: %T: %w", op, k, ErrInvalidPublicKey)
		}
	}
	return &staticKeySet{
		publicKeys: publicKeys,
	}, nil
}

// VerifySignature parses the given JWT, verifies its signature using the
// static public keys, and returns the claims in its payload.  The given JWT
// must be of the JWS compact serialization form.
func (ks *staticKeySet) VerifySignature(_ context.Context, token string) (map[string]interface{}, error) {
	const op = "staticKeySet.VerifySignature"
	parsedJWT, err := jwt.ParseSigned(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformedToken, err)
	}

	for _, key := range ks.publicKeys {
		allClaims := map[string]interface{}{}
		if err := parsedJWT.Claims(key, &allClaims); err == nil {
			return allClaims, nil
		}
	}
	return nil, fmt.Errorf("%s: no known key successfully validated the token signature: %w", op, ErrInvalidSignature)
}

// ParsePublicKeyPEM is used to parse RSA, ECDSA and Ed25519 public keys from
// PEMs.  The PEM must be of PKIX public key or x509 certificate form.
func ParsePublicKeyPEM(data []byte) (crypto.PublicKey, error) {
	const op = "ParsePublicKeyPEM"
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block found: %w", op, ErrInvalidPublicKey)
	}
	rawKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		cert, certErr := x509.ParseCertificate(block.Bytes)
		if certErr != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidPublicKey, errors.Join(err, certErr))
		}
		rawKey = cert.PublicKey
	}
	switch k := rawKey.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey:
		return k, nil
	default:
		return nil, fmt.Errorf("%s: %T: %w", op, rawKey, ErrInvalidPublicKey)
	}
}

// createCAContext returns a context with a http client which trusts the
// root certificates in caPEM.  If caPEM is empty, the client trusts the
// system's root certificates.
func createCAContext(ctx context.Context, caPEM string) (context.Context, error) {
	const op = "createCAContext"
	client, err := sdkHttp.NewClient(caPEM)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sdkHttp.ClientContext(ctx, client), nil
}
