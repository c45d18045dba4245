package security

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// audience or issuer, expiry, and key-fetch trouble. The HTTP layer maps it
// to 401 without distinguishing causes.
var ErrInvalidToken = errors.New("invalid id token")

// GoogleUser is the verified identity extracted from an ID token.
type GoogleUser struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// GoogleVerifier validates Google-issued ID tokens against the provider's
// JWKS endpoint, caching public keys for a TTL.
type GoogleVerifier struct {
	JWKSURL  string
	Audience string
	TTL      time.Duration

	mu    sync.RWMutex
	keys  map[string]*rsa.PublicKey
	expAt time.Time

	http *http.Client
}

func NewGoogleVerifier(jwksURL, audience string, ttl time.Duration) *GoogleVerifier {
	return &GoogleVerifier{
		JWKSURL:  jwksURL,
		Audience: audience,
		TTL:      ttl,
		keys:     make(map[string]*rsa.PublicKey),
		http:     &http.Client{Timeout: 5 * time.Second},
	}
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"` // base64url
	E   string `json:"e"` // base64url
}
type jwks struct {
	Keys []jwk `json:"keys"`
}

func (v *GoogleVerifier) refresh(ctx context.Context) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, v.JWKSURL, nil)
	resp, err := v.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var doc jwks
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return err
	}
	tmp := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil || len(eb) == 0 {
			continue
		}
		e := 0
		for _, b := range eb {
			e = e<<8 + int(b)
		}
		tmp[k.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}
	}
	v.mu.Lock()
	v.keys = tmp
	v.expAt = time.Now().Add(v.TTL)
	v.mu.Unlock()
	return nil
}

func (v *GoogleVerifier) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	if pk, ok := v.keys[kid]; ok && time.Now().Before(v.expAt) {
		v.mu.RUnlock()
		return pk, nil
	}
	v.mu.RUnlock()

	if err := v.refresh(ctx); err != nil {
		return nil, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if pk, ok := v.keys[kid]; ok {
		return pk, nil
	}
	return nil, errors.New("kid not found in JWKS")
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// VerifyIDToken checks the token's signature against the cached JWKS keys
// plus Google's issuer, the configured audience and expiry. One attempt, no
// retry; any failure collapses into ErrInvalidToken.
func (v *GoogleVerifier) VerifyIDToken(ctx context.Context, raw string) (*GoogleUser, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	token, parts, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil || len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, ErrInvalidToken
	}
	pub, err := v.getKey(ctx, kid)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims := &idTokenClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("bad method")
		}
		return pub, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims.Issuer != "https://accounts.google.com" && claims.Issuer != "accounts.google.com" {
		return nil, ErrInvalidToken
	}
	if !audienceMatches(claims.Audience, v.Audience) {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrInvalidToken
	}

	return &GoogleUser{
		Sub:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}

func audienceMatches(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
