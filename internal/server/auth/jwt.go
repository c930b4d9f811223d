// Package auth builds and parses the self-contained signed access tokens.
// Tokens are HS256 JWTs; validity is decided purely by signature and expiry,
// never by a store lookup.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/uslugio/auth/internal/common"
	"github.com/uslugio/auth/internal/server/models"
)

// ProviderClaims is the optional claim variant carried only when the subject
// holds the provider role.
type ProviderClaims struct {
	ProviderID  string `json:"provider_id"`
	Status      string `json:"status"`
	IsAvailable bool   `json:"is_available"`
}

// Claims embeds the registered claims and adds the marketplace identity set.
type Claims struct {
	jwt.RegisteredClaims
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Roles    []string        `json:"roles"`
	Provider *ProviderClaims `json:"provider,omitempty"`
}

// RoleProvider is the role that switches the provider claim variant on.
const RoleProvider = "provider"

// BuildClaims assembles the claim set as a pure function of the subject, its
// roles, and the provider profile (or nil). The provider variant is attached
// only when both the role and the profile are present.
func BuildClaims(user *models.User, roles []string, provider *models.ProviderProfile) Claims {
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
		Email:            user.Email,
		Name:             user.Name,
		Roles:            roles,
	}
	if provider == nil {
		return c
	}
	for _, role := range roles {
		if role == RoleProvider {
			c.Provider = &ProviderClaims{
				ProviderID:  provider.ProviderID,
				Status:      provider.Status,
				IsAvailable: provider.IsAvailable,
			}
			break
		}
	}
	return c
}

// Issuer signs time-bounded access tokens with a symmetric key that is loaded
// once at process start and never mutated afterwards.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewIssuer constructs an Issuer. An empty signing key is a fatal
// configuration condition, reported here rather than per call.
func NewIssuer(secret, issuer, audience string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty signing key", common.ErrorConfiguration)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: non-positive access token ttl", common.ErrorConfiguration)
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, audience: audience, ttl: ttl}, nil
}

// Issue signs the claim set, stamping issuer, audience, issued-at and
// expiry = issued-at + ttl.
func (i *Issuer) Issue(claims Claims) (string, error) {
	now := time.Now()
	claims.Issuer = i.issuer
	claims.Audience = jwt.ClaimStrings{i.audience}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Parse validates signature, expiry, issuer and audience, and returns the
// embedded claims. Expired tokens map to ErrTokenExpired, everything else
// that fails validation to ErrInvalidToken.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
