package identity

import (
	"errors"
	"strings"
	"time"

	"fluxao-backend-go/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Resolver turns an already-issued access token into an Identity. Tokens are
// minted by the platform's auth service; CreateAccessToken exists for tooling
// and tests.
type Resolver struct {
	Secret    []byte
	Issuer    string
	AccessTTL time.Duration
}

func (r Resolver) CreateAccessToken(subject string, roles []string) (string, int64, error) {
	now := time.Now().UTC()
	ttl := r.AccessTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"iss":   r.Issuer,
		"sub":   subject,
		"typ":   "access",
		"roles": roles,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(r.Secret)
	return signed, exp.Unix(), err
}

// Resolve validates the token and picks the highest known role it carries.
func (r Resolver) Resolve(tokenStr string) (models.Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenStr), claims, func(token *jwt.Token) (interface{}, error) {
		return r.Secret, nil
	}, jwt.WithIssuer(r.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return models.Identity{}, ErrInvalidToken
	}
	if claims["typ"] != "access" {
		return models.Identity{}, ErrInvalidToken
	}
	subject, _ := claims["sub"].(string)
	if subject == "" {
		return models.Identity{}, ErrInvalidToken
	}
	roles := []string{}
	if rawRoles, ok := claims["roles"].([]interface{}); ok {
		for _, raw := range rawRoles {
			if s, ok := raw.(string); ok {
				roles = append(roles, s)
			}
		}
	}
	return models.Identity{ID: subject, Role: models.HighestRole(roles)}, nil
}

// FromBearer strips the "Bearer " prefix of an Authorization header value.
func (r Resolver) FromBearer(header string) (models.Identity, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return models.Identity{}, ErrInvalidToken
	}
	return r.Resolve(strings.TrimPrefix(header, "Bearer "))
}
