package auth

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/showseat/boxoffice/internal/domain"
)

const tokenTTL = 24 * time.Hour

// Claims is the identity carried by a bearer token.
type Claims struct {
	UserID  int64
	Email   string
	IsAdmin bool
}

// NewToken signs an HS256 JWT for the user, valid for 24h.
func NewToken(secret string, u *domain.User) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatInt(u.ID, 10),
		"email":    u.Email,
		"is_admin": u.IsAdmin,
		"iat":      now.Unix(),
		"exp":      now.Add(tokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseToken validates the signature and expiry and extracts the claims.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	t, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !t.Valid {
		return nil, domain.ErrUnauthorized
	}

	mc, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	sub, _ := mc["sub"].(string)
	uid, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	email, _ := mc["email"].(string)
	isAdmin, _ := mc["is_admin"].(bool)

	return &Claims{UserID: uid, Email: email, IsAdmin: isAdmin}, nil
}
