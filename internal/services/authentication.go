package services

import (
	"errors"
	"time"

	"hamsterhub/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token claims")

type CustomClaims struct {
	Username   string  `json:"username"`
	GlobalName string  `json:"global_name,omitempty"`
	Avatar     *string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

type Authentication struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthentication(secret string) (*Authentication, error) {
	if secret == "" {
		return nil, errors.New("empty session secret")
	}
	return &Authentication{[]byte(secret), SESSION_TOKEN_TTL, time.Now}, nil
}

func (authentication *Authentication) CreateToken(user *models.SessionUser) (string, error) {
	now := authentication.now()
	claims := CustomClaims{
		Username:   user.Username,
		GlobalName: user.GlobalName,
		Avatar:     user.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(authentication.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(authentication.secret)
}

func (authentication *Authentication) Validate(token string) (*models.SessionUser, error) {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		return authentication.secret, nil
	}

	jwtToken, err := jwt.ParseWithClaims(
		token,
		&CustomClaims{},
		keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(authentication.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := jwtToken.Claims.(*CustomClaims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &models.SessionUser{
		ID:         claims.Subject,
		Username:   claims.Username,
		GlobalName: claims.GlobalName,
		Avatar:     claims.Avatar,
	}, nil
}
