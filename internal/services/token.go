package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/errors"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/logger"
)

// TokenService mints and verifies the HS256 access tokens presented on
// websocket connect (query param or Authorization header).
type TokenService interface {
	Issue(userID uuid.UUID, ttl time.Duration) (string, error)
	Verify(tokenString string) (uuid.UUID, error)
}

type tokenService struct {
	log       *logger.Logger
	secretKey []byte
}

func NewTokenService(log *logger.Logger, secretKey string) (TokenService, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("missing JWT_SECRET_KEY")
	}
	return &tokenService{
		log:       log.With("service", "TokenService"),
		secretKey: []byte(secretKey),
	}, nil
}

func (ts *tokenService) Issue(userID uuid.UUID, ttl time.Duration) (string, error) {
	if userID == uuid.Nil {
		return "", fmt.Errorf("missing user_id")
	}
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.secretKey)
}

func (ts *tokenService) Verify(tokenString string) (uuid.UUID, error) {
	if tokenString == "" {
		return uuid.Nil, pkgerrors.ErrUnauthorized
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return ts.secretKey, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, pkgerrors.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return uuid.Nil, pkgerrors.ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, pkgerrors.ErrUnauthorized
	}
	return userID, nil
}
