// Package accesscode verifies the six digit codes that unlock a passport and
// issues the short-lived view tokens that go with them.
package accesscode

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/petmvp/passportview/consts"
	"github.com/petmvp/passportview/internal/format"
	"github.com/petmvp/passportview/internal/i18n"
	"github.com/petmvp/passportview/pkg/errors"
	"github.com/petmvp/passportview/pkg/logger"
)

// CodeLength is the number of digit cells in an access code
const CodeLength = 6

// Verifier checks an access code with the backend and returns the pk it
// unlocks together with that passport's number
type Verifier interface {
	VerifyAccessCode(ctx context.Context, lang, code string) (pk, passportNumber string, err error)
}

// Claims are the claims of a view token. A token opens only the passport
// named in PassportNumber.
type Claims struct {
	PK             string `json:"pk"`
	PassportNumber string `json:"passport_number"`
	jwt.RegisteredClaims
}

// Grant is a successful verification
type Grant struct {
	PK             string    `json:"pk"`
	PassportNumber string    `json:"passport_number"`
	Token          string    `json:"token"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Service verifies access codes and signs view tokens
type Service struct {
	verifier Verifier
	tr       *i18n.Translator
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewService creates an access code service. secret signs the view tokens
// and ttl bounds their lifetime.
func NewService(verifier Verifier, tr *i18n.Translator, secret string, ttl time.Duration) *Service {
	return &Service{
		verifier: verifier,
		tr:       tr,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// JoinCells joins the digit cells of the access form into one code.
// Every cell must hold exactly one digit.
func (s *Service) JoinCells(lang string, cells []string) (string, error) {
	if len(cells) != CodeLength {
		return "", s.fillAllCells(lang)
	}
	var b strings.Builder
	for _, cell := range cells {
		cell = strings.TrimSpace(cell)
		if len(cell) != 1 || cell[0] < '0' || cell[0] > '9' {
			return "", s.fillAllCells(lang)
		}
		b.WriteString(cell)
	}
	return b.String(), nil
}

// Validate checks that code is exactly CodeLength digits
func (s *Service) Validate(lang, code string) error {
	if len(code) != CodeLength {
		return s.fillAllCells(lang)
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return s.fillAllCells(lang)
		}
	}
	return nil
}

func (s *Service) fillAllCells(lang string) error {
	return errors.ErrValidation(s.tr.T(lang, i18n.FillAllCells))
}

// Verify validates the code locally, has the backend verify it and signs a view token for the pk
func (s *Service) Verify(ctx context.Context, lang, code string) (*Grant, error) {
	code = strings.TrimSpace(code)
	if err := s.Validate(lang, code); err != nil {
		return nil, err
	}

	pk, number, err := s.verifier.VerifyAccessCode(ctx, lang, code)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeAccessCodeInvalid) {
			logger.Info("Access code rejected", zap.Error(err))
		}
		return nil, err
	}

	grant, err := s.Issue(pk, number)
	if err != nil {
		return nil, err
	}
	logger.Info("Access code verified",
		zap.String("pk", pk),
		zap.String(logger.FieldPassportNumber, grant.PassportNumber),
		zap.Time("expires_at", grant.ExpiresAt),
	)
	return grant, nil
}

// Issue signs a view token for pk that opens only passportNumber
func (s *Service) Issue(pk, passportNumber string) (*Grant, error) {
	passportNumber = format.NormalizePassportNumber(passportNumber)
	if passportNumber == "" {
		return nil, errors.ErrInternal("view token needs a passport number", nil)
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		PK:             pk,
		PassportNumber: passportNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   pk,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    consts.ServiceName,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, errors.ErrInternal("failed to sign view token", err)
	}
	return &Grant{PK: pk, PassportNumber: passportNumber, Token: token, ExpiresAt: expiresAt}, nil
}

// ValidateToken checks a view token and returns the pk and passport number it grants
// Implements middleware.TokenValidator interface
func (s *Service) ValidateToken(tokenString string) (pk, passportNumber string, err error) {
	if len(s.secret) == 0 {
		return "", "", fmt.Errorf("view token secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(consts.ServiceName),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", "", jwt.ErrSignatureInvalid
	}
	if claims.PassportNumber == "" {
		return "", "", fmt.Errorf("view token names no passport")
	}
	return claims.PK, claims.PassportNumber, nil
}
