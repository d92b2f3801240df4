// Package rtctoken builds and verifies the signed credentials that grant a
// subject access to a real-time channel with a given role.
//
// Tokens are HS256 JWTs keyed by the application certificate. They carry no
// nonce, so building twice from identical inputs yields the same string.
package rtctoken

import (
	"errors"
	"fmt"
	"time"

	"stagepass/internal/core/domain"
	"stagepass/pkg/validation"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingAppCredentials = errors.New("rtctoken: app id and app certificate are required")
	ErrInvalidChannel        = errors.New("rtctoken: invalid channel")
	ErrInvalidSubject        = errors.New("rtctoken: invalid subject")
	ErrInvalidRole           = errors.New("rtctoken: invalid role")
	ErrInvalidExpiry         = errors.New("rtctoken: expiry must be after issue time")
	ErrInvalidToken          = errors.New("rtctoken: invalid token")
)

// Claims is the payload of a channel credential.
type Claims struct {
	AppID   string      `json:"app_id"`
	Channel string      `json:"channel"`
	Role    domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type Encoder struct {
	appID       string
	certificate []byte
}

// New returns an Encoder for one application. Both values are mandatory.
func New(appID, appCertificate string) (*Encoder, error) {
	if appID == "" || appCertificate == "" {
		return nil, ErrMissingAppCredentials
	}
	return &Encoder{
		appID:       appID,
		certificate: []byte(appCertificate),
	}, nil
}

func (e *Encoder) AppID() string {
	return e.appID
}

// Build signs a credential for subject on channel. It has no side effects.
func (e *Encoder) Build(subject, channel string, role domain.Role, issuedAt, expiresAt time.Time) (string, error) {
	if err := validation.ValidateChannelName(channel); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidChannel, err)
	}
	if err := validation.ValidateSubjectID(subject); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSubject, err)
	}
	if !role.Valid() {
		return "", fmt.Errorf("%w: %d", ErrInvalidRole, int(role))
	}
	if !expiresAt.After(issuedAt) {
		return "", ErrInvalidExpiry
	}

	claims := &Claims{
		AppID:   e.appID,
		Channel: channel,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    e.appID,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(e.certificate)
	if err != nil {
		return "", fmt.Errorf("rtctoken: sign: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature, issuer and expiry of a credential.
func (e *Encoder) Parse(tokenString string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(e.appID),
		jwt.WithExpirationRequired(),
	}, opts...)

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return e.certificate, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
