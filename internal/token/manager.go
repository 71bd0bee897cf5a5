// Package token はセッショントークン（HS256 JWT）の発行と検証を提供する。
// トークンは永続化せず、リクエストごとに署名と有効期限を検証する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken はトークンが不正な場合に返される。
// 署名不一致・形式不正・期限切れ・アルゴリズム不一致のいずれも同じエラーになる。
var ErrInvalidToken = errors.New("invalid token")

// Claims はセッショントークンに格納するクレーム。
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Manager はトークンの発行と検証を行う。
type Manager struct {
	secret []byte
	now    func() time.Time
}

// Option はManagerの設定を変更する。
type Option func(*Manager)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager はManagerを生成する。secretはHS256の署名鍵。
func NewManager(secret string, opts ...Option) *Manager {
	m := &Manager{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue はuserIDを含み、ttl後に失効するトークンを発行する。
func (m *Manager) Issue(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user ID is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive: %s", ttl)
	}

	now := m.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、ユーザーIDを返す。
// ペイロードは署名検証が成功するまで信頼しない。
func (m *Manager) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return "", ErrInvalidToken
	}

	// subとuserIdが食い違うトークンは受け付けない
	if claims.UserID == "" || (claims.Subject != "" && claims.Subject != claims.UserID) {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}
