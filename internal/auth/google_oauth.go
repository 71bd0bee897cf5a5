package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultGoogleTokenInfoURL  = "https://oauth2.googleapis.com/tokeninfo"
	defaultGoogleVerifyTimeout = 10 * time.Second
	maxTokenInfoResponseSize   = 64 << 10
)

// googleIssuers はGoogleが発行するIDトークンのiss値。
var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// ErrAssertionRejected は外部IdPのアサーションが受け入れられないことを表す。
var ErrAssertionRejected = errors.New("identity assertion rejected")

// VerifiedIdentity は外部IdPで検証済みのユーザー情報を表す。
type VerifiedIdentity struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
}

// IdentityVerifier は外部IdPのアサーションを検証するインターフェース。
type IdentityVerifier interface {
	// Verify はアサーションを検証し、検証済みのユーザー情報を返す。
	Verify(ctx context.Context, assertion string) (*VerifiedIdentity, error)
}

// GoogleVerifierConfig はGoogle IDトークン検証の設定。
type GoogleVerifierConfig struct {
	ClientID string
	Timeout  time.Duration

	// テスト用にオーバーライド可能なURL
	TokenInfoURL string
}

// GoogleIDTokenVerifier はGoogleのtokeninfoエンドポイントでIDトークンを検証する。
type GoogleIDTokenVerifier struct {
	config GoogleVerifierConfig
	client *http.Client
	now    func() time.Time
}

// NewGoogleIDTokenVerifier はGoogleIDTokenVerifierを生成する。
func NewGoogleIDTokenVerifier(config GoogleVerifierConfig) *GoogleIDTokenVerifier {
	if config.TokenInfoURL == "" {
		config.TokenInfoURL = defaultGoogleTokenInfoURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultGoogleVerifyTimeout
	}
	return &GoogleIDTokenVerifier{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		now:    time.Now,
	}
}

// googleTokenInfo はtokeninfoエンドポイントのレスポンス。数値も文字列で返される。
type googleTokenInfo struct {
	Iss           string `json:"iss"`
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Exp           string `json:"exp"`
}

// Verify はIDトークンをGoogleに問い合わせて検証する。
// audがクライアントIDと一致し、メールアドレスが確認済みの場合のみ成功する。
func (v *GoogleIDTokenVerifier) Verify(ctx context.Context, assertion string) (*VerifiedIdentity, error) {
	if assertion == "" {
		return nil, fmt.Errorf("%w: empty assertion", ErrAssertionRejected)
	}

	info, err := v.fetchTokenInfo(ctx, assertion)
	if err != nil {
		return nil, err
	}

	if info.Aud != v.config.ClientID {
		return nil, fmt.Errorf("%w: audience mismatch", ErrAssertionRejected)
	}
	if !googleIssuers[info.Iss] {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrAssertionRejected, info.Iss)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("%w: missing subject or email", ErrAssertionRejected)
	}
	if info.EmailVerified != "true" {
		return nil, fmt.Errorf("%w: email not verified", ErrAssertionRejected)
	}
	exp, err := strconv.ParseInt(info.Exp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid exp %q", ErrAssertionRejected, info.Exp)
	}
	if !v.now().Before(time.Unix(exp, 0)) {
		return nil, fmt.Errorf("%w: token expired", ErrAssertionRejected)
	}

	return &VerifiedIdentity{
		Subject:    info.Sub,
		Email:      info.Email,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
	}, nil
}

// fetchTokenInfo はtokeninfoエンドポイントにIDトークンを送信する。
func (v *GoogleIDTokenVerifier) fetchTokenInfo(ctx context.Context, idToken string) (*googleTokenInfo, error) {
	endpoint, err := url.Parse(v.config.TokenInfoURL)
	if err != nil {
		return nil, fmt.Errorf("invalid tokeninfo URL: %w", err)
	}
	query := endpoint.Query()
	query.Set("id_token", idToken)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokeninfo request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenInfoResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read tokeninfo response: %w", err)
	}

	// 不正・期限切れのトークンには400が返る
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tokeninfo returned status %d", ErrAssertionRejected, resp.StatusCode)
	}

	var info googleTokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse tokeninfo response: %w", err)
	}

	return &info, nil
}

// compile-time interface check
var _ IdentityVerifier = (*GoogleIDTokenVerifier)(nil)
