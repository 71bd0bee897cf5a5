// Package auth はアカウント登録、パスワードログイン、外部IdPログインを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/taskboard/internal/metrics"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/repository"
)

// 認証方式（メトリクスのラベル）
const (
	methodRegister = "register"
	methodPassword = "password"
	methodGoogle   = "google"
)

// maxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
const maxPasswordBytes = 72

// PasswordHasher はパスワードのハッシュ化と照合を行う。
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare はhashとpasswordが一致しない場合にエラーを返す。
	Compare(hash, password string) error
}

// TokenIssuer はセッショントークンを発行する。
type TokenIssuer interface {
	Issue(userID string, ttl time.Duration) (string, error)
}

// RegisterInput はアカウント登録の入力値。
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	TokenTTL time.Duration // 発行するトークンの有効期間
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	verifier IdentityVerifier
	tokens   TokenIssuer
	metrics  metrics.MetricsCollector
	config   ServiceConfig
	now      func() time.Time
}

// NewService はServiceを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewService(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	verifier IdentityVerifier,
	tokens TokenIssuer,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		verifier: verifier,
		tokens:   tokens,
		metrics:  collector,
		config:   config,
		now:      time.Now,
	}
}

// Register は新規アカウントを作成し、ユーザーとトークンを返す。
// 正規化後のメールアドレスが既に使われている場合はDUPLICATE_EMAILを返す。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.User, string, error) {
	email := model.NormalizeEmail(input.Email)
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)

	if firstName == "" || lastName == "" || email == "" || input.Password == "" {
		s.metrics.RecordAuthAttempt(methodRegister, metrics.OutcomeFailure)
		return nil, "", model.NewValidationError("All fields are required.")
	}
	if len(input.Password) > maxPasswordBytes {
		s.metrics.RecordAuthAttempt(methodRegister, metrics.OutcomeFailure)
		return nil, "", model.NewValidationError("Password must be at most 72 bytes.")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.metrics.RecordAuthAttempt(methodRegister, metrics.OutcomeError)
		return nil, "", fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		s.metrics.RecordAuthAttempt(methodRegister, metrics.OutcomeFailure)
		return nil, "", model.NewDuplicateEmailError()
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.metrics.RecordAuthAttempt(methodRegister, metrics.OutcomeError)
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// 事前チェック後に同じメールアドレスで登録された場合
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.metrics.RecordAuthAttempt(methodRegister, metrics.OutcomeFailure)
			return nil, "", model.NewDuplicateEmailError()
		}
		s.metrics.RecordAuthAttempt(methodRegister, metrics.OutcomeError)
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.issue(user.ID)
	if err != nil {
		s.metrics.RecordAuthAttempt(methodRegister, metrics.OutcomeError)
		return nil, "", err
	}

	s.metrics.RecordAuthAttempt(methodRegister, metrics.OutcomeSuccess)
	slog.Info("user registered", slog.String("user_id", user.ID))

	return user, token, nil
}

// Login はメールアドレスとパスワードで認証し、トークンを返す。
// ユーザー不在・パスワード不一致・パスワード未設定のアカウントはすべてINVALID_CREDENTIALSになる。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		s.metrics.RecordAuthAttempt(methodPassword, metrics.OutcomeFailure)
		return "", model.NewValidationError("Email and password are required.")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.metrics.RecordAuthAttempt(methodPassword, metrics.OutcomeError)
		return "", fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil || !user.HasPassword() {
		s.metrics.RecordAuthAttempt(methodPassword, metrics.OutcomeFailure)
		return "", model.NewInvalidCredentialsError()
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.metrics.RecordAuthAttempt(methodPassword, metrics.OutcomeFailure)
		return "", model.NewInvalidCredentialsError()
	}

	token, err := s.issue(user.ID)
	if err != nil {
		s.metrics.RecordAuthAttempt(methodPassword, metrics.OutcomeError)
		return "", err
	}

	s.metrics.RecordAuthAttempt(methodPassword, metrics.OutcomeSuccess)
	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("method", methodPassword),
	)

	return token, nil
}

// FederatedLogin は外部IdPのアサーションを検証し、トークンを返す。
// 検証済みメールアドレスのユーザーが存在しない場合は、パスワードなしのアカウントを作成する。
func (s *Service) FederatedLogin(ctx context.Context, assertion string) (string, error) {
	identity, err := s.verifier.Verify(ctx, assertion)
	if err != nil {
		s.metrics.RecordAuthAttempt(methodGoogle, metrics.OutcomeFailure)
		slog.Warn("identity assertion rejected", slog.String("error", err.Error()))
		return "", model.NewInvalidAssertionError()
	}

	email := model.NormalizeEmail(identity.Email)
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.metrics.RecordAuthAttempt(methodGoogle, metrics.OutcomeError)
		return "", fmt.Errorf("failed to find user by email: %w", err)
	}

	if user == nil {
		user, err = s.createFederatedUser(ctx, email, identity)
		if err != nil {
			s.metrics.RecordAuthAttempt(methodGoogle, metrics.OutcomeError)
			return "", err
		}
	}

	token, err := s.issue(user.ID)
	if err != nil {
		s.metrics.RecordAuthAttempt(methodGoogle, metrics.OutcomeError)
		return "", err
	}

	s.metrics.RecordAuthAttempt(methodGoogle, metrics.OutcomeSuccess)
	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("method", methodGoogle),
	)

	return token, nil
}

// CurrentUser は指定IDのユーザーを返す。存在しない場合はnilを返す。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// createFederatedUser はパスワードなしのアカウントを作成する。
// 同時ログインで先に作成された場合は既存ユーザーを返す。
func (s *Service) createFederatedUser(ctx context.Context, email string, identity *VerifiedIdentity) (*model.User, error) {
	now := s.now()
	user := &model.User{
		ID:        uuid.New().String(),
		FirstName: identity.GivenName,
		LastName:  identity.FamilyName,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.userRepo.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		existing, findErr := s.userRepo.FindByEmail(ctx, email)
		if findErr != nil {
			return nil, fmt.Errorf("failed to find user by email: %w", findErr)
		}
		if existing == nil {
			return nil, fmt.Errorf("user disappeared after duplicate email: %s", email)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create federated user: %w", err)
	}

	slog.Info("federated user created",
		slog.String("user_id", user.ID),
		slog.String("method", methodGoogle),
	)
	return user, nil
}

func (s *Service) issue(userID string) (string, error) {
	token, err := s.tokens.Issue(userID, s.config.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}
