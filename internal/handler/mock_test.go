package handler

import (
	"context"
	"errors"

	"github.com/hitoshi/taskboard/internal/auth"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/task"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn       func(ctx context.Context, input auth.RegisterInput) (*model.User, string, error)
	loginFn          func(ctx context.Context, email, password string) (string, error)
	federatedLoginFn func(ctx context.Context, assertion string) (string, error)
}

func (m *mockAuthService) Register(ctx context.Context, input auth.RegisterInput) (*model.User, string, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, input)
	}
	return nil, "", errors.New("not configured")
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return "", errors.New("not configured")
}

func (m *mockAuthService) FederatedLogin(ctx context.Context, assertion string) (string, error) {
	if m.federatedLoginFn != nil {
		return m.federatedLoginFn(ctx, assertion)
	}
	return "", errors.New("not configured")
}

type mockTaskService struct {
	listFn   func(ctx context.Context, callerID string) ([]*model.Task, error)
	createFn func(ctx context.Context, callerID string, input task.Input) (*model.Task, error)
	updateFn func(ctx context.Context, callerID, taskID string, input task.Input) (*model.Task, error)
	deleteFn func(ctx context.Context, callerID, taskID string) error
}

func (m *mockTaskService) List(ctx context.Context, callerID string) ([]*model.Task, error) {
	if m.listFn != nil {
		return m.listFn(ctx, callerID)
	}
	return []*model.Task{}, nil
}

func (m *mockTaskService) Create(ctx context.Context, callerID string, input task.Input) (*model.Task, error) {
	if m.createFn != nil {
		return m.createFn(ctx, callerID, input)
	}
	return nil, errors.New("not configured")
}

func (m *mockTaskService) Update(ctx context.Context, callerID, taskID string, input task.Input) (*model.Task, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, callerID, taskID, input)
	}
	return nil, errors.New("not configured")
}

func (m *mockTaskService) Delete(ctx context.Context, callerID, taskID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, callerID, taskID)
	}
	return errors.New("not configured")
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// mockTokenVerifier はトークン文字列をそのままユーザーIDとして扱う。"bad"は拒否する。
type mockTokenVerifier struct{}

func (mockTokenVerifier) Verify(token string) (string, error) {
	if token == "bad" {
		return "", errors.New("invalid token")
	}
	return token, nil
}

// mockUserFinder は登録済みユーザーを返す。
type mockUserFinder struct {
	users map[string]*model.User
}

func (m *mockUserFinder) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	return m.users[userID], nil
}
