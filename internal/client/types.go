package client

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/taskboard/internal/model"
)

// User はAPIが返すユーザー情報。
type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task はAPIが返すタスク。
type Task struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      model.TaskStatus `json:"status"`
	UserID      string           `json:"userId"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// TaskInput はタスク作成・更新のリクエストボディ。
type TaskInput struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      model.TaskStatus `json:"status"`
}

// RegisterInput はユーザー登録のリクエストボディ。
type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// 入力エラー
var (
	ErrEmptyTitle       = errors.New("title must not be empty")
	ErrEmptyDescription = errors.New("description must not be empty")
	ErrInvalidStatus    = errors.New("status must be one of todo, inProgress, done")
)

// NewTaskInput は前後の空白を除去したTaskInputを生成する。
// 除去後にタイトルまたは説明が空になる場合、ステータスが未定義の場合はエラーを返す。
func NewTaskInput(title, description string, status model.TaskStatus) (TaskInput, error) {
	in := TaskInput{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Status:      status,
	}
	if in.Title == "" {
		return TaskInput{}, ErrEmptyTitle
	}
	if in.Description == "" {
		return TaskInput{}, ErrEmptyDescription
	}
	if !status.Valid() {
		return TaskInput{}, ErrInvalidStatus
	}
	return in, nil
}

// APIError はAPIが返した統一エラーレスポンス。
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Category   string `json:"category"`
	Action     string `json:"action"`
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (status %d) [%s]: %s", e.StatusCode, e.Code, e.Message)
}

// IsUnauthenticated はトークンが無効で再ログインが必要なエラーかどうかを返す。
func IsUnauthenticated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeUnauthenticated
}
