package client

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hitoshi/taskboard/internal/model"
)

func TestNewTaskInput(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		status      model.TaskStatus
		wantErr     error
	}{
		{"前後の空白は除去される", "  Write docs  ", "\tfor the API\n", model.TaskStatusTodo, nil},
		{"空白のみのタイトルは拒否", "   ", "desc", model.TaskStatusTodo, ErrEmptyTitle},
		{"空の説明は拒否", "title", "", model.TaskStatusDone, ErrEmptyDescription},
		{"未定義のステータスは拒否", "title", "desc", model.TaskStatus("archived"), ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := NewTaskInput(tt.title, tt.description, tt.status)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if in.Title != "Write docs" || in.Description != "for the API" {
				t.Errorf("trim結果 = %+v", in)
			}
			if in.Status != tt.status {
				t.Errorf("Status = %q, want %q", in.Status, tt.status)
			}
		})
	}
}

func TestIsUnauthenticated(t *testing.T) {
	unauth := &APIError{StatusCode: 401, Code: model.ErrCodeUnauthenticated}
	badLogin := &APIError{StatusCode: 401, Code: model.ErrCodeInvalidCredentials}

	if !IsUnauthenticated(fmt.Errorf("wrapped: %w", unauth)) {
		t.Error("UNAUTHENTICATED はtrueになるべき")
	}
	if IsUnauthenticated(badLogin) {
		t.Error("ログイン失敗はトークン無効ではない")
	}
	if IsUnauthenticated(errors.New("network")) {
		t.Error("APIError以外はfalseになるべき")
	}
}
