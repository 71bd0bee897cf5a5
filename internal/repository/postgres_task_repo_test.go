package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/taskboard/internal/model"
)

// NewPostgresTaskRepoが正しく初期化されることを検証
func TestNewPostgresTaskRepo_Initializes(t *testing.T) {
	repo := NewPostgresTaskRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

func newTestTask(t *testing.T, repo *PostgresTaskRepo, userID, title string, createdAt time.Time) *model.Task {
	t.Helper()

	createdAt = createdAt.Truncate(time.Microsecond)
	task := &model.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: title + " description",
		Status:      model.TaskStatusTodo,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatalf("タスク作成に失敗: %v", err)
	}
	return task
}

func TestPostgresTaskRepo_ListByUserID_ScopedAndOrdered(t *testing.T) {
	db := openTestDB(t)
	users := NewPostgresUserRepo(db)
	repo := NewPostgresTaskRepo(db)

	alice := newTestUser(t, users, "alice@example.com")
	bob := newTestUser(t, users, "bob@example.com")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := newTestTask(t, repo, alice.ID, "second", base.Add(time.Minute))
	first := newTestTask(t, repo, alice.ID, "first", base)
	newTestTask(t, repo, bob.ID, "bob's", base)

	tasks, err := repo.ListByUserID(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("ListByUserID returned error: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len(tasks) = %d, want 2", len(tasks))
	}
	if tasks[0].ID != first.ID || tasks[1].ID != second.ID {
		t.Errorf("unexpected order: %q, %q", tasks[0].Title, tasks[1].Title)
	}
	for _, task := range tasks {
		if task.UserID != alice.ID {
			t.Errorf("task %q belongs to %q, want %q", task.ID, task.UserID, alice.ID)
		}
	}
}

func TestPostgresTaskRepo_ListByUserID_Empty(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresTaskRepo(db)

	tasks, err := repo.ListByUserID(context.Background(), uuid.New().String())
	if err != nil {
		t.Fatalf("ListByUserID returned error: %v", err)
	}
	if tasks == nil || len(tasks) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", tasks)
	}
}

func TestPostgresTaskRepo_UpdateOwned(t *testing.T) {
	db := openTestDB(t)
	users := NewPostgresUserRepo(db)
	repo := NewPostgresTaskRepo(db)
	ctx := context.Background()

	alice := newTestUser(t, users, "alice@example.com")
	bob := newTestUser(t, users, "bob@example.com")
	task := newTestTask(t, repo, alice.ID, "T", time.Now().UTC())

	t.Run("所有者は更新できる", func(t *testing.T) {
		updated, err := repo.UpdateOwned(ctx, &model.Task{
			ID:          task.ID,
			UserID:      alice.ID,
			Title:       "T2",
			Description: "D2",
			Status:      model.TaskStatusDone,
			UpdatedAt:   time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("UpdateOwned returned error: %v", err)
		}
		if updated == nil {
			t.Fatal("expected updated task, got nil")
		}
		if updated.Title != "T2" || updated.Description != "D2" || updated.Status != model.TaskStatusDone {
			t.Errorf("unexpected task: %+v", updated)
		}
		if !updated.CreatedAt.Equal(task.CreatedAt) {
			t.Errorf("CreatedAt changed: %v -> %v", task.CreatedAt, updated.CreatedAt)
		}
	})

	t.Run("他人のタスクは更新できずnilを返す", func(t *testing.T) {
		updated, err := repo.UpdateOwned(ctx, &model.Task{
			ID:          task.ID,
			UserID:      bob.ID,
			Title:       "hijack",
			Description: "hijack",
			Status:      model.TaskStatusTodo,
			UpdatedAt:   time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("UpdateOwned returned error: %v", err)
		}
		if updated != nil {
			t.Errorf("expected nil, got %+v", updated)
		}

		tasks, _ := repo.ListByUserID(ctx, alice.ID)
		if len(tasks) != 1 || tasks[0].Title != "T2" {
			t.Errorf("task was modified by non-owner: %+v", tasks)
		}
	})

	t.Run("存在しないタスクはnilを返す", func(t *testing.T) {
		updated, err := repo.UpdateOwned(ctx, &model.Task{
			ID:          uuid.New().String(),
			UserID:      alice.ID,
			Title:       "x",
			Description: "x",
			Status:      model.TaskStatusTodo,
			UpdatedAt:   time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("UpdateOwned returned error: %v", err)
		}
		if updated != nil {
			t.Errorf("expected nil, got %+v", updated)
		}
	})
}

func TestPostgresTaskRepo_DeleteOwned(t *testing.T) {
	db := openTestDB(t)
	users := NewPostgresUserRepo(db)
	repo := NewPostgresTaskRepo(db)
	ctx := context.Background()

	alice := newTestUser(t, users, "alice@example.com")
	bob := newTestUser(t, users, "bob@example.com")
	task := newTestTask(t, repo, alice.ID, "T", time.Now().UTC())

	deleted, err := repo.DeleteOwned(ctx, task.ID, bob.ID)
	if err != nil {
		t.Fatalf("DeleteOwned returned error: %v", err)
	}
	if deleted {
		t.Error("non-owner should not delete the task")
	}

	deleted, err = repo.DeleteOwned(ctx, task.ID, alice.ID)
	if err != nil {
		t.Fatalf("DeleteOwned returned error: %v", err)
	}
	if !deleted {
		t.Error("owner should delete the task")
	}

	// 2回目の削除は該当なし
	deleted, err = repo.DeleteOwned(ctx, task.ID, alice.ID)
	if err != nil {
		t.Fatalf("DeleteOwned returned error: %v", err)
	}
	if deleted {
		t.Error("second delete should report not found")
	}
}
