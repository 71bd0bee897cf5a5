// Package task はタスク管理のドメインロジックを提供する。
// すべての操作は呼び出し元ユーザーの所有するタスクに限定される。
package task

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hitoshi/taskboard/internal/metrics"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/repository"
)

// 入力値の上限（文字数）
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 5000
)

// 操作種別（メトリクスのラベル）
const (
	opList   = "list"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// Input はタスクの作成・更新の入力値。更新は全置換で行う。
type Input struct {
	Title       string
	Description string
	Status      string
}

// Service はタスク管理のサービス層。
type Service struct {
	taskRepo repository.TaskRepository
	metrics  metrics.MetricsCollector
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	taskRepo repository.TaskRepository,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		taskRepo: taskRepo,
		metrics:  collector,
		now:      time.Now,
	}
}

// List は呼び出し元のタスク一覧を作成順で返す。
func (s *Service) List(ctx context.Context, callerID string) ([]*model.Task, error) {
	tasks, err := s.taskRepo.ListByUserID(ctx, callerID)
	if err != nil {
		s.metrics.RecordTaskOperation(opList, metrics.OutcomeError)
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}

	s.metrics.RecordTaskOperation(opList, metrics.OutcomeSuccess)
	return tasks, nil
}

// Create は呼び出し元が所有するタスクを作成する。
func (s *Service) Create(ctx context.Context, callerID string, input Input) (*model.Task, error) {
	title, description, status, err := s.normalize(input)
	if err != nil {
		s.metrics.RecordTaskOperation(opCreate, metrics.OutcomeFailure)
		return nil, err
	}

	now := s.now()
	task := &model.Task{
		ID:          uuid.New().String(),
		UserID:      callerID,
		Title:       title,
		Description: description,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		s.metrics.RecordTaskOperation(opCreate, metrics.OutcomeError)
		return nil, fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}

	s.metrics.RecordTaskOperation(opCreate, metrics.OutcomeSuccess)
	return task, nil
}

// Update は呼び出し元が所有するタスクを全置換する。
// タスクが存在しない場合と他ユーザーの所有である場合は区別せずTASK_NOT_FOUNDを返す。
func (s *Service) Update(ctx context.Context, callerID, taskID string, input Input) (*model.Task, error) {
	if !isTaskID(taskID) {
		s.metrics.RecordTaskOperation(opUpdate, metrics.OutcomeFailure)
		return nil, model.NewTaskNotFoundError()
	}

	title, description, status, err := s.normalize(input)
	if err != nil {
		s.metrics.RecordTaskOperation(opUpdate, metrics.OutcomeFailure)
		return nil, err
	}

	updated, err := s.taskRepo.UpdateOwned(ctx, &model.Task{
		ID:          taskID,
		UserID:      callerID,
		Title:       title,
		Description: description,
		Status:      status,
		UpdatedAt:   s.now(),
	})
	if err != nil {
		s.metrics.RecordTaskOperation(opUpdate, metrics.OutcomeError)
		return nil, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}
	if updated == nil {
		s.metrics.RecordTaskOperation(opUpdate, metrics.OutcomeFailure)
		return nil, model.NewTaskNotFoundError()
	}

	s.metrics.RecordTaskOperation(opUpdate, metrics.OutcomeSuccess)
	return updated, nil
}

// Delete は呼び出し元が所有するタスクを削除する。
// 削除済みのタスクを再度削除した場合もTASK_NOT_FOUNDを返す。
func (s *Service) Delete(ctx context.Context, callerID, taskID string) error {
	if !isTaskID(taskID) {
		s.metrics.RecordTaskOperation(opDelete, metrics.OutcomeFailure)
		return model.NewTaskNotFoundError()
	}

	deleted, err := s.taskRepo.DeleteOwned(ctx, taskID, callerID)
	if err != nil {
		s.metrics.RecordTaskOperation(opDelete, metrics.OutcomeError)
		return fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}
	if !deleted {
		s.metrics.RecordTaskOperation(opDelete, metrics.OutcomeFailure)
		return model.NewTaskNotFoundError()
	}

	s.metrics.RecordTaskOperation(opDelete, metrics.OutcomeSuccess)
	return nil
}

// normalize は入力値をトリムし、検証する。
// トリム以外の書き換えは行わず、保存値をそのまま再送した更新では内容は変わらない。
// HTMLとして解釈される文字は出力時のJSONエンコードでエスケープされる。
func (s *Service) normalize(input Input) (string, string, model.TaskStatus, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)

	if title == "" || description == "" || strings.TrimSpace(input.Status) == "" {
		return "", "", "", model.NewValidationError("Title, description, and status are required.")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", "", "", model.NewValidationError(fmt.Sprintf("Title must be at most %d characters.", MaxTitleLength))
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return "", "", "", model.NewValidationError(fmt.Sprintf("Description must be at most %d characters.", MaxDescriptionLength))
	}

	status, ok := model.ParseTaskStatus(input.Status)
	if !ok {
		return "", "", "", model.NewValidationError("Status must be one of todo, inProgress, done.")
	}

	return title, description, status, nil
}

// isTaskID はidがUUID形式かどうかを返す。形式外のIDは存在しないタスクとして扱う。
func isTaskID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
