// Package model はドメインモデルを定義する。
package model

import "time"

// TaskStatus はタスクが属するカラムを表す。
// 値は todo / inProgress / done の3つに固定されている。
type TaskStatus string

const (
	// TaskStatusTodo は未着手カラム。
	TaskStatusTodo TaskStatus = "todo"
	// TaskStatusInProgress は進行中カラム。
	TaskStatusInProgress TaskStatus = "inProgress"
	// TaskStatusDone は完了カラム。
	TaskStatusDone TaskStatus = "done"
)

// TaskStatuses はボード上のカラム順に並べた全ステータスを返す。
func TaskStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}
}

// Valid は定義済みのステータスかどうかを返す。
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

// ParseTaskStatus は文字列をTaskStatusに変換する。
// 未定義の値の場合はfalseを返す。
func ParseTaskStatus(s string) (TaskStatus, bool) {
	status := TaskStatus(s)
	return status, status.Valid()
}

// Task はユーザーが所有するタスクを表す。
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Status      TaskStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
