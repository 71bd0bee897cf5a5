// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/taskboard/internal/model"
)

// ErrDuplicateEmail はメールアドレスの一意制約違反を表す。
// 事前チェックをすり抜けた同時登録を検出するために使用する。
var ErrDuplicateEmail = errors.New("email already exists")

// UserRepository はユーザーデータの永続化インターフェース。
// メールアドレスは呼び出し側で正規化済みであることを前提とする。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが既に存在する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error
}

// TaskRepository はタスクデータの永続化インターフェース。
// 更新系の操作は所有者IDを条件に含め、所有権の確認と書き込みを1文で行う。
type TaskRepository interface {
	// ListByUserID はユーザーのタスク一覧を作成順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// UpdateOwned はuserIDが所有するタスクを全置換する。
	// 該当するタスクがない場合はnilを返す。
	UpdateOwned(ctx context.Context, task *model.Task) (*model.Task, error)

	// DeleteOwned はuserIDが所有するタスクを削除する。
	// 削除した場合はtrue、該当するタスクがない場合はfalseを返す。
	DeleteOwned(ctx context.Context, id, userID string) (bool, error)
}
