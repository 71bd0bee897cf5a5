// Package board はクライアント側のタスクボードを表す。
// タスクをステータスごとのカラムに保持し、ドラッグ&ドロップ相当の並べ替えと
// カラム間移動をサーバーへの更新と組み合わせて行う。
package board

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/hitoshi/taskboard/internal/client"
	"github.com/hitoshi/taskboard/internal/model"
)

var (
	// ErrUnknownStatus は定義されていないカラムを指定した場合のエラー。
	ErrUnknownStatus = errors.New("unknown task status")
	// ErrInvalidPosition は移動元の位置がカラムの範囲外の場合のエラー。
	ErrInvalidPosition = errors.New("invalid board position")
)

// TaskUpdater はカラム間移動をサーバーに反映する。
// *client.Client が実装する。
type TaskUpdater interface {
	UpdateTask(ctx context.Context, id string, in client.TaskInput) (*client.Task, error)
}

var _ TaskUpdater = (*client.Client)(nil)

// Position はボード上の位置（カラムとカラム内の添字）を表す。
type Position struct {
	Status model.TaskStatus
	Index  int
}

// Board はステータスごとのカラムを保持する。
// サーバー呼び出し中はロックを解放するため、呼び出し中もColumnで楽観的な状態を参照できる。
type Board struct {
	mu      sync.RWMutex
	columns map[model.TaskStatus][]client.Task
	updater TaskUpdater
}

// New はtasksをステータスごとのカラムに振り分けたBoardを生成する。
// 未定義のステータスを持つタスクは無視する。カラム内の順序は入力順を維持する。
func New(tasks []client.Task, updater TaskUpdater) *Board {
	b := &Board{
		columns: make(map[model.TaskStatus][]client.Task, 3),
		updater: updater,
	}
	for _, status := range model.TaskStatuses() {
		b.columns[status] = []client.Task{}
	}
	for _, t := range tasks {
		if !t.Status.Valid() {
			continue
		}
		b.columns[t.Status] = append(b.columns[t.Status], t)
	}
	return b
}

// Column は指定カラムのタスクのコピーを返す。
func (b *Board) Column(status model.TaskStatus) []client.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.columns[status])
}

// Len はボード上のタスク総数を返す。
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, col := range b.columns {
		n += len(col)
	}
	return n
}

// Find はIDでタスクを検索し、その位置を返す。
func (b *Board) Find(id string) (client.Task, Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.find(id)
}

func (b *Board) find(id string) (client.Task, Position, bool) {
	for _, status := range model.TaskStatuses() {
		for i, t := range b.columns[status] {
			if t.ID == id {
				return t, Position{Status: status, Index: i}, true
			}
		}
	}
	return client.Task{}, Position{}, false
}

// Move はfromのタスクをtoへ移動する。
//
// 同一カラム内の移動はローカルの並べ替えのみで、サーバーには通知しない。
// カラム間の移動は先にローカルへ反映し（ステータスも更新）、その後サーバーへ更新を送る。
// 更新に失敗した場合は移動したタスクだけを移動元の位置に戻し、エラーを返す。
// 呼び出し中に他の変更がなければ、両カラムは移動前と完全に一致する。
// 呼び出し中に行われたAdd・Replace・Removeは維持する。
//
// to.Indexは移動先カラムの範囲に丸める。
func (b *Board) Move(ctx context.Context, from, to Position) error {
	b.mu.Lock()

	if !from.Status.Valid() || !to.Status.Valid() {
		b.mu.Unlock()
		return ErrUnknownStatus
	}
	src := b.columns[from.Status]
	if from.Index < 0 || from.Index >= len(src) {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s[%d]", ErrInvalidPosition, from.Status, from.Index)
	}

	if from.Status == to.Status {
		task := src[from.Index]
		col := slices.Delete(slices.Clone(src), from.Index, from.Index+1)
		b.columns[from.Status] = slices.Insert(col, clampIndex(to.Index, len(col)), task)
		b.mu.Unlock()
		return nil
	}

	dst := b.columns[to.Status]
	task := src[from.Index]
	task.Status = to.Status
	insertAt := clampIndex(to.Index, len(dst))
	b.columns[from.Status] = slices.Delete(slices.Clone(src), from.Index, from.Index+1)
	b.columns[to.Status] = slices.Insert(slices.Clone(dst), insertAt, task)
	b.mu.Unlock()

	updated, err := b.updater.UpdateTask(ctx, task.ID, client.TaskInput{
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
	})

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.rollbackMove(task.ID, from, to.Status)
		return fmt.Errorf("failed to move task %s to %s: %w", task.ID, to.Status, err)
	}

	// サーバーが返したタスクで更新日時などを反映する
	if updated != nil {
		col := b.columns[to.Status]
		if i := slices.IndexFunc(col, func(t client.Task) bool { return t.ID == task.ID }); i >= 0 {
			col[i] = *updated
		}
	}
	return nil
}

// rollbackMove は移動先カラムにあるタスクを移動元の位置へ戻し、ステータスを元に戻す。
// 呼び出し中に削除された、または別カラムへ移されたタスクはそのままにする。
func (b *Board) rollbackMove(id string, from Position, movedTo model.TaskStatus) {
	dst := b.columns[movedTo]
	i := slices.IndexFunc(dst, func(t client.Task) bool { return t.ID == id })
	if i < 0 {
		return
	}
	task := dst[i]
	task.Status = from.Status
	b.columns[movedTo] = slices.Delete(slices.Clone(dst), i, i+1)

	src := b.columns[from.Status]
	b.columns[from.Status] = slices.Insert(slices.Clone(src), clampIndex(from.Index, len(src)), task)
}

// Add は作成されたタスクを該当カラムの末尾に追加する。
func (b *Board) Add(task client.Task) error {
	if !task.Status.Valid() {
		return ErrUnknownStatus
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.columns[task.Status] = append(b.columns[task.Status], task)
	return nil
}

// Replace は編集後のタスクを反映する。
// ステータスが変わらない場合は同じ位置で置き換え、変わった場合は新しいカラムの末尾へ移す。
// ボード上に存在しない場合は追加する。
func (b *Board) Replace(task client.Task) error {
	if !task.Status.Valid() {
		return ErrUnknownStatus
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	_, pos, ok := b.find(task.ID)
	if !ok {
		b.columns[task.Status] = append(b.columns[task.Status], task)
		return nil
	}

	if pos.Status == task.Status {
		b.columns[pos.Status][pos.Index] = task
		return nil
	}

	b.columns[pos.Status] = slices.Delete(b.columns[pos.Status], pos.Index, pos.Index+1)
	b.columns[task.Status] = append(b.columns[task.Status], task)
	return nil
}

// Remove は削除されたタスクをボードから取り除く。存在しない場合はfalseを返す。
func (b *Board) Remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, pos, ok := b.find(id)
	if !ok {
		return false
	}
	b.columns[pos.Status] = slices.Delete(b.columns[pos.Status], pos.Index, pos.Index+1)
	return true
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
