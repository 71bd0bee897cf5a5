// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// User はサービス利用ユーザーを表す。
// PasswordHashが空文字列のユーザーは外部IdP経由でのみログインできるフェデレーション専用アカウント。
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword はパスワードログインが可能なアカウントかどうかを返す。
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// NormalizeEmail はメールアドレスを一意性判定用の正規形に変換する。
// 前後の空白を除去し、小文字に揃える。保存時と検索時の両方で使用する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
