package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Session はクライアント側のログイン状態を保持する。
// トークンはファイルに保存され、次回起動時にLoadSessionで復元される。
type Session struct {
	mu    sync.RWMutex
	path  string
	token string
}

// sessionFile はセッションファイルの保存形式。
type sessionFile struct {
	Token string `json:"token"`
}

// NewSession は未ログイン状態のSessionを生成する。
// pathが空の場合はトークンをファイルに保存しない。
func NewSession(path string) *Session {
	return &Session{path: path}
}

// LoadSession はpathに保存されたトークンを読み込んでSessionを復元する。
// ファイルが存在しない場合は未ログイン状態のSessionを返す。
func LoadSession(path string) (*Session, error) {
	s := NewSession(path)
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	s.token = strings.TrimSpace(f.Token)
	return s, nil
}

// Token は現在のトークンを返す。未ログインの場合は空文字列。
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// LoggedIn はトークンを保持しているかどうかを返す。
func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// Login はトークンを保持し、ファイルに保存する。
func (s *Session) Login(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		data, err := json.Marshal(sessionFile{Token: token})
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
		// トークンは資格情報のため所有者のみ読み書き可能にする
		if err := os.WriteFile(s.path, data, 0o600); err != nil {
			return fmt.Errorf("failed to write session file: %w", err)
		}
	}

	s.token = token
	return nil
}

// Logout はトークンを破棄し、セッションファイルを削除する。
// ファイル削除に失敗した場合もメモリ上の状態はクリアされる。
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
