// Package client はタスクボードAPIのGoクライアントを提供する。
// ログイン状態はSessionで明示的に管理し、認証が必要な呼び出しにはBearerトークンを付与する。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxResponseBytes はレスポンスボディの読み取り上限。
const maxResponseBytes = 1 << 20

// ErrNotLoggedIn は未ログイン状態で認証が必要なAPIを呼び出した場合のエラー。
var ErrNotLoggedIn = errors.New("not logged in")

// Client はタスクボードAPIのクライアント。
type Client struct {
	httpClient *http.Client
	baseURL    string
	session    *Session
}

// New はClientの新しいインスタンスを生成する。
// httpClientがnilの場合はhttp.DefaultClientを使用する。
func New(baseURL string, httpClient *http.Client, session *Session) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if session == nil {
		session = NewSession("")
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    session,
	}
}

// Session はクライアントが使用するSessionを返す。
func (c *Client) Session() *Session {
	return c.session
}

type tokenResponse struct {
	Token string `json:"token"`
}

type registerResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
	Token   string `json:"token"`
}

type protectedResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// Register はユーザーを登録し、発行されたトークンでログイン状態にする。
func (c *Client) Register(ctx context.Context, in RegisterInput) (*User, error) {
	var resp registerResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", in, false, &resp); err != nil {
		return nil, err
	}
	if err := c.session.Login(resp.Token); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Login はメールアドレスとパスワードでログインする。
func (c *Client) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, false, &resp); err != nil {
		return err
	}
	return c.session.Login(resp.Token)
}

// GoogleLogin はGoogleのIDトークンでログインする。
func (c *Client) GoogleLogin(ctx context.Context, idToken string) error {
	body := map[string]string{"token": idToken}
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/google", body, false, &resp); err != nil {
		return err
	}
	return c.session.Login(resp.Token)
}

// Logout はセッションを破棄する。サーバーへの通信は行わない。
func (c *Client) Logout() error {
	return c.session.Logout()
}

// CurrentUser は保護ルートを呼び出してログイン中のユーザーを取得する。
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var resp protectedResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/protected", nil, true, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// ListTasks はログイン中のユーザーのタスク一覧を取得する。
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	if err := c.do(ctx, http.MethodGet, "/api/task/tasks", nil, true, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask はタスクを作成する。
func (c *Client) CreateTask(ctx context.Context, in TaskInput) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodPost, "/api/task/tasks", in, true, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask はタスクを全置換で更新する。
func (c *Client) UpdateTask(ctx context.Context, id string, in TaskInput) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodPut, taskPath(id), in, true, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask はタスクを削除する。
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, true, nil)
}

func taskPath(id string) string {
	return "/api/task/tasks/" + url.PathEscape(id)
}

// do はリクエストを送信し、2xxの場合はレスポンスをoutにデコードする。
// それ以外のステータスは*APIErrorとして返す。
func (c *Client) do(ctx context.Context, method, path string, body any, authenticated bool, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		token := c.session.Token()
		if token == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeAPIError はエラーレスポンスを*APIErrorに変換する。
// 統一フォーマットでない場合はステータス文字列をメッセージにする。
func decodeAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
		apiErr = &APIError{Message: http.StatusText(status)}
	}
	apiErr.StatusCode = status
	return apiErr
}
