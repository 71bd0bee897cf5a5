package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/hitoshi/taskboard/internal/model"
)

// newTestClient はhandlerを使うテストサーバーとClientを生成する。
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL+"/", server.Client(), NewSession(filepath.Join(t.TempDir(), "session.json")))
}

func writeJSONResponse(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			t.Errorf("レスポンスのエンコードに失敗: %v", err)
		}
	}
}

func TestClient_Register_StoresToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/register" {
			t.Errorf("リクエスト = %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("登録リクエストにAuthorizationヘッダーを付与してはならない")
		}
		var body RegisterInput
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("リクエストボディのデコードに失敗: %v", err)
		}
		if body.Email != "ada@example.com" {
			t.Errorf("email = %q", body.Email)
		}
		writeJSONResponse(t, w, http.StatusOK, map[string]any{
			"message": "Account created successfully!",
			"user":    map[string]any{"id": "user-1", "firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com"},
			"token":   "issued-token",
		})
	})

	user, err := c.Register(context.Background(), RegisterInput{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "secret",
	})
	if err != nil {
		t.Fatalf("Register がエラーを返した: %v", err)
	}
	if user.ID != "user-1" || user.FirstName != "Ada" {
		t.Errorf("user = %+v", user)
	}
	if got := c.Session().Token(); got != "issued-token" {
		t.Errorf("Token = %q, want issued-token", got)
	}
}

func TestClient_Login_InvalidCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(t, w, http.StatusUnauthorized, map[string]string{
			"code":     model.ErrCodeInvalidCredentials,
			"message":  "Invalid email or password.",
			"category": "auth",
			"action":   "Check your email and password.",
		})
	})

	err := c.Login(context.Background(), "ada@example.com", "wrong")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if c.Session().LoggedIn() {
		t.Error("ログイン失敗時にセッションを保存してはならない")
	}
}

func TestClient_GoogleLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/google" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["token"] != "google-id-token" {
			t.Errorf("token = %q", body["token"])
		}
		writeJSONResponse(t, w, http.StatusOK, map[string]string{"token": "session-token"})
	})

	if err := c.GoogleLogin(context.Background(), "google-id-token"); err != nil {
		t.Fatalf("GoogleLogin がエラーを返した: %v", err)
	}
	if got := c.Session().Token(); got != "session-token" {
		t.Errorf("Token = %q", got)
	}
}

func TestClient_AuthenticatedCallsRequireLogin(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	if _, err := c.ListTasks(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("err = %v, want ErrNotLoggedIn", err)
	}
	if called {
		t.Error("未ログイン時はリクエストを送信してはならない")
	}
}

func TestClient_TaskCRUD(t *testing.T) {
	stored := Task{ID: "task-1", Title: "Write docs", Description: "API", Status: model.TaskStatusTodo, UserID: "user-1"}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer my-token" {
			t.Errorf("Authorization = %q", got)
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/task/tasks":
			writeJSONResponse(t, w, http.StatusOK, []Task{stored})
		case r.Method == http.MethodPost && r.URL.Path == "/api/task/tasks":
			var in TaskInput
			_ = json.NewDecoder(r.Body).Decode(&in)
			writeJSONResponse(t, w, http.StatusCreated, Task{ID: "task-2", Title: in.Title, Description: in.Description, Status: in.Status})
		case r.Method == http.MethodPut && r.URL.Path == "/api/task/tasks/task-1":
			var in TaskInput
			_ = json.NewDecoder(r.Body).Decode(&in)
			updated := stored
			updated.Status = in.Status
			writeJSONResponse(t, w, http.StatusOK, updated)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/task/tasks/task-1":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("予期しないリクエスト: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	if err := c.Session().Login("my-token"); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	t.Run("一覧", func(t *testing.T) {
		tasks, err := c.ListTasks(ctx)
		if err != nil {
			t.Fatalf("ListTasks がエラーを返した: %v", err)
		}
		if len(tasks) != 1 || tasks[0].ID != "task-1" {
			t.Errorf("tasks = %+v", tasks)
		}
	})

	t.Run("作成", func(t *testing.T) {
		task, err := c.CreateTask(ctx, TaskInput{Title: "New", Description: "desc", Status: model.TaskStatusDone})
		if err != nil {
			t.Fatalf("CreateTask がエラーを返した: %v", err)
		}
		if task.ID != "task-2" || task.Status != model.TaskStatusDone {
			t.Errorf("task = %+v", task)
		}
	})

	t.Run("更新", func(t *testing.T) {
		task, err := c.UpdateTask(ctx, "task-1", TaskInput{Title: "Write docs", Description: "API", Status: model.TaskStatusInProgress})
		if err != nil {
			t.Fatalf("UpdateTask がエラーを返した: %v", err)
		}
		if task.Status != model.TaskStatusInProgress {
			t.Errorf("Status = %q", task.Status)
		}
	})

	t.Run("削除", func(t *testing.T) {
		if err := c.DeleteTask(ctx, "task-1"); err != nil {
			t.Fatalf("DeleteTask がエラーを返した: %v", err)
		}
	})
}

func TestClient_NotFoundDecodesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(t, w, http.StatusNotFound, map[string]string{
			"code":    model.ErrCodeTaskNotFound,
			"message": "Task not found or unauthorized.",
		})
	})
	_ = c.Session().Login("my-token")

	err := c.DeleteTask(context.Background(), "missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Code != model.ErrCodeTaskNotFound || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})
	_ = c.Session().Login("my-token")

	_, err := c.ListTasks(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "Bad Gateway" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestClient_CurrentUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/protected" {
			t.Errorf("path = %s", r.URL.Path)
		}
		writeJSONResponse(t, w, http.StatusOK, map[string]any{
			"message": "This is a protected route",
			"user":    map[string]string{"id": "user-1", "email": "ada@example.com"},
		})
	})
	_ = c.Session().Login("my-token")

	user, err := c.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser がエラーを返した: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("Email = %q", user.Email)
	}
}

func TestClient_Logout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_ = c.Session().Login("my-token")

	if err := c.Logout(); err != nil {
		t.Fatalf("Logout がエラーを返した: %v", err)
	}
	if c.Session().LoggedIn() {
		t.Error("Logout後も認証状態が残っている")
	}
}
