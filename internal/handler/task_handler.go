package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/task"
)

// dueDateLayout は期日のワイヤーフォーマット（日付のみ、時刻なし）。
const dueDateLayout = "2006-01-02"

// categoryNoneParam は「未分類のタスクのみ」を表すcategory_idクエリ値。
const categoryNoneParam = "none"

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	List(ctx context.Context, userID string, filter model.TaskListFilter) ([]*model.Task, error)
	Get(ctx context.Context, userID, taskID string) (*model.Task, error)
	Create(ctx context.Context, userID string, params task.CreateParams) (*model.Task, error)
	Update(ctx context.Context, userID, taskID string, params task.UpdateParams) (*model.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
	BulkUpdateStatus(ctx context.Context, userID string, ids []string, status model.TaskStatus) (int, error)
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{
		service: service,
	}
}

type taskResponse struct {
	ID          string    `json:"id"`
	CategoryID  *string   `json:"category_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     *string   `json:"due_date"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newTaskResponse(t *model.Task) taskResponse {
	resp := taskResponse{
		ID:          t.ID,
		CategoryID:  t.CategoryID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DueDate != nil {
		due := t.DueDate.Format(dueDateLayout)
		resp.DueDate = &due
	}
	return resp
}

// ListTasks は本人のタスク一覧をフィルタ・ソート条件付きで返す。
// GET /api/tasks?status=&priority=&category_id=&due_before=&due_after=&q=&sort=&order=
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	filter, err := parseTaskListFilter(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	tasks, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, newTaskResponse(t))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"tasks": resp,
	})
}

// GetTask は指定IDのタスクを返す。
// GET /api/tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	taskID := chi.URLParam(r, "id")

	t, err := h.service.Get(r.Context(), userID, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(newTaskResponse(t))
}

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     *string `json:"due_date"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	CategoryID  *string `json:"category_id"`
}

// CreateTask はタスクを作成する。
// POST /api/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	t, err := h.service.Create(r.Context(), userID, task.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     dueDate,
		Priority:    model.TaskPriority(req.Priority),
		Status:      model.TaskStatus(req.Status),
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(newTaskResponse(t))
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	// DueDateはnull明示（クリア）と省略（変更なし）を区別するため二重ポインタ相当の
	// json.RawMessageで受ける。
	DueDate    json.RawMessage `json:"due_date"`
	CategoryID json.RawMessage `json:"category_id"`
	Priority   string          `json:"priority"`
	Status     string          `json:"status"`
}

// UpdateTask はタスクを部分更新する。
// PATCH /api/tasks/{id}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	taskID := chi.URLParam(r, "id")

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	params := task.UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		Priority:    model.TaskPriority(req.Priority),
		Status:      model.TaskStatus(req.Status),
	}

	if len(req.DueDate) > 0 {
		if string(req.DueDate) == "null" {
			params.ClearDueDate = true
		} else {
			var raw string
			if err := json.Unmarshal(req.DueDate, &raw); err != nil {
				writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("due_dateが不正です"))
				return
			}
			dueDate, err := parseDueDate(&raw)
			if err != nil {
				handleServiceError(w, err)
				return
			}
			params.DueDate = dueDate
		}
	}

	if len(req.CategoryID) > 0 {
		if string(req.CategoryID) == "null" {
			params.ClearCategory = true
		} else {
			var categoryID string
			if err := json.Unmarshal(req.CategoryID, &categoryID); err != nil {
				writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("category_idが不正です"))
				return
			}
			params.CategoryID = &categoryID
		}
	}

	t, err := h.service.Update(r.Context(), userID, taskID, params)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(newTaskResponse(t))
}

// DeleteTask はタスクを削除する。
// DELETE /api/tasks/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	taskID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, taskID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type bulkUpdateStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

// BulkUpdateStatus は複数タスクのステータスを一括更新する。
// all-or-nothing: 1件でも更新できないIDが含まれる場合は全体が失敗する。
// PATCH /api/tasks/bulk
func (h *TaskHandler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req bulkUpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	count, err := h.service.BulkUpdateStatus(r.Context(), userID, req.IDs, model.TaskStatus(req.Status))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"updated": count,
	})
}

// parseTaskListFilter はクエリパラメータから一覧フィルタを組み立てる。
// 列挙値の妥当性検証はサービス層が行い、ここでは形式変換のみ行う。
func parseTaskListFilter(r *http.Request) (model.TaskListFilter, error) {
	q := r.URL.Query()

	filter := model.TaskListFilter{
		Status:   model.TaskStatus(q.Get("status")),
		Priority: model.TaskPriority(q.Get("priority")),
		Query:    q.Get("q"),
		SortBy:   model.TaskSortField(q.Get("sort")),
		Order:    model.SortOrder(q.Get("order")),
	}

	if categoryID := q.Get("category_id"); categoryID != "" {
		if categoryID == categoryNoneParam {
			filter.CategoryNone = true
		} else {
			filter.CategoryID = categoryID
		}
	}

	if dueBefore := q.Get("due_before"); dueBefore != "" {
		t, err := time.Parse(dueDateLayout, dueBefore)
		if err != nil {
			return model.TaskListFilter{}, model.NewInvalidFilterError("due_beforeはYYYY-MM-DD形式で指定してください")
		}
		filter.DueBefore = &t
	}

	if dueAfter := q.Get("due_after"); dueAfter != "" {
		t, err := time.Parse(dueDateLayout, dueAfter)
		if err != nil {
			return model.TaskListFilter{}, model.NewInvalidFilterError("due_afterはYYYY-MM-DD形式で指定してください")
		}
		filter.DueAfter = &t
	}

	return filter, nil
}

// parseDueDate は期日のワイヤーフォーマットをtime.Timeに変換する。
func parseDueDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dueDateLayout, *raw)
	if err != nil {
		return nil, model.NewValidationError("期日はYYYY-MM-DD形式で指定してください")
	}
	return &t, nil
}
