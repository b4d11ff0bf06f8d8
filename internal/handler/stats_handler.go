package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
)

// StatsServiceInterface は統計ハンドラーが必要とするサービスインターフェース。
type StatsServiceInterface interface {
	GetTaskStatistics(ctx context.Context, userID string) (*model.TaskStatistics, error)
	GetCategoryStatistics(ctx context.Context, userID string) ([]*model.CategoryStatistics, error)
}

// StatsHandler はダッシュボード統計のHTTPハンドラー。
type StatsHandler struct {
	service StatsServiceInterface
}

// NewStatsHandler はStatsHandlerを生成する。
func NewStatsHandler(service StatsServiceInterface) *StatsHandler {
	return &StatsHandler{
		service: service,
	}
}

// GetTaskStatistics はタスク件数統計を返す。
// GET /api/stats/tasks
func (h *StatsHandler) GetTaskStatistics(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	stats, err := h.service.GetTaskStatistics(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total":       stats.Total,
		"pending":     stats.Pending,
		"in_progress": stats.InProgress,
		"completed":   stats.Completed,
		"overdue":     stats.Overdue,
	})
}

// GetCategoryStatistics はカテゴリごとのタスク件数統計を返す。
// GET /api/stats/categories
func (h *StatsHandler) GetCategoryStatistics(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	stats, err := h.service.GetCategoryStatistics(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	type categoryStatsResponse struct {
		CategoryID     string `json:"category_id"`
		Name           string `json:"name"`
		Color          string `json:"color"`
		TaskCount      int    `json:"task_count"`
		CompletedCount int    `json:"completed_count"`
		PendingCount   int    `json:"pending_count"`
	}

	resp := make([]categoryStatsResponse, 0, len(stats))
	for _, s := range stats {
		resp = append(resp, categoryStatsResponse{
			CategoryID:     s.CategoryID,
			Name:           s.Name,
			Color:          s.Color,
			TaskCount:      s.TaskCount,
			CompletedCount: s.CompletedCount,
			PendingCount:   s.PendingCount,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"categories": resp,
	})
}
