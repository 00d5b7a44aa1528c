package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/projectboard/internal/middleware"
	"github.com/hitoshi/projectboard/internal/milestone"
	"github.com/hitoshi/projectboard/internal/model"
	"github.com/hitoshi/projectboard/internal/pipeline"
)

// MilestoneService はマイルストーンハンドラーが必要とするサービスインターフェース。
type MilestoneService interface {
	Get(ctx context.Context, id, userID string) (*model.Milestone, error)
	List(ctx context.Context, projectID, userID string) ([]*model.Milestone, error)
	Create(ctx context.Context, projectID, userID string, in milestone.Input) (*model.Milestone, error)
	Update(ctx context.Context, id, userID string, in milestone.Input) (*model.Milestone, error)
	Delete(ctx context.Context, id, userID string) error
}

// MilestoneHandler はマイルストーン管理のHTTPハンドラー。
type MilestoneHandler struct {
	service MilestoneService
}

// NewMilestoneHandler はMilestoneHandlerを生成する。
func NewMilestoneHandler(service MilestoneService) *MilestoneHandler {
	return &MilestoneHandler{service: service}
}

// List はプロジェクトのマイルストーン一覧を返す。
// GET /project/{projectId}/milestones
func (h *MilestoneHandler) List(w http.ResponseWriter, r *pipeline.Request[pipeline.None, pipeline.None]) error {
	list, err := h.service.List(r.HTTP.Context(), r.Param("projectId"), r.UserID())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		middleware.WriteJSON(w, http.StatusNoContent, nil)
		return nil
	}
	middleware.WriteJSON(w, http.StatusOK, list)
	return nil
}

// Create はプロジェクトにマイルストーンを追加する。
// POST /project/{projectId}/milestones
func (h *MilestoneHandler) Create(w http.ResponseWriter, r *pipeline.Request[MilestoneInput, pipeline.None]) error {
	m, err := h.service.Create(r.HTTP.Context(), r.Param("projectId"), r.UserID(), milestoneInput(r.Body))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusCreated, m)
	return nil
}

// Get はマイルストーンを返す。見えない場合は204。
// GET /milestones/{milestoneId}
func (h *MilestoneHandler) Get(w http.ResponseWriter, r *pipeline.Request[pipeline.None, pipeline.None]) error {
	m, err := h.service.Get(r.HTTP.Context(), r.Param("milestoneId"), r.UserID())
	if err != nil {
		return err
	}
	if m == nil {
		middleware.WriteJSON(w, http.StatusNoContent, nil)
		return nil
	}
	middleware.WriteJSON(w, http.StatusOK, m)
	return nil
}

// Update はマイルストーンを更新する。
// PUT /milestones/{milestoneId}
func (h *MilestoneHandler) Update(w http.ResponseWriter, r *pipeline.Request[MilestoneInput, pipeline.None]) error {
	m, err := h.service.Update(r.HTTP.Context(), r.Param("milestoneId"), r.UserID(), milestoneInput(r.Body))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, m)
	return nil
}

// Delete はマイルストーンを削除する。
// DELETE /milestones/{milestoneId}
func (h *MilestoneHandler) Delete(w http.ResponseWriter, r *pipeline.Request[pipeline.None, pipeline.None]) error {
	if err := h.service.Delete(r.HTTP.Context(), r.Param("milestoneId"), r.UserID()); err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: "Milestone deleted"})
	return nil
}

func milestoneInput(in *MilestoneInput) milestone.Input {
	out := milestone.Input{
		Name:        in.Name,
		Description: deref(in.Description),
		StartDate:   in.StartDate.Time(),
		EndDate:     in.EndDate.Time(),
		AssignedTo:  in.AssignedTo,
		Completed:   in.Completed,
	}
	return out
}
