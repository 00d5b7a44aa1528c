package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/projectboard/internal/middleware"
	"github.com/hitoshi/projectboard/internal/model"
	"github.com/hitoshi/projectboard/internal/pipeline"
	"github.com/hitoshi/projectboard/internal/project"
)

// ProjectService はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectService interface {
	List(ctx context.Context, userID string) ([]*model.Project, error)
	Get(ctx context.Context, projectID, userID string) (*model.Project, error)
	Create(ctx context.Context, userID string, in project.Input) (*model.Project, error)
	Update(ctx context.Context, projectID, userID string, in project.Input) (*model.Project, error)
	Delete(ctx context.Context, projectID, userID string) error
	UpdateMembers(ctx context.Context, projectID, userID string, changes []model.MembershipChange) error
}

// messageResponse は削除・一括更新の完了レスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

// ProjectHandler はプロジェクト管理のHTTPハンドラー。
// 各メソッドはゲート通過後に呼ばれるため、入力は検証済みでセッションは必ず存在する。
type ProjectHandler struct {
	service ProjectService
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// List はメンバーであるプロジェクトの一覧を返す。
// GET /project
func (h *ProjectHandler) List(w http.ResponseWriter, r *pipeline.Request[pipeline.None, pipeline.None]) error {
	projects, err := h.service.List(r.HTTP.Context(), r.UserID())
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		middleware.WriteJSON(w, http.StatusNoContent, nil)
		return nil
	}
	middleware.WriteJSON(w, http.StatusOK, projects)
	return nil
}

// Get はプロジェクトを返す。見えない場合は204。
// GET /project/{projectId}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *pipeline.Request[pipeline.None, pipeline.None]) error {
	p, err := h.service.Get(r.HTTP.Context(), r.Param("projectId"), r.UserID())
	if err != nil {
		return err
	}
	if p == nil {
		middleware.WriteJSON(w, http.StatusNoContent, nil)
		return nil
	}
	middleware.WriteJSON(w, http.StatusOK, p)
	return nil
}

// Create はプロジェクトを作成する。
// POST /project
func (h *ProjectHandler) Create(w http.ResponseWriter, r *pipeline.Request[ProjectInput, pipeline.None]) error {
	p, err := h.service.Create(r.HTTP.Context(), r.UserID(), projectInput(r.Body))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusCreated, p)
	return nil
}

// Update はプロジェクトを更新する。
// PUT /project/{projectId}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *pipeline.Request[ProjectInput, pipeline.None]) error {
	p, err := h.service.Update(r.HTTP.Context(), r.Param("projectId"), r.UserID(), projectInput(r.Body))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, p)
	return nil
}

// Delete はプロジェクトを削除する。
// DELETE /project/{projectId}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *pipeline.Request[pipeline.None, pipeline.None]) error {
	if err := h.service.Delete(r.HTTP.Context(), r.Param("projectId"), r.UserID()); err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: "Project deleted"})
	return nil
}

// UpdateMembers はメンバーの追加・削除を適用する。
// POST /project/{projectId}/users
func (h *ProjectHandler) UpdateMembers(w http.ResponseWriter, r *pipeline.Request[MembersInput, pipeline.None]) error {
	if err := h.service.UpdateMembers(r.HTTP.Context(), r.Param("projectId"), r.UserID(), r.Body.Changes()); err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: "Users for project updated"})
	return nil
}

func projectInput(in *ProjectInput) project.Input {
	return project.Input{
		Title:       in.Title,
		Description: deref(in.Description),
		StartDate:   in.StartDate.Time(),
		EndDate:     in.EndDate.Time(),
	}
}
