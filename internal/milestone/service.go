// Package milestone はプロジェクトのマイルストーン管理を提供する。
// 参照・変更はいずれも所属プロジェクトの編集権限で判定する。
package milestone

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/projectboard/internal/model"
	"github.com/hitoshi/projectboard/internal/repository"
)

// EditAccessChecker はプロジェクトの編集権限を判定する。
type EditAccessChecker interface {
	HasEditAccess(ctx context.Context, projectID, userID string) (bool, error)
}

// Input は作成・更新で受け付ける検証済みの値。
// 更新時、AssignedTo/Completedがnilなら既存の値を保持する。
// AssignedToが空文字の場合は担当者を解除する。
type Input struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	AssignedTo  *string
	Completed   *bool
}

// Service はマイルストーン管理のサービス層。
type Service struct {
	milestones repository.MilestoneRepository
	access     EditAccessChecker
	now        func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(milestones repository.MilestoneRepository, access EditAccessChecker) *Service {
	return &Service{
		milestones: milestones,
		access:     access,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Get はマイルストーンを返す。存在しない場合とメンバーでない場合はnilを返す。
func (s *Service) Get(ctx context.Context, id, userID string) (*model.Milestone, error) {
	m, err := s.milestones.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("マイルストーンの取得に失敗しました: %w", err)
	}
	if m == nil {
		return nil, nil
	}

	ok, err := s.access.HasEditAccess(ctx, m.ProjectID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return m, nil
}

// List はプロジェクトのマイルストーンを返す。メンバーでない場合は空を返す。
func (s *Service) List(ctx context.Context, projectID, userID string) ([]*model.Milestone, error) {
	ok, err := s.access.HasEditAccess(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	list, err := s.milestones.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("マイルストーン一覧の取得に失敗しました: %w", err)
	}
	return list, nil
}

// Create はプロジェクトにマイルストーンを追加する。
func (s *Service) Create(ctx context.Context, projectID, userID string, in Input) (*model.Milestone, error) {
	if err := s.requireEditAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}

	now := s.now()
	m := &model.Milestone{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Name:        in.Name,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		AssignedTo:  nonEmpty(in.AssignedTo),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Completed != nil {
		m.Completed = *in.Completed
	}

	if err := s.milestones.Create(ctx, m); err != nil {
		return nil, model.NewStorageError("create milestone", err)
	}
	return m, nil
}

// Update はマイルストーンを更新する。存在しない場合はnotfoundを返す。
func (s *Service) Update(ctx context.Context, id, userID string, in Input) (*model.Milestone, error) {
	if _, err := s.authorize(ctx, id, userID); err != nil {
		return nil, err
	}

	updated, err := s.milestones.Update(ctx, id, model.MilestonePatch{
		Name:        in.Name,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		AssignedTo:  in.AssignedTo,
		Completed:   in.Completed,
	})
	if err != nil {
		return nil, fmt.Errorf("マイルストーンの更新に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, notFound(id)
	}
	return updated, nil
}

// Delete はマイルストーンを削除する。存在しない場合はnotfoundを返す。
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.authorize(ctx, id, userID); err != nil {
		return err
	}

	deleted, err := s.milestones.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("マイルストーンの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewStorageError("delete milestone", nil)
	}
	return nil
}

// authorize はマイルストーンを取得し、所属プロジェクトの編集権限を確認する。
func (s *Service) authorize(ctx context.Context, id, userID string) (*model.Milestone, error) {
	m, err := s.milestones.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("マイルストーンの取得に失敗しました: %w", err)
	}
	if m == nil {
		return nil, notFound(id)
	}
	if err := s.requireEditAccess(ctx, m.ProjectID, userID); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) requireEditAccess(ctx context.Context, projectID, userID string) error {
	ok, err := s.access.HasEditAccess(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewDomainError(model.TagNoAccess, fmt.Errorf("user %s cannot edit project %s", userID, projectID))
	}
	return nil
}

func notFound(id string) error {
	return model.NewDomainError(model.TagNotFound, fmt.Errorf("milestone %s", id))
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
