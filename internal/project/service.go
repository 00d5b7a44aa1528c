// Package project はプロジェクトとメンバー管理のドメインロジックを提供する。
package project

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/projectboard/internal/model"
	"github.com/hitoshi/projectboard/internal/repository"
)

// EditAccessChecker はプロジェクトの編集権限を判定する。access.Policyが実装する。
type EditAccessChecker interface {
	HasEditAccess(ctx context.Context, projectID, userID string) (bool, error)
}

// Input は作成・更新で受け付ける検証済みの値。
type Input struct {
	Title       string
	Description string
	StartDate   time.Time
	EndDate     time.Time
}

// Service はプロジェクト管理のサービス層。
// 一覧・取得はメンバーシップで絞り込み、更新系は編集権限を確認してから書き込む。
type Service struct {
	projects    repository.ProjectRepository
	memberships repository.MembershipRepository
	access      EditAccessChecker
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	projects repository.ProjectRepository,
	memberships repository.MembershipRepository,
	access EditAccessChecker,
) *Service {
	return &Service{
		projects:    projects,
		memberships: memberships,
		access:      access,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// List はユーザーがメンバーであるプロジェクトを返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Project, error) {
	projects, err := s.projects.ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	return projects, nil
}

// Get はユーザーがメンバーである場合のみプロジェクトを返す。
// 存在しない場合とメンバーでない場合は区別せずnilを返す。
func (s *Service) Get(ctx context.Context, projectID, userID string) (*model.Project, error) {
	p, err := s.projects.FindByIDForMember(ctx, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	return p, nil
}

// Create はプロジェクトを作成し、作成者をメンバーとして登録する。
func (s *Service) Create(ctx context.Context, userID string, in Input) (*model.Project, error) {
	now := s.now()
	p := &model.Project{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	owner := &model.ProjectMembership{
		ID:        uuid.New().String(),
		ProjectID: p.ID,
		UserID:    userID,
	}

	if err := s.projects.CreateWithOwner(ctx, p, owner); err != nil {
		return nil, model.NewStorageError("create project", err)
	}
	return p, nil
}

// Update は編集権限を確認してからプロジェクトを更新する。
func (s *Service) Update(ctx context.Context, projectID, userID string, in Input) (*model.Project, error) {
	if err := s.requireEditAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}

	updated, err := s.projects.Update(ctx, &model.Project{
		ID:          projectID,
		Title:       in.Title,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		UpdatedAt:   s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの更新に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewDomainError(model.TagNotFound, fmt.Errorf("project %s", projectID))
	}
	return updated, nil
}

// Delete は編集権限を確認してからプロジェクトを削除する。
func (s *Service) Delete(ctx context.Context, projectID, userID string) error {
	if err := s.requireEditAccess(ctx, projectID, userID); err != nil {
		return err
	}

	deleted, err := s.projects.Delete(ctx, projectID)
	if err != nil {
		return fmt.Errorf("プロジェクトの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewStorageError("delete project", nil)
	}
	return nil
}

// UpdateMembers は編集権限を確認してからメンバーの追加・削除を配列順に適用する。
func (s *Service) UpdateMembers(ctx context.Context, projectID, userID string, changes []model.MembershipChange) error {
	if err := s.requireEditAccess(ctx, projectID, userID); err != nil {
		return err
	}

	if err := s.memberships.ApplyChanges(ctx, projectID, changes); err != nil {
		return fmt.Errorf("メンバーの更新に失敗しました: %w", err)
	}
	return nil
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
