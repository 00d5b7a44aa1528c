// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"

	"github.com/hitoshi/projectboard/internal/model"
)

// ProjectRepository はプロジェクトの永続化インターフェース。
type ProjectRepository interface {
	// ListByMember はユーザーがメンバーであるプロジェクトを作成日時の新しい順に返す。
	ListByMember(ctx context.Context, userID string) ([]*model.Project, error)

	// FindByIDForMember はユーザーがメンバーである場合のみプロジェクトを返す。
	// 存在しない、またはメンバーでない場合はnilを返す。
	FindByIDForMember(ctx context.Context, projectID, userID string) (*model.Project, error)

	// CreateWithOwner はプロジェクトと作成者のメンバーシップを同一トランザクションで作成する。
	CreateWithOwner(ctx context.Context, project *model.Project, owner *model.ProjectMembership) error

	// Update はタイトル・説明・期間を更新し、更新後の行を返す。
	// 対象が存在しない場合はnilを返す。
	Update(ctx context.Context, project *model.Project) (*model.Project, error)

	// Delete はプロジェクトを削除する。メンバーシップとマイルストーンはCASCADE削除される。
	// 削除した行がない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// MembershipRepository はプロジェクトメンバーシップの永続化インターフェース。
type MembershipRepository interface {
	// CountMembership は (projectID, userID) に一致するメンバーシップ行の数を返す。
	CountMembership(ctx context.Context, projectID, userID string) (int, error)

	// ApplyChanges は変更を配列順に同一トランザクションで適用する。
	// いずれかが失敗した場合はすべてロールバックする。
	ApplyChanges(ctx context.Context, projectID string, changes []model.MembershipChange) error
}

// MilestoneRepository はマイルストーンの永続化インターフェース。
type MilestoneRepository interface {
	// FindByID は指定IDのマイルストーンを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Milestone, error)

	// ListByProject はプロジェクトのマイルストーンを開始日順に返す。
	ListByProject(ctx context.Context, projectID string) ([]*model.Milestone, error)

	// Create はマイルストーンを作成する。
	Create(ctx context.Context, milestone *model.Milestone) error

	// Update はマイルストーンを更新し、更新後の行を返す。対象が存在しない場合はnilを返す。
	Update(ctx context.Context, id string, patch model.MilestonePatch) (*model.Milestone, error)

	// Delete はマイルストーンを削除する。削除した行がない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// IdentityRepository は外部IdPが所有するセッション情報の読み取りインターフェース。
type IdentityRepository interface {
	// FindSessionByToken は有効期限内のセッションをユーザー情報付きで返す。
	// 見つからない場合はnilを返す。
	FindSessionByToken(ctx context.Context, token string) (*model.Session, error)
}
