package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/projectboard/internal/model"
)

const projectColumns = `p.id, p.title, p.description, p.start_date, p.end_date, p.created_by, p.created_at, p.updated_at`

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*model.Project, error) {
	p := &model.Project{}
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.StartDate, &p.EndDate, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListByMember はユーザーがメンバーであるプロジェクトを返す。
func (r *PostgresProjectRepo) ListByMember(ctx context.Context, userID string) ([]*model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+`
		 FROM projects p
		 JOIN project_users pu ON pu.project_id = p.id
		 WHERE pu.user_id = $1
		 ORDER BY p.created_at DESC, p.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

// FindByIDForMember はユーザーがメンバーである場合のみプロジェクトを返す。
func (r *PostgresProjectRepo) FindByIDForMember(ctx context.Context, projectID, userID string) (*model.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+`
		 FROM projects p
		 JOIN project_users pu ON pu.project_id = p.id
		 WHERE p.id = $1 AND pu.user_id = $2`,
		projectID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return p, nil
}

// CreateWithOwner はプロジェクトと作成者のメンバーシップを同一トランザクションで作成する。
func (r *PostgresProjectRepo) CreateWithOwner(ctx context.Context, project *model.Project, owner *model.ProjectMembership) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO projects (id, title, description, start_date, end_date, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		project.ID, project.Title, project.Description, project.StartDate, project.EndDate,
		project.CreatedBy, project.CreatedAt, project.UpdatedAt,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO project_users (id, project_id, user_id) VALUES ($1, $2, $3)`,
		owner.ID, owner.ProjectID, owner.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Update はタイトル・説明・期間を更新する。対象が存在しない場合はnilを返す。
func (r *PostgresProjectRepo) Update(ctx context.Context, project *model.Project) (*model.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx,
		`UPDATE projects p
		 SET title = $2, description = $3, start_date = $4, end_date = $5, updated_at = $6
		 WHERE p.id = $1
		 RETURNING `+projectColumns,
		project.ID, project.Title, project.Description, project.StartDate, project.EndDate, project.UpdatedAt,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return p, nil
}

// Delete はプロジェクトを削除する。
func (r *PostgresProjectRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete project: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)
