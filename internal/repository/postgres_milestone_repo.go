package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/projectboard/internal/model"
)

const milestoneColumns = `id, project_id, name, description, start_date, end_date, assigned_to, completed, created_at, updated_at`

// PostgresMilestoneRepo はPostgreSQLを使用したマイルストーンリポジトリ。
type PostgresMilestoneRepo struct {
	db *sql.DB
}

// NewPostgresMilestoneRepo はPostgresMilestoneRepoを生成する。
func NewPostgresMilestoneRepo(db *sql.DB) *PostgresMilestoneRepo {
	return &PostgresMilestoneRepo{db: db}
}

func scanMilestone(row rowScanner) (*model.Milestone, error) {
	m := &model.Milestone{}
	var assignedTo sql.NullString
	err := row.Scan(&m.ID, &m.ProjectID, &m.Name, &m.Description, &m.StartDate, &m.EndDate,
		&assignedTo, &m.Completed, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if assignedTo.Valid {
		m.AssignedTo = &assignedTo.String
	}
	return m, nil
}

// FindByID は指定IDのマイルストーンを取得する。見つからない場合はnilを返す。
func (r *PostgresMilestoneRepo) FindByID(ctx context.Context, id string) (*model.Milestone, error) {
	m, err := scanMilestone(r.db.QueryRowContext(ctx,
		`SELECT `+milestoneColumns+` FROM project_milestones WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find milestone: %w", err)
	}
	return m, nil
}

// ListByProject はプロジェクトのマイルストーンを開始日順に返す。
func (r *PostgresMilestoneRepo) ListByProject(ctx context.Context, projectID string) ([]*model.Milestone, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+milestoneColumns+`
		 FROM project_milestones
		 WHERE project_id = $1
		 ORDER BY start_date, created_at, id`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	defer rows.Close()

	var milestones []*model.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		milestones = append(milestones, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate milestones: %w", err)
	}

	return milestones, nil
}

// Create はマイルストーンを作成する。
func (r *PostgresMilestoneRepo) Create(ctx context.Context, m *model.Milestone) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO project_milestones (`+milestoneColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.ProjectID, m.Name, m.Description, m.StartDate, m.EndDate,
		m.AssignedTo, m.Completed, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert milestone: %w", err)
	}
	return nil
}

// Update はマイルストーンを更新する。patchのAssignedTo/Completedがnilの列は変更しない。
// AssignedToが空文字の場合はNULLに戻す。
func (r *PostgresMilestoneRepo) Update(ctx context.Context, id string, patch model.MilestonePatch) (*model.Milestone, error) {
	m, err := scanMilestone(r.db.QueryRowContext(ctx,
		`UPDATE project_milestones
		 SET name = $2, description = $3, start_date = $4, end_date = $5,
		     assigned_to = CASE WHEN $6::text IS NULL THEN assigned_to ELSE NULLIF($6::text, '') END,
		     completed = COALESCE($7, completed),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+milestoneColumns,
		id, patch.Name, patch.Description, patch.StartDate, patch.EndDate, patch.AssignedTo, patch.Completed,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update milestone: %w", err)
	}
	return m, nil
}

// Delete はマイルストーンを削除する。
func (r *PostgresMilestoneRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM project_milestones WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete milestone: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// compile-time interface check
var _ MilestoneRepository = (*PostgresMilestoneRepo)(nil)
