package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/projectboard/internal/model"
)

// PostgresMembershipRepo はPostgreSQLを使用したメンバーシップリポジトリ。
type PostgresMembershipRepo struct {
	db *sql.DB
}

// NewPostgresMembershipRepo はPostgresMembershipRepoを生成する。
func NewPostgresMembershipRepo(db *sql.DB) *PostgresMembershipRepo {
	return &PostgresMembershipRepo{db: db}
}

// CountMembership は (projectID, userID) に一致するメンバーシップ行の数を返す。
func (r *PostgresMembershipRepo) CountMembership(ctx context.Context, projectID, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM project_users WHERE project_id = $1 AND user_id = $2`,
		projectID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count membership: %w", err)
	}
	return count, nil
}

// ApplyChanges はメンバーの追加・削除を配列順に1つのトランザクションで適用する。
// addActionとdeleteActionが両方trueのエントリは追加として扱う。
// 既存メンバーの追加は何もしない。
func (r *PostgresMembershipRepo) ApplyChanges(ctx context.Context, projectID string, changes []model.MembershipChange) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, c := range changes {
		switch {
		case c.AddAction:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO project_users (id, project_id, user_id)
				 VALUES ($1, $2, $3)
				 ON CONFLICT (project_id, user_id) DO NOTHING`,
				uuid.New().String(), projectID, c.UserID,
			)
		case c.DeleteAction:
			_, err = tx.ExecContext(ctx,
				`DELETE FROM project_users WHERE project_id = $1 AND user_id = $2`,
				projectID, c.UserID,
			)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to apply membership change %d for user %s: %w", i, c.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ MembershipRepository = (*PostgresMembershipRepo)(nil)
