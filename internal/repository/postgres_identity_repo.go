package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/projectboard/internal/model"
)

// PostgresIdentityRepo は外部IdPと共有するsessions/usersテーブルを読み取る。
// 書き込みは行わない。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindSessionByToken はトークンに一致する有効期限内のセッションを返す。
// 見つからない場合、または期限切れの場合はnilを返す。
func (r *PostgresIdentityRepo) FindSessionByToken(ctx context.Context, token string) (*model.Session, error) {
	s := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT s.id, s.token, u.id, u.name, u.email, u.email_verified
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.token = $1 AND s.expires_at > now()`,
		token,
	).Scan(&s.SessionID, &s.SessionToken, &s.UserID, &s.UserName, &s.UserEmail, &s.EmailVerified)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return s, nil
}

// compile-time interface check
var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
