// Package access はプロジェクトメンバーシップに基づく認可判定を提供する。
package access

import (
	"context"
	"fmt"
)

// MembershipCounter はメンバーシップ行の件数を数える。
// repository.MembershipRepositoryの部分集合として定義する。
type MembershipCounter interface {
	CountMembership(ctx context.Context, projectID, userID string) (int, error)
}

// Policy はプロジェクトの編集権限を判定する。
type Policy struct {
	memberships MembershipCounter
}

// NewPolicy はPolicyを生成する。
func NewPolicy(memberships MembershipCounter) *Policy {
	return &Policy{memberships: memberships}
}

// HasEditAccess はユーザーがプロジェクトの編集権限を持つかを返す。
// (projectID, userID) に一致するメンバーシップがちょうど1件の場合のみtrue。
// ストレージエラー時は権限を与えずエラーを返す。
func (p *Policy) HasEditAccess(ctx context.Context, projectID, userID string) (bool, error) {
	if projectID == "" || userID == "" {
		return false, nil
	}

	n, err := p.memberships.CountMembership(ctx, projectID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check edit access: %w", err)
	}
	return n == 1, nil
}
