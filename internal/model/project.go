package model

import "time"

// Project はメンバーで共有するプロジェクトを表す。
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProjectMembership はプロジェクトとユーザーの関係を表す。
// 行が存在すること自体が編集権限であり、ロールは持たない。
type ProjectMembership struct {
	ID        string
	ProjectID string
	UserID    string
}

// MembershipChange はメンバー一括更新の1エントリ。
// AddActionとDeleteActionが両方trueの場合は追加を優先する。
type MembershipChange struct {
	UserID       string
	AddAction    bool
	DeleteAction bool
}
