package model

import "time"

// Milestone はプロジェクトに属するマイルストーン。
type Milestone struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	AssignedTo  *string   `json:"assignedTo"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MilestonePatch はマイルストーン更新で書き込む値。
// AssignedTo/Completedがnilの場合は既存の値を変更しない。AssignedToが空文字なら担当者を解除する。
type MilestonePatch struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	AssignedTo  *string
	Completed   *bool
}
