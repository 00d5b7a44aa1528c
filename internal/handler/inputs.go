package handler

import (
	"github.com/hitoshi/projectboard/internal/model"
	"github.com/hitoshi/projectboard/internal/validate"
)

// ProjectInput はプロジェクト作成・更新のリクエストボディ。
// descriptionは空文字を許すが省略は許さない。
type ProjectInput struct {
	Title       string        `json:"title" mod:"trim,nfc" validate:"required,min=3"`
	Description *string       `json:"description" mod:"trim,sanitize" validate:"required"`
	StartDate   validate.Date `json:"startDate" validate:"required"`
	EndDate     validate.Date `json:"endDate" validate:"required"`
}

// MemberEntry はメンバー一括更新の1エントリ。
type MemberEntry struct {
	UserID       string `json:"userId" mod:"trim" validate:"min=1"`
	AddAction    *bool  `json:"addAction" validate:"required"`
	DeleteAction *bool  `json:"deleteAction" validate:"required"`
}

// MembersInput はメンバー一括更新のリクエストボディ。
type MembersInput struct {
	Users []MemberEntry `json:"users" validate:"required,dive"`
}

// Changes はエントリを配列順のMembershipChangeに変換する。
func (in *MembersInput) Changes() []model.MembershipChange {
	changes := make([]model.MembershipChange, len(in.Users))
	for i, u := range in.Users {
		changes[i] = model.MembershipChange{
			UserID:       u.UserID,
			AddAction:    *u.AddAction,
			DeleteAction: *u.DeleteAction,
		}
	}
	return changes
}

// MilestoneInput はマイルストーン作成・更新のリクエストボディ。
type MilestoneInput struct {
	Name        string        `json:"name" mod:"trim,nfc" validate:"required,min=3"`
	Description *string       `json:"description" mod:"trim,sanitize" validate:"required"`
	StartDate   validate.Date `json:"startDate" validate:"required"`
	EndDate     validate.Date `json:"endDate" validate:"required"`
	AssignedTo  *string       `json:"assignedTo" mod:"trim"`
	Completed   *bool         `json:"completed"`
}

// ProjectParams はプロジェクトIDを含むパスパラメータ。
type ProjectParams struct {
	ProjectID string `json:"projectId" validate:"required,uuid4_rfc4122"`
}

// MilestoneParams はマイルストーンIDを含むパスパラメータ。
type MilestoneParams struct {
	MilestoneID string `json:"milestoneId" validate:"required,uuid4_rfc4122"`
}

// スキーマはルート登録時に1度だけ生成し、全リクエストで共有する。
var (
	projectInputSchema    = validate.New[ProjectInput]()
	membersInputSchema    = validate.New[MembersInput]()
	milestoneInputSchema  = validate.New[MilestoneInput]()
	projectParamsSchema   = validate.New[ProjectParams]()
	milestoneParamsSchema = validate.New[MilestoneParams]()
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
