package model

// Session は外部IdPが発行したセッションを1リクエスト分だけ保持する。
// このサービスでは永続化しない。UserIDは常に空でない。
type Session struct {
	SessionID     string `json:"sessionId"`
	SessionToken  string `json:"-"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	UserEmail     string `json:"userEmail"`
	EmailVerified bool   `json:"emailVerified"`
}
