// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorTag はドメインエラーの分類を表す短い識別子。
// HTTPステータスへの変換はmiddleware.TranslateErrorが一括して行う。
type ErrorTag string

// 定義済みエラータグ
const (
	TagNotFound         ErrorTag = "notfound"
	TagNotAuthenticated ErrorTag = "notAuthenticated"
	TagNoAccess         ErrorTag = "noAccess"
	TagValidator        ErrorTag = "validator"
	// TagStorage は書き込み結果が空だった場合など、ストレージ起因の失敗を表す。
	// 変換表に含まれないため500として扱われる。
	TagStorage ErrorTag = "dbError"
)

// DomainError はタグ付きのドメインエラー。
// Detailはクライアントへ返してよい補足情報（バリデーション詳細など）、
// Errは原因となった内部エラーでログにのみ出力する。
type DomainError struct {
	Tag    ErrorTag
	Detail any
	Err    error
}

// Error はerrorインターフェースを実装する。
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %v", e.Tag, e.Err)
	}
	return string(e.Tag)
}

// Unwrap は原因エラーを返す。
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is は同じタグを持つDomainErrorと一致する。
// errors.Is(err, model.ErrNoAccess) のようにタグだけで判定できる。
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Tag == e.Tag
}

// タグ判定用の番兵エラー
var (
	ErrNotFound         = &DomainError{Tag: TagNotFound}
	ErrNotAuthenticated = &DomainError{Tag: TagNotAuthenticated}
	ErrNoAccess         = &DomainError{Tag: TagNoAccess}
)

// NewDomainError は原因エラー付きのDomainErrorを生成する。
func NewDomainError(tag ErrorTag, err error) *DomainError {
	return &DomainError{Tag: tag, Err: err}
}

// NewValidationError はクライアントに返す詳細付きのバリデーションエラーを生成する。
func NewValidationError(detail any) *DomainError {
	return &DomainError{Tag: TagValidator, Detail: detail}
}

// NewStorageError は書き込み結果が得られなかった場合のエラーを生成する。
func NewStorageError(op string, err error) *DomainError {
	if err == nil {
		err = fmt.Errorf("%s returned no row", op)
	} else {
		err = fmt.Errorf("%s: %w", op, err)
	}
	return &DomainError{Tag: TagStorage, Err: err}
}

// TagOf はエラーチェーンからタグを取り出す。DomainErrorを含まない場合は空文字を返す。
func TagOf(err error) ErrorTag {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Tag
	}
	return ""
}
