// Package security はユーザー入力の無害化を提供する。
//
// プロジェクトやマイルストーンの説明文はプレーンテキストとして扱い、
// bluemondayのStrictPolicyでマークアップをすべて除去する。
package security

import (
	"html"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer は説明文などの自由記述テキストを無害化する。
type Sanitizer interface {
	// Sanitize はタグを除去したプレーンテキストを返す。
	Sanitize(raw string) string
}

// textSanitizer はSanitizerのbluemonday実装。
// Policyはスレッドセーフなので全リクエストで共有する。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer は説明文向けのSanitizerを生成する。
// script, styleは中身ごと除去し、その他のタグは中のテキストのみ残す。
func NewTextSanitizer() Sanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はマークアップを除去する。
// StrictPolicyはテキストをHTMLエスケープして返すため、JSONで返す値としてエスケープを戻す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return html.UnescapeString(s.policy.Sanitize(raw))
}

var (
	defaultOnce      sync.Once
	defaultSanitizer Sanitizer
)

// Default はプロセス全体で共有するSanitizerを返す。
func Default() Sanitizer {
	defaultOnce.Do(func() {
		defaultSanitizer = NewTextSanitizer()
	})
	return defaultSanitizer
}
