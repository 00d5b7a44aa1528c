package security

import (
	"strings"
	"testing"
)

func TestSanitize_StripsMarkup(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"pタグはテキストのみ残る", "<p>リリース計画</p>", "リリース計画"},
		{"リストはテキストのみ残る", "<ul><li>設計</li><li>実装</li></ul>", "設計実装"},
		{"強調タグが除去される", "<strong>重要</strong> <em>注意</em>", "重要 注意"},
		{"リンクはテキストのみ残る", `<a href="https://example.com/roadmap">roadmap</a>`, "roadmap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_RemovesDangerousContent(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name       string
		input      string
		wantAbsent []string
	}{
		{"scriptタグ", `<p>ok</p><script>alert(1)</script>`, []string{"<script", "alert(1)"}},
		{"iframeタグ", `<iframe src="https://evil.example.com"></iframe>`, []string{"<iframe", "evil"}},
		{"onclick属性", `<p onclick="steal()">x</p>`, []string{"onclick", "steal"}},
		{"imgタグ", `<img src="https://example.com/a.png">`, []string{"<img"}},
		{"javascriptスキーム", `<a href="javascript:alert(1)">x</a>`, []string{"javascript:"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.input)
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Sanitize(%q) = %q, should not contain %q", tt.input, got, absent)
				}
			}
		})
	}
}

// TestSanitize_PlainTextUnchanged は記号を含むプレーンテキストがエスケープされずに残ることを検証する。
func TestSanitize_PlainTextUnchanged(t *testing.T) {
	s := NewTextSanitizer()

	for _, in := range []string{
		"",
		"v1",
		"初回リリースのマイルストーン",
		"R&D",
		"Tom's",
		"1 < 2",
		`Q&A for Tom's "launch" 1 < 2`,
	} {
		if got := s.Sanitize(in); got != in {
			t.Errorf("Sanitize(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	s := NewTextSanitizer()
	in := `<p>計画 <a href="https://example.com">詳細</a> R&D</p><script>x</script>`

	once := s.Sanitize(in)
	twice := s.Sanitize(once)
	if once != twice {
		t.Errorf("Sanitize is not idempotent: %q != %q", once, twice)
	}
}

func TestDefault_ReturnsSharedInstance(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() should return the same instance")
	}
}
