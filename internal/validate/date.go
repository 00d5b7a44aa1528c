package validate

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// dateLayouts は日付として受け付ける文字列フォーマット。先頭から順に試す。
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var dateType = reflect.TypeOf(Date{})

// Date は日付らしい文字列から変換された日時。
// JSONボディとクエリ/パスパラメータのどちらからでも同じ規則で変換する。
type Date struct {
	t time.Time
}

// NewDate はtime.TimeからDateを生成する。
func NewDate(t time.Time) Date {
	return Date{t: t}
}

// ParseDate は受け付けるいずれかのフォーマットで文字列を解析する。
func ParseDate(s string) (Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t: t.UTC()}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

// Time は変換後の時刻を返す。
func (d Date) Time() time.Time {
	return d.t
}

// IsZero は値が設定されていない場合にtrueを返す。
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// UnmarshalJSON は文字列の日付を解析する。
// 失敗時は*json.UnmarshalTypeErrorを返し、デコーダにフィールドパスを補完させる。
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &json.UnmarshalTypeError{Value: "non-string", Type: dateType}
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return &json.UnmarshalTypeError{Value: "string", Type: dateType}
	}
	*d = parsed
	return nil
}

// UnmarshalText はフォームデコーダ（パス/クエリ）向けの変換。
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON はRFC 3339形式で出力する。
func (d Date) MarshalJSON() ([]byte, error) {
	if d.t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.t.Format(time.RFC3339))
}
