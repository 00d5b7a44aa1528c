// Package validate はリクエスト入力（パスパラメータ、クエリ、ボディ）の
// 宣言的スキーマ検証を提供する。
//
// スキーマは構造体Tのタグで宣言する。
//
//	json:"title"                 フィールド名（違反パスにも使う）
//	mod:"trim,nfc,sanitize"      検証前に適用する正規化
//	validate:"required,min=3"    go-playground/validatorの制約
//
// 1つの汎用エンジンが デコード → 正規化 → 制約チェック の順に評価し、
// 全体として成功するか、違反の一覧を返す。部分的な成功はない。
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/gofiber/schema"
)

// Violation は1件の検証違反。Pathはフィールドのパス（例: "users[0].userId"）。
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// String は "path message" 形式の文字列を返す。
func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + " " + v.Message
}

// Result は検証結果。OKがtrueの場合のみValueが有効で、Errorsは空。
type Result[T any] struct {
	OK     bool
	Value  T
	Errors []Violation
}

// Checker は型を消去した検証インターフェース。
// パスパラメータのように検証のみで値を置き換えない入力に使う。
type Checker interface {
	Check(raw any) []Violation
}

// Option はスキーマの構築オプション。
type Option func(*options)

type options struct {
	strict bool
}

// Strict は未知のフィールドを違反として扱う。
// 指定しない場合、未知のフィールドは無視される。
func Strict() Option {
	return func(o *options) {
		o.strict = true
	}
}

// Schema はTの構造体タグで宣言された入力スキーマ。
// ルート登録時に1度だけ生成し、以降は変更しない。並行利用可能。
type Schema[T any] struct {
	opts    options
	decoder *schema.Decoder
}

// New はスキーマを生成する。Tが構造体でない場合はpanicする（登録時のプログラミングエラー）。
func New[T any](opts ...Option) *Schema[T] {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("validate: schema type must be a struct, got %s", t))
	}

	s := &Schema[T]{}
	for _, opt := range opts {
		opt(&s.opts)
	}

	s.decoder = schema.NewDecoder()
	s.decoder.SetAliasTag("json")
	s.decoder.IgnoreUnknownKeys(!s.opts.strict)

	return s
}

// Validate は未型付けの入力を検証し、成功時は正規化済みの値を返す。
//
// rawとして受け付けるもの:
//   - []byte / json.RawMessage: JSONドキュメント（空はオブジェクト{}として扱う）
//   - url.Values / map[string][]string / map[string]string: パス・クエリパラメータ
//   - nil: 空オブジェクト
//   - その他（map[string]anyなど）: JSONに変換してから検証する
func (s *Schema[T]) Validate(raw any) Result[T] {
	var value T

	var violations []Violation
	switch in := raw.(type) {
	case nil:
		violations = s.decodeJSON(nil, &value)
	case []byte:
		violations = s.decodeJSON(in, &value)
	case json.RawMessage:
		violations = s.decodeJSON(in, &value)
	case url.Values:
		violations = s.decodeValues(in, &value)
	case map[string][]string:
		violations = s.decodeValues(in, &value)
	case map[string]string:
		values := make(map[string][]string, len(in))
		for k, v := range in {
			values[k] = []string{v}
		}
		violations = s.decodeValues(values, &value)
	default:
		data, err := json.Marshal(in)
		if err != nil {
			return Result[T]{Errors: []Violation{{Path: "", Message: "must be a JSON object"}}}
		}
		violations = s.decodeJSON(data, &value)
	}
	if len(violations) > 0 {
		return Result[T]{Errors: violations}
	}

	normalize(reflect.ValueOf(&value).Elem())

	if violations := check(&value); len(violations) > 0 {
		return Result[T]{Errors: violations}
	}

	return Result[T]{OK: true, Value: value}
}

// Check はCheckerを実装する。
func (s *Schema[T]) Check(raw any) []Violation {
	return s.Validate(raw).Errors
}

func (s *Schema[T]) decodeJSON(data []byte, dst *T) []Violation {
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if s.opts.strict {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(dst); err != nil {
		return []Violation{jsonViolation(err)}
	}
	// ドキュメントの後ろに値が続く入力は不正なJSONとして扱う
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return []Violation{{Path: "", Message: "malformed JSON"}}
	}
	return nil
}

func (s *Schema[T]) decodeValues(values map[string][]string, dst *T) []Violation {
	err := s.decoder.Decode(dst, values)
	if err == nil {
		return nil
	}

	var multi schema.MultiError
	if !errors.As(err, &multi) {
		return []Violation{{Path: "", Message: err.Error()}}
	}

	keys := make([]string, 0, len(multi))
	for k := range multi {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	violations := make([]Violation, 0, len(keys))
	for _, k := range keys {
		violations = append(violations, Violation{Path: k, Message: s.valueMessage(multi[k])})
	}
	return violations
}

func (s *Schema[T]) valueMessage(err error) string {
	var conv schema.ConversionError
	if errors.As(err, &conv) {
		if conv.Type == dateType {
			return "must be a valid date"
		}
		return "expected " + kindName(conv.Type)
	}
	if s.opts.strict {
		return "is not allowed"
	}
	return err.Error()
}

// jsonViolation はencoding/jsonのエラーを違反に変換する。
func jsonViolation(err error) Violation {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Type == dateType {
			return Violation{Path: typeErr.Field, Message: "must be a valid date"}
		}
		return Violation{Path: typeErr.Field, Message: "expected " + kindName(typeErr.Type)}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return Violation{Path: "", Message: "malformed JSON"}
	}

	// DisallowUnknownFieldsのエラーは型を持たないため文言から取り出す
	const unknownPrefix = "json: unknown field "
	if msg := err.Error(); strings.HasPrefix(msg, unknownPrefix) {
		return Violation{Path: strings.Trim(strings.TrimPrefix(msg, unknownPrefix), `"`), Message: "is not allowed"}
	}

	return Violation{Path: "", Message: "malformed JSON"}
}

func kindName(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Pointer:
		return kindName(t.Elem())
	default:
		return t.Kind().String()
	}
}
