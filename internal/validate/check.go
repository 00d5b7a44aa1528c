package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// engine は全スキーマで共有する制約チェッカー。validator.Validateは並行利用可能。
var engine = newEngine()

func newEngine() *validator.Validate {
	v := validator.New()

	// 違反パスをGoのフィールド名ではなくJSON名で表す
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// 未設定のDateはnilとして扱い、requiredで検出できるようにする
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(Date)
		if !ok || d.IsZero() {
			return nil
		}
		return d.Time()
	}, Date{})

	return v
}

// check は制約チェックを行い、違反をフィールド宣言順で返す。
func check(value any) []Violation {
	err := engine.Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Violation{{Path: "", Message: err.Error()}}
	}

	violations := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, Violation{
			Path:    fieldPath(fe.Namespace()),
			Message: constraintMessage(fe),
		})
	}
	return violations
}

// fieldPath はルート構造体名を除いたパスを返す（"ProjectInput.users[0].userId" → "users[0].userId"）。
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func constraintMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must " + sizeMessage(fe.Kind(), "at least", fe.Param())
	case "max":
		return "must " + sizeMessage(fe.Kind(), "at most", fe.Param())
	case "len":
		return "must " + sizeMessage(fe.Kind(), "exactly", fe.Param())
	case "uuid4", "uuid4_rfc4122":
		return "must be a valid UUIDv4"
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gtefield":
		return fmt.Sprintf("must not be before %s", fe.Param())
	default:
		return fmt.Sprintf("failed on %q", fe.Tag())
	}
}

func sizeMessage(kind reflect.Kind, bound, param string) string {
	switch kind {
	case reflect.String:
		return fmt.Sprintf("contain %s %s character(s)", bound, param)
	case reflect.Slice, reflect.Array, reflect.Map:
		return fmt.Sprintf("contain %s %s item(s)", bound, param)
	default:
		return fmt.Sprintf("be %s %s", bound, param)
	}
}
