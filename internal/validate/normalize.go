package validate

import (
	"reflect"
	"strings"

	"github.com/hitoshi/projectboard/internal/security"
	"golang.org/x/text/unicode/norm"
)

// modifiers は mod タグで指定できる正規化の一覧。
var modifiers = map[string]func(string) string{
	"trim":     strings.TrimSpace,
	"nfc":      norm.NFC.String,
	"lower":    strings.ToLower,
	"sanitize": sanitize,
}

func sanitize(s string) string {
	return security.Default().Sanitize(s)
}

// normalize は構造体を再帰的に走査し、mod タグの正規化をタグ記載順に適用する。
// 未知の修飾子は無視する。
func normalize(v reflect.Value) {
	switch v.Kind() {
	case reflect.Pointer:
		if !v.IsNil() {
			normalize(v.Elem())
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			normalize(v.Index(i))
		}
	case reflect.Struct:
		if v.Type() == dateType {
			return
		}
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			fv := v.Field(i)
			if tag, ok := field.Tag.Lookup("mod"); ok {
				applyModifiers(fv, tag)
				continue
			}
			normalize(fv)
		}
	}
}

func applyModifiers(v reflect.Value, tag string) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.String || !v.CanSet() {
		return
	}

	s := v.String()
	for _, name := range strings.Split(tag, ",") {
		if fn, ok := modifiers[strings.TrimSpace(name)]; ok {
			s = fn(s)
		}
	}
	v.SetString(s)
}
