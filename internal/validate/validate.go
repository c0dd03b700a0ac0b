// Package validate checks arbitrary input against a declared shape and
// returns either the typed value or a field-keyed set of issues.
//
// A schema is a Go struct type. Field names come from `json` tags and
// constraints from `validate` tags (go-playground/validator). Input can be
// raw JSON bytes, an already decoded object, or URL query values.
//
// Every issue is keyed by the first segment of its field path, so
// "items[2].qty" and "items[0].sku" both land on "items" and the one seen
// last wins.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/keyxmakerx/stockroom/internal/apperror"
)

// Issue is one reported mismatch between the input and the schema.
type Issue struct {
	Kind   apperror.Kind
	Detail string
}

// FieldErrors maps a top-level field name to the issue found for it. The
// empty key holds issues that are not attributable to any field, such as a
// body that is not a JSON object.
type FieldErrors map[string]Issue

// Fields returns the offending field names in sorted order.
func (f FieldErrors) Fields() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// String renders one line per kind, in taxonomy order:
//
//	MissingRequiredProperties: name, sku
//	TypeMismatches: quantity
func (f FieldErrors) String() string {
	var lines []string
	for _, kind := range apperror.Kinds {
		var labels []string
		for _, field := range f.Fields() {
			issue := f[field]
			if issue.Kind != kind {
				continue
			}
			if field == "" {
				labels = append(labels, issue.Detail)
			} else {
				labels = append(labels, field)
			}
		}
		if len(labels) > 0 {
			lines = append(lines, kind.String()+": "+strings.Join(labels, ", "))
		}
	}
	return strings.Join(lines, "\n")
}

// AsError converts the issues into the BadRequestBody error reported to
// clients: the kind text, a colon, then the rendered field lines.
func (f FieldErrors) AsError() *apperror.AppError {
	return &apperror.AppError{
		Kind:    apperror.KindBadRequestBody,
		Code:    apperror.KindBadRequestBody.Status(),
		Message: apperror.KindBadRequestBody.Text() + ":\n" + f.String(),
	}
}

// Result is either Valid(value) or Invalid(fields). It is produced fresh per
// call and never shared.
type Result[T any] struct {
	value  T
	fields FieldErrors
}

// Valid reports whether the input satisfied the schema.
func (r Result[T]) Valid() bool { return len(r.fields) == 0 }

// Value returns the typed value. It is the zero value when !Valid().
func (r Result[T]) Value() T { return r.value }

// Errors returns the field issues. It is nil when Valid().
func (r Result[T]) Errors() FieldErrors { return r.fields }

func valid[T any](v T) Result[T] { return Result[T]{value: v} }

func invalid[T any](f FieldErrors) Result[T] { return Result[T]{fields: f} }

var engine = newEngine()

func newEngine() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return jsonName(fld)
	})
	return v
}

// JSON validates a request body. An empty body is treated as an empty
// object so that required fields are reported individually.
func JSON[T any](body []byte) Result[T] {
	if len(bytes.TrimSpace(body)) == 0 {
		return Map[T](map[string]any{})
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return invalid[T](FieldErrors{"": {Kind: apperror.KindBadRequestBody, Detail: "expected a JSON object"}})
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return invalid[T](FieldErrors{"": {Kind: apperror.KindBadRequestBody, Detail: "unexpected data after JSON object"}})
	}
	return Map[T](m)
}

// Map validates an already decoded object.
func Map[T any](m map[string]any) Result[T] {
	return decode[T](m, FieldErrors{})
}

// decode checks keys and value types against T, decodes the clean subset,
// then runs constraint checks. Fields already flagged are not re-reported.
func decode[T any](m map[string]any, issues FieldErrors) Result[T] {
	var out T
	rt := reflect.TypeOf(out)
	if rt == nil || rt.Kind() != reflect.Struct {
		b, err := json.Marshal(m)
		if err == nil {
			err = json.Unmarshal(b, &out)
		}
		if err != nil {
			return invalid[T](FieldErrors{"": {Kind: apperror.KindTypeMismatches, Detail: "value"}})
		}
		return valid(out)
	}

	fields := jsonFields(rt)
	clean := make(map[string]any, len(m))
	for key, val := range m {
		f, ok := fields[key]
		if !ok {
			issues[key] = Issue{Kind: apperror.KindInvalidProperties, Detail: "unrecognized key"}
			continue
		}
		if !fitsType(val, f.Type) {
			issues[key] = Issue{Kind: apperror.KindTypeMismatches, Detail: "expected " + typeLabel(f.Type)}
			continue
		}
		clean[key] = val
	}

	b, err := json.Marshal(clean)
	if err == nil {
		err = json.Unmarshal(b, &out)
	}
	if err != nil {
		// fitsType checked every field on its own; reaching here means the
		// struct has custom unmarshalers that disagree across fields.
		issues[""] = Issue{Kind: apperror.KindBadRequestBody, Detail: "could not decode object"}
		return invalid[T](issues)
	}

	collectConstraintIssues(out, issues)
	if len(issues) > 0 {
		return invalid[T](issues)
	}
	return valid(out)
}

// collectConstraintIssues runs the validate tags on v. Keys already present
// in issues are left untouched; among constraint failures the last one seen
// for a top-level field wins.
func collectConstraintIssues(v any, issues FieldErrors) {
	flagged := make(map[string]bool, len(issues))
	for k := range issues {
		flagged[k] = true
	}

	err := engine.Struct(v)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return
	}
	for _, fe := range verrs {
		key := topSegment(fe.Namespace())
		if flagged[key] {
			continue
		}
		issues[key] = issueFor(fe)
	}
}

func issueFor(fe validator.FieldError) Issue {
	detail := fe.Tag()
	if fe.Param() != "" {
		detail += "=" + fe.Param()
	}
	if strings.HasPrefix(fe.Tag(), "required") {
		return Issue{Kind: apperror.KindMissingRequiredProperties, Detail: detail}
	}
	return Issue{Kind: apperror.KindInvalidProperties, Detail: detail}
}

// topSegment turns "CreateItem.items[0].qty" into "items".
func topSegment(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		namespace = namespace[i+1:]
	}
	if i := strings.IndexAny(namespace, ".["); i >= 0 {
		namespace = namespace[:i]
	}
	return namespace
}

// fitsType reports whether val decodes into a value of type t.
func fitsType(val any, t reflect.Type) bool {
	b, err := json.Marshal(val)
	if err != nil {
		return false
	}
	return json.Unmarshal(b, reflect.New(t).Interface()) == nil
}

func typeLabel(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

// jsonName mirrors encoding/json naming: the tag name, the Go name when the
// tag has none, and "-" for skipped fields.
func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" && tag == "-" {
		return "-"
	}
	if name == "" {
		return f.Name
	}
	return name
}

// jsonFields maps JSON names to struct fields, flattening untagged embedded
// structs the way encoding/json does.
func jsonFields(rt reflect.Type) map[string]reflect.StructField {
	out := make(map[string]reflect.StructField, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.Anonymous && f.Tag.Get("json") == "" {
			et := f.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				for k, v := range jsonFields(et) {
					if _, exists := out[k]; !exists {
						out[k] = v
					}
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		name := jsonName(f)
		if name == "-" {
			continue
		}
		out[name] = f
	}
	return out
}
