// Package inputval decodes and validates JSON request bodies.
//
// Struct fields declare their rules with `validate` tags (go-playground
// validator) and a human `label` used in messages. Custom rules:
//   - objectid: 24 hex characters
//   - datekey:  YYYY-MM-DD calendar day
//   - mode:     MEETING or DIKSHA
package inputval

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/app/system/datekey"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if l := f.Tag.Get("label"); l != "" {
			return l
		}
		if j := strings.Split(f.Tag.Get("json"), ",")[0]; j != "" && j != "-" {
			return j
		}
		return f.Name
	})
	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return IsValidObjectID(fl.Field().String())
	})
	_ = v.RegisterValidation("datekey", func(fl validator.FieldLevel) bool {
		return datekey.Valid(fl.Field().String())
	})
	_ = v.RegisterValidation("mode", func(fl validator.FieldLevel) bool {
		return models.Mode(fl.Field().String()).Valid()
	})
	return v
}

// IsValidObjectID reports whether s (trimmed) is a hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result collects the failed rules of one Validate call.
type Result struct {
	Errors []FieldError
}

func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Validate runs the struct rules of v.
func Validate(v any) *Result {
	res := &Result{}
	err := validate.Struct(v)
	if err == nil {
		return res
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		res.Errors = append(res.Errors, FieldError{Message: err.Error()})
		return res
	}
	for _, fe := range ves {
		res.Errors = append(res.Errors, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return res
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "objectid":
		return label + " must be a valid id."
	case "datekey":
		return label + " must be a date in YYYY-MM-DD form."
	case "mode":
		return label + " must be MEETING or DIKSHA."
	}
	return label + " is invalid."
}

// Check validates v and returns a 400 INVALID_INPUT error listing the
// failed fields, or nil.
func Check(v any) error {
	res := Validate(v)
	if !res.HasErrors() {
		return nil
	}
	return apierr.BadRequest("INVALID_INPUT", res.First()).With("fields", res.Errors)
}

// Decode reads the request body into dst without validating it. An empty
// body decodes as an empty object.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apierr.BadRequest("INVALID_JSON", "request body is not valid JSON: "+err.Error())
	}
	return nil
}

// DecodeJSON reads the request body into dst and validates it.
func DecodeJSON(r *http.Request, dst any) error {
	if err := Decode(r, dst); err != nil {
		return err
	}
	return Check(dst)
}

// PathID parses the chi URL parameter key as an ObjectID. A malformed id
// answers 400 INVALID_ID.
func PathID(r *http.Request, key string) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, key)
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, apierr.BadRequest("INVALID_ID", fmt.Sprintf("%s is not a valid id", key)).
			With("param", key)
	}
	return id, nil
}
