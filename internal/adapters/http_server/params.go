package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"homestay_hub/internal/domain"
)

const (
	maxBodyBytes = 1 << 20
	dateLayout   = "2006-01-02"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report the JSON name of a field, not its Go name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// errBadRequest marks input that could not be read at all (400), as opposed
// to well-formed input that fails a rule (422).
type errBadRequest struct{ msg string }

func (e errBadRequest) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return errBadRequest{msg: fmt.Sprintf(format, args...)}
}

// respondErr is writeError plus the 400 case for unreadable input.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var br errBadRequest
	if errors.As(err, &br) {
		writeProblem(w, http.StatusBadRequest, "Bad Request", br.msg, nil)
		return
	}
	writeError(w, r, err)
}

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("malformed JSON body: %v", err)
	}
	return check(dst)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	verr := &domain.ValidationError{}
	for _, fe := range ves {
		verr.Add(fieldPath(fe), ruleMessage(fe))
	}
	return verr
}

// fieldPath drops the top-level struct name: "bookingReq.check_in" -> "check_in".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "e164":
		return "must be an international phone number"
	case "datetime":
		return "must be a date formatted " + fe.Param()
	case "numeric":
		return "must contain digits only"
	case "len":
		return "must have length " + fe.Param()
	case "min", "gte":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return "must have at least " + fe.Param() + " items or characters"
		}
		return "must be at least " + fe.Param()
	case "max", "lte":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return "must have at most " + fe.Param() + " items or characters"
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "failed rule " + fe.Tag()
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("%s must be a positive number", name)
	}
	return id, nil
}

// pageParams reads page (>=1) and limit (1..100).
func pageParams(r *http.Request) (domain.Page, error) {
	pg := domain.Page{Number: 1}
	q := r.URL.Query()
	if s := q.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return pg, badRequest("page must be a positive integer")
		}
		pg.Number = n
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			return pg, badRequest("limit must be an integer between 1 and 100")
		}
		pg.Limit = n
	}
	return pg, nil
}

func optInt64(r *http.Request, name string) (*int64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return nil, badRequest("%s must be a positive number", name)
	}
	return &n, nil
}

func optString(r *http.Request, name string) *string {
	if !r.URL.Query().Has(name) {
		return nil
	}
	s := r.URL.Query().Get(name)
	return &s
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "must be a date formatted "+dateLayout)
	}
	return t, nil
}
