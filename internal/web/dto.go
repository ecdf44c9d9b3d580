package web

// dto.go decodes product request bodies.
//
// The UI sends JSON from its edit dialogs and urlencoded forms from older
// pages, so both are accepted. A field that is present is applied as given,
// even when empty; a JSON null or a missing field leaves the stored value
// alone. Stock may be a JSON number or a numeric string.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/Inventory/internal/core"
)

// maxJSONBody caps product request bodies.
const maxJSONBody = 1 << 20

// FlexInt is an integer that also accepts a numeric JSON string.
// Fractions are truncated toward zero.
type FlexInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	n, err := parseFlexInt(raw)
	if err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

var errNotNumber = errors.New("must be a number")

func parseFlexInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v > math.MaxInt64 || v < math.MinInt64 {
		return 0, errNotNumber
	}
	return int64(v), nil
}

// productRequest is the body of create and update requests.
type productRequest struct {
	Name      *string  `json:"name" validate:"omitempty,max=255"`
	Unit      *string  `json:"unit" validate:"omitempty,max=100"`
	Category  *string  `json:"category" validate:"omitempty,max=100"`
	Brand     *string  `json:"brand" validate:"omitempty,max=100"`
	Stock     *FlexInt `json:"stock"`
	Status    *string  `json:"status" validate:"omitempty,max=100"`
	Image     *string  `json:"image" validate:"omitempty,max=2048"`
	ChangedBy *string  `json:"changedBy" validate:"omitempty,max=100"`
}

func (p productRequest) fields() core.ProductFields {
	f := core.ProductFields{
		Name:     p.Name,
		Unit:     p.Unit,
		Category: p.Category,
		Brand:    p.Brand,
		Status:   p.Status,
		Image:    p.Image,
	}
	if p.Stock != nil {
		v := int64(*p.Stock)
		f.Stock = &v
	}
	return f
}

func (p productRequest) update() core.ProductUpdate {
	u := core.ProductUpdate{ProductFields: p.fields()}
	if p.ChangedBy != nil {
		u.ChangedBy = *p.ChangedBy
	}
	return u
}

// requestValidator checks struct tags on request DTOs.
var requestValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeProduct reads a JSON or urlencoded product body.
func decodeProduct(w http.ResponseWriter, r *http.Request) (productRequest, error) {
	var req productRequest

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var err error
	if ct == "application/x-www-form-urlencoded" {
		err = decodeProductForm(r, &req)
	} else {
		err = decodeProductJSON(r.Body, &req)
	}
	if err != nil {
		return req, err
	}

	if err := requestValidator.Struct(req); err != nil {
		return req, toValidationError(err)
	}
	return req, nil
}

func decodeProductJSON(body io.Reader, req *productRequest) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return core.NewValidationError(typeErr.Field, typeErr.Field+" has the wrong type")
		}
		if errors.Is(err, errNotNumber) {
			return core.NewValidationError("stock", "stock must be a number")
		}
		return &malformedBodyError{err: err}
	}
	return nil
}

func decodeProductForm(r *http.Request, req *productRequest) error {
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return &malformedBodyError{err: err}
	}
	form := r.PostForm

	req.Name = formValue(form, "name")
	req.Unit = formValue(form, "unit")
	req.Category = formValue(form, "category")
	req.Brand = formValue(form, "brand")
	req.Status = formValue(form, "status")
	req.Image = formValue(form, "image")
	req.ChangedBy = formValue(form, "changedBy")

	if s := formValue(form, "stock"); s != nil && strings.TrimSpace(*s) != "" {
		n, err := parseFlexInt(*s)
		if err != nil {
			return core.NewValidationError("stock", "stock must be a number")
		}
		v := FlexInt(n)
		req.Stock = &v
	}
	return nil
}

// formValue returns a pointer to the first value of key, or nil when the
// key is absent.
func formValue(form url.Values, key string) *string {
	vals, ok := form[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

// malformedBodyError is a body that could not be decoded at all (VAL002).
type malformedBodyError struct {
	err error
}

func (e *malformedBodyError) Error() string {
	return fmt.Sprintf("invalid request body: %v", e.err)
}

func (e *malformedBodyError) Unwrap() error {
	return e.err
}

// toValidationError reports the first failed field as a core.ValidationError.
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "max":
		return core.NewValidationError(fe.Field(), fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	default:
		return core.NewValidationError(fe.Field(), fmt.Sprintf("%s is invalid", fe.Field()))
	}
}
