package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/Inventory/internal/core"
)

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{`7`, 7, false},
		{`"12"`, 12, false},
		{`" 3 "`, 3, false},
		{`4.9`, 4, false},
		{`"-2.5"`, -2, false},
		{`"abc"`, 0, true},
		{`""`, 0, true},
		{`true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f FlexInt
			err := json.Unmarshal([]byte(tt.in), &f)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, int64(f))
		})
	}
}

func TestFlexInt_NullLeavesFieldUnset(t *testing.T) {
	var req productRequest
	require.NoError(t, json.Unmarshal([]byte(`{"stock": null, "name": null}`), &req))
	assert.Nil(t, req.Stock)
	assert.Nil(t, req.Name)
}

func newBodyRequest(contentType, body string) (*httptest.ResponseRecorder, *http.Request) {
	req := httptest.NewRequest(http.MethodPut, "/api/products/1", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return httptest.NewRecorder(), req
}

func TestDecodeProduct_JSONPresence(t *testing.T) {
	w, r := newBodyRequest("application/json", `{"unit": "", "brand": "Acme", "changedBy": "alice"}`)

	req, err := decodeProduct(w, r)
	require.NoError(t, err)

	u := req.update()
	require.NotNil(t, u.Unit)
	assert.Equal(t, "", *u.Unit, "an empty value is still applied")
	assert.Equal(t, "Acme", *u.Brand)
	assert.Nil(t, u.Name)
	assert.Nil(t, u.Stock)
	assert.Equal(t, "alice", u.ChangedBy)
}

func TestDecodeProduct_EmptyBody(t *testing.T) {
	w, r := newBodyRequest("", "")

	req, err := decodeProduct(w, r)
	require.NoError(t, err)
	assert.Equal(t, core.ProductFields{}, req.fields())
}

func TestDecodeProduct_Form(t *testing.T) {
	w, r := newBodyRequest("application/x-www-form-urlencoded; charset=utf-8", "name=Bolt&stock=&status=active")

	req, err := decodeProduct(w, r)
	require.NoError(t, err)

	f := req.fields()
	assert.Equal(t, "Bolt", *f.Name)
	assert.Equal(t, "active", *f.Status)
	assert.Nil(t, f.Stock, "a blank form stock is treated as absent")
	assert.Nil(t, f.Unit)
}

func TestDecodeProduct_Errors(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		check       func(t *testing.T, err error)
	}{
		{
			name:        "bad form stock",
			contentType: "application/x-www-form-urlencoded",
			body:        "stock=many",
			check: func(t *testing.T, err error) {
				assert.True(t, core.IsValidation(err))
				assert.Equal(t, "Stock must be a number", core.MapError(err).Message)
			},
		},
		{
			name:        "wrong json type",
			contentType: "application/json",
			body:        `{"brand": ["a"]}`,
			check: func(t *testing.T, err error) {
				var ve *core.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "brand", ve.Field)
			},
		},
		{
			name:        "too long",
			contentType: "application/json",
			body:        `{"changedBy": "` + strings.Repeat("a", 101) + `"}`,
			check: func(t *testing.T, err error) {
				var ve *core.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "changedBy", ve.Field)
				assert.Contains(t, ve.Message, "at most 100")
			},
		},
		{
			name:        "not json",
			contentType: "application/json",
			body:        `name=Bolt`,
			check: func(t *testing.T, err error) {
				var me *malformedBodyError
				assert.ErrorAs(t, err, &me)
				assert.Equal(t, http.StatusBadRequest, statusFor(err))
				assert.Equal(t, "VAL002", userMessage(err).Code)
			},
		},
		{
			name:        "oversized",
			contentType: "application/json",
			body:        `{"name": "` + strings.Repeat("x", maxJSONBody) + `"}`,
			check: func(t *testing.T, err error) {
				var maxErr *http.MaxBytesError
				assert.ErrorAs(t, err, &maxErr)
				assert.Equal(t, http.StatusBadRequest, statusFor(err))
				assert.Equal(t, core.CodeFileTooLarge, userMessage(err).Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, r := newBodyRequest(tt.contentType, tt.body)
			_, err := decodeProduct(w, r)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.NewValidationError("name", "name is required"), http.StatusBadRequest},
		{core.ErrConflict, http.StatusBadRequest},
		{core.RejectUpload(core.CodeNoFile, "No file uploaded"), http.StatusBadRequest},
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrTooManyImports, http.StatusServiceUnavailable},
		{&core.StorageError{Op: "list products", Err: assert.AnError}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
