package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewJSONHandler(io.Discard, nil))

func Test_ClientIdentifier(t *testing.T) {
	known := uuid.New()
	testCases := []struct {
		name       string
		header     string
		expectSame bool
	}{
		{name: "valid id is kept", header: known.String(), expectSame: true},
		{name: "missing id is assigned"},
		{name: "malformed id is replaced", header: "not-a-uuid"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var seen uuid.UUID
			handler := ClientIdentifier(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				id, ok := GetClientID(r.Context())
				require.True(t, ok)
				seen = id
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(XClientID, tc.header)
			}
			rr := httptest.NewRecorder()

			// when
			handler.ServeHTTP(rr, req)

			// then
			assert.Equal(t, seen.String(), rr.Header().Get(XClientID))
			if tc.expectSame {
				assert.Equal(t, known, seen)
			} else {
				assert.NotEqual(t, uuid.Nil, seen)
			}
		})
	}
}

func Test_RequestIDInjector(t *testing.T) {
	var got string
	handler := middleware.RequestID(RequestIDInjector(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = GetRequestID(r.Context())
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")

	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "req-42", got)
}

func Test_ParseOptionalParams(t *testing.T) {
	testCases := []struct {
		name   string
		query  string
		expect func(t *testing.T, r *http.Request, rr *httptest.ResponseRecorder)
	}{
		{name: "gte default", query: "", expect: func(t *testing.T, r *http.Request, rr *httptest.ResponseRecorder) {
			v, ok := ParseOptionalGte(r, rr, discard, "page", 1, 1)
			assert.True(t, ok)
			assert.Equal(t, 1, v)
		}},
		{name: "gte below bound", query: "page=0", expect: func(t *testing.T, r *http.Request, rr *httptest.ResponseRecorder) {
			_, ok := ParseOptionalGte(r, rr, discard, "page", 1, 1)
			assert.False(t, ok)
			assert.JSONEq(t, `{"error":"Invalid page number: 0"}`, rr.Body.String())
		}},
		{name: "decimal", query: "minPrice=12.50", expect: func(t *testing.T, r *http.Request, rr *httptest.ResponseRecorder) {
			v, ok := ParseOptionalDecimal(r, rr, discard, "minPrice")
			require.True(t, ok)
			assert.Equal(t, "12.5", v.String())
		}},
		{name: "negative decimal", query: "minPrice=-1", expect: func(t *testing.T, r *http.Request, rr *httptest.ResponseRecorder) {
			_, ok := ParseOptionalDecimal(r, rr, discard, "minPrice")
			assert.False(t, ok)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		}},
		{name: "missing bool", query: "", expect: func(t *testing.T, r *http.Request, rr *httptest.ResponseRecorder) {
			v, ok := ParseOptionalBool(r, rr, discard, "featured")
			assert.True(t, ok)
			assert.Nil(t, v)
		}},
		{name: "bool", query: "featured=false", expect: func(t *testing.T, r *http.Request, rr *httptest.ResponseRecorder) {
			v, ok := ParseOptionalBool(r, rr, discard, "featured")
			require.True(t, ok)
			assert.False(t, *v)
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
			tc.expect(t, req, httptest.NewRecorder())
		})
	}
}

func Test_RespondValidationError(t *testing.T) {
	type form struct {
		Email string `validate:"required,email"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	rr := httptest.NewRecorder()
	RespondValidationError(rr, req, discard, validator.New().Struct(form{Email: "nope"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"validation_errors":{"Email":"failed on rule: email"}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	RespondValidationError(rr, req, discard, errors.New("boom"))
	assert.JSONEq(t, `{"error":"Invalid request body"}`, rr.Body.String())
}
