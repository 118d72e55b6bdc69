package tokens

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub/internal/principal"
)

func newTestRouter(t *testing.T) (chi.Router, *Service) {
	t.Helper()
	svc, _ := newTestService(t)
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, nil)

	r := chi.NewRouter()
	r.Route("/api/tokens", func(r chi.Router) {
		r.Use(injectPrincipal(professor()))
		handler.MountRoutes(r)
	})
	r.Route("/widget", handler.MountWidgetRoutes)
	return r, svc
}

func injectPrincipal(p *principal.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(principal.NewContext(r.Context(), p)))
		})
	}
}

func issueViaAPI(t *testing.T, router chi.Router, body string) tokenResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/tokens/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestIssueEndpointReturnsValueOnce(t *testing.T) {
	router, _ := newTestRouter(t)

	created := issueViaAPI(t, router, `{"resource_kind":"module","resource_id":42,"name":"week 3 embed","allow_chat":true}`)
	require.Len(t, created.Value, 43)
	require.Equal(t, "active", created.Status)

	// Reads never echo the value back.
	req := httptest.NewRequest(http.MethodGet, "/api/tokens/"+created.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	require.Empty(t, fetched.Value)
}

func TestIssueEndpointValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"unknown kind", `{"resource_kind":"course","resource_id":1,"name":"x"}`, http.StatusBadRequest},
		{"missing name", `{"resource_kind":"module","resource_id":42}`, http.StatusBadRequest},
		{"negative ttl", `{"resource_kind":"module","resource_id":42,"name":"x","ttl_seconds":-5}`, http.StatusBadRequest},
		{"out of scope module", `{"resource_kind":"module","resource_id":77,"name":"x"}`, http.StatusNotFound},
		{"missing module", `{"resource_kind":"module","resource_id":404,"name":"x"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/tokens/", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}
}

func TestWidgetValidateBearerAndQuery(t *testing.T) {
	router, _ := newTestRouter(t)
	created := issueViaAPI(t, router, `{"resource_kind":"module","resource_id":42,"name":"embed","allow_chat":true}`)

	// Bearer header.
	req := httptest.NewRequest(http.MethodGet, "/widget/validate?capability=chat", nil)
	req.Header.Set("Authorization", "Bearer "+created.Value)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp validateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Valid)
	require.Equal(t, "module", resp.ResourceKind)
	require.Equal(t, int64(42), resp.ResourceID)

	// Query parameter fallback.
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/widget/validate?capability=chat&token=%s", created.Value), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWidgetValidateFailureMapping(t *testing.T) {
	router, svc := newTestRouter(t)
	created := issueViaAPI(t, router, `{"resource_kind":"module","resource_id":42,"name":"embed","allow_chat":true,"ttl_seconds":3600}`)

	get := func(target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := get("/widget/validate?capability=chat&token=" + strings.Repeat("A", 43))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = get("/widget/validate?capability=file_access&token=" + created.Value)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = get("/widget/validate?capability=delete_all&token=" + created.Value)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	svc.clock = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	rec = get("/widget/validate?capability=chat&token=" + created.Value)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRevokeEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	created := issueViaAPI(t, router, `{"resource_kind":"module","resource_id":42,"name":"embed","allow_chat":true}`)

	req := httptest.NewRequest(http.MethodPost, "/api/tokens/"+created.ID+"/revoke", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The value stops validating immediately.
	req = httptest.NewRequest(http.MethodGet, "/widget/validate?capability=chat&token="+created.Value, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEndpointFiltersByResource(t *testing.T) {
	router, _ := newTestRouter(t)
	issueViaAPI(t, router, `{"resource_kind":"module","resource_id":42,"name":"a","allow_chat":true}`)
	issueViaAPI(t, router, `{"resource_kind":"agent","resource_id":8,"name":"b","allow_chat":true}`)

	req := httptest.NewRequest(http.MethodGet, "/api/tokens/?resource_kind=module&resource_id=42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tokens []tokenResponse `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tokens, 1)
	require.Equal(t, "module", resp.Tokens[0].ResourceKind)

	// resource_kind without resource_id is rejected.
	req = httptest.NewRequest(http.MethodGet, "/api/tokens/?resource_kind=module", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
