package mealplans

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/plateplan/internal/userctx"
)

func newTestMux(t *testing.T) (*http.ServeMux, *fixture) {
	t.Helper()
	f := newFixture(t, nil)
	h := NewHandler(f.service, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/meal-plans", h.HandleList)
	mux.HandleFunc("GET /v1/meal-plans/assignment", h.HandleGetAssignment)
	mux.HandleFunc("DELETE /v1/meal-plans/assignment", h.HandleClearAssignment)
	mux.HandleFunc("GET /v1/meal-plans/{id}", h.HandleGet)
	mux.HandleFunc("POST /v1/meal-plans/assign", h.HandleAssign)
	return mux, f
}

func do(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	req = req.WithContext(userctx.WithUserID(req.Context(), "u1"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	return resp.Error.Code
}

func TestHandleAssign(t *testing.T) {
	mux, _ := newTestMux(t)

	w := do(t, mux, http.MethodPost, "/v1/meal-plans/assign", `{"plan_id":"monday-breakfast","start_date":"2024-01-01","weeks":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp AssignResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK || resp.Report.Created != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.Report.Dates) != 2 || resp.Report.Dates[0] != "2024-01-01" || resp.Report.Dates[1] != "2024-01-08" {
		t.Errorf("unexpected dates: %v", resp.Report.Dates)
	}
	if resp.Assignment.PlanID != "monday-breakfast" || resp.Assignment.StartDate != "2024-01-01" {
		t.Errorf("unexpected assignment: %+v", resp.Assignment)
	}
}

func TestHandleAssignErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"invalid json", `{"plan_id":`, http.StatusBadRequest, "invalid_json"},
		{"missing plan", `{"start_date":"2024-01-01","weeks":1}`, http.StatusBadRequest, "invalid_request"},
		{"zero weeks", `{"plan_id":"week","start_date":"2024-01-01","weeks":0}`, http.StatusBadRequest, "invalid_range"},
		{"too many weeks", `{"plan_id":"week","start_date":"2024-01-01","weeks":13}`, http.StatusBadRequest, "invalid_range"},
		{"bad date", `{"plan_id":"week","start_date":"01/01/2024","weeks":1}`, http.StatusBadRequest, "invalid_range"},
		{"premium plan", `{"plan_id":"premium","start_date":"2024-01-01","weeks":1}`, http.StatusForbidden, "plan_locked"},
		{"unknown plan", `{"plan_id":"ghost","start_date":"2024-01-01","weeks":1}`, http.StatusNotFound, "plan_not_found"},
		{"missing recipe", `{"plan_id":"broken","start_date":"2024-01-01","weeks":1}`, http.StatusBadRequest, "recipe_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, f := newTestMux(t)
			w := do(t, mux, http.MethodPost, "/v1/meal-plans/assign", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if code := errorCode(t, w); code != tt.wantErr {
				t.Errorf("expected error code %s, got %s", tt.wantErr, code)
			}
			assertUntouched(t, f, "u1")
		})
	}
}

func TestHandleListAndGet(t *testing.T) {
	mux, _ := newTestMux(t)

	w := do(t, mux, http.MethodGet, "/v1/meal-plans", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var list ListTemplatesResponse
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(list.Items) != 5 {
		t.Errorf("expected 5 templates, got %d", len(list.Items))
	}

	w = do(t, mux, http.MethodGet, "/v1/meal-plans/premium", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var tpl TemplateDTO
	if err := json.NewDecoder(w.Body).Decode(&tpl); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !tpl.Locked {
		t.Error("expected premium plan to be locked for a free user")
	}

	w = do(t, mux, http.MethodGet, "/v1/meal-plans/ghost", "")
	if w.Code != http.StatusNotFound || errorCode(t, w) != "plan_not_found" {
		t.Errorf("expected 404 plan_not_found, got %d", w.Code)
	}
}

func TestHandleAssignmentLifecycle(t *testing.T) {
	mux, _ := newTestMux(t)

	w := do(t, mux, http.MethodGet, "/v1/meal-plans/assignment", "")
	var cur Current
	if err := json.NewDecoder(w.Body).Decode(&cur); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if cur.State != StateNone {
		t.Fatalf("expected none, got %s", cur.State)
	}

	// Far in the future so the assignment reads as scheduled regardless of the clock.
	w = do(t, mux, http.MethodPost, "/v1/meal-plans/assign", `{"plan_id":"week","start_date":"2999-01-07","weeks":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("assign: %d %s", w.Code, w.Body.String())
	}

	w = do(t, mux, http.MethodGet, "/v1/meal-plans/assignment", "")
	if err := json.NewDecoder(w.Body).Decode(&cur); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if cur.State != StateScheduled || cur.Assignment == nil || cur.Assignment.PlanID != "week" {
		t.Errorf("unexpected current: %+v", cur)
	}

	w = do(t, mux, http.MethodDelete, "/v1/meal-plans/assignment", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}

	w = do(t, mux, http.MethodGet, "/v1/meal-plans/assignment", "")
	cur = Current{}
	if err := json.NewDecoder(w.Body).Decode(&cur); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if cur.State != StateNone || cur.Assignment != nil {
		t.Errorf("expected none after clear, got %+v", cur)
	}
}
