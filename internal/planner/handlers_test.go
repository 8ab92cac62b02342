package planner

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/plateplan/internal/storage"
	"github.com/fdg312/plateplan/internal/userctx"
)

func newTestMux(t *testing.T, targets *storage.Macros) *http.ServeMux {
	t.Helper()
	f := newFixture(t, targets)
	h := NewHandler(f.service, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/planner/add", h.HandleAdd)
	mux.HandleFunc("POST /v1/planner/update", h.HandleUpdate)
	mux.HandleFunc("POST /v1/planner/remove", h.HandleRemove)
	mux.HandleFunc("GET /v1/planner/days/{date}", h.HandleGetDay)
	return mux
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

func TestHandleAddAutoScale(t *testing.T) {
	mux := newTestMux(t, &storage.Macros{Calories: 300})

	w := do(t, mux, http.MethodPost, "/v1/planner/add", `{"date":"2024-01-01","recipeId":"y","meal_type":"dinner","autoScale":true}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var item DayItemDTO
	if err := json.NewDecoder(w.Body).Decode(&item); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if item.Multiplier != 0.75 || item.Date != "2024-01-01" || item.MealSlot != "dinner" {
		t.Errorf("unexpected item: %+v", item)
	}
}

func TestHandleAddErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"invalid json", `{`, http.StatusBadRequest, "invalid_json"},
		{"missing recipe id", `{"date":"2024-01-01"}`, http.StatusBadRequest, "invalid_request"},
		{"unknown recipe", `{"date":"2024-01-01","recipeId":"ghost"}`, http.StatusBadRequest, "recipe_not_found"},
		{"zero multiplier", `{"date":"2024-01-01","recipeId":"x","multiplier":0}`, http.StatusBadRequest, "invalid_multiplier"},
		{"huge multiplier", `{"date":"2024-01-01","recipeId":"x","multiplier":1e308}`, http.StatusBadRequest, "invalid_multiplier"},
		{"string multiplier", `{"date":"2024-01-01","recipeId":"x","multiplier":"abc"}`, http.StatusBadRequest, "invalid_multiplier"},
		{"overflowing number", `{"date":"2024-01-01","recipeId":"x","multiplier":1e999}`, http.StatusBadRequest, "invalid_multiplier"},
		{"string date", `{"date":20240101,"recipeId":"x"}`, http.StatusBadRequest, "invalid_json"},
		{"locked plan", `{"date":"2024-01-01","recipeId":"y","plan_id":"premium-plan"}`, http.StatusForbidden, "plan_locked"},
		{"unknown plan", `{"date":"2024-01-01","recipeId":"y","plan_id":"ghost"}`, http.StatusNotFound, "plan_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(t, nil)
			w := do(t, mux, http.MethodPost, "/v1/planner/add", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, w.Code)
			}
			if code := errorCode(t, w); code != tt.wantErr {
				t.Errorf("expected error code %s, got %s", tt.wantErr, code)
			}
		})
	}
}

func TestHandleUpdate(t *testing.T) {
	mux := newTestMux(t, nil)

	w := do(t, mux, http.MethodPost, "/v1/planner/add", `{"date":"2024-01-01","recipeId":"x"}`)
	var item DayItemDTO
	if err := json.NewDecoder(w.Body).Decode(&item); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	w = do(t, mux, http.MethodPost, "/v1/planner/update", `{"date":"2024-01-01","itemId":"`+item.ID+`","multiplier":1.25}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	w = do(t, mux, http.MethodPost, "/v1/planner/update", `{"date":"2024-01-01","itemId":"`+item.ID+`","multiplier":-1}`)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_multiplier" {
		t.Fatalf("expected 400 invalid_multiplier, got %d", w.Code)
	}

	for _, bad := range []string{`"abc"`, `1e308`} {
		w = do(t, mux, http.MethodPost, "/v1/planner/update", `{"date":"2024-01-01","itemId":"`+item.ID+`","multiplier":`+bad+`}`)
		if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_multiplier" {
			t.Fatalf("multiplier %s: expected 400 invalid_multiplier, got %d", bad, w.Code)
		}
	}

	w = do(t, mux, http.MethodGet, "/v1/planner/days/2024-01-01", "")
	var day DayView
	if err := json.NewDecoder(w.Body).Decode(&day); err != nil {
		t.Fatalf("day view after rejected updates: status %d, %v", w.Code, err)
	}
	if len(day.Items) != 1 || day.Items[0].Multiplier != 1.25 {
		t.Fatalf("rejected updates changed the day: %+v", day.Items)
	}

	w = do(t, mux, http.MethodPost, "/v1/planner/update", `{"date":"2024-01-01","itemId":"`+item.ID+`"}`)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_multiplier" {
		t.Fatalf("expected 400 invalid_multiplier for missing multiplier, got %d", w.Code)
	}

	w = do(t, mux, http.MethodPost, "/v1/planner/update", `{"date":"2024-01-01","itemId":"missing","multiplier":1}`)
	if w.Code != http.StatusNotFound || errorCode(t, w) != "item_not_found" {
		t.Fatalf("expected 404 item_not_found, got %d", w.Code)
	}
}

func TestWriteJSONUnencodableBody(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusCreated, map[string]float64{"calories": math.Inf(1)})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "internal_error" {
		t.Errorf("expected internal_error, got %s", code)
	}
}

func TestHandleRemoveAbsentItem(t *testing.T) {
	mux := newTestMux(t, nil)

	w := do(t, mux, http.MethodPost, "/v1/planner/remove", `{"date":"2024-01-01","itemId":"does-not-exist"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp OKResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK {
		t.Error("expected ok=true")
	}
}

func TestHandleGetDay(t *testing.T) {
	mux := newTestMux(t, nil)
	do(t, mux, http.MethodPost, "/v1/planner/add", `{"date":"2024-01-01","recipeId":"x"}`)

	w := do(t, mux, http.MethodGet, "/v1/planner/days/2024-01-01", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var view DayView
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(view.Items) != 1 || view.Totals.Calories != 200 {
		t.Errorf("unexpected view: %+v", view)
	}
	if view.Targets != nil || view.Remaining != nil {
		t.Errorf("expected null targets without a profile, got %+v", view.Targets)
	}

	w = do(t, mux, http.MethodGet, "/v1/planner/days/not-a-date", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}
