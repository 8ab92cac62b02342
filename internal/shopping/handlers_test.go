package shopping

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/plateplan/internal/userctx"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	svc, _ := newTestService(t)
	h := NewHandler(svc, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/shopping-lists/aggregate", h.HandleAggregate)
	mux.HandleFunc("POST /v1/shopping-lists", h.HandleCreate)
	mux.HandleFunc("GET /v1/shopping-lists", h.HandleList)
	mux.HandleFunc("GET /v1/shopping-lists/{id}", h.HandleGet)
	mux.HandleFunc("DELETE /v1/shopping-lists/{id}", h.HandleDelete)
	mux.HandleFunc("POST /v1/shopping-lists/{id}/items", h.HandleAddItem)
	mux.HandleFunc("DELETE /v1/shopping-lists/{id}/items/{item_id}", h.HandleDeleteItem)
	mux.HandleFunc("POST /v1/shopping-lists/{id}/recipes", h.HandleAttachRecipe)
	mux.HandleFunc("DELETE /v1/shopping-lists/{id}/recipes/{recipe_id}", h.HandleDetachRecipe)
	mux.HandleFunc("GET /v1/shopping-lists/{id}/merged", h.HandleMerged)
	mux.HandleFunc("POST /v1/shopping-lists/{id}/export", h.HandleExport)
	mux.HandleFunc("GET /v1/exports/{key...}", h.HandleDownload)
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

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHandleAggregate(t *testing.T) {
	mux := newTestMux(t)

	w := do(t, mux, http.MethodPost, "/v1/shopping-lists/aggregate", `{"selections":[{"recipeId":"oats","multiplier":2}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp LinesResponse
	decode(t, w, &resp)
	if len(resp.Items) == 0 || resp.Items[0].Name != "Oats" || resp.Items[0].Quantity != 100 || *resp.Items[0].Unit != "g" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}

	tests := []struct {
		body     string
		wantCode int
		wantErr  string
	}{
		{`{`, http.StatusBadRequest, "invalid_json"},
		{`{"selections":[{"recipeId":"ghost"}]}`, http.StatusBadRequest, "recipe_not_found"},
		{`{"selections":[{"recipeId":"oats","multiplier":0}]}`, http.StatusBadRequest, "invalid_multiplier"},
		{`{"selections":[{"recipeId":"oats","multiplier":1e306}]}`, http.StatusBadRequest, "invalid_multiplier"},
		{`{"selections":[{"recipeId":"oats","multiplier":"two"}]}`, http.StatusBadRequest, "invalid_multiplier"},
		{`{"selections":[{"multiplier":1}]}`, http.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		w := do(t, mux, http.MethodPost, "/v1/shopping-lists/aggregate", tt.body)
		if w.Code != tt.wantCode {
			t.Errorf("%s: expected status %d, got %d", tt.body, tt.wantCode, w.Code)
			continue
		}
		var errResp ErrorResponse
		decode(t, w, &errResp)
		if errResp.Error.Code != tt.wantErr {
			t.Errorf("%s: expected %s, got %s", tt.body, tt.wantErr, errResp.Error.Code)
		}
	}
}

func TestHandleListFlow(t *testing.T) {
	mux := newTestMux(t)

	w := do(t, mux, http.MethodPost, "/v1/shopping-lists", `{"name":"Weekly"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var list ListDTO
	decode(t, w, &list)
	base := "/v1/shopping-lists/" + list.ID

	w = do(t, mux, http.MethodPost, base+"/items", `{"name":"Bread","qty":1}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("add item: %d %s", w.Code, w.Body.String())
	}
	var item ItemDTO
	decode(t, w, &item)
	if item.Unit != nil {
		t.Errorf("expected nil unit, got %q", *item.Unit)
	}

	w = do(t, mux, http.MethodPost, base+"/recipes", `{"recipeId":"oats","people":2}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("attach: %d %s", w.Code, w.Body.String())
	}

	w = do(t, mux, http.MethodGet, base+"/merged", "")
	var merged LinesResponse
	decode(t, w, &merged)
	if len(merged.Items) != 4 {
		t.Fatalf("expected 4 merged rows, got %+v", merged.Items)
	}

	w = do(t, mux, http.MethodPost, base+"/export", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("export: %d %s", w.Code, w.Body.String())
	}
	var export ExportDTO
	decode(t, w, &export)

	w = do(t, mux, http.MethodGet, export.URL, "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("download: %d %s", w.Code, w.Header().Get("Content-Type"))
	}

	w = do(t, mux, http.MethodDelete, base+"/recipes/oats", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("detach: %d", w.Code)
	}
	w = do(t, mux, http.MethodDelete, base+"/items/"+item.ID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete item: %d", w.Code)
	}
	w = do(t, mux, http.MethodDelete, base+"/items/"+item.ID, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete item twice: expected 404, got %d", w.Code)
	}

	w = do(t, mux, http.MethodDelete, base, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete list: %d", w.Code)
	}
	w = do(t, mux, http.MethodGet, base, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get deleted list: expected 404, got %d", w.Code)
	}
	var errResp ErrorResponse
	decode(t, w, &errResp)
	if errResp.Error.Code != "list_not_found" {
		t.Errorf("expected list_not_found, got %s", errResp.Error.Code)
	}
}

func TestHandleDownloadUnknownKey(t *testing.T) {
	mux := newTestMux(t)

	w := do(t, mux, http.MethodGet, "/v1/exports/shopping/someone-else/list/file.pdf", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
