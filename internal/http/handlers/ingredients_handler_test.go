package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tbourn/pantry-bot/internal/domain"
)

func TestListIngredients_BodyAndETag(t *testing.T) {
	ts := time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)
	inv := &fakeInventory{
		items: []domain.Ingredient{
			{ID: 1, Name: "milk", ExpirationDate: "2025-06-12"},
			{ID: 2, Name: "eggs", ExpirationDate: "2025-06-20"},
		},
		updatedAt: &ts,
	}
	r := newRouter(Deps{Inventory: inv})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/ingredients", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ListIngredientsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Count != 2 || resp.Ingredients[1].Name != "eggs" {
		t.Fatalf("resp = %+v", resp)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingredients", nil)
	req.Header.Set("If-None-Match", etag)
	if w := serve(r, req); w.Code != http.StatusNotModified {
		t.Fatalf("conditional status = %d", w.Code)
	}

	// Any change in count or update time changes the tag.
	inv.items = inv.items[:1]
	req = httptest.NewRequest(http.MethodGet, "/api/v1/ingredients", nil)
	req.Header.Set("If-None-Match", etag)
	if w := serve(r, req); w.Code != http.StatusOK {
		t.Fatalf("stale tag status = %d", w.Code)
	}
}

func TestListIngredients_Errors(t *testing.T) {
	inv := &fakeInventory{err: errors.New("boom"), statsErr: errors.New("boom")}
	w := serve(newRouter(Deps{Inventory: inv}), httptest.NewRequest(http.MethodGet, "/api/v1/ingredients", nil))
	if w.Code != http.StatusInternalServerError || w.Header().Get("ETag") != "" {
		t.Fatalf("status=%d etag=%q", w.Code, w.Header().Get("ETag"))
	}
}

func TestListExpiring_WithinDays(t *testing.T) {
	cases := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?within_days=7", 7},
		{"?within_days=-1", 0},
		{"?within_days=9999", 365},
		{"?within_days=soon", 3},
	}
	for _, tc := range cases {
		inv := &fakeInventory{}
		w := serve(newRouter(Deps{Inventory: inv, HorizonDays: 3}),
			httptest.NewRequest(http.MethodGet, "/api/v1/ingredients/expiring"+tc.query, nil))
		var resp ExpiringIngredientsResponse
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if w.Code != http.StatusOK || inv.lastDays != tc.want || resp.WithinDays != tc.want {
			t.Fatalf("%q: code=%d days=%d resp=%+v", tc.query, w.Code, inv.lastDays, resp)
		}
	}
}

func TestListExpiring_StoreError(t *testing.T) {
	inv := &fakeInventory{err: errors.New("boom")}
	w := serve(newRouter(Deps{Inventory: inv}), httptest.NewRequest(http.MethodGet, "/api/v1/ingredients/expiring", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}
