package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/carinitosdigital/detalles/internal/analysis/recommend"
	"github.com/carinitosdigital/detalles/internal/model/catalog"
	"github.com/carinitosdigital/detalles/internal/service/assistant"
	"github.com/carinitosdigital/detalles/internal/service/flow"
	"github.com/carinitosdigital/detalles/internal/store"
)

type identityShuffler struct{}

func (identityShuffler) Shuffle(int, func(i, j int)) {}

func setupRouter(t *testing.T) (*chi.Mux, string) {
	t.Helper()
	products := catalog.NewMemoryStore(catalog.Seed())
	matcher := recommend.NewMatcher(identityShuffler{}, 0)
	registry := assistant.NewRegistry(store.NewMemoryBackend(), assistant.Deps{
		Machine: flow.New(matcher, flow.DefaultShop()),
		Catalog: products,
	}, assistant.DefaultOptions())
	t.Cleanup(registry.Close)

	sess, err := registry.Create(context.Background())
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}

	r := chi.NewRouter()
	New(registry, products, matcher).RegisterRoutes(r)
	return r, sess.ID
}

func do(t *testing.T, r http.Handler, method, path, body string) (int, cartView) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var v cartView
	if resp.Code == http.StatusOK {
		if err := json.Unmarshal(resp.Body.Bytes(), &v); err != nil {
			t.Fatalf("decode cart: %v", err)
		}
	}
	return resp.Code, v
}

func TestCartLifecycle(t *testing.T) {
	r, id := setupRouter(t)
	base := "/cart/" + id
	seed := catalog.Seed()
	first, second := seed[0], seed[1]

	code, v := do(t, r, http.MethodGet, base+"/", "")
	if code != http.StatusOK || v.Count != 0 || v.Items == nil {
		t.Fatalf("expected empty cart, got %d %+v", code, v)
	}

	do(t, r, http.MethodPost, base+"/items", `{"productId":"`+first.ID+`"}`)
	do(t, r, http.MethodPost, base+"/items", `{"productId":"`+first.ID+`"}`)
	code, v = do(t, r, http.MethodPost, base+"/items", `{"productId":"`+second.ID+`"}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(v.Items) != 2 || v.Items[0].Quantity != 2 || v.Count != 3 {
		t.Fatalf("unexpected cart %+v", v)
	}
	if want := 2*first.Price + second.Price; v.Total != want {
		t.Fatalf("expected total %d, got %d", want, v.Total)
	}

	code, v = do(t, r, http.MethodPatch, base+"/items/"+first.ID, `{"quantity":5}`)
	if code != http.StatusOK || v.Items[0].Quantity != 5 {
		t.Fatalf("unexpected update %d %+v", code, v)
	}

	code, v = do(t, r, http.MethodPatch, base+"/items/"+first.ID, `{"quantity":0}`)
	if code != http.StatusOK || len(v.Items) != 1 || v.Items[0].ID != second.ID {
		t.Fatalf("quantity 0 should remove the line, got %+v", v)
	}

	code, v = do(t, r, http.MethodDelete, base+"/items/"+second.ID, "")
	if code != http.StatusOK || v.Count != 0 {
		t.Fatalf("expected empty cart after delete, got %+v", v)
	}
}

func TestCartErrors(t *testing.T) {
	r, id := setupRouter(t)
	base := "/cart/" + id

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown product", http.MethodPost, base + "/items", `{"productId":"nope"}`, http.StatusNotFound},
		{"missing product id", http.MethodPost, base + "/items", `{}`, http.StatusBadRequest},
		{"missing quantity", http.MethodPatch, base + "/items/x", `{}`, http.StatusBadRequest},
		{"line not in cart", http.MethodPatch, base + "/items/x", `{"quantity":2}`, http.StatusNotFound},
		{"bad session", http.MethodGet, "/cart/nope/", "", http.StatusNotFound},
		{"bad limit", http.MethodGet, base + "/suggestions?limit=0", "", http.StatusBadRequest},
	}

	for _, tc := range cases {
		if code, _ := do(t, r, tc.method, tc.path, tc.body); code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, code)
		}
	}
}

func TestSuggestionsSkipCartItems(t *testing.T) {
	r, id := setupRouter(t)
	base := "/cart/" + id

	req := httptest.NewRequest(http.MethodGet, base+"/suggestions", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	var before []catalog.Product
	if err := json.Unmarshal(resp.Body.Bytes(), &before); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(before) == 0 || len(before) > recommend.DefaultComplementLimit {
		t.Fatalf("unexpected suggestion count %d", len(before))
	}

	do(t, r, http.MethodPost, base+"/items", `{"productId":"`+before[0].ID+`"}`)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, base+"/suggestions?limit=10", nil))
	var after []catalog.Product
	if err := json.Unmarshal(resp.Body.Bytes(), &after); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, p := range after {
		if p.ID == before[0].ID {
			t.Fatalf("suggestions must skip items already in the cart")
		}
	}
}
