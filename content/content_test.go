package content

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"btc", "btc"},
		{"BTC", "btc"},
		{"bitcoin", "btc"},
		{"Ethereum", "eth"},
		{"ai", "ai_agents"},
		{"mining", "proof_of_work"},
		{"unknown", "unknown"},
	}
	for _, tc := range tests {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCategoryValidity(t *testing.T) {
	if !IsValid("btc") {
		t.Error("btc must be valid")
	}
	if IsValid("bitcoin") {
		t.Error("aliases are only valid after Normalize")
	}
	if IsValid("sportsball") {
		t.Error("unknown category must be invalid")
	}

	for _, free := range FreeCategories() {
		if !IsValid(free) {
			t.Errorf("free category %q missing from catalog", free)
		}
		if !IsFree(free) {
			t.Errorf("category %q must be free", free)
		}
	}
	if IsFree("btc") {
		t.Error("btc must not be free")
	}
}

func TestCatalogConsistency(t *testing.T) {
	for _, c := range Catalog {
		if c.Free != IsFree(c.Name) {
			t.Errorf("catalog free flag disagrees for %q", c.Name)
		}
		for _, alias := range c.Aliases {
			if got := Normalize(alias); got != c.Name {
				t.Errorf("alias %q resolves to %q, want %q", alias, got, c.Name)
			}
		}
	}
}

func TestHTTPSourceFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/btc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Feed{Items: []json.RawMessage{
			json.RawMessage(`{"title":"headline"}`),
		}})
	}))
	defer server.Close()

	feed, err := NewHTTPSource(server.URL).Fetch(context.Background(), "btc")
	if err != nil {
		t.Fatal(err)
	}
	if len(feed.Items) != 1 {
		t.Errorf("expected 1 item, got %d", len(feed.Items))
	}
}

func TestHTTPSourceErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "pipeline down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := NewHTTPSource(server.URL).Fetch(context.Background(), "btc"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestCachedSource(t *testing.T) {
	fetches := 0
	inner := SourceFunc(func(ctx context.Context, category string) (Feed, error) {
		fetches++
		return Feed{Items: []json.RawMessage{json.RawMessage(`{}`)}}, nil
	})

	source := NewCachedSource(inner, NewMemoryCache(time.Hour))
	ctx := context.Background()

	for range 3 {
		feed, err := source.Fetch(ctx, "btc")
		if err != nil {
			t.Fatal(err)
		}
		if len(feed.Items) != 1 {
			t.Fatalf("unexpected feed: %+v", feed)
		}
	}
	if fetches != 1 {
		t.Errorf("expected 1 inner fetch, got %d", fetches)
	}

	// A different category is a different cache key.
	if _, err := source.Fetch(ctx, "eth"); err != nil {
		t.Fatal(err)
	}
	if fetches != 2 {
		t.Errorf("expected 2 inner fetches, got %d", fetches)
	}
}

func TestCachedSourceErrorNotCached(t *testing.T) {
	calls := 0
	inner := SourceFunc(func(ctx context.Context, category string) (Feed, error) {
		calls++
		if calls == 1 {
			return Feed{}, errors.New("pipeline down")
		}
		return Feed{}, nil
	})

	source := NewCachedSource(inner, NewMemoryCache(time.Hour))
	ctx := context.Background()

	if _, err := source.Fetch(ctx, "btc"); err == nil {
		t.Fatal("expected first fetch to fail")
	}
	if _, err := source.Fetch(ctx, "btc"); err != nil {
		t.Fatalf("second fetch should recover: %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache(10 * time.Millisecond)
	ctx := context.Background()

	cache.Set(ctx, "news:btc", Feed{Items: []json.RawMessage{json.RawMessage(`{}`)}})
	if _, ok := cache.Get(ctx, "news:btc"); !ok {
		t.Fatal("expected cache hit before expiry")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := cache.Get(ctx, "news:btc"); ok {
		t.Fatal("expected cache miss after expiry")
	}
}
