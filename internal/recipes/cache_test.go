package recipes

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fdg312/plateplan/internal/storage"
)

// fakeRedis is an in-process CacheClient.
type fakeRedis struct {
	data   map[string][]byte
	getErr error
	setErr error
	sets   int
	ttl    time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string][]byte)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.sets++
	f.ttl = expiration
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.data[key] = value.([]byte)
	return redis.NewStatusResult("OK", nil)
}

// countingCatalog counts calls to the underlying catalog.
type countingCatalog struct {
	Catalog
	gets int
}

func (c *countingCatalog) GetRecipe(ctx context.Context, id string) (*storage.Recipe, error) {
	c.gets++
	return c.Catalog.GetRecipe(ctx, id)
}

func TestCachedCatalogReadThrough(t *testing.T) {
	store := seededStore(t)
	next := &countingCatalog{Catalog: NewStoreCatalog(store.GetRecipesStorage())}
	client := newFakeRedis()
	cached := NewCachedCatalog(next, client, 5*time.Minute, nil, nil)
	ctx := context.Background()

	first, err := cached.GetRecipe(ctx, "oats")
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	second, err := cached.GetRecipe(ctx, "oats")
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}

	if next.gets != 1 {
		t.Errorf("expected 1 store lookup, got %d", next.gets)
	}
	if client.ttl != 5*time.Minute {
		t.Errorf("expected ttl 5m, got %v", client.ttl)
	}
	if second.Title != first.Title || second.PerServing != first.PerServing {
		t.Errorf("cached recipe differs: %+v vs %+v", second, first)
	}
	if len(second.Ingredients) != 1 || second.Ingredients[0].Unit == nil || *second.Ingredients[0].Unit != "g" {
		t.Errorf("ingredients not round-tripped: %+v", second.Ingredients)
	}
}

func TestCachedCatalogFallsBackOnRedisError(t *testing.T) {
	store := seededStore(t)
	next := &countingCatalog{Catalog: NewStoreCatalog(store.GetRecipesStorage())}
	client := newFakeRedis()
	client.getErr = errors.New("connection refused")
	client.setErr = errors.New("connection refused")
	cached := NewCachedCatalog(next, client, time.Minute, nil, nil)

	for i := 0; i < 2; i++ {
		recipe, err := cached.GetRecipe(context.Background(), "oats")
		if err != nil {
			t.Fatalf("GetRecipe: %v", err)
		}
		if recipe.ID != "oats" {
			t.Errorf("unexpected recipe %q", recipe.ID)
		}
	}
	if next.gets != 2 {
		t.Errorf("expected every lookup to reach the store, got %d", next.gets)
	}
}

func TestCachedCatalogIgnoresCorruptEntry(t *testing.T) {
	store := seededStore(t)
	client := newFakeRedis()
	client.data["recipe:oats"] = []byte("{not json")
	cached := NewCachedCatalog(NewStoreCatalog(store.GetRecipesStorage()), client, time.Minute, nil, nil)

	recipe, err := cached.GetRecipe(context.Background(), "oats")
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	if recipe.Title != "Porridge" {
		t.Errorf("unexpected title %q", recipe.Title)
	}

	var stored storage.Recipe
	if err := json.Unmarshal(client.data["recipe:oats"], &stored); err != nil {
		t.Fatalf("expected entry to be rewritten: %v", err)
	}
}

func TestCachedCatalogDoesNotCacheMisses(t *testing.T) {
	store := seededStore(t)
	client := newFakeRedis()
	cached := NewCachedCatalog(NewStoreCatalog(store.GetRecipesStorage()), client, time.Minute, nil, nil)

	_, err := cached.GetRecipe(context.Background(), "missing")
	if !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
	if client.sets != 0 {
		t.Errorf("expected no cache writes, got %d", client.sets)
	}
}
