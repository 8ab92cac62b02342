package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/plateplan/internal/storage"
	"github.com/google/uuid"
)

type shoppingListsStorage struct {
	mu          sync.RWMutex
	lists       map[string]*storage.ShoppingList // key: list id
	items       map[string][]storage.ShoppingListItem
	attachments map[string][]storage.ShoppingListRecipe // key: list id
}

func newShoppingListsStorage() *shoppingListsStorage {
	return &shoppingListsStorage{
		lists:       make(map[string]*storage.ShoppingList),
		items:       make(map[string][]storage.ShoppingListItem),
		attachments: make(map[string][]storage.ShoppingListRecipe),
	}
}

func (s *shoppingListsStorage) CreateList(ctx context.Context, list storage.ShoppingList) (storage.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if list.ID == "" {
		list.ID = uuid.New().String()
	}
	list.CreatedAt = now
	list.UpdatedAt = now

	stored := list
	s.lists[list.ID] = &stored
	return list, nil
}

func (s *shoppingListsStorage) GetList(ctx context.Context, ownerUserID string, id string) (storage.ShoppingList, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lists[id]
	if !ok || l.OwnerUserID != ownerUserID {
		return storage.ShoppingList{}, false, nil
	}
	return *l, true, nil
}

func (s *shoppingListsStorage) ListLists(ctx context.Context, ownerUserID string) ([]storage.ShoppingList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []storage.ShoppingList{}
	for _, l := range s.lists {
		if l.OwnerUserID == ownerUserID {
			results = append(results, *l)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

func (s *shoppingListsStorage) DeleteList(ctx context.Context, ownerUserID string, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[id]
	if !ok || l.OwnerUserID != ownerUserID {
		return false, nil
	}
	delete(s.lists, id)
	delete(s.items, id)
	delete(s.attachments, id)
	return true, nil
}

func (s *shoppingListsStorage) AddListItem(ctx context.Context, item storage.ShoppingListItem) (storage.ShoppingListItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item = s.appendItemLocked(item, time.Now().UTC())
	s.touchLocked(item.ListID)
	return item, nil
}

func (s *shoppingListsStorage) ListListItems(ctx context.Context, listID string) ([]storage.ShoppingListItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]storage.ShoppingListItem{}, s.items[listID]...), nil
}

func (s *shoppingListsStorage) DeleteListItem(ctx context.Context, listID string, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items[listID]
	for i, it := range items {
		if it.ID == itemID {
			s.items[listID] = append(items[:i:i], items[i+1:]...)
			s.touchLocked(listID)
			return true, nil
		}
	}
	return false, nil
}

func (s *shoppingListsStorage) AttachRecipe(ctx context.Context, attachment storage.ShoppingListRecipe, items []storage.ShoppingListItem) ([]storage.ShoppingListItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.detachLocked(attachment.ListID, attachment.RecipeID)

	now := time.Now().UTC()
	attachment.CreatedAt = now
	s.attachments[attachment.ListID] = append(s.attachments[attachment.ListID], attachment)

	out := make([]storage.ShoppingListItem, 0, len(items))
	for _, it := range items {
		it.ListID = attachment.ListID
		out = append(out, s.appendItemLocked(it, now))
	}
	s.touchLocked(attachment.ListID)
	return out, nil
}

func (s *shoppingListsStorage) DetachRecipe(ctx context.Context, listID string, recipeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.detachLocked(listID, recipeID)
	if removed {
		s.touchLocked(listID)
	}
	return removed, nil
}

func (s *shoppingListsStorage) ListAttachments(ctx context.Context, listID string) ([]storage.ShoppingListRecipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]storage.ShoppingListRecipe{}, s.attachments[listID]...), nil
}

func (s *shoppingListsStorage) appendItemLocked(item storage.ShoppingListItem, now time.Time) storage.ShoppingListItem {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.CreatedAt = now
	s.items[item.ListID] = append(s.items[item.ListID], item)
	return item
}

func (s *shoppingListsStorage) detachLocked(listID, recipeID string) bool {
	removed := false
	atts := s.attachments[listID]
	keptAtts := atts[:0]
	for _, a := range atts {
		if a.RecipeID == recipeID {
			removed = true
			continue
		}
		keptAtts = append(keptAtts, a)
	}
	s.attachments[listID] = keptAtts

	items := s.items[listID]
	keptItems := make([]storage.ShoppingListItem, 0, len(items))
	for _, it := range items {
		if it.SourceRecipeID != nil && *it.SourceRecipeID == recipeID {
			continue
		}
		keptItems = append(keptItems, it)
	}
	s.items[listID] = keptItems
	return removed
}

func (s *shoppingListsStorage) touchLocked(listID string) {
	if l, ok := s.lists[listID]; ok {
		l.UpdatedAt = time.Now().UTC()
	}
}
