package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/plateplan/internal/storage"
	"github.com/google/uuid"
)

// plannerStorage owns day items and plan assignments behind one lock.
type plannerStorage struct {
	mu    sync.RWMutex
	items map[string]*storage.DayItem // key: item id
	// index for owner+date lookups
	byOwnerDate map[string][]string                // key: "ownerUserID:YYYY-MM-DD" -> []item_id
	assignments map[string]*storage.PlanAssignment // key: ownerUserID
}

func newPlannerStorage() *plannerStorage {
	return &plannerStorage{
		items:       make(map[string]*storage.DayItem),
		byOwnerDate: make(map[string][]string),
		assignments: make(map[string]*storage.PlanAssignment),
	}
}

func ownerDateKey(ownerUserID string, date time.Time) string {
	return fmt.Sprintf("%s:%s", ownerUserID, date.Format(storage.DateLayout))
}

func (s *plannerStorage) ListDayItems(ctx context.Context, ownerUserID string, date time.Time) ([]storage.DayItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listLocked(ownerUserID, date), nil
}

func (s *plannerStorage) ListDayItemsRange(ctx context.Context, ownerUserID string, from, to time.Time) ([]storage.DayItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []storage.DayItem
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		results = append(results, s.listLocked(ownerUserID, d)...)
	}
	return results, nil
}

func (s *plannerStorage) GetDayItem(ctx context.Context, ownerUserID string, id string) (storage.DayItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok || item.OwnerUserID != ownerUserID {
		return storage.DayItem{}, false, nil
	}
	return *item, true, nil
}

func (s *plannerStorage) CreateDayItem(ctx context.Context, item storage.DayItem) (storage.DayItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(item, time.Now().UTC()), nil
}

func (s *plannerStorage) UpdateDayItemMultiplier(ctx context.Context, ownerUserID string, id string, multiplier float64) (storage.DayItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || item.OwnerUserID != ownerUserID {
		return storage.DayItem{}, false, nil
	}
	item.Multiplier = multiplier
	item.UpdatedAt = time.Now().UTC()
	return *item, true, nil
}

func (s *plannerStorage) DeleteDayItem(ctx context.Context, ownerUserID string, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || item.OwnerUserID != ownerUserID {
		return false, nil
	}
	s.deleteLocked(item)
	return true, nil
}

// Helper methods (must be called with lock held)

func (s *plannerStorage) listLocked(ownerUserID string, date time.Time) []storage.DayItem {
	ids := s.byOwnerDate[ownerDateKey(ownerUserID, date)]
	results := make([]storage.DayItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			results = append(results, *item)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return storage.MealSlotRank(results[i].MealSlot) < storage.MealSlotRank(results[j].MealSlot)
	})
	return results
}

func (s *plannerStorage) insertLocked(item storage.DayItem, now time.Time) storage.DayItem {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.CreatedAt = now
	item.UpdatedAt = now

	stored := item
	s.items[item.ID] = &stored
	key := ownerDateKey(item.OwnerUserID, item.Date)
	s.byOwnerDate[key] = append(s.byOwnerDate[key], item.ID)
	return item
}

func (s *plannerStorage) deleteLocked(item *storage.DayItem) {
	key := ownerDateKey(item.OwnerUserID, item.Date)
	ids := s.byOwnerDate[key]
	for i, id := range ids {
		if id == item.ID {
			s.byOwnerDate[key] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byOwnerDate[key]) == 0 {
		delete(s.byOwnerDate, key)
	}
	delete(s.items, item.ID)
}

func (s *plannerStorage) occupantsLocked(ownerUserID string, date time.Time, slot string) []*storage.DayItem {
	var out []*storage.DayItem
	for _, id := range s.byOwnerDate[ownerDateKey(ownerUserID, date)] {
		if item, ok := s.items[id]; ok && item.MealSlot == slot {
			out = append(out, item)
		}
	}
	return out
}
