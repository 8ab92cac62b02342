package memory

import (
	"context"
	"time"

	"github.com/fdg312/plateplan/internal/storage"
)

func (s *plannerStorage) GetAssignment(ctx context.Context, ownerUserID string) (storage.PlanAssignment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[ownerUserID]
	if !ok {
		return storage.PlanAssignment{}, false, nil
	}
	return *a, true, nil
}

func (s *plannerStorage) DeleteAssignment(ctx context.Context, ownerUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.assignments, ownerUserID)
	return nil
}

// ApplyAssignment validates every write up front and then applies them under
// one lock, so a rejected batch leaves no trace.
func (s *plannerStorage) ApplyAssignment(ctx context.Context, assignment storage.PlanAssignment, writes []storage.PendingWrite) (storage.ApplyReport, error) {
	if err := storage.CheckWrites(assignment.OwnerUserID, writes); err != nil {
		return storage.ApplyReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return storage.ApplyReport{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var report storage.ApplyReport
	created := make(map[string]int) // item id -> index in report.Items

	for _, w := range writes {
		occupants := s.occupantsLocked(w.Item.OwnerUserID, w.Item.Date, w.Item.MealSlot)
		if len(occupants) > 0 && !w.Overwrite {
			report.Skipped++
			continue
		}
		for _, occ := range occupants {
			if idx, ok := created[occ.ID]; ok {
				// overwritten by a later tuple of the same assignment
				report.Items[idx].ID = ""
				delete(created, occ.ID)
			} else {
				report.Replaced++
			}
			s.deleteLocked(occ)
		}

		item := w.Item
		item.ID = ""
		inserted := s.insertLocked(item, now)
		created[inserted.ID] = len(report.Items)
		report.Items = append(report.Items, inserted)
	}

	kept := report.Items[:0]
	for _, item := range report.Items {
		if item.ID != "" {
			kept = append(kept, item)
		}
	}
	report.Items = kept
	report.Created = len(kept)

	a := assignment
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	s.assignments[assignment.OwnerUserID] = &a

	return report, nil
}
