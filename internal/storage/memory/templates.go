package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/plateplan/internal/storage"
)

type templatesStorage struct {
	mu        sync.RWMutex
	templates map[string]*storage.PlanTemplate // key: template id
}

func newTemplatesStorage() *templatesStorage {
	return &templatesStorage{
		templates: make(map[string]*storage.PlanTemplate),
	}
}

func (s *templatesStorage) GetTemplate(ctx context.Context, id string) (storage.PlanTemplate, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok {
		return storage.PlanTemplate{}, false, nil
	}
	return cloneTemplate(t), true, nil
}

func (s *templatesStorage) ListTemplates(ctx context.Context) ([]storage.PlanTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]storage.PlanTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		results = append(results, cloneTemplate(t))
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Tier != results[j].Tier {
			return results[i].Tier == storage.TierFree
		}
		return results[i].Title < results[j].Title
	})
	return results, nil
}

func (s *templatesStorage) UpsertTemplate(ctx context.Context, template storage.PlanTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.templates[template.ID]; ok {
		template.CreatedAt = existing.CreatedAt
	} else if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}
	template.UpdatedAt = now

	stored := cloneTemplate(&template)
	sort.SliceStable(stored.Items, func(i, j int) bool {
		return stored.Items[i].Position < stored.Items[j].Position
	})
	s.templates[template.ID] = &stored
	return nil
}

func cloneTemplate(t *storage.PlanTemplate) storage.PlanTemplate {
	out := *t
	out.Items = append([]storage.PlanItem(nil), t.Items...)
	return out
}
