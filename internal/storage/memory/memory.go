package memory

import (
	"github.com/fdg312/plateplan/internal/storage"
)

// MemoryStorage is the in-memory implementation of storage.Storage. It is
// used when DATABASE_URL is empty and as the fake in service tests.
type MemoryStorage struct {
	recipes   *recipesStorage
	templates *templatesStorage
	planner   *plannerStorage
	shopping  *shoppingListsStorage
	profiles  *profilesStorage
}

var _ storage.Storage = (*MemoryStorage)(nil)

func New() *MemoryStorage {
	return &MemoryStorage{
		recipes:   newRecipesStorage(),
		templates: newTemplatesStorage(),
		planner:   newPlannerStorage(),
		shopping:  newShoppingListsStorage(),
		profiles:  newProfilesStorage(),
	}
}

func (m *MemoryStorage) GetRecipesStorage() storage.RecipesStorage {
	return m.recipes
}

func (m *MemoryStorage) GetTemplatesStorage() storage.TemplatesStorage {
	return m.templates
}

func (m *MemoryStorage) GetDayItemsStorage() storage.DayItemsStorage {
	return m.planner
}

// GetAssignmentsStorage shares its lock with the day items store so that an
// assignment commit is a single critical section.
func (m *MemoryStorage) GetAssignmentsStorage() storage.AssignmentsStorage {
	return m.planner
}

func (m *MemoryStorage) GetShoppingListsStorage() storage.ShoppingListsStorage {
	return m.shopping
}

func (m *MemoryStorage) GetProfilesStorage() storage.ProfilesStorage {
	return m.profiles
}

func (m *MemoryStorage) Close() error {
	// no-op для memory
	return nil
}
