package shopping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fdg312/plateplan/internal/blob"
	"github.com/fdg312/plateplan/internal/logging"
	"github.com/fdg312/plateplan/internal/metrics"
	"github.com/fdg312/plateplan/internal/recipes"
	"github.com/fdg312/plateplan/internal/scaling"
	"github.com/fdg312/plateplan/internal/storage"
	"github.com/fdg312/plateplan/internal/validation"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrListNotFound   = errors.New("shopping list not found")
	ErrItemNotFound   = errors.New("shopping list item not found")
	ErrExportNotFound = errors.New("export not found")
)

const exportPrefix = "shopping"

type Deps struct {
	Lists   storage.ShoppingListsStorage
	Catalog recipes.Catalog
	// Blobs receives PDF exports. Export fails when nil.
	Blobs   blob.Store
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// Service owns shopping lists and the aggregation endpoint.
type Service struct {
	lists      storage.ShoppingListsStorage
	catalog    recipes.Catalog
	aggregator *Aggregator
	blobs      blob.Store
	logger     *zap.Logger
	metrics    *metrics.Collector
	now        func() time.Time
}

func NewService(d Deps) *Service {
	return &Service{
		lists:      d.Lists,
		catalog:    d.Catalog,
		aggregator: NewAggregator(d.Catalog),
		blobs:      d.Blobs,
		logger:     logging.OrNop(d.Logger),
		metrics:    d.Metrics,
		now:        time.Now,
	}
}

func (s *Service) Aggregate(ctx context.Context, req AggregateRequest) ([]Line, error) {
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}
	return s.aggregator.Aggregate(ctx, req.Selections)
}

func (s *Service) CreateList(ctx context.Context, ownerUserID string, req CreateListRequest) (*ListDTO, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	list, err := s.lists.CreateList(ctx, storage.ShoppingList{OwnerUserID: ownerUserID, Name: req.Name})
	if err != nil {
		return nil, fmt.Errorf("failed to create shopping list: %w", err)
	}
	dto := toListDTO(list)
	return &dto, nil
}

func (s *Service) ListLists(ctx context.Context, ownerUserID string) ([]ListDTO, error) {
	lists, err := s.lists.ListLists(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping lists: %w", err)
	}
	out := make([]ListDTO, len(lists))
	for i, l := range lists {
		out[i] = toListDTO(l)
	}
	return out, nil
}

func (s *Service) GetList(ctx context.Context, ownerUserID, listID string) (*ListDetailDTO, error) {
	list, err := s.ownedList(ctx, ownerUserID, listID)
	if err != nil {
		return nil, err
	}
	items, err := s.lists.ListListItems(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	atts, err := s.lists.ListAttachments(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipe attachments: %w", err)
	}

	detail := &ListDetailDTO{
		ListDTO: toListDTO(list),
		Items:   toItemDTOs(items),
		Recipes: make([]AttachmentDTO, len(atts)),
	}
	for i, a := range atts {
		detail.Recipes[i] = AttachmentDTO{RecipeID: a.RecipeID, People: a.People, CreatedAt: a.CreatedAt}
	}
	return detail, nil
}

// DeleteList removes the list together with its items and attachments.
func (s *Service) DeleteList(ctx context.Context, ownerUserID, listID string) error {
	deleted, err := s.lists.DeleteList(ctx, ownerUserID, listID)
	if err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrListNotFound, listID)
	}
	return nil
}

func (s *Service) AddItem(ctx context.Context, ownerUserID, listID string, req AddItemRequest) (*ItemDTO, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}
	list, err := s.ownedList(ctx, ownerUserID, listID)
	if err != nil {
		return nil, err
	}

	item, err := s.lists.AddListItem(ctx, storage.ShoppingListItem{
		ListID:   list.ID,
		Name:     req.Name,
		Quantity: req.Quantity,
		Unit:     normalizeUnit(req.Unit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add item: %w", err)
	}
	dto := toItemDTO(item)
	return &dto, nil
}

func (s *Service) DeleteItem(ctx context.Context, ownerUserID, listID, itemID string) error {
	list, err := s.ownedList(ctx, ownerUserID, listID)
	if err != nil {
		return err
	}
	deleted, err := s.lists.DeleteListItem(ctx, list.ID, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return nil
}

// AttachRecipe stores the recipe's ingredients scaled for people servings.
// Attaching the same recipe again replaces the earlier rows.
func (s *Service) AttachRecipe(ctx context.Context, ownerUserID, listID string, req AttachRecipeRequest) (*AttachRecipeResponse, error) {
	req.RecipeID = strings.TrimSpace(req.RecipeID)
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}
	list, err := s.ownedList(ctx, ownerUserID, listID)
	if err != nil {
		return nil, err
	}
	recipe, err := s.catalog.GetRecipe(ctx, req.RecipeID)
	if err != nil {
		return nil, err
	}

	scaled, err := scaling.Scale(*recipe, float64(req.People))
	if err != nil {
		return nil, err
	}

	recipeID := recipe.ID
	people := req.People
	rows := make([]storage.ShoppingListItem, len(scaled.Ingredients))
	for i, ing := range scaled.Ingredients {
		rows[i] = storage.ShoppingListItem{
			Name:           strings.TrimSpace(ing.Name),
			Quantity:       round3(ing.Quantity),
			Unit:           normalizeUnit(ing.Unit),
			SourceRecipeID: &recipeID,
			People:         &people,
		}
	}

	attachment := storage.ShoppingListRecipe{ListID: list.ID, RecipeID: recipeID, People: people}
	stored, err := s.lists.AttachRecipe(ctx, attachment, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to attach recipe: %w", err)
	}

	return &AttachRecipeResponse{
		Attachment: AttachmentDTO{RecipeID: recipeID, People: people, CreatedAt: s.now().UTC()},
		Items:      toItemDTOs(stored),
	}, nil
}

// DetachRecipe drops the attachment and its rows. Detaching a recipe that
// is not attached is a no-op.
func (s *Service) DetachRecipe(ctx context.Context, ownerUserID, listID, recipeID string) error {
	list, err := s.ownedList(ctx, ownerUserID, listID)
	if err != nil {
		return err
	}
	removed, err := s.lists.DetachRecipe(ctx, list.ID, recipeID)
	if err != nil {
		return fmt.Errorf("failed to detach recipe: %w", err)
	}
	if !removed {
		s.logger.Debug("detach of unattached recipe", zap.String("list_id", list.ID), zap.String("recipe_id", recipeID))
	}
	return nil
}

// Merged returns the list's items merged by name and unit.
func (s *Service) Merged(ctx context.Context, ownerUserID, listID string) ([]Line, error) {
	list, err := s.ownedList(ctx, ownerUserID, listID)
	if err != nil {
		return nil, err
	}
	return s.merged(ctx, list)
}

func (s *Service) merged(ctx context.Context, list storage.ShoppingList) ([]Line, error) {
	items, err := s.lists.ListListItems(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	lines := make([]Line, len(items))
	for i, it := range items {
		lines[i] = Line{Name: it.Name, Quantity: it.Quantity, Unit: it.Unit}
	}
	return Merge(lines)
}

// Export renders the merged view to PDF and uploads it to the blob store.
func (s *Service) Export(ctx context.Context, ownerUserID, listID string) (*ExportDTO, error) {
	if s.blobs == nil {
		return nil, errors.New("exports are not configured")
	}
	list, err := s.ownedList(ctx, ownerUserID, listID)
	if err != nil {
		return nil, err
	}
	lines, err := s.merged(ctx, list)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	data, err := renderPDF(list, lines, now)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s/%s/%s.pdf", exportPrefix, ownerSegment(ownerUserID), list.ID, uuid.New().String())
	size, err := s.blobs.PutObject(ctx, key, data, "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to upload export: %w", err)
	}
	url, err := s.blobs.URL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to build export url: %w", err)
	}
	s.metrics.ShoppingExport()

	s.logger.Info("shopping list exported",
		zap.String("owner", ownerUserID),
		zap.String("list_id", list.ID),
		zap.String("key", key),
		zap.Int64("size_bytes", size),
	)

	return &ExportDTO{Key: key, URL: url, SizeBytes: size, CreatedAt: now}, nil
}

// Download returns an export the owner produced earlier.
func (s *Service) Download(ctx context.Context, ownerUserID, key string) ([]byte, error) {
	if s.blobs == nil || !strings.HasPrefix(key, exportPrefix+"/"+ownerSegment(ownerUserID)+"/") {
		return nil, fmt.Errorf("%w: %s", ErrExportNotFound, key)
	}
	data, err := s.blobs.GetObject(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrExportNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	return data, nil
}

func (s *Service) ownedList(ctx context.Context, ownerUserID, listID string) (storage.ShoppingList, error) {
	list, found, err := s.lists.GetList(ctx, ownerUserID, listID)
	if err != nil {
		return storage.ShoppingList{}, fmt.Errorf("failed to get shopping list: %w", err)
	}
	if !found {
		return storage.ShoppingList{}, fmt.Errorf("%w: %s", ErrListNotFound, listID)
	}
	return list, nil
}

// ownerSegment is a stable path-safe stand-in for the owner id.
func ownerSegment(ownerUserID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("plateplan:"+ownerUserID)).String()
}
