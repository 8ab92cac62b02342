// Package planner owns a user's per-date list of planned meals.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fdg312/plateplan/internal/access"
	"github.com/fdg312/plateplan/internal/logging"
	"github.com/fdg312/plateplan/internal/metrics"
	"github.com/fdg312/plateplan/internal/recipes"
	"github.com/fdg312/plateplan/internal/scaling"
	"github.com/fdg312/plateplan/internal/storage"
	"github.com/fdg312/plateplan/internal/validation"
)

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrItemNotFound     = errors.New("item not found")
	ErrTemplateNotFound = errors.New("plan not found")
)

// TargetsProvider resolves a user's daily targets; nil means unconstrained.
type TargetsProvider interface {
	Targets(ctx context.Context, ownerUserID string) (*storage.Macros, error)
}

// Service handles day planner business logic.
type Service struct {
	items     storage.DayItemsStorage
	templates storage.TemplatesStorage
	catalog   recipes.Catalog
	targets   TargetsProvider
	gate      *access.Gate
	logger    *zap.Logger
	metrics   *metrics.Collector
}

type Deps struct {
	Items     storage.DayItemsStorage
	Templates storage.TemplatesStorage
	Catalog   recipes.Catalog
	Targets   TargetsProvider
	Gate      *access.Gate
	Logger    *zap.Logger
	Metrics   *metrics.Collector
}

func NewService(d Deps) *Service {
	return &Service{
		items:     d.Items,
		templates: d.Templates,
		catalog:   d.Catalog,
		targets:   d.Targets,
		gate:      d.Gate,
		logger:    logging.OrNop(d.Logger),
		metrics:   d.Metrics,
	}
}

// AddItem places a recipe on a date. Every check runs before the single
// write, so a failed call persists nothing.
func (s *Service) AddItem(ctx context.Context, ownerUserID string, req AddItemRequest) (*DayItemDTO, error) {
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	date, err := validation.ParseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date", ErrInvalidRequest)
	}
	if req.Multiplier != nil && !req.AutoScale {
		if err := scaling.ValidateMultiplier(*req.Multiplier); err != nil {
			return nil, err
		}
	}

	multiplier := scaling.DefaultMultiplier
	source := storage.DayItemSourceManual
	var templateID *string
	var planSlot string

	if req.PlanID != nil && strings.TrimSpace(*req.PlanID) != "" {
		planItem, err := s.checkPlanItem(ctx, ownerUserID, strings.TrimSpace(*req.PlanID), req.RecipeID)
		if err != nil {
			return nil, err
		}
		id := strings.TrimSpace(*req.PlanID)
		templateID = &id
		source = storage.DayItemSourcePlan
		multiplier = planItem.DefaultMultiplier
		planSlot = planItem.MealSlot
	}

	recipe, err := s.catalog.GetRecipe(ctx, req.RecipeID)
	if err != nil {
		return nil, err
	}

	slot := req.MealType
	if slot == "" {
		slot = planSlot
	}
	if slot == "" {
		slot = recipe.MealSlot
	}

	switch {
	case req.AutoScale:
		budget, err := s.residualBudget(ctx, ownerUserID, date)
		if err != nil {
			return nil, err
		}
		multiplier = scaling.AutoMultiplier(recipe.PerServing.Calories, budget)
		source = storage.DayItemSourceAuto
		s.metrics.AutoMultiplier(multiplier)
	case req.Multiplier != nil:
		multiplier = *req.Multiplier
	}

	item, err := s.items.CreateDayItem(ctx, storage.DayItem{
		OwnerUserID: ownerUserID,
		Date:        date,
		MealSlot:    slot,
		RecipeID:    recipe.ID,
		Multiplier:  multiplier,
		Source:      source,
		TemplateID:  templateID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create day item: %w", err)
	}
	s.metrics.DayItemsWritten(source, 1)

	dto := toDTO(item, recipe)
	return &dto, nil
}

// checkPlanItem gates adding a single item from a template and returns the
// template entry for the recipe.
func (s *Service) checkPlanItem(ctx context.Context, ownerUserID, planID, recipeID string) (storage.PlanItem, error) {
	tpl, found, err := s.templates.GetTemplate(ctx, planID)
	if err != nil {
		return storage.PlanItem{}, fmt.Errorf("failed to get plan template: %w", err)
	}
	if !found {
		return storage.PlanItem{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, planID)
	}
	if err := s.gate.Check(ctx, ownerUserID, tpl.Tier); err != nil {
		return storage.PlanItem{}, err
	}
	for _, item := range tpl.Items {
		if item.RecipeID == recipeID {
			return item, nil
		}
	}
	return storage.PlanItem{}, fmt.Errorf("%w: recipe %s is not part of plan %s", ErrInvalidRequest, recipeID, planID)
}

func (s *Service) residualBudget(ctx context.Context, ownerUserID string, date time.Time) (*scaling.Budget, error) {
	targets, err := s.targets.Targets(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve targets: %w", err)
	}
	if targets == nil {
		return nil, nil
	}
	planned, err := s.DailyTotals(ctx, ownerUserID, date)
	if err != nil {
		return nil, err
	}
	return scaling.NewBudget(targets, planned), nil
}

// UpdateMultiplier replaces an item's multiplier.
func (s *Service) UpdateMultiplier(ctx context.Context, ownerUserID, itemID string, multiplier float64) (*DayItemDTO, error) {
	if err := scaling.ValidateMultiplier(multiplier); err != nil {
		return nil, err
	}

	item, found, err := s.items.UpdateDayItemMultiplier(ctx, ownerUserID, itemID, multiplier)
	if err != nil {
		return nil, fmt.Errorf("failed to update day item: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	recipe, err := s.catalog.GetRecipe(ctx, item.RecipeID)
	if err != nil && !errors.Is(err, recipes.ErrRecipeNotFound) {
		return nil, err
	}
	dto := toDTO(item, recipe)
	return &dto, nil
}

// RemoveItem deletes an item. Removing an absent item succeeds.
func (s *Service) RemoveItem(ctx context.Context, ownerUserID, itemID string) error {
	removed, err := s.items.DeleteDayItem(ctx, ownerUserID, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete day item: %w", err)
	}
	if !removed {
		s.logger.Debug("remove of absent day item", zap.String("owner", ownerUserID), zap.String("item_id", itemID))
	}
	return nil
}

// DailyTotals sums the scaled macros of every item on date. It reads
// storage on every call.
func (s *Service) DailyTotals(ctx context.Context, ownerUserID string, date time.Time) (storage.Macros, error) {
	items, err := s.items.ListDayItems(ctx, ownerUserID, date)
	if err != nil {
		return storage.Macros{}, fmt.Errorf("failed to list day items: %w", err)
	}
	return s.SumMacros(ctx, items)
}

// SumMacros adds up the scaled macros of items. Items whose recipe left the
// catalog contribute nothing.
func (s *Service) SumMacros(ctx context.Context, items []storage.DayItem) (storage.Macros, error) {
	var total storage.Macros
	cache := make(map[string]*storage.Recipe)
	for _, item := range items {
		recipe, err := s.recipe(ctx, cache, item.RecipeID)
		if err != nil {
			return storage.Macros{}, err
		}
		if recipe == nil {
			continue
		}
		total = total.Add(recipe.PerServing.Scale(item.Multiplier))
	}
	return total, nil
}

// GetDay returns the items of a date with totals and the remaining budget.
func (s *Service) GetDay(ctx context.Context, ownerUserID string, date time.Time) (*DayView, error) {
	items, err := s.items.ListDayItems(ctx, ownerUserID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list day items: %w", err)
	}

	view := &DayView{
		Date:  date.Format(storage.DateLayout),
		Items: make([]DayItemDTO, 0, len(items)),
	}

	cache := make(map[string]*storage.Recipe)
	for _, item := range items {
		recipe, err := s.recipe(ctx, cache, item.RecipeID)
		if err != nil {
			return nil, err
		}
		dto := toDTO(item, recipe)
		view.Totals = view.Totals.Add(dto.Macros)
		view.Items = append(view.Items, dto)
	}

	targets, err := s.targets.Targets(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve targets: %w", err)
	}
	if targets != nil {
		view.Targets = targets
		view.Remaining = &scaling.NewBudget(targets, view.Totals).Remaining
	}
	return view, nil
}

// recipe memoizes catalog lookups for one call. A missing recipe is nil.
func (s *Service) recipe(ctx context.Context, cache map[string]*storage.Recipe, id string) (*storage.Recipe, error) {
	if r, ok := cache[id]; ok {
		return r, nil
	}
	r, err := s.catalog.GetRecipe(ctx, id)
	if errors.Is(err, recipes.ErrRecipeNotFound) {
		s.logger.Warn("day item references unknown recipe", zap.String("recipe_id", id))
		r, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	cache[id] = r
	return r, nil
}

func toDTO(item storage.DayItem, recipe *storage.Recipe) DayItemDTO {
	dto := DayItemDTO{
		ID:         item.ID,
		Date:       item.DateKey(),
		MealSlot:   item.MealSlot,
		RecipeID:   item.RecipeID,
		Multiplier: item.Multiplier,
		Source:     item.Source,
		TemplateID: item.TemplateID,
		CreatedAt:  item.CreatedAt,
		UpdatedAt:  item.UpdatedAt,
	}
	if recipe != nil {
		dto.RecipeTitle = recipe.Title
		dto.Macros = recipe.PerServing.Scale(item.Multiplier)
	}
	return dto
}
