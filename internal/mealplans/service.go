// Package mealplans assigns plan templates onto a user's calendar.
package mealplans

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
	"github.com/fdg312/plateplan/internal/planner"
	"github.com/fdg312/plateplan/internal/recipes"
	"github.com/fdg312/plateplan/internal/scaling"
	"github.com/fdg312/plateplan/internal/storage"
	"github.com/fdg312/plateplan/internal/validation"
)

var (
	ErrInvalidRange     = errors.New("invalid range")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrTemplateNotFound = errors.New("plan not found")
)

// Service handles plan templates and assignments.
type Service struct {
	templates   storage.TemplatesStorage
	items       storage.DayItemsStorage
	assignments storage.AssignmentsStorage
	catalog     recipes.Catalog
	planner     *planner.Service
	targets     planner.TargetsProvider
	gate        *access.Gate
	logger      *zap.Logger
	metrics     *metrics.Collector
	now         func() time.Time
}

type Deps struct {
	Templates   storage.TemplatesStorage
	Items       storage.DayItemsStorage
	Assignments storage.AssignmentsStorage
	Catalog     recipes.Catalog
	Planner     *planner.Service
	Targets     planner.TargetsProvider
	Gate        *access.Gate
	Logger      *zap.Logger
	Metrics     *metrics.Collector
}

func NewService(d Deps) *Service {
	return &Service{
		templates:   d.Templates,
		items:       d.Items,
		assignments: d.Assignments,
		catalog:     d.Catalog,
		planner:     d.Planner,
		targets:     d.Targets,
		gate:        d.Gate,
		logger:      logging.OrNop(d.Logger),
		metrics:     d.Metrics,
		now:         time.Now,
	}
}

// Assign expands a template over [start, start+weeks*7) and commits every
// resulting day item together with the assignment record in one unit.
// All validation happens before the commit.
func (s *Service) Assign(ctx context.Context, ownerUserID string, req AssignRequest) (*AssignmentResult, error) {
	result, err := s.assign(ctx, ownerUserID, req)
	switch {
	case err == nil:
		s.metrics.AssignmentOutcome("ok")
	case errors.Is(err, access.ErrPlanLocked):
		s.metrics.AssignmentOutcome("locked")
	case errors.Is(err, ErrInvalidRange), errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrTemplateNotFound),
		errors.Is(err, recipes.ErrRecipeNotFound), errors.Is(err, scaling.ErrInvalidMultiplier):
		s.metrics.AssignmentOutcome("invalid")
	default:
		s.metrics.AssignmentOutcome("error")
	}
	return result, err
}

func (s *Service) assign(ctx context.Context, ownerUserID string, req AssignRequest) (*AssignmentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start, err := validation.ParseDate(req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start_date must be a valid YYYY-MM-DD date", ErrInvalidRange)
	}
	end := EndDate(start, req.Weeks)
	planID := strings.TrimSpace(req.PlanID)

	tpl, found, err := s.templates.GetTemplate(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan template: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, planID)
	}
	if err := s.gate.Check(ctx, ownerUserID, tpl.Tier); err != nil {
		return nil, err
	}

	recipesByID, err := s.resolveRecipes(ctx, tpl)
	if err != nil {
		return nil, err
	}

	tuples := Expand(tpl.Items, start, req.Weeks)
	if req.AutoScale {
		if err := s.autoScale(ctx, ownerUserID, tuples, recipesByID, start, end, req.Overwrite); err != nil {
			return nil, err
		}
	}

	templateID := tpl.ID
	writes := make([]storage.PendingWrite, len(tuples))
	for i, t := range tuples {
		writes[i] = storage.PendingWrite{
			Item: storage.DayItem{
				OwnerUserID: ownerUserID,
				Date:        t.Date,
				MealSlot:    t.MealSlot,
				RecipeID:    t.RecipeID,
				Multiplier:  t.Multiplier,
				Source:      storage.DayItemSourcePlan,
				TemplateID:  &templateID,
			},
			Overwrite: req.Overwrite,
		}
	}

	assignment := storage.PlanAssignment{
		OwnerUserID: ownerUserID,
		TemplateID:  tpl.ID,
		StartDate:   start,
		EndDate:     end,
		Weeks:       req.Weeks,
		Overwrite:   req.Overwrite,
		AutoScale:   req.AutoScale,
	}

	applied, err := s.assignments.ApplyAssignment(ctx, assignment, writes)
	if err != nil {
		return nil, fmt.Errorf("failed to apply assignment: %w", err)
	}
	s.metrics.DayItemsWritten(storage.DayItemSourcePlan, applied.Created)

	stored, found, err := s.assignments.GetAssignment(ctx, ownerUserID)
	if err != nil || !found {
		stored = assignment
	}

	s.logger.Info("plan assigned",
		zap.String("owner", ownerUserID),
		zap.String("plan_id", tpl.ID),
		zap.String("start_date", start.Format(storage.DateLayout)),
		zap.Int("weeks", req.Weeks),
		zap.Bool("overwrite", req.Overwrite),
		zap.Int("created", applied.Created),
		zap.Int("replaced", applied.Replaced),
		zap.Int("skipped", applied.Skipped),
	)

	return &AssignmentResult{
		Assignment: toAssignmentDTO(stored, tpl.Title),
		Report: AssignmentReport{
			Created:  applied.Created,
			Replaced: applied.Replaced,
			Skipped:  applied.Skipped,
			Dates:    distinctDates(applied.Items),
		},
	}, nil
}

// resolveRecipes loads every recipe a template references and checks the
// default multipliers.
func (s *Service) resolveRecipes(ctx context.Context, tpl storage.PlanTemplate) (map[string]*storage.Recipe, error) {
	out := make(map[string]*storage.Recipe)
	for _, item := range tpl.Items {
		if err := scaling.ValidateMultiplier(item.DefaultMultiplier); err != nil {
			return nil, fmt.Errorf("plan %s item %d: %w", tpl.ID, item.Position, err)
		}
		if _, ok := out[item.RecipeID]; ok {
			continue
		}
		recipe, err := s.catalog.GetRecipe(ctx, item.RecipeID)
		if err != nil {
			return nil, err
		}
		out[item.RecipeID] = recipe
	}
	return out, nil
}

// autoScale rewrites tuple multipliers against each day's residual budget.
// The budget starts from targets minus the macros of items that survive the
// assignment and is threaded through the day's tuples in order. Tuples that
// will not persist do not spend it.
func (s *Service) autoScale(ctx context.Context, ownerUserID string, tuples []Tuple, recipesByID map[string]*storage.Recipe, start, end time.Time, overwrite bool) error {
	targets, err := s.targets.Targets(ctx, ownerUserID)
	if err != nil {
		return fmt.Errorf("failed to resolve targets: %w", err)
	}

	existing, err := s.items.ListDayItemsRange(ctx, ownerUserID, start, end)
	if err != nil {
		return fmt.Errorf("failed to list day items: %w", err)
	}

	type slotKey struct {
		date string
		slot string
	}
	occupied := make(map[slotKey]bool)
	for _, item := range existing {
		occupied[slotKey{item.DateKey(), item.MealSlot}] = true
	}

	// Which tuple ends up in each (date, slot).
	survivor := make(map[slotKey]int)
	for i, t := range tuples {
		key := slotKey{t.Date.Format(storage.DateLayout), t.MealSlot}
		if overwrite {
			survivor[key] = i
			continue
		}
		if _, taken := survivor[key]; !taken && !occupied[key] {
			survivor[key] = i
		}
	}

	touched := make(map[slotKey]bool, len(survivor))
	for key := range survivor {
		touched[key] = true
	}
	baseline := make(map[string][]storage.DayItem)
	for _, item := range existing {
		key := slotKey{item.DateKey(), item.MealSlot}
		if overwrite && touched[key] {
			continue
		}
		baseline[key.date] = append(baseline[key.date], item)
	}

	budgets := make(map[string]*scaling.Budget)
	for i := range tuples {
		t := &tuples[i]
		date := t.Date.Format(storage.DateLayout)

		budget, ok := budgets[date]
		if !ok {
			planned, err := s.planner.SumMacros(ctx, baseline[date])
			if err != nil {
				return err
			}
			budget = scaling.NewBudget(targets, planned)
		}

		recipe := recipesByID[t.RecipeID]
		t.Multiplier = scaling.AutoMultiplier(recipe.PerServing.Calories, budget)
		s.metrics.AutoMultiplier(t.Multiplier)

		if idx, ok := survivor[slotKey{date, t.MealSlot}]; ok && idx == i {
			budget = budget.Spend(recipe.PerServing.Scale(t.Multiplier))
		}
		budgets[date] = budget
	}
	return nil
}

// Current reports the user's assignment as of today.
func (s *Service) Current(ctx context.Context, ownerUserID string, today time.Time) (*Current, error) {
	a, found, err := s.assignments.GetAssignment(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if !found {
		return &Current{State: StateNone}, nil
	}

	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	var state State
	switch {
	case day.Before(a.StartDate):
		state = StateScheduled
	case day.Before(a.EndDate):
		state = StateActive
	default:
		return &Current{State: StateNone}, nil
	}

	title := ""
	if tpl, ok, err := s.templates.GetTemplate(ctx, a.TemplateID); err == nil && ok {
		title = tpl.Title
	}
	dto := toAssignmentDTO(a, title)
	return &Current{State: state, Assignment: &dto}, nil
}

// Clear drops the assignment reference. Materialized day items stay.
func (s *Service) Clear(ctx context.Context, ownerUserID string) error {
	if err := s.assignments.DeleteAssignment(ctx, ownerUserID); err != nil {
		return fmt.Errorf("failed to clear assignment: %w", err)
	}
	return nil
}

// ListTemplates returns every template with the locked flag for this user.
func (s *Service) ListTemplates(ctx context.Context, ownerUserID string) ([]TemplateDTO, error) {
	templates, err := s.templates.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plan templates: %w", err)
	}
	status, err := s.gate.Status(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	out := make([]TemplateDTO, len(templates))
	for i, tpl := range templates {
		out[i] = TemplateDTO{
			ID:          tpl.ID,
			Title:       tpl.Title,
			Description: tpl.Description,
			Tier:        tpl.Tier,
			Locked:      !access.CanUse(status, tpl.Tier),
			ItemCount:   len(tpl.Items),
		}
	}
	return out, nil
}

// GetTemplate returns one template with its items and recipe titles.
func (s *Service) GetTemplate(ctx context.Context, ownerUserID, id string) (*TemplateDTO, error) {
	tpl, found, err := s.templates.GetTemplate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan template: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	status, err := s.gate.Status(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	dto := &TemplateDTO{
		ID:          tpl.ID,
		Title:       tpl.Title,
		Description: tpl.Description,
		Tier:        tpl.Tier,
		Locked:      !access.CanUse(status, tpl.Tier),
		ItemCount:   len(tpl.Items),
		Items:       make([]TemplateItemDTO, len(tpl.Items)),
	}
	for i, item := range tpl.Items {
		dto.Items[i] = TemplateItemDTO{
			DayOfWeek:         item.DayOfWeek,
			MealSlot:          item.MealSlot,
			RecipeID:          item.RecipeID,
			DefaultMultiplier: item.DefaultMultiplier,
		}
		recipe, err := s.catalog.GetRecipe(ctx, item.RecipeID)
		if err == nil {
			dto.Items[i].RecipeTitle = recipe.Title
		} else if !errors.Is(err, recipes.ErrRecipeNotFound) {
			return nil, err
		}
	}
	return dto, nil
}

func distinctDates(items []storage.DayItem) []string {
	seen := make(map[string]bool)
	dates := []string{}
	for _, item := range items {
		key := item.DateKey()
		if !seen[key] {
			seen[key] = true
			dates = append(dates, key)
		}
	}
	return dates
}
