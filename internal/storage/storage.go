package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	MealSlotBreakfast = "breakfast"
	MealSlotLunch     = "lunch"
	MealSlotDinner    = "dinner"
	MealSlotSnack     = "snack"
)

// MealSlots lists slots in display order.
var MealSlots = []string{MealSlotBreakfast, MealSlotLunch, MealSlotDinner, MealSlotSnack}

func IsValidMealSlot(slot string) bool {
	for _, s := range MealSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// MealSlotRank orders slots breakfast..snack; unknown slots sort last.
func MealSlotRank(slot string) int {
	for i, s := range MealSlots {
		if s == slot {
			return i
		}
	}
	return len(MealSlots)
}

const (
	DayItemSourceManual = "manual"
	DayItemSourceAuto   = "auto"
	DayItemSourcePlan   = "plan"
)

const DateLayout = "2006-01-02"

// Storage bundles every store the engine needs. Implemented by memory and postgres.
type Storage interface {
	GetRecipesStorage() RecipesStorage
	GetTemplatesStorage() TemplatesStorage
	GetDayItemsStorage() DayItemsStorage
	GetAssignmentsStorage() AssignmentsStorage
	GetShoppingListsStorage() ShoppingListsStorage
	GetProfilesStorage() ProfilesStorage

	// Close закрывает соединение (для Postgres)
	Close() error
}

// Macros holds calories and grams of protein, carbs and fat.
type Macros struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		ProteinG: m.ProteinG + o.ProteinG,
		CarbsG:   m.CarbsG + o.CarbsG,
		FatG:     m.FatG + o.FatG,
	}
}

func (m Macros) Sub(o Macros) Macros {
	return Macros{
		Calories: m.Calories - o.Calories,
		ProteinG: m.ProteinG - o.ProteinG,
		CarbsG:   m.CarbsG - o.CarbsG,
		FatG:     m.FatG - o.FatG,
	}
}

func (m Macros) Scale(k float64) Macros {
	return Macros{
		Calories: m.Calories * k,
		ProteinG: m.ProteinG * k,
		CarbsG:   m.CarbsG * k,
		FatG:     m.FatG * k,
	}
}

// Ingredient is one line of a recipe. A nil Unit means "no unit" and is
// distinct from any explicit unit.
type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"qty"`
	Unit     *string `json:"unit"`
}

// ============================================================================
// Recipe catalog
// ============================================================================

type Recipe struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	MealSlot    string       `json:"meal_slot"`
	PerServing  Macros       `json:"per_serving"`
	Ingredients []Ingredient `json:"ingredients"`
	Tags        []string     `json:"tags,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type RecipeFilter struct {
	MealSlot string
	Query    string
	Limit    int
}

// RecipesStorage is the read side of the recipe catalog. UpsertRecipe exists for seeding only.
type RecipesStorage interface {
	GetRecipe(ctx context.Context, id string) (Recipe, bool, error)
	ListRecipes(ctx context.Context, filter RecipeFilter) ([]Recipe, error)
	UpsertRecipe(ctx context.Context, recipe Recipe) error
}

// ============================================================================
// Plan templates
// ============================================================================

const (
	TierFree    = "free"
	TierPremium = "premium"
)

type PlanTemplate struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tier        string     `json:"tier"`
	Items       []PlanItem `json:"items"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PlanItem places a recipe on a weekday. DayOfWeek is 0=Monday .. 6=Sunday.
type PlanItem struct {
	Position          int     `json:"position"`
	DayOfWeek         int     `json:"day_of_week"`
	MealSlot          string  `json:"meal_slot"`
	RecipeID          string  `json:"recipe_id"`
	DefaultMultiplier float64 `json:"default_multiplier"`
}

type TemplatesStorage interface {
	GetTemplate(ctx context.Context, id string) (PlanTemplate, bool, error)
	ListTemplates(ctx context.Context) ([]PlanTemplate, error)
	// UpsertTemplate replaces the template and all of its items.
	UpsertTemplate(ctx context.Context, template PlanTemplate) error
}

// ============================================================================
// Day planner
// ============================================================================

// DayItem is one recipe placed on a date and meal slot. Scaled macros are
// derived on read and never stored.
type DayItem struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"-"`
	Date        time.Time `json:"-"`
	MealSlot    string    `json:"meal_slot"`
	RecipeID    string    `json:"recipe_id"`
	Multiplier  float64   `json:"multiplier"`
	Source      string    `json:"source"`
	TemplateID  *string   `json:"template_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DateKey returns the Y-M-D form of the item date.
func (d DayItem) DateKey() string {
	return d.Date.Format(DateLayout)
}

type DayItemsStorage interface {
	ListDayItems(ctx context.Context, ownerUserID string, date time.Time) ([]DayItem, error)
	// ListDayItemsRange returns items with from <= date < to, ordered by date then slot.
	ListDayItemsRange(ctx context.Context, ownerUserID string, from, to time.Time) ([]DayItem, error)
	GetDayItem(ctx context.Context, ownerUserID string, id string) (DayItem, bool, error)
	CreateDayItem(ctx context.Context, item DayItem) (DayItem, error)
	UpdateDayItemMultiplier(ctx context.Context, ownerUserID string, id string, multiplier float64) (DayItem, bool, error)
	// DeleteDayItem reports whether a row was removed.
	DeleteDayItem(ctx context.Context, ownerUserID string, id string) (bool, error)
}

// ============================================================================
// Plan assignments
// ============================================================================

// PlanAssignment binds a template to a user's calendar over [StartDate, EndDate).
type PlanAssignment struct {
	OwnerUserID string    `json:"-"`
	TemplateID  string    `json:"plan_id"`
	StartDate   time.Time `json:"-"`
	EndDate     time.Time `json:"-"`
	Weeks       int       `json:"weeks"`
	Overwrite   bool      `json:"overwrite"`
	AutoScale   bool      `json:"auto_scale"`
	CreatedAt   time.Time `json:"created_at"`
}

// PendingWrite is one DayItem insertion produced by plan expansion.
// With Overwrite the occupant of (date, slot) is removed first; without it
// the write is skipped when the slot is occupied.
type PendingWrite struct {
	Item      DayItem
	Overwrite bool
}

// ErrInvalidWrite rejects an assignment batch before anything is written.
var ErrInvalidWrite = errors.New("invalid pending write")

// CheckWrites verifies that every write belongs to owner and carries a
// finite positive multiplier.
func CheckWrites(ownerUserID string, writes []PendingWrite) error {
	for i, w := range writes {
		if w.Item.OwnerUserID != ownerUserID {
			return fmt.Errorf("%w: write %d: owner mismatch", ErrInvalidWrite, i)
		}
		if m := w.Item.Multiplier; !(m > 0) || math.IsInf(m, 0) {
			return fmt.Errorf("%w: write %d: multiplier must be positive, got %v", ErrInvalidWrite, i, m)
		}
	}
	return nil
}

// ApplyReport counts what a commit did.
type ApplyReport struct {
	Created  int
	Replaced int
	Skipped  int
	Items    []DayItem
}

type AssignmentsStorage interface {
	GetAssignment(ctx context.Context, ownerUserID string) (PlanAssignment, bool, error)
	DeleteAssignment(ctx context.Context, ownerUserID string) error
	// ApplyAssignment applies writes in order and stores the assignment in a
	// single all-or-nothing commit.
	ApplyAssignment(ctx context.Context, assignment PlanAssignment, writes []PendingWrite) (ApplyReport, error)
}

// ============================================================================
// Shopping lists
// ============================================================================

type ShoppingList struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"-"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ShoppingListItem is either free-form (SourceRecipeID nil) or derived from
// an attached recipe scaled for People servings.
type ShoppingListItem struct {
	ID             string    `json:"id"`
	ListID         string    `json:"list_id"`
	Name           string    `json:"name"`
	Quantity       float64   `json:"qty"`
	Unit           *string   `json:"unit"`
	SourceRecipeID *string   `json:"source_recipe_id,omitempty"`
	People         *int      `json:"people,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ShoppingListRecipe struct {
	ListID    string    `json:"list_id"`
	RecipeID  string    `json:"recipe_id"`
	People    int       `json:"people"`
	CreatedAt time.Time `json:"created_at"`
}

type ShoppingListsStorage interface {
	CreateList(ctx context.Context, list ShoppingList) (ShoppingList, error)
	GetList(ctx context.Context, ownerUserID string, id string) (ShoppingList, bool, error)
	ListLists(ctx context.Context, ownerUserID string) ([]ShoppingList, error)
	// DeleteList removes the list with its items and recipe attachments.
	DeleteList(ctx context.Context, ownerUserID string, id string) (bool, error)

	AddListItem(ctx context.Context, item ShoppingListItem) (ShoppingListItem, error)
	ListListItems(ctx context.Context, listID string) ([]ShoppingListItem, error)
	DeleteListItem(ctx context.Context, listID string, itemID string) (bool, error)

	// AttachRecipe replaces any previous attachment of the same recipe and its derived items.
	AttachRecipe(ctx context.Context, attachment ShoppingListRecipe, items []ShoppingListItem) ([]ShoppingListItem, error)
	DetachRecipe(ctx context.Context, listID string, recipeID string) (bool, error)
	ListAttachments(ctx context.Context, listID string) ([]ShoppingListRecipe, error)
}

// ============================================================================
// Profiles
// ============================================================================

// Profile holds the body data used for target resolution and the
// subscription status owned by billing. Every body field is optional.
type Profile struct {
	OwnerUserID        string     `json:"-"`
	Sex                *string    `json:"sex"`
	BirthDate          *time.Time `json:"-"`
	HeightCM           *float64   `json:"height_cm"`
	WeightKG           *float64   `json:"weight_kg"`
	ActivityLevel      *string    `json:"activity_level"`
	Goal               *string    `json:"goal"`
	TargetCalories     *float64   `json:"target_calories"`
	TargetProteinG     *float64   `json:"target_protein_g"`
	TargetCarbsG       *float64   `json:"target_carbs_g"`
	TargetFatG         *float64   `json:"target_fat_g"`
	SubscriptionStatus string     `json:"subscription_status"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type ProfilesStorage interface {
	GetProfile(ctx context.Context, ownerUserID string) (Profile, bool, error)
	// UpsertProfile stores body data; SubscriptionStatus is left untouched.
	UpsertProfile(ctx context.Context, profile Profile) (Profile, error)
	SetSubscriptionStatus(ctx context.Context, ownerUserID string, status string) error
}
