// Package storagetest holds behaviour tests shared by every storage.Storage
// implementation.
package storagetest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fdg312/plateplan/internal/storage"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) storage.Storage

// Run exercises st against the storage contracts.
func Run(t *testing.T, newStore Factory) {
	t.Run("Recipes", func(t *testing.T) { testRecipes(t, newStore(t)) })
	t.Run("Templates", func(t *testing.T) { testTemplates(t, newStore(t)) })
	t.Run("DayItems", func(t *testing.T) { testDayItems(t, newStore(t)) })
	t.Run("ApplyAssignment", func(t *testing.T) { testApplyAssignment(t, newStore(t)) })
	t.Run("ShoppingLists", func(t *testing.T) { testShoppingLists(t, newStore(t)) })
	t.Run("Profiles", func(t *testing.T) { testProfiles(t, newStore(t)) })
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(storage.DateLayout, s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func ptr[T any](v T) *T { return &v }

func seedRecipes(t *testing.T, st storage.Storage) {
	t.Helper()
	ctx := context.Background()
	recipes := []storage.Recipe{
		{
			ID: "oats", Title: "Overnight Oats", MealSlot: storage.MealSlotBreakfast,
			PerServing:  storage.Macros{Calories: 350, ProteinG: 12, CarbsG: 55, FatG: 9},
			Ingredients: []storage.Ingredient{{Name: "Oats", Quantity: 50, Unit: ptr("g")}},
			Tags:        []string{"vegetarian"},
		},
		{
			ID: "bowl", Title: "Chicken Bowl", MealSlot: storage.MealSlotLunch,
			PerServing:  storage.Macros{Calories: 550, ProteinG: 40, CarbsG: 50, FatG: 15},
			Ingredients: []storage.Ingredient{{Name: "Chicken", Quantity: 150, Unit: ptr("g")}},
		},
		{
			ID: "soup", Title: "Tomato Soup", MealSlot: storage.MealSlotDinner,
			PerServing: storage.Macros{Calories: 200, ProteinG: 5, CarbsG: 30, FatG: 6},
		},
	}
	for _, r := range recipes {
		if err := st.GetRecipesStorage().UpsertRecipe(ctx, r); err != nil {
			t.Fatalf("UpsertRecipe(%s): %v", r.ID, err)
		}
	}
}

func seedTemplate(t *testing.T, st storage.Storage, id, tier string, items ...storage.PlanItem) {
	t.Helper()
	for i := range items {
		items[i].Position = i
		if items[i].DefaultMultiplier == 0 {
			items[i].DefaultMultiplier = 1
		}
	}
	tpl := storage.PlanTemplate{ID: id, Title: "Plan " + id, Tier: tier, Items: items}
	if err := st.GetTemplatesStorage().UpsertTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("UpsertTemplate(%s): %v", id, err)
	}
}

func testRecipes(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	seedRecipes(t, st)
	rs := st.GetRecipesStorage()

	got, found, err := rs.GetRecipe(ctx, "oats")
	if err != nil || !found {
		t.Fatalf("GetRecipe(oats): found=%v err=%v", found, err)
	}
	if got.PerServing.Calories != 350 || len(got.Ingredients) != 1 || *got.Ingredients[0].Unit != "g" {
		t.Errorf("unexpected recipe: %+v", got)
	}

	if _, found, err := rs.GetRecipe(ctx, "missing"); err != nil || found {
		t.Errorf("GetRecipe(missing): found=%v err=%v", found, err)
	}

	lunch, err := rs.ListRecipes(ctx, storage.RecipeFilter{MealSlot: storage.MealSlotLunch})
	if err != nil {
		t.Fatal(err)
	}
	if len(lunch) != 1 || lunch[0].ID != "bowl" {
		t.Errorf("lunch filter: got %+v", lunch)
	}

	byQuery, err := rs.ListRecipes(ctx, storage.RecipeFilter{Query: "TOMATO"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byQuery) != 1 || byQuery[0].ID != "soup" {
		t.Errorf("query filter: got %+v", byQuery)
	}

	limited, err := rs.ListRecipes(ctx, storage.RecipeFilter{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limit: got %d recipes", len(limited))
	}

	updated := got
	updated.Title = "Overnight Oats v2"
	if err := rs.UpsertRecipe(ctx, updated); err != nil {
		t.Fatal(err)
	}
	again, _, _ := rs.GetRecipe(ctx, "oats")
	if again.Title != "Overnight Oats v2" {
		t.Errorf("upsert did not replace title: %q", again.Title)
	}
}

func testTemplates(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	seedRecipes(t, st)
	seedTemplate(t, st, "zeta", storage.TierPremium,
		storage.PlanItem{DayOfWeek: 0, MealSlot: storage.MealSlotBreakfast, RecipeID: "oats"})
	seedTemplate(t, st, "alpha", storage.TierFree,
		storage.PlanItem{DayOfWeek: 2, MealSlot: storage.MealSlotLunch, RecipeID: "bowl"},
		storage.PlanItem{DayOfWeek: 0, MealSlot: storage.MealSlotBreakfast, RecipeID: "oats", DefaultMultiplier: 1.5})

	ts := st.GetTemplatesStorage()
	got, found, err := ts.GetTemplate(ctx, "alpha")
	if err != nil || !found {
		t.Fatalf("GetTemplate: found=%v err=%v", found, err)
	}
	if len(got.Items) != 2 || got.Items[0].RecipeID != "bowl" || got.Items[1].DefaultMultiplier != 1.5 {
		t.Errorf("items not kept in position order: %+v", got.Items)
	}

	list, err := ts.ListTemplates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "alpha" {
		t.Errorf("expected free templates first, got %+v", list)
	}

	// Upsert replaces the item list.
	seedTemplate(t, st, "alpha", storage.TierFree,
		storage.PlanItem{DayOfWeek: 6, MealSlot: storage.MealSlotDinner, RecipeID: "soup"})
	got, _, _ = ts.GetTemplate(ctx, "alpha")
	if len(got.Items) != 1 || got.Items[0].RecipeID != "soup" {
		t.Errorf("upsert did not replace items: %+v", got.Items)
	}

	if _, found, err := ts.GetTemplate(ctx, "ghost"); err != nil || found {
		t.Errorf("GetTemplate(ghost): found=%v err=%v", found, err)
	}
}

func testDayItems(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	ds := st.GetDayItemsStorage()
	mon := day(t, "2024-01-01")

	dinner, err := ds.CreateDayItem(ctx, storage.DayItem{
		OwnerUserID: "alice", Date: mon, MealSlot: storage.MealSlotDinner,
		RecipeID: "soup", Multiplier: 1, Source: storage.DayItemSourceManual,
	})
	if err != nil {
		t.Fatal(err)
	}
	breakfast, err := ds.CreateDayItem(ctx, storage.DayItem{
		OwnerUserID: "alice", Date: mon, MealSlot: storage.MealSlotBreakfast,
		RecipeID: "oats", Multiplier: 2, Source: storage.DayItemSourceAuto,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ds.CreateDayItem(ctx, storage.DayItem{
		OwnerUserID: "alice", Date: day(t, "2024-01-03"), MealSlot: storage.MealSlotLunch,
		RecipeID: "bowl", Multiplier: 1, Source: storage.DayItemSourceManual,
	}); err != nil {
		t.Fatal(err)
	}

	items, err := ds.ListDayItems(ctx, "alice", mon)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].ID != breakfast.ID || items[1].ID != dinner.ID {
		t.Fatalf("expected breakfast then dinner, got %+v", items)
	}
	if items[0].DateKey() != "2024-01-01" {
		t.Errorf("DateKey = %q", items[0].DateKey())
	}

	if other, _ := ds.ListDayItems(ctx, "bob", mon); len(other) != 0 {
		t.Errorf("bob sees alice's items: %+v", other)
	}

	ranged, err := ds.ListDayItemsRange(ctx, "alice", mon, day(t, "2024-01-03"))
	if err != nil {
		t.Fatal(err)
	}
	if len(ranged) != 2 {
		t.Errorf("range end must be exclusive, got %d items", len(ranged))
	}

	updated, found, err := ds.UpdateDayItemMultiplier(ctx, "alice", dinner.ID, 1.25)
	if err != nil || !found || updated.Multiplier != 1.25 {
		t.Errorf("UpdateDayItemMultiplier: %+v found=%v err=%v", updated, found, err)
	}
	if _, found, _ := ds.UpdateDayItemMultiplier(ctx, "bob", dinner.ID, 3); found {
		t.Error("bob updated alice's item")
	}

	if removed, err := ds.DeleteDayItem(ctx, "alice", dinner.ID); err != nil || !removed {
		t.Errorf("DeleteDayItem: removed=%v err=%v", removed, err)
	}
	if removed, err := ds.DeleteDayItem(ctx, "alice", dinner.ID); err != nil || removed {
		t.Errorf("second DeleteDayItem: removed=%v err=%v", removed, err)
	}
	if _, found, _ := ds.GetDayItem(ctx, "alice", "not-a-uuid"); found {
		t.Error("GetDayItem found a malformed id")
	}
}

func testApplyAssignment(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	seedRecipes(t, st)
	seedTemplate(t, st, "week", storage.TierFree,
		storage.PlanItem{DayOfWeek: 0, MealSlot: storage.MealSlotBreakfast, RecipeID: "oats"})

	ds := st.GetDayItemsStorage()
	as := st.GetAssignmentsStorage()
	mon := day(t, "2024-01-01")

	manual, err := ds.CreateDayItem(ctx, storage.DayItem{
		OwnerUserID: "alice", Date: mon, MealSlot: storage.MealSlotBreakfast,
		RecipeID: "soup", Multiplier: 1, Source: storage.DayItemSourceManual,
	})
	if err != nil {
		t.Fatal(err)
	}

	assignment := storage.PlanAssignment{
		OwnerUserID: "alice", TemplateID: "week",
		StartDate: mon, EndDate: day(t, "2024-01-08"), Weeks: 1,
	}
	write := func(slot, recipe string, overwrite bool) storage.PendingWrite {
		return storage.PendingWrite{
			Overwrite: overwrite,
			Item: storage.DayItem{
				OwnerUserID: "alice", Date: mon, MealSlot: slot, RecipeID: recipe,
				Multiplier: 1, Source: storage.DayItemSourcePlan, TemplateID: ptr("week"),
			},
		}
	}

	// Merge: the occupied slot is skipped, the free one is filled.
	report, err := as.ApplyAssignment(ctx, assignment, []storage.PendingWrite{
		write(storage.MealSlotBreakfast, "oats", false),
		write(storage.MealSlotLunch, "bowl", false),
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Created != 1 || report.Skipped != 1 || report.Replaced != 0 {
		t.Errorf("merge report: %+v", report)
	}
	if _, found, _ := ds.GetDayItem(ctx, "alice", manual.ID); !found {
		t.Error("merge removed the manual item")
	}

	// Overwrite, with two writes to the same slot: only the last survives
	// and the first does not count as replaced.
	assignment.Overwrite = true
	report, err = as.ApplyAssignment(ctx, assignment, []storage.PendingWrite{
		write(storage.MealSlotBreakfast, "oats", true),
		write(storage.MealSlotBreakfast, "bowl", true),
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Created != 1 || report.Replaced != 1 || len(report.Items) != 1 || report.Items[0].RecipeID != "bowl" {
		t.Errorf("overwrite report: %+v", report)
	}

	items, _ := ds.ListDayItems(ctx, "alice", mon)
	if len(items) != 2 {
		t.Fatalf("expected breakfast and lunch, got %+v", items)
	}
	if items[0].RecipeID != "bowl" || items[0].Source != storage.DayItemSourcePlan || items[0].TemplateID == nil || *items[0].TemplateID != "week" {
		t.Errorf("unexpected breakfast: %+v", items[0])
	}

	got, found, err := as.GetAssignment(ctx, "alice")
	if err != nil || !found {
		t.Fatalf("GetAssignment: found=%v err=%v", found, err)
	}
	if got.TemplateID != "week" || !got.StartDate.Equal(mon) || !got.Overwrite || got.Weeks != 1 {
		t.Errorf("unexpected assignment: %+v", got)
	}

	// A rejected batch writes nothing.
	bad := write(storage.MealSlotDinner, "soup", true)
	bad.Item.OwnerUserID = "mallory"
	if _, err := as.ApplyAssignment(ctx, assignment, []storage.PendingWrite{write(storage.MealSlotSnack, "oats", true), bad}); !errors.Is(err, storage.ErrInvalidWrite) {
		t.Errorf("expected ErrInvalidWrite for owner mismatch, got %v", err)
	}
	if after, _ := ds.ListDayItems(ctx, "alice", mon); len(after) != 2 {
		t.Errorf("rejected batch left %d items", len(after))
	}

	for _, m := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		bad := write(storage.MealSlotDinner, "soup", true)
		bad.Item.Multiplier = m
		_, err := as.ApplyAssignment(ctx, assignment, []storage.PendingWrite{write(storage.MealSlotSnack, "oats", true), bad})
		if !errors.Is(err, storage.ErrInvalidWrite) {
			t.Errorf("multiplier %v: expected ErrInvalidWrite, got %v", m, err)
		}
	}
	if after, _ := ds.ListDayItems(ctx, "alice", mon); len(after) != 2 {
		t.Errorf("batches with bad multipliers left %d items", len(after))
	}

	if err := as.DeleteAssignment(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := as.GetAssignment(ctx, "alice"); found {
		t.Error("assignment still present after delete")
	}
	if after, _ := ds.ListDayItems(ctx, "alice", mon); len(after) != 2 {
		t.Errorf("delete assignment removed items: %d left", len(after))
	}
}

func testShoppingLists(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	ss := st.GetShoppingListsStorage()

	list, err := ss.CreateList(ctx, storage.ShoppingList{OwnerUserID: "alice", Name: "Week 1"})
	if err != nil {
		t.Fatal(err)
	}
	if list.ID == "" {
		t.Fatal("CreateList returned no id")
	}
	if _, found, _ := ss.GetList(ctx, "bob", list.ID); found {
		t.Error("bob can read alice's list")
	}

	if _, err := ss.AddListItem(ctx, storage.ShoppingListItem{ListID: list.ID, Name: "Salt", Quantity: 1}); err != nil {
		t.Fatal(err)
	}

	attach := func(people int, qty float64) []storage.ShoppingListItem {
		t.Helper()
		items, err := ss.AttachRecipe(ctx,
			storage.ShoppingListRecipe{ListID: list.ID, RecipeID: "oats", People: people},
			[]storage.ShoppingListItem{{Name: "Oats", Quantity: qty, Unit: ptr("g"), SourceRecipeID: ptr("oats"), People: ptr(people)}})
		if err != nil {
			t.Fatal(err)
		}
		return items
	}
	attach(2, 100)
	attach(3, 150)

	items, err := ss.ListListItems(ctx, list.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("re-attach must replace derived items, got %+v", items)
	}
	attachments, err := ss.ListAttachments(ctx, list.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(attachments) != 1 || attachments[0].People != 3 {
		t.Errorf("unexpected attachments: %+v", attachments)
	}

	if removed, err := ss.DetachRecipe(ctx, list.ID, "oats"); err != nil || !removed {
		t.Errorf("DetachRecipe: removed=%v err=%v", removed, err)
	}
	if removed, err := ss.DetachRecipe(ctx, list.ID, "oats"); err != nil || removed {
		t.Errorf("second DetachRecipe: removed=%v err=%v", removed, err)
	}
	items, _ = ss.ListListItems(ctx, list.ID)
	if len(items) != 1 || items[0].Name != "Salt" {
		t.Errorf("detach must keep manual items only, got %+v", items)
	}

	if removed, err := ss.DeleteListItem(ctx, list.ID, items[0].ID); err != nil || !removed {
		t.Errorf("DeleteListItem: removed=%v err=%v", removed, err)
	}

	attach(1, 50)
	if removed, err := ss.DeleteList(ctx, "alice", list.ID); err != nil || !removed {
		t.Fatalf("DeleteList: removed=%v err=%v", removed, err)
	}
	if items, _ := ss.ListListItems(ctx, list.ID); len(items) != 0 {
		t.Errorf("items survived list delete: %+v", items)
	}
	if lists, _ := ss.ListLists(ctx, "alice"); len(lists) != 0 {
		t.Errorf("list survived delete: %+v", lists)
	}
}

func testProfiles(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	ps := st.GetProfilesStorage()

	if _, found, err := ps.GetProfile(ctx, "alice"); err != nil || found {
		t.Fatalf("empty GetProfile: found=%v err=%v", found, err)
	}

	if err := ps.SetSubscriptionStatus(ctx, "alice", "active"); err != nil {
		t.Fatal(err)
	}

	saved, err := ps.UpsertProfile(ctx, storage.Profile{
		OwnerUserID: "alice", Sex: ptr("female"), HeightCM: ptr(168.0), WeightKG: ptr(62.0),
		ActivityLevel: ptr("moderate"), Goal: ptr("maintain"), TargetCalories: ptr(1900.0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if saved.SubscriptionStatus != "active" {
		t.Errorf("upsert must not touch subscription status, got %q", saved.SubscriptionStatus)
	}

	got, found, err := ps.GetProfile(ctx, "alice")
	if err != nil || !found {
		t.Fatalf("GetProfile: found=%v err=%v", found, err)
	}
	if got.TargetCalories == nil || *got.TargetCalories != 1900 || got.SubscriptionStatus != "active" {
		t.Errorf("unexpected profile: %+v", got)
	}
}
