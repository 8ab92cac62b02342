package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultAPIBase = "http://localhost:8080"
	defaultPlanID  = "balanced-week"
)

var (
	apiBase    string
	token      string
	planID     string
	client     = &http.Client{Timeout: 30 * time.Second}
	startDate  string
	createdIDs = make(map[string]string) // track created resources for later steps
)

func main() {
	fmt.Println("=== PlatePlan E2E Smoke Test ===")
	fmt.Println()

	apiBase = strings.TrimRight(getEnv("API_BASE_URL", defaultAPIBase), "/")
	token = getEnv("SMOKE_TOKEN", "")
	planID = getEnv("SMOKE_PLAN_ID", defaultPlanID)

	fmt.Printf("API Base: %s\n", apiBase)
	fmt.Printf("Token: %s\n", maskString(token))
	fmt.Printf("Plan: %s\n", planID)
	fmt.Println()

	// Plans start on the next Monday so the run never touches today's meals.
	startDate = nextMonday(time.Now()).Format("2006-01-02")

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Healthz", testHealthz},
		{"Dev Token", testDevToken},
		{"Update Profile", testUpdateProfile},
		{"Nutrition Targets", testNutritionTargets},
		{"List Recipes", testListRecipes},
		{"List Meal Plans", testListMealPlans},
		{"Assign Plan (auto-scale)", testAssignPlan},
		{"Get Assignment", testGetAssignment},
		{"Get Day", testGetDay},
		{"Update Multiplier", testUpdateMultiplier},
		{"Remove Item", testRemoveItem},
		{"Aggregate Ingredients", testAggregate},
		{"Create Shopping List", testCreateShoppingList},
		{"Attach Recipe", testAttachRecipe},
		{"Merged List", testMergedList},
		{"Export PDF", testExport},
		{"Download Export", testDownloadExport},
		{"Delete Shopping List", testDeleteShoppingList},
		{"Clear Assignment", testClearAssignment},
	}

	failed := false
	for i, step := range steps {
		fmt.Printf("[%d/%d] %s... ", i+1, len(steps), step.name)
		if err := step.fn(); err != nil {
			fmt.Printf("❌ FAILED\n")
			fmt.Printf("  Error: %v\n\n", err)
			failed = true
			break
		}
		fmt.Printf("✅ OK\n")
	}

	fmt.Println()
	if failed {
		fmt.Println("❌ SMOKE TEST FAILED")
		os.Exit(1)
	}

	fmt.Println("✅ ALL SMOKE TESTS PASSED")
}

func testHealthz() error {
	return call("GET", "/healthz", nil, http.StatusOK, nil)
}

// testDevToken fetches a dev token unless SMOKE_TOKEN is set. A 404 means
// the server runs with AUTH_MODE=none and no token is needed.
func testDevToken() error {
	if token != "" {
		return nil
	}

	body := map[string]string{"user_id": getEnv("SMOKE_USER_ID", "smoke-user")}
	resp, err := do("POST", "/v1/auth/dev", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := decode(resp, http.StatusOK, &result); err != nil {
		return err
	}
	if result.AccessToken == "" {
		return fmt.Errorf("empty access_token")
	}
	token = result.AccessToken
	return nil
}

func testUpdateProfile() error {
	body := map[string]any{
		"sex":            "female",
		"birth_date":     "1990-05-17",
		"height_cm":      168,
		"weight_kg":      62,
		"activity_level": "moderate",
		"goal":           "maintain",
	}
	return call("PUT", "/v1/profile", body, http.StatusOK, nil)
}

func testNutritionTargets() error {
	var result struct {
		Targets *struct {
			Calories float64 `json:"calories"`
		} `json:"targets"`
		Source string `json:"source"`
	}
	if err := call("GET", "/v1/nutrition/targets", nil, http.StatusOK, &result); err != nil {
		return err
	}
	if result.Targets == nil || result.Targets.Calories <= 0 {
		return fmt.Errorf("expected derived targets, got source=%q", result.Source)
	}
	return nil
}

func testListRecipes() error {
	var result struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := call("GET", "/v1/recipes?limit=5", nil, http.StatusOK, &result); err != nil {
		return err
	}
	if len(result.Items) == 0 {
		return fmt.Errorf("recipe catalog is empty (run `go run ./cmd/migrate seed`)")
	}
	createdIDs["recipe"] = result.Items[0].ID
	return nil
}

func testListMealPlans() error {
	var result struct {
		Items []struct {
			ID     string `json:"id"`
			Locked bool   `json:"locked"`
		} `json:"items"`
	}
	if err := call("GET", "/v1/meal-plans", nil, http.StatusOK, &result); err != nil {
		return err
	}
	for _, p := range result.Items {
		if p.ID == planID {
			if p.Locked {
				return fmt.Errorf("plan %s is locked for this user", planID)
			}
			return nil
		}
	}
	return fmt.Errorf("plan %s not listed", planID)
}

func testAssignPlan() error {
	body := map[string]any{
		"plan_id":    planID,
		"start_date": startDate,
		"weeks":      1,
		"overwrite":  true,
		"autoScale":  true,
	}
	var result struct {
		Report struct {
			Created int `json:"created"`
		} `json:"report"`
	}
	if err := call("POST", "/v1/meal-plans/assign", body, http.StatusOK, &result); err != nil {
		return err
	}
	if result.Report.Created == 0 {
		return fmt.Errorf("assignment created no items")
	}
	return nil
}

func testGetAssignment() error {
	var result struct {
		State string `json:"state"`
	}
	if err := call("GET", "/v1/meal-plans/assignment", nil, http.StatusOK, &result); err != nil {
		return err
	}
	if result.State != "scheduled" && result.State != "active" {
		return fmt.Errorf("expected scheduled or active, got %q", result.State)
	}
	return nil
}

func testGetDay() error {
	var result struct {
		Items []struct {
			ID         string  `json:"id"`
			Multiplier float64 `json:"multiplier"`
		} `json:"items"`
	}
	if err := call("GET", "/v1/planner/days/"+startDate, nil, http.StatusOK, &result); err != nil {
		return err
	}
	if len(result.Items) == 0 {
		return fmt.Errorf("no items on %s", startDate)
	}
	createdIDs["item"] = result.Items[0].ID
	return nil
}

func testUpdateMultiplier() error {
	body := map[string]any{
		"date":       startDate,
		"itemId":     createdIDs["item"],
		"multiplier": 1.5,
	}
	var result struct {
		Multiplier float64 `json:"multiplier"`
	}
	if err := call("POST", "/v1/planner/update", body, http.StatusOK, &result); err != nil {
		return err
	}
	if result.Multiplier != 1.5 {
		return fmt.Errorf("expected multiplier 1.5, got %v", result.Multiplier)
	}
	return nil
}

func testRemoveItem() error {
	body := map[string]any{"date": startDate, "itemId": createdIDs["item"]}
	return call("POST", "/v1/planner/remove", body, http.StatusOK, nil)
}

func testAggregate() error {
	body := map[string]any{
		"selections": []map[string]any{
			{"recipeId": createdIDs["recipe"], "multiplier": 2},
		},
	}
	var result struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
	}
	if err := call("POST", "/v1/shopping-lists/aggregate", body, http.StatusOK, &result); err != nil {
		return err
	}
	if len(result.Items) == 0 {
		return fmt.Errorf("aggregate returned no lines")
	}
	return nil
}

func testCreateShoppingList() error {
	body := map[string]string{"name": "Smoke " + startDate}
	var result struct {
		ID string `json:"id"`
	}
	if err := call("POST", "/v1/shopping-lists", body, http.StatusCreated, &result); err != nil {
		return err
	}
	createdIDs["list"] = result.ID
	return nil
}

func testAttachRecipe() error {
	body := map[string]any{"recipeId": createdIDs["recipe"], "people": 2}
	return call("POST", "/v1/shopping-lists/"+createdIDs["list"]+"/recipes", body, http.StatusCreated, nil)
}

func testMergedList() error {
	var result struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := call("GET", "/v1/shopping-lists/"+createdIDs["list"]+"/merged", nil, http.StatusOK, &result); err != nil {
		return err
	}
	if len(result.Items) == 0 {
		return fmt.Errorf("merged list is empty")
	}
	return nil
}

func testExport() error {
	var result struct {
		URL string `json:"url"`
	}
	if err := call("POST", "/v1/shopping-lists/"+createdIDs["list"]+"/export", nil, http.StatusCreated, &result); err != nil {
		return err
	}
	if result.URL == "" {
		return fmt.Errorf("empty export url")
	}
	createdIDs["export_url"] = result.URL
	return nil
}

func testDownloadExport() error {
	url := createdIDs["export_url"]
	if strings.HasPrefix(url, "/") {
		url = apiBase + url
	}

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return err
	}
	// Presigned S3 URLs carry their own auth.
	if strings.HasPrefix(url, apiBase) {
		addAuth(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	head := make([]byte, 4)
	if _, err := io.ReadFull(resp.Body, head); err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if string(head) != "%PDF" {
		return fmt.Errorf("expected a PDF, got %q", head)
	}
	return nil
}

func testDeleteShoppingList() error {
	return call("DELETE", "/v1/shopping-lists/"+createdIDs["list"], nil, http.StatusNoContent, nil)
}

func testClearAssignment() error {
	return call("DELETE", "/v1/meal-plans/assignment", nil, http.StatusNoContent, nil)
}

// Helper functions

// call sends body as JSON, expects status want and decodes into out when non-nil.
func call(method, path string, body any, want int, out any) error {
	resp, err := do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, want, out)
}

func do(method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, apiBase+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuth(req)

	return client.Do(req)
}

func decode(resp *http.Response, want int, out any) error {
	if resp.StatusCode != want {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	return nil
}

func nextMonday(now time.Time) time.Time {
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (8 - int(d.Weekday())) % 7
	if offset == 0 {
		offset = 7
	}
	return d.AddDate(0, 0, offset)
}

func addAuth(req *http.Request) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
