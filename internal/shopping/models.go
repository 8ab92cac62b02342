package shopping

import (
	"time"

	"github.com/fdg312/plateplan/internal/storage"
)

// AggregateRequest - POST /v1/shopping-lists/aggregate
type AggregateRequest struct {
	Selections []Selection `json:"selections" validate:"max=100,dive"`
}

type LinesResponse struct {
	Items []Line `json:"items"`
}

// CreateListRequest - POST /v1/shopping-lists
type CreateListRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// AddItemRequest - POST /v1/shopping-lists/{id}/items
type AddItemRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Quantity float64 `json:"qty" validate:"gt=0,lte=1000000"`
	Unit     *string `json:"unit,omitempty" validate:"omitempty,max=32"`
}

// AttachRecipeRequest - POST /v1/shopping-lists/{id}/recipes
type AttachRecipeRequest struct {
	RecipeID string `json:"recipeId" validate:"required"`
	People   int    `json:"people" validate:"gte=1,lte=100"`
}

type ListDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ItemDTO struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Quantity       float64   `json:"qty"`
	Unit           *string   `json:"unit"`
	SourceRecipeID *string   `json:"source_recipe_id,omitempty"`
	People         *int      `json:"people,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type AttachmentDTO struct {
	RecipeID  string    `json:"recipe_id"`
	People    int       `json:"people"`
	CreatedAt time.Time `json:"created_at"`
}

// ListDetailDTO is a list with its items and recipe attachments.
type ListDetailDTO struct {
	ListDTO
	Items   []ItemDTO       `json:"items"`
	Recipes []AttachmentDTO `json:"recipes"`
}

type ListListsResponse struct {
	Items []ListDTO `json:"items"`
}

type AttachRecipeResponse struct {
	Attachment AttachmentDTO `json:"attachment"`
	Items      []ItemDTO     `json:"items"`
}

type ExportDTO struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toListDTO(l storage.ShoppingList) ListDTO {
	return ListDTO{ID: l.ID, Name: l.Name, CreatedAt: l.CreatedAt, UpdatedAt: l.UpdatedAt}
}

func toItemDTO(it storage.ShoppingListItem) ItemDTO {
	return ItemDTO{
		ID:             it.ID,
		Name:           it.Name,
		Quantity:       it.Quantity,
		Unit:           it.Unit,
		SourceRecipeID: it.SourceRecipeID,
		People:         it.People,
		CreatedAt:      it.CreatedAt,
	}
}

func toItemDTOs(items []storage.ShoppingListItem) []ItemDTO {
	out := make([]ItemDTO, len(items))
	for i, it := range items {
		out[i] = toItemDTO(it)
	}
	return out
}
