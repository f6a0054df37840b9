package dto

import (
	"encoding/json"
	"fmt"

	"github.com/bulkctl/bulkctl/internal/domain"
)

// ItemID handles the API's flexible ID type (can be string or int)
type ItemID struct {
	value interface{}
}

func NewItemID(s string) ItemID {
	return ItemID{value: s}
}

// UnmarshalJSON implements custom unmarshaling for ItemID
func (r *ItemID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.value = s
		return nil
	}

	var i int64
	if err := json.Unmarshal(data, &i); err == nil {
		r.value = i
		return nil
	}

	return fmt.Errorf("item id must be string or int")
}

// MarshalJSON always writes the id as a string
func (r ItemID) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// String returns the string representation of the ItemID
func (r ItemID) String() string {
	switch v := r.value.(type) {
	case string:
		return v
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

// ItemResponse is one listing row
type ItemResponse struct {
	ID     ItemID `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Source string `json:"source"`
}

func (i ItemResponse) ToDomain() domain.Item {
	return domain.Item{
		ID:     i.ID.String(),
		Name:   i.Name,
		Status: domain.ItemStatus(i.Status),
		Source: domain.ItemSource(i.Source),
	}
}

// ListItemsResponse is one page of the listing
type ListItemsResponse struct {
	Items []ItemResponse `json:"items"`
	Total int            `json:"total"`
}

// ListItemsEnvelope is the wrapped form some deployments return: {data: {...}}
type ListItemsEnvelope struct {
	Data *ListItemsResponse `json:"data"`
}

func (r ListItemsResponse) ToDomain(page, pageSize int) *domain.Page {
	items := make([]domain.Item, len(r.Items))
	for i, item := range r.Items {
		items[i] = item.ToDomain()
	}
	return &domain.Page{
		Items:    items,
		Total:    r.Total,
		Page:     page,
		PageSize: pageSize,
	}
}
