package rest

import (
	"context"
	"fmt"
	"net/http"

	"pasartani/internal/domain/entity"
)

type ProductInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

func (c *Client) CreateProduct(ctx context.Context, input ProductInput) (*entity.Product, error) {
	var product entity.Product
	if err := c.do(ctx, http.MethodPost, "/products", input, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, input ProductInput) (*entity.Product, error) {
	var product entity.Product
	path := fmt.Sprintf("/products/%d", id)
	if err := c.do(ctx, http.MethodPut, path, input, &product); err != nil {
		return nil, err
	}
	return &product, nil
}
