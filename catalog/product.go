package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/sellerhub/blob"
)

// Product is one listing owned by a seller.
type Product struct {
	ID            string    `json:"id"`
	SellerID      string    `json:"sellerID"`
	Name          string    `json:"productName"`
	Price         float64   `json:"price"`
	StockQuantity int       `json:"stockQuantity"`
	Category      string    `json:"category"`
	Brand         string    `json:"brand"`
	Description   string    `json:"description"`
	PhotoURLs     []string  `json:"photoURLs"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Input is the editable part of a product as submitted by the seller.
type Input struct {
	Name          string  `json:"productName" validate:"required,max=200"`
	Price         float64 `json:"price" validate:"required,gt=0"`
	StockQuantity int     `json:"stockQuantity" validate:"gte=0"`
	Category      string  `json:"category" validate:"required,max=100"`
	Brand         string  `json:"brand" validate:"required,max=100"`
	Description   string  `json:"description" validate:"required,max=2000"`
	IsActive      bool    `json:"isActive"`
}

// Normalize trims the free-text fields.
func (in Input) Normalize() Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

// Store persists products. Get returns sellerhub.ErrProductNotFound for
// unknown or malformed ids.
type Store interface {
	Insert(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	ListBySeller(ctx context.Context, sellerID string) ([]Product, error)
	Update(ctx context.Context, p *Product) error
}

// ImageStore uploads image files and returns their public URLs in order.
type ImageStore interface {
	Upload(ctx context.Context, files []blob.File) ([]string, error)
}
