package catalog

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/MrEthical07/sellerhub"
	"github.com/MrEthical07/sellerhub/blob"
	"github.com/MrEthical07/sellerhub/validation"
)

const (
	// MaxImages is the most image files accepted in one request.
	MaxImages = 10
	// MaxImageSize is the largest accepted image, in bytes.
	MaxImageSize = 10 << 20
)

// ErrImageUpload is returned when the blob store rejects an image batch.
var ErrImageUpload = &sellerhub.Error{Kind: sellerhub.KindPersistence, Message: "image upload failed"}

// Service implements the seller-scoped product operations.
type Service struct {
	store  Store
	images ImageStore
	now    func() time.Time
}

// NewService wires a Service. images may be nil when uploads are disabled;
// requests carrying files then fail with [ErrImageUpload].
func NewService(store Store, images ImageStore) *Service {
	return &Service{
		store:  store,
		images: images,
		now:    time.Now,
	}
}

// Create validates in, uploads files and stores a new product for sellerID.
func (s *Service) Create(ctx context.Context, sellerID string, in Input, files []blob.File) (*Product, error) {
	in = in.Normalize()
	if err := check(in, files); err != nil {
		return nil, err
	}

	urls, err := s.upload(ctx, files)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &Product{
		SellerID:      sellerID,
		Name:          in.Name,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		Category:      in.Category,
		Brand:         in.Brand,
		Description:   in.Description,
		PhotoURLs:     urls,
		IsActive:      in.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.PhotoURLs == nil {
		p.PhotoURLs = []string{}
	}

	if err := s.store.Insert(ctx, p); err != nil {
		return nil, persistence(err)
	}
	return p, nil
}

// ListBySeller returns the seller's products, newest first.
func (s *Service) ListBySeller(ctx context.Context, sellerID string) ([]Product, error) {
	products, err := s.store.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, persistence(err)
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// GetForSeller returns one product if it exists and belongs to sellerID.
func (s *Service) GetForSeller(ctx context.Context, sellerID, productID string) (*Product, error) {
	p, err := s.store.Get(ctx, productID)
	if err != nil {
		return nil, persistence(err)
	}
	if p.SellerID != sellerID {
		return nil, sellerhub.ErrProductNotFound
	}
	return p, nil
}

// Update replaces the editable fields of an owned product and appends the
// URLs of any newly uploaded images.
func (s *Service) Update(ctx context.Context, sellerID, productID string, in Input, files []blob.File) (*Product, error) {
	p, err := s.GetForSeller(ctx, sellerID, productID)
	if err != nil {
		return nil, err
	}

	in = in.Normalize()
	if err := check(in, files); err != nil {
		return nil, err
	}

	urls, err := s.upload(ctx, files)
	if err != nil {
		return nil, err
	}

	p.Name = in.Name
	p.Price = in.Price
	p.StockQuantity = in.StockQuantity
	p.Category = in.Category
	p.Brand = in.Brand
	p.Description = in.Description
	p.IsActive = in.IsActive
	p.PhotoURLs = append(p.PhotoURLs, urls...)
	p.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, p); err != nil {
		return nil, persistence(err)
	}
	return p, nil
}

func (s *Service) upload(ctx context.Context, files []blob.File) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.images == nil {
		return nil, ErrImageUpload
	}
	urls, err := s.images.Upload(ctx, files)
	if err != nil {
		return nil, ErrImageUpload.Wrap(err)
	}
	return urls, nil
}

// check runs the validation pass over the fields and the image batch and
// reports every violation at once.
func check(in Input, files []blob.File) error {
	var fields validation.Errors
	if err := validation.Struct(in); err != nil {
		verrs, ok := err.(validation.Errors)
		if !ok {
			return err
		}
		fields = append(fields, verrs...)
	}
	if math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
		fields = append(fields, validation.FieldError{Field: "price", Tag: "number", Message: "must be a finite number"})
	}

	if len(files) > MaxImages {
		fields = append(fields, validation.FieldError{
			Field:   "image",
			Tag:     "max",
			Message: fmt.Sprintf("at most %d images are allowed", MaxImages),
		})
	}
	for _, f := range files {
		if len(f.Data) > MaxImageSize {
			fields = append(fields, validation.FieldError{
				Field:   "image",
				Tag:     "max",
				Message: fmt.Sprintf("%s exceeds %d MiB", f.Name, MaxImageSize>>20),
			})
		}
	}

	if len(fields) > 0 {
		return sellerhub.ErrValidation.WithFields(fields)
	}
	return nil
}

func persistence(err error) error {
	if sellerhub.IsOperational(err) {
		return err
	}
	return sellerhub.ErrPersistence.Wrap(err)
}
