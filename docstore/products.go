package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/sellerhub"
	"github.com/MrEthical07/sellerhub/catalog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ catalog.Store = (*Products)(nil)

type productDoc struct {
	ID            bson.ObjectID `bson:"_id,omitempty"`
	SellerID      bson.ObjectID `bson:"sellerID"`
	Name          string        `bson:"productName"`
	Price         float64       `bson:"price"`
	StockQuantity int           `bson:"stockQuantity"`
	Category      string        `bson:"category"`
	Brand         string        `bson:"brand"`
	Description   string        `bson:"description"`
	PhotoURLs     []string      `bson:"photoURLs"`
	IsActive      bool          `bson:"isActive"`
	CreatedAt     time.Time     `bson:"createdAt"`
	UpdatedAt     time.Time     `bson:"updatedAt"`
}

func (d productDoc) product() catalog.Product {
	urls := d.PhotoURLs
	if urls == nil {
		urls = []string{}
	}
	return catalog.Product{
		ID:            d.ID.Hex(),
		SellerID:      d.SellerID.Hex(),
		Name:          d.Name,
		Price:         d.Price,
		StockQuantity: d.StockQuantity,
		Category:      d.Category,
		Brand:         d.Brand,
		Description:   d.Description,
		PhotoURLs:     urls,
		IsActive:      d.IsActive,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

func toProductDoc(p *catalog.Product) (productDoc, error) {
	seller, err := bson.ObjectIDFromHex(p.SellerID)
	if err != nil {
		return productDoc{}, sellerhub.ErrSubjectNotFound
	}
	return productDoc{
		SellerID:      seller,
		Name:          p.Name,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Category:      p.Category,
		Brand:         p.Brand,
		Description:   p.Description,
		PhotoURLs:     p.PhotoURLs,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}, nil
}

// Products stores seller listings.
type Products struct {
	coll *mongo.Collection
}

// Insert stores p and sets its ID.
func (s *Products) Insert(ctx context.Context, p *catalog.Product) error {
	doc, err := toProductDoc(p)
	if err != nil {
		return err
	}
	doc.ID = bson.NewObjectID()

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return sellerhub.ErrPersistence.Wrap(err)
	}
	p.ID = doc.ID.Hex()
	return nil
}

// Get returns the product with the given hex id regardless of owner.
// Ownership is checked by the catalog service.
func (s *Products) Get(ctx context.Context, id string) (*catalog.Product, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, sellerhub.ErrProductNotFound
	}

	var doc productDoc
	if err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sellerhub.ErrProductNotFound
		}
		return nil, sellerhub.ErrPersistence.Wrap(err)
	}
	p := doc.product()
	return &p, nil
}

// ListBySeller returns the seller's products, newest first.
func (s *Products) ListBySeller(ctx context.Context, sellerID string) ([]catalog.Product, error) {
	seller, err := bson.ObjectIDFromHex(sellerID)
	if err != nil {
		return []catalog.Product{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.D{{Key: "sellerID", Value: seller}}, opts)
	if err != nil {
		return nil, sellerhub.ErrPersistence.Wrap(err)
	}

	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, sellerhub.ErrPersistence.Wrap(err)
	}

	out := make([]catalog.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.product())
	}
	return out, nil
}

// Update replaces the stored product with p.
func (s *Products) Update(ctx context.Context, p *catalog.Product) error {
	oid, err := bson.ObjectIDFromHex(p.ID)
	if err != nil {
		return sellerhub.ErrProductNotFound
	}
	doc, err := toProductDoc(p)
	if err != nil {
		return err
	}
	doc.ID = oid

	res, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: oid}}, doc)
	if err != nil {
		return sellerhub.ErrPersistence.Wrap(err)
	}
	if res.MatchedCount == 0 {
		return sellerhub.ErrProductNotFound
	}
	return nil
}
