package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/sellerhub"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

var _ sellerhub.SubjectStore = (*Subjects)(nil)

type subjectDoc struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	Name           string        `bson:"name"`
	Email          string        `bson:"email"`
	Picture        string        `bson:"picture,omitempty"`
	CredentialHash string        `bson:"password"`
	Verified       bool          `bson:"isVerified"`
	Suspended      bool          `bson:"isSuspended"`
	CreatedAt      time.Time     `bson:"createdAt"`
	LastLoginAt    time.Time     `bson:"lastLogin"`
}

func (d subjectDoc) subject() *sellerhub.Subject {
	return &sellerhub.Subject{
		ID:             d.ID.Hex(),
		Name:           d.Name,
		Email:          d.Email,
		Picture:        d.Picture,
		CredentialHash: d.CredentialHash,
		Verified:       d.Verified,
		Suspended:      d.Suspended,
		CreatedAt:      d.CreatedAt.UTC(),
		LastLoginAt:    d.LastLoginAt.UTC(),
	}
}

// Subjects stores seller accounts.
type Subjects struct {
	coll *mongo.Collection
}

// FindByEmail looks a subject up by its normalized email. A missing record
// is [sellerhub.ErrSubjectNotFound].
func (s *Subjects) FindByEmail(ctx context.Context, email string) (*sellerhub.Subject, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

// FindByID looks a subject up by its hex ObjectID. Ids that are not valid
// ObjectIDs are reported as not found.
func (s *Subjects) FindByID(ctx context.Context, id string) (*sellerhub.Subject, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, sellerhub.ErrSubjectNotFound
	}
	return s.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (s *Subjects) findOne(ctx context.Context, filter bson.D) (*sellerhub.Subject, error) {
	var doc subjectDoc
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sellerhub.ErrSubjectNotFound
		}
		return nil, sellerhub.ErrPersistence.Wrap(err)
	}
	return doc.subject(), nil
}

// Create inserts a new subject. The unique email index turns a concurrent
// second insert for the same email into [sellerhub.ErrEmailTaken].
func (s *Subjects) Create(ctx context.Context, in sellerhub.NewSubject) (*sellerhub.Subject, error) {
	doc := subjectDoc{
		ID:             bson.NewObjectID(),
		Name:           in.Name,
		Email:          in.Email,
		Picture:        in.Picture,
		CredentialHash: in.CredentialHash,
		CreatedAt:      in.CreatedAt,
		LastLoginAt:    in.CreatedAt,
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, sellerhub.ErrEmailTaken.Wrap(err)
		}
		return nil, sellerhub.ErrPersistence.Wrap(err)
	}
	return doc.subject(), nil
}

// TouchLastLogin records a successful sign-in at time at.
func (s *Subjects) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return sellerhub.ErrSubjectNotFound
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "lastLogin", Value: at}}}},
	)
	if err != nil {
		return sellerhub.ErrPersistence.Wrap(err)
	}
	if res.MatchedCount == 0 {
		return sellerhub.ErrSubjectNotFound
	}
	return nil
}
