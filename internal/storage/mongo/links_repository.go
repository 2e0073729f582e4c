package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/IgorGrieder/link-registry/internal/infrastructure/db"
	"github.com/IgorGrieder/link-registry/internal/processing/links"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "shortened_links"

type LinksRepository struct {
	conn *db.Mongo
	coll *mongo.Collection
}

type ownerDoc struct {
	Type string `bson:"type"`
	ID   string `bson:"id"`
}

type linkDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Key       string             `bson:"key"`
	URL       string             `bson:"url"`
	Owner     *ownerDoc          `bson:"owner,omitempty"`
	ExpiresAt *time.Time         `bson:"expiresAt,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func NewLinksRepository(ctx context.Context, m *db.Mongo) (*LinksRepository, error) {
	repo := &LinksRepository{conn: m, coll: m.Collection(collectionName)}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_key"),
		},
		{
			Keys:    bson.D{{Key: "owner.type", Value: 1}, {Key: "owner.id", Value: 1}, {Key: "url", Value: 1}},
			Options: options.Index().SetName("owner_url"),
		},
		{
			Keys:    bson.D{{Key: "url", Value: 1}},
			Options: options.Index().SetName("url"),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *LinksRepository) Insert(ctx context.Context, link *links.Link) error {
	doc := linkDoc{
		Key:       link.Key,
		URL:       link.URL,
		ExpiresAt: link.ExpiresAt,
		CreatedAt: link.CreatedAt.UTC(),
		UpdatedAt: link.UpdatedAt.UTC(),
	}
	if link.Owner != nil {
		doc.Owner = &ownerDoc{Type: link.Owner.Type, ID: link.Owner.ID}
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err == nil {
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			link.ID = id.Hex()
		}
		return nil
	}

	// uniq_key is the only unique index besides _id.
	if mongo.IsDuplicateKeyError(err) {
		return links.ErrDuplicateKey
	}

	return err
}

func (r *LinksRepository) FindByURL(ctx context.Context, owner *links.Owner, url string) (*links.Link, error) {
	filter := scopeFilter(owner)
	filter["url"] = url

	var doc linkDoc
	err := r.coll.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, links.ErrNotFound
	}
	return nil, err
}

func (r *LinksRepository) UpdateExpiresAt(ctx context.Context, link *links.Link) error {
	id, err := primitive.ObjectIDFromHex(link.ID)
	if err != nil {
		return links.ErrNotFound
	}

	var expiresAt any
	if link.ExpiresAt != nil {
		expiresAt = link.ExpiresAt.UTC()
	}

	res, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"expiresAt": expiresAt,
			"updatedAt": link.UpdatedAt.UTC(),
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return links.ErrNotFound
	}
	return nil
}

func (r *LinksRepository) FindByKey(ctx context.Context, key string) (*links.Link, error) {
	var doc linkDoc
	err := r.coll.FindOne(ctx, bson.M{"key": key}).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, links.ErrNotFound
	}
	return nil, err
}

func (r *LinksRepository) ListUnexpired(ctx context.Context, owner *links.Owner, at time.Time) ([]*links.Link, error) {
	filter := scopeFilter(owner)
	filter["$or"] = bson.A{
		bson.M{"expiresAt": bson.M{"$exists": false}},
		bson.M{"expiresAt": nil},
		bson.M{"expiresAt": bson.M{"$gt": at.UTC()}},
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []linkDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*links.Link, 0, len(docs))
	for _, doc := range docs {
		out = append(out, mapLinkDoc(doc))
	}
	return out, nil
}

func (r *LinksRepository) Ping(ctx context.Context) error {
	return r.conn.Ping(ctx)
}

func scopeFilter(owner *links.Owner) bson.M {
	if owner == nil {
		return bson.M{}
	}
	return bson.M{"owner.type": owner.Type, "owner.id": owner.ID}
}

func mapLinkDoc(doc linkDoc) *links.Link {
	link := &links.Link{
		ID:        doc.ID.Hex(),
		Key:       doc.Key,
		URL:       doc.URL,
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}
	if doc.Owner != nil {
		link.Owner = &links.Owner{Type: doc.Owner.Type, ID: doc.Owner.ID}
	}
	if doc.ExpiresAt != nil {
		t := doc.ExpiresAt.UTC()
		link.ExpiresAt = &t
	}
	return link
}

var _ links.LinkRepository = (*LinksRepository)(nil)
