package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/strongarm/pkg/cache"
	"github.com/matzehuels/strongarm/pkg/cellio"
)

// Default MongoDB names.
const (
	DefaultDatabase   = "strongarm"
	DefaultCollection = "cells"
)

// MongoConfig configures a MongoStore.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore keeps records in a MongoDB collection. Documents are stored
// as their JSON encoding so the cell format stays owned by cellio.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// mongoRecord is the stored shape of a Record.
type mongoRecord struct {
	ID         string       `bson:"_id"`
	Name       string       `bson:"name"`
	ParamsHash string       `bson:"params_hash"`
	CreatedAt  time.Time    `bson:"created_at"`
	Stats      cellio.Stats `bson:"stats"`
	Document   []byte       `bson:"document,omitempty"`
}

// NewMongoStore connects to MongoDB and pings the server, retrying with
// backoff while it is unreachable.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	err = cache.RetryWithBackoff(ctx, func() error {
		if err := client.Ping(ctx, nil); err != nil {
			return cache.Retryable(fmt.Errorf("%w: mongo: %v", cache.ErrNetwork, err))
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "created_at", Value: -1}}})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

func toMongo(rec *Record) (mongoRecord, error) {
	data, err := cellio.Marshal(rec.Document)
	if err != nil {
		return mongoRecord{}, err
	}
	return mongoRecord{
		ID:         rec.ID,
		Name:       rec.Name,
		ParamsHash: rec.ParamsHash,
		CreatedAt:  rec.CreatedAt,
		Stats:      rec.Stats,
		Document:   data,
	}, nil
}

func fromMongo(m mongoRecord) (*Record, error) {
	rec := &Record{
		ID:         m.ID,
		Name:       m.Name,
		ParamsHash: m.ParamsHash,
		CreatedAt:  m.CreatedAt,
		Stats:      m.Stats,
	}
	if len(m.Document) > 0 {
		doc, err := cellio.Unmarshal(m.Document)
		if err != nil {
			return nil, fmt.Errorf("cell %s: %w", m.ID, err)
		}
		rec.Document = doc
	}
	return rec, nil
}

func (s *MongoStore) Save(ctx context.Context, rec *Record) error {
	if err := checkRecord(rec); err != nil {
		return err
	}
	m, err := toMongo(rec)
	if err != nil {
		return err
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": m.ID}, m, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Record, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var m mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return fromMongo(m)
}

func (s *MongoStore) List(ctx context.Context, limit int) ([]*Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(listLimit(limit))).
		SetProjection(bson.M{"document": 0})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var ms []mongoRecord
	if err := cur.All(ctx, &ms); err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(ms))
	for _, m := range ms {
		rec, err := fromMongo(m)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return notFound(id)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
