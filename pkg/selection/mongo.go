package selection

import (
	"context"
	"errors"
	"fmt"

	"github.com/zen-systems/tripmate/pkg/place"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	CandidateCollection = "SerpData"
	SavedCollection     = "SavePlace"
)

type candidateDoc struct {
	UserID string        `bson:"userId"`
	TripID string        `bson:"tripId"`
	Data   []place.Place `bson:"data"`
}

type savedDoc struct {
	UserID    string        `bson:"userId"`
	TripID    string        `bson:"tripId"`
	PlaceData []place.Place `bson:"placeData"`
}

// MongoStore keeps candidates in SerpData and saved places in SavePlace.
type MongoStore struct {
	client     *mongo.Client
	candidates *mongo.Collection
	saved      *mongo.Collection
}

// NewMongoStore uses the collections of db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		client:     db.Client(),
		candidates: db.Collection(CandidateCollection),
		saved:      db.Collection(SavedCollection),
	}
}

// DialMongo connects to uri, pings it, and returns a store on database.
func DialMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return NewMongoStore(client.Database(database)), nil
}

// EnsureIndexes creates the unique (userId, tripId) index on both
// collections so concurrent upserts cannot create duplicates.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "tripId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	for _, coll := range []*mongo.Collection{s.candidates, s.saved} {
		if _, err := coll.Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func filterFor(key Key) bson.M {
	return bson.M{"userId": key.UserID, "tripId": key.TripID}
}

// UpsertCandidates replaces the candidate set with $set.
func (s *MongoStore) UpsertCandidates(ctx context.Context, key Key, places []place.Place) error {
	if places == nil {
		places = []place.Place{}
	}
	update := bson.M{"$set": candidateDoc{UserID: key.UserID, TripID: key.TripID, Data: places}}
	if _, err := s.candidates.UpdateOne(ctx, filterFor(key), update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert candidates: %w", err)
	}
	return nil
}

// Candidates loads the candidate set.
func (s *MongoStore) Candidates(ctx context.Context, key Key) ([]place.Place, error) {
	var doc candidateDoc
	if err := s.candidates.FindOne(ctx, filterFor(key)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	return doc.Data, nil
}

// AppendSaved pushes places onto the saved set with $push/$each.
func (s *MongoStore) AppendSaved(ctx context.Context, key Key, places []place.Place) error {
	if len(places) == 0 {
		return nil
	}
	update := bson.M{"$push": bson.M{"placeData": bson.M{"$each": places}}}
	if _, err := s.saved.UpdateOne(ctx, filterFor(key), update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("append saved places: %w", err)
	}
	return nil
}

// Saved loads the saved set.
func (s *MongoStore) Saved(ctx context.Context, key Key) ([]place.Place, error) {
	var doc savedDoc
	if err := s.saved.FindOne(ctx, filterFor(key)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load saved places: %w", err)
	}
	if doc.PlaceData == nil {
		doc.PlaceData = []place.Place{}
	}
	return doc.PlaceData, nil
}

// ClearSaved deletes the saved document.
func (s *MongoStore) ClearSaved(ctx context.Context, key Key) error {
	if _, err := s.saved.DeleteOne(ctx, filterFor(key)); err != nil {
		return fmt.Errorf("clear saved places: %w", err)
	}
	return nil
}
