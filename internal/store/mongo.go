package store

import (
	"context"

	"github.com/pkg/errors"
	"gitlab.com/dirk.krummacker/connections-service/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// DefaultDatabase is the MongoDB database used when none is configured.
const DefaultDatabase = "personal_nexus"

// collectionName is the MongoDB collection holding one document per connection.
const collectionName = "connections"

// connectionDocument is the stored form of a connection: its fields plus the ObjectID.
type connectionDocument struct {
	ID               bson.ObjectID `bson:"_id,omitempty"`
	model.Connection `bson:",inline"`
}

func (d connectionDocument) toConnection() model.Connection {
	c := d.Connection
	c.ID = d.ID.Hex()
	c.Normalize()
	return c
}

// MongoStore keeps connections in a MongoDB collection. The client is created once and
// shared by all requests; the driver pools its connections.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore creates the client for the URI. The driver connects lazily, so an unreachable
// server is only noticed by the first operation or by Ping.
func NewMongoStore(uri string, database string) (*MongoStore, error) {
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "create mongo client")
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collectionName),
	}, nil
}

// ownerFilter matches all connections of an owner.
func ownerFilter(ownerID string) bson.D {
	return bson.D{{Key: "ownerId", Value: ownerID}}
}

// idAndOwnerFilter matches the connection with the id if it belongs to the owner. It returns
// false if the id is not a valid ObjectID, in which case nothing can match.
func idAndOwnerFilter(ownerID string, id string) (bson.D, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.D{{Key: "_id", Value: oid}, {Key: "ownerId", Value: ownerID}}, true
}

// setUpdate builds a $set update for the fields. Lists are replaced as a whole.
func setUpdate(fields []model.Field) bson.D {
	set := make(bson.D, 0, len(fields))
	for _, f := range fields {
		set = append(set, bson.E{Key: f.Key, Value: f.Value})
	}
	return bson.D{{Key: "$set", Value: set}}
}

// ListByOwner implements Store.
func (s *MongoStore) ListByOwner(ctx context.Context, ownerID string) ([]model.Connection, error) {
	cursor, err := s.collection.Find(ctx, ownerFilter(ownerID))
	if err != nil {
		return nil, errors.Wrap(err, "find connections")
	}
	var documents []connectionDocument
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, errors.Wrap(err, "read connections")
	}
	connections := make([]model.Connection, 0, len(documents))
	for _, d := range documents {
		connections = append(connections, d.toConnection())
	}
	return connections, nil
}

// Insert implements Store.
func (s *MongoStore) Insert(ctx context.Context, ownerID string, c model.Connection) (model.Connection, error) {
	c.ID = ""
	c.OwnerID = ownerID
	c.Normalize()
	document := connectionDocument{ID: bson.NewObjectID(), Connection: c}
	if _, err := s.collection.InsertOne(ctx, document); err != nil {
		return model.Connection{}, errors.Wrap(err, "insert connection")
	}
	return document.toConnection(), nil
}

// ReplaceFields implements Store.
func (s *MongoStore) ReplaceFields(ctx context.Context, ownerID string, patch model.ConnectionPatch) (UpdateResult, error) {
	if !patch.HasID() {
		return UpdateResult{}, ErrNoID
	}
	fields := patch.Fields()
	if len(fields) == 0 {
		return UpdateResult{}, ErrNoFields
	}
	filter, ok := idAndOwnerFilter(ownerID, *patch.ID)
	if !ok {
		return UpdateResult{}, nil
	}
	result, err := s.collection.UpdateOne(ctx, filter, setUpdate(fields))
	if err != nil {
		return UpdateResult{}, errors.Wrap(err, "update connection")
	}
	return UpdateResult{MatchedCount: result.MatchedCount, ModifiedCount: result.ModifiedCount}, nil
}

// DeleteByIDAndOwner implements Store.
func (s *MongoStore) DeleteByIDAndOwner(ctx context.Context, ownerID string, id string) (int64, error) {
	filter, ok := idAndOwnerFilter(ownerID, id)
	if !ok {
		return 0, nil
	}
	result, err := s.collection.DeleteOne(ctx, filter)
	if err != nil {
		return 0, errors.Wrap(err, "delete connection")
	}
	return result.DeletedCount, nil
}

// EnsureIndexes creates the owner index that every query of this store relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ownerId", Value: 1}},
		Options: options.Index().SetName("idx_connections_owner"),
	})
	return errors.Wrap(err, "create owner index")
}

// Ping implements Store.
func (s *MongoStore) Ping(ctx context.Context) error {
	return errors.Wrap(s.client.Ping(ctx, readpref.Primary()), "ping mongo")
}

// Close implements Store.
func (s *MongoStore) Close(ctx context.Context) error {
	return errors.Wrap(s.client.Disconnect(ctx), "disconnect mongo")
}
