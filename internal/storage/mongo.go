package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoDatabase   = "lockpick"
	mongoCollection = "sessions"
	mongoTimeout    = 10 * time.Second
)

// MongoRepository archives whole session documents, attempts included.
type MongoRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoRepository(uri string) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	coll := client.Database(mongoDatabase).Collection(mongoCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "completedAt", Value: -1}},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	return &MongoRepository{client: client, coll: coll}, nil
}

func (r *MongoRepository) SaveSession(record *SessionRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, record)
	return err
}

func (r *MongoRepository) GetSessionsByUser(userID string) ([]SessionRecord, error) {
	return r.find(bson.M{"userId": userID})
}

func (r *MongoRepository) GetRecentSessions(userID string, since time.Time) ([]SessionRecord, error) {
	return r.find(bson.M{"userId": userID, "completedAt": bson.M{"$gte": since}})
}

func (r *MongoRepository) GetSessionStats(userID string) (*SessionStats, error) {
	records, err := r.GetSessionsByUser(userID)
	if err != nil {
		return nil, err
	}
	return statsFromRecords(records), nil
}

func (r *MongoRepository) find(filter bson.M) ([]SessionRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "completedAt", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var records []SessionRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	return r.client.Disconnect(ctx)
}
