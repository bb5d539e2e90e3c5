package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agentic-research/tabula/api"
)

const mongoCollection = "records"

// MongoStore persists records in a MongoDB collection, one document per
// record. Fields live in an ordered `fields` subdocument (bson.D round-trips
// key order); `_id` carries the store-assigned UUID and `pos` the insertion
// rank. Both are bookkeeping and are stripped before records leave the store.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// mongoDoc is the persisted shape of one record.
type mongoDoc struct {
	ID     string `bson:"_id"`
	Pos    int64  `bson:"pos"`
	Fields bson.D `bson:"fields"`
}

// OpenMongo connects to the deployment named by uri. The database name is
// taken from the URI path, defaulting to "tabula".
func OpenMongo(ctx context.Context, uri string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	dbName := "tabula"
	if cs, err := connstringDatabase(uri); err == nil && cs != "" {
		dbName = cs
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(dbName).Collection(mongoCollection),
	}, nil
}

// InsertMany performs an ordered bulk insert. On a mid-batch failure the
// earlier documents stay persisted and the returned count says how many.
func (s *MongoStore) InsertMany(ctx context.Context, records []api.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	base := time.Now().UnixNano()
	docs := make([]interface{}, 0, len(records))
	for i, rec := range records {
		fields := bson.D{}
		for pair := rec.Fields.Oldest(); pair != nil; pair = pair.Next() {
			fields = append(fields, bson.E{Key: pair.Key, Value: pair.Value})
		}
		docs = append(docs, mongoDoc{
			ID:     newRecordID(),
			Pos:    base + int64(i),
			Fields: fields,
		})
	}

	res, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		inserted := 0
		if res != nil {
			inserted = len(res.InsertedIDs)
		}
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
			// Ordered insert stops at the first write error, so its index is
			// exactly the number of documents that landed.
			inserted = bwe.WriteErrors[0].Index
			return inserted, &ValidationError{
				Reason: fmt.Sprintf("record %d rejected by store", bwe.WriteErrors[0].Index),
				Err:    err,
			}
		}
		return inserted, fmt.Errorf("insert batch: %w", err)
	}
	return len(res.InsertedIDs), nil
}

// List returns all records ordered by insertion rank.
func (s *MongoStore) List(ctx context.Context) ([]api.Record, error) {
	cursor, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "pos", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []api.Record
	for cursor.Next(ctx) {
		var doc mongoDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, doc.record())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Update merges patch into the stored document and returns the result. The
// merge happens in Go (read, merge, replace) rather than via $set paths so
// column names containing dots or dollars stay plain keys.
func (s *MongoStore) Update(ctx context.Context, id string, patch map[string]string) (api.Record, error) {
	filter := bson.D{{Key: "_id", Value: id}}

	var doc mongoDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return api.Record{}, ErrNotFound
		}
		return api.Record{}, fmt.Errorf("load record %s: %w", id, err)
	}

	rec := doc.record()
	applyPatch(rec, patch)

	fields := bson.D{}
	for pair := rec.Fields.Oldest(); pair != nil; pair = pair.Next() {
		fields = append(fields, bson.E{Key: pair.Key, Value: pair.Value})
	}
	doc.Fields = fields

	err := s.coll.FindOneAndReplace(ctx, filter, doc,
		options.FindOneAndReplace().SetReturnDocument(options.After)).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Deleted between read and replace; to the caller that is the
			// same race as updating a record that never existed.
			return api.Record{}, ErrNotFound
		}
		return api.Record{}, fmt.Errorf("store record %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes the record addressed by id.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close disconnects from the deployment.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// record converts the persisted shape back to the wire shape, dropping
// bookkeeping.
func (d mongoDoc) record() api.Record {
	rec := api.NewRecord()
	rec.ID = d.ID
	for _, e := range d.Fields {
		rec.Set(e.Key, fmt.Sprintf("%v", e.Value))
	}
	return rec
}
