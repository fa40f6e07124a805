package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventweb/content"
	"eventweb/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// MongoStore keeps users, events, templates and websites in MongoDB.
// Transactions need a replica set or sharded cluster.
type MongoStore struct {
	mongoTx
	client *mongo.Client
	log    *zap.Logger
}

type mongoTx struct {
	users     *mongo.Collection
	events    *mongo.Collection
	templates *mongo.Collection
	websites  *mongo.Collection
}

// Connect dials uri, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri, database string, log *zap.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := NewMongoStore(client, client.Database(database), log)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	log.Info("connected to mongo", zap.String("database", database))
	return s, nil
}

func NewMongoStore(client *mongo.Client, database *mongo.Database, log *zap.Logger) *MongoStore {
	return &MongoStore{
		mongoTx: mongoTx{
			users:     database.Collection("users"),
			events:    database.Collection("events"),
			templates: database.Collection("templates"),
			websites:  database.Collection("websites"),
		},
		client: client,
		log:    log,
	}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.users, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{s.events, []mongo.IndexModel{
			{Keys: bson.D{{Key: "organizer", Value: 1}, {Key: "createdAt", Value: -1}}},
		}},
		{s.templates, []mongo.IndexModel{
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		}},
		{s.websites, []mongo.IndexModel{
			{Keys: bson.D{{Key: "belongsToThisEvent", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "subdomain", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"subdomain": bson.M{"$exists": true}}),
			},
		}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateMany(ctx, idx.models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

func (s *MongoStore) RunInTx(ctx context.Context, fn TxFunc) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc, s.mongoTx)
	}, opts)
	if err != nil {
		s.log.Debug("transaction aborted", zap.Error(err))
	}
	return err
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter any) (*T, error) {
	var out T
	err := coll.FindOne(ctx, filter).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", coll.Name(), err)
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", coll.Name(), err)
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func insertErr(coll *mongo.Collection, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert into %s: %w", coll.Name(), ErrDuplicate)
	}
	return fmt.Errorf("insert into %s: %w", coll.Name(), err)
}

func updateErr(coll *mongo.Collection, res *mongo.UpdateResult, err error, none error) error {
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("update %s: %w", coll.Name(), ErrDuplicate)
		}
		return fmt.Errorf("update %s: %w", coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return none
	}
	return nil
}

func byID(id primitive.ObjectID) bson.M { return bson.M{"_id": id} }

// users

func (t mongoTx) InsertUser(ctx context.Context, u *models.User) error {
	// $push needs an array, not null
	if u.Events == nil {
		u.Events = []primitive.ObjectID{}
	}
	_, err := t.users.InsertOne(ctx, u)
	return insertErr(t.users, err)
}

func (t mongoTx) FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return findOne[models.User](ctx, t.users, byID(id))
}

func (t mongoTx) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, t.users, bson.M{"email": email})
}

func (t mongoTx) SetUserPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := t.users.UpdateOne(ctx, byID(id), bson.M{"$set": bson.M{"password": hash, "updatedAt": time.Now()}})
	return updateErr(t.users, res, err, ErrNotFound)
}

func (t mongoTx) PushUserEvent(ctx context.Context, userID, eventID primitive.ObjectID) error {
	res, err := t.users.UpdateOne(ctx, byID(userID), bson.M{"$push": bson.M{"events": eventID}})
	return updateErr(t.users, res, err, ErrNotFound)
}

func (t mongoTx) PullUserEvent(ctx context.Context, userID, eventID primitive.ObjectID) error {
	res, err := t.users.UpdateOne(ctx, byID(userID), bson.M{"$pull": bson.M{"events": eventID}})
	return updateErr(t.users, res, err, ErrNotFound)
}

// events

func (t mongoTx) InsertEvent(ctx context.Context, e *models.Event) error {
	_, err := t.events.InsertOne(ctx, e)
	return insertErr(t.events, err)
}

func (t mongoTx) FindEvent(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	return findOne[models.Event](ctx, t.events, byID(id))
}

func (t mongoTx) ListEventsByOrganizer(ctx context.Context, organizer primitive.ObjectID) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findAll[models.Event](ctx, t.events, bson.M{"organizer": organizer}, opts)
}

func (t mongoTx) UpdateEvent(ctx context.Context, id primitive.ObjectID, patch models.EventPatch, at time.Time) (*models.Event, error) {
	set := bson.M{"updatedAt": at}
	addStr := func(key string, v *string) {
		if v != nil {
			set[key] = *v
		}
	}
	addStr("eventName", patch.EventName)
	addStr("description", patch.Description)
	addStr("location", patch.Location)
	addStr("date", patch.Date)
	addStr("time", patch.Time)
	addStr("phone", patch.Phone)
	addStr("email", patch.Email)
	addStr("status", patch.Status)
	if patch.ExpectedNumberOfPeople != nil {
		set["expectedNumberOfPeople"] = *patch.ExpectedNumberOfPeople
	}

	var out models.Event
	err := t.events.FindOneAndUpdate(ctx, byID(id), bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return &out, nil
}

func (t mongoTx) SetEventWebsite(ctx context.Context, eventID, websiteID primitive.ObjectID) error {
	filter := bson.M{"_id": eventID, "website": bson.M{"$exists": false}}
	res, err := t.events.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"website": websiteID, "updatedAt": time.Now()}})
	return updateErr(t.events, res, err, ErrPrecondition)
}

func (t mongoTx) ClearEventWebsite(ctx context.Context, eventID primitive.ObjectID) error {
	res, err := t.events.UpdateOne(ctx, byID(eventID), bson.M{
		"$unset": bson.M{"website": ""},
		"$set":   bson.M{"updatedAt": time.Now()},
	})
	return updateErr(t.events, res, err, ErrNotFound)
}

func (t mongoTx) DeleteEvent(ctx context.Context, id primitive.ObjectID) error {
	res, err := t.events.DeleteOne(ctx, byID(id))
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// templates

func (t mongoTx) InsertTemplate(ctx context.Context, tpl *models.Template) error {
	_, err := t.templates.InsertOne(ctx, tpl)
	return insertErr(t.templates, err)
}

func (t mongoTx) FindTemplate(ctx context.Context, id primitive.ObjectID) (*models.Template, error) {
	return findOne[models.Template](ctx, t.templates, byID(id))
}

func (t mongoTx) ListTemplates(ctx context.Context) ([]models.Template, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findAll[models.Template](ctx, t.templates, bson.M{}, opts)
}

// websites

func (t mongoTx) InsertWebsite(ctx context.Context, w *models.Website) error {
	_, err := t.websites.InsertOne(ctx, w)
	return insertErr(t.websites, err)
}

func (t mongoTx) FindWebsite(ctx context.Context, id primitive.ObjectID) (*models.Website, error) {
	return findOne[models.Website](ctx, t.websites, byID(id))
}

func (t mongoTx) FindWebsiteByEvent(ctx context.Context, eventID primitive.ObjectID) (*models.Website, error) {
	return findOne[models.Website](ctx, t.websites, bson.M{"belongsToThisEvent": eventID})
}

func (t mongoTx) FindPublishedWebsite(ctx context.Context, subdomain string) (*models.Website, error) {
	return findOne[models.Website](ctx, t.websites, bson.M{"subdomain": subdomain, "published": true})
}

func (t mongoTx) SubdomainTaken(ctx context.Context, subdomain string) (bool, error) {
	n, err := t.websites.CountDocuments(ctx, bson.M{"subdomain": subdomain}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count subdomain: %w", err)
	}
	return n > 0, nil
}

func (t mongoTx) ListPublishedWebsites(ctx context.Context, eventIDs []primitive.ObjectID) ([]models.Website, error) {
	if len(eventIDs) == 0 {
		return []models.Website{}, nil
	}
	filter := bson.M{
		"belongsToThisEvent": bson.M{"$in": eventIDs},
		"published":          true,
		"subdomain":          bson.M{"$exists": true},
		"url":                bson.M{"$exists": true},
	}
	return findAll[models.Website](ctx, t.websites, filter)
}

func (t mongoTx) UpdateSectionContent(ctx context.Context, websiteID, sectionID primitive.ObjectID, c content.Value, at time.Time) error {
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []any{bson.M{"s._id": sectionID}},
	})
	filter := bson.M{"_id": websiteID, "sections._id": sectionID}
	res, err := t.websites.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"sections.$[s].content": c, "updatedAt": at},
	}, opts)
	return updateErr(t.websites, res, err, ErrNotFound)
}

func (t mongoTx) ReplaceSections(ctx context.Context, websiteID primitive.ObjectID, sections []models.Section, at time.Time) error {
	res, err := t.websites.UpdateOne(ctx, byID(websiteID), bson.M{
		"$set": bson.M{"sections": sections, "updatedAt": at},
	})
	return updateErr(t.websites, res, err, ErrNotFound)
}

func (t mongoTx) PublishWebsite(ctx context.Context, id primitive.ObjectID, p models.Publication) error {
	filter := bson.M{"_id": id, "published": false}
	res, err := t.websites.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"published":   true,
		"subdomain":   p.Subdomain,
		"url":         p.URL,
		"publishedOn": p.PublishedOn,
		"updatedAt":   p.PublishedOn,
	}})
	return t.guardErr(ctx, id, updateErr(t.websites, res, err, ErrPrecondition))
}

func (t mongoTx) UnpublishWebsite(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	filter := bson.M{"_id": id, "published": true}
	res, err := t.websites.UpdateOne(ctx, filter, bson.M{
		"$set":   bson.M{"published": false, "updatedAt": at},
		"$unset": bson.M{"subdomain": "", "url": "", "publishedOn": ""},
	})
	return t.guardErr(ctx, id, updateErr(t.websites, res, err, ErrPrecondition))
}

// guardErr tells a website that failed a state guard apart from one that
// no longer exists.
func (t mongoTx) guardErr(ctx context.Context, id primitive.ObjectID, err error) error {
	if err != ErrPrecondition {
		return err
	}
	n, cerr := t.websites.CountDocuments(ctx, byID(id), options.Count().SetLimit(1))
	if cerr != nil {
		return fmt.Errorf("count websites: %w", cerr)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrPrecondition
}

func (t mongoTx) DeleteWebsite(ctx context.Context, id primitive.ObjectID) error {
	res, err := t.websites.DeleteOne(ctx, byID(id))
	if err != nil {
		return fmt.Errorf("delete website: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (t mongoTx) DeleteWebsiteByEvent(ctx context.Context, eventID primitive.ObjectID) (bool, error) {
	res, err := t.websites.DeleteOne(ctx, bson.M{"belongsToThisEvent": eventID})
	if err != nil {
		return false, fmt.Errorf("delete website by event: %w", err)
	}
	return res.DeletedCount > 0, nil
}

var _ Store = (*MongoStore)(nil)
