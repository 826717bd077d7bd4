package store

import (
	"context"
	"errors"
	"strings"

	"greenreport-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	reportsCollection = "reports"
	usersCollection   = "users"
)

// MongoStore is the production Store. Multi-document transactions need a
// replica set, so they are only used when enabled.
type MongoStore struct {
	client       *mongo.Client
	reports      *mongo.Collection
	users        *mongo.Collection
	transactions bool
}

func NewMongoStore(client *mongo.Client, database string, transactions bool) *MongoStore {
	db := client.Database(database)
	return &MongoStore{
		client:       client,
		reports:      db.Collection(reportsCollection),
		users:        db.Collection(usersCollection),
		transactions: transactions,
	}
}

func (s *MongoStore) Reports() ReportRepository { return &mongoReports{coll: s.reports} }
func (s *MongoStore) Users() UserRepository     { return &mongoUsers{coll: s.users} }

func (s *MongoStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// EnsureIndexes creates the unique email index and the lookup indexes used by
// the assignment and query paths.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "cityKey", Value: 1}}},
	}); err != nil {
		return err
	}

	_, err := s.reports.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "assignedWorker", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "cityKey", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	return err
}

// Ping checks connectivity for readiness probes.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

type mongoReports struct {
	coll *mongo.Collection
}

func (r *mongoReports) Create(ctx context.Context, report *models.Report) error {
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, report)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *mongoReports) FindByID(ctx context.Context, id primitive.ObjectID) (models.Report, error) {
	var report models.Report
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Report{}, ErrNotFound
	}
	return report, err
}

func (r *mongoReports) List(ctx context.Context, filter ReportFilter) ([]models.Report, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.CityKey != "" {
		query["cityKey"] = filter.CityKey
	}
	if filter.AssignedWorker != nil {
		query["assignedWorker"] = *filter.AssignedWorker
	}

	cursor, err := r.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reports := make([]models.Report, 0)
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *mongoReports) Transition(ctx context.Context, id primitive.ObjectID, from models.ReportStatus, patch models.ReportPatch) (models.Report, error) {
	set := bson.M{
		"status":    patch.Status,
		"updatedAt": patch.UpdatedAt,
	}
	if patch.AssignedWorker != nil {
		set["assignedWorker"] = *patch.AssignedWorker
	}
	if patch.WorkerNotes != nil {
		set["workerNotes"] = *patch.WorkerNotes
	}
	if patch.ImageURLAfter != nil {
		set["imageUrl_after"] = *patch.ImageURLAfter
	}

	var updated models.Report
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		count, cerr := r.coll.CountDocuments(ctx, bson.M{"_id": id})
		if cerr != nil {
			return models.Report{}, cerr
		}
		if count == 0 {
			return models.Report{}, ErrNotFound
		}
		return models.Report{}, ErrStaleState
	}
	return updated, err
}

func (r *mongoReports) CountAssigned(ctx context.Context, workerID primitive.ObjectID) (int, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"status": models.StatusAssigned, "assignedWorker": workerID})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

type mongoUsers struct {
	coll *mongo.Collection
}

func (u *mongoUsers) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = strings.ToLower(user.Email)
	_, err := u.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (u *mongoUsers) FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return u.findOne(ctx, bson.M{"_id": id})
}

func (u *mongoUsers) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return u.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (u *mongoUsers) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var user models.User
	err := u.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

func (u *mongoUsers) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return u.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (u *mongoUsers) List(ctx context.Context, filter UserFilter) ([]models.User, error) {
	query := bson.M{}
	if filter.Role != "" {
		query["role"] = filter.Role
	}
	if filter.CityKey != "" {
		query["cityKey"] = filter.CityKey
	}
	return u.find(ctx, query)
}

func (u *mongoUsers) find(ctx context.Context, filter bson.M) ([]models.User, error) {
	cursor, err := u.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (u *mongoUsers) AdjustPendingTasks(ctx context.Context, id primitive.ObjectID, delta int) error {
	filter := bson.M{"_id": id, "role": models.RoleWorker}
	if delta < 0 {
		filter["pendingTaskCount"] = bson.M{"$gte": -delta}
	}
	res, err := u.coll.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"pendingTaskCount": delta}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		count, err := u.coll.CountDocuments(ctx, bson.M{"_id": id, "role": models.RoleWorker})
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrCounterUnderflow
	}
	return nil
}

func (u *mongoUsers) SetPendingTasks(ctx context.Context, id primitive.ObjectID, expected, count int) error {
	if count < 0 {
		return ErrCounterUnderflow
	}
	res, err := u.coll.UpdateOne(ctx,
		bson.M{"_id": id, "pendingTaskCount": expected},
		bson.M{"$set": bson.M{"pendingTaskCount": count}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := u.coll.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrStaleState
	}
	return nil
}
