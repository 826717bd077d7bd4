//go:build integration

package store

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"greenreport-be/config"
	"greenreport-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Run with: MONGODB_URI=mongodb://localhost:27017 go test -tags integration ./store/...
// Set MONGO_TRANSACTIONS=true against a replica set to cover rollback.
func newMongoTestStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}
	transactions, _ := strconv.ParseBool(os.Getenv("MONGO_TRANSACTIONS"))

	ctx := context.Background()
	client, err := config.ConnectDB(ctx, uri)
	require.NoError(t, err)

	database := "greenreport_test_" + primitive.NewObjectID().Hex()
	s := NewMongoStore(client, database, transactions)
	require.NoError(t, s.EnsureIndexes(ctx))
	t.Cleanup(func() {
		_ = client.Database(database).Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return s
}

func mongoWorker(t *testing.T, s *MongoStore, email string, count int) models.User {
	t.Helper()
	w := models.User{Name: "Kofi", Email: email, Role: models.RoleWorker, City: "Joura", CityKey: "joura", PendingTaskCount: count, CreatedAt: time.Now()}
	require.NoError(t, s.Users().Create(context.Background(), &w))
	return w
}

func mongoReport(t *testing.T, s *MongoStore) models.Report {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	r := models.Report{City: "Joura", CityKey: "joura", Severity: models.SeverityLow, Status: models.StatusPending, ImageURLBefore: "/uploads/a.jpg", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.Reports().Create(context.Background(), &r))
	return r
}

func TestMongoTransition_ConditionalOnStatus(t *testing.T) {
	s := newMongoTestStore(t)
	ctx := context.Background()
	r := mongoReport(t, s)
	worker := primitive.NewObjectID()
	patch := models.ReportPatch{Status: models.StatusAssigned, AssignedWorker: &worker, UpdatedAt: time.Now()}

	updated, err := s.Reports().Transition(ctx, r.ID, models.StatusPending, patch)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, updated.Status)
	assert.True(t, updated.IsAssignedTo(worker))

	_, err = s.Reports().Transition(ctx, r.ID, models.StatusPending, patch)
	assert.ErrorIs(t, err, ErrStaleState)

	_, err = s.Reports().Transition(ctx, primitive.NewObjectID(), models.StatusPending, patch)
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := s.Reports().CountAssigned(ctx, worker)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMongoAdjustPendingTasks_RefusesUnderflow(t *testing.T) {
	s := newMongoTestStore(t)
	ctx := context.Background()
	w := mongoWorker(t, s, "kofi@example.com", 1)

	require.NoError(t, s.Users().AdjustPendingTasks(ctx, w.ID, -1))
	assert.ErrorIs(t, s.Users().AdjustPendingTasks(ctx, w.ID, -1), ErrCounterUnderflow)
	assert.ErrorIs(t, s.Users().AdjustPendingTasks(ctx, primitive.NewObjectID(), 1), ErrNotFound)

	got, err := s.Users().FindByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.PendingTaskCount)
}

func TestMongoSetPendingTasks_ComparesBeforeWriting(t *testing.T) {
	s := newMongoTestStore(t)
	ctx := context.Background()
	w := mongoWorker(t, s, "kofi@example.com", 2)

	assert.ErrorIs(t, s.Users().SetPendingTasks(ctx, w.ID, 1, 0), ErrStaleState)
	assert.ErrorIs(t, s.Users().SetPendingTasks(ctx, primitive.NewObjectID(), 0, 1), ErrNotFound)
	require.NoError(t, s.Users().SetPendingTasks(ctx, w.ID, 2, 0))

	got, err := s.Users().FindByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.PendingTaskCount)
}

func TestMongoUsers_DuplicateEmail(t *testing.T) {
	s := newMongoTestStore(t)
	mongoWorker(t, s, "kofi@example.com", 0)
	dup := models.User{Email: "KOFI@example.com", Role: models.RoleWorker}
	assert.ErrorIs(t, s.Users().Create(context.Background(), &dup), ErrDuplicate)
}

func TestMongoWithTransaction_RollsBack(t *testing.T) {
	s := newMongoTestStore(t)
	if !s.transactions {
		t.Skip("MONGO_TRANSACTIONS not enabled")
	}
	ctx := context.Background()
	r := mongoReport(t, s)
	w := mongoWorker(t, s, "kofi@example.com", 0)
	boom := errors.New("boom")

	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.Reports().Transition(ctx, r.ID, models.StatusPending, models.ReportPatch{Status: models.StatusAssigned, AssignedWorker: &w.ID, UpdatedAt: time.Now()}); err != nil {
			return err
		}
		if err := s.Users().AdjustPendingTasks(ctx, w.ID, 1); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Reports().FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.AssignedWorker)

	user, err := s.Users().FindByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, user.PendingTaskCount)
}
