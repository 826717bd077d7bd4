// Package store holds the persistence contracts for reports and users and
// their MongoDB and in-memory implementations.
package store

import (
	"context"
	"errors"

	"greenreport-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound = errors.New("store: entity not found")
	// ErrStaleState is returned by a conditional update whose expected value no longer holds.
	ErrStaleState       = errors.New("store: status changed concurrently")
	ErrDuplicate        = errors.New("store: duplicate key")
	ErrCounterUnderflow = errors.New("store: pending task counter would go negative")
)

// ReportFilter narrows List. Zero values match everything.
type ReportFilter struct {
	Status         models.ReportStatus
	CityKey        string
	AssignedWorker *primitive.ObjectID
}

type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Report, error)
	// List returns matching reports, newest first.
	List(ctx context.Context, filter ReportFilter) ([]models.Report, error)
	// Transition applies patch only if the stored status still equals from.
	Transition(ctx context.Context, id primitive.ObjectID, from models.ReportStatus, patch models.ReportPatch) (models.Report, error)
	// CountAssigned counts the Assigned reports held by one worker.
	CountAssigned(ctx context.Context, workerID primitive.ObjectID) (int, error)
}

// UserFilter narrows List. Zero values match everything.
type UserFilter struct {
	Role    models.Role
	CityKey string
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	List(ctx context.Context, filter UserFilter) ([]models.User, error)
	// AdjustPendingTasks adds delta to a worker's counter, refusing to go below zero.
	AdjustPendingTasks(ctx context.Context, id primitive.ObjectID, delta int) error
	// SetPendingTasks overwrites the counter only while it still equals
	// expected and returns ErrStaleState otherwise.
	SetPendingTasks(ctx context.Context, id primitive.ObjectID, expected, count int) error
}

// Store groups the repositories with the transaction boundary that spans them.
type Store interface {
	Reports() ReportRepository
	Users() UserRepository
	// WithTransaction runs fn so that every write made through the ctx it
	// receives commits or rolls back together.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
