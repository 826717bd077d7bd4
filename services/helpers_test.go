package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"greenreport-be/models"
	"greenreport-be/store"
	authUtils "greenreport-be/utils"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type stubImages struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubImages) Upload(ctx context.Context, folder string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.calls++
	return fmt.Sprintf("/uploads/%s/%d.jpg", folder, s.calls), nil
}

type fixture struct {
	store    *store.MemoryStore
	images   *stubImages
	reports  *ReportService
	accounts *AccountService
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	images := &stubImages{}
	log := quietLogger()
	return &fixture{
		store:    st,
		images:   images,
		reports:  NewReportService(st, NewLocalLocker(), images, log),
		accounts: NewAccountService(st, authUtils.NewTokenManager("test-secret", time.Hour), log),
	}
}

func (f *fixture) worker(t *testing.T, name, city string) models.User {
	t.Helper()
	w, err := f.accounts.CreateWorker(context.Background(), NewWorker{
		Name:     name,
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: "secret1",
		City:     city,
	})
	require.NoError(t, err)
	return *w
}

func (f *fixture) report(t *testing.T, city string, severity models.Severity, createdAt time.Time) models.Report {
	t.Helper()
	r := models.Report{
		City:           city,
		CityKey:        models.CityKey(city),
		Severity:       severity,
		Status:         models.StatusPending,
		ImageURLBefore: "/uploads/before/x.jpg",
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	require.NoError(t, f.store.Reports().Create(context.Background(), &r))
	return r
}

func (f *fixture) pending(t *testing.T, workerID string) int {
	t.Helper()
	u, err := f.accounts.Me(context.Background(), workerID)
	require.NoError(t, err)
	return u.PendingTaskCount
}

// assertConsistent checks that every worker's counter matches its Assigned
// reports and that only Pending reports lack an assignee.
func (f *fixture) assertConsistent(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	reports, err := f.store.Reports().List(ctx, store.ReportFilter{})
	require.NoError(t, err)
	for _, r := range reports {
		require.Equal(t, r.Status != models.StatusPending, r.AssignedWorker != nil, "report %s", r.ID.Hex())
	}

	workers, err := f.store.Users().List(ctx, store.UserFilter{Role: models.RoleWorker})
	require.NoError(t, err)
	for _, w := range workers {
		count, err := f.store.Reports().CountAssigned(ctx, w.ID)
		require.NoError(t, err)
		require.Equal(t, count, w.PendingTaskCount, "worker %s", w.Name)
	}
}
