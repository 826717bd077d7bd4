package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"greenreport-be/apperror"
	"greenreport-be/models"
	"greenreport-be/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assigned(t *testing.T, f *fixture, worker models.User) models.Report {
	t.Helper()
	r := f.report(t, worker.City, models.SeverityMedium, time.Now())
	_, err := f.reports.Assign(context.Background(), r.ID.Hex(), worker.ID.Hex())
	require.NoError(t, err)
	return r
}

func TestUpdateStatus_Complete(t *testing.T) {
	f := newFixture(t)
	w := f.worker(t, "kofi", "Joura")
	r := assigned(t, f, w)

	view, err := f.reports.UpdateStatus(context.Background(), StatusUpdate{
		ReportID:   r.ID.Hex(),
		WorkerID:   w.ID.Hex(),
		Status:     models.StatusCompleted,
		Notes:      " cleared ",
		AfterImage: []byte("jpeg"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, view.Status)
	require.NotNil(t, view.ImageURLAfter)
	assert.Equal(t, "/uploads/after/1.jpg", *view.ImageURLAfter)
	require.NotNil(t, view.WorkerNotes)
	assert.Equal(t, "cleared", *view.WorkerNotes)
	require.NotNil(t, view.AssignedWorker)
	assert.Equal(t, w.ID, view.AssignedWorker.ID)
	assert.Equal(t, 0, f.pending(t, w.ID.Hex()))
	f.assertConsistent(t)
}

func TestUpdateStatus_Decline(t *testing.T) {
	f := newFixture(t)
	w := f.worker(t, "kofi", "Joura")
	r := assigned(t, f, w)

	view, err := f.reports.UpdateStatus(context.Background(), StatusUpdate{
		ReportID: r.ID.Hex(),
		WorkerID: w.ID.Hex(),
		Status:   models.StatusDeclined,
		Notes:    "site not reachable",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeclined, view.Status)
	assert.Nil(t, view.ImageURLAfter)
	assert.Equal(t, 0, f.images.calls)
	assert.Equal(t, 0, f.pending(t, w.ID.Hex()))
}

func TestUpdateStatus_ConcurrentCallsSucceedOnce(t *testing.T) {
	f := newFixture(t)
	w := f.worker(t, "kofi", "Joura")
	r := assigned(t, f, w)
	assigned(t, f, w)
	require.Equal(t, 2, f.pending(t, w.ID.Hex()))

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.reports.UpdateStatus(context.Background(), StatusUpdate{
				ReportID: r.ID.Hex(),
				WorkerID: w.ID.Hex(),
				Status:   models.StatusDeclined,
				Notes:    "site not reachable",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes := 0
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.True(t, apperror.Is(err, apperror.CodeInvalidState), err.Error())
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, f.pending(t, w.ID.Hex()))
	f.assertConsistent(t)
}

func TestUpdateStatus_ForeignWorkerForbidden(t *testing.T) {
	f := newFixture(t)
	owner := f.worker(t, "kofi", "Joura")
	other := f.worker(t, "ama", "Joura")
	r := assigned(t, f, owner)

	_, err := f.reports.UpdateStatus(context.Background(), StatusUpdate{
		ReportID: r.ID.Hex(),
		WorkerID: other.ID.Hex(),
		Status:   models.StatusDeclined,
		Notes:    "not mine",
	})
	assert.True(t, apperror.Is(err, apperror.CodeForbidden))

	got, err := f.store.Reports().FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, got.Status)
	assert.Equal(t, 1, f.pending(t, owner.ID.Hex()))
	f.assertConsistent(t)
}

func TestUpdateStatus_ValidationLeavesReportUntouched(t *testing.T) {
	f := newFixture(t)
	w := f.worker(t, "kofi", "Joura")
	r := assigned(t, f, w)

	tests := []struct {
		name string
		in   StatusUpdate
	}{
		{"complete without image", StatusUpdate{Status: models.StatusCompleted, Notes: "done"}},
		{"decline without notes", StatusUpdate{Status: models.StatusDeclined, Notes: "   "}},
		{"back to pending", StatusUpdate{Status: models.StatusPending, Notes: "x"}},
		{"unknown status", StatusUpdate{Status: "Archived", Notes: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.ReportID = r.ID.Hex()
			tt.in.WorkerID = w.ID.Hex()
			_, err := f.reports.UpdateStatus(context.Background(), tt.in)
			assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))
		})
	}

	got, err := f.store.Reports().FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, got.Status)
	assert.Nil(t, got.WorkerNotes)
	assert.Equal(t, 1, f.pending(t, w.ID.Hex()))
}

func TestUpdateStatus_FinalizedReportIsInvalidState(t *testing.T) {
	f := newFixture(t)
	w := f.worker(t, "kofi", "Joura")
	r := assigned(t, f, w)
	ctx := context.Background()

	_, err := f.reports.UpdateStatus(ctx, StatusUpdate{ReportID: r.ID.Hex(), WorkerID: w.ID.Hex(), Status: models.StatusDeclined, Notes: "blocked"})
	require.NoError(t, err)

	_, err = f.reports.UpdateStatus(ctx, StatusUpdate{ReportID: r.ID.Hex(), WorkerID: w.ID.Hex(), Status: models.StatusCompleted, AfterImage: []byte("jpeg")})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidState))
	assert.Equal(t, 0, f.pending(t, w.ID.Hex()))
	assert.Equal(t, 0, f.images.calls)
	f.assertConsistent(t)
}

func TestUpdateStatus_MissingReport(t *testing.T) {
	f := newFixture(t)
	w := f.worker(t, "kofi", "Joura")
	_, err := f.reports.UpdateStatus(context.Background(), StatusUpdate{
		ReportID: "64b7f0c2e4b0a1a2b3c4d5e6",
		WorkerID: w.ID.Hex(),
		Status:   models.StatusDeclined,
		Notes:    "x",
	})
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestUpdateStatus_UnsupportedImage(t *testing.T) {
	f := newFixture(t)
	w := f.worker(t, "kofi", "Joura")
	r := assigned(t, f, w)
	f.images.err = storage.ErrUnsupportedImage

	_, err := f.reports.UpdateStatus(context.Background(), StatusUpdate{
		ReportID:   r.ID.Hex(),
		WorkerID:   w.ID.Hex(),
		Status:     models.StatusCompleted,
		AfterImage: []byte("gif"),
	})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))
	assert.Equal(t, 1, f.pending(t, w.ID.Hex()))
}

func TestCounterInvariant_MixedSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.worker(t, "kofi", "Joura")
	b := f.worker(t, "ama", "Joura")

	var reports []models.Report
	for i := 0; i < 6; i++ {
		reports = append(reports, f.report(t, "Joura", models.SeverityLow, time.Now()))
	}
	for i, r := range reports {
		w := a
		if i%2 == 1 {
			w = b
		}
		_, err := f.reports.Assign(ctx, r.ID.Hex(), w.ID.Hex())
		require.NoError(t, err)
		f.assertConsistent(t)
	}

	_, err := f.reports.UpdateStatus(ctx, StatusUpdate{ReportID: reports[0].ID.Hex(), WorkerID: a.ID.Hex(), Status: models.StatusCompleted, AfterImage: []byte("x")})
	require.NoError(t, err)
	_, err = f.reports.UpdateStatus(ctx, StatusUpdate{ReportID: reports[1].ID.Hex(), WorkerID: b.ID.Hex(), Status: models.StatusDeclined, Notes: "x"})
	require.NoError(t, err)
	_, err = f.reports.UpdateStatus(ctx, StatusUpdate{ReportID: reports[2].ID.Hex(), WorkerID: b.ID.Hex(), Status: models.StatusDeclined, Notes: "x"})
	require.Error(t, err)
	_, err = f.reports.Assign(ctx, reports[0].ID.Hex(), b.ID.Hex())
	require.Error(t, err)

	f.assertConsistent(t)
	assert.Equal(t, 2, f.pending(t, a.ID.Hex()))
	assert.Equal(t, 2, f.pending(t, b.ID.Hex()))
}
