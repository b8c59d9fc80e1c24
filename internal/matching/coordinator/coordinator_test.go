// internal/matching/coordinator/coordinator_test.go
package coordinator

import (
	"context"
	"errors"
	"testing"

	"loan-matching-workers/internal/common/logger"
	"loan-matching-workers/internal/matching/scoring"
	"loan-matching-workers/internal/models"

	"github.com/stretchr/testify/assert"
)

type fakeUserSource struct {
	pages [][]models.User
	err   error
	calls int
}

func (f *fakeUserSource) UserPage(ctx context.Context, offset, limit int) ([]models.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	page := offset / limit
	if page >= len(f.pages) {
		return nil, nil
	}
	return f.pages[page], nil
}

type fakeCatalogSource struct {
	products []models.LoanProduct
	err      error
	calls    int
}

func (f *fakeCatalogSource) ActiveProducts(ctx context.Context) ([]models.LoanProduct, error) {
	f.calls++
	return f.products, f.err
}

type fakeLogStore struct {
	entries []models.ProcessingLogEntry
	err     error
}

func (f *fakeLogStore) Append(ctx context.Context, entry models.ProcessingLogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLogStore) statuses() []models.BatchStatus {
	out := make([]models.BatchStatus, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Status)
	}
	return out
}

type fakePersister struct {
	persisted map[string][]scoring.ScoredCandidate
	created   int
	updated   int
	failUser  string
}

func (f *fakePersister) Persist(ctx context.Context, user models.User, candidates []scoring.ScoredCandidate) (int, int, error) {
	if user.UserID == f.failUser {
		return 0, 0, errors.New("upsert failed")
	}
	if f.persisted == nil {
		f.persisted = make(map[string][]scoring.ScoredCandidate)
	}
	f.persisted[user.UserID] = candidates
	return f.created, f.updated, nil
}

func validUser(id string) models.User {
	return models.User{
		UserID:           id,
		Email:            id + "@example.com",
		MonthlyIncome:    4000,
		CreditScore:      700,
		EmploymentStatus: models.EmploymentEmployed,
		Age:              35,
	}
}

func activeCatalog() []models.LoanProduct {
	return []models.LoanProduct{
		{ID: "p-1", InterestRate: 8.5},
		{ID: "p-2", InterestRate: 12.0},
	}
}

func newTestCoordinator(t *testing.T, users *fakeUserSource, catalog *fakeCatalogSource, logs *fakeLogStore, persister *fakePersister) *Coordinator {
	log := logger.NewTestLogger(t)
	return New(Options{
		Users:     users,
		Catalog:   catalog,
		LogStore:  logs,
		Engine:    scoring.NewEngine(nil, log),
		Persister: persister,
		PageSize:  10,
		Logger:    log,
	})
}

func TestRun_HappyPath(t *testing.T) {
	users := &fakeUserSource{pages: [][]models.User{
		{validUser("u-1"), validUser("u-2")},
	}}
	catalog := &fakeCatalogSource{products: activeCatalog()}
	logs := &fakeLogStore{}
	persister := &fakePersister{created: 1, updated: 1}

	coord := newTestCoordinator(t, users, catalog, logs, persister)
	summary, err := coord.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, models.BatchCompleted, summary.Status)
	assert.Equal(t, 2, summary.UsersProcessed)
	assert.Equal(t, 4, summary.PairsEvaluated)
	assert.Equal(t, 2, summary.MatchesCreated)
	assert.Equal(t, 2, summary.MatchesUpdated)
	assert.Empty(t, summary.Errors)
	assert.NotEmpty(t, summary.BatchID)

	assert.Equal(t, []models.BatchStatus{
		models.BatchStarted,
		models.BatchInProgress,
		models.BatchCompleted,
	}, logs.statuses())

	assert.Len(t, persister.persisted["u-1"], 2)
	assert.Len(t, persister.persisted["u-2"], 2)
}

func TestRun_CatalogFrozenOnce(t *testing.T) {
	users := &fakeUserSource{pages: [][]models.User{
		{validUser("u-1")},
		{validUser("u-2")},
	}}
	catalog := &fakeCatalogSource{products: activeCatalog()}
	logs := &fakeLogStore{}

	coord := New(Options{
		Users:     users,
		Catalog:   catalog,
		LogStore:  logs,
		Engine:    scoring.NewEngine(nil, logger.NewTestLogger(t)),
		Persister: &fakePersister{},
		PageSize:  1,
		Logger:    logger.NewTestLogger(t),
	})

	summary, err := coord.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 2, summary.UsersProcessed)
	assert.Equal(t, 1, catalog.calls)
}

func TestRun_CatalogUnavailable(t *testing.T) {
	catalog := &fakeCatalogSource{err: errors.New("connection refused")}
	logs := &fakeLogStore{}
	persister := &fakePersister{}
	users := &fakeUserSource{}

	coord := newTestCoordinator(t, users, catalog, logs, persister)
	summary, err := coord.Run(context.Background())

	assert.Error(t, err)
	assert.Equal(t, models.BatchFailed, summary.Status)
	assert.Zero(t, summary.UsersProcessed)
	assert.Zero(t, users.calls)
	assert.Empty(t, persister.persisted)

	statuses := logs.statuses()
	assert.Equal(t, []models.BatchStatus{models.BatchStarted, models.BatchFailed}, statuses)
	assert.Len(t, summary.Errors, 1)
	assert.Equal(t, "batch", summary.Errors[0].Stage)
}

func TestRun_EmptyCatalogFails(t *testing.T) {
	catalog := &fakeCatalogSource{}
	logs := &fakeLogStore{}

	coord := newTestCoordinator(t, &fakeUserSource{}, catalog, logs, &fakePersister{})
	summary, err := coord.Run(context.Background())

	assert.Error(t, err)
	assert.Equal(t, models.BatchFailed, summary.Status)
	assert.Equal(t, []models.BatchStatus{models.BatchStarted, models.BatchFailed}, logs.statuses())
}

func TestRun_InvalidUserIsolated(t *testing.T) {
	broken := validUser("u-broken")
	broken.CreditScore = 200

	users := &fakeUserSource{pages: [][]models.User{
		{validUser("u-1"), broken, validUser("u-3")},
	}}
	persister := &fakePersister{created: 1}

	coord := newTestCoordinator(t, users, &fakeCatalogSource{products: activeCatalog()}, &fakeLogStore{}, persister)
	summary, err := coord.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, models.BatchCompleted, summary.Status)
	assert.Equal(t, 2, summary.UsersProcessed)
	assert.Len(t, summary.Errors, 1)
	assert.Equal(t, "u-broken", summary.Errors[0].UserID)
	assert.Equal(t, "validation", summary.Errors[0].Stage)
	assert.NotContains(t, persister.persisted, "u-broken")
}

func TestRun_PersistErrorIsolated(t *testing.T) {
	users := &fakeUserSource{pages: [][]models.User{
		{validUser("u-1"), validUser("u-2"), validUser("u-3")},
	}}
	persister := &fakePersister{created: 1, failUser: "u-2"}

	coord := newTestCoordinator(t, users, &fakeCatalogSource{products: activeCatalog()}, &fakeLogStore{}, persister)
	summary, err := coord.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, models.BatchCompleted, summary.Status)
	assert.Equal(t, 2, summary.UsersProcessed)
	assert.Len(t, summary.Errors, 1)
	assert.Equal(t, "u-2", summary.Errors[0].UserID)
	assert.Equal(t, "persistence", summary.Errors[0].Stage)
	// pairs for the failed user are still counted as evaluated
	assert.Equal(t, 6, summary.PairsEvaluated)
}

func TestRun_UserSourceFailsAtStart(t *testing.T) {
	users := &fakeUserSource{err: errors.New("relation does not exist")}
	logs := &fakeLogStore{}

	coord := newTestCoordinator(t, users, &fakeCatalogSource{products: activeCatalog()}, logs, &fakePersister{})
	summary, err := coord.Run(context.Background())

	assert.Error(t, err)
	assert.Equal(t, models.BatchFailed, summary.Status)
	assert.Equal(t, []models.BatchStatus{models.BatchStarted, models.BatchFailed}, logs.statuses())
}

func TestRun_MultiPagePaging(t *testing.T) {
	users := &fakeUserSource{pages: [][]models.User{
		{validUser("u-1"), validUser("u-2")},
		{validUser("u-3"), validUser("u-4")},
		{validUser("u-5")},
	}}
	logs := &fakeLogStore{}

	coord := New(Options{
		Users:     users,
		Catalog:   &fakeCatalogSource{products: activeCatalog()},
		LogStore:  logs,
		Engine:    scoring.NewEngine(nil, logger.NewTestLogger(t)),
		Persister: &fakePersister{created: 1},
		PageSize:  2,
		Logger:    logger.NewTestLogger(t),
	})

	summary, err := coord.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 5, summary.UsersProcessed)
	assert.Equal(t, 5, summary.MatchesCreated)

	// one in_progress entry per full page plus the short final page
	assert.Equal(t, []models.BatchStatus{
		models.BatchStarted,
		models.BatchInProgress,
		models.BatchInProgress,
		models.BatchInProgress,
		models.BatchCompleted,
	}, logs.statuses())
}

func TestRun_StartedLogFailureAbortsBeforeWork(t *testing.T) {
	logs := &fakeLogStore{err: errors.New("disk full")}
	catalog := &fakeCatalogSource{products: activeCatalog()}
	persister := &fakePersister{}

	coord := newTestCoordinator(t, &fakeUserSource{}, catalog, logs, persister)
	summary, err := coord.Run(context.Background())

	assert.Error(t, err)
	assert.Equal(t, models.BatchFailed, summary.Status)
	assert.Zero(t, catalog.calls)
	assert.Empty(t, persister.persisted)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logs := &fakeLogStore{}
	coord := newTestCoordinator(t,
		&fakeUserSource{pages: [][]models.User{{validUser("u-1")}}},
		&fakeCatalogSource{products: activeCatalog()},
		logs, &fakePersister{})

	summary, err := coord.Run(ctx)

	assert.Error(t, err)
	assert.Equal(t, models.BatchFailed, summary.Status)
	assert.Zero(t, summary.UsersProcessed)
}

func TestRun_PagingErrorAfterProgress(t *testing.T) {
	users := &pagingThenError{
		first: []models.User{validUser("u-1")},
	}
	logs := &fakeLogStore{}

	coord := New(Options{
		Users:     users,
		Catalog:   &fakeCatalogSource{products: activeCatalog()},
		LogStore:  logs,
		Engine:    scoring.NewEngine(nil, logger.NewTestLogger(t)),
		Persister: &fakePersister{created: 1},
		PageSize:  1,
		Logger:    logger.NewTestLogger(t),
	})

	summary, err := coord.Run(context.Background())

	// progress made before the failure is kept and the batch completes
	assert.NoError(t, err)
	assert.Equal(t, models.BatchCompleted, summary.Status)
	assert.Equal(t, 1, summary.UsersProcessed)
	assert.Len(t, summary.Errors, 1)
	assert.Equal(t, "paging", summary.Errors[0].Stage)
}

type pagingThenError struct {
	first []models.User
	calls int
}

func (p *pagingThenError) UserPage(ctx context.Context, offset, limit int) ([]models.User, error) {
	p.calls++
	if p.calls == 1 {
		return p.first, nil
	}
	return nil, errors.New("cursor expired")
}
