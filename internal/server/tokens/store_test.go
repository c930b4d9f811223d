package tokens

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/uslugio/auth/internal/common"
	"github.com/uslugio/auth/internal/dbx"
	"github.com/uslugio/auth/internal/logging"
	"github.com/uslugio/auth/internal/server/models"
	refreshtokensrepo "github.com/uslugio/auth/internal/server/repositories/refreshtokens"
	usersrepo "github.com/uslugio/auth/internal/server/repositories/users"
)

// --- fakes ---

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	markUsedWon bool
	markUsedErr error
	markedUsed  []string

	createErr error
	created   []*models.RefreshToken

	revokedUsers []string
	revokeN      int64
	revokeErr    error
}

func (f *fakeRefreshRepo) Create(ctx context.Context, rec *models.RefreshToken) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, rec)
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) MarkUsed(ctx context.Context, token string) (bool, error) {
	if f.markUsedErr != nil {
		return false, f.markUsedErr
	}
	if f.markUsedWon {
		f.markedUsed = append(f.markedUsed, token)
	}
	return f.markUsedWon, nil
}

func (f *fakeRefreshRepo) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	if f.revokeErr != nil {
		return 0, f.revokeErr
	}
	f.revokedUsers = append(f.revokedUsers, userID)
	return f.revokeN, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error { return nil }

type fakeRepoManager struct {
	r *fakeRefreshRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository      { return nil }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository {
	return m.r
}

func newStore(t *testing.T, db *sql.DB, r *fakeRefreshRepo, revokeOnReplay bool) *Store {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewStore(db, &fakeRepoManager{r: r}, 7*24*time.Hour, revokeOnReplay, logger)
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func liveToken(token string) *models.RefreshToken {
	now := time.Now()
	return &models.RefreshToken{
		ID:        "id1",
		UserID:    "u1",
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

// --- Issue ---

func TestIssue_CreatesRecord(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	repo := &fakeRefreshRepo{}
	s := newStore(t, db, repo, false)

	token, err := s.Issue(context.Background(), "u1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.Len(t, repo.created, 1)
	rec := repo.created[0]
	require.Equal(t, "u1", rec.UserID)
	require.Equal(t, token, rec.Token)
	require.False(t, rec.Used)
	require.False(t, rec.Revoked)
	require.True(t, rec.ExpiresAt.After(rec.IssuedAt))
}

func TestIssue_DistinctTokensPerDevice(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	repo := &fakeRefreshRepo{}
	s := newStore(t, db, repo, false)

	t1, err := s.Issue(context.Background(), "u1")
	require.NoError(t, err)
	t2, err := s.Issue(context.Background(), "u1")
	require.NoError(t, err)
	require.NotEqual(t, t1, t2)
}

func TestIssue_CreateError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	repo := &fakeRefreshRepo{createErr: errors.New("db down")}
	s := newStore(t, db, repo, false)

	_, err := s.Issue(context.Background(), "u1")
	require.Error(t, err)
}

// --- Rotate ---

func TestRotate_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	repo := &fakeRefreshRepo{findOut: liveToken("r1"), markUsedWon: true}
	s := newStore(t, db, repo, false)

	newToken, userID, err := s.Rotate(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "u1", userID)
	require.NotEmpty(t, newToken)
	require.NotEqual(t, "r1", newToken)

	require.Equal(t, []string{"r1"}, repo.markedUsed)
	require.Len(t, repo.created, 1)
	require.Equal(t, "u1", repo.created[0].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotate_UnknownToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	repo := &fakeRefreshRepo{findErr: common.ErrorNotFound}
	s := newStore(t, db, repo, false)

	_, _, err := s.Rotate(context.Background(), "ghost")
	require.True(t, errors.Is(err, common.ErrInvalidToken))
}

func TestRotate_ExpiredBeatsAlreadyUsed(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rec := liveToken("r1")
	rec.ExpiresAt = time.Now().Add(-24 * time.Hour)
	rec.Used = true
	repo := &fakeRefreshRepo{findOut: rec}
	s := newStore(t, db, repo, false)

	_, _, err := s.Rotate(context.Background(), "r1")
	require.True(t, errors.Is(err, common.ErrTokenExpired),
		"an expired token must report Expired, never AlreadyUsed")
}

func TestRotate_RevokedToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rec := liveToken("r1")
	rec.Revoked = true
	repo := &fakeRefreshRepo{findOut: rec}
	s := newStore(t, db, repo, false)

	_, _, err := s.Rotate(context.Background(), "r1")
	require.True(t, errors.Is(err, common.ErrInvalidToken))
}

func TestRotate_UsedTokenIsReplay(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rec := liveToken("r1")
	rec.Used = true
	repo := &fakeRefreshRepo{findOut: rec}
	s := newStore(t, db, repo, false)

	_, _, err := s.Rotate(context.Background(), "r1")
	require.True(t, errors.Is(err, common.ErrTokenAlreadyUsed))
	require.Empty(t, repo.revokedUsers, "hardening off: siblings stay")
}

func TestRotate_ReplayWithHardeningRevokesSiblings(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rec := liveToken("r1")
	rec.Used = true
	repo := &fakeRefreshRepo{findOut: rec, revokeN: 2}
	s := newStore(t, db, repo, true)

	_, _, err := s.Rotate(context.Background(), "r1")
	require.True(t, errors.Is(err, common.ErrTokenAlreadyUsed))
	require.Equal(t, []string{"u1"}, repo.revokedUsers)
}

func TestRotate_LostRaceObservesAlreadyUsed(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	repo := &fakeRefreshRepo{findOut: liveToken("r1"), markUsedWon: false}
	s := newStore(t, db, repo, false)

	_, _, err := s.Rotate(context.Background(), "r1")
	require.True(t, errors.Is(err, common.ErrTokenAlreadyUsed))
	require.Empty(t, repo.created, "loser must not create a successor")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotate_SuccessorCreateErrorRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	repo := &fakeRefreshRepo{findOut: liveToken("r1"), markUsedWon: true, createErr: errors.New("db down")}
	s := newStore(t, db, repo, false)

	_, _, err := s.Rotate(context.Background(), "r1")
	require.Error(t, err)
	require.False(t, errors.Is(err, common.ErrTokenAlreadyUsed),
		"a transient store error must stay retryable, not report AlreadyUsed")
	require.NoError(t, mock.ExpectationsWereMet())
}

// --- IsValid ---

func TestIsValid_LiveToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	repo := &fakeRefreshRepo{findOut: liveToken("r1")}
	s := newStore(t, db, repo, false)

	ok, err := s.IsValid(context.Background(), "r1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIsValid_TerminalStates(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	cases := map[string]func(*models.RefreshToken){
		"used":    func(r *models.RefreshToken) { r.Used = true },
		"revoked": func(r *models.RefreshToken) { r.Revoked = true },
		"expired": func(r *models.RefreshToken) { r.ExpiresAt = time.Now().Add(-time.Minute) },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			rec := liveToken("r1")
			mutate(rec)
			s := newStore(t, db, &fakeRefreshRepo{findOut: rec}, false)

			ok, err := s.IsValid(context.Background(), "r1")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestIsValid_UnknownToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	s := newStore(t, db, &fakeRefreshRepo{findErr: common.ErrorNotFound}, false)

	ok, err := s.IsValid(context.Background(), "ghost")
	require.NoError(t, err)
	require.False(t, ok)
}

// --- RevokeAll ---

func TestRevokeAll(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	repo := &fakeRefreshRepo{revokeN: 3}
	s := newStore(t, db, repo, false)

	require.NoError(t, s.RevokeAll(context.Background(), "u1"))
	require.Equal(t, []string{"u1"}, repo.revokedUsers)
}

func TestRevokeAll_Error(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	repo := &fakeRefreshRepo{revokeErr: errors.New("db down")}
	s := newStore(t, db, repo, false)

	require.Error(t, s.RevokeAll(context.Background(), "u1"))
}
