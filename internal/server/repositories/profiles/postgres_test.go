package profiles

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

var profileCols = []string{"id", "username", "display_name", "bio", "avatar_path", "is_pro", "created_at", "updated_at"}

func TestProvision_IsIdempotentInsert(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+profiles\s*\(id\)\s*VALUES\s*\(\$1\)\s*ON\s+CONFLICT\s*\(id\)\s*DO\s+NOTHING`).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Provision(context.Background(), "p1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT\s+id,\s*username.*FROM\s+profiles\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow("p1", nil, "Alice", "", nil, false, now, now))

	p, err := repo.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Nil(t, p.Username)
	assert.False(t, p.Published())

	mock.ExpectQuery(`FROM\s+profiles`).WithArgs("p2").WillReturnError(sql.ErrNoRows)
	_, err = repo.Get(context.Background(), "p2")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdate_DuplicateUsername(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	name := "drift_king"
	mock.ExpectQuery(`(?s)UPDATE\s+profiles\s+SET\s+username\s*=\s*\$2,\s*display_name\s*=\s*\$3,\s*bio\s*=\s*\$4`).
		WithArgs("p1", &name, "Alice", "bio").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "profiles_username_lower_key"})

	_, err := repo.Update(context.Background(), "p1", models.ProfileUpdate{Username: &name, DisplayName: "Alice", Bio: "bio"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestSetAvatar_ReturnsPrevious(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	next := "avatars/p1/new.png"
	mock.ExpectQuery(`(?s)UPDATE\s+profiles\s+p\s+SET\s+avatar_path\s*=\s*\$2.*RETURNING\s+old\.avatar_path`).
		WithArgs("p1", &next).
		WillReturnRows(sqlmock.NewRows([]string{"avatar_path"}).AddRow("avatars/p1/old.png"))

	prev, err := repo.SetAvatar(context.Background(), "p1", &next)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "avatars/p1/old.png", *prev)
}

func TestDelete_NotVisible(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE\s+FROM\s+profiles\s+WHERE\s+id\s*=\s*\$1`).WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "p1"), common.ErrorNotFound)
}

func TestObjectPaths(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)SELECT\s+avatar_path\s+FROM\s+profiles.*UNION.*hero_image_path.*UNION.*storage_path\s+FROM\s+images`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"path"}).
			AddRow("avatars/p1/a.png").
			AddRow("vehicles/v1/hero.jpg"))

	paths, err := repo.ObjectPaths(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"avatars/p1/a.png", "vehicles/v1/hero.jpg"}, paths)
}

func TestGetPublicByUsername_ReadsPublicView(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)FROM\s+public_profiles\s+WHERE\s+lower\(username\)\s*=\s*lower\(\$1\)`).
		WithArgs("Drift_King").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "display_name", "bio", "avatar_path"}).
			AddRow("p1", "drift_king", "Alice", "", nil))

	p, err := repo.GetPublicByUsername(context.Background(), "Drift_King")
	require.NoError(t, err)
	require.NotNil(t, p.Username)
	assert.Equal(t, "drift_king", *p.Username)
}
