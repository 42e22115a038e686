package images

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

var cols = []string{"id", "profile_id", "vehicle_id", "mod_id", "storage_bucket", "storage_path", "caption", "sort_order", "created_at"}

func ptr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+images.*IS\s+NOT\s+DISTINCT\s+FROM.*RETURNING`).
		WithArgs("p1", ptr("v1"), nil, "media", "vehicles/v1/a.jpg", "front").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("i1", "p1", "v1", nil, "media", "vehicles/v1/a.jpg", "front", 0, now))

	img, err := repo.Create(context.Background(), &models.Image{
		ProfileID: "p1", VehicleID: ptr("v1"), StorageBucket: "media",
		StoragePath: "vehicles/v1/a.jpg", Caption: "front",
	})
	require.NoError(t, err)
	assert.Equal(t, "i1", img.ID)
	assert.Nil(t, img.ModID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_TwoParentsRejected(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+images`).
		WillReturnError(&pgconn.PgError{Code: "23514", ConstraintName: "images_exactly_one_parent"})

	_, err := repo.Create(context.Background(), &models.Image{ProfileID: "p1", VehicleID: ptr("v1"), ModID: ptr("m1")})
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.Contains(t, err.Error(), "images_exactly_one_parent")
}

func TestDelete_ReturnsRow(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`DELETE\s+FROM\s+images\s+WHERE\s+id\s*=\s*\$1\s+RETURNING`).
		WithArgs("i1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("i1", "p1", nil, "m1", "media", "mods/m1/b.jpg", "", 0, now))

	img, err := repo.Delete(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, "mods/m1/b.jpg", img.StoragePath)

	mock.ExpectQuery(`DELETE\s+FROM\s+images`).WithArgs("i2").WillReturnError(sql.ErrNoRows)
	_, err = repo.Delete(context.Background(), "i2")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListByVehicle_IncludesModImages(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)FROM\s+images\s+WHERE\s+vehicle_id\s*=\s*\$1\s+OR\s+mod_id\s+IN\s+\(SELECT\s+id\s+FROM\s+mods`).
		WithArgs("v1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("i1", "p1", "v1", nil, "media", "vehicles/v1/a.jpg", "", 0, now).
			AddRow("i2", "p1", nil, "m1", "media", "mods/m1/b.jpg", "", 0, now))

	imgs, err := repo.ListByVehicle(context.Background(), "v1")
	require.NoError(t, err)
	assert.Len(t, imgs, 2)
}

func TestListPublicByVehicle_UsesViews(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)FROM\s+public_images.*FROM\s+public_mods`).
		WithArgs("v1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "vehicle_id", "mod_id", "storage_bucket", "storage_path", "caption", "sort_order", "created_at"}).
			AddRow("i1", "v1", nil, "media", "vehicles/v1/a.jpg", "", 0, now))

	imgs, err := repo.ListPublicByVehicle(context.Background(), "v1")
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	assert.Empty(t, imgs[0].ProfileID)
}
