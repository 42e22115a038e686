package ownership

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/server/authz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	profileID = "7f1d2c1e-0000-4000-8000-000000000001"
	vehicleID = "7f1d2c1e-0000-4000-8000-000000000002"
	modID     = "7f1d2c1e-0000-4000-8000-000000000003"
	imageID   = "7f1d2c1e-0000-4000-8000-000000000004"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestNode_ResolvesFullImageChain(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT\s+profile_id,\s*vehicle_id,\s*mod_id\s+FROM\s+images`).
		WithArgs(imageID).
		WillReturnRows(sqlmock.NewRows([]string{"profile_id", "vehicle_id", "mod_id"}).AddRow(profileID, nil, modID))
	mock.ExpectQuery(`SELECT\s+vehicle_id\s+FROM\s+mods`).
		WithArgs(modID).
		WillReturnRows(sqlmock.NewRows([]string{"vehicle_id"}).AddRow(vehicleID))
	mock.ExpectQuery(`SELECT\s+profile_id,\s*is_public\s+FROM\s+vehicles`).
		WithArgs(vehicleID).
		WillReturnRows(sqlmock.NewRows([]string{"profile_id", "is_public"}).AddRow(profileID, true))
	mock.ExpectQuery(`SELECT\s+username\s+IS\s+NOT\s+NULL\s+FROM\s+profiles`).
		WithArgs(profileID).
		WillReturnRows(sqlmock.NewRows([]string{"published"}).AddRow(true))

	l, err := authz.NewResolver(repo).Lineage(context.Background(), authz.Ref{Kind: authz.KindImage, ID: imageID})
	require.NoError(t, err)
	require.Len(t, l, 4)
	assert.Equal(t, profileID, l.Root())
	assert.Equal(t, profileID, l[0].OwnerTag)
	assert.True(t, authz.OwnerPredicate(l, profileID))
	assert.True(t, authz.PublicPredicate(l))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNode_HiddenRowIsNotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+vehicles`).WithArgs(vehicleID).WillReturnError(sql.ErrNoRows)

	_, err := repo.Node(context.Background(), authz.Ref{Kind: authz.KindVehicle, ID: vehicleID})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestNode_MalformedIDNeverQueries(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	_, err := repo.Node(context.Background(), authz.Ref{Kind: authz.KindMod, ID: "not-a-uuid"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsPublicReadable(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT\s+app\.object_is_public_readable\(\$1\)`).
		WithArgs("avatars/x/a.png").
		WillReturnRows(sqlmock.NewRows([]string{"ok"}).AddRow(true))

	ok, err := repo.IsPublicReadable(context.Background(), "avatars/x/a.png")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOwnerCanWrite(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "owned vehicle path", path: "vehicles/v1/hero.png", want: true},
		{name: "someone else's path", path: "vehicles/v2/hero.png", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)

			mock.ExpectQuery(`SELECT\s+app\.object_owner_can_write\(\$1,\s*\$2::uuid\)`).
				WithArgs(tt.path, "p1").
				WillReturnRows(sqlmock.NewRows([]string{"ok"}).AddRow(tt.want))

			ok, err := repo.OwnerCanWrite(context.Background(), tt.path, "p1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
