package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/logging"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModService(t *testing.T) (*ModService, *world, *fakeStore) {
	t.Helper()
	w := newWorld()
	w.addProfile(alice, "alice")
	w.addProfile(bob, "bob")
	store := newFakeStore()
	return NewModService(newTxDB(t), &fakeRepos{w}, store, logging.Nop()), w, store
}

func TestMod_CreateUnderOwnedVehicleOnly(t *testing.T) {
	svc, w, _ := newModService(t)
	ctx := context.Background()
	mine := w.addVehicle(alice, true)
	theirs := w.addVehicle(bob, true)
	cost := int64(50000)
	day := "2025-06-01"

	m, err := svc.Create(ctx, alice, mine.ID, models.ModInput{Title: "Turbo", CostCents: &cost, InstalledOn: &day})
	require.NoError(t, err)
	require.NotNil(t, m.InstalledOn)
	assert.Equal(t, 2025, m.InstalledOn.Year())

	_, err = svc.Create(ctx, alice, theirs.ID, models.ModInput{Title: "Turbo"})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	neg := int64(-5)
	_, err = svc.Create(ctx, alice, mine.ID, models.ModInput{Title: "Refund", CostCents: &neg})
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestMod_UpdateChecksVehicle(t *testing.T) {
	svc, w, _ := newModService(t)
	ctx := context.Background()
	v1 := w.addVehicle(alice, true)
	v2 := w.addVehicle(alice, true)
	m := w.addMod(v1.ID)

	_, err := svc.Update(ctx, alice, v2.ID, m.ID, models.ModInput{Title: "moved?"})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	got, err := svc.Update(ctx, alice, v1.ID, m.ID, models.ModInput{Title: "Intake"})
	require.NoError(t, err)
	assert.Equal(t, "Intake", got.Title)

	_, err = svc.Update(ctx, bob, v1.ID, m.ID, models.ModInput{Title: "Intake"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMod_ListAndReorderRoundTrip(t *testing.T) {
	svc, w, _ := newModService(t)
	ctx := context.Background()
	v := w.addVehicle(alice, true)
	a := w.addMod(v.ID)
	b := w.addMod(v.ID)

	out, err := svc.Reorder(ctx, alice, v.ID, b.ID, models.DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, models.ReorderMoved, out)

	list, err := svc.List(ctx, alice, v.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)

	out, err = svc.Reorder(ctx, alice, v.ID, b.ID, models.DirectionDown)
	require.NoError(t, err)
	assert.Equal(t, models.ReorderMoved, out)

	list, err = svc.List(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, list[0].ID)

	out, err = svc.Reorder(ctx, alice, v.ID, b.ID, models.DirectionDown)
	require.NoError(t, err)
	assert.Equal(t, models.ReorderBoundary, out)
}

func TestMod_DeleteRemovesItsImages(t *testing.T) {
	svc, w, store := newModService(t)
	ctx := context.Background()
	v := w.addVehicle(alice, true)
	m := w.addMod(v.ID)
	other := w.addMod(v.ID)
	w.addImage(alice, nil, &m.ID, "mods/"+m.ID+"/a.png")
	w.addImage(alice, nil, &other.ID, "mods/"+other.ID+"/b.png")

	require.NoError(t, svc.Delete(ctx, alice, v.ID, m.ID))
	assert.Equal(t, []string{"mods/" + m.ID + "/a.png"}, store.removed)
	assert.Len(t, w.images, 1)
}
