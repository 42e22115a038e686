package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/server/authz"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/dmitrijs2005/buildbio/internal/server/ordering"
	"github.com/dmitrijs2005/buildbio/internal/server/ratelimit"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/images"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/mods"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/ownership"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/vehicles"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	alice = "a11ce000-0000-4000-8000-000000000001"
	bob   = "b0b00000-0000-4000-8000-000000000002"
)

// world is an in-memory database shared by the fake repositories. It does
// not apply row-level security; the services' guard checks are what the
// tests exercise.
type world struct {
	mu       sync.Mutex
	clock    time.Time
	accounts map[string]*models.Account
	tokens   map[string]*models.RefreshToken
	profiles map[string]*models.Profile
	vehicles map[string]*models.Vehicle
	mods     map[string]*models.Mod
	images   map[string]*models.Image

	// writeDenied makes OwnerCanWrite refuse a path the guard would allow.
	writeDenied map[string]bool
}

func newWorld() *world {
	return &world{
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		accounts: map[string]*models.Account{},
		tokens:   map[string]*models.RefreshToken{},
		profiles: map[string]*models.Profile{},
		vehicles: map[string]*models.Vehicle{},
		mods:     map[string]*models.Mod{},
		images:   map[string]*models.Image{},

		writeDenied: map[string]bool{},
	}
}

func (w *world) tick() time.Time {
	w.clock = w.clock.Add(time.Second)
	return w.clock
}

func (w *world) addProfile(id, username string) *models.Profile {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := &models.Profile{ID: id, CreatedAt: w.tick()}
	if username != "" {
		p.Username = &username
	}
	w.profiles[id] = p
	return p
}

func (w *world) addVehicle(owner string, public bool) *models.Vehicle {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := &models.Vehicle{ID: uuid.NewString(), ProfileID: owner, Name: "car", IsPublic: public, CreatedAt: w.tick()}
	for _, o := range w.vehicles {
		if o.ProfileID == owner && o.SortOrder >= v.SortOrder {
			v.SortOrder = o.SortOrder + 1
		}
	}
	w.vehicles[v.ID] = v
	return v
}

func (w *world) addMod(vehicleID string) *models.Mod {
	w.mu.Lock()
	defer w.mu.Unlock()
	m := &models.Mod{ID: uuid.NewString(), VehicleID: vehicleID, Title: "mod", CreatedAt: w.tick()}
	for _, o := range w.mods {
		if o.VehicleID == vehicleID && o.SortOrder >= m.SortOrder {
			m.SortOrder = o.SortOrder + 1
		}
	}
	w.mods[m.ID] = m
	return m
}

func (w *world) addImage(owner string, vehicleID, modID *string, path string) *models.Image {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := &models.Image{ID: uuid.NewString(), ProfileID: owner, VehicleID: vehicleID, ModID: modID,
		StorageBucket: "media", StoragePath: path, CreatedAt: w.tick()}
	w.images[i.ID] = i
	return i
}

// --- repository manager ---

type fakeRepos struct{ w *world }

func (f *fakeRepos) RunMigrations(context.Context, *sql.DB) error { return nil }

func (f *fakeRepos) Accounts(dbx.DBTX) accounts.Repository           { return &fakeAccounts{f.w} }
func (f *fakeRepos) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return &fakeTokens{f.w} }
func (f *fakeRepos) RateLimits(dbx.DBTX) ratelimit.BucketRepository  { return nil }
func (f *fakeRepos) Profiles(dbx.DBTX) profiles.Repository           { return &fakeProfiles{f.w} }
func (f *fakeRepos) Vehicles(dbx.DBTX) vehicles.Repository           { return &fakeVehicles{f.w} }
func (f *fakeRepos) Mods(dbx.DBTX) mods.Repository                   { return &fakeMods{f.w} }
func (f *fakeRepos) Images(dbx.DBTX) images.Repository               { return &fakeImages{f.w} }
func (f *fakeRepos) Ownership(dbx.DBTX) ownership.Repository         { return &fakeOwnership{f.w} }

// --- accounts / tokens ---

type fakeAccounts struct{ w *world }

func (f *fakeAccounts) Create(_ context.Context, email string, hash []byte) (*models.Account, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, a := range f.w.accounts {
		if strings.EqualFold(a.Email, email) {
			return nil, common.ErrorAlreadyExists
		}
	}
	a := &models.Account{ID: uuid.NewString(), Email: email, PasswordHash: hash, CreatedAt: f.w.tick()}
	f.w.accounts[a.ID] = a
	return a, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, a := range f.w.accounts {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccounts) Delete(_ context.Context, id string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	delete(f.w.accounts, id)
	return nil
}

type fakeTokens struct{ w *world }

func (f *fakeTokens) Create(_ context.Context, accountID, token string, validity time.Duration) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	f.w.tokens[token] = &models.RefreshToken{AccountID: accountID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	t, ok := f.w.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (f *fakeTokens) Delete(_ context.Context, token string) (bool, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	_, ok := f.w.tokens[token]
	delete(f.w.tokens, token)
	return ok, nil
}

func (f *fakeTokens) DeleteByAccount(_ context.Context, accountID string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for k, t := range f.w.tokens {
		if t.AccountID == accountID {
			delete(f.w.tokens, k)
		}
	}
	return nil
}

// --- profiles ---

type fakeProfiles struct{ w *world }

func (f *fakeProfiles) Provision(_ context.Context, id string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.profiles[id]; !ok {
		f.w.profiles[id] = &models.Profile{ID: id, CreatedAt: f.w.tick()}
	}
	return nil
}

func (f *fakeProfiles) Get(_ context.Context, id string) (*models.Profile, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	p, ok := f.w.profiles[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Update(_ context.Context, id string, upd models.ProfileUpdate) (*models.Profile, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	p, ok := f.w.profiles[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if upd.Username != nil {
		for _, o := range f.w.profiles {
			if o.ID != id && o.Username != nil && *o.Username == *upd.Username {
				return nil, common.ErrorAlreadyExists
			}
		}
	}
	p.Username, p.DisplayName, p.Bio = upd.Username, upd.DisplayName, upd.Bio
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) SetAvatar(_ context.Context, id string, path *string) (*string, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	p, ok := f.w.profiles[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	prev := p.AvatarPath
	p.AvatarPath = path
	return prev, nil
}

func (f *fakeProfiles) Delete(_ context.Context, id string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.profiles[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.w.profiles, id)
	for vid, v := range f.w.vehicles {
		if v.ProfileID == id {
			delete(f.w.vehicles, vid)
		}
	}
	for iid, i := range f.w.images {
		if i.ProfileID == id {
			delete(f.w.images, iid)
		}
	}
	return nil
}

func (f *fakeProfiles) ObjectPaths(_ context.Context, id string) ([]string, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []string
	if p := f.w.profiles[id]; p != nil && p.AvatarPath != nil {
		out = append(out, *p.AvatarPath)
	}
	for _, v := range f.w.vehicles {
		if v.ProfileID == id && v.HeroImagePath != nil {
			out = append(out, *v.HeroImagePath)
		}
	}
	for _, i := range f.w.images {
		if i.ProfileID == id {
			out = append(out, i.StoragePath)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeProfiles) GetPublicByUsername(_ context.Context, username string) (*models.Profile, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, p := range f.w.profiles {
		if p.Username != nil && strings.EqualFold(*p.Username, username) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

// positionBefore is the sibling total order: sort_order, created_at, id.
func positionBefore(p, o ordering.Position) bool {
	if p.SortOrder != o.SortOrder {
		return p.SortOrder < o.SortOrder
	}
	if !p.CreatedAt.Equal(o.CreatedAt) {
		return p.CreatedAt.Before(o.CreatedAt)
	}
	return p.ID < o.ID
}

// --- vehicles ---

type fakeVehicles struct{ w *world }

func sortVehicles(vs []models.Vehicle) {
	sort.Slice(vs, func(i, j int) bool {
		a := ordering.Position{ID: vs[i].ID, SortOrder: vs[i].SortOrder, CreatedAt: vs[i].CreatedAt}
		b := ordering.Position{ID: vs[j].ID, SortOrder: vs[j].SortOrder, CreatedAt: vs[j].CreatedAt}
		return positionBefore(a, b)
	})
}

func (f *fakeVehicles) Create(_ context.Context, profileID string, in models.VehicleInput) (*models.Vehicle, error) {
	v := f.w.addVehicle(profileID, in.IsPublic)
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	v.Name, v.Year, v.Make, v.Model, v.Trim = in.Name, in.Year, in.Make, in.Model, in.Trim
	cp := *v
	return &cp, nil
}

func (f *fakeVehicles) list(pred func(*models.Vehicle) bool) []models.Vehicle {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	out := []models.Vehicle{}
	for _, v := range f.w.vehicles {
		if pred(v) {
			out = append(out, *v)
		}
	}
	sortVehicles(out)
	return out
}

func (f *fakeVehicles) ListByProfile(_ context.Context, profileID string) ([]models.Vehicle, error) {
	return f.list(func(v *models.Vehicle) bool { return v.ProfileID == profileID }), nil
}

func (f *fakeVehicles) Get(_ context.Context, id string) (*models.Vehicle, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	v, ok := f.w.vehicles[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVehicles) Update(_ context.Context, id string, in models.VehicleInput) (*models.Vehicle, error) {
	f.w.mu.Lock()
	v, ok := f.w.vehicles[id]
	if ok {
		v.Name, v.Year, v.Make, v.Model, v.Trim, v.IsPublic = in.Name, in.Year, in.Make, in.Model, in.Trim, in.IsPublic
	}
	f.w.mu.Unlock()
	if !ok {
		return nil, common.ErrorNotFound
	}
	return f.Get(context.Background(), id)
}

func (f *fakeVehicles) Delete(_ context.Context, id string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.vehicles[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.w.vehicles, id)
	for mid, m := range f.w.mods {
		if m.VehicleID == id {
			delete(f.w.mods, mid)
			for iid, i := range f.w.images {
				if i.ModID != nil && *i.ModID == mid {
					delete(f.w.images, iid)
				}
			}
		}
	}
	for iid, i := range f.w.images {
		if i.VehicleID != nil && *i.VehicleID == id {
			delete(f.w.images, iid)
		}
	}
	return nil
}

func (f *fakeVehicles) SetHeroImage(_ context.Context, id string, path *string) (*string, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	v, ok := f.w.vehicles[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	prev := v.HeroImagePath
	v.HeroImagePath = path
	return prev, nil
}

func (f *fakeVehicles) SetPublic(_ context.Context, id string, public bool) (*models.Vehicle, error) {
	f.w.mu.Lock()
	v, ok := f.w.vehicles[id]
	if ok {
		v.IsPublic = public
	}
	f.w.mu.Unlock()
	if !ok {
		return nil, common.ErrorNotFound
	}
	return f.Get(context.Background(), id)
}

func (f *fakeVehicles) published(profileID string) bool {
	p := f.w.profiles[profileID]
	return p != nil && p.Username != nil
}

func (f *fakeVehicles) ListPublicByProfile(_ context.Context, profileID string) ([]models.Vehicle, error) {
	return f.list(func(v *models.Vehicle) bool {
		return v.ProfileID == profileID && v.IsPublic && f.published(profileID)
	}), nil
}

func (f *fakeVehicles) GetPublic(_ context.Context, profileID, id string) (*models.Vehicle, error) {
	vs := f.list(func(v *models.Vehicle) bool {
		return v.ID == id && v.ProfileID == profileID && v.IsPublic && f.published(profileID)
	})
	if len(vs) == 0 {
		return nil, common.ErrorNotFound
	}
	return &vs[0], nil
}

func (f *fakeVehicles) Siblings(profileID string) ordering.SiblingStore {
	return &fakeSiblings{
		w:   f.w,
		key: ordering.VehiclesLockKey(profileID),
		rows: func() map[string]*int {
			out := map[string]*int{}
			for _, v := range f.w.vehicles {
				if v.ProfileID == profileID {
					out[v.ID] = &v.SortOrder
				}
			}
			return out
		},
		created: func(id string) time.Time { return f.w.vehicles[id].CreatedAt },
	}
}

// --- mods ---

type fakeMods struct{ w *world }

func (f *fakeMods) Create(_ context.Context, _, vehicleID string, in models.ModInput, installed *time.Time) (*models.Mod, error) {
	m := f.w.addMod(vehicleID)
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	m.Title, m.Category, m.CostCents, m.Notes, m.InstalledOn = in.Title, in.Category, in.CostCents, in.Notes, installed
	cp := *m
	return &cp, nil
}

func (f *fakeMods) ListByVehicle(_ context.Context, vehicleID string) ([]models.Mod, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	out := []models.Mod{}
	for _, m := range f.w.mods {
		if m.VehicleID == vehicleID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (f *fakeMods) Get(_ context.Context, id string) (*models.Mod, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	m, ok := f.w.mods[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMods) Update(_ context.Context, id string, in models.ModInput, installed *time.Time) (*models.Mod, error) {
	f.w.mu.Lock()
	m, ok := f.w.mods[id]
	if ok {
		m.Title, m.Category, m.CostCents, m.Notes, m.InstalledOn = in.Title, in.Category, in.CostCents, in.Notes, installed
	}
	f.w.mu.Unlock()
	if !ok {
		return nil, common.ErrorNotFound
	}
	return f.Get(context.Background(), id)
}

func (f *fakeMods) Delete(_ context.Context, id string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.mods[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.w.mods, id)
	for iid, i := range f.w.images {
		if i.ModID != nil && *i.ModID == id {
			delete(f.w.images, iid)
		}
	}
	return nil
}

func (f *fakeMods) ListPublicByVehicle(ctx context.Context, vehicleID string) ([]models.Mod, error) {
	return f.ListByVehicle(ctx, vehicleID)
}

func (f *fakeMods) Siblings(_, vehicleID string) ordering.SiblingStore {
	return &fakeSiblings{
		w:   f.w,
		key: "mods:" + vehicleID,
		rows: func() map[string]*int {
			out := map[string]*int{}
			for _, m := range f.w.mods {
				if m.VehicleID == vehicleID {
					out[m.ID] = &m.SortOrder
				}
			}
			return out
		},
		created: func(id string) time.Time { return f.w.mods[id].CreatedAt },
	}
}

// --- images ---

type fakeImages struct{ w *world }

func (f *fakeImages) Create(_ context.Context, img *models.Image) (*models.Image, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	created := f.w.addImage(img.ProfileID, img.VehicleID, img.ModID, img.StoragePath)
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	created.Caption = img.Caption
	cp := *created
	return &cp, nil
}

func (f *fakeImages) Get(_ context.Context, id string) (*models.Image, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	i, ok := f.w.images[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *i
	return &cp, nil
}

func (f *fakeImages) UpdateCaption(ctx context.Context, id, caption string) (*models.Image, error) {
	f.w.mu.Lock()
	i, ok := f.w.images[id]
	if ok {
		i.Caption = caption
	}
	f.w.mu.Unlock()
	if !ok {
		return nil, common.ErrorNotFound
	}
	return f.Get(ctx, id)
}

func (f *fakeImages) Delete(_ context.Context, id string) (*models.Image, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	i, ok := f.w.images[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.w.images, id)
	return i, nil
}

func (f *fakeImages) ListByVehicle(_ context.Context, vehicleID string) ([]models.Image, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	out := []models.Image{}
	for _, i := range f.w.images {
		onVehicle := i.VehicleID != nil && *i.VehicleID == vehicleID
		onMod := i.ModID != nil && f.w.mods[*i.ModID] != nil && f.w.mods[*i.ModID].VehicleID == vehicleID
		if onVehicle || onMod {
			out = append(out, *i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func (f *fakeImages) ListPublicByVehicle(ctx context.Context, vehicleID string) ([]models.Image, error) {
	return f.ListByVehicle(ctx, vehicleID)
}

// --- ownership ---

type fakeOwnership struct{ w *world }

func (f *fakeOwnership) Node(_ context.Context, ref authz.Ref) (authz.Node, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	n := authz.Node{Ref: ref, Public: true}
	switch ref.Kind {
	case authz.KindProfile:
		p, ok := f.w.profiles[ref.ID]
		if !ok {
			return n, common.ErrorNotFound
		}
		n.Public = p.Username != nil
	case authz.KindVehicle:
		v, ok := f.w.vehicles[ref.ID]
		if !ok {
			return n, common.ErrorNotFound
		}
		n.Parent = authz.Ref{Kind: authz.KindProfile, ID: v.ProfileID}
		n.Public = v.IsPublic
	case authz.KindMod:
		m, ok := f.w.mods[ref.ID]
		if !ok {
			return n, common.ErrorNotFound
		}
		n.Parent = authz.Ref{Kind: authz.KindVehicle, ID: m.VehicleID}
	case authz.KindImage:
		i, ok := f.w.images[ref.ID]
		if !ok {
			return n, common.ErrorNotFound
		}
		n.OwnerTag = i.ProfileID
		if i.VehicleID != nil {
			n.Parent = authz.Ref{Kind: authz.KindVehicle, ID: *i.VehicleID}
		} else {
			n.Parent = authz.Ref{Kind: authz.KindMod, ID: *i.ModID}
		}
	}
	return n, nil
}

func (f *fakeOwnership) IsPublicReadable(_ context.Context, path string) (bool, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, p := range f.w.profiles {
		if p.Username != nil && p.AvatarPath != nil && *p.AvatarPath == path {
			return true, nil
		}
	}
	for _, v := range f.w.vehicles {
		p := f.w.profiles[v.ProfileID]
		if v.IsPublic && p != nil && p.Username != nil && v.HeroImagePath != nil && *v.HeroImagePath == path {
			return true, nil
		}
	}
	for _, i := range f.w.images {
		if i.StoragePath == path && f.imagePublicLocked(i) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOwnership) OwnerCanWrite(ctx context.Context, path, identity string) (bool, error) {
	f.w.mu.Lock()
	denied := f.w.writeDenied[path]
	f.w.mu.Unlock()
	if denied {
		return false, nil
	}
	return authz.NewGuard(f).ObjectOwnerCanWrite(ctx, path, identity)
}

// imagePublicLocked mirrors public_images: the parent vehicle, direct or
// through the mod, is public and its profile published.
func (f *fakeOwnership) imagePublicLocked(i *models.Image) bool {
	vehicleID := i.VehicleID
	if vehicleID == nil && i.ModID != nil {
		m, ok := f.w.mods[*i.ModID]
		if !ok {
			return false
		}
		vehicleID = &m.VehicleID
	}
	if vehicleID == nil {
		return false
	}
	v, ok := f.w.vehicles[*vehicleID]
	if !ok || !v.IsPublic {
		return false
	}
	p := f.w.profiles[v.ProfileID]
	return p != nil && p.Username != nil
}

// --- ordering ---

type fakeSiblings struct {
	w       *world
	key     string
	rows    func() map[string]*int
	created func(id string) time.Time
}

func (s *fakeSiblings) LockKey() string { return s.key }

func (s *fakeSiblings) positions() []ordering.Position {
	var out []ordering.Position
	for id, so := range s.rows() {
		out = append(out, ordering.Position{ID: id, SortOrder: *so, CreatedAt: s.created(id)})
	}
	sort.Slice(out, func(i, j int) bool { return positionBefore(out[i], out[j]) })
	return out
}

func (s *fakeSiblings) LockItem(_ context.Context, id string) (ordering.Position, error) {
	for _, p := range s.positions() {
		if p.ID == id {
			return p, nil
		}
	}
	return ordering.Position{}, common.ErrorNotFound
}

func (s *fakeSiblings) LockNeighbor(_ context.Context, from ordering.Position, dir models.Direction) (ordering.Position, bool, error) {
	all := s.positions()
	for i, p := range all {
		if p.ID != from.ID {
			continue
		}
		j := i + 1
		if dir == models.DirectionUp {
			j = i - 1
		}
		if j < 0 || j >= len(all) {
			return ordering.Position{}, false, nil
		}
		return all[j], true, nil
	}
	return ordering.Position{}, false, nil
}

func (s *fakeSiblings) Resequence(context.Context) error {
	rows := s.rows()
	for i, p := range s.positions() {
		*rows[p.ID] = i
	}
	return nil
}

func (s *fakeSiblings) Swap(_ context.Context, a, b ordering.Position) error {
	rows := s.rows()
	*rows[a.ID], *rows[b.ID] = b.SortOrder, a.SortOrder
	return nil
}

// --- object store ---

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string]string
	removed   []string
	removeErr error
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string]string{}} }

func (s *fakeStore) Bucket() string { return "media" }

func (s *fakeStore) Put(_ context.Context, path, contentType string, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = contentType
	return nil
}

func (s *fakeStore) Remove(_ context.Context, paths ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return s.removeErr
	}
	for _, p := range paths {
		delete(s.objects, p)
		s.removed = append(s.removed, p)
	}
	return nil
}

func (s *fakeStore) URL(_ context.Context, path string) (string, error) {
	return "https://cdn.test/" + path, nil
}

func (s *fakeStore) SignURL(_ context.Context, path string) (string, error) {
	return "https://signed.test/" + path + "?sig=1", nil
}

// --- database ---

// newTxDB returns a sqlmock database that accepts any number of identity
// transactions and advisory locks, in any order.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mock.MatchExpectationsInOrder(false)
	for range 64 {
		mock.ExpectBegin()
		mock.ExpectExec(`set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
	return db
}

// pngBytes is enough of a PNG for content sniffing.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
