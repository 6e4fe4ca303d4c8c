package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/vehicle-search/internal/vehicle"
)

// catalogSchema mirrors the tables the catalog's EF Core migrations create
// on sqlite: uuids and decimals as TEXT.
var catalogSchema = []string{
	`CREATE TABLE "Vehicles" (
        "Id" TEXT NOT NULL PRIMARY KEY,
        "Brand" TEXT NOT NULL,
        "Model" TEXT NOT NULL,
        "Year" INTEGER NOT NULL,
        "Price" TEXT NULL,
        "Mileage" INTEGER NOT NULL,
        "Color" TEXT NOT NULL,
        "Description" TEXT NOT NULL,
        "CreatedAt" TEXT NOT NULL,
        "Status" INTEGER NOT NULL,
        "Transmission" INTEGER NOT NULL DEFAULT 0,
        "VehicleType" INTEGER NOT NULL,
        "FuelType" INTEGER NOT NULL DEFAULT 0,
        "CoverImageUrl" TEXT NULL,
        "IsFeatured" INTEGER NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE "Features" (
        "Id" TEXT NOT NULL PRIMARY KEY,
        "Name" TEXT NOT NULL,
        "Category" TEXT NOT NULL
    )`,
	`CREATE TABLE "Images" (
        "Id" TEXT NOT NULL PRIMARY KEY,
        "Url" TEXT NOT NULL,
        "VehicleId" TEXT NOT NULL REFERENCES "Vehicles" ("Id") ON DELETE CASCADE,
        "Position" INTEGER NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE "FeatureVehicle" (
        "FeaturesId" TEXT NOT NULL,
        "VehiclesId" TEXT NOT NULL,
        PRIMARY KEY ("FeaturesId", "VehiclesId")
    )`,
}

const (
	corollaID = "11111111-2222-3333-4444-555555555555"
	hiluxID   = "22222222-2222-3333-4444-555555555555"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	for _, q := range catalogSchema {
		_, err := s.DB.ExecContext(ctx, q)
		require.NoError(t, err)
	}
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	up := strings.ToUpper
	exec := func(q string, args ...any) {
		_, err := s.DB.ExecContext(ctx, q, args...)
		require.NoError(t, err)
	}

	exec(`INSERT INTO "Vehicles" VALUES (?, 'Toyota', 'Corolla', 2020, '15000.0', 500, 'Rojo', '', '2025-10-01 12:00:00', 0, 1, 0, 0, NULL, 0)`, up(corollaID))
	exec(`INSERT INTO "Vehicles" VALUES (?, 'Toyota', 'Hilux', 2022, NULL, 0, 'Blanco', '', '2025-10-02 12:00:00', 1, 0, 1, 1, 'cover.jpg', 1)`, up(hiluxID))

	exec(`INSERT INTO "Images" VALUES ('I2', 'b.jpg', ?, 1)`, up(corollaID))
	exec(`INSERT INTO "Images" VALUES ('I1', 'a.jpg', ?, 0)`, up(corollaID))
	exec(`INSERT INTO "Images" VALUES ('I3', 'c.jpg', ?, 2)`, up(corollaID))

	exec(`INSERT INTO "Features" VALUES ('F1', 'GPS', 'Confort')`)
	exec(`INSERT INTO "Features" VALUES ('F2', 'ABS', 'Seguridad')`)
	exec(`INSERT INTO "FeatureVehicle" VALUES ('F1', ?)`, up(corollaID))
	exec(`INSERT INTO "FeatureVehicle" VALUES ('F2', ?)`, up(corollaID))
}

func TestFetch(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	p, err := s.Fetch(context.Background(), uuid.MustParse(corollaID))
	require.NoError(t, err)

	assert.Equal(t, corollaID, p.ID.String())
	assert.Equal(t, "Toyota", p.Brand)
	assert.Equal(t, "Corolla", p.Model)
	assert.Equal(t, 2020, p.Year)
	require.NotNil(t, p.Price)
	assert.Equal(t, 15000.0, *p.Price)
	assert.Equal(t, 500, p.Mileage)
	assert.Equal(t, vehicle.StatusAvailable, p.Status)
	assert.Equal(t, vehicle.TypeAuto, p.Type)
	assert.Nil(t, p.CoverImageURL)
	assert.Equal(t, []vehicle.Image{
		{URL: "a.jpg", Position: 0},
		{URL: "b.jpg", Position: 1},
		{URL: "c.jpg", Position: 2},
	}, p.Images)
	assert.Equal(t, []vehicle.Feature{
		{Name: "ABS", Category: "Seguridad"},
		{Name: "GPS", Category: "Confort"},
	}, p.Features)
}

func TestFetch_NoChildren(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	p, err := s.Fetch(context.Background(), uuid.MustParse(hiluxID))
	require.NoError(t, err)
	assert.Nil(t, p.Price)
	require.NotNil(t, p.CoverImageURL)
	assert.Equal(t, "cover.jpg", *p.CoverImageURL)
	assert.Equal(t, vehicle.StatusReserved, p.Status)
	assert.Equal(t, vehicle.TypePickup, p.Type)
	assert.NotNil(t, p.Images)
	assert.Empty(t, p.Images)
	assert.NotNil(t, p.Features)
	assert.Empty(t, p.Features)
}

func TestFetch_NotFound(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	_, err := s.Fetch(context.Background(), uuid.New())
	assert.ErrorIs(t, err, vehicle.ErrNotFound)
}

func TestFetch_OrdinalsPassThrough(t *testing.T) {
	s := openTestStore(t)
	_, err := s.DB.Exec(`INSERT INTO "Vehicles" VALUES (?, 'Chevrolet', 'S10', 2023, NULL, 0, '', '', '2025-10-01', 5, 0, 7, 0, NULL, 0)`, strings.ToUpper(corollaID))
	require.NoError(t, err)

	p, err := s.Fetch(context.Background(), uuid.MustParse(corollaID))
	require.NoError(t, err)
	assert.Equal(t, vehicle.TypeCamioneta, p.Type)
	assert.Equal(t, vehicle.Status(5), p.Status)
}

func TestListIDs(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	ids, more, err := s.ListIDs(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.True(t, more)
	require.Len(t, ids, 1)
	assert.Equal(t, hiluxID, ids[0].String())

	ids, more, err = s.ListIDs(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.False(t, more)
	require.Len(t, ids, 1)
	assert.Equal(t, corollaID, ids[0].String())

	ids, more, err = s.ListIDs(context.Background(), 3, 1)
	require.NoError(t, err)
	assert.False(t, more)
	assert.Empty(t, ids)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &Store{d: dialects["pgx"]}
	assert.Equal(t, `SELECT 1 WHERE a = $1 AND b = $2`, pg.rebind(`SELECT 1 WHERE a = ? AND b = ?`))

	lite := &Store{d: dialects["sqlite"]}
	assert.Equal(t, `SELECT 1 WHERE a = ?`, lite.rebind(`SELECT 1 WHERE a = ?`))
	assert.Equal(t, strings.ToUpper(corollaID), lite.idArg(uuid.MustParse(corollaID)))
	assert.Equal(t, corollaID, pg.idArg(uuid.MustParse(corollaID)))
}
