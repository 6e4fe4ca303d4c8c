// Package store reads vehicle projections straight from the catalog
// database. It is the SQL alternative to the catalog HTTP API and never
// writes.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/yourorg/vehicle-search/internal/vehicle"
)

// dialect covers the two differences that matter between drivers: the
// placeholder style and how uuids are stored. The catalog's sqlite file
// keeps them as upper-case text, Postgres as native uuid. Identifiers are
// quoted because the catalog's tables use Pascal case.
type dialect struct {
	numbered bool
	upperIDs bool
}

var dialects = map[string]dialect{
	"pgx":    {numbered: true},
	"sqlite": {upperIDs: true},
}

type Store struct {
	DB *sql.DB
	d  dialect
}

func Open(driver, dsn string) (*Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{DB: db, d: d}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Close() error { return s.DB.Close() }

// Fetch loads one vehicle with its images (by position) and features.
// A missing row is vehicle.ErrNotFound.
func (s *Store) Fetch(ctx context.Context, id vehicle.ID) (vehicle.Projection, error) {
	var (
		rawID   string
		p       vehicle.Projection
		price   sql.NullString
		cover   sql.NullString
		status  int
		vtype   int
		mileage int64
	)
	err := s.DB.QueryRowContext(ctx, s.rebind(`
        SELECT "Id", "Brand", "Model", "Year", "Price", "Mileage", "Status", "VehicleType", "CoverImageUrl"
        FROM "Vehicles" WHERE "Id" = ?`), s.idArg(id),
	).Scan(&rawID, &p.Brand, &p.Model, &p.Year, &price, &mileage, &status, &vtype, &cover)
	if errors.Is(err, sql.ErrNoRows) {
		return vehicle.Projection{}, vehicle.ErrNotFound
	}
	if err != nil {
		return vehicle.Projection{}, fmt.Errorf("store fetch %s: %w", id, err)
	}

	if p.ID, err = vehicle.ParseID(rawID); err != nil {
		return vehicle.Projection{}, fmt.Errorf("store fetch %s: row id %q: %w", id, rawID, err)
	}
	p.Mileage = int(mileage)
	p.Status = vehicle.Status(status)
	p.Type = vehicle.Type(vtype)
	if price.Valid && price.String != "" {
		f, err := strconv.ParseFloat(price.String, 64)
		if err != nil {
			return vehicle.Projection{}, fmt.Errorf("store fetch %s: price %q: %w", id, price.String, err)
		}
		p.Price = &f
	}
	if cover.Valid {
		c := cover.String
		p.CoverImageURL = &c
	}

	if p.Images, err = s.images(ctx, id); err != nil {
		return vehicle.Projection{}, err
	}
	if p.Features, err = s.features(ctx, id); err != nil {
		return vehicle.Projection{}, err
	}
	return p, nil
}

func (s *Store) images(ctx context.Context, id vehicle.ID) ([]vehicle.Image, error) {
	rows, err := s.DB.QueryContext(ctx, s.rebind(`
        SELECT "Url", "Position" FROM "Images" WHERE "VehicleId" = ? ORDER BY "Position"`), s.idArg(id))
	if err != nil {
		return nil, fmt.Errorf("store images %s: %w", id, err)
	}
	defer rows.Close()

	out := []vehicle.Image{}
	for rows.Next() {
		var img vehicle.Image
		if err := rows.Scan(&img.URL, &img.Position); err != nil {
			return nil, fmt.Errorf("store images %s: %w", id, err)
		}
		out = append(out, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store images %s: %w", id, err)
	}
	vehicle.SortImages(out)
	return out, nil
}

func (s *Store) features(ctx context.Context, id vehicle.ID) ([]vehicle.Feature, error) {
	rows, err := s.DB.QueryContext(ctx, s.rebind(`
        SELECT f."Name", f."Category"
        FROM "Features" f
        JOIN "FeatureVehicle" fv ON fv."FeaturesId" = f."Id"
        WHERE fv."VehiclesId" = ?
        ORDER BY f."Name"`), s.idArg(id))
	if err != nil {
		return nil, fmt.Errorf("store features %s: %w", id, err)
	}
	defer rows.Close()

	out := []vehicle.Feature{}
	for rows.Next() {
		var (
			f        vehicle.Feature
			category sql.NullString
		)
		if err := rows.Scan(&f.Name, &category); err != nil {
			return nil, fmt.Errorf("store features %s: %w", id, err)
		}
		if f.Name == "" {
			continue
		}
		f.Category = category.String
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store features %s: %w", id, err)
	}
	return out, nil
}

// ListIDs returns one page (1-based) of vehicle ids, newest first, and
// whether another page may follow.
func (s *Store) ListIDs(ctx context.Context, page, size int) ([]vehicle.ID, bool, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 100
	}
	// One extra row tells us whether a next page exists.
	rows, err := s.DB.QueryContext(ctx, s.rebind(`
        SELECT "Id" FROM "Vehicles" ORDER BY "CreatedAt" DESC, "Id" LIMIT ? OFFSET ?`), size+1, (page-1)*size)
	if err != nil {
		return nil, false, fmt.Errorf("store list page %d: %w", page, err)
	}
	defer rows.Close()

	ids := make([]vehicle.ID, 0, size)
	n := 0
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, false, fmt.Errorf("store list page %d: %w", page, err)
		}
		n++
		if n > size {
			break
		}
		id, err := vehicle.ParseID(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("store list page %d: %w", page, err)
	}
	return ids, n > size, nil
}

func (s *Store) idArg(id vehicle.ID) string {
	if s.d.upperIDs {
		return strings.ToUpper(id.String())
	}
	return id.String()
}

// rebind rewrites ? placeholders to $1..$n for drivers that number them.
func (s *Store) rebind(q string) string {
	if !s.d.numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
