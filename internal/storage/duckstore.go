package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/marcboeker/go-duckdb"
	"github.com/restock-console/mapeditor/internal/models"
)

// ErrMapNotFound is returned for unknown or malformed map ids.
var ErrMapNotFound = models.ErrMapNotFound

// DefaultShelfLevels is the restocking sub-grid height given to new
// furniture that does not specify one.
const DefaultShelfLevels = 3

// DuckOptions tunes the DuckDB connection.
type DuckOptions struct {
	MemoryLimit string
	Threads     int
	ShelfLevels int
}

// SeedType is a catalog entry inserted into an empty object-type table.
type SeedType struct {
	Name        string
	Category    models.Category
	Rows        int
	Cols        int
	Walkable    bool
	ShelfLevels int
}

// DuckStore persists maps, object types, placements and restocking points
// in a DuckDB file. It is the editor's backend.
type DuckStore struct {
	db          *sql.DB
	dbPath      string
	shelfLevels int
}

var schema = []string{
	`CREATE SEQUENCE IF NOT EXISTS object_type_ids START 1`,
	`CREATE TABLE IF NOT EXISTS object_types (
		id             BIGINT PRIMARY KEY DEFAULT nextval('object_type_ids'),
		name           VARCHAR NOT NULL,
		category       VARCHAR NOT NULL,
		footprint_rows INTEGER NOT NULL,
		footprint_cols INTEGER NOT NULL,
		walkable       BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE SEQUENCE IF NOT EXISTS map_ids START 1`,
	`CREATE TABLE IF NOT EXISTS maps (
		id         BIGINT PRIMARY KEY DEFAULT nextval('map_ids'),
		name       VARCHAR NOT NULL,
		width      INTEGER NOT NULL,
		height     INTEGER NOT NULL,
		updated_at TIMESTAMPTZ DEFAULT current_timestamp
	)`,
	// One row per occupied cell; uniqueness is checked in SaveLayout.
	`CREATE TABLE IF NOT EXISTS placements (
		map_id    BIGINT NOT NULL,
		x         INTEGER NOT NULL,
		y         INTEGER NOT NULL,
		object_id BIGINT NOT NULL,
		rotation  INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE SEQUENCE IF NOT EXISTS restock_point_ids START 1`,
	`CREATE TABLE IF NOT EXISTS restock_points (
		id           BIGINT PRIMARY KEY DEFAULT nextval('restock_point_ids'),
		object_id    BIGINT NOT NULL,
		shelf_level  INTEGER NOT NULL,
		shelf_column INTEGER NOT NULL,
		product      VARCHAR
	)`,
	`CREATE INDEX IF NOT EXISTS idx_placements_map ON placements(map_id)`,
	`CREATE INDEX IF NOT EXISTS idx_restock_object ON restock_points(object_id)`,
}

// OpenDuckStore opens or creates the database at dbPath.
func OpenDuckStore(dbPath string, opts DuckOptions) (*DuckStore, error) {
	fmt.Printf("[DuckStore] Opening database at: %s\n", dbPath)

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{"PRAGMA enable_progress_bar=false"}
		if opts.MemoryLimit != "" {
			pragmas = append(pragmas, fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit))
		}
		if opts.Threads > 0 {
			pragmas = append(pragmas, fmt.Sprintf("PRAGMA threads=%d", opts.Threads))
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				fmt.Printf("[DuckStore] Pragma error: %v\n", err)
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	levels := opts.ShelfLevels
	if levels <= 0 {
		levels = DefaultShelfLevels
	}
	return &DuckStore{db: db, dbPath: dbPath, shelfLevels: levels}, nil
}

// Close closes the database.
func (s *DuckStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *DuckStore) Path() string {
	return s.dbPath
}

func parseMapID(mapID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(mapID), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMapNotFound, mapID)
	}
	return id, nil
}

// CreateMap inserts an empty map. Dimensions must be within grid limits.
func (s *DuckStore) CreateMap(ctx context.Context, name string, width, height int) (*models.MapInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("map name is required")
	}
	if _, err := models.NewGrid(width, height); err != nil {
		return nil, err
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO maps (name, width, height) VALUES (?, ?, ?) RETURNING id`,
		name, width, height).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create map: %w", err)
	}
	fmt.Printf("[DuckStore] Created map %d %q (%dx%d)\n", id, name, width, height)
	return &models.MapInfo{ID: strconv.FormatInt(id, 10), Name: name, Width: width, Height: height}, nil
}

// ListMaps returns every map with its placement count, by id.
func (s *DuckStore) ListMaps(ctx context.Context) ([]models.MapInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.name, m.width, m.height, count(p.object_id)
		FROM maps m
		LEFT JOIN placements p ON p.map_id = m.id
		GROUP BY m.id, m.name, m.width, m.height
		ORDER BY m.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list maps: %w", err)
	}
	defer rows.Close()

	maps := []models.MapInfo{}
	for rows.Next() {
		var (
			id    int64
			info  models.MapInfo
			cells int64
		)
		if err := rows.Scan(&id, &info.Name, &info.Width, &info.Height, &cells); err != nil {
			return nil, err
		}
		info.ID = strconv.FormatInt(id, 10)
		info.Cells = int(cells)
		maps = append(maps, info)
	}
	return maps, rows.Err()
}

// ObjectTypes returns the whole catalog, by id.
func (s *DuckStore) ObjectTypes(ctx context.Context) ([]models.ObjectType, error) {
	return queryObjectTypes(ctx, s.db)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryObjectTypes(ctx context.Context, q querier) ([]models.ObjectType, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, category, footprint_rows, footprint_cols, walkable
		FROM object_types ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query object types: %w", err)
	}
	defer rows.Close()

	types := []models.ObjectType{}
	for rows.Next() {
		var (
			ref      int64
			category string
			t        models.ObjectType
		)
		if err := rows.Scan(&ref, &t.Name, &category, &t.Rows, &t.Cols, &t.Walkable); err != nil {
			return nil, err
		}
		t.ID = models.Persisted(ref)
		t.Category = models.ParseCategory(category)
		types = append(types, t)
	}
	return types, rows.Err()
}

// SeedObjectTypes inserts seeds when the catalog is empty and returns how
// many were added.
func (s *DuckStore) SeedObjectTypes(ctx context.Context, seeds []SeedType) (int, error) {
	var existing int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM object_types`).Scan(&existing); err != nil {
		return 0, fmt.Errorf("failed to count object types: %w", err)
	}
	if existing > 0 || len(seeds) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, seed := range seeds {
		obj := models.NewObject{
			Name:     seed.Name,
			Category: seed.Category,
			Rows:     seed.Rows,
			Cols:     seed.Cols,
			Walkable: seed.Walkable,
		}
		if _, err := s.insertObjectType(ctx, tx, obj, seed.ShelfLevels); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed: %w", err)
	}
	fmt.Printf("[DuckStore] Seeded %d object types\n", len(seeds))
	return len(seeds), nil
}

// insertObjectType adds a type and, for furniture, its cols x levels
// restocking sub-grid.
func (s *DuckStore) insertObjectType(ctx context.Context, tx *sql.Tx, obj models.NewObject, levels int) (int64, error) {
	if strings.TrimSpace(obj.Name) == "" {
		return 0, errors.New("object name is required")
	}
	if obj.Rows < 1 || obj.Cols < 1 {
		return 0, fmt.Errorf("object %q has invalid footprint %dx%d", obj.Name, obj.Rows, obj.Cols)
	}
	category := models.ParseCategory(string(obj.Category))

	var ref int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO object_types (name, category, footprint_rows, footprint_cols, walkable)
		VALUES (?, ?, ?, ?, ?) RETURNING id
	`, obj.Name, string(category), obj.Rows, obj.Cols, obj.Walkable).Scan(&ref)
	if err != nil {
		return 0, fmt.Errorf("failed to insert object type %q: %w", obj.Name, err)
	}

	if category != models.CategoryFurniture {
		return ref, nil
	}
	if levels <= 0 {
		levels = s.shelfLevels
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO restock_points (object_id, shelf_level, shelf_column) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for level := 1; level <= levels; level++ {
		for col := 1; col <= obj.Cols; col++ {
			if _, err := stmt.ExecContext(ctx, ref, level, col); err != nil {
				return 0, fmt.Errorf("failed to insert restock point: %w", err)
			}
		}
	}
	return ref, nil
}

// LoadLayout returns the map's grid, placements and the full palette.
func (s *DuckStore) LoadLayout(ctx context.Context, mapID string) (*models.Layout, error) {
	id, err := parseMapID(mapID)
	if err != nil {
		return nil, err
	}

	l := &models.Layout{MapID: strconv.FormatInt(id, 10)}
	err = s.db.QueryRowContext(ctx, `SELECT name, width, height FROM maps WHERE id = ?`, id).
		Scan(&l.Name, &l.Grid.Width, &l.Grid.Height)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMapNotFound, mapID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load map: %w", err)
	}

	if l.Palette, err = queryObjectTypes(ctx, s.db); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.x, p.y, p.object_id, p.rotation, coalesce(o.name, '')
		FROM placements p
		LEFT JOIN object_types o ON o.id = p.object_id
		WHERE p.map_id = ?
		ORDER BY p.y, p.x
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load placements: %w", err)
	}
	defer rows.Close()

	l.Placements = []models.Placement{}
	for rows.Next() {
		var (
			p   models.Placement
			ref int64
		)
		if err := rows.Scan(&p.X, &p.Y, &ref, &p.Rotation, &p.Label); err != nil {
			return nil, err
		}
		p.ObjectID = models.Persisted(ref)
		l.Placements = append(l.Placements, p)
	}
	return l, rows.Err()
}

// SaveLayout creates the payload's new object types and replaces the map's
// placements in one transaction. Nothing is written on error.
func (s *DuckStore) SaveLayout(ctx context.Context, payload *models.SavePayload) (*models.SaveResult, error) {
	id, err := parseMapID(payload.MapID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	var grid models.Grid
	err = tx.QueryRowContext(ctx, `SELECT width, height FROM maps WHERE id = ?`, id).Scan(&grid.Width, &grid.Height)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMapNotFound, payload.MapID)
	}
	if err != nil {
		return nil, err
	}

	known := make(map[int64]bool)
	existing, err := queryObjectTypes(ctx, tx)
	if err != nil {
		return nil, err
	}
	for _, t := range existing {
		known[t.ID.Ref] = true
	}

	res := &models.SaveResult{Created: make(map[string]int64)}
	for _, obj := range payload.NewObjects {
		if obj.TempKey == "" {
			return nil, fmt.Errorf("new object %q has no temporary key", obj.Name)
		}
		if _, dup := res.Created[obj.TempKey]; dup {
			return nil, fmt.Errorf("duplicate temporary key %q", obj.TempKey)
		}
		ref, err := s.insertObjectType(ctx, tx, obj, 0)
		if err != nil {
			return nil, err
		}
		res.Created[obj.TempKey] = ref
		known[ref] = true
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM placements WHERE map_id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to clear placements: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO placements (map_id, x, y, object_id, rotation) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	seen := make(map[models.Point]bool, len(payload.Placements))
	for _, rec := range payload.Placements {
		ref, err := resolveRecord(rec, res.Created, known)
		if err != nil {
			return nil, err
		}
		cell := models.Point{X: rec.X, Y: rec.Y}
		if !grid.Contains(cell) {
			return nil, fmt.Errorf("placement %s outside %dx%d grid", cell, grid.Width, grid.Height)
		}
		if seen[cell] {
			return nil, fmt.Errorf("duplicate placement at %s", cell)
		}
		seen[cell] = true
		if _, err := stmt.ExecContext(ctx, id, rec.X, rec.Y, ref, models.NormalizeRotation(rec.Rotation)); err != nil {
			return nil, fmt.Errorf("failed to insert placement: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE maps SET updated_at = current_timestamp WHERE id = ?`, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit save: %w", err)
	}
	fmt.Printf("[DuckStore] Saved map %d: %d placements, %d new objects\n", id, len(payload.Placements), len(res.Created))
	return res, nil
}

func resolveRecord(rec models.PlacementRecord, created map[string]int64, known map[int64]bool) (int64, error) {
	switch {
	case rec.TempKey != "" && rec.ObjectRef != 0:
		return 0, fmt.Errorf("placement at %d,%d has both an object ref and a temporary key", rec.X, rec.Y)
	case rec.TempKey != "":
		ref, ok := created[rec.TempKey]
		if !ok {
			return 0, fmt.Errorf("placement at %d,%d references unknown temporary key %q", rec.X, rec.Y, rec.TempKey)
		}
		return ref, nil
	case rec.ObjectRef != 0:
		if !known[rec.ObjectRef] {
			return 0, fmt.Errorf("placement at %d,%d references unknown object %d", rec.X, rec.Y, rec.ObjectRef)
		}
		return rec.ObjectRef, nil
	default:
		return 0, fmt.Errorf("placement at %d,%d has no object reference", rec.X, rec.Y)
	}
}

// RestockPoints returns the sub-grid of a furniture type ordered by level
// then column.
func (s *DuckStore) RestockPoints(ctx context.Context, objectID int64) ([]models.RestockPoint, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shelf_level, shelf_column, product
		FROM restock_points WHERE object_id = ?
		ORDER BY shelf_level, shelf_column
	`, objectID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query restock points: %w", err)
	}
	defer rows.Close()

	var points []models.RestockPoint
	for rows.Next() {
		var (
			p       models.RestockPoint
			product sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Level, &p.Column, &product); err != nil {
			return nil, false, err
		}
		p.Product = product.String
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return points, len(points) > 0, nil
}
