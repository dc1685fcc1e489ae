package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"localcosmos/keyctl/internal/natureguide"
)

// SaveGuide parses a nature guide document, checks that every key in its
// tree instantiates, and stores it. Re-importing a guide replaces it.
// Guides without a uuid get a generated one.
func (d *DB) SaveGuide(raw []byte) (*Guide, error) {
	g, err := natureguide.Parse(raw)
	if err != nil {
		return nil, err
	}
	if g.UUID == "" {
		g.UUID = uuid.NewString()
	}

	var keys []Key
	for _, id := range g.KeyIDs() {
		step, err := g.Step(id)
		if err != nil {
			return nil, fmt.Errorf("guide %s: %w", g.UUID, err)
		}
		if _, err := natureguide.NewIdentificationKey(step); err != nil {
			return nil, fmt.Errorf("guide %s: key %s: %w", g.UUID, id, err)
		}
		mode := step.IdentificationMode
		if mode == "" {
			mode = natureguide.ModeFluid
		}
		keys = append(keys, Key{
			GuideUUID:     g.UUID,
			UUID:          id,
			Name:          step.Name,
			Slug:          step.Slug,
			ChildrenCount: len(step.Children),
			FilterCount:   step.MatrixFilters.Len(),
			IsStart:       id == g.StartNodeUUID,
			Mode:          string(mode),
		})
	}

	guide := &Guide{
		UUID:       g.UUID,
		Name:       g.Name,
		Slug:       g.Slug,
		Version:    g.Version.String(),
		StartKey:   g.StartNodeUUID,
		ImportedAt: time.Now().UnixMilli(),
		KeyCount:   len(keys),
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	if err := d.deleteGuideTx(tx, guide.UUID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`
		INSERT INTO guides (uuid, name, slug, version, start_key, imported_at, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, guide.UUID, guide.Name, guide.Slug, guide.Version, guide.StartKey, guide.ImportedAt, raw); err != nil {
		return nil, fmt.Errorf("inserting guide %s: %w", guide.UUID, err)
	}
	for _, k := range keys {
		if _, err := tx.Exec(`
			INSERT INTO keys (guide_uuid, uuid, name, slug, children_count, filter_count, is_start, mode)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, k.GuideUUID, k.UUID, k.Name, k.Slug, k.ChildrenCount, k.FilterCount, k.IsStart, k.Mode); err != nil {
			return nil, fmt.Errorf("inserting key %s: %w", k.UUID, err)
		}
		if !d.fts {
			continue
		}
		if _, err := tx.Exec(`
			INSERT INTO keys_fts (name, slug, guide_uuid, key_uuid) VALUES (?, ?, ?, ?)
		`, k.Name, k.Slug, k.GuideUUID, k.UUID); err != nil {
			return nil, fmt.Errorf("indexing key %s: %w", k.UUID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}
	return guide, nil
}

// LoadGuide returns the parsed guide document stored under uuid.
func (d *DB) LoadGuide(guideUUID string) (*natureguide.NatureGuide, error) {
	var raw []byte
	err := d.conn.QueryRow(`SELECT raw FROM guides WHERE uuid = ?`, guideUUID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("guide %s not found", guideUUID)
	}
	if err != nil {
		return nil, err
	}
	g, err := natureguide.Parse(raw)
	if err != nil {
		return nil, err
	}
	if g.UUID == "" {
		g.UUID = guideUUID
	}
	return g, nil
}

func scanGuide(scanner interface{ Scan(dest ...any) error }) (Guide, error) {
	var g Guide
	err := scanner.Scan(&g.UUID, &g.Name, &g.Slug, &g.Version, &g.StartKey, &g.ImportedAt, &g.KeyCount)
	return g, err
}

const guideColumns = `
	SELECT g.uuid, g.name, g.slug, g.version, g.start_key, g.imported_at,
	       (SELECT COUNT(*) FROM keys k WHERE k.guide_uuid = g.uuid)
	FROM guides g
`

// AllGuides returns all guides, most recently imported first
func (d *DB) AllGuides() ([]Guide, error) {
	rows, err := d.conn.Query(guideColumns + ` ORDER BY g.imported_at DESC, g.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guides []Guide
	for rows.Next() {
		g, err := scanGuide(rows)
		if err != nil {
			return nil, err
		}
		guides = append(guides, g)
	}
	return guides, rows.Err()
}

// GetGuide returns a single guide by uuid, or nil if not found
func (d *DB) GetGuide(guideUUID string) (*Guide, error) {
	g, err := scanGuide(d.conn.QueryRow(guideColumns+` WHERE g.uuid = ?`, guideUUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// DeleteGuide removes a guide and its keys. Returns false if it did not exist.
func (d *DB) DeleteGuide(guideUUID string) (bool, error) {
	existing, err := d.GetGuide(guideUUID)
	if err != nil || existing == nil {
		return false, err
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if err := d.deleteGuideTx(tx, guideUUID); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (d *DB) deleteGuideTx(tx *sql.Tx, guideUUID string) error {
	if d.fts {
		if _, err := tx.Exec(`DELETE FROM keys_fts WHERE guide_uuid = ?`, guideUUID); err != nil {
			return fmt.Errorf("unindexing guide %s: %w", guideUUID, err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM guides WHERE uuid = ?`, guideUUID); err != nil {
		return fmt.Errorf("deleting guide %s: %w", guideUUID, err)
	}
	return nil
}
