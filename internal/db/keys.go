package db

import (
	"database/sql"
	"errors"
)

// scanKey scans a row into a Key. The row must have all 8 columns in standard order.
func scanKey(scanner interface{ Scan(dest ...any) error }) (Key, error) {
	var k Key
	err := scanner.Scan(
		&k.GuideUUID, &k.UUID, &k.Name, &k.Slug,
		&k.ChildrenCount, &k.FilterCount, &k.IsStart, &k.Mode,
	)
	return k, err
}

const keyColumns = `
	SELECT k.guide_uuid, k.uuid, k.name, k.slug,
	       k.children_count, k.filter_count, k.is_start, k.mode
	FROM keys k
`

func (d *DB) queryKeys(query string, args ...any) ([]Key, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// KeysForGuide returns the keys of one guide, start key first
func (d *DB) KeysForGuide(guideUUID string) ([]Key, error) {
	return d.queryKeys(keyColumns+`
		WHERE k.guide_uuid = ?
		ORDER BY k.is_start DESC, k.name, k.uuid
	`, guideUUID)
}

// GetKey returns a key by uuid, or nil if not found. When several guides
// carry the same key the most recently imported wins.
func (d *DB) GetKey(keyUUID string) (*Key, error) {
	return d.firstKey(keyColumns+`
		JOIN guides g ON g.uuid = k.guide_uuid
		WHERE k.uuid = ?
		ORDER BY g.imported_at DESC LIMIT 1
	`, keyUUID)
}

// GetKeyBySlug returns the key with the given slug, or nil if not found.
func (d *DB) GetKeyBySlug(slug string) (*Key, error) {
	return d.firstKey(keyColumns+`
		JOIN guides g ON g.uuid = k.guide_uuid
		WHERE k.slug = ?
		ORDER BY g.imported_at DESC LIMIT 1
	`, slug)
}

// SearchKeysByIDPrefix finds keys whose uuid starts with the given prefix.
func (d *DB) SearchKeysByIDPrefix(prefix string, limit int) ([]Key, error) {
	return d.queryKeys(keyColumns+`WHERE k.uuid LIKE ? LIMIT ?`, prefix+"%", limit)
}

func (d *DB) firstKey(query string, args ...any) (*Key, error) {
	k, err := scanKey(d.conn.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}
