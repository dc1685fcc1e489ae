package db

import (
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "is": true,
	"it": true, "and": true, "or": true, "with": true, "from": true,
	"by": true, "this": true, "that": true, "as": true, "be": true,
}

// searchTerms splits a query on whitespace, trims punctuation and drops
// stopwords and words shorter than 3 characters.
func searchTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(query) {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if len([]rune(trimmed)) < 3 {
			continue
		}
		if stopwords[strings.ToLower(trimmed)] {
			continue
		}
		terms = append(terms, trimmed)
	}
	return terms
}

// BuildFTSQuery preprocesses a natural language query for FTS5. Each term is
// quoted and matched as a prefix; terms are joined with " OR ".
func BuildFTSQuery(query string) string {
	terms := searchTerms(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"*`
	}
	return strings.Join(terms, " OR ")
}

// SearchKeys finds keys by name or slug. It uses FTS5 when available and a
// LIKE scan otherwise. Returns an empty slice if the query has no usable terms.
func (d *DB) SearchKeys(query string, limit int) ([]Key, error) {
	if limit <= 0 {
		limit = 50
	}
	if !d.fts {
		return d.searchKeysLike(query, limit)
	}
	ftsQuery := BuildFTSQuery(query)
	if ftsQuery == "" {
		return []Key{}, nil
	}

	keys, err := d.queryKeys(keyColumns+`
		JOIN keys_fts ON keys_fts.guide_uuid = k.guide_uuid AND keys_fts.key_uuid = k.uuid
		WHERE keys_fts MATCH ?
		ORDER BY keys_fts.rank
		LIMIT ?
	`, ftsQuery, limit)
	if err != nil {
		// Gracefully handle missing FTS table
		if strings.Contains(err.Error(), "no such table") {
			return d.searchKeysLike(query, limit)
		}
		return nil, err
	}
	if keys == nil {
		keys = []Key{}
	}
	return keys, nil
}

func (d *DB) searchKeysLike(query string, limit int) ([]Key, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return []Key{}, nil
	}
	var where []string
	var args []any
	for _, t := range terms {
		where = append(where, "k.name LIKE ? OR k.slug LIKE ?")
		pattern := "%" + t + "%"
		args = append(args, pattern, pattern)
	}
	args = append(args, limit)

	keys, err := d.queryKeys(keyColumns+`WHERE `+strings.Join(where, " OR ")+`
		ORDER BY k.name LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []Key{}
	}
	return keys, nil
}
