package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"localcosmos/keyctl/internal/config"
	"localcosmos/keyctl/internal/db"
	"localcosmos/keyctl/internal/logging"
)

var (
	dbPath     string
	configPath string
	logLevel   string

	cfg    *config.Config
	logger = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:           "keyctl",
	Short:         "Store, inspect and run nature guide identification keys",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.LogLevel = logLevel
		}
		l, err := logging.New(logging.Config{
			Level:   c.LogLevel,
			Format:  logging.Format(c.LogFormat),
			Service: "keyctl",
		})
		if err != nil {
			return err
		}
		cfg = c
		logger = l.With("session", uuid.NewString())
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to .keyctl.db database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default $XDG_CONFIG_HOME/keyctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// DiscoverDB finds the database path using priority: env > flag > config > walk-up > XDG fallback.
// With create set, a missing database resolves to the XDG location instead of failing.
func DiscoverDB(create bool) (string, error) {
	// 1. Environment variable
	if envPath := os.Getenv("KEYCTL_DB"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil || create {
			return envPath, nil
		}
	}

	// 2. CLI flag
	if dbPath != "" {
		if _, err := os.Stat(dbPath); err == nil || create {
			return dbPath, nil
		}
		return "", fmt.Errorf("database not found at --db path: %s", dbPath)
	}

	// 3. Config file
	if cfg != nil && cfg.DBPath != "" {
		if _, err := os.Stat(cfg.DBPath); err == nil || create {
			return cfg.DBPath, nil
		}
		return "", fmt.Errorf("database not found at configured db_path: %s", cfg.DBPath)
	}

	// 4. Walk up from CWD
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, ".keyctl.db")
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	// 5. XDG fallback
	xdgPath := dataPath()
	if xdgPath != "" {
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
		if create {
			if err := os.MkdirAll(filepath.Dir(xdgPath), 0o755); err != nil {
				return "", fmt.Errorf("create data dir: %w", err)
			}
			return xdgPath, nil
		}
	}

	return "", fmt.Errorf("no .keyctl.db found (set KEYCTL_DB, use --db, or import a guide first)")
}

func dataPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "keyctl", "keyctl.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "keyctl", "keyctl.db")
}

// OpenDatabase discovers and opens the database
func OpenDatabase() (*db.DB, error) {
	return openDatabase(false)
}

func openDatabase(create bool) (*db.DB, error) {
	path, err := DiscoverDB(create)
	if err != nil {
		return nil, err
	}
	logger.Debug("opening database", "path", path)
	return db.OpenDB(path)
}

// ResolveKey finds a stored key by full uuid, uuid prefix, slug, or name search.
func ResolveKey(d *db.DB, reference string) (*db.Key, error) {
	// 1. Exact uuid match
	key, err := d.GetKey(reference)
	if err == nil && key != nil {
		return key, nil
	}

	// 2. uuid prefix match (≥6 hex/dash chars)
	if len(reference) >= 6 && isHexDash(reference) {
		matches, err := d.SearchKeysByIDPrefix(reference, 10)
		if err == nil {
			switch len(matches) {
			case 1:
				return &matches[0], nil
			case 0:
				// fall through to slug
			default:
				return nil, ambiguous(reference, matches, "Use a full key uuid instead.")
			}
		}
	}

	// 3. Slug
	key, err = d.GetKeyBySlug(reference)
	if err == nil && key != nil {
		return key, nil
	}

	// 4. Name search
	found, err := d.SearchKeys(reference, 10)
	if err == nil {
		switch len(found) {
		case 1:
			return &found[0], nil
		case 0:
			// fall through to not found
		default:
			return nil, ambiguous(reference, found, "Use a key uuid or slug instead.")
		}
	}

	return nil, fmt.Errorf("key not found: %s", reference)
}

func ambiguous(reference string, matches []db.Key, hint string) error {
	lines := make([]string, len(matches))
	for i, m := range matches {
		lines[i] = fmt.Sprintf("  %s %s", truncID(m.UUID), m.Name)
	}
	return fmt.Errorf("ambiguous reference '%s'. %d matches:\n%s\n%s",
		reference, len(matches), joinLines(lines), hint)
}

func isHexDash(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == '-') {
			return false
		}
	}
	return true
}

func joinLines(lines []string) string {
	result := ""
	for i, l := range lines {
		if i > 0 {
			result += "\n"
		}
		result += l
	}
	return result
}

func truncID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cut on a rune boundary
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
