// Package sqlite provides a SQLite implementation of the catalog repository.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mitchellh/mapstructure"

	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/ports"
)

// Settings configures the database connection.
type Settings struct {
	Path        string `mapstructure:"path" validate:"required"`
	BusyTimeout int    `mapstructure:"busy_timeout" default:"5000" validate:"gte=0"` // milliseconds
	JournalMode string `mapstructure:"journal_mode" default:"WAL" validate:"oneof=WAL DELETE TRUNCATE MEMORY"`
}

// DecodeSettings builds Settings from a storage.settings map.
func DecodeSettings(settings map[string]any) (Settings, error) {
	var s Settings

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return s, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return s, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&s); err != nil {
		return s, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(s); err != nil {
		return s, errors.Wrap(err, "validation failed")
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS library (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid       BLOB NOT NULL UNIQUE,
	title      TEXT NOT NULL,
	artist     TEXT,
	album      TEXT,
	duration   INTEGER NOT NULL DEFAULT 0,
	path       TEXT NOT NULL,
	cover_path TEXT
);

CREATE TABLE IF NOT EXISTS favorite (
	seq  INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid BLOB NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS history (
	uuid      BLOB PRIMARY KEY,
	played_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS history_played_at ON history (played_at);
`

// CatalogRepository stores tracks in the library table and ids in the
// favorite and history tables. IDs are stored as 16-byte UUID blobs.
//
// Thread-safety: This implementation is thread-safe.
type CatalogRepository struct {
	logger *slog.Logger
	db     *sql.DB

	closeOnce sync.Once
}

// NewCatalogRepository opens (or creates) the database and its tables.
func NewCatalogRepository(logger *slog.Logger, settings Settings) (*CatalogRepository, error) {
	if settings.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(settings.Path), 0o755); err != nil {
			return nil, domain.NewRepositoryError("open", "sqlite", "failed to create database dir", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn(settings))
	if err != nil {
		return nil, domain.NewRepositoryError("open", "sqlite", "failed to open database", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, domain.NewRepositoryError("open", "sqlite", "failed to create tables", err)
	}

	logger.Debug("catalog database opened", slog.String("path", settings.Path))
	return &CatalogRepository{logger: logger, db: db}, nil
}

func dsn(s Settings) string {
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprint(s.BusyTimeout))
	if s.JournalMode != "" {
		q.Set("_journal_mode", s.JournalMode)
	}
	return "file:" + s.Path + "?" + q.Encode()
}

func encodeID(id string) ([]byte, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.NewValidationError("id", id, "not a UUID")
	}
	return u[:], nil
}

func decodeID(b []byte) (string, error) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return "", errors.Wrap(err, "corrupt uuid")
	}
	return u.String(), nil
}

func table(c domain.Category) (string, error) {
	switch c {
	case domain.CategoryFavorite:
		return "favorite", nil
	case domain.CategoryHistory:
		return "history", nil
	default:
		return "", domain.NewValidationError("category", c, "unknown category")
	}
}

// LoadAllTracks returns every track in insertion order.
func (r *CatalogRepository) LoadAllTracks() ([]domain.Track, error) {
	rows, err := r.db.Query(`SELECT uuid, title, artist, album, duration, path, cover_path FROM library ORDER BY seq`)
	if err != nil {
		return nil, domain.NewRepositoryError("load", "sqlite", "failed to query library", err)
	}
	defer rows.Close()

	tracks := []domain.Track{}
	for rows.Next() {
		var (
			rawID                    []byte
			artist, album, coverPath sql.NullString
			durationMs               int64
			t                        domain.Track
		)
		if err := rows.Scan(&rawID, &t.Title, &artist, &album, &durationMs, &t.FilePath, &coverPath); err != nil {
			return nil, domain.NewRepositoryError("load", "sqlite", "failed to scan track", err)
		}
		if t.ID, err = decodeID(rawID); err != nil {
			return nil, domain.NewRepositoryError("load", "sqlite", "failed to decode track id", err)
		}
		t.Artist = artist.String
		t.Album = album.String
		t.CoverPath = coverPath.String
		t.Duration = time.Duration(durationMs) * time.Millisecond
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewRepositoryError("load", "sqlite", "failed to read library", err)
	}
	return tracks, nil
}

// GetAllIDs returns favorites in the order they were added and history most
// recent first, capped at domain.MaxHistory.
func (r *CatalogRepository) GetAllIDs(category domain.Category) ([]string, error) {
	var query string
	switch category {
	case domain.CategoryFavorite:
		query = `SELECT uuid FROM favorite ORDER BY seq`
	case domain.CategoryHistory:
		query = fmt.Sprintf(`SELECT uuid FROM history ORDER BY played_at DESC LIMIT %d`, domain.MaxHistory)
	default:
		return nil, domain.NewValidationError("category", category, "unknown category")
	}

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, domain.NewRepositoryError("get_ids", "sqlite", "failed to query "+category.String(), err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, domain.NewRepositoryError("get_ids", "sqlite", "failed to scan id", err)
		}
		id, err := decodeID(raw)
		if err != nil {
			return nil, domain.NewRepositoryError("get_ids", "sqlite", "failed to decode id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewRepositoryError("get_ids", "sqlite", "failed to read ids", err)
	}
	return ids, nil
}

// AddToCategory stores an id. A favorite keeps its original position; a
// history entry moves to the front.
func (r *CatalogRepository) AddToCategory(category domain.Category, id string) error {
	raw, err := encodeID(id)
	if err != nil {
		return err
	}

	switch category {
	case domain.CategoryFavorite:
		_, err = r.db.Exec(`INSERT OR IGNORE INTO favorite (uuid) VALUES (?)`, raw)
	case domain.CategoryHistory:
		_, err = r.db.Exec(`
			INSERT INTO history (uuid, played_at)
			VALUES (?, (SELECT COALESCE(MAX(played_at), 0) + 1 FROM history))
			ON CONFLICT (uuid) DO UPDATE SET played_at = excluded.played_at`, raw)
	default:
		return domain.NewValidationError("category", category, "unknown category")
	}
	if err != nil {
		return domain.NewRepositoryError("add", "sqlite", "failed to add to "+category.String(), err)
	}
	return nil
}

// RemoveFromCategory deletes an id from a category.
func (r *CatalogRepository) RemoveFromCategory(category domain.Category, id string) error {
	name, err := table(category)
	if err != nil {
		return err
	}
	raw, err := encodeID(id)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(`DELETE FROM `+name+` WHERE uuid = ?`, raw); err != nil {
		return domain.NewRepositoryError("remove", "sqlite", "failed to remove from "+name, err)
	}
	return nil
}

// ClearCategory deletes every id of a category.
func (r *CatalogRepository) ClearCategory(category domain.Category) error {
	name, err := table(category)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(`DELETE FROM ` + name); err != nil {
		return domain.NewRepositoryError("clear", "sqlite", "failed to clear "+name, err)
	}
	return nil
}

// SaveTracks inserts tracks or updates them in place by ID, in one transaction.
func (r *CatalogRepository) SaveTracks(tracks []domain.Track) error {
	return r.inTx("save", func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO library (uuid, title, artist, album, duration, path, cover_path)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (uuid) DO UPDATE SET
				title = excluded.title,
				artist = excluded.artist,
				album = excluded.album,
				duration = excluded.duration,
				path = excluded.path,
				cover_path = excluded.cover_path`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range tracks {
			raw, err := encodeID(t.ID)
			if err != nil {
				return err
			}
			var cover any
			if t.CoverPath != "" {
				cover = t.CoverPath
			}
			if _, err := stmt.Exec(raw, t.Title, t.Artist, t.Album, t.Duration.Milliseconds(), t.FilePath, cover); err != nil {
				return errors.Wrapf(err, "track %s", t.ID)
			}
		}
		return nil
	})
}

// DeleteTracks removes tracks by ID. Favorite and history ids are removed by the catalog under its stale policy.
func (r *CatalogRepository) DeleteTracks(ids []string) error {
	return r.inTx("delete", func(tx *sql.Tx) error {
		for _, id := range ids {
			raw, err := encodeID(id)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(`DELETE FROM library WHERE uuid = ?`, raw); err != nil {
				return errors.Wrapf(err, "track %s", id)
			}
		}
		return nil
	})
}

func (r *CatalogRepository) inTx(op string, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.Begin()
	if err != nil {
		return domain.NewRepositoryError(op, "sqlite", "failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return err
		}
		return domain.NewRepositoryError(op, "sqlite", "transaction failed", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.NewRepositoryError(op, "sqlite", "failed to commit", err)
	}
	return nil
}

// Close closes the database. Calling it more than once is harmless.
func (r *CatalogRepository) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.db.Close()
	})
	return err
}

// Verify that CatalogRepository implements the CatalogRepository interface
var _ ports.CatalogRepository = (*CatalogRepository)(nil)
