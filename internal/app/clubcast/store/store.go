// Package store is the SQLite catalog of discovered content plus the
// subscriber account. The store is exclusive to one running command;
// concurrent invocations against the same file are not guarded.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	log "github.com/go-pkgz/lgr"
	_ "modernc.org/sqlite" // database/sql driver

	"clubcast/internal/app/clubcast/content"
)

const schema = `
CREATE TABLE IF NOT EXISTS account (
	username     TEXT PRIMARY KEY,
	password     BLOB NOT NULL,
	download_dir TEXT,
	last_updated TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS episodes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL,
	date         TEXT NOT NULL,
	url          TEXT NOT NULL,
	image        TEXT NOT NULL,
	audio        TEXT NOT NULL,
	last_updated TEXT NOT NULL,
	UNIQUE (title, url)
);
CREATE TABLE IF NOT EXISTS videos (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	title        TEXT NOT NULL,
	category     TEXT NOT NULL,
	date         TEXT NOT NULL,
	url          TEXT NOT NULL,
	image        TEXT NOT NULL,
	video_image  TEXT NOT NULL,
	video        TEXT NOT NULL,
	last_updated TEXT NOT NULL,
	UNIQUE (title, url)
);
`

// Store wraps the catalog database.
type Store struct {
	db *sql.DB
}

// ListQuery narrows and orders a listing.
type ListQuery struct {
	Search   string // substring over title (and description for episodes)
	Category string // substring over category, videos only
	Oldest   bool   // ascending by publish date instead of descending
	Limit    int    // <= 0 returns all matches
}

// New opens (creating if needed) the catalog database at path.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseStamp reads a stored RFC3339 timestamp. A corrupt value maps
// to the zero time and is reported, a silent zero would quietly
// reorder listings and feeds.
func parseStamp(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		log.Printf("[WARN] corrupt timestamp %q in catalog, %v", v, err)
		return time.Time{}
	}
	return t
}

// FindEpisode looks an episode up by its dedup key. A nil result with
// a nil error means the episode is unknown.
func (s *Store) FindEpisode(title, url string) (*content.Episode, error) {
	query, args, err := sq.Select(episodeCols...).
		From("episodes").
		Where(sq.Eq{"title": title, "url": url}).
		ToSql()
	if err != nil {
		return nil, err
	}
	ep, err := scanEpisode(s.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return ep, err
}

// FindVideo looks a video up by its dedup key.
func (s *Store) FindVideo(title, url string) (*content.Video, error) {
	query, args, err := sq.Select(videoCols...).
		From("videos").
		Where(sq.Eq{"title": title, "url": url}).
		ToSql()
	if err != nil {
		return nil, err
	}
	v, err := scanVideo(s.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

// EpisodeByID fetches one episode, content.NotFoundError when absent.
func (s *Store) EpisodeByID(id int64) (*content.Episode, error) {
	query, args, err := sq.Select(episodeCols...).
		From("episodes").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	ep, err := scanEpisode(s.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &content.NotFoundError{Kind: content.Episodes, ID: id}
	}
	return ep, err
}

// VideoByID fetches one video, content.NotFoundError when absent.
func (s *Store) VideoByID(id int64) (*content.Video, error) {
	query, args, err := sq.Select(videoCols...).
		From("videos").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	v, err := scanVideo(s.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &content.NotFoundError{Kind: content.Videos, ID: id}
	}
	return v, err
}

// ListEpisodes returns episodes matching q, newest first unless
// q.Oldest is set.
func (s *Store) ListEpisodes(q ListQuery) ([]content.Episode, error) {
	b := sq.Select(episodeCols...).From("episodes")
	if q.Search != "" {
		pat := "%" + q.Search + "%"
		b = b.Where(sq.Or{sq.Like{"title": pat}, sq.Like{"description": pat}})
	}
	b = b.OrderBy("date " + direction(q.Oldest) + ", id " + direction(q.Oldest))
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint

	var result []content.Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ep)
	}
	return result, rows.Err()
}

// ListVideos returns videos matching q, newest first unless q.Oldest
// is set.
func (s *Store) ListVideos(q ListQuery) ([]content.Video, error) {
	b := sq.Select(videoCols...).From("videos")
	if q.Search != "" {
		b = b.Where(sq.Like{"title": "%" + q.Search + "%"})
	}
	if q.Category != "" {
		b = b.Where(sq.Like{"category": "%" + q.Category + "%"})
	}
	b = b.OrderBy("date " + direction(q.Oldest) + ", id " + direction(q.Oldest))
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint

	var result []content.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	return result, rows.Err()
}

// InsertEpisodes stores a scanned batch in one transaction. Either the
// whole batch lands or none of it does.
func (s *Store) InsertEpisodes(items []content.Episode) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint

	now := stamp(time.Now())
	for i := range items {
		query, args, err := sq.Insert("episodes").
			Columns("title", "description", "date", "url", "image", "audio", "last_updated").
			Values(items[i].Title, items[i].Description, stamp(items[i].Date),
				items[i].URL, items[i].Image, items[i].Audio, now).
			ToSql()
		if err != nil {
			return err
		}
		res, err := tx.Exec(query, args...)
		if err != nil {
			return fmt.Errorf("insert episode %q: %w", items[i].Title, err)
		}
		if items[i].ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// InsertVideos stores a scanned batch in one transaction.
func (s *Store) InsertVideos(items []content.Video) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint

	now := stamp(time.Now())
	for i := range items {
		query, args, err := sq.Insert("videos").
			Columns("title", "category", "date", "url", "image", "video_image", "video", "last_updated").
			Values(items[i].Title, items[i].Category, stamp(items[i].Date), items[i].URL,
				items[i].Image, items[i].VideoImage, items[i].VideoURL, now).
			ToSql()
		if err != nil {
			return err
		}
		res, err := tx.Exec(query, args...)
		if err != nil {
			return fmt.Errorf("insert video %q: %w", items[i].Title, err)
		}
		if items[i].ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Accounts returns all stored accounts, usually zero or one.
func (s *Store) Accounts() ([]content.Account, error) {
	query, args, err := sq.Select("username", "password", "download_dir", "last_updated").
		From("account").
		OrderBy("username ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint

	var result []content.Account
	for rows.Next() {
		var a content.Account
		var dir sql.NullString
		var updated string
		if err := rows.Scan(&a.Username, &a.Password, &dir, &updated); err != nil {
			return nil, err
		}
		a.DownloadDir = dir.String
		a.LastUpdated = parseStamp(updated)
		result = append(result, a)
	}
	return result, rows.Err()
}

// FindAccount returns the account for username, nil when unknown.
func (s *Store) FindAccount(username string) (*content.Account, error) {
	query, args, err := sq.Select("username", "password", "download_dir", "last_updated").
		From("account").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var a content.Account
	var dir sql.NullString
	var updated string
	err = s.db.QueryRow(query, args...).Scan(&a.Username, &a.Password, &dir, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.DownloadDir = dir.String
	a.LastUpdated = parseStamp(updated)
	return &a, nil
}

// SaveAccount inserts or replaces the account row.
func (s *Store) SaveAccount(a *content.Account) error {
	a.LastUpdated = time.Now().UTC()
	query, args, err := sq.Insert("account").
		Columns("username", "password", "download_dir", "last_updated").
		Values(a.Username, a.Password, a.DownloadDir, stamp(a.LastUpdated)).
		Suffix("ON CONFLICT (username) DO UPDATE SET " +
			"password = excluded.password, " +
			"download_dir = excluded.download_dir, " +
			"last_updated = excluded.last_updated").
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(query, args...)
	return err
}

var episodeCols = []string{"id", "title", "description", "date", "url", "image", "audio", "last_updated"}

var videoCols = []string{"id", "title", "category", "date", "url", "image", "video_image", "video", "last_updated"}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row rowScanner) (*content.Episode, error) {
	var ep content.Episode
	var date, updated string
	err := row.Scan(&ep.ID, &ep.Title, &ep.Description, &date, &ep.URL,
		&ep.Image, &ep.Audio, &updated)
	if err != nil {
		return nil, err
	}
	ep.Date = parseStamp(date)
	ep.LastUpdated = parseStamp(updated)
	return &ep, nil
}

func scanVideo(row rowScanner) (*content.Video, error) {
	var v content.Video
	var date, updated string
	err := row.Scan(&v.ID, &v.Title, &v.Category, &date, &v.URL,
		&v.Image, &v.VideoImage, &v.VideoURL, &updated)
	if err != nil {
		return nil, err
	}
	v.Date = parseStamp(date)
	v.LastUpdated = parseStamp(updated)
	return &v, nil
}

func direction(oldest bool) string {
	if oldest {
		return "ASC"
	}
	return "DESC"
}
