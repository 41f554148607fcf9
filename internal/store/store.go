// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists paper records and cached search results in a local
// SQLite database. The store is the only component permitted to write
// records; all stage mutations route through Upsert. Every mutation commits
// immediately, so a process restart that reopens the database sees all
// completed work.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/secdigest/pkg/types"
)

// timeNow is the clock used for cache freshness. Tests override it.
var timeNow = time.Now

// Store manages the papers database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and creates the schema if it
// does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Flush forces a WAL checkpoint so the main database file reflects all
// committed writes.
func (s *Store) Flush() error {
	if _, err := s.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("checkpointing database: %w", err)
	}
	return nil
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			published TEXT NOT NULL,
			title TEXT NOT NULL,
			authors TEXT NOT NULL,
			downloaded INTEGER NOT NULL DEFAULT 0,
			pdf_path TEXT,
			summarized INTEGER NOT NULL DEFAULT 0,
			points TEXT,
			one_liner TEXT,
			emoji TEXT,
			tag TEXT,
			affiliations TEXT,
			relevant INTEGER,
			projects TEXT,
			interest_score INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_published ON papers(published)`,
		`CREATE TABLE IF NOT EXISTS search_cache (
			query TEXT PRIMARY KEY,
			fetched_at TEXT NOT NULL,
			hits TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get returns the record with the given id, or ok=false if absent.
func (s *Store) Get(id string) (*types.PaperRecord, bool, error) {
	row := s.db.QueryRow(
		`SELECT id, url, published, title, authors, downloaded, pdf_path,
		        summarized, points, one_liner, emoji, tag, affiliations,
		        relevant, projects, interest_score
		 FROM papers WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading record %s: %w", id, err)
	}
	return rec, true, nil
}

// Upsert writes the record, inserting or replacing by id. The write is
// durable once Upsert returns.
func (s *Store) Upsert(rec *types.PaperRecord) error {
	authorsJSON, err := json.Marshal(rec.Authors)
	if err != nil {
		return fmt.Errorf("marshaling authors for %s: %w", rec.ID, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO papers (id, url, published, title, authors, downloaded,
		                     pdf_path, summarized, points, one_liner, emoji,
		                     tag, affiliations, relevant, projects, interest_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			url=excluded.url, published=excluded.published, title=excluded.title,
			authors=excluded.authors, downloaded=excluded.downloaded,
			pdf_path=excluded.pdf_path, summarized=excluded.summarized,
			points=excluded.points, one_liner=excluded.one_liner,
			emoji=excluded.emoji, tag=excluded.tag,
			affiliations=excluded.affiliations, relevant=excluded.relevant,
			projects=excluded.projects, interest_score=excluded.interest_score`,
		rec.ID, rec.URL, rec.Published.UTC().Format(time.RFC3339), rec.Title,
		string(authorsJSON), boolInt(rec.Downloaded), nullString(rec.PDFPath),
		boolInt(rec.Summarized), nullJSON(rec.Points), nullString(rec.OneLiner),
		nullString(rec.Emoji), nullString(string(rec.Tag)),
		nullJSON(rec.Affiliations), nullBool(rec.Relevant),
		nullJSON(rec.Projects), nullInt(rec.InterestScore),
	)
	if err != nil {
		return fmt.Errorf("upserting record %s: %w", rec.ID, err)
	}
	return nil
}

// All returns every record in the store, newest first.
func (s *Store) All() ([]*types.PaperRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, url, published, title, authors, downloaded, pdf_path,
		        summarized, points, one_liner, emoji, tag, affiliations,
		        relevant, projects, interest_score
		 FROM papers ORDER BY published DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []*types.PaperRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Derived field names accepted by ResetFields.
const (
	FieldPoints        = "points"
	FieldOneLiner      = "one_liner"
	FieldEmoji         = "emoji"
	FieldTag           = "tag"
	FieldAffiliations  = "affiliations"
	FieldRelevant      = "relevant"
	FieldProjects      = "projects"
	FieldInterestScore = "interest_score"
	FieldPDFPath       = "pdf_path"
)

// SummaryFields enumerates every field the summarize stage and its
// downstream classifiers produce. A forced re-summarization must reset all
// of them: omitting one leaves stale data that later stages treat as
// already done.
var SummaryFields = []string{
	FieldPoints, FieldOneLiner, FieldEmoji, FieldTag, FieldAffiliations,
	FieldRelevant, FieldProjects, FieldInterestScore,
}

// summaryFieldSet marks the fields whose removal reverts the summarized flag.
var summaryFieldSet = map[string]bool{
	FieldPoints: true, FieldOneLiner: true, FieldEmoji: true, FieldTag: true,
	FieldAffiliations: true, FieldInterestScore: true,
}

// ResetFields removes the named derived fields from the record, reverting the
// downloaded/summarized flags as needed. Unknown field names are an error so
// a misspelled reset cannot silently leave stale data behind.
func (s *Store) ResetFields(id string, fields ...string) error {
	valid := map[string]bool{
		FieldPoints: true, FieldOneLiner: true, FieldEmoji: true,
		FieldTag: true, FieldAffiliations: true, FieldRelevant: true,
		FieldProjects: true, FieldInterestScore: true, FieldPDFPath: true,
	}

	var assignments []string
	revertSummarized := false
	revertDownloaded := false
	for _, f := range fields {
		if !valid[f] {
			return fmt.Errorf("unknown derived field %q", f)
		}
		assignments = append(assignments, f+"=NULL")
		if summaryFieldSet[f] {
			revertSummarized = true
		}
		if f == FieldPDFPath {
			revertDownloaded = true
		}
	}
	if len(assignments) == 0 {
		return nil
	}
	if revertSummarized {
		assignments = append(assignments, "summarized=0")
	}
	if revertDownloaded {
		assignments = append(assignments, "downloaded=0")
	}

	query := "UPDATE papers SET " + strings.Join(assignments, ", ") + " WHERE id=?"
	res, err := s.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("resetting fields on %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("resetting fields: no record %s", id)
	}
	return nil
}

// CountByStage returns how many records sit at each lifecycle stage.
func (s *Store) CountByStage() (map[string]int, error) {
	records, err := s.All()
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, r := range records {
		switch {
		case !r.Downloaded:
			counts["new"]++
		case !r.Summarized:
			counts["downloaded"]++
		case r.Relevant == nil:
			counts["summarized"]++
		case r.Projects == nil:
			counts["classified"]++
		default:
			counts["project-matched"]++
		}
	}
	return counts, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*types.PaperRecord, error) {
	var (
		rec           types.PaperRecord
		published     string
		authorsJSON   string
		downloaded    int
		summarized    int
		pdfPath       sql.NullString
		points        sql.NullString
		oneLiner      sql.NullString
		emoji         sql.NullString
		tag           sql.NullString
		affiliations  sql.NullString
		relevant      sql.NullBool
		projects      sql.NullString
		interestScore sql.NullInt64
	)

	err := row.Scan(&rec.ID, &rec.URL, &published, &rec.Title, &authorsJSON,
		&downloaded, &pdfPath, &summarized, &points, &oneLiner, &emoji, &tag,
		&affiliations, &relevant, &projects, &interestScore)
	if err != nil {
		return nil, err
	}

	if rec.Published, err = time.Parse(time.RFC3339, published); err != nil {
		return nil, fmt.Errorf("parsing published date %q: %w", published, err)
	}
	if err := json.Unmarshal([]byte(authorsJSON), &rec.Authors); err != nil {
		return nil, fmt.Errorf("parsing authors: %w", err)
	}

	rec.Downloaded = downloaded != 0
	rec.Summarized = summarized != 0
	rec.PDFPath = pdfPath.String
	rec.OneLiner = oneLiner.String
	rec.Emoji = emoji.String
	rec.Tag = types.Tag(tag.String)

	if points.Valid {
		if err := json.Unmarshal([]byte(points.String), &rec.Points); err != nil {
			return nil, fmt.Errorf("parsing points: %w", err)
		}
	}
	if affiliations.Valid {
		if err := json.Unmarshal([]byte(affiliations.String), &rec.Affiliations); err != nil {
			return nil, fmt.Errorf("parsing affiliations: %w", err)
		}
	}
	if relevant.Valid {
		v := relevant.Bool
		rec.Relevant = &v
	}
	if projects.Valid {
		ids := []string{}
		if err := json.Unmarshal([]byte(projects.String), &ids); err != nil {
			return nil, fmt.Errorf("parsing projects: %w", err)
		}
		rec.Projects = ids
	}
	if interestScore.Valid {
		v := int(interestScore.Int64)
		rec.InterestScore = &v
	}

	return &rec, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	return boolInt(*b)
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

// nullJSON marshals a slice to JSON, preserving the nil/empty distinction:
// a nil slice is stored as NULL (stage not run), an empty non-nil slice as
// "[]" (stage ran, nothing kept).
func nullJSON(v []string) any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(data)
}
