package source

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/deidaraiorek/gogol/internal/errors"
)

// SpiderDB reads pages straight from the crawler's sqlite database.
type SpiderDB struct {
	db *sql.DB
}

func NewSpiderDB(dbPath string) (*SpiderDB, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open spider database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to spider database: %w", err)
	}

	return &SpiderDB{db: db}, nil
}

func (sdb *SpiderDB) Close() error {
	return sdb.db.Close()
}

// Names returns the ids of successfully fetched pages, in crawl order.
func (sdb *SpiderDB) Names(ctx context.Context) ([]string, error) {
	rows, err := sdb.db.QueryContext(ctx,
		"SELECT id FROM pages WHERE COALESCE(status_code, 200) BETWEEN 200 AND 299 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning page id: %w", err)
		}
		names = append(names, strconv.FormatInt(id, 10))
	}
	return names, rows.Err()
}

func (sdb *SpiderDB) Load(ctx context.Context, name string) (RawDocument, error) {
	id, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		return RawDocument{}, apperrors.Input("page id %q is not a number", name)
	}

	var url string
	var title, description, content sql.NullString
	err = sdb.db.QueryRowContext(ctx,
		"SELECT url, title, description, content FROM pages WHERE id = ?",
		id,
	).Scan(&url, &title, &description, &content)
	if err != nil {
		return RawDocument{}, fmt.Errorf("loading page %d: %w", id, err)
	}

	links, err := sdb.links(ctx, url)
	if err != nil {
		return RawDocument{}, err
	}

	var text []string
	for _, part := range []sql.NullString{description, content} {
		if part.Valid && part.String != "" {
			text = append(text, part.String)
		}
	}

	doc := RawDocument{
		URL:   url,
		Title: title.String,
		Text:  strings.Join(text, "\n"),
		Links: links,
	}
	if err := doc.Validate(); err != nil {
		return RawDocument{}, fmt.Errorf("page %d: %w", id, err)
	}
	return doc, nil
}

func (sdb *SpiderDB) links(ctx context.Context, fromURL string) ([]string, error) {
	rows, err := sdb.db.QueryContext(ctx,
		"SELECT to_url FROM links WHERE from_url = ? ORDER BY to_url",
		fromURL,
	)
	if err != nil {
		return nil, fmt.Errorf("loading links of %s: %w", fromURL, err)
	}
	defer rows.Close()

	var links []string
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}
