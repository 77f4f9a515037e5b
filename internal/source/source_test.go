package source_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/deidaraiorek/gogol/internal/errors"
	"github.com/deidaraiorek/gogol/internal/source"
)

func TestHashURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"", "d41d8cd98f00b204e9800998ecf8427e"},
		{"https://example.com", "c984d06aafbecf6bc55569f964148ea3"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := source.HashURL(tt.url); got != tt.expected {
				t.Errorf("HashURL(%q) = %s, want %s", tt.url, got, tt.expected)
			}
		})
	}

	doc := source.RawDocument{URL: "https://example.com"}
	if doc.Hash() != source.HashURL(doc.URL) {
		t.Error("Hash() should match HashURL(url)")
	}
}

func TestValidate(t *testing.T) {
	if err := (source.RawDocument{URL: "a", Title: "", Text: ""}).Validate(); err != nil {
		t.Errorf("Validate() on minimal document = %v", err)
	}
	err := (source.RawDocument{URL: "   ", Title: "t", Text: "x"}).Validate()
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Validate() on blank url = %v, want ErrInvalidInput", err)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func TestJSONDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writeFile(t, dir, "b.json", `{"url": "https://b", "title": "B", "text": "java tutorial", "links": ["https://a"]}`)
	writeFile(t, dir, "a.json", `{"url": "https://a", "title": "A", "text": "python python tutorial"}`)
	writeFile(t, dir, "broken.json", `{"url": `)
	writeFile(t, dir, "notext.json", `{"url": "https://c", "title": "C"}`)
	writeFile(t, dir, "readme.txt", "ignored")

	src := source.NewJSONDir(dir)

	names, err := src.Names(ctx)
	if err != nil {
		t.Fatalf("Names() error = %v", err)
	}
	expected := []string{"a.json", "b.json", "broken.json", "notext.json"}
	if !reflect.DeepEqual(names, expected) {
		t.Errorf("Names() = %v, want %v", names, expected)
	}

	doc, err := src.Load(ctx, "b.json")
	if err != nil {
		t.Fatalf("Load(b.json) error = %v", err)
	}
	want := source.RawDocument{URL: "https://b", Title: "B", Text: "java tutorial", Links: []string{"https://a"}}
	if !reflect.DeepEqual(doc, want) {
		t.Errorf("Load(b.json) = %+v, want %+v", doc, want)
	}

	for _, name := range []string{"broken.json", "notext.json"} {
		if _, err := src.Load(ctx, name); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("Load(%s) error = %v, want ErrInvalidInput", name, err)
		}
	}
}

func TestJSONDirMissingDirectory(t *testing.T) {
	names, err := source.NewJSONDir(filepath.Join(t.TempDir(), "nope")).Names(context.Background())
	if err != nil {
		t.Fatalf("Names() error = %v", err)
	}
	if len(names) != 0 {
		t.Errorf("Expected no names, got %v", names)
	}
}

func createSpiderDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spider.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("Failed to open spider db: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`
	CREATE TABLE pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT UNIQUE NOT NULL,
		title TEXT,
		description TEXT,
		content TEXT,
		status_code INTEGER,
		crawled_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE links (
		from_url TEXT,
		to_url TEXT,
		PRIMARY KEY (from_url, to_url)
	);
	INSERT INTO pages (url, title, description, content, status_code) VALUES
		('https://go.dev', 'Go', 'The Go language', 'Build simple software', 200),
		('https://gone.example', 'Gone', NULL, 'not found', 404),
		('https://python.org', 'Python', NULL, 'Python tutorial', 200);
	INSERT INTO links (from_url, to_url) VALUES
		('https://go.dev', 'https://pkg.go.dev'),
		('https://go.dev', 'https://go.dev/doc');
	`)
	if err != nil {
		t.Fatalf("Failed to seed spider db: %v", err)
	}
	return path
}

func TestSpiderDB(t *testing.T) {
	ctx := context.Background()

	src, err := source.NewSpiderDB(createSpiderDB(t))
	if err != nil {
		t.Fatalf("NewSpiderDB() error = %v", err)
	}
	defer src.Close()

	names, err := src.Names(ctx)
	if err != nil {
		t.Fatalf("Names() error = %v", err)
	}
	if !reflect.DeepEqual(names, []string{"1", "3"}) {
		t.Errorf("Names() = %v, want [1 3]", names)
	}

	doc, err := src.Load(ctx, "1")
	if err != nil {
		t.Fatalf("Load(1) error = %v", err)
	}
	want := source.RawDocument{
		URL:   "https://go.dev",
		Title: "Go",
		Text:  "The Go language\nBuild simple software",
		Links: []string{"https://go.dev/doc", "https://pkg.go.dev"},
	}
	if !reflect.DeepEqual(doc, want) {
		t.Errorf("Load(1) = %+v, want %+v", doc, want)
	}

	if _, err := src.Load(ctx, "abc"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Load(abc) error = %v, want ErrInvalidInput", err)
	}
}

func TestOpen(t *testing.T) {
	jsonSrc, err := source.Open(source.KindJSONDir, t.TempDir())
	if err != nil {
		t.Fatalf("Open(jsondir) error = %v", err)
	}
	if _, ok := jsonSrc.(*source.JSONDir); !ok {
		t.Errorf("Open(jsondir) = %T, want *source.JSONDir", jsonSrc)
	}

	spiderSrc, err := source.Open(source.KindSpiderDB, createSpiderDB(t))
	if err != nil {
		t.Fatalf("Open(spider) error = %v", err)
	}
	spider, ok := spiderSrc.(*source.SpiderDB)
	if !ok {
		t.Fatalf("Open(spider) = %T, want *source.SpiderDB", spiderSrc)
	}
	spider.Close()

	if _, err := source.Open("kafka", ""); !errors.Is(err, apperrors.ErrUnsupportedOption) {
		t.Errorf("Open(kafka) error = %v, want ErrUnsupportedOption", err)
	}
}

func TestSpiderDBNullTitle(t *testing.T) {
	ctx := context.Background()
	path := createSpiderDB(t)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("Failed to open spider db: %v", err)
	}
	_, err = db.Exec(`INSERT INTO pages (url, title, description, content, status_code)
		VALUES ('https://untitled.example', NULL, NULL, 'bare page', 200)`)
	db.Close()
	if err != nil {
		t.Fatalf("Failed to insert page: %v", err)
	}

	src, err := source.NewSpiderDB(path)
	if err != nil {
		t.Fatalf("NewSpiderDB() error = %v", err)
	}
	defer src.Close()

	doc, err := src.Load(ctx, "4")
	if err != nil {
		t.Fatalf("Load(4) error = %v", err)
	}
	if doc.URL != "https://untitled.example" || doc.Title != "" || doc.Text != "bare page" {
		t.Errorf("Load(4) = %+v, want empty title and content text", doc)
	}
	if len(doc.Links) != 0 {
		t.Errorf("Links = %v, want none", doc.Links)
	}
}
