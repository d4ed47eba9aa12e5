package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mrlokans/bookshelf/internal/entities"
)

var ErrEmptySeed = errors.New("seed file contains no books")

// SeedRecord is one entry of a catalog seed file. ImageLink is accepted
// for compatibility and ignored: covers come from resolution, not from the
// seed.
type SeedRecord struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Language  string `json:"language"`
	Country   string `json:"country"`
	Pages     int    `json:"pages"`
	Year      int    `json:"year"`
	Link      string `json:"link"`
	ImageLink string `json:"imageLink"`
}

// Upserter stores a book, keyed by title and author.
type Upserter interface {
	Upsert(ctx context.Context, book *entities.Book) (bool, error)
}

// SeedResult counts what an import did.
type SeedResult struct {
	Created int
	Updated int
	Skipped int
}

// ParseSeed decodes a JSON array of seed records. Records without a title
// are dropped.
func ParseSeed(r io.Reader) ([]entities.Book, int, error) {
	var records []SeedRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, 0, fmt.Errorf("decode seed: %w", err)
	}
	if len(records) == 0 {
		return nil, 0, ErrEmptySeed
	}

	books := make([]entities.Book, 0, len(records))
	skipped := 0
	for _, rec := range records {
		title := strings.TrimSpace(rec.Title)
		if title == "" {
			skipped++
			continue
		}
		books = append(books, entities.Book{
			Title:    title,
			Author:   strings.TrimSpace(rec.Author),
			Language: strings.TrimSpace(rec.Language),
			Country:  strings.TrimSpace(rec.Country),
			Pages:    rec.Pages,
			Year:     rec.Year,
			Link:     strings.TrimSpace(rec.Link),
		})
	}
	return books, skipped, nil
}

// Seed imports a seed file into repo. Re-running it updates existing books
// and keeps their assigned covers.
func Seed(ctx context.Context, repo Upserter, r io.Reader) (SeedResult, error) {
	books, skipped, err := ParseSeed(r)
	if err != nil {
		return SeedResult{}, err
	}

	result := SeedResult{Skipped: skipped}
	for i := range books {
		created, err := repo.Upsert(ctx, &books[i])
		if err != nil {
			return result, fmt.Errorf("import %q: %w", books[i].Title, err)
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	return result, nil
}
