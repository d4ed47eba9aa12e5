package catalog

import (
	"context"
	"fmt"

	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// Repository is the storage the catalog reads from.
type Repository interface {
	Filter(ctx context.Context, f books.Filter) ([]entities.Book, int64, error)
	Countries(ctx context.Context) ([]string, error)
	Languages(ctx context.Context) ([]string, error)
}

// Page is one page of the filtered catalog.
type Page struct {
	Items      []covers.Item `json:"items"`
	Total      int64         `json:"total"`
	TotalPages int           `json:"total_pages"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	Countries  []string      `json:"countries"`
	Languages  []string      `json:"languages"`
}

// Service serves catalog pages.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Page runs q against the catalog. The requested page number is clamped to
// the available pages and the page size is normalized.
func (s *Service) Page(ctx context.Context, q Query) (Page, error) {
	pages, err := ParsePagesRange(q.PagesRange)
	if err != nil {
		return Page{}, err
	}
	years, err := ParseCentury(q.Century)
	if err != nil {
		return Page{}, err
	}

	filter := books.Filter{
		Search:   q.Search,
		Country:  q.Country,
		Language: q.Language,
		MinPages: pages.Min,
		MaxPages: pages.Max,
		MinYear:  years.Min,
		MaxYear:  years.Max,
	}

	// Count first so an out-of-range page can be clamped.
	countOnly := filter
	countOnly.Limit = 1
	_, total, err := s.repo.Filter(ctx, countOnly)
	if err != nil {
		return Page{}, fmt.Errorf("count catalog: %w", err)
	}

	perPage := NormalizePerPage(q.PerPage)
	totalPages := TotalPages(total, perPage)
	page := ClampPage(q.Page, totalPages)

	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage
	rows, total, err := s.repo.Filter(ctx, filter)
	if err != nil {
		return Page{}, fmt.Errorf("query catalog: %w", err)
	}

	countries, err := s.repo.Countries(ctx)
	if err != nil {
		return Page{}, err
	}
	languages, err := s.repo.Languages(ctx)
	if err != nil {
		return Page{}, err
	}

	items := make([]covers.Item, len(rows))
	for i := range rows {
		items[i] = ToItem(rows[i])
	}

	return Page{
		Items:      items,
		Total:      total,
		TotalPages: TotalPages(total, perPage),
		Page:       page,
		PerPage:    perPage,
		Countries:  countries,
		Languages:  languages,
	}, nil
}

// ToItem converts a stored book into the item handed to cover resolution.
func ToItem(b entities.Book) covers.Item {
	return covers.Item{
		ID:       b.ID,
		Title:    b.Title,
		Author:   b.Author,
		Language: b.Language,
		Country:  b.Country,
		Pages:    b.Pages,
		Year:     b.Year,
		Link:     b.Link,
		CoverRef: b.CoverRef,
	}
}
