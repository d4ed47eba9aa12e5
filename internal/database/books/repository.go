// Package books provides database operations for the book catalog.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	page, total, err := repo.Filter(ctx, books.Filter{Country: "Russia", Limit: 20})
//	err = repo.AssignCover(ctx, 42, "covers/1700000000000_anna.jpg")
package books

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

var ErrBookNotFound = errors.New("book not found")

// Filter narrows the catalog. Zero values mean "no constraint"; a zero
// Limit returns every matching row.
type Filter struct {
	Search   string
	Country  string
	Language string
	MinPages int
	MaxPages int
	MinYear  int
	MaxYear  int
	Offset   int
	Limit    int
}

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *Repository) filtered(ctx context.Context, f Filter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&entities.Book{})

	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		q = q.Where(
			`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(author) LIKE ? ESCAPE '\' OR LOWER(language) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}
	if f.Country != "" {
		q = q.Where("country = ?", f.Country)
	}
	if f.Language != "" {
		q = q.Where("language = ?", f.Language)
	}
	if f.MinPages > 0 {
		q = q.Where("pages >= ?", f.MinPages)
	}
	if f.MaxPages > 0 {
		q = q.Where("pages <= ?", f.MaxPages)
	}
	if f.MinYear != 0 {
		q = q.Where("year >= ?", f.MinYear)
	}
	if f.MaxYear != 0 {
		q = q.Where("year <= ?", f.MaxYear)
	}
	return q
}

// Filter returns one page of matching books in catalog order and the total
// number of matches.
func (r *Repository) Filter(ctx context.Context, f Filter) ([]entities.Book, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	q := r.filtered(ctx, f).Order("id ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var books []entities.Book
	if err := q.Find(&books).Error; err != nil {
		return nil, 0, fmt.Errorf("query books: %w", err)
	}
	return books, total, nil
}

// Countries returns the distinct non-empty countries, sorted.
func (r *Repository) Countries(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "country")
}

// Languages returns the distinct non-empty languages, sorted.
func (r *Repository) Languages(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "language")
}

func (r *Repository) distinct(ctx context.Context, column string) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).Model(&entities.Book{}).
		Where(column+" <> ''").
		Distinct(column).
		Order(column+" ASC").
		Pluck(column, &values).Error
	if err != nil {
		return nil, fmt.Errorf("list %s values: %w", column, err)
	}
	return values, nil
}

// GetBookByID retrieves a book by its ID.
func (r *Repository) GetBookByID(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// AssignCover stores path as the book's cover reference.
func (r *Repository) AssignCover(ctx context.Context, id uint, path string) error {
	result := r.db.WithContext(ctx).Model(&entities.Book{}).Where("id = ?", id).Update("cover_ref", path)
	if result.Error != nil {
		return fmt.Errorf("update cover ref: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// ClearCover removes the book's cover reference.
func (r *Repository) ClearCover(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&entities.Book{}).Where("id = ?", id).Update("cover_ref", nil)
	if result.Error != nil {
		return fmt.Errorf("clear cover ref: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Upsert creates the book or updates the catalog fields of the existing
// book with the same title and author. An existing cover reference is kept.
// Returns true when a new row was created.
func (r *Repository) Upsert(ctx context.Context, book *entities.Book) (bool, error) {
	var existing entities.Book
	err := r.db.WithContext(ctx).Where("title = ? AND author = ?", book.Title, book.Author).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
			return false, fmt.Errorf("create book: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("find book: %w", err)
	}

	err = r.db.WithContext(ctx).Model(&existing).Updates(map[string]any{
		"language": book.Language,
		"country":  book.Country,
		"pages":    book.Pages,
		"year":     book.Year,
		"link":     book.Link,
	}).Error
	if err != nil {
		return false, fmt.Errorf("update book: %w", err)
	}

	book.ID = existing.ID
	book.CoverRef = existing.CoverRef
	return false, nil
}

// Count returns the number of books in the catalog.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Count(&count).Error
	return count, err
}
