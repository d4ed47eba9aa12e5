package books

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_books_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Book{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

var catalog = []entities.Book{
	{Title: "Things Fall Apart", Author: "Chinua Achebe", Country: "Nigeria", Language: "English", Pages: 209, Year: 1958},
	{Title: "Pride and Prejudice", Author: "Jane Austen", Country: "United Kingdom", Language: "English", Pages: 226, Year: 1813},
	{Title: "Don Quijote De La Mancha", Author: "Miguel de Cervantes", Country: "Spain", Language: "Spanish", Pages: 1056, Year: 1610},
	{Title: "Anna Karenina", Author: "Leo Tolstoy", Country: "Russia", Language: "Russian", Pages: 864, Year: 1877},
	{Title: "War and Peace", Author: "Leo Tolstoy", Country: "Russia", Language: "Russian", Pages: 1296, Year: 1867},
	{Title: "One Thousand and One Nights", Author: "Unknown", Country: "India/Iran/Iraq/Egypt", Language: "Arabic", Pages: 288, Year: 1200},
	{Title: "Pippi Longstocking", Author: "Astrid Lindgren", Country: "Sweden", Language: "Swedish", Pages: 160, Year: 1945},
	{Title: "100% Unreal", Author: "Test_Author", Country: "", Language: "English", Pages: 50, Year: 2001},
}

func seed(t *testing.T, repo *Repository) {
	t.Helper()
	for _, b := range catalog {
		book := b
		_, err := repo.Upsert(context.Background(), &book)
		require.NoError(t, err)
	}
}

func titles(books []entities.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func TestRepository_FilterAll(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	seed(t, repo)

	books, total, err := repo.Filter(context.Background(), Filter{})

	require.NoError(t, err)
	assert.Equal(t, int64(len(catalog)), total)
	assert.Len(t, books, len(catalog))
	assert.Equal(t, "Things Fall Apart", books[0].Title, "catalog order is preserved")
}

func TestRepository_FilterSearch(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	seed(t, repo)
	ctx := context.Background()

	books, total, err := repo.Filter(ctx, Filter{Search: "TOLSTOY"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, []string{"Anna Karenina", "War and Peace"}, titles(books))

	books, _, err = repo.Filter(ctx, Filter{Search: "spanish"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Don Quijote De La Mancha"}, titles(books), "search covers language")

	books, _, err = repo.Filter(ctx, Filter{Search: "100%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"100% Unreal"}, titles(books), "LIKE wildcards are literal")

	books, _, err = repo.Filter(ctx, Filter{Search: "t_a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"100% Unreal"}, titles(books))
}

func TestRepository_FilterFacets(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	seed(t, repo)
	ctx := context.Background()

	books, _, err := repo.Filter(ctx, Filter{Country: "Russia", MinPages: 1001})
	require.NoError(t, err)
	assert.Equal(t, []string{"War and Peace"}, titles(books))

	books, _, err = repo.Filter(ctx, Filter{Language: "English", MinPages: 201, MaxPages: 300})
	require.NoError(t, err)
	assert.Equal(t, []string{"Things Fall Apart", "Pride and Prejudice"}, titles(books))

	books, _, err = repo.Filter(ctx, Filter{MinYear: 1801, MaxYear: 1900})
	require.NoError(t, err)
	assert.Equal(t, []string{"Pride and Prejudice", "Anna Karenina", "War and Peace"}, titles(books))
}

func TestRepository_FilterPagination(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	seed(t, repo)

	books, total, err := repo.Filter(context.Background(), Filter{Offset: 3, Limit: 3})

	require.NoError(t, err)
	assert.Equal(t, int64(len(catalog)), total)
	assert.Equal(t, []string{"Anna Karenina", "War and Peace", "One Thousand and One Nights"}, titles(books))
}

func TestRepository_CountriesAndLanguages(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	seed(t, repo)
	ctx := context.Background()

	countries, err := repo.Countries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"India/Iran/Iraq/Egypt", "Nigeria", "Russia", "Spain", "Sweden", "United Kingdom"}, countries)

	languages, err := repo.Languages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Arabic", "English", "Russian", "Spanish", "Swedish"}, languages)
}

func TestRepository_AssignCover(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	seed(t, repo)
	ctx := context.Background()

	err := repo.AssignCover(ctx, 4, "covers/1700000000000_anna.jpg")
	require.NoError(t, err)

	book, err := repo.GetBookByID(ctx, 4)
	require.NoError(t, err)
	require.NotNil(t, book.CoverRef)
	assert.Equal(t, "covers/1700000000000_anna.jpg", *book.CoverRef)

	other, err := repo.GetBookByID(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, other.CoverRef)

	require.NoError(t, repo.ClearCover(ctx, 4))
	book, err = repo.GetBookByID(ctx, 4)
	require.NoError(t, err)
	assert.Nil(t, book.CoverRef)
}

func TestRepository_AssignCover_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.AssignCover(context.Background(), 999, "covers/x.jpg")
	assert.ErrorIs(t, err, ErrBookNotFound)

	_, err = repo.GetBookByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestRepository_UpsertKeepsCoverRef(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := &entities.Book{Title: "Beloved", Author: "Toni Morrison", Pages: 321, Year: 1987}
	created, err := repo.Upsert(ctx, book)
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, repo.AssignCover(ctx, book.ID, "covers/1_beloved.jpg"))

	update := &entities.Book{Title: "Beloved", Author: "Toni Morrison", Pages: 324, Year: 1987, Country: "United States"}
	created, err = repo.Upsert(ctx, update)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, book.ID, update.ID)

	stored, err := repo.GetBookByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 324, stored.Pages)
	assert.Equal(t, "United States", stored.Country)
	require.NotNil(t, stored.CoverRef)
	assert.Equal(t, "covers/1_beloved.jpg", *stored.CoverRef)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
