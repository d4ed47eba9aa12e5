// Package database provides the data access layer for the application.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup and migrations
//	└── books/           # Catalog queries and cover assignment
//
// Users are managed by the auth service, which works on the same *gorm.DB.
//
// # Usage
//
//	db, err := database.NewDatabase("./bookshelf.db")
//	booksRepo := books.NewRepository(db.DB)
//	items, total, err := booksRepo.Filter(ctx, books.Filter{Search: "tolstoy", Limit: 12})
package database
