package entities

import (
	"time"

	"gorm.io/gorm"
)

// Book is a catalog entry. CoverRef points at an image in owned storage;
// nil means no cover has been assigned.
type Book struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"index;size:512;uniqueIndex:idx_book_title_author" json:"title"`
	Author    string         `gorm:"index;size:256;uniqueIndex:idx_book_title_author" json:"author"`
	Language  string         `gorm:"index;size:64" json:"language"`
	Country   string         `gorm:"index;size:128" json:"country"`
	Pages     int            `gorm:"index" json:"pages"`
	Year      int            `gorm:"index" json:"year"`
	Link      string         `gorm:"size:2048" json:"link,omitempty"`
	CoverRef  *string        `gorm:"size:1024" json:"cover_ref"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
