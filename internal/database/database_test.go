package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/entities"
)

func TestNewDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bookshelf.db")

	db, err := NewQuietDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Ping(context.Background()))
	assert.True(t, db.DB.Migrator().HasTable(&entities.Book{}))
	assert.True(t, db.DB.Migrator().HasTable(&entities.User{}))
}

func TestNewDatabase_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bookshelf.db")

	db, err := NewQuietDatabase(dbPath)
	require.NoError(t, err)
	ref := "covers/1_moby.jpg"
	require.NoError(t, db.DB.Create(&entities.Book{Title: "Moby Dick", Author: "Herman Melville", CoverRef: &ref}).Error)
	require.NoError(t, db.Close())

	db, err = NewQuietDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	var book entities.Book
	require.NoError(t, db.DB.Where("title = ?", "Moby Dick").First(&book).Error)
	require.NotNil(t, book.CoverRef)
	assert.Equal(t, ref, *book.CoverRef)
}

func TestClose_PingFails(t *testing.T) {
	db, err := NewQuietDatabase(filepath.Join(t.TempDir(), "bookshelf.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.Error(t, db.Ping(context.Background()))
}
