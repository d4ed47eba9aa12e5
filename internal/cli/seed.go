package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
)

// SeedCommand imports the catalog from a JSON file.
type SeedCommand struct {
	FilePath     string
	DatabasePath string
}

func NewSeedCommand() *SeedCommand {
	return &SeedCommand{}
}

func (cmd *SeedCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to the catalog JSON file (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s seed -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import books from a JSON array of {title, author, language, country, pages, year, link}.\n")
		fmt.Fprintf(os.Stderr, "Existing books (same title and author) are updated and keep their covers.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	return nil
}

func (cmd *SeedCommand) Run() error {
	file, err := os.Open(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer file.Close()

	db, err := database.NewQuietDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := catalog.Seed(context.Background(), books.NewRepository(db.DB), file)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %s into %s\n", cmd.FilePath, cmd.DatabasePath)
	fmt.Printf("  Created: %d\n", result.Created)
	fmt.Printf("  Updated: %d\n", result.Updated)
	if result.Skipped > 0 {
		fmt.Printf("  Skipped: %d (missing title)\n", result.Skipped)
	}
	return nil
}
