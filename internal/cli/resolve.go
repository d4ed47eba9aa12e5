package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entrypoint"
)

// ResolveCommand resolves covers for one catalog page and prints them.
type ResolveCommand struct {
	Query  catalog.Query
	config *config.Config
	out    io.Writer
}

func NewResolveCommand(cfg *config.Config) *ResolveCommand {
	return &ResolveCommand{config: cfg, out: os.Stdout}
}

func (cmd *ResolveCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)

	fs.StringVar(&cmd.Query.Search, "search", "", "Search title, author or language")
	fs.StringVar(&cmd.Query.Country, "country", "", "Only books from this country")
	fs.StringVar(&cmd.Query.Language, "language", "", "Only books in this language")
	fs.StringVar(&cmd.Query.PagesRange, "pages", "", "Page count range, e.g. 101-200 or 501+")
	fs.StringVar(&cmd.Query.Century, "century", "", "Publication century, e.g. \"19th century\"")
	fs.IntVar(&cmd.Query.Page, "page", 1, "Page number")
	fs.IntVar(&cmd.Query.PerPage, "per-page", catalog.DefaultPerPage, "Books per page (12, 20, 50 or 100)")
	fs.StringVar(&cmd.config.Database.Path, "db", cmd.config.Database.Path, "Path to the database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s resolve [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Resolve covers for one catalog page and print the items as JSON.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// ResolveOutput is what the command prints.
type ResolveOutput struct {
	Page       int                   `json:"page"`
	TotalPages int                   `json:"total_pages"`
	Total      int64                 `json:"total"`
	Generation uint64                `json:"generation"`
	Items      []covers.ResolvedItem `json:"items"`
}

func (cmd *ResolveCommand) Run() error {
	db, err := database.NewQuietDatabase(cmd.config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	components, err := entrypoint.NewComponents(cmd.config, db)
	if err != nil {
		return err
	}

	ctx := context.Background()
	page, err := components.Catalog.Page(ctx, cmd.Query)
	if err != nil {
		return err
	}

	result := covers.NewCoordinator(components.Resolver).Submit(ctx, page.Items)
	items := result.Items
	if items == nil {
		items = []covers.ResolvedItem{}
	}

	enc := json.NewEncoder(cmd.out)
	enc.SetIndent("", "  ")
	return enc.Encode(ResolveOutput{
		Page:       page.Page,
		TotalPages: page.TotalPages,
		Total:      page.Total,
		Generation: result.Generation,
		Items:      items,
	})
}
