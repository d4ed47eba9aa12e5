package entrypoint

import (
	"fmt"
	"log"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/metadata"
	"github.com/mrlokans/bookshelf/internal/storage"
)

// Components are the services shared by the HTTP server and the CLI.
type Components struct {
	Books    *books.Repository
	Catalog  *catalog.Service
	Bucket   *storage.Bucket
	Signer   *storage.URLSigner
	Store    *storage.Store
	Resolver *covers.Resolver
}

// NewComponents wires the catalog, owned storage and cover resolution on
// top of db.
func NewComponents(cfg *config.Config, db *database.Database) (*Components, error) {
	repo := books.NewRepository(db.DB)

	bucket, err := storage.NewBucket(cfg.Storage.Dir, cfg.Storage.Bucket, cfg.Storage.MaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("open storage bucket: %w", err)
	}
	signer, err := storage.NewURLSigner(storage.SignerConfig{
		Mode:    storage.URLMode(cfg.Storage.URLMode),
		BaseURL: cfg.Storage.PublicBaseURL,
		Secret:  cfg.Storage.SigningSecret,
		TTL:     cfg.Storage.SignedURLTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("configure media URLs: %w", err)
	}
	store := storage.NewStore(bucket, signer, repo, cfg.Storage.CoverPrefix)
	log.Printf("Storage bucket %q at %s (%s URLs)", bucket.Name(), cfg.Storage.Dir, signer.Mode())

	mirror := covers.NewStaticMirror(cfg.Covers.MirrorBaseURL, cfg.Covers.ProbeTimeout)
	search := metadata.NewGoogleBooksClient(metadata.GoogleBooksConfig{
		BaseURL:           cfg.GoogleBooks.BaseURL,
		APIKey:            cfg.GoogleBooks.APIKey,
		RequestsPerSecond: cfg.GoogleBooks.RequestsPerSecond,
		Burst:             cfg.GoogleBooks.Burst,
		MaxResults:        cfg.GoogleBooks.MaxResults,
		Timeout:           cfg.Covers.ProbeTimeout,
	})
	resolver := covers.NewResolver(covers.DefaultRegistry(store, mirror, search))
	resolver.SetProbeTimeout(cfg.Covers.ProbeTimeout)

	return &Components{
		Books:    repo,
		Catalog:  catalog.NewService(repo),
		Bucket:   bucket,
		Signer:   signer,
		Store:    store,
		Resolver: resolver,
	}, nil
}
