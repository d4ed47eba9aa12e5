package config

// Default paths for local state
const (
	// DefaultDatabasePath is the default path for the catalog database
	DefaultDatabasePath = "./bookshelf.db"

	// DefaultStorageDir holds the owned-storage buckets
	DefaultStorageDir = "./storage"

	// DefaultCoverCacheDir holds downloaded copies of external covers
	DefaultCoverCacheDir = "./covers-cache"
)
