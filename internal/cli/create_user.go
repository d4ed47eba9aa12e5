package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
)

// CreateUserCommand creates a local account.
type CreateUserCommand struct {
	Username string
	Email    string
	Password string
	Tier     int
	config   config.Auth
	dbPath   string
}

// NewCreateUserCommand takes the auth settings (bcrypt cost) and database
// path from the application config.
func NewCreateUserCommand(cfg *config.Config) *CreateUserCommand {
	return &CreateUserCommand{config: cfg.Auth, dbPath: cfg.Database.Path}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", "", "Username (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password, at least 12 characters (required)")
	fs.IntVar(&cmd.Tier, "tier", 0, "Access tier; users at or above AUTH_OVERRIDE_TIER may override covers")
	fs.StringVar(&cmd.dbPath, "db", cmd.dbPath, "Path to the database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user -username <name> -email <email> -password <password> [-tier N]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Username == "" || cmd.Email == "" || cmd.Password == "" {
		return fmt.Errorf("-username, -email and -password are required")
	}
	return nil
}

func (cmd *CreateUserCommand) Run() error {
	db, err := database.NewQuietDatabase(cmd.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	service := auth.NewService(db.DB, cmd.config)
	user, err := service.CreateUser(context.Background(), cmd.Username, cmd.Email, cmd.Password, cmd.Tier)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("Created user %q (id %d, tier %d)\n", user.Username, user.ID, user.Tier)
	if user.Tier >= cmd.config.OverrideTier {
		fmt.Println("This user can override covers.")
	}
	return nil
}
