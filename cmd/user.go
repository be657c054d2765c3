package cmd

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/backstage/services/inventory/config"
	"example.com/backstage/services/inventory/internal/database"
	"example.com/backstage/services/inventory/internal/errs"
	"example.com/backstage/services/inventory/internal/models"
	"example.com/backstage/services/inventory/internal/repository"
	"example.com/backstage/services/inventory/internal/roles"
)

var (
	userUsername  string
	userEmail     string
	userElevated  bool
	userSuperuser bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account with a fresh access token",
	RunE:  runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&userUsername, "username", "", "display name of the account")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "unique email of the account")
	userCreateCmd.Flags().BoolVar(&userElevated, "elevated", false, "grant the manager capability flag")
	userCreateCmd.Flags().BoolVar(&userSuperuser, "superuser", false, "grant the administrator capability flag")
	userCreateCmd.MarkFlagRequired("username")
	userCreateCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}
	configureLogging(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	repo := repository.NewRepository(db)
	user := &models.User{
		Username:    userUsername,
		Email:       userEmail,
		AccessToken: uuid.NewString(),
		Elevated:    userElevated,
		Superuser:   userSuperuser,
	}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		if errs.IsKind(err, errs.KindConflict) {
			log.Error().Str("email", userEmail).Msg("A user with this email already exists")
		}
		return err
	}

	role := roles.Resolve(user.Elevated, user.Superuser)
	log.Info().
		Uint("user_id", user.ID).
		Str("email", user.Email).
		Str("role", string(role)).
		Str("access_token", user.AccessToken).
		Msg("User created")
	return nil
}
