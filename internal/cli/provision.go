package cli

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"onepercent-quiz-service/internal/config"
	"onepercent-quiz-service/internal/infra/postgres"
)

// NewProvisionCmd creates the next season of a country with placeholder episodes.
func NewProvisionCmd(configPath *string) *cobra.Command {
	var req postgres.ProvisionRequest
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create a new season with empty episodes for a country",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg)
			if cfg.Postgres.URL == "" {
				return errors.New("postgres url not configured")
			}

			db := postgres.OpenBun(cfg.Postgres.URL)
			defer db.Close()

			result, err := postgres.NewCatalog(db).ProvisionSeason(cmd.Context(), req)
			if err != nil {
				return err
			}
			log.Info().
				Str("country", req.CountrySlug).
				Int("season", result.Season).
				Int("episodes", result.Episodes).
				Int("questions", result.Questions).
				Msg("season provisioned")
			return nil
		},
	}
	cmd.Flags().StringVar(&req.CountrySlug, "country", "", "country slug, e.g. uk")
	cmd.Flags().StringVar(&req.CountryName, "name", "", "country display name")
	cmd.Flags().IntVar(&req.Episodes, "episodes", 8, "number of episodes to create")
	cmd.Flags().IntVar(&req.Year, "year", 0, "broadcast year")
	_ = cmd.MarkFlagRequired("country")
	return cmd
}
