package commands

import (
	"log/slog"
	"os"
	"superdb/internal/ingest"
	"superdb/internal/telemetry"

	"github.com/spf13/cobra"
)

var (
	cardsStart        int64
	cardsIDs          []int64
	forceTranslations bool
)

func init() {
	cardsCmd.Flags().Int64Var(&cardsStart, "start", 0, "The card id to start at, by default the scan resumes after the last stored card.")
	cardsCmd.Flags().Int64SliceVar(&cardsIDs, "ids", nil, "Scrape only these card ids.")
	translationsCmd.Flags().BoolVar(&forceTranslations, "force", false, "Scrape the translations even if the file exists.")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(cardsCmd)
	rootCmd.AddCommand(setsCmd)
	rootCmd.AddCommand(banlistsCmd)
	rootCmd.AddCommand(translationsCmd)
}

// finish prints the statistics and records the exit code.
func finish(service *ingest.Service, stats ingest.Stats, err error) error {
	stats = service.Finish(stats)
	renderRunStats(os.Stdout, stats)
	state.exitCode = ingest.ExitCode(stats, err)
	return err
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Scrapes translations if missing, then banlists, sets and new cards.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), nil, func(service *ingest.Service) error {
			stats, err := service.Run(cmd.Context())
			return finish(service, stats, err)
		})
	},
}

var cardsCmd = &cobra.Command{
	Use:   "cards [--start <id>] [--ids <id,id,...>]",
	Short: "Scrapes cards after the last stored one, or the given ids.",
	RunE: func(cmd *cobra.Command, args []string) error {
		edit := func(opts *ingest.Options) {
			if cardsStart > 0 {
				opts.StartID = cardsStart
			}
			opts.IDs = cardsIDs
		}
		return withService(cmd.Context(), edit, func(service *ingest.Service) error {
			translations, err := service.Translations(cmd.Context())
			if err != nil {
				return finish(service, ingest.Stats{}, err)
			}
			cards, err := service.Cards(cmd.Context(), translations)
			return finish(service, ingest.Stats{Cards: cards}, err)
		})
	},
}

var setsCmd = &cobra.Command{
	Use:   "sets",
	Short: "Scrapes the sets of every locale that are not stored yet.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), nil, func(service *ingest.Service) error {
			sets, err := service.Sets(cmd.Context())
			return finish(service, ingest.Stats{Sets: sets}, err)
		})
	},
}

var banlistsCmd = &cobra.Command{
	Use:   "banlists",
	Short: "Scrapes the banlists of every region that are not stored yet.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), nil, func(service *ingest.Service) error {
			banlists, err := service.Banlists(cmd.Context())
			return finish(service, ingest.Stats{Banlists: banlists}, err)
		})
	},
}

var translationsCmd = &cobra.Command{
	Use:   "translations [--force]",
	Short: "Scrapes the vocabulary of every locale into the translations file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		opts := state.config.ingestOptions()
		opts.ForceTranslations = forceTranslations

		// translations never touch the database
		service := ingest.NewService(client, nil, opts, telemetry.SlogAPI{})
		m, err := service.Translations(cmd.Context())
		if err != nil {
			return err
		}
		slog.Info("translations ready", "file", opts.TranslationsFile, "locales", m.Locales())
		return nil
	},
}
