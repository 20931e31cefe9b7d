package commands

import (
	"fmt"
	"log/slog"
	"os"
	"superdb/lib/archive"

	"github.com/spf13/cobra"
)

var extractDir string

func init() {
	extractCmd.Flags().StringVar(&extractDir, "dir", ".", "The directory to extract into.")
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(extractCmd)
}

var archiveCmd = &cobra.Command{
	Use:   "archive [path/to/release.zip]",
	Short: "Packs the database and the translations file into a release archive.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := state.config.ReleaseArchive
		if len(args) > 0 {
			out = args[0]
		}
		if state.config.Db.File == "" || state.config.Db.Url != "" {
			return fmt.Errorf("archive needs a local database file")
		}

		// opening and closing folds the write-ahead log into the file
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		err = db.Close()
		if err != nil {
			return err
		}

		files := []string{state.config.Db.File}
		_, err = os.Stat(state.config.TranslationsFile)
		if err == nil {
			files = append(files, state.config.TranslationsFile)
		} else {
			slog.Warn("translations file not found, archiving the database only", "file", state.config.TranslationsFile)
		}

		err = archive.Create(out, files...)
		if err != nil {
			return err
		}
		slog.Info("created release archive", "path", out, "files", files)
		return nil
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract [path/to/release.zip] [--dir <dir>]",
	Short: "Unpacks a release archive to bootstrap the database.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := state.config.ReleaseArchive
		if len(args) > 0 {
			in = args[0]
		}
		written, err := archive.Extract(in, extractDir)
		if err != nil {
			return err
		}
		slog.Info("extracted release archive", "path", in, "files", written)
		return nil
	},
}
