// Package extract implements the extract command which prints the text of a PDF bill.
package extract

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/myrjola/billeffect/internal/envstruct"
	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/ingest"
	"github.com/myrjola/billeffect/internal/pdfextract"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "pdf",
	Title: "PDF operations",
}

type config struct {
	ReductoAPIKey  string `env:"REDUCTO_API_KEY" envDefault:""`
	ReductoBaseURL string `env:"REDUCTO_BASE_URL" envDefault:""`
}

func Command(logger func() *slog.Logger, lookupEnv func(string) (string, bool)) *cobra.Command {
	return &cobra.Command{
		Use:     "extract [pdf]",
		GroupID: Group.ID,
		Short:   "Extract the text of a PDF",
		Long:    `Extracts the text of a PDF bill with Reducto. Needs REDUCTO_API_KEY.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config
			if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
				return errors.Wrap(err, "populate config")
			}
			client, err := pdfextract.New(pdfextract.Config{
				APIKey:            cfg.ReductoAPIKey,
				BaseURL:           cfg.ReductoBaseURL,
				RequestsPerSecond: 0,
				HTTPClient:        nil,
			}, logger())
			if err != nil {
				return errors.Wrap(err, "create pdf extractor")
			}

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrap(err, "read pdf")
			}
			if len(data) > ingest.MaxFileSize {
				return errors.Wrap(ingest.ErrFileTooLarge, "read pdf", slog.String("path", path))
			}
			result, err := client.Extract(cmd.Context(), filepath.Base(path), data)
			if err != nil {
				return errors.Wrap(err, "extract pdf", slog.String("path", path))
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Text)
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d pages\n", result.PageCount)
			return nil
		},
	}
}
