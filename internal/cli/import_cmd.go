package cli

import (
	"errors"
	"fmt"

	"github.com/dailyreports/importer/internal/core"
	"github.com/spf13/cobra"
)

func newImportCmd(app *App) *cobra.Command {
	var file string
	var truncate bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a daily report CSV (UTF-8, UTF-8 with BOM or Shift-JIS)",
		Long: `Import reads a daily report CSV and inserts one row per valid record.

Rows with a missing date or employee, or an unparseable time or minute
value, are skipped and counted. Importing the same file twice creates
duplicate rows; use --truncate to replace the table contents instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := core.CheckFile(file); err != nil {
				if errors.Is(err, core.ErrFileNotFound) {
					return fmt.Errorf("CSV not found: %s", file)
				}
				return err
			}

			store, err := app.OpenStore(ctx)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer store.Close()

			svc := core.NewService(store, app.Config)
			summary, err := svc.ImportFile(ctx, file, core.ImportOptions{Truncate: truncate})

			out := cmd.OutOrStdout()
			if summary.Truncated {
				fmt.Fprintf(out, "[%s] truncated (restart identity)\n", core.TableName)
			}
			if err != nil {
				if errors.Is(err, core.ErrFileNotFound) {
					return fmt.Errorf("CSV not found: %s", file)
				}
				if summary.Total > 0 {
					fmt.Fprintf(out, "Imported: inserted=%d, skipped=%d\n", summary.Inserted, summary.Skipped)
				}
				return err
			}

			fmt.Fprintf(out, "Imported: inserted=%d, skipped=%d\n", summary.Inserted, summary.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the CSV file")
	cmd.Flags().BoolVar(&truncate, "truncate", false, "Empty the table and restart ids before importing")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
