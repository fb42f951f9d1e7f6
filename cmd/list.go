package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var flags commonFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List Zoom cloud recordings without downloading",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, client, err := loadApp(flags)
			if err != nil {
				return err
			}
			filters, err := buildFilters(cfg, flags)
			if err != nil {
				return err
			}

			recordings, err := client.ListRecordings(cmd.Context(), filters)
			if err != nil {
				return fmt.Errorf("listing recordings: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "START\tTOPIC\tHOST\tASSETS\tBYTES\tUUID")
			for _, rec := range recordings {
				var total int64
				for _, f := range rec.Files {
					total += f.FileSize
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					rec.StartTime.Format("2006-01-02 15:04"),
					rec.Topic,
					rec.HostEmail,
					len(rec.Files),
					total,
					rec.UUID,
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d recordings between %s and %s\n",
				len(recordings),
				filters.From.Format("2006-01-02"),
				filters.To.Format("2006-01-02"),
			)
			return nil
		},
	}

	registerCommonFlags(&flags, cmd.Flags())
	return cmd
}
