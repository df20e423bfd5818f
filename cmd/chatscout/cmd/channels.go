package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var channelsJSON bool

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List all visible channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		channels, err := eng.ListChannels(cmd.Context())
		if err != nil {
			return fmt.Errorf("list channels: %w", err)
		}

		if channelsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(channels)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMEMBERS\tPRIVATE")
		fmt.Fprintln(w, "──\t────\t───────\t───────")
		for _, c := range channels {
			private := ""
			if c.IsPrivate {
				private = "yes"
			}
			fmt.Fprintf(w, "%s\t#%s\t%d\t%s\n", c.ID, c.Name, c.NumMembers, private)
		}
		w.Flush()
		fmt.Printf("\n%d channels\n", len(channels))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(channelsCmd)
	channelsCmd.Flags().BoolVar(&channelsJSON, "json", false, "output as JSON")
}
