package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chatscout/chatscout/internal/chat"
)

var (
	searchChannel   string
	searchUser      string
	searchAfter     string
	searchBefore    string
	searchLimit     int
	searchReactions bool
	searchRefresh   bool
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search messages across the workspace",
	Long: `Search workspace messages with optional channel, user, and date filters.

With no query text and a single --channel, recent channel history is
returned instead of a relevance search. Comma-separate --channel values
to search several channels in parallel.

Examples:
  chatscout search deploy failed
  chatscout search --channel ops --after 2024-01-01 rollback
  chatscout search --channel general,random --user U0123456
  chatscout search --channel ops          # recent history, no query`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		queryStr := strings.Join(args, " ")
		if queryStr == "" && searchChannel == "" && searchUser == "" {
			return fmt.Errorf("a query, --channel, or --user is required")
		}

		eng, err := newEngine()
		if err != nil {
			return err
		}

		result, err := eng.SearchMessages(cmd.Context(), chat.SearchRequest{
			Query:        queryStr,
			Channel:      searchChannel,
			User:         searchUser,
			FromDate:     searchAfter,
			ToDate:       searchBefore,
			Limit:        searchLimit,
			IsRealtime:   searchReactions,
			ForceRefresh: searchRefresh,
		})
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if len(result.Messages) == 0 {
			fmt.Println("No messages found.")
			return nil
		}

		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		outputMessagesTable(result.Messages)
		fmt.Printf("\nShowing %d of %d results for %s\n", len(result.Messages), result.Total, result.Query)
		return nil
	},
}

func outputMessagesTable(messages []chat.Message) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tCHANNEL\tUSER\tMESSAGE")
	fmt.Fprintln(w, "────\t───────\t────\t───────")

	for _, m := range messages {
		date := tsTime(m.TS).Format("2006-01-02 15:04")
		name := m.UserName
		if name == "" {
			name = m.User
		}
		text := truncate(strings.ReplaceAll(m.Text, "\n", " "), 70)
		if m.IsThreadParent {
			text = fmt.Sprintf("%s (+%d replies)", text, m.ReplyCount)
		}
		fmt.Fprintf(w, "%s\t#%s\t%s\t%s\n", date, m.ChannelName, name, text)
	}

	w.Flush()
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchChannel, "channel", "c", "", "channel name or ID (comma-separated for multiple)")
	searchCmd.Flags().StringVarP(&searchUser, "user", "u", "", "only messages from this user (comma-separated for multiple)")
	searchCmd.Flags().StringVar(&searchAfter, "after", "", "only messages after date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchBefore, "before", "", "only messages before date (YYYY-MM-DD)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum results (default 100)")
	searchCmd.Flags().BoolVar(&searchReactions, "reactions", false, "fetch reactions for each result (slower)")
	searchCmd.Flags().BoolVar(&searchRefresh, "refresh", false, "bypass the cached result for this query")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
}
