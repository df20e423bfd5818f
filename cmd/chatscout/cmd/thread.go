package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chatscout/chatscout/internal/chat"
)

var threadJSON bool

var threadCmd = &cobra.Command{
	Use:   "thread <channel> <ts>",
	Short: "Show a full thread: root message and replies",
	Long: `Reconstruct a thread from its channel ID and a message timestamp.

The timestamp may belong to any message in the thread; the root is
located automatically. Examples:

  chatscout thread C0123456789 1700000000.000100
  chatscout thread C0123456789 1700000000.000100 --json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		thread, err := eng.GetThread(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("thread: %w", err)
		}

		if threadJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(thread)
		}

		printThreadMessage(thread.Parent, "")
		for _, reply := range thread.Replies {
			printThreadMessage(reply, "  ")
		}
		fmt.Printf("\n%d replies\n", len(thread.Replies))
		return nil
	},
}

func printThreadMessage(m chat.Message, indent string) {
	name := m.UserName
	if name == "" {
		name = m.User
	}
	stamp := tsTime(m.TS).Format("2006-01-02 15:04")
	fmt.Printf("%s%s  %s\n", indent, stamp, name)
	for _, line := range strings.Split(m.Text, "\n") {
		fmt.Printf("%s  %s\n", indent, line)
	}
	if len(m.Reactions) > 0 {
		var parts []string
		for _, r := range m.Reactions {
			parts = append(parts, fmt.Sprintf(":%s: %d", r.Name, r.Count))
		}
		fmt.Printf("%s  [%s]\n", indent, strings.Join(parts, "  "))
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(threadCmd)
	threadCmd.Flags().BoolVar(&threadJSON, "json", false, "output as JSON")
}
