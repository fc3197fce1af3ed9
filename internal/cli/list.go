package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/freqkflag/agentrunner/internal/registry"
)

var (
	listTagFilter string
	listJSON      bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agents",
	Long:  `List every agent in the registry as "name: description", in document order.`,
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listTagFilter, "tag", "", "Only list agents carrying this tag")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry is the JSON shape of one listed agent.
type listEntry struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	reg, _, err := openRegistry(cmd)
	if err != nil {
		return err
	}

	var entries []*registry.Entry
	for _, e := range reg.List() {
		if listTagFilter != "" && !slices.Contains(e.Tags, listTagFilter) {
			continue
		}
		entries = append(entries, e)
	}

	if listJSON {
		return printListJSON(cmd, entries)
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintf(out, "%s: %s\n", e.Name, strings.TrimSpace(e.Description))
	}
	return nil
}

func printListJSON(cmd *cobra.Command, entries []*registry.Entry) error {
	items := make([]listEntry, 0, len(entries))
	for _, e := range entries {
		items = append(items, listEntry{Name: e.Name, Description: strings.TrimSpace(e.Description), Tags: e.Tags})
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling agent list: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
