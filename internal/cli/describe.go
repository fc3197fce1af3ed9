package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/freqkflag/agentrunner/internal/agent"
)

var describeFormat string

var describeCmd = &cobra.Command{
	Use:   "describe <agent>",
	Short: "Describe an agent from the registry",
	Long: `Print an agent's registry entry. The text format shows the well-known
fields; the json format prints the whole entry with sorted keys.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runDescribe,
}

func init() {
	describeCmd.Flags().StringVar(&describeFormat, "format", "text", "Output format (json, text)")
	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	if describeFormat != "text" && describeFormat != "json" {
		return agent.Usagef("invalid --format %q (choose from json, text)", describeFormat)
	}

	reg, _, err := openRegistry(cmd)
	if err != nil {
		return err
	}
	entry, err := reg.Lookup(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if describeFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(entry.Config); err != nil {
			return fmt.Errorf("encoding agent %s: %w", entry.Name, err)
		}
		return nil
	}

	lines := []string{
		"name: " + entry.Name,
		"description: " + entry.Description,
	}
	if len(entry.AllowedHosts) > 0 {
		lines = append(lines, "allowed_hosts: "+strings.Join(entry.AllowedHosts, ", "))
	}
	if len(entry.Tags) > 0 {
		lines = append(lines, "tags: "+strings.Join(entry.Tags, ", "))
	}
	if len(entry.Outputs) > 0 {
		lines = append(lines, "outputs:")
		for _, o := range entry.Outputs {
			lines = append(lines, "  - "+o)
		}
	}
	if entry.StateFile != "" {
		lines = append(lines, "state_file: "+entry.StateFile)
	}
	_, err = fmt.Fprintln(out, strings.Join(lines, "\n"))
	return err
}
