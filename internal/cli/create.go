package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/freqkflag/agentrunner/internal/config"
	"github.com/freqkflag/agentrunner/internal/registry"
	"github.com/freqkflag/agentrunner/internal/scaffold"
)

var (
	createDescription string
	createTags        []string
)

func init() {
	createCmd.Flags().StringVar(&createDescription, "description", "", "Description recorded in the registry")
	createCmd.Flags().StringSliceVar(&createTags, "tag", nil, "Tags recorded in the registry (repeatable, default custom)")
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Scaffold a new exec-plugin agent",
	Long: `Write a shell program to agents/bin/<name>.sh and register it in the
registry under <name> with module_path pointing at it. The registry is
created when it does not exist yet.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	repoRoot, err := config.RepoRoot(cmd.Context())
	if err != nil {
		return err
	}
	regPath, err := config.RegistryPath(repoRoot)
	if errors.Is(err, registry.ErrNotFound) {
		regPath, err = filepath.Join(repoRoot, registry.DefaultDir, registry.DefaultFileNames[0]), nil
	}
	if err != nil {
		return err
	}

	data := scaffold.NewData(args[0], createDescription)
	if len(createTags) > 0 {
		data.Tags = createTags
	}
	result, err := scaffold.Generate(repoRoot, regPath, data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Created {
		fmt.Fprintf(out, "Created %s\n", result.Registry)
	}
	fmt.Fprintf(out, "Wrote %s\n", result.Program)
	fmt.Fprintf(out, "Registered %s in %s\n", data.Name, result.Registry)
	fmt.Fprintf(out, "\nTry it: %s run %s\n", cmd.Root().Name(), data.Name)
	return nil
}
