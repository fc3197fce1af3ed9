package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/freqkflag/agentrunner/internal/config"
	"github.com/freqkflag/agentrunner/internal/registry"
	"github.com/freqkflag/agentrunner/internal/runtime"
	"github.com/freqkflag/agentrunner/internal/toolcheck"
)

var doctorSkipTools bool

func init() {
	doctorCmd.Flags().BoolVar(&doctorSkipTools, "skip-tools", false, "Do not check external tool requirements")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the registry and agent requirements",
	Long: `Validate the registry document against its schema, resolve every agent
without running it, and check that the external tools agents declare under
"requires" are installed at the required versions.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	repoRoot, err := config.RepoRoot(cmd.Context())
	if err != nil {
		return err
	}
	path, err := config.RegistryPath(repoRoot)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Repository: %s\nRegistry:   %s\n\n", repoRoot, path)

	fmt.Fprintln(out, "Schema:")
	result, err := registry.ValidateFile(path)
	if err != nil {
		return err
	}
	if !result.Valid {
		printIssues(out, result.Issues)
		return fmt.Errorf("registry %s failed validation with %d issue(s)", path, len(result.Issues))
	}
	fmt.Fprintln(out, "  [ OK ] valid")

	reg, err := registry.Load(path)
	if err != nil {
		return err
	}

	failures := 0
	fmt.Fprintln(out, "\nAgents:")
	ld := newLoader(cmd, repoRoot)
	for _, e := range reg.List() {
		if _, err := ld.Resolve(cmd.Context(), e.Name, reg); err != nil {
			fmt.Fprintf(out, "  [FAIL] %s: %v\n", e.Name, err)
			failures++
			continue
		}
		fmt.Fprintf(out, "  [ OK ] %s\n", e.Name)
	}

	if !doctorSkipTools {
		fmt.Fprintln(out, "\nTools:")
		checker := &toolcheck.Checker{Executor: runtime.OSExecutor{}, RepoRoot: repoRoot}
		results := checker.CheckRegistry(cmd.Context(), reg)
		if len(results) == 0 {
			fmt.Fprintln(out, "  no requirements declared")
		}
		failures += toolcheck.Report(out, results)
	}

	if failures > 0 {
		return fmt.Errorf("doctor found %d problem(s)", failures)
	}
	fmt.Fprintln(out, "\nAll checks passed.")
	return nil
}

func printIssues(w io.Writer, issues []registry.ValidationIssue) {
	for _, issue := range issues {
		if issue.Path != "" {
			fmt.Fprintf(w, "  [FAIL] %s: %s\n", issue.Path, issue.Message)
		} else {
			fmt.Fprintf(w, "  [FAIL] %s\n", issue.Message)
		}
	}
}
