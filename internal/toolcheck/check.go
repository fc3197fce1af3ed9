package toolcheck

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/freqkflag/agentrunner/internal/platform"
	"github.com/freqkflag/agentrunner/internal/registry"
	"github.com/freqkflag/agentrunner/internal/runtime"
)

// Status is the outcome of one requirement check.
type Status int

const (
	OK Status = iota
	Missing
	Outdated
	Unknown // installed, but the version could not be determined
)

func (s Status) String() string {
	switch s {
	case OK:
		return " OK "
	case Missing:
		return "MISS"
	case Outdated:
		return "OLD "
	}
	return "WARN"
}

// Result describes one checked requirement.
type Result struct {
	Agent       string
	Requirement registry.Requirement
	Path        string
	Version     string
	Status      Status
	Err         error
}

// Checker checks requirements. LookPath defaults to exec.LookPath; names that
// exist as executables under RepoRoot are accepted too.
type Checker struct {
	Executor runtime.Executor
	RepoRoot string
	LookPath func(string) (string, error)
}

// Check locates req.Name and, when a minimum version is declared, runs it
// with VersionArgs (default --version) and compares the reported version.
func (c *Checker) Check(ctx context.Context, agentName string, req registry.Requirement) Result {
	res := Result{Agent: agentName, Requirement: req}

	path, ok := c.locate(req.Name)
	if !ok {
		res.Status = Missing
		return res
	}
	res.Path = path
	if req.MinVersion == "" {
		res.Status = OK
		return res
	}

	args := req.VersionArgs
	if len(args) == 0 {
		args = []string{"--version"}
	}
	out, err := c.executor().Run(ctx, &runtime.Command{
		Path:   path,
		Args:   args,
		Dir:    c.RepoRoot,
		Stdout: io.Discard,
		Stderr: io.Discard,
	})
	if err != nil {
		res.Status, res.Err = Unknown, err
		return res
	}

	version, found := ExtractVersion(out.Stdout + "\n" + out.Stderr)
	if !found {
		res.Status, res.Err = Unknown, fmt.Errorf("no version in output of %s %v", req.Name, args)
		return res
	}
	res.Version = version

	satisfied, err := Satisfies(version, req.MinVersion)
	switch {
	case err != nil:
		res.Status, res.Err = Unknown, err
	case satisfied:
		res.Status = OK
	default:
		res.Status = Outdated
	}
	return res
}

// CheckRegistry checks every requirement of every entry, skipping tools
// already checked for an earlier agent.
func (c *Checker) CheckRegistry(ctx context.Context, reg *registry.Registry) []Result {
	var results []Result
	seen := map[string]bool{}
	for _, e := range reg.List() {
		for _, req := range e.Requires {
			key := req.Name + "@" + req.MinVersion
			if seen[key] {
				continue
			}
			seen[key] = true
			results = append(results, c.Check(ctx, e.Name, req))
		}
	}
	return results
}

// Report writes one line per result and returns the number of failures
// (missing or outdated tools).
func Report(w io.Writer, results []Result) int {
	failures := 0
	for _, r := range results {
		line := fmt.Sprintf("  [%s] %s", r.Status, r.Requirement.Name)
		if r.Version != "" {
			line += " " + r.Version
		}
		if r.Requirement.MinVersion != "" {
			line += fmt.Sprintf(" (need >= %s)", r.Requirement.MinVersion)
		}
		line += fmt.Sprintf(" required by %s", r.Agent)
		if r.Err != nil {
			line += fmt.Sprintf(": %v", r.Err)
		}
		fmt.Fprintln(w, line)
		if r.Status == Missing || r.Status == Outdated {
			failures++
		}
	}
	return failures
}

func (c *Checker) executor() runtime.Executor {
	if c.Executor == nil {
		return runtime.OSExecutor{}
	}
	return c.Executor
}

// locate resolves name on PATH; relative paths such as "scripts/deploy.ah"
// are resolved against RepoRoot.
func (c *Checker) locate(name string) (string, bool) {
	if c.RepoRoot != "" && !filepath.IsAbs(name) && strings.ContainsAny(name, `/\`) {
		candidate := filepath.Join(c.RepoRoot, name)
		if info, err := os.Stat(candidate); err == nil && platform.IsExecutable(candidate, info) {
			return candidate, true
		}
		return "", false
	}
	lookPath := c.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	p, err := lookPath(name)
	if err != nil {
		return "", false
	}
	return p, true
}
