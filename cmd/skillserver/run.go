package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jingkaihe/skillserver/pkg/presenter"
	"github.com/jingkaihe/skillserver/pkg/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <skill> <script> [-- args...]",
	Short: "Run a script of a skill",
	Long: `Run a script bundled with a skill the same way the run_script tool does,
and print its captured output. Arguments after the script path are passed to
the script; use -- before arguments that start with a dash.

Examples:
  skillserver run pdf-tools scripts/extract.py -- --pages 1-3 report.pdf
  skillserver run aegis-architect scaffold_feature.py list`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		skillsConfig := getSkillsConfigFromViper()

		cache, err := buildCache(ctx, skillsConfig)
		if err != nil {
			presenter.Error(err, "failed to load skills")
			os.Exit(1)
		}

		skill, err := cache.Get(args[0])
		if err != nil {
			presenter.Error(err, "lookup failed")
			os.Exit(1)
		}

		runner, err := newRunner(skillsConfig)
		if err != nil {
			presenter.Error(err, "failed to create script runner")
			os.Exit(1)
		}

		result := runner.Run(ctx, skill, args[1], args[2:])
		os.Exit(presentScriptResult(result))
	},
}

// presentScriptResult prints a script result and returns the exit status
// the command should end with
func presentScriptResult(result *skills.ScriptResult) int {
	switch result.Status {
	case skills.ScriptSucceeded:
		presenter.Block("STDOUT", result.Stdout)
		presenter.Block("STDERR", result.Stderr)
		presenter.Success(fmt.Sprintf("script finished in %s", result.Duration.Round(time.Millisecond)))
		return 0
	case skills.ScriptFailed:
		presenter.Block("STDOUT", result.Stdout)
		presenter.Block("STDERR", result.Stderr)
		presenter.Error(errors.Errorf("exit code %d", result.ExitCode), "script failed")
		if result.ExitCode > 0 {
			return result.ExitCode
		}
		return 1
	default:
		presenter.Error(errors.New(result.Error), string(result.Status))
		return 1
	}
}
