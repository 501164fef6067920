package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/skillserver/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the skills directory for problems",
	Long: `Load the skills directory and report every bundle that could not be loaded,
every unreadable directory and every duplicate skill name. Exits with status 1
if any problem is found.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		cache, err := buildCache(ctx, getSkillsConfigFromViper())
		if err != nil {
			presenter.Error(err, "failed to load skills")
			os.Exit(1)
		}

		problems := problemList(cache.Problems())
		presenter.Section(fmt.Sprintf("Skills in %s", cache.Root()))
		for _, skill := range cache.List() {
			presenter.Success(fmt.Sprintf("%s (%d resources)", skill.ID, len(skill.Resources)))
		}
		for _, problem := range problems {
			presenter.Warning(problem.Error())
		}

		presenter.Separator()
		if len(problems) > 0 {
			presenter.Error(errors.Errorf("%d problem(s) found", len(problems)), "validation failed")
			os.Exit(1)
		}
		presenter.Info(fmt.Sprintf("%d skill(s) valid", cache.Len()))
	},
}

// problemList flattens the cache problems into individual errors
func problemList(err error) []error {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		return merr.Errors
	}
	return []error{err}
}
