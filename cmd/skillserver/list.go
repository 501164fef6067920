package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jingkaihe/skillserver/pkg/presenter"
	"github.com/jingkaihe/skillserver/pkg/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the skills that would be served",
	Long:  `Load the skills directory and print every skill with its display name, description and resource count.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")

		cache, err := buildCache(ctx, getSkillsConfigFromViper())
		if err != nil {
			presenter.Error(err, "failed to load skills")
			os.Exit(1)
		}

		if err := renderSkills(os.Stdout, cache.Summaries(), format); err != nil {
			presenter.Error(err, "failed to render skills")
			os.Exit(1)
		}
	},
}

func init() {
	listCmd.Flags().StringP("format", "f", "table", "Output format (table, json or yaml)")
}

func renderSkills(w io.Writer, summaries []skills.Summary, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(summaries); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		if len(summaries) == 0 {
			_, err := fmt.Fprintln(w, "No skills found")
			return err
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tRESOURCES\tALLOWED TOOLS\tDESCRIPTION")
		for _, s := range summaries {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				s.ID, s.DisplayName, s.ResourceCount, strings.Join(s.AllowedTools, ","), truncate(s.Description, 60))
		}
		return tw.Flush()
	default:
		return errors.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
