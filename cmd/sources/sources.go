// Package sources implements the sources command group.
package sources

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/newswire/newswire/cmd/common"
	"github.com/newswire/newswire/internal/config"
)

// Command returns the sources command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage configured news sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(listCommand())
	cmd.AddCommand(validateCommand())

	return cmd
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured sources",
		RunE: func(_ *cobra.Command, _ []string) error {
			descriptors, err := loadDescriptors()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Name", "Kind", "Feeds", "Rate Limit"})

			for _, d := range descriptors {
				rate := fmt.Sprintf("%d/%s", d.RateLimit.Requests, d.RateLimit.Window)
				if d.RateLimit.RequestsPerDay > 0 {
					rate += fmt.Sprintf(" (%d/day)", d.RateLimit.RequestsPerDay)
				}

				t.AppendRow(table.Row{d.ID, d.Name, d.Kind, len(d.Feeds), rate})
			}

			t.Render()

			return nil
		},
	}
}

func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the sources file",
		RunE: func(_ *cobra.Command, _ []string) error {
			descriptors, err := loadDescriptors()
			if err != nil {
				return err
			}

			fmt.Printf("Sources file is valid: %d source(s)\n", len(descriptors))

			return nil
		},
	}
}

func loadDescriptors() ([]config.SourceDescriptor, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, err
	}

	return config.LoadSources(cfg.SourcesFile)
}
