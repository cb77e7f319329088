package main

import (
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sssxyd/go-page-handle/handle"
)

func printBrowsers(c *rootCommand, found map[string]string) {
	if len(found) == 0 {
		fprintf(c.stdout, "no browsers found\n")
		return
	}
	for _, name := range slices.Sorted(maps.Keys(found)) {
		fprintf(c.stdout, "%-10s %s\n", name, found[name])
	}
}

func getBrowsersCmd(c *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "browsers",
		Short: "List the browsers installed on this machine",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printBrowsers(c, handle.FindInstalledBrowsers())
		},
	}
}
