package main

import (
	"github.com/spf13/cobra"

	"github.com/sssxyd/go-page-handle/handle"
)

func getInstallCmd(c *rootCommand) *cobra.Command {
	var browser string
	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install the playwright driver and the configured browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg.Browser
			if browser != "" {
				cfg.Name = browser
			}
			c.logger.WithField("browser", cfg.Name).Info("installing playwright")
			return handle.Install(cfg)
		},
	}
	installCmd.Flags().StringVarP(&browser, "browser", "b", "", "browser to install instead of the configured one")
	return installCmd
}
