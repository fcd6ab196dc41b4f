package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Alias1177/Allocator/internal/config"
)

var industriesCmd = &cobra.Command{
	Use:   "industries",
	Short: "List the configured industry baskets",
	RunE:  runIndustries,
}

func runIndustries(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ind, err := config.LoadIndustries(cfg.IndustriesFile)
	if err != nil {
		return err
	}
	for _, name := range ind.Names() {
		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", name, strings.Join(ind[name], ", "))
	}
	return nil
}
