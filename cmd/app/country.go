package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthewdavidson09/cloud-attribute-sync/internal/directory"
)

var countryTablePath string

var countryCmd = &cobra.Command{
	Use:   "country <name>",
	Short: "Show the country code a CSV country name maps to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("country-table") {
			cfg.Sync.CountryTablePath = countryTablePath
		}
		table, err := newCountryTable()
		if err != nil {
			return err
		}
		code, ok := table.Lookup(args[0])
		if !ok {
			return &directory.MappingError{Country: args[0]}
		}
		fmt.Fprintln(cmd.OutOrStdout(), code)
		return nil
	},
}

func init() {
	countryCmd.Flags().StringVar(&countryTablePath, "country-table", "", "YAML file of extra country name to code mappings")
}
