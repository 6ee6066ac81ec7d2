package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthewdavidson09/cloud-attribute-sync/internal/directory"
)

var decodeImmutableID bool

var immutableIDCmd = &cobra.Command{
	Use:   "immutable-id <objectGUID | immutable id>",
	Short: "Convert an AD objectGUID to an immutable id, or back with --decode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if decodeImmutableID {
			wire, err := directory.DecodeImmutableID(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), directory.WireToGUID(wire))
			return nil
		}

		wire, err := directory.GUIDToWire(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), directory.ImmutableID(wire))
		return nil
	},
}

func init() {
	immutableIDCmd.Flags().BoolVar(&decodeImmutableID, "decode", false, "decode an immutable id to its objectGUID")
}
