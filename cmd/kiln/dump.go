package main

import (
	"github.com/spf13/cobra"

	"kiln/internal/bytecode"
)

var dumpCmd = &cobra.Command{
	Use:   "dump image...",
	Short: "Disassemble .kbc or .kar images",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verify, err := cmd.Flags().GetBool("verify")
		if err != nil {
			return err
		}
		for _, path := range args {
			img, err := bytecode.ReadFile(path)
			if err != nil {
				return err
			}
			if verify {
				for i := range img.Types {
					if err := bytecode.VerifyType(&img.Types[i]); err != nil {
						return err
					}
				}
			}
			if err := bytecode.Disassemble(cmd.OutOrStdout(), img); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	dumpCmd.Flags().Bool("verify", false, "check stack discipline before printing")
}
