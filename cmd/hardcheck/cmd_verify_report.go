package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ochairo/hardcheck/internal/external-adapters/gpg"
)

func newVerifyReportCommand() *cobra.Command {
	var keyPath, sigPath string

	cmd := &cobra.Command{
		Use:     "verify-report --key PUBLIC_KEY --signature SIGNATURE REPORT",
		Short:   "Verify the detached OpenPGP signature of a saved report",
		Example: `  hardcheck verify-report --key release.pub.asc --signature report.txt.asc report.txt`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := gpg.NewVerifier()
			if err := v.ImportKeyFromFile(keyPath); err != nil {
				return err
			}

			fingerprint, err := v.VerifyFile(args[0], sigPath)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Good signature from %s (%d key(s) in keyring)\n", fingerprint, v.GetKeyringSize())
			return nil
		},
	}

	cmd.Flags().StringVar(&keyPath, "key", "", "Armored or binary OpenPGP public key file")
	cmd.Flags().StringVar(&sigPath, "signature", "", "Detached signature file")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}
