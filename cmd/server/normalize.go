package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"opsbridge/pkg/canonical"
)

// newNormalizeCommand exposes the key normalizers so operators can see which
// identity or placeholder key a raw value maps to.
func newNormalizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Print the normalized form of a key, domain or email",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "key <placeholder>",
		Short: "Normalize a placeholder key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), canonical.NormalizeKey(args[0]))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "domain <url-or-host>",
		Short: "Normalize a website or domain to its identity key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := canonical.NormalizeDomain(args[0])
			if d == "" {
				return fmt.Errorf("%q has no usable domain", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), d)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "email <address>",
		Short: "Derive the identity key from an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := canonical.DomainFromEmail(args[0])
			if d == "" {
				return fmt.Errorf("%q has no usable domain", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), d)
			return nil
		},
	})
	return cmd
}
