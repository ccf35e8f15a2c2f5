package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			clients := 0
			for _, t := range cfg.Tenants {
				clients += len(t.Clients)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration OK: %d tenants, %d clients\n", len(cfg.Tenants), clients)
			return nil
		},
	})
	return cmd
}

func newTenantsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "Inspect configured tenants",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tenants with their issuer and clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TENANT\tISSUER\tCLIENTS\tUPSTREAM")
			for _, t := range cfg.Tenants {
				upstream := "-"
				if t.Upstream.Issuer != "" {
					upstream = t.Upstream.Issuer
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.ID, t.Issuer, len(t.Clients), upstream)
			}
			return w.Flush()
		},
	})
	return cmd
}
