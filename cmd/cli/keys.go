package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/oidc-core/internal/infrastructure/crypto"
)

func newKeysCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Inspect tenant signing keys",
	}

	var tenantID string
	jwks := &cobra.Command{
		Use:   "jwks",
		Short: "Print the public JWK Set of a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			source, err := crypto.NewKeySource(cfg, log)
			if err != nil {
				return err
			}
			set, err := crypto.NewKeyManager(source, time.Minute, log).PublicJWKS(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			var out bytes.Buffer
			if err := json.Indent(&out, []byte(set), "", "  "); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.String())
			return nil
		},
	}
	jwks.Flags().StringVar(&tenantID, "tenant", "", "tenant id")
	_ = jwks.MarkFlagRequired("tenant")

	cmd.AddCommand(jwks)
	return cmd
}
