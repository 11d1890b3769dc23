package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "mintgate/internal/jwt_token"
	platformredis "mintgate/internal/platform/redis"
	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/middleware/admin"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage bearer and admin tokens",
	}
	cmd.AddCommand(newTokenIssueCmd(root), newTokenRevokeCmd(root), newTokenHashCmd())
	return cmd
}

func newTokenIssueCmd(root *rootOptions) *cobra.Command {
	var (
		principal string
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token for a principal",
		Long: `Sign a bearer token whose principal claim is --principal, using the
configured signing key, issuer and audience.

Examples:
  mintgate token issue --principal alice
  mintgate token issue -p owner --ttl 15m -c mintgate.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.load()
			if err != nil {
				return err
			}
			p, err := id.ParsePrincipal(principal)
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = cfg.JWT.TokenTTL
			}
			svc := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
			token, err := svc.GenerateAccessToken(p, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVarP(&principal, "principal", "p", "", "principal to embed in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to jwt.tokenTTL)")
	_ = cmd.MarkFlagRequired("principal")
	return cmd
}

func newTokenRevokeCmd(root *rootOptions) *cobra.Command {
	var (
		jti string
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Add a token ID to the Redis deny list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			client, err := platformredis.New(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			if client == nil {
				return fmt.Errorf("redis is not configured")
			}
			defer client.Close()

			if ttl == 0 {
				ttl = cfg.JWT.TokenTTL
			}
			return jwttoken.NewRevocationList(client.Client).Revoke(ctx, jti, ttl)
		},
	}
	cmd.Flags().StringVar(&jti, "jti", "", "token ID (jti claim) to revoke")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "how long to keep the entry (defaults to jwt.tokenTTL)")
	_ = cmd.MarkFlagRequired("jti")
	return cmd
}

func newTokenHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-admin <token>",
		Short: "Print the bcrypt hash to configure as adminTokenHash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := admin.HashToken(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}
