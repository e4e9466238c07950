package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services/session"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the stored login session",
	}

	cmd.AddCommand(newSessionSetCmd(), newSessionStatusCmd())

	return cmd
}

func newSessionSetCmd() *cobra.Command {
	var tokens models.TokenBundle

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store session tokens in the session file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tokens.IsZero() {
				return errors.New("--id-token or --access-token is required")
			}

			cfg, closeLog, err := setup(false)
			if err != nil {
				return err
			}
			defer closeLog()

			provider, err := session.NewFileProvider(cfg.SessionPath)
			if err != nil {
				return err
			}
			defer func() { _ = provider.Close() }()

			if err := provider.Save(tokens); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Session saved to %s\n", provider.Path())
			return err
		},
	}

	cmd.Flags().StringVar(&tokens.IDToken, "id-token", "", "ID token")
	cmd.Flags().StringVar(&tokens.AccessToken, "access-token", "", "access token")
	cmd.Flags().StringVar(&tokens.RefreshToken, "refresh-token", "", "refresh token")

	return cmd
}

func newSessionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a session is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closeLog, err := setup(false)
			if err != nil {
				return err
			}
			defer closeLog()

			provider, err := session.NewFileProvider(cfg.SessionPath)
			if err != nil {
				return err
			}
			defer func() { _ = provider.Close() }()

			out := cmd.OutOrStdout()
			if _, ok := provider.Tokens(); !ok {
				_, err = fmt.Fprintf(out, "No session in %s\n", provider.Path())
				return err
			}
			_, err = fmt.Fprintf(out, "Session active (%s)\n", provider.Path())
			return err
		},
	}
}
