package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"faceattend/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token SUBJECT",
	Short: "Issue an operator token for the HTTP API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pair, err := auth.Issue(args[0], auth.RoleOperator, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), pair.AccessToken)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
