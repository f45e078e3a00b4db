// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/canonical/identity-provider/internal/db"
	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/tracing"
	"github.com/canonical/identity-provider/pkg/keys"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage tenant signing keys",
	Long:  `Rotate and revoke the RSA keys tenants sign tokens with.`,
}

var keysRotateCmd = &cobra.Command{
	Use:   "rotate <tenant-id>",
	Short: "Generate and promote a new signing key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dsn, _ := cmd.Flags().GetString("dsn")

		withKeysService(cmd, dsn, func(service *keys.Service) error {
			key, err := service.Rotate(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			cmd.Printf("New signing key: %s\n", key.Kid)
			return nil
		})
	},
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <tenant-id> <kid>",
	Short: "Revoke a signing key",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		dsn, _ := cmd.Flags().GetString("dsn")

		withKeysService(cmd, dsn, func(service *keys.Service) error {
			revoked, err := service.Revoke(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !revoked {
				return fmt.Errorf("key %s not found for tenant %s", args[1], args[0])
			}

			cmd.Printf("Revoked signing key: %s\n", args[1])
			return nil
		})
	},
}

func withKeysService(cmd *cobra.Command, dsn string, fn func(*keys.Service) error) {
	logger := logging.NewLogger("error")
	defer logger.Sync()

	tracer := tracing.NewNoopTracer()
	monitor := monitoring.NewNoopMonitor("identity-provider")

	dbClient, err := db.NewDBClient(db.Config{DSN: dsn}, tracer, monitor, logger)
	if err != nil {
		cmd.PrintErrf("failed to create database client: %v\n", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	s := storage.NewStorage(dbClient, tracer, monitor, logger)

	if err := fn(keys.NewService(s, tracer, monitor, logger)); err != nil {
		cmd.PrintErrf("%v\n", err)
		os.Exit(1)
	}
}

func init() {
	keysCmd.PersistentFlags().String("dsn", "", "PostgreSQL DSN connection string")
	_ = keysCmd.MarkPersistentFlagRequired("dsn")

	keysCmd.AddCommand(keysRotateCmd)
	keysCmd.AddCommand(keysRevokeCmd)
	rootCmd.AddCommand(keysCmd)
}
