package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"faceattend/internal/config"
	"faceattend/internal/logger"
	"faceattend/internal/store"
)

var cfg config.App

var rootCmd = &cobra.Command{
	Use:   "attendctl",
	Short: "Operator tooling for the face attendance service",
	Long: `attendctl talks to the attendance database directly. It imports weekday
schedules, checks the enrolled reference embeddings, lists attendance and issues
operator tokens for the HTTP API.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("db-driver", "", "database driver (pgx or sqlite3); defaults to DB_DRIVER")
	rootCmd.PersistentFlags().String("database-url", "", "database DSN; defaults to DATABASE_URL")
}

func initConfig() {
	// .env is read by config.Load when present.
	cfg = config.Load()
	logger.Init(cfg.LogLevel, "console")
}

func openDB(cmd *cobra.Command) (*store.DB, error) {
	driver, dsn := cfg.DBDriver, cfg.DatabaseURL
	if v := mustGetString(cmd, "db-driver"); v != "" {
		driver = v
	}
	if v := mustGetString(cmd, "database-url"); v != "" {
		dsn = v
	}
	db, err := store.NewDB(cmdContext(cmd), driver, dsn)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}
	return db, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// mustGetString gets a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}
