package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"faceattend/internal/embedding"
	"faceattend/internal/roster"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Enrolled student commands",
}

var rosterCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load every reference embedding and report what the matcher would use",
	Long: `Builds the in-memory embedding index exactly as the API does at startup and
prints how many students and reference vectors it holds. Students whose stored
embeddings are malformed are logged and counted as skipped.`,
	Args: cobra.NoArgs,
	RunE: runRosterCheck,
}

func init() {
	rosterCmd.AddCommand(rosterCheckCmd)
	rootCmd.AddCommand(rosterCmd)
}

func runRosterCheck(cmd *cobra.Command, _ []string) error {
	metric, err := embedding.ParseMetric(cfg.MatchMetric)
	if err != nil {
		return err
	}
	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmdContext(cmd)
	repo := roster.NewRepository(db.Client)
	svc := roster.NewService(repo, embedding.NewStore(metric, log.Logger), cfg.MinReferenceEmbeddings, log.Logger)
	stats, err := svc.Reload(ctx)
	if err != nil {
		return err
	}
	ids, err := svc.StudentIDs(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "enrolled:   %d\n", len(ids))
	fmt.Fprintf(out, "indexed:    %d\n", stats.Students)
	fmt.Fprintf(out, "references: %d\n", stats.References)
	fmt.Fprintf(out, "skipped:    %d\n", stats.Skipped)
	if stats.Skipped > 0 {
		return fmt.Errorf("%d students have unusable embeddings", stats.Skipped)
	}
	return nil
}
