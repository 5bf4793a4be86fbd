package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"faceattend/internal/embedding"
	"faceattend/internal/roster"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Weekday schedule commands",
}

var scheduleImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Upsert weekday schedules from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleImport,
}

func init() {
	scheduleCmd.AddCommand(scheduleImportCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runScheduleImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := roster.NewService(roster.NewRepository(db.Client), embedding.NewStore(embedding.Cosine, log.Logger), cfg.MinReferenceEmbeddings, log.Logger)
	saved, err := svc.ImportSchedules(cmdContext(cmd), f)
	if err != nil {
		return err
	}
	for _, s := range saved {
		fmt.Fprintf(cmd.OutOrStdout(), "%-9s start %s  late %s  end %s\n", s.Day, s.Start, s.Late, s.End)
	}
	return nil
}
