package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"faceattend/internal/attendance"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Attendance record commands",
}

var attendanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List attendance records",
	Args:  cobra.NoArgs,
	RunE:  runAttendanceList,
}

func init() {
	attendanceListCmd.Flags().String("from", "", "first day (YYYY-MM-DD)")
	attendanceListCmd.Flags().String("to", "", "last day (YYYY-MM-DD)")
	attendanceListCmd.Flags().String("group", "", "only this group")
	attendanceListCmd.Flags().String("faculty", "", "only this faculty")
	attendanceListCmd.Flags().Int("limit", 100, "maximum rows")
	attendanceCmd.AddCommand(attendanceListCmd)
	rootCmd.AddCommand(attendanceCmd)
}

func runAttendanceList(cmd *cobra.Command, _ []string) error {
	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	loc, err := cfg.Location()
	if err != nil {
		log.Warn().Err(err).Msg("using host timezone")
	}
	ledger := attendance.NewLedger(attendance.NewSQLRepository(db.Client), nil, loc, log.Logger)
	f := attendance.Filter{
		From:    mustGetString(cmd, "from"),
		To:      mustGetString(cmd, "to"),
		Group:   mustGetString(cmd, "group"),
		Faculty: mustGetString(cmd, "faculty"),
		Limit:   mustGetInt(cmd, "limit"),
	}
	records, err := ledger.List(cmdContext(cmd), f)
	if err != nil {
		return err
	}
	sum, err := ledger.Summarize(cmdContext(cmd), f)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tSTUDENT\tNAME\tGROUP\tSTATUS\tARRIVAL\tCONFIDENCE")
	for _, r := range records {
		arrival := "-"
		if r.ArrivalAt != nil {
			arrival = r.ArrivalAt.In(loc).Format("15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f%%\n", r.Day, r.StudentID, r.Name, r.Group, r.Status, arrival, r.Confidence*100)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "present %d, late %d, absent %d\n", sum.Present, sum.Late, sum.Absent)
	return err
}
