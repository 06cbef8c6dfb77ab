package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/klasroom/taskintake/internal/audit"
	"github.com/klasroom/taskintake/internal/config"
	"github.com/klasroom/taskintake/internal/db"
	"github.com/klasroom/taskintake/internal/replay"
)

var (
	replaySchool string
	replaySince  string
	replayLimit  int
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-run resolution over stored intake logs and report drift",
	Long: `Replay loads completed intake logs and re-runs the pure confidence
aggregation and review-gate stages against them. Use it after changing
thresholds or dictionaries to see how many past requests would gate
differently today.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		database, err := db.Open(filepath.Join(cfg.DataDir, "taskintake.db"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		filter := audit.QueryFilter{
			SchoolCode: replaySchool,
			Limit:      replayLimit,
		}
		if replaySince != "" {
			t, err := time.Parse("2006-01-02", replaySince)
			if err != nil {
				return fmt.Errorf("parsing --since: %w", err)
			}
			filter.Since = &t
		}

		var bar *progressbar.ProgressBar
		stats, err := replay.Run(cmd.Context(), audit.NewStore(database), filter,
			func(done, total int) {
				if bar == nil {
					bar = progressbar.Default(int64(total), "replaying")
				}
				bar.Set(done)
			})
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Printf("Entries examined:       %d\n", stats.Total)
		fmt.Printf("Entries replayed:       %d\n", stats.Replayed)
		fmt.Printf("Review gate unchanged:  %d\n", stats.GateAgreements)
		fmt.Printf("Review gate changed:    %d\n", stats.GateChanges)
		fmt.Printf("Confirmation flipped:   %d\n", stats.ConfirmationChanges)
		fmt.Printf("Mean confidence delta:  %.4f\n", stats.MeanConfidenceDelta)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replaySchool, "school", "", "restrict to one school code")
	replayCmd.Flags().StringVar(&replaySince, "since", "", "only logs on or after this date (YYYY-MM-DD)")
	replayCmd.Flags().IntVar(&replayLimit, "limit", 0, "maximum number of logs to replay")
	rootCmd.AddCommand(replayCmd)
}
