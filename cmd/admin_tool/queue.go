package admin_tool

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.yametee.shop/jobs/cmd/providers"
	"go.yametee.shop/jobs/pkg/redisqueue"
)

var queueCmd = cobra.Command{
	Use:   "queue",
	Short: "Inspect the job queue",
}

func init() {
	Cmd.AddCommand(&queueCmd)
}

var queueLengthCmd = cobra.Command{
	Use:   "length",
	Short: "Print number of pending jobs",
	Args:  cobra.NoArgs,
	Run:   providers.NewCmd(runQueueLength),
}

func init() {
	queueCmd.AddCommand(&queueLengthCmd)
}

func runQueueLength(ctx context.Context, q *redisqueue.Queue) {
	n, err := q.Length(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to read queue length:", err)
		os.Exit(1)
	}
	fmt.Println(n)
}

var queueDeadLettersCmd = cobra.Command{
	Use:   "dead-letters",
	Short: "Print failed jobs from the dead-letter list",
	Args:  cobra.NoArgs,
	Run:   providers.NewCmd(runQueueDeadLetters),
}

var deadLettersCount int64

func init() {
	flags := queueDeadLettersCmd.Flags()
	flags.Int64VarP(&deadLettersCount, "count", "n", 20, "Max number of entries")
	queueCmd.AddCommand(&queueDeadLettersCmd)
}

func runQueueDeadLetters(ctx context.Context, q *redisqueue.Queue) {
	if q.Keys.DeadLetter == "" {
		fmt.Fprintln(os.Stderr, "Dead-letter list disabled ("+providers.ConfQueueDeadLetter+")")
		os.Exit(1)
	}
	entries, err := q.DeadLetters(ctx, deadLettersCount)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to read dead letters:", err)
		os.Exit(1)
	}
	for _, entry := range entries {
		fmt.Printf("%s\t%s\t%s\n", entry.FailedAt.Format(time.RFC3339), entry.Error, entry.Envelope)
	}
}
