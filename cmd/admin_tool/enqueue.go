package admin_tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yametee.shop/jobs/cmd/providers"
	"go.yametee.shop/jobs/pkg/producer"
)

var enqueueCmd = cobra.Command{
	Use:   "enqueue",
	Short: "Enqueue jobs",
}

func init() {
	Cmd.AddCommand(&enqueueCmd)
}

var enqueueOrderCmd = cobra.Command{
	Use:   "order <order-id>",
	Short: "Enqueue order processing job",
	Args:  cobra.ExactArgs(1),
	Run:   providers.NewCmd(runEnqueueOrder),
}

func init() {
	enqueueCmd.AddCommand(&enqueueOrderCmd)
}

func runEnqueueOrder(ctx context.Context, args []string, client *producer.Client) {
	printEnqueued(client.EnqueueOrder(ctx, args[0]))
}

var enqueueEmailCmd = cobra.Command{
	Use:   "email <to> <subject> <body>",
	Short: "Enqueue email job",
	Args:  cobra.ExactArgs(3),
	Run:   providers.NewCmd(runEnqueueEmail),
}

func init() {
	enqueueCmd.AddCommand(&enqueueEmailCmd)
}

func runEnqueueEmail(ctx context.Context, args []string, client *producer.Client) {
	printEnqueued(client.EnqueueEmail(ctx, args[0], args[1], args[2]))
}

var enqueueWebhookCmd = cobra.Command{
	Use:   "webhook <event> [payload-json]",
	Short: "Enqueue webhook job",
	Args:  cobra.RangeArgs(1, 2),
	Run:   providers.NewCmd(runEnqueueWebhook),
}

func init() {
	enqueueCmd.AddCommand(&enqueueWebhookCmd)
}

func runEnqueueWebhook(ctx context.Context, args []string, client *producer.Client) {
	var payload json.RawMessage
	if len(args) > 1 {
		payload = json.RawMessage(args[1])
		if !json.Valid(payload) {
			fmt.Fprintln(os.Stderr, "Invalid payload JSON")
			os.Exit(1)
		}
	}
	printEnqueued(client.EnqueueWebhook(ctx, args[0], payload))
}

var enqueueCacheWarmCmd = cobra.Command{
	Use:   "cache-warm <key>...",
	Short: "Enqueue cache warm job",
	Args:  cobra.MinimumNArgs(1),
	Run:   providers.NewCmd(runEnqueueCacheWarm),
}

func init() {
	enqueueCmd.AddCommand(&enqueueCacheWarmCmd)
}

func runEnqueueCacheWarm(ctx context.Context, args []string, client *producer.Client) {
	printEnqueued(client.EnqueueCacheWarm(ctx, args))
}

func printEnqueued(id string, ok bool) {
	if !ok {
		fmt.Fprintln(os.Stderr, "Failed to enqueue job")
		os.Exit(1)
	}
	fmt.Println(id)
}
