package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affilia/internal/affiliate"
	"github.com/smallbiznis/affilia/internal/application"
	"github.com/smallbiznis/affilia/internal/attribution"
	"github.com/smallbiznis/affilia/internal/click"
	"github.com/smallbiznis/affilia/internal/clock"
	"github.com/smallbiznis/affilia/internal/config"
	"github.com/smallbiznis/affilia/internal/events"
	"github.com/smallbiznis/affilia/internal/lock"
	"github.com/smallbiznis/affilia/internal/rateschedule"
	"github.com/smallbiznis/affilia/internal/redisconn"
	"github.com/smallbiznis/affilia/internal/retryqueue"
	retryqueuedomain "github.com/smallbiznis/affilia/internal/retryqueue/domain"
	"github.com/smallbiznis/affilia/internal/upline"
	"github.com/smallbiznis/affilia/pkg/db"
	"github.com/smallbiznis/affilia/pkg/log"
	"go.uber.org/fx"
)

// retrier is the operator CLI for the attribution retry queue:
//
//	retrier -list            print pending retry records
//	retrier -retry <id>      drive one record through the engine
func main() {
	listPending := flag.Bool("list", false, "list pending retry records")
	retryID := flag.String("retry", "", "retry record id to drive")
	flag.Parse()

	if !*listPending && *retryID == "" {
		flag.Usage()
		os.Exit(2)
	}

	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		redisconn.Module,
		events.Module,
		lock.Module,

		// Domain services required by the retry driver.
		affiliate.Module,
		upline.Module,
		click.Module,
		rateschedule.Module,
		application.Module,
		attribution.Module,
		retryqueue.Module,

		// No server module!
		fx.Invoke(func(lc fx.Lifecycle, shutdowner fx.Shutdowner, svc retryqueuedomain.Service) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go func() {
						runOnce(svc, *listPending, *retryID)
						_ = shutdowner.Shutdown()
					}()
					return nil
				},
			})
		}),
	)
	app.Run()
}

func runOnce(svc retryqueuedomain.Service, listPending bool, retryID string) {
	ctx := context.Background()

	if listPending {
		resp, err := svc.ListPending(ctx, retryqueuedomain.ListRequest{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "list retries: %v\n", err)
			return
		}
		if len(resp.Records) == 0 {
			fmt.Println("no pending retries")
			return
		}
		for _, record := range resp.Records {
			fmt.Printf("%s\tapplication=%s\tcode=%s\tstatus=%s\terror=%s\n",
				record.ID.String(),
				record.ApplicationID.String(),
				record.ReferralCode,
				record.Status,
				record.ErrorMessage,
			)
		}
		return
	}

	result, err := svc.Retry(ctx, retryID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "retry %s: %v\n", retryID, err)
		return
	}
	fmt.Printf("retry %s: %s", retryID, result.Outcome)
	if result.Detail != "" {
		fmt.Printf(" (%s)", result.Detail)
	}
	fmt.Println()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
