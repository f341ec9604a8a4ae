// Command lock-events is invoked by the one-shot rule at an event's start
// time. It closes the market, then deletes the rule that fired it.
package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"sidebet-backend/infrastructure/di"
)

var container *di.Container

func init() {
	var err error
	container, err = di.NewContainer(context.Background())
	if err != nil {
		zap.NewExample().Fatal("startup failed", zap.Error(err))
	}
}

// lockRequest is the rule target input written at scheduling time.
type lockRequest struct {
	EventID  string `json:"eventId"`
	RuleName string `json:"ruleName"`
}

func handler(ctx context.Context, req lockRequest) error {
	logger := container.Logger
	if err := container.Orchestrator.LockOnce(ctx, req.EventID, req.RuleName, time.Now().UTC()); err != nil {
		return err
	}
	// The rule has served its single purpose; clean it up. Failure here is
	// cosmetic, the lock marker prevents a re-fire from doing work.
	if err := container.Scheduler.RemoveRule(ctx, req.RuleName); err != nil {
		logger.Warn("rule cleanup failed",
			zap.String("rule", req.RuleName),
			zap.Error(err))
	}
	return nil
}

func main() {
	lambda.Start(handler)
}
