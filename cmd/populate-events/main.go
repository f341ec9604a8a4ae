// Command populate-events runs on a daily schedule and pulls upcoming games
// from the score feed into the marketplace.
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

func handler(ctx context.Context) error {
	result, err := container.Orchestrator.PopulateOnce(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	logger := container.Logger
	logger.Info("population run finished",
		zap.Int("processed", result.Processed),
		zap.Int("failures", len(result.Failures)))
	for _, f := range result.Failures {
		logger.Warn("event not populated",
			zap.String("event_id", f.EventID),
			zap.Error(f.Err))
	}
	return nil
}

func main() {
	lambda.Start(handler)
}
