// Command resolve-events runs on a short schedule after game days and
// settles every finished event: final scores, bet statuses, and outcomes.
// It also locks any event whose one-shot trigger never fired.
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
	result, err := container.Orchestrator.ResolveOnce(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	logger := container.Logger
	logger.Info("resolution run finished",
		zap.Int("settled", result.Processed),
		zap.Int("failures", len(result.Failures)))
	for _, f := range result.Failures {
		logger.Warn("event not resolved",
			zap.String("event_id", f.EventID),
			zap.Error(f.Err))
	}
	return nil
}

func main() {
	lambda.Start(handler)
}
