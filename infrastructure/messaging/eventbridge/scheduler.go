// Package eventbridge arranges one-shot lock triggers: a cron rule per
// marketplace event that fires once at start time and invokes the lock
// handler.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"sidebet-backend/application/ports"
	apperrors "sidebet-backend/pkg/errors"
)

// api is the subset of the EventBridge client the scheduler uses.
type api interface {
	PutRule(ctx context.Context, params *awseventbridge.PutRuleInput, optFns ...func(*awseventbridge.Options)) (*awseventbridge.PutRuleOutput, error)
	PutTargets(ctx context.Context, params *awseventbridge.PutTargetsInput, optFns ...func(*awseventbridge.Options)) (*awseventbridge.PutTargetsOutput, error)
	RemoveTargets(ctx context.Context, params *awseventbridge.RemoveTargetsInput, optFns ...func(*awseventbridge.Options)) (*awseventbridge.RemoveTargetsOutput, error)
	DeleteRule(ctx context.Context, params *awseventbridge.DeleteRuleInput, optFns ...func(*awseventbridge.Options)) (*awseventbridge.DeleteRuleOutput, error)
}

const targetID = "lock-handler"

// LockScheduler implements the lock-trigger port on EventBridge rules.
type LockScheduler struct {
	client    api
	targetArn string
	logger    *zap.Logger
}

// NewLockScheduler creates a scheduler that points rules at the lock
// handler's function ARN.
func NewLockScheduler(client api, targetArn string, logger *zap.Logger) *LockScheduler {
	return &LockScheduler{
		client:    client,
		targetArn: targetArn,
		logger:    logger.Named("eventbridge"),
	}
}

var _ ports.LockScheduler = (*LockScheduler)(nil)

// lockInput is the payload delivered to the lock handler when a rule fires.
type lockInput struct {
	EventID  string `json:"eventId"`
	RuleName string `json:"ruleName"`
}

// ScheduleLock registers a cron rule firing once at the given minute. The
// handler receives its own rule name so it can tear the rule down after
// running.
func (s *LockScheduler) ScheduleLock(ctx context.Context, eventID string, at time.Time) (string, error) {
	ruleName := RuleName(eventID)
	utc := at.UTC()

	_, err := s.client.PutRule(ctx, &awseventbridge.PutRuleInput{
		Name:               aws.String(ruleName),
		ScheduleExpression: aws.String(cronAt(utc)),
		State:              types.RuleStateEnabled,
		Description:        aws.String("one-shot market lock for " + eventID),
	})
	if err != nil {
		return "", apperrors.NewUpstreamError("eventbridge", err)
	}

	input, err := json.Marshal(lockInput{EventID: eventID, RuleName: ruleName})
	if err != nil {
		return "", apperrors.NewInternalError("marshal lock input").WithCause(err)
	}
	_, err = s.client.PutTargets(ctx, &awseventbridge.PutTargetsInput{
		Rule: aws.String(ruleName),
		Targets: []types.Target{{
			Id:    aws.String(targetID),
			Arn:   aws.String(s.targetArn),
			Input: aws.String(string(input)),
		}},
	})
	if err != nil {
		return "", apperrors.NewUpstreamError("eventbridge", err)
	}

	s.logger.Info("lock trigger scheduled",
		zap.String("event_id", eventID),
		zap.String("rule", ruleName),
		zap.Time("at", utc))
	return ruleName, nil
}

// RemoveRule detaches the target and deletes a fired rule.
func (s *LockScheduler) RemoveRule(ctx context.Context, ruleName string) error {
	_, err := s.client.RemoveTargets(ctx, &awseventbridge.RemoveTargetsInput{
		Rule: aws.String(ruleName),
		Ids:  []string{targetID},
	})
	if err != nil {
		return apperrors.NewUpstreamError("eventbridge", err)
	}
	_, err = s.client.DeleteRule(ctx, &awseventbridge.DeleteRuleInput{
		Name: aws.String(ruleName),
	})
	if err != nil {
		return apperrors.NewUpstreamError("eventbridge", err)
	}
	s.logger.Info("lock trigger removed", zap.String("rule", ruleName))
	return nil
}

// RuleName derives the rule name for an event, keeping to the characters
// EventBridge permits.
func RuleName(eventID string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, eventID)
	name := "lock-event-" + sanitized
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}

// cronAt renders a one-shot cron expression for a specific UTC minute.
func cronAt(t time.Time) string {
	return fmt.Sprintf("cron(%d %d %d %d ? %d)",
		t.Minute(), t.Hour(), t.Day(), int(t.Month()), t.Year())
}
