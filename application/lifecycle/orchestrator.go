package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sidebet-backend/application/ports"
	"sidebet-backend/domain/entities"
	apperrors "sidebet-backend/pkg/errors"
)

// maxConcurrentEvents caps the fan-out of one batch run.
const maxConcurrentEvents = 4

// lockOwner tags lock markers written by this process.
const lockOwner = "lifecycle"

// EventFailure records one event a batch run could not process.
type EventFailure struct {
	EventID string
	Err     error
}

// BatchResult summarizes one batch run. A run only returns an error for
// infrastructure-level problems; per-event failures are collected here so
// one bad event never aborts the rest.
type BatchResult struct {
	Processed int
	Failures  []EventFailure
}

func (r *BatchResult) addFailure(eventID string, err error) {
	r.Failures = append(r.Failures, EventFailure{EventID: eventID, Err: err})
}

// Orchestrator runs the three scheduled jobs of the marketplace.
type Orchestrator struct {
	events       ports.EventRepository
	bids         ports.BidRepository
	bets         ports.BetRepository
	outcomes     ports.OutcomeRepository
	feed         ports.Feed
	scheduler    ports.LockScheduler
	kinds        []string
	lookbackDays int
	logger       *zap.Logger
}

// NewOrchestrator wires the lifecycle jobs. kinds lists the feed leagues to
// populate from, e.g. nfl and cfb; lookbackDays is how many past calendar
// dates the resolution sweep revisits, so a postponed game still settles.
func NewOrchestrator(
	events ports.EventRepository,
	bids ports.BidRepository,
	bets ports.BetRepository,
	outcomes ports.OutcomeRepository,
	feed ports.Feed,
	scheduler ports.LockScheduler,
	kinds []string,
	lookbackDays int,
	logger *zap.Logger,
) *Orchestrator {
	if lookbackDays < 1 {
		lookbackDays = 1
	}
	return &Orchestrator{
		events:       events,
		bids:         bids,
		bets:         bets,
		outcomes:     outcomes,
		feed:         feed,
		scheduler:    scheduler,
		kinds:        kinds,
		lookbackDays: lookbackDays,
		logger:       logger.Named("lifecycle"),
	}
}

// PopulateOnce pulls upcoming games from the feed and creates any that are
// not in the marketplace yet, scheduling a one-shot lock trigger per new
// event. Event ids derive from the feed id, so repeated runs converge.
func (o *Orchestrator) PopulateOnce(ctx context.Context, now time.Time) (BatchResult, error) {
	var (
		mu     sync.Mutex
		result BatchResult
	)
	for _, kind := range o.kinds {
		feedEvents, err := o.feed.FetchUpcomingEvents(ctx, kind)
		if err != nil {
			o.logger.Warn("feed unavailable, deferring kind",
				zap.String("kind", kind), zap.Error(err))
			result.addFailure("feed:"+kind, err)
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxConcurrentEvents)
		for _, fe := range feedEvents {
			fe := fe
			g.Go(func() error {
				err := o.populateEvent(gctx, fe, now)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.addFailure(eventID(fe), err)
				} else {
					result.Processed++
				}
				return nil
			})
		}
		// Goroutines report through the shared result, never an error.
		_ = g.Wait()
	}
	return result, nil
}

func eventID(fe ports.FeedEvent) string {
	return fe.Kind + "-" + fe.ExternalID
}

func (o *Orchestrator) populateEvent(ctx context.Context, fe ports.FeedEvent, now time.Time) error {
	if !fe.StartTime.After(now) {
		return nil
	}
	event := &entities.MarketplaceEvent{
		ID:         eventID(fe),
		ExternalID: fe.ExternalID,
		Kind:       fe.Kind,
		HomeTeam:   fe.HomeTeam,
		AwayTeam:   fe.AwayTeam,
		HomeAbbrev: fe.HomeAbbrev,
		AwayAbbrev: fe.AwayAbbrev,
		Spread:     fe.Spread,
		StartTime:  fe.StartTime.UTC(),
		Status:     entities.EventOpen,
		CreatedAt:  now.UTC(),
	}
	err := o.events.Create(ctx, event)
	if apperrors.IsConflict(err) {
		return nil
	}
	if err != nil {
		return err
	}

	ruleName, err := o.scheduler.ScheduleLock(ctx, event.ID, event.StartTime)
	if err != nil {
		return fmt.Errorf("schedule lock for %s: %w", event.ID, err)
	}
	o.logger.Info("event created",
		zap.String("event_id", event.ID),
		zap.String("rule", ruleName),
		zap.Time("start", event.StartTime))
	return nil
}

// LockOnce closes one market: it claims the event's lock marker, converts
// open bids into matched bets, and flips the event to locked. Losing the
// marker claim means another invocation already ran, which is fine.
func (o *Orchestrator) LockOnce(ctx context.Context, eventID, ruleName string, now time.Time) error {
	err := o.events.AcquireLock(ctx, eventID, ruleName, lockOwner, now, now.Add(24*time.Hour))
	if apperrors.IsConflict(err) {
		o.logger.Info("lock already claimed", zap.String("event_id", eventID))
		return nil
	}
	if err != nil {
		return err
	}

	event, err := o.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	return o.lockEvent(ctx, event, now)
}

func (o *Orchestrator) lockEvent(ctx context.Context, event *entities.MarketplaceEvent, now time.Time) error {
	if event.Status != entities.EventOpen {
		return nil
	}

	openBids, err := o.bids.ListByEvent(ctx, event.ID)
	if err != nil {
		return err
	}
	matched, leftovers := MatchBids(event, openBids, now)
	if err := o.bets.CreateAll(ctx, matched); err != nil {
		return err
	}

	var homeTotal, awayTotal int64
	for _, bet := range matched {
		if bet.Side == entities.SideHome {
			homeTotal += bet.Amount
		} else {
			awayTotal += bet.Amount
		}
	}
	event.Status = entities.EventLocked
	event.HomeAmount = homeTotal
	event.AwayAmount = awayTotal
	if err := o.events.Update(ctx, event); err != nil {
		return err
	}

	o.logger.Info("market locked",
		zap.String("event_id", event.ID),
		zap.Int("bets", len(matched)),
		zap.Int("unmatched_bids", len(leftovers)),
		zap.Int64("home_amount", homeTotal),
		zap.Int64("away_amount", awayTotal))
	return nil
}

// ResolveOnce settles every finished event on today's calendar date and the
// configured number of dates before it. Events whose lock trigger never
// fired are locked here first; events without a final score yet are
// deferred to the next run.
func (o *Orchestrator) ResolveOnce(ctx context.Context, now time.Time) (BatchResult, error) {
	var (
		mu     sync.Mutex
		result BatchResult
	)
	dates := make([]string, 0, o.lookbackDays+1)
	for i := 0; i <= o.lookbackDays; i++ {
		dates = append(dates, now.UTC().AddDate(0, 0, -i).Format("2006-01-02"))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEvents)
	for _, date := range dates {
		token := ""
		for {
			page, err := o.events.ListByDate(ctx, date, 0, token)
			if err != nil {
				return result, err
			}
			for _, event := range page.Events {
				event := event
				g.Go(func() error {
					settled, err := o.resolveEvent(gctx, event, now)
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						result.addFailure(event.ID, err)
					} else if settled {
						result.Processed++
					}
					return nil
				})
			}
			if page.NextToken == "" {
				break
			}
			token = page.NextToken
		}
	}
	_ = g.Wait()
	return result, nil
}

// resolveEvent settles one event. Bets are settled before the event flips
// to resolved, so a crash mid-settlement is retried by the next run;
// outcome writes are create-if-absent, so the retry never double-counts.
func (o *Orchestrator) resolveEvent(ctx context.Context, event *entities.MarketplaceEvent, now time.Time) (bool, error) {
	if event.Status == entities.EventResolved {
		return false, nil
	}
	if event.StartTime.After(now) {
		return false, nil
	}

	if event.Status == entities.EventOpen {
		// The sweep must hold the same marker as the one-shot trigger;
		// two lockers matching divergent bid snapshots could otherwise
		// persist a mismatched bet pair.
		err := o.events.AcquireLock(ctx, event.ID, "", lockOwner, now, now.Add(24*time.Hour))
		if apperrors.IsConflict(err) {
			reloaded, getErr := o.events.GetByID(ctx, event.ID)
			if getErr != nil {
				return false, getErr
			}
			if reloaded.Status == entities.EventOpen {
				// The marker holder is still mid-lock; defer to the
				// next run rather than race it.
				o.logger.Info("lock marker held, deferring",
					zap.String("event_id", event.ID))
				return false, nil
			}
			event = reloaded
		} else if err != nil {
			return false, err
		} else {
			if err := o.lockEvent(ctx, event, now); err != nil {
				return false, err
			}
		}
	}

	if event.ExternalID == "" {
		o.logger.Debug("event has no feed id, skipping resolution",
			zap.String("event_id", event.ID))
		return false, nil
	}

	feedResult, err := o.feed.FetchResult(ctx, event.Kind, event.ExternalID)
	if errors.Is(err, ports.ErrResultPending) {
		o.logger.Info("result pending, deferring",
			zap.String("event_id", event.ID))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	event.Result = &entities.EventResult{
		HomeScore:  feedResult.HomeScore,
		AwayScore:  feedResult.AwayScore,
		RecordedAt: now.UTC(),
	}

	eventBets, err := o.bets.ListByEvent(ctx, event.ID)
	if err != nil {
		return false, err
	}
	for _, bet := range eventBets {
		status, score := ScoreBet(bet, event)
		bet.Status = status
		if err := o.bets.Update(ctx, bet); err != nil {
			return false, err
		}
		outcome := &entities.Outcome{
			ID:        bet.ID,
			UserID:    bet.UserID,
			EventID:   bet.EventID,
			BetID:     bet.ID,
			Season:    bet.Season,
			Score:     score,
			CreatedAt: now.UTC(),
		}
		err := o.outcomes.Create(ctx, outcome)
		if apperrors.IsConflict(err) {
			continue
		}
		if err != nil {
			return false, err
		}
	}

	event.Status = entities.EventResolved
	if err := o.events.Update(ctx, event); err != nil {
		return false, err
	}
	o.logger.Info("event resolved",
		zap.String("event_id", event.ID),
		zap.Float64("home_score", feedResult.HomeScore),
		zap.Float64("away_score", feedResult.AwayScore),
		zap.Int("bets_settled", len(eventBets)))
	return true, nil
}
