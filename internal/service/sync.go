package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	fdotel "github.com/fiberdesk/fiberdesk/internal/adapter/otel"
	"github.com/fiberdesk/fiberdesk/internal/domain/syncjob"
	"github.com/fiberdesk/fiberdesk/internal/port/database"
	"github.com/fiberdesk/fiberdesk/internal/port/messagequeue"
	"github.com/fiberdesk/fiberdesk/internal/port/upstream"
)

// SyncService imports a tenant's subscriber snapshot from the Alwatani
// portal into the account's cache database, page by page.
//
// Cancellation is cooperative: the job checks the tracker between paginated
// fetches and exits cleanly. An in-flight portal call is never interrupted.
type SyncService struct {
	resolver *Resolver
	store    database.TenantStore
	tracker  *ProgressTracker
	client   upstream.Client
	queue    messagequeue.Queue // optional; nil disables event publication
	metrics  *fdotel.Metrics
}

// NewSyncService creates a SyncService. queue and metrics may be nil.
func NewSyncService(resolver *Resolver, store database.TenantStore, tracker *ProgressTracker,
	client upstream.Client, queue messagequeue.Queue, metrics *fdotel.Metrics) *SyncService {
	return &SyncService{resolver: resolver, store: store, tracker: tracker,
		client: client, queue: queue, metrics: metrics}
}

// Run executes one sync job for userID. identity and accountID locate the
// Alwatani cache database through the resolver; portalPassword authenticates
// against the portal. Run blocks until the job finishes, fails, or observes
// a cancellation request, and reports through the tracker throughout.
func (s *SyncService) Run(ctx context.Context, userID, identity, accountID, portalPassword string) error {
	s.tracker.ClearCancel(userID)
	s.report(ctx, userID, syncjob.Update{
		Stage: syncjob.StageLogin, Current: syncjob.Int(0), Total: syncjob.Int(0),
	})

	pool, link, err := s.resolver.ResolveAlwataniPool(ctx, identity, accountID)
	if err != nil {
		return s.fail(ctx, userID, fmt.Errorf("resolve account: %w", err))
	}

	token, err := s.client.Login(ctx, link.AlwataniUsername, portalPassword)
	if err != nil {
		return s.fail(ctx, userID, fmt.Errorf("portal login: %w", err))
	}

	fetched := 0
	for page := 1; ; page++ {
		// Cancellation checkpoint between paginated fetches.
		if s.tracker.IsCancelled(userID) {
			s.report(ctx, userID, syncjob.Update{
				Stage: syncjob.StageCanceled, Message: "canceled after " + strconv.Itoa(fetched) + " subscribers",
			})
			slog.Info("sync canceled", "user_id", userID, "fetched", fetched)
			return nil
		}

		pg, err := s.client.FetchSubscribers(ctx, token, page)
		if err != nil {
			return s.fail(ctx, userID, fmt.Errorf("fetch page %d: %w", page, err))
		}
		s.metrics.AddSyncPage(ctx)

		fetched += len(pg.Subscribers)
		s.report(ctx, userID, syncjob.Update{
			Stage:   syncjob.StageFetching,
			Current: syncjob.Int(fetched),
			Total:   syncjob.Int(pg.TotalCount),
		})

		if err := s.store.UpsertSubscribers(ctx, pool, pg.Subscribers); err != nil {
			return s.fail(ctx, userID, fmt.Errorf("store page %d: %w", page, err))
		}

		if page >= pg.TotalPages || len(pg.Subscribers) == 0 {
			break
		}
	}

	s.report(ctx, userID, syncjob.Update{
		Stage: syncjob.StageDone, Message: strconv.Itoa(fetched) + " subscribers synced",
	})
	slog.Info("sync finished", "user_id", userID, "fetched", fetched)
	return nil
}

// report updates the tracker and publishes the fresh snapshot.
func (s *SyncService) report(ctx context.Context, userID string, u syncjob.Update) {
	s.tracker.Update(userID, u)
	if s.queue == nil {
		return
	}
	if p, ok := s.tracker.Read(userID); ok {
		data, err := json.Marshal(p)
		if err != nil {
			return
		}
		if err := s.queue.Publish(ctx, "sync.progress."+userID, data); err != nil {
			slog.Warn("publish sync progress failed", "user_id", userID, "error", err)
		}
	}
}

func (s *SyncService) fail(ctx context.Context, userID string, err error) error {
	s.report(ctx, userID, syncjob.Update{Stage: syncjob.StageFailed, Message: err.Error()})
	slog.Error("sync failed", "user_id", userID, "error", err)
	return err
}
