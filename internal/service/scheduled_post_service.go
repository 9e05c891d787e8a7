package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	config "github.com/maheshrc27/redditflow/configs"
	"github.com/maheshrc27/redditflow/internal/models"
	"github.com/maheshrc27/redditflow/internal/repository"
	"github.com/maheshrc27/redditflow/internal/transfer"
	"golang.org/x/sync/errgroup"
)

const dueBatchLimit = 100

// ScheduledPostService publishes posts whose scheduled time has passed. Each
// post is claimed atomically first, so overlapping sweeps and queued tasks
// publish it at most once.
type ScheduledPostService interface {
	PublishScheduledPosts(ctx context.Context) (*transfer.SweepSummary, error)
	PublishPost(ctx context.Context, postID int64) (*transfer.ScheduledOutcome, error)
}

type scheduledPostService struct {
	pr         repository.PostRepository
	pd         repository.PostDestinationRepository
	posts      PostService
	batchSize  int
	batchDelay time.Duration
	now        func() time.Time
}

func NewScheduledPostService(
	cfg config.Config,
	pr repository.PostRepository,
	pd repository.PostDestinationRepository,
	posts PostService) ScheduledPostService {
	batchSize := cfg.PublishBatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	return &scheduledPostService{
		pr:         pr,
		pd:         pd,
		posts:      posts,
		batchSize:  batchSize,
		batchDelay: cfg.PublishBatchDelay,
		now:        time.Now,
	}
}

func (s *scheduledPostService) PublishScheduledPosts(ctx context.Context) (*transfer.SweepSummary, error) {
	due, err := s.pr.ListDue(ctx, s.now(), dueBatchLimit)
	if err != nil {
		slog.Error("list due posts failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}

	summary := &transfer.SweepSummary{Outcomes: make([]transfer.ScheduledOutcome, len(due))}
	for start := 0; start < len(due); start += s.batchSize {
		if start > 0 && s.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.batchDelay):
			}
		}

		end := min(start+s.batchSize, len(due))
		g := new(errgroup.Group)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				summary.Outcomes[i] = s.process(ctx, due[i].ID)
				return nil
			})
		}
		g.Wait()
	}

	for _, o := range summary.Outcomes {
		summary.Processed++
		switch {
		case o.Skipped:
			summary.Skipped++
		case o.Status == models.PostStatusPublished:
			summary.Published++
		default:
			summary.Failed++
		}
	}
	slog.Info("scheduled sweep finished",
		"processed", summary.Processed,
		"published", summary.Published,
		"failed", summary.Failed,
		"skipped", summary.Skipped)
	return summary, nil
}

// PublishPost handles one post whose queued task fired.
func (s *scheduledPostService) PublishPost(ctx context.Context, postID int64) (*transfer.ScheduledOutcome, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	if post == nil || post.Status != models.PostStatusScheduled {
		return &transfer.ScheduledOutcome{PostID: postID, Skipped: true}, nil
	}
	outcome := s.process(ctx, postID)
	return &outcome, nil
}

func (s *scheduledPostService) process(ctx context.Context, postID int64) (outcome transfer.ScheduledOutcome) {
	outcome.PostID = postID
	log := slog.With("post_id", postID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while publishing scheduled post", "panic", r)
			s.fail(ctx, &outcome, fmt.Sprintf("internal error: %v", r))
		}
	}()

	post, err := s.pr.ClaimScheduled(ctx, postID, s.now())
	if err != nil {
		// left scheduled; the next sweep retries the claim
		log.Error("claim scheduled post failed", "error", err)
		outcome.Status = models.PostStatusScheduled
		outcome.Error = err.Error()
		return outcome
	}
	if post == nil {
		log.Info("scheduled post already claimed")
		outcome.Skipped = true
		return outcome
	}

	dests, err := s.pd.ListByPostID(ctx, postID)
	if err != nil {
		s.fail(ctx, &outcome, "failed to load destinations: "+err.Error())
		return outcome
	}
	if len(dests) == 0 {
		s.fail(ctx, &outcome, ErrNoTargets.Error())
		return outcome
	}

	targets := make([]transfer.PostTargetInput, 0, len(dests))
	for _, d := range dests {
		targets = append(targets, transfer.PostTargetInput{AccountID: d.AccountID, Subreddit: d.Subreddit, FlairID: d.FlairID})
	}

	outcome.Results = s.posts.PublishToTargets(ctx, post, targets)
	status, msg := aggregateStatus(outcome.Results)
	outcome.Status = status
	outcome.Error = msg
	if err := s.pr.UpdateStatus(ctx, postID, status, msg); err != nil {
		log.Error("update scheduled post status failed", "status", status, "error", err)
	}
	log.Info("scheduled post processed", "status", status)
	return outcome
}

func (s *scheduledPostService) fail(ctx context.Context, outcome *transfer.ScheduledOutcome, msg string) {
	outcome.Status = models.PostStatusFailed
	outcome.Error = msg
	if err := s.pr.UpdateStatus(ctx, outcome.PostID, models.PostStatusFailed, msg); err != nil {
		slog.Error("mark scheduled post failed", "post_id", outcome.PostID, "error", err)
	}
}
