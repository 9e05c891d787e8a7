package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/maheshrc27/redditflow/internal/database"
	"github.com/maheshrc27/redditflow/internal/models"
	"github.com/maheshrc27/redditflow/internal/reddit"
	"github.com/maheshrc27/redditflow/internal/repository"
	"github.com/maheshrc27/redditflow/internal/transfer"
)

const maxTitleLength = 300

// PostEnqueuer schedules a delayed publish of a post.
type PostEnqueuer interface {
	EnqueueScheduledPost(ctx context.Context, postID int64, at time.Time) error
}

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) ([]transfer.PostResult, error)
	SchedulePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*transfer.ScheduledResult, error)
	PublishToTargets(ctx context.Context, post *models.Post, targets []transfer.PostTargetInput) []transfer.PostResult
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*transfer.PostDetail, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	pr       repository.PostRepository
	pt       repository.PostTargetRepository
	pd       repository.PostDestinationRepository
	ac       repository.AccountRepository
	tokens   TokenService
	client   reddit.Client
	enqueuer PostEnqueuer
	withTx   func(ctx context.Context, fn func(tx *sql.Tx) error) error
	now      func() time.Time
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	pt repository.PostTargetRepository,
	pd repository.PostDestinationRepository,
	ac repository.AccountRepository,
	tokens TokenService,
	client reddit.Client,
	enqueuer PostEnqueuer) PostService {
	return &postService{
		pr:       pr,
		pt:       pt,
		pd:       pd,
		ac:       ac,
		tokens:   tokens,
		client:   client,
		enqueuer: enqueuer,
		withTx: func(ctx context.Context, fn func(tx *sql.Tx) error) error {
			return database.WithTx(ctx, db, fn)
		},
		now: time.Now,
	}
}

func validateCreation(pc *transfer.PostCreation) error {
	if pc == nil {
		return fmt.Errorf("%w: post creation data is nil", ErrInvalidInput)
	}
	if len(pc.Targets) == 0 {
		return ErrNoTargets
	}
	if strings.TrimSpace(pc.Title) == "" && strings.TrimSpace(pc.Content) == "" {
		return fmt.Errorf("%w: title or content is required", ErrInvalidInput)
	}
	for i, t := range pc.Targets {
		if t.AccountID == 0 || reddit.NormalizeSubreddit(t.Subreddit) == "" {
			return fmt.Errorf("%w: destination %d needs an account and a subreddit", ErrInvalidInput, i)
		}
	}
	return nil
}

// postTitle falls back to the first line of the body when no title is given.
func postTitle(title, content string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSpace(strings.SplitN(strings.TrimSpace(content), "\n", 2)[0])
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		title = string([]rune(title)[:maxTitleLength])
	}
	return title
}

// CreatePost stores the post and publishes it to every target in order. The
// returned slice always has one entry per target, unless the post itself
// could not be stored.
func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) ([]transfer.PostResult, error) {
	if userID == 0 {
		slog.Info(ErrUnauthenticated.Error())
		return nil, ErrUnauthenticated
	}
	if err := validateCreation(pc); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	post := &models.Post{
		UserID:    userID,
		Title:     postTitle(pc.Title, pc.Content),
		Content:   pc.Content,
		MediaURLs: pc.MediaURLs,
		Status:    models.PostStatusPending,
	}
	postID, err := s.pr.Create(ctx, nil, post)
	if err != nil {
		slog.Error("create post failed", "user_id", userID, "error", err)
		return []transfer.PostResult{{Success: false, Error: "Failed to save the post"}}, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	post.ID = postID

	results := s.PublishToTargets(ctx, post, pc.Targets)

	status, msg := aggregateStatus(results)
	if err := s.pr.UpdateStatus(ctx, postID, status, msg); err != nil {
		slog.Error("update post status failed", "post_id", postID, "error", err)
	}
	return results, nil
}

// PublishToTargets submits an already stored post to each target
// sequentially. A failing target never stops the ones after it.
func (s *postService) PublishToTargets(ctx context.Context, post *models.Post, targets []transfer.PostTargetInput) []transfer.PostResult {
	results := make([]transfer.PostResult, 0, len(targets))
	for _, t := range targets {
		results = append(results, s.publishTarget(ctx, post, t))
	}
	return results
}

func (s *postService) publishTarget(ctx context.Context, post *models.Post, t transfer.PostTargetInput) transfer.PostResult {
	sub := reddit.NormalizeSubreddit(t.Subreddit)
	result := transfer.PostResult{PostID: post.ID, AccountID: t.AccountID, Subreddit: sub}
	log := slog.With("post_id", post.ID, "account_id", t.AccountID, "subreddit", sub)

	acc, err := s.ac.GetByID(ctx, t.AccountID)
	if err != nil {
		log.Error("account lookup failed", "error", err)
		result.Error = "Could not load the Reddit account"
		return result
	}
	if acc == nil || acc.UserID != post.UserID {
		log.Warn(ErrAccountNotFound.Error())
		result.Error = "Reddit account not found"
		return result
	}

	session, err := s.tokens.Session(ctx, acc)
	if err != nil {
		log.Warn("access token unavailable", "error", err)
		return s.recordFailure(ctx, post, t, sub, result, errorMessage(err))
	}

	if t.FlairID == "" {
		var flairs []reddit.Flair
		err := session.Do(ctx, func(token string) error {
			var ferr error
			flairs, ferr = s.client.GetFlairOptions(ctx, token, sub)
			return ferr
		})
		if err != nil {
			log.Warn("flair lookup failed", "error", err)
			return s.recordFailure(ctx, post, t, sub, result, errorMessage(err))
		}
		if len(flairs) > 0 {
			result.RequiresFlair = true
			result.Error = "This subreddit requires a post flair"
			for _, f := range flairs {
				result.Flairs = append(result.Flairs, transfer.FlairOption{ID: f.ID, Text: f.Text})
			}
			return result
		}
	}

	accountKey := strconv.FormatInt(acc.ID, 10)
	if err := s.client.ReservePost(ctx, accountKey, sub); err != nil {
		log.Warn("post budget exhausted", "error", err)
		return s.recordFailure(ctx, post, t, sub, result, errorMessage(err))
	}

	var submitted *reddit.SubmitResult
	err = session.Do(ctx, func(token string) error {
		var serr error
		submitted, serr = s.client.SubmitPost(ctx, token, reddit.SubmitInput{
			AccountID: accountKey,
			Subreddit: sub,
			Title:     post.Title,
			Body:      post.Content,
			FlairID:   t.FlairID,
			MediaURLs: post.MediaURLs,
			Reserved:  true,
		})
		return serr
	})
	if err != nil {
		log.Warn("submit failed", "error", err)
		return s.recordFailure(ctx, post, t, sub, result, errorMessage(err))
	}

	publishedAt := s.now()
	if _, err := s.pt.Create(ctx, &models.PostTarget{
		PostID:         post.ID,
		AccountID:      t.AccountID,
		Subreddit:      sub,
		FlairID:        t.FlairID,
		Status:         models.TargetStatusPublished,
		PlatformPostID: submitted.ID,
		PublishedAt:    &publishedAt,
	}); err != nil {
		log.Error("record published target failed", "platform_post_id", submitted.ID, "error", err)
	}

	log.Info("published", "platform_post_id", submitted.ID)
	result.Success = true
	result.PlatformPostID = submitted.ID
	result.URL = submitted.URL
	return result
}

func (s *postService) recordFailure(ctx context.Context, post *models.Post, t transfer.PostTargetInput, sub string, result transfer.PostResult, msg string) transfer.PostResult {
	if _, err := s.pt.Create(ctx, &models.PostTarget{
		PostID:       post.ID,
		AccountID:    t.AccountID,
		Subreddit:    sub,
		FlairID:      t.FlairID,
		Status:       models.TargetStatusFailed,
		ErrorMessage: msg,
	}); err != nil {
		slog.Error("record failed target failed", "post_id", post.ID, "account_id", t.AccountID, "error", err)
	}
	result.Error = msg
	return result
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, ErrTokenMissing), errors.Is(err, ErrTokenRefreshFailed):
		return "Reddit authorization expired, reconnect the account"
	}
	return reddit.UserMessage(err)
}

// aggregateStatus is published when any target went out, failed otherwise.
func aggregateStatus(results []transfer.PostResult) (string, string) {
	var failures []string
	published := false
	for _, r := range results {
		if r.Success {
			published = true
			continue
		}
		failures = append(failures, fmt.Sprintf("r/%s: %s", r.Subreddit, r.Error))
	}
	msg := strings.Join(failures, "; ")
	if published {
		return models.PostStatusPublished, msg
	}
	return models.PostStatusFailed, msg
}

func (s *postService) SchedulePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*transfer.ScheduledResult, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	if err := validateCreation(pc); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if pc.ScheduledFor == nil || !pc.ScheduledFor.After(s.now()) {
		return nil, ErrScheduleInPast
	}
	scheduledFor := pc.ScheduledFor.UTC()

	for _, t := range pc.Targets {
		ok, err := s.ac.CheckByUserID(ctx, t.AccountID, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrAccountNotFound, t.AccountID)
		}
	}

	var postID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := s.pr.Create(ctx, tx, &models.Post{
			UserID:       userID,
			Title:        postTitle(pc.Title, pc.Content),
			Content:      pc.Content,
			MediaURLs:    pc.MediaURLs,
			Status:       models.PostStatusScheduled,
			ScheduledFor: &scheduledFor,
		})
		if err != nil {
			return err
		}
		for i, t := range pc.Targets {
			if err := s.pd.Create(ctx, tx, &models.PostDestination{
				PostID:    id,
				AccountID: t.AccountID,
				Subreddit: reddit.NormalizeSubreddit(t.Subreddit),
				FlairID:   t.FlairID,
				Position:  i,
			}); err != nil {
				return err
			}
		}
		postID = id
		return nil
	})
	if err != nil {
		slog.Error("schedule post failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueScheduledPost(ctx, postID, scheduledFor); err != nil {
			slog.Warn("enqueue scheduled post failed, leaving it to the sweep", "post_id", postID, "error", err)
		}
	}

	delay := scheduledFor.Sub(s.now())
	return &transfer.ScheduledResult{
		PostID:    postID,
		DelayMs:   delay.Milliseconds(),
		Scheduled: true,
		Status:    models.PostStatusScheduled,
	}, nil
}

func (s *postService) checkOwner(ctx context.Context, postID, userID int64) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	if postID == 0 {
		return fmt.Errorf("%w: post id is not valid", ErrInvalidInput)
	}
	ok, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	if !ok {
		slog.Info(ErrPostNotFound.Error(), "post_id", postID)
		return ErrPostNotFound
	}
	return nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*transfer.PostDetail, error) {
	if err := s.checkOwner(ctx, postID, userID); err != nil {
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	targets, err := s.pt.LatestByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	return &transfer.PostDetail{Post: post, Targets: targets}, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	return posts, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if err := s.checkOwner(ctx, postID, userID); err != nil {
		return err
	}
	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	return nil
}
