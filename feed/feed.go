// Package feed reads and writes tweets: the global feed, per-author feeds and
// posting.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chirp-backend/datastore"
	"chirp-backend/metrics"
	"chirp-backend/models"
)

const (
	DefaultPageSize   = 10
	DefaultBatchSize  = 5
	DefaultBatchPause = 100 * time.Millisecond
	DefaultTimeout    = 15 * time.Second
)

var (
	// ErrBusy is returned when a fetch is already in flight. The caller's
	// state is left untouched.
	ErrBusy = errors.New("feed fetch already in progress")

	// ErrEmptyTweet is returned for blank posts before any network call.
	ErrEmptyTweet = errors.New("tweet body is empty")
	ErrNoAuthor   = errors.New("tweet author is required")

	// ErrOrphanedTweet means the tweet document exists but the author's
	// profile does not reference it.
	ErrOrphanedTweet = errors.New("tweet created but not linked to profile")
)

// ImageResolver turns a stored image reference into a displayable URL.
type ImageResolver interface {
	ResolveImage(ctx context.Context, ref string, isNft bool) (string, error)
}

// Sink receives the global feed as it is processed. Reset is called once the
// query has succeeded; Append is called once per batch, in order.
type Sink interface {
	Reset()
	Append(batch []models.FeedTweet)
}

type Options struct {
	PageSize   int
	BatchSize  int
	BatchPause time.Duration
	Timeout    time.Duration
	Now        func() time.Time
	Logger     *zap.Logger
}

func (o *Options) defaults() {
	if o.PageSize == 0 {
		o.PageSize = DefaultPageSize
	}
	if o.BatchSize == 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchPause == 0 {
		o.BatchPause = DefaultBatchPause
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Service serves both feeds. A single busy flag covers both kinds of fetch:
// a fetch that finds it set is dropped, never queued or retried.
type Service struct {
	store    datastore.Store
	resolver ImageResolver
	opts     Options
	busy     atomic.Bool
}

// NewService creates a new feed Service.
func NewService(store datastore.Store, resolver ImageResolver, opts Options) *Service {
	opts.defaults()
	return &Service{store: store, resolver: resolver, opts: opts}
}

// Fetching reports whether a fetch is in flight.
func (s *Service) Fetching() bool {
	return s.busy.Load()
}

// FetchGlobal loads the newest page of tweets and streams it into sink in
// batches. The whole fetch runs under a hard timeout. If the query fails the
// sink is not touched; if the timeout fires between batches, the batches
// already appended stay.
func (s *Service) FetchGlobal(ctx context.Context, sink Sink) error {
	if !s.busy.CompareAndSwap(false, true) {
		metrics.RecordDroppedFetch("global")
		return ErrBusy
	}
	defer s.busy.Store(false)

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	items, err := s.store.GlobalFeed(ctx, s.opts.PageSize)
	if err != nil {
		s.opts.Logger.Error("error fetching tweets", zap.Error(err))
		return fmt.Errorf("global feed: %w", err)
	}

	sink.Reset()
	for start := 0; start < len(items); start += s.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			s.opts.Logger.Warn("tweet fetch timed out, using partial results", zap.Int("kept", start))
			return fmt.Errorf("global feed: partial results: %w", err)
		}
		end := min(start+s.opts.BatchSize, len(items))
		sink.Append(s.resolveBatch(ctx, items[start:end]))

		if end < len(items) {
			select {
			case <-ctx.Done():
				s.opts.Logger.Warn("tweet fetch timed out, using partial results", zap.Int("kept", end))
				return fmt.Errorf("global feed: partial results: %w", ctx.Err())
			case <-time.After(s.opts.BatchPause):
			}
		}
	}
	return nil
}

// resolveBatch resolves author images concurrently. Items whose image cannot
// be resolved are dropped from the batch.
func (s *Service) resolveBatch(ctx context.Context, batch []models.FeedTweet) []models.FeedTweet {
	resolved := make([]*models.FeedTweet, len(batch))
	var g errgroup.Group
	for i, item := range batch {
		i, item := i, item
		g.Go(func() error {
			image, err := s.resolver.ResolveImage(ctx, item.Author.ProfileImage, item.Author.IsProfileImageNft)
			if err != nil {
				s.opts.Logger.Warn("error processing tweet item", zap.String("id", item.ID), zap.Error(err))
				return nil
			}
			item.Author.ProfileImage = image
			resolved[i] = &item
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.FeedTweet, 0, len(batch))
	for _, item := range resolved {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}

// FetchAuthor loads every tweet by author with images resolved. The result
// is all or nothing so the caller can swap it in whole.
func (s *Service) FetchAuthor(ctx context.Context, author string) ([]models.FeedTweet, error) {
	if !s.busy.CompareAndSwap(false, true) {
		metrics.RecordDroppedFetch("author")
		return nil, ErrBusy
	}
	defer s.busy.Store(false)

	items, err := s.store.AuthorFeed(ctx, author)
	if err != nil {
		s.opts.Logger.Error("error fetching tweets", zap.String("author", author), zap.Error(err))
		return nil, fmt.Errorf("author feed %s: %w", author, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range items {
		i := i
		g.Go(func() error {
			image, err := s.resolver.ResolveImage(gctx, items[i].Author.ProfileImage, items[i].Author.IsProfileImageNft)
			if err != nil {
				return fmt.Errorf("resolve image for %s: %w", items[i].ID, err)
			}
			items[i].Author.ProfileImage = image
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.opts.Logger.Error("error fetching tweets", zap.String("author", author), zap.Error(err))
		return nil, fmt.Errorf("author feed %s: %w", author, err)
	}

	models.SortNewestFirst(items)
	if items == nil {
		items = []models.FeedTweet{}
	}
	return items, nil
}

// Post creates the tweet document and then links it from the author's
// profile. The two writes are not atomic: if the second fails the tweet stays
// in the global feed but is missing from the author's profile, and the
// returned error wraps ErrOrphanedTweet. No rollback is attempted.
func (s *Service) Post(ctx context.Context, author, body string) (models.Tweet, error) {
	if strings.TrimSpace(body) == "" {
		return models.Tweet{}, ErrEmptyTweet
	}
	if author == "" {
		return models.Tweet{}, ErrNoAuthor
	}

	createdAt := s.opts.Now().UTC().Truncate(time.Millisecond)
	tweet := models.Tweet{
		ID:        models.TweetID(createdAt, author),
		Body:      body,
		CreatedAt: createdAt,
		AuthorRef: author,
	}

	if err := s.store.CreateTweet(ctx, tweet); err != nil {
		s.opts.Logger.Error("error posting tweet", zap.String("id", tweet.ID), zap.Error(err))
		return models.Tweet{}, fmt.Errorf("post tweet: %w", err)
	}
	if err := s.store.AppendTweetRef(ctx, author, tweet.ID); err != nil {
		s.opts.Logger.Error("tweet orphaned: profile reference not added",
			zap.String("id", tweet.ID),
			zap.String("author", author),
			zap.Error(err))
		return tweet, fmt.Errorf("%w: %s: %w", ErrOrphanedTweet, tweet.ID, err)
	}
	return tweet, nil
}
