// Package postgres stores profile and tweet documents in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"chirp-backend/datastore"
	"chirp-backend/metrics"
	"chirp-backend/models"
)

//go:embed schema.sql
var schema string

const (
	adapterName        = "postgres"
	uniqueViolation    = "23505"
	foreignKeyViolated = "23503"
)

type Store struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

var _ datastore.Store = (*Store)(nil)

// Connect opens a pool and checks it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// NewStore creates a new Store on db.
func NewStore(db *pgxpool.Pool, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// CreateProfileIfNotExists inserts profile unless its ID is already taken.
func (s *Store) CreateProfileIfNotExists(ctx context.Context, profile models.UserProfile) (err error) {
	defer observe("create_profile", time.Now(), &err)

	query := `
		INSERT INTO profiles (id, wallet_address, name, profile_image, is_profile_image_nft)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.Exec(ctx, query,
		profile.ID,
		profile.WalletAddress,
		profile.Name,
		profile.ProfileImage,
		profile.IsProfileImageNft,
	)
	if err != nil {
		return fmt.Errorf("create profile %s: %w", profile.ID, err)
	}
	return nil
}

// PatchProfile updates the fields set in patch.
func (s *Store) PatchProfile(ctx context.Context, id string, patch models.ProfilePatch) (err error) {
	defer observe("patch_profile", time.Now(), &err)

	query := `
		UPDATE profiles
		SET profile_image = COALESCE($2, profile_image),
		    is_profile_image_nft = COALESCE($3, is_profile_image_nft),
		    cover_image = COALESCE($4, cover_image)
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query, id, patch.ProfileImage, patch.IsProfileImageNft, patch.CoverImage)
	if err != nil {
		return fmt.Errorf("patch profile %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patch profile %s: %w", id, datastore.ErrNotFound)
	}
	return nil
}

// AppendTweetRef adds tweetID to the profile's tweet references.
func (s *Store) AppendTweetRef(ctx context.Context, profileID, tweetID string) (err error) {
	defer observe("append_tweet_ref", time.Now(), &err)

	query := `
		UPDATE profiles
		SET tweet_refs = array_append(COALESCE(tweet_refs, '{}'), $2)
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query, profileID, tweetID)
	if err != nil {
		return fmt.Errorf("append tweet %s to %s: %w", tweetID, profileID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("append tweet %s to %s: %w", tweetID, profileID, datastore.ErrNotFound)
	}
	return nil
}

// ProfileDetail loads a profile with its tweets.
func (s *Store) ProfileDetail(ctx context.Context, id string) (_ *models.ProfileDetail, err error) {
	defer observe("profile_detail", time.Now(), &err)

	var detail models.ProfileDetail
	var refs []string
	err = s.db.QueryRow(ctx, `
		SELECT name, profile_image, is_profile_image_nft, cover_image, wallet_address, COALESCE(tweet_refs, '{}')
		FROM profiles
		WHERE id = $1
	`, id).Scan(
		&detail.Name,
		&detail.ProfileImage,
		&detail.IsProfileImageNft,
		&detail.CoverImage,
		&detail.WalletAddress,
		&refs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", id, datastore.ErrNotFound)
		}
		return nil, fmt.Errorf("profile %s: %w", id, err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, body, created_at
		FROM tweets
		WHERE id = ANY($1)
		ORDER BY created_at DESC, seq ASC
	`, refs)
	if err != nil {
		return nil, fmt.Errorf("profile %s tweets: %w", id, err)
	}
	defer rows.Close()

	detail.Tweets = []models.ProfileTweet{}
	for rows.Next() {
		var tweet models.ProfileTweet
		var createdAt time.Time
		if err := rows.Scan(&tweet.ID, &tweet.Tweet, &createdAt); err != nil {
			return nil, fmt.Errorf("scan profile tweet: %w", err)
		}
		tweet.Timestamp = models.FormatTimestamp(createdAt)
		detail.Tweets = append(detail.Tweets, tweet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profile %s tweets: %w", id, err)
	}
	if err := datastore.ValidProfileDetail(&detail, s.logger); err != nil {
		return nil, fmt.Errorf("profile %s: malformed row: %w", id, err)
	}
	return &detail, nil
}

// CreateTweet inserts a tweet row.
func (s *Store) CreateTweet(ctx context.Context, tweet models.Tweet) (err error) {
	defer observe("create_tweet", time.Now(), &err)

	_, err = s.db.Exec(ctx, `
		INSERT INTO tweets (id, body, created_at, author_id)
		VALUES ($1, $2, $3, $4)
	`, tweet.ID, tweet.Body, tweet.CreatedAt, tweet.AuthorRef)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case uniqueViolation:
				return fmt.Errorf("create tweet %s: %w", tweet.ID, datastore.ErrConflict)
			case foreignKeyViolated:
				return fmt.Errorf("create tweet %s: author %s: %w", tweet.ID, tweet.AuthorRef, datastore.ErrNotFound)
			}
		}
		return fmt.Errorf("create tweet %s: %w", tweet.ID, err)
	}
	return nil
}

const feedSelect = `
	SELECT t.id, t.body, t.created_at, p.name, p.wallet_address, p.profile_image, p.is_profile_image_nft
	FROM tweets t
	JOIN profiles p ON p.id = t.author_id
`

// GlobalFeed returns the newest limit tweets with their authors.
func (s *Store) GlobalFeed(ctx context.Context, limit int) (_ []models.FeedTweet, err error) {
	defer observe("global_feed", time.Now(), &err)

	query := feedSelect + " ORDER BY t.created_at DESC, t.seq ASC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}
	return s.feed(ctx, query, args...)
}

// AuthorFeed returns every tweet by author.
func (s *Store) AuthorFeed(ctx context.Context, author string) (_ []models.FeedTweet, err error) {
	defer observe("author_feed", time.Now(), &err)

	return s.feed(ctx, feedSelect+" WHERE t.author_id = $1 ORDER BY t.created_at DESC, t.seq ASC", author)
}

func (s *Store) feed(ctx context.Context, query string, args ...interface{}) ([]models.FeedTweet, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tweets: %w", err)
	}
	defer rows.Close()

	var items []models.FeedTweet
	for rows.Next() {
		var item models.FeedTweet
		var createdAt time.Time
		err := rows.Scan(
			&item.ID,
			&item.Tweet,
			&createdAt,
			&item.Author.Name,
			&item.Author.WalletAddress,
			&item.Author.ProfileImage,
			&item.Author.IsProfileImageNft,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tweet: %w", err)
		}
		item.Timestamp = models.FormatTimestamp(createdAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query tweets: %w", err)
	}
	return datastore.ValidFeedTweets(items, s.logger), nil
}

func observe(operation string, started time.Time, err *error) {
	metrics.ObserveAdapterCall(adapterName, operation, started, *err)
}
