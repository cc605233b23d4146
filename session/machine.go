package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"chirp-backend/feed"
	"chirp-backend/models"
	"chirp-backend/wallet"
)

var (
	// ErrSessionFailed is returned by operations attempted in the error
	// state. Only Reload leaves it.
	ErrSessionFailed = errors.New("session is in error state; reload required")
	ErrConnecting    = errors.New("wallet connection already in progress")
	ErrNoAccount     = errors.New("no wallet account connected")
)

// Profiles is the part of the profile adapter the session uses.
type Profiles interface {
	EnsureProfile(ctx context.Context, address string) error
	Detail(ctx context.Context, address string) (*models.ProfileDetail, error)
}

// Feed is the part of the content feed adapter the session uses.
type Feed interface {
	FetchGlobal(ctx context.Context, sink feed.Sink) error
	FetchAuthor(ctx context.Context, author string) ([]models.FeedTweet, error)
	Post(ctx context.Context, author, body string) (models.Tweet, error)
}

// Machine owns the session state and coordinates the adapters. All state
// changes go through apply, which swaps in the state returned by a
// transition.
type Machine struct {
	wallet   wallet.Provider
	profiles Profiles
	feed     Feed
	logger   *zap.Logger

	mu    sync.Mutex
	state State

	// generation increases on every Reload so results of fetches started
	// before it are discarded.
	generation uint64
}

// NewMachine creates a Machine in the initial state.
func NewMachine(provider wallet.Provider, profiles Profiles, feed Feed, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		wallet:   provider,
		profiles: profiles,
		feed:     feed,
		logger:   logger,
		state:    Initial(),
	}
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *Machine) apply(transition func(State) State) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = transition(m.state)
	return m.state.clone()
}

// Mount silently checks for already-authorized accounts. A missing wallet is
// not an error here; the user just stays not-connected.
func (m *Machine) Mount(ctx context.Context) (State, error) {
	accounts, err := m.wallet.Accounts(ctx)
	switch {
	case errors.Is(err, wallet.ErrNoWallet):
		return m.apply(State.NotConnected), nil
	case err != nil:
		m.logger.Error("wallet probe failed", zap.Error(err))
		return m.apply(State.Failed), fmt.Errorf("probe wallet: %w", err)
	case len(accounts) == 0:
		return m.apply(State.NotConnected), nil
	}
	return m.enterConnected(ctx, accounts[0])
}

// Connect asks the wallet to authorize an account.
func (m *Machine) Connect(ctx context.Context) (State, error) {
	m.mu.Lock()
	switch m.state.Status {
	case StatusError:
		m.mu.Unlock()
		return m.Snapshot(), ErrSessionFailed
	case StatusConnecting:
		m.mu.Unlock()
		return m.Snapshot(), ErrConnecting
	}
	m.state = m.state.Connecting()
	m.mu.Unlock()

	accounts, err := m.wallet.RequestAccounts(ctx)
	switch {
	case errors.Is(err, wallet.ErrNoWallet):
		return m.apply(State.NoWallet), nil
	case err != nil:
		m.logger.Error("error connecting wallet", zap.Error(err))
		return m.apply(State.Failed), fmt.Errorf("connect wallet: %w", err)
	case len(accounts) == 0:
		return m.apply(State.NotConnected), nil
	}
	return m.enterConnected(ctx, accounts[0])
}

// Reload is the full navigation reset: back to the initial state, then the
// mount probe runs again.
func (m *Machine) Reload(ctx context.Context) (State, error) {
	m.mu.Lock()
	m.generation++
	m.state = Initial()
	m.mu.Unlock()
	return m.Mount(ctx)
}

// applyIfCurrent is apply for results of work started in generation gen.
// It reports false and changes nothing if a Reload happened since.
func (m *Machine) applyIfCurrent(gen uint64, transition func(State) State) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return m.state.clone(), false
	}
	m.state = transition(m.state)
	return m.state.clone(), true
}

func (m *Machine) currentGeneration() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Account returns the connected account. It fails with ErrSessionFailed in
// the error state and ErrNoAccount in any other state but connected.
func (m *Machine) Account() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.state.Status == StatusError:
		return "", ErrSessionFailed
	case m.state.Status != StatusConnected || m.state.CurrentAccount == "":
		return "", ErrNoAccount
	}
	return m.state.CurrentAccount, nil
}

// enterConnected always attempts profile creation; the store ignores
// duplicates, so repeating it is harmless.
func (m *Machine) enterConnected(ctx context.Context, account string) (State, error) {
	m.apply(func(s State) State { return s.Connected(account) })
	if err := m.profiles.EnsureProfile(ctx, account); err != nil {
		return m.apply(State.Failed), fmt.Errorf("create profile: %w", err)
	}
	m.logger.Info("wallet connected", zap.String("account", account))
	return m.Snapshot(), nil
}

// globalSink streams a global fetch into the state it was started for.
type globalSink struct {
	m   *Machine
	gen uint64
}

func (s globalSink) Reset() {
	s.m.applyIfCurrent(s.gen, func(st State) State { return st.WithTweets(nil) })
}

func (s globalSink) Append(batch []models.FeedTweet) {
	s.m.applyIfCurrent(s.gen, func(st State) State { return st.AppendTweets(batch) })
}

// FetchTweets refreshes the global feed. Failures are logged and the last
// good list is kept; only feed.ErrBusy is reported back.
func (m *Machine) FetchTweets(ctx context.Context) (State, error) {
	err := m.feed.FetchGlobal(ctx, globalSink{m: m, gen: m.currentGeneration()})
	if errors.Is(err, feed.ErrBusy) {
		return m.Snapshot(), err
	}
	if err != nil {
		m.logger.Warn("keeping previous tweets", zap.Error(err))
	}
	return m.Snapshot(), nil
}

// FetchUserTweets replaces the tweet list with one author's tweets. An empty
// author means the current account.
func (m *Machine) FetchUserTweets(ctx context.Context, author string) (State, error) {
	if author == "" {
		author = m.Snapshot().CurrentAccount
	}
	if author == "" {
		return m.Snapshot(), ErrNoAccount
	}
	gen := m.currentGeneration()
	tweets, err := m.feed.FetchAuthor(ctx, author)
	if errors.Is(err, feed.ErrBusy) {
		return m.Snapshot(), err
	}
	if err != nil {
		m.logger.Warn("keeping previous tweets", zap.String("author", author), zap.Error(err))
		return m.Snapshot(), nil
	}
	state, _ := m.applyIfCurrent(gen, func(s State) State { return s.WithTweets(tweets) })
	return state, nil
}

// CurrentUserDetails loads the connected user's profile. It does nothing
// unless the session is connected.
func (m *Machine) CurrentUserDetails(ctx context.Context) (State, error) {
	current := m.Snapshot()
	if current.Status != StatusConnected || current.CurrentAccount == "" {
		return current, nil
	}
	detail, err := m.profiles.Detail(ctx, current.CurrentAccount)
	if err != nil {
		m.logger.Error("error fetching user details", zap.String("account", current.CurrentAccount), zap.Error(err))
		return current, err
	}
	return m.apply(func(s State) State {
		if s.CurrentAccount != current.CurrentAccount {
			return s
		}
		return s.WithUser(detail)
	}), nil
}

// PostTweet publishes body as the connected account and refreshes the global
// feed. Only a connected session may post, since only then is the author's
// profile known to exist. An orphaned tweet is still visible in the global
// feed, so the refresh happens in that case too.
func (m *Machine) PostTweet(ctx context.Context, body string) (State, models.Tweet, error) {
	account, err := m.Account()
	if err != nil {
		return m.Snapshot(), models.Tweet{}, err
	}
	tweet, err := m.feed.Post(ctx, account, body)
	if err != nil && !errors.Is(err, feed.ErrOrphanedTweet) {
		return m.Snapshot(), models.Tweet{}, err
	}
	state, fetchErr := m.FetchTweets(ctx)
	if fetchErr != nil {
		m.logger.Debug("feed refresh after post skipped", zap.Error(fetchErr))
	}
	return state, tweet, err
}
