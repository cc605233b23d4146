// Package session holds the application state machine: wallet connection,
// the current account and profile, and the tweet list shown to the user.
package session

import (
	"chirp-backend/models"
)

// Status is the wallet connection status of a session.
type Status string

const (
	StatusNotConnected Status = "not-connected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusNoWallet     Status = "no-wallet"
	StatusError        Status = "error"
)

// RootPath is where the client is sent after a failure.
const RootPath = "/"

// State is an immutable snapshot. Transition methods return a modified copy
// and never touch the receiver's tweet slice.
type State struct {
	Status         Status                `json:"status"`
	CurrentAccount string                `json:"current_account"`
	CurrentUser    *models.ProfileDetail `json:"current_user,omitempty"`
	Tweets         []models.FeedTweet    `json:"tweets"`
	Redirect       string                `json:"redirect,omitempty"`
}

// Initial is the state on page load, before the wallet has been probed.
func Initial() State {
	return State{Status: StatusNotConnected, Tweets: []models.FeedTweet{}}
}

// Connecting marks a wallet request as in flight.
func (s State) Connecting() State {
	s.Status = StatusConnecting
	s.Redirect = ""
	return s
}

// Connected records account as the authorized account.
func (s State) Connected(account string) State {
	s.Status = StatusConnected
	s.CurrentAccount = account
	s.Redirect = ""
	return s
}

// NotConnected clears the account and profile.
func (s State) NotConnected() State {
	s.Status = StatusNotConnected
	s.CurrentAccount = ""
	s.CurrentUser = nil
	return s
}

// NoWallet records that no wallet provider is available.
func (s State) NoWallet() State {
	s.Status = StatusNoWallet
	s.CurrentAccount = ""
	s.CurrentUser = nil
	return s
}

// Failed moves to error and asks the client to navigate back to the root.
// The account is dropped because its profile may not exist.
func (s State) Failed() State {
	s.Status = StatusError
	s.CurrentAccount = ""
	s.CurrentUser = nil
	s.Redirect = RootPath
	return s
}

// WithUser sets the loaded profile of the current account.
func (s State) WithUser(user *models.ProfileDetail) State {
	s.CurrentUser = user
	return s
}

// WithTweets replaces the tweet list with a copy of tweets.
func (s State) WithTweets(tweets []models.FeedTweet) State {
	s.Tweets = append([]models.FeedTweet{}, tweets...)
	return s
}

// AppendTweets adds batch to the end of the tweet list.
func (s State) AppendTweets(batch []models.FeedTweet) State {
	tweets := make([]models.FeedTweet, 0, len(s.Tweets)+len(batch))
	tweets = append(tweets, s.Tweets...)
	s.Tweets = append(tweets, batch...)
	return s
}

// clone copies everything a caller could mutate.
func (s State) clone() State {
	s.Tweets = append([]models.FeedTweet{}, s.Tweets...)
	if s.CurrentUser != nil {
		user := *s.CurrentUser
		user.Tweets = append([]models.ProfileTweet{}, user.Tweets...)
		s.CurrentUser = &user
	}
	return s
}
