package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirp-backend/datastore"
	"chirp-backend/datastore/memory"
	"chirp-backend/feed"
	"chirp-backend/minting"
	"chirp-backend/models"
	"chirp-backend/pinning"
	"chirp-backend/profiles"
	"chirp-backend/session"
	"chirp-backend/wallet"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubWallet struct {
	accounts    []string
	accountsErr error
}

func (w *stubWallet) Accounts(context.Context) ([]string, error) {
	return w.accounts, w.accountsErr
}

func (w *stubWallet) RequestAccounts(context.Context) ([]string, error) {
	return w.accounts, nil
}

func (w *stubWallet) TransactOpts(context.Context, string, *big.Int) (*bind.TransactOpts, error) {
	return nil, wallet.ErrUnknownAccount
}

type stubPinner struct{}

func (stubPinner) PinFile(context.Context, string, io.Reader, *models.PinMetadata) (string, error) {
	return "QmFile", nil
}

func (stubPinner) PinJSON(context.Context, any) (string, error) {
	return "QmJSON", nil
}

func (stubPinner) TestAuthentication(context.Context) bool {
	return true
}

type stubBalances struct{}

func (stubBalances) BalanceOf(context.Context, string) (*big.Int, error) {
	return big.NewInt(2), nil
}

type testServer struct {
	router  *gin.Engine
	store   *memory.Store
	wallet  *stubWallet
	machine *session.Machine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	gateway := pinning.NewGateway("https://ipfs.example")
	w := &stubWallet{}
	profileService := profiles.NewService(store, gateway, nil)
	machine := session.NewMachine(w, profileService, feed.NewService(store, gateway, feed.Options{}), nil)
	minter := minting.NewMinter(stubPinner{}, profileService, w, nil, nil)

	return &testServer{
		router: NewRouter(RouterConfig{
			Machine:  machine,
			Profiles: profileService,
			Balances: stubBalances{},
			Minter:   minter,
			Pinner:   stubPinner{},
		}),
		store:   store,
		wallet:  w,
		machine: machine,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	s.router.ServeHTTP(recorder, request)

	var decoded map[string]any
	_ = json.Unmarshal(recorder.Body.Bytes(), &decoded)
	return recorder, decoded
}

func (s *testServer) connect(t *testing.T, account string) {
	t.Helper()
	s.wallet.accounts = []string{account}
	recorder, body := s.do(t, http.MethodPost, "/api/v1/session/connect", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, string(session.StatusConnected), body["status"])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	recorder, body := s.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestSessionStartsNotConnected(t *testing.T) {
	s := newTestServer(t)

	recorder, body := s.do(t, http.MethodGet, "/api/v1/session", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, string(session.StatusNotConnected), body["status"])
}

func TestConnectWithoutAccounts(t *testing.T) {
	s := newTestServer(t)

	recorder, body := s.do(t, http.MethodPost, "/api/v1/session/connect", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, string(session.StatusNotConnected), body["status"])
	assert.Zero(t, s.store.ProfileCount())
}

func TestCreateTweetRequiresConnection(t *testing.T) {
	s := newTestServer(t)

	recorder, _ := s.do(t, http.MethodPost, "/api/v1/tweets", models.CreateTweetRequest{Tweet: "hello"})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Zero(t, s.store.TweetCount())
}

func TestWritesRejectedInErrorState(t *testing.T) {
	s := newTestServer(t)
	s.connect(t, "0xABC")
	s.wallet.accountsErr = errors.New("provider crashed")
	s.do(t, http.MethodPost, "/api/v1/session/reload", nil)
	require.Equal(t, session.StatusError, s.machine.Snapshot().Status)

	recorder, _ := s.do(t, http.MethodPost, "/api/v1/tweets", models.CreateTweetRequest{Tweet: "hello"})
	assert.Equal(t, http.StatusPreconditionFailed, recorder.Code)
	assert.Zero(t, s.store.TweetCount())

	recorder, _ = s.do(t, http.MethodPut, "/api/v1/me/cover-image", models.UpdateCoverImageRequest{CoverImage: "https://example.com/cover.png"})
	assert.Equal(t, http.StatusPreconditionFailed, recorder.Code)
	profile, ok := s.store.Profile("0xABC")
	require.True(t, ok)
	assert.Empty(t, profile.CoverImage)

	recorder, _ = s.do(t, http.MethodPost, "/api/v1/me/mint", nil)
	assert.Equal(t, http.StatusPreconditionFailed, recorder.Code)
}

func TestCreateAndListTweets(t *testing.T) {
	s := newTestServer(t)
	s.connect(t, "0xABC")

	recorder, body := s.do(t, http.MethodPost, "/api/v1/tweets", models.CreateTweetRequest{Tweet: "hello world"})
	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Len(t, body["tweets"], 1)

	recorder, body = s.do(t, http.MethodGet, "/api/v1/tweets", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	tweets := body["tweets"].([]any)
	require.Len(t, tweets, 1)
	assert.Equal(t, "hello world", tweets[0].(map[string]any)["tweet"])

	recorder, body = s.do(t, http.MethodGet, "/api/v1/profiles/0xABC/tweets", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, body["tweets"], 1)
}

func TestCreateEmptyTweet(t *testing.T) {
	s := newTestServer(t)
	s.connect(t, "0xABC")

	recorder, body := s.do(t, http.MethodPost, "/api/v1/tweets", models.CreateTweetRequest{Tweet: "  "})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, feed.ErrEmptyTweet.Error(), body["error"])
}

func TestCurrentUser(t *testing.T) {
	s := newTestServer(t)

	recorder, _ := s.do(t, http.MethodGet, "/api/v1/me", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	s.connect(t, "0xABC")
	recorder, body := s.do(t, http.MethodGet, "/api/v1/me", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	user := body["user"].(map[string]any)
	assert.Equal(t, "0xABC", user["walletAddress"])
	assert.Equal(t, models.DefaultProfileName, user["name"])
	assert.Equal(t, "2", body["nft_balance"])
}

func TestUpdateCoverImage(t *testing.T) {
	s := newTestServer(t)
	s.connect(t, "0xABC")

	recorder, body := s.do(t, http.MethodPut, "/api/v1/me/cover-image", models.UpdateCoverImageRequest{CoverImage: "https://example.com/cover.png"})

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "https://example.com/cover.png", body["user"].(map[string]any)["coverImage"])
}

func TestUpdateCoverImageRequiresConnection(t *testing.T) {
	s := newTestServer(t)

	recorder, _ := s.do(t, http.MethodPut, "/api/v1/me/cover-image", models.UpdateCoverImageRequest{CoverImage: "https://example.com/cover.png"})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestMintRequiresConnection(t *testing.T) {
	s := newTestServer(t)

	recorder, _ := s.do(t, http.MethodPost, "/api/v1/me/mint", nil)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestMintMissingImage(t *testing.T) {
	s := newTestServer(t)
	s.connect(t, "0xABC")

	recorder, _ := s.do(t, http.MethodPost, "/api/v1/me/mint", nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder, body := s.do(t, http.MethodGet, "/api/v1/mint/status", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, models.MintStatusInitial, body["status"])
}

func TestPinJSON(t *testing.T) {
	s := newTestServer(t)

	recorder, body := s.do(t, http.MethodPost, "/api/v1/pinning/json", map[string]any{"name": "token"})

	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "QmJSON", body["IpfsHash"])
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		feed.ErrEmptyTweet:       http.StatusBadRequest,
		minting.ErrMissingInput:  http.StatusBadRequest,
		session.ErrNoAccount:     http.StatusUnauthorized,
		datastore.ErrNotFound:    http.StatusNotFound,
		feed.ErrBusy:             http.StatusConflict,
		minting.ErrInProgress:    http.StatusConflict,
		wallet.ErrNoWallet:       http.StatusPreconditionFailed,
		session.ErrSessionFailed: http.StatusPreconditionFailed,
		minting.ErrNoContract:    http.StatusServiceUnavailable,
		errors.New("unexpected"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
	assert.Equal(t, http.StatusConflict, statusFor(fmt.Errorf("wrapped: %w", feed.ErrBusy)))
}
