package highscore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models"
)

type failingRepo struct{}

func (failingRepo) CreateScore(context.Context, string, int) (*models.HighScore, error) {
	return nil, errors.New("db down")
}

func (failingRepo) GetTopScores(context.Context, int) ([]models.HighScoreResponse, error) {
	return nil, errors.New("db down")
}

func TestRepositoryGateway_RoundTrip(t *testing.T) {
	ctx := context.Background()
	gw := NewRepositoryGateway(database.NewMemoryScoreRepository())

	require.NoError(t, gw.SubmitScore(ctx, "  alice ", 400))

	scores, err := gw.ListScores(ctx)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "alice", scores[0].Name)
	assert.Equal(t, 400, scores[0].Score)
}

func TestRepositoryGateway_ListScoresIncludesEverySubmission(t *testing.T) {
	ctx := context.Background()
	gw := NewRepositoryGateway(database.NewMemoryScoreRepository())

	for i := 0; i < 60; i++ {
		require.NoError(t, gw.SubmitScore(ctx, "pro", 1000))
	}
	require.NoError(t, gw.SubmitScore(ctx, "newbie", 100))

	scores, err := gw.ListScores(ctx)
	require.NoError(t, err)
	require.Len(t, scores, 61)
	last := scores[len(scores)-1]
	assert.Equal(t, "newbie", last.Name)
	assert.Equal(t, 100, last.Score)
	assert.Equal(t, 61, last.Rank)

	// ランキング表示用の ListTop は件数を制限する
	top, err := gw.ListTop(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, top, 50)
}

func TestRepositoryGateway_Validation(t *testing.T) {
	ctx := context.Background()
	gw := NewRepositoryGateway(database.NewMemoryScoreRepository())

	assert.ErrorIs(t, gw.SubmitScore(ctx, "   ", 100), ErrInvalidName)
	assert.ErrorIs(t, gw.SubmitScore(ctx, strings.Repeat("あ", MaxNameLength+1), 100), ErrInvalidName)
	assert.ErrorIs(t, gw.SubmitScore(ctx, "bob", -1), ErrInvalidScore)
	assert.NoError(t, gw.SubmitScore(ctx, strings.Repeat("あ", MaxNameLength), 0))
}

func TestRepositoryGateway_StoreFailure(t *testing.T) {
	gw := NewRepositoryGateway(failingRepo{})

	err := gw.SubmitScore(context.Background(), "alice", 100)
	assert.Error(t, err)
	_, err = gw.ListScores(context.Background())
	assert.Error(t, err)
}

func TestHTTPGateway_SubmitAndList(t *testing.T) {
	var submitted models.ScoreRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"success":true}`))
		case http.MethodGet:
			assert.Equal(t, "all", r.URL.Query().Get("limit"))
			w.Write([]byte(`{"success":true,"scores":[{"id":1,"name":"alice","score":300,"rank":1}]}`))
		}
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL+"/", srv.Client())
	require.NoError(t, gw.SubmitScore(context.Background(), "alice", 300))
	assert.Equal(t, models.ScoreRequest{Name: "alice", Score: 300}, submitted)

	scores, err := gw.ListScores(context.Background())
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "alice", scores[0].Name)
}

func TestHTTPGateway_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"name must be 1 to 32 characters"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, nil)
	err := gw.SubmitScore(context.Background(), "", 300)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "name must be 1 to 32 characters", statusErr.Message)
}
