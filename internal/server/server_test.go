package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/brew-resolution-kernel/internal/grounding"
	"github.com/brew-resolution-kernel/internal/jsonx"
	"github.com/brew-resolution-kernel/internal/matcher"
	"github.com/brew-resolution-kernel/internal/model"
	"github.com/brew-resolution-kernel/internal/pipeline"
	"github.com/brew-resolution-kernel/internal/quality"
	"github.com/brew-resolution-kernel/internal/store"
)

func newTestServer(t *testing.T, source store.CanonicalSource) *Server {
	t.Helper()

	logger := zaptest.NewLogger(t)

	m, err := matcher.New(matcher.DefaultConfig(), nil, logger)
	require.NoError(t, err)

	p := pipeline.New(pipeline.DefaultConfig(), m,
		quality.New(quality.DefaultWeights()), grounding.New(logger), logger)

	provider, err := store.NewProvider(source, store.DefaultConfig(), nil, logger)
	require.NoError(t, err)
	t.Cleanup(provider.Close)

	return New(DefaultConfig(), p, provider, nil, nil, logger)
}

type failingSource struct{}

func (failingSource) FetchBreweries(ctx context.Context) ([]model.CanonicalBrewery, error) {
	return nil, errors.New("storage unavailable")
}

func postValidate(t *testing.T, h http.Handler, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/validate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validBody(t *testing.T) []byte {
	t.Helper()
	body, err := jsonx.Marshal(&ValidateRequest{
		Breweries: []*model.Candidate{{
			Kind:         model.KindBrewery,
			LabelName:    "Heineken",
			Verification: model.StatusVerified,
			Brewery:      &model.BreweryFacts{Name: "Heineken"},
		}},
	})
	require.NoError(t, err)
	return body
}

func TestValidateEndpoint(t *testing.T) {
	source := store.NewStaticSource([]model.CanonicalBrewery{{ID: "b1", Name: "Heineken"}})
	srv := newTestServer(t, source)
	h := srv.Handler()

	rec := postValidate(t, h, validBody(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var outcome model.ValidationOutcome
	require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), &outcome))

	require.Len(t, outcome.VerifiedBreweries, 1)
	assert.Equal(t, model.ActionUpdateExisting, outcome.VerifiedBreweries[0].Action)
	require.NotNil(t, outcome.VerifiedBreweries[0].ExistingMatch)
	assert.Equal(t, "b1", outcome.VerifiedBreweries[0].ExistingMatch.ID)
	assert.NotEmpty(t, outcome.RunID)
}

func TestValidateRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t, store.NewStaticSource(nil))
	h := srv.Handler()

	rec := postValidate(t, h, []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateReplaysIdenticalBody(t *testing.T) {
	source := store.NewStaticSource([]model.CanonicalBrewery{{ID: "b1", Name: "Heineken"}})
	srv := newTestServer(t, source)
	h := srv.Handler()

	body := validBody(t)

	first := postValidate(t, h, body)
	require.Equal(t, http.StatusOK, first.Code)
	second := postValidate(t, h, body)
	require.Equal(t, http.StatusOK, second.Code)

	// The replayed response is byte-identical, so its RunID is too.
	assert.Equal(t, first.Body.String(), second.Body.String())

	statsReq := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	statsRec := httptest.NewRecorder()
	h.ServeHTTP(statsRec, statsReq)
	require.Equal(t, http.StatusOK, statsRec.Code)

	var stats Stats
	require.NoError(t, jsonx.Unmarshal(statsRec.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.Requests)
	assert.Equal(t, int64(1), stats.Replays)
}

func TestSnapshotFailureBlocksRun(t *testing.T) {
	srv := newTestServer(t, failingSource{})
	h := srv.Handler()

	rec := postValidate(t, h, validBody(t))
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome model.ValidationOutcome
	require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), &outcome))

	assert.Equal(t, model.FlowBlocked, outcome.Flow)
	require.Len(t, outcome.UserActions, 1)
	assert.Equal(t, model.UserActionRetry, outcome.UserActions[0].Type)
}

func TestBlockedOutcomesAreNotReplayed(t *testing.T) {
	srv := newTestServer(t, failingSource{})
	h := srv.Handler()

	body := validBody(t)
	first := postValidate(t, h, body)
	require.Equal(t, http.StatusOK, first.Code)
	second := postValidate(t, h, body)
	require.Equal(t, http.StatusOK, second.Code)

	var firstOutcome, secondOutcome model.ValidationOutcome
	require.NoError(t, jsonx.Unmarshal(first.Body.Bytes(), &firstOutcome))
	require.NoError(t, jsonx.Unmarshal(second.Body.Bytes(), &secondOutcome))

	// Both runs were executed, not served from the replay cache.
	assert.NotEqual(t, firstOutcome.RunID, secondOutcome.RunID)
}

func TestStatsCountFlows(t *testing.T) {
	srv := newTestServer(t, store.NewStaticSource(nil))
	h := srv.Handler()

	// Zero breweries drives the completion flow.
	body, err := jsonx.Marshal(&ValidateRequest{})
	require.NoError(t, err)

	rec := postValidate(t, h, body)
	require.Equal(t, http.StatusOK, rec.Code)

	statsReq := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	statsRec := httptest.NewRecorder()
	h.ServeHTTP(statsRec, statsReq)

	var stats Stats
	require.NoError(t, jsonx.Unmarshal(statsRec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Requests)
	assert.Equal(t, int64(1), stats.Completions)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, store.NewStaticSource(nil))
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, store.NewStaticSource(nil))
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/validate", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
