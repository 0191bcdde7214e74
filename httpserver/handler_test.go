package httpserver

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/confidential-trials/fhe"
	"github.com/ruteri/confidential-trials/interfaces"
	"github.com/ruteri/confidential-trials/metrics"
	"github.com/ruteri/confidential-trials/registry"
	"github.com/ruteri/confidential-trials/trials"
	"github.com/ruteri/confidential-trials/wallet"
)

var contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

type testServer struct {
	*httptest.Server
	orchestrator *trials.Orchestrator
	registry     *registry.MockRegistryClient
	session      *wallet.Session
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	session := wallet.NewSession(big.NewInt(1337), nil, logger)
	_, err = session.Connect(context.Background(), wallet.NewHexKeySource(hex.EncodeToString(crypto.FromECDSA(key)), "test"))
	require.NoError(t, err)

	reg := registry.NewMockRegistryClient(contractAddr)
	recorder := metrics.NewRecorder("confidential_trials_test")
	orchestrator := trials.NewOrchestrator(trials.Config{Log: logger, Metrics: recorder}, reg, fhe.NewMockRelayer(reg), session)

	srv, err := New(&HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      logger,
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}, NewHandler(orchestrator, logger), recorder)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.getRouter())
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, orchestrator: orchestrator, registry: reg, session: session}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestCreateRequiresInitialization(t *testing.T) {
	ts := newTestServer(t)

	var session trials.Session
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/session", nil, &session))
	assert.True(t, session.Connected)
	assert.False(t, session.FHEInitialized)
	assert.Equal(t, contractAddr, session.ContractAddress)

	var errResp errorResponse
	status := ts.do(t, http.MethodPost, "/api/trials", interfaces.TrialInput{Name: "Ann", Age: 34, ConditionScore: 7}, &errResp)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, errResp.Error, "not initialized")

	status = ts.do(t, http.MethodPost, "/api/trials/trial-1/verify", nil, &errResp)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestCreateListVerify(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.orchestrator.Initialize(context.Background()))

	var created createResponse
	status := ts.do(t, http.MethodPost, "/api/trials", interfaces.TrialInput{
		Name:           "Ann Lee",
		Age:            34,
		ConditionScore: 7,
		TreatmentPhase: 2,
		Description:    "Cardiology cohort",
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, created.Trial)
	assert.Equal(t, created.ID, created.Trial.ID)

	var listed []map[string]interface{}
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/trials?search=CARDIO", nil, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, false, listed[0]["is_verified"])
	assert.NotContains(t, listed[0], "decrypted_age")

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/trials?search=oncology", nil, &listed))
	assert.Empty(t, listed)

	var stats trials.Stats
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/stats", nil, &stats))
	assert.Equal(t, trials.Stats{TotalTrials: 1, AvgCondition: 7, ActiveTrials: 1}, stats)

	var verified verifyResponse
	path := fmt.Sprintf("/api/trials/%s/verify", created.ID)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, path, nil, &verified))
	assert.Equal(t, uint32(34), verified.Age)

	var status2 trials.Status
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/status", nil, &status2))
	assert.Equal(t, trials.MsgVerified, status2.Banner.Message)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, path, nil, &verified))
	assert.Equal(t, uint32(34), verified.Age)

	var selected map[string]interface{}
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/trials/"+created.ID.String(), nil, &selected))
	assert.Equal(t, float64(34), selected["decrypted_age"])

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/selection", nil, nil))
	_, ok := ts.orchestrator.Selected()
	assert.False(t, ok)

	var errResp errorResponse
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/trials/trial-unknown", nil, &errResp))
}

func TestFormWorkflow(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.orchestrator.Initialize(context.Background()))

	var form trials.Form
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/form/open", nil, &form))
	assert.True(t, form.Open)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, "/api/form", trials.FormFields{
		Name: "Bo", Age: "4o2", Condition: "3", Phase: "0", Description: "Neurology",
	}, &form))
	assert.Equal(t, "42", form.Fields.Age)

	var created createResponse
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/form/submit", nil, &created))
	require.NotNil(t, created.Trial)
	assert.Equal(t, "Bo", created.Trial.Name)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/form", nil, &form))
	assert.Equal(t, trials.Form{}, form)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, "/api/form", trials.FormFields{Name: "Cy", Age: "50"}, &form))
	var errResp errorResponse
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/form/submit", nil, &errResp))
	assert.Equal(t, "error", string(errResp.Banner.Status))

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/form/close", nil, &form))
	assert.False(t, form.Open)
	assert.Equal(t, "Cy", form.Fields.Name)
}

func TestRefreshAndProbe(t *testing.T) {
	ts := newTestServer(t)

	var listed []interfaces.Trial
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/trials/refresh", nil, &listed))
	assert.Empty(t, listed)

	var banner map[string]interface{}
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/probe", nil, &banner))
	assert.Equal(t, trials.MsgContractAvailable, banner["message"])

	ts.registry.SetAvailable(false)
	var errResp errorResponse
	require.Equal(t, http.StatusBadGateway, ts.do(t, http.MethodPost, "/api/probe", nil, &errResp))
	assert.Equal(t, trials.MsgContractTestFailed, errResp.Banner.Message)
}

func TestVerifyAfterDisconnect(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.orchestrator.Initialize(context.Background()))
	ts.session.Disconnect()

	var errResp errorResponse
	assert.Equal(t, http.StatusPreconditionFailed, ts.do(t, http.MethodPost, "/api/trials/trial-1/verify", nil, &errResp))
	assert.Equal(t, trials.MsgConnectWallet, errResp.Banner.Message)
}

func TestInvalidBody(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.orchestrator.Initialize(context.Background()))

	resp, err := http.Post(ts.URL+"/api/trials", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	get := func(path string) (int, string) {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
		return resp.StatusCode, string(body)
	}

	status, body := get("/livez")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"alive"}`, body)

	status, _ = get("/readyz")
	assert.Equal(t, http.StatusOK, status)

	_, body = get("/drain")
	assert.JSONEq(t, `{"status":"draining"}`, body)
	_, body = get("/drain")
	assert.JSONEq(t, `{"status":"already draining"}`, body)

	status, _ = get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	_, body = get("/undrain")
	assert.JSONEq(t, `{"status":"ready"}`, body)
	status, _ = get("/readyz")
	assert.Equal(t, http.StatusOK, status)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{interfaces.ErrWorkflowBusy, http.StatusConflict},
		{interfaces.ErrNotConnected, http.StatusPreconditionFailed},
		{fmt.Errorf("%w: %w", interfaces.ErrSubmissionFailure, interfaces.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("signing: %w", interfaces.ErrUserRejected), http.StatusForbidden},
		{interfaces.ErrInitialization, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: rpc down", interfaces.ErrFetchFailure), http.StatusBadGateway},
		{interfaces.ErrSubmissionFailure, http.StatusBadGateway},
		{&RequestError{StatusCode: http.StatusNotFound, Err: errors.New("missing")}, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), tt.err.Error())
	}
}
