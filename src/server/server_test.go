package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"crossbot/src/datamodels"
	"crossbot/src/metrics"
)

type fakeRunsDb struct {
	reports []*datamodels.BacktestReport
}

func (f *fakeRunsDb) WriteBacktestRun(ctx context.Context, report *datamodels.BacktestReport) (uuid.UUID, error) {
	f.reports = append(f.reports, report)
	return uuid.MustParse(report.RunId), nil
}

func (f *fakeRunsDb) GetBacktestRun(ctx context.Context, runId uuid.UUID) (*datamodels.BacktestRun, error) {
	return nil, nil
}

func (f *fakeRunsDb) GetTradeLog(ctx context.Context, runId uuid.UUID) ([]datamodels.TradeLogEntry, error) {
	return nil, nil
}

type reportResponse struct {
	Success bool                       `json:"success"`
	Data    *datamodels.BacktestReport `json:"data"`
	Error   string                     `json:"error"`
	Field   string                     `json:"field"`
}

type ServerTestSuite struct {
	suite.Suite
	wsWriter *metrics.WebsocketMetricsWriter
	runsDb   *fakeRunsDb
	server   *httptest.Server
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	s.wsWriter = metrics.NewWebSocketMetricsWriter()
	s.runsDb = &fakeRunsDb{}
	srv := NewServer(datamodels.ServerConfig{}).
		WithMetricsWriter(s.wsWriter).
		WithRunsDatabase(s.runsDb)
	s.server = httptest.NewServer(srv.Handler())
}

func (s *ServerTestSuite) TearDownTest() {
	s.wsWriter.Close()
	s.server.Close()
}

func scenarioRequest(shortWindow, longWindow int) BacktestRequest {
	day0 := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	closes := []float64{10, 11, 9, 9, 12, 15, 8}
	bars := make([]datamodels.Bar, len(closes))
	for i, c := range closes {
		bars[i] = datamodels.Bar{Timestamp: day0.AddDate(0, 0, i), Close: c}
	}
	return BacktestRequest{Symbol: "TEST", ShortWindow: shortWindow, LongWindow: longWindow, Bars: bars}
}

func (s *ServerTestSuite) postBacktest(body any) (*http.Response, reportResponse) {
	payload, err := json.Marshal(body)
	s.Require().NoError(err)
	resp, err := http.Post(s.server.URL+"/backtest", "application/json", bytes.NewReader(payload))
	s.Require().NoError(err)
	defer resp.Body.Close()

	var decoded reportResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (s *ServerTestSuite) TestHealth() {
	resp, err := http.Get(s.server.URL + "/health")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *ServerTestSuite) TestVersion() {
	resp, err := http.Get(s.server.URL + "/version")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var info map[string]string
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&info))
	s.Contains(info, "commit")
	s.Contains(info, "version")
}

func (s *ServerTestSuite) TestBacktest() {
	resp, decoded := s.postBacktest(scenarioRequest(2, 3))
	s.Equal(http.StatusOK, resp.StatusCode)
	s.True(decoded.Success)
	s.Require().NotNil(decoded.Data)

	signals := make([]datamodels.SignalType, len(decoded.Data.Signals))
	for i, p := range decoded.Data.Signals {
		signals[i] = p.Signal
	}
	s.Equal([]datamodels.SignalType{0, -1, 1, 0, -1}, signals)
	s.Equal(-4.0, decoded.Data.Ledger.TotalProfitLoss)
	s.Require().Len(s.runsDb.reports, 1)
	s.Equal(decoded.Data.RunId, s.runsDb.reports[0].RunId)
}

func (s *ServerTestSuite) TestBacktestRejectsInvalidWindows() {
	resp, decoded := s.postBacktest(scenarioRequest(3, 3))
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.False(decoded.Success)
	s.Equal("short_window", decoded.Field)
	s.Contains(decoded.Error, "invalid parameter")
	s.Empty(s.runsDb.reports)
}

func (s *ServerTestSuite) TestBacktestRejectsMalformedBody() {
	resp, err := http.Post(s.server.URL+"/backtest", "application/json", strings.NewReader("{"))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(s.server.URL + "/backtest")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusMethodNotAllowed, resp.StatusCode)
}

func (s *ServerTestSuite) TestBacktestRejectsBarWithoutClose() {
	body := `{"symbol":"TEST","short_window":1,"long_window":2,"bars":[` +
		`{"timestamp":"2022-01-03T00:00:00Z","open":10},` +
		`{"timestamp":"2022-01-04T00:00:00Z","open":11},` +
		`{"timestamp":"2022-01-05T00:00:00Z","open":12}]}`
	resp, err := http.Post(s.server.URL+"/backtest", "application/json", strings.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var decoded reportResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&decoded))
	s.False(decoded.Success)
	s.Equal("close", decoded.Field)
	s.Contains(decoded.Error, "missing field")
	s.Empty(s.runsDb.reports)
}

func (s *ServerTestSuite) dialWebsocket() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))

	var welcome WebSocketResponse
	s.Require().NoError(conn.ReadJSON(&welcome))
	s.True(welcome.Success)

	// the client is registered right after the welcome message is sent
	s.Require().Eventually(func() bool { return s.wsWriter.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func (s *ServerTestSuite) TestWebsocketReceivesBacktestMetrics() {
	conn := s.dialWebsocket()
	defer conn.Close()

	resp, _ := s.postBacktest(scenarioRequest(2, 3))
	s.Equal(http.StatusOK, resp.StatusCode)

	// five equity metrics followed by the performance summary
	names := []string{}
	for i := 0; i < 6; i++ {
		var metric map[string]any
		s.Require().NoError(conn.ReadJSON(&metric))
		names = append(names, metric["metric_name"].(string))
	}
	s.Equal([]string{"equity", "equity", "equity", "equity", "equity", "performance"}, names)
}

func (s *ServerTestSuite) TestWebsocketBacktestMessage() {
	conn := s.dialWebsocket()
	defer conn.Close()

	payload, err := json.Marshal(scenarioRequest(0, 3))
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteJSON(WebSocketMessage{MessageType: Backtest, Message: payload}))

	var response reportResponse
	s.Require().NoError(conn.ReadJSON(&response))
	s.False(response.Success)
	s.Equal("short_window", response.Field)
}
