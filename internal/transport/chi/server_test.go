package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/papyrus-labs/scholarag/internal/domain"
	botuc "github.com/papyrus-labs/scholarag/internal/usecase/bot"
	healthuc "github.com/papyrus-labs/scholarag/internal/usecase/health"
)

type stubRetriever struct {
	chunks []domain.ScoredChunk
	err    error
}

func (r stubRetriever) Retrieve(_ context.Context, _ string, _ int) ([]domain.ScoredChunk, error) {
	return r.chunks, r.err
}

type stubGenerator struct {
	answer domain.Answer
	err    error
}

func (g stubGenerator) Generate(_ context.Context, _ string, _ []domain.ScoredChunk, _ int) (domain.Answer, error) {
	return g.answer, g.err
}

type stubStore struct {
	size int
}

func (s stubStore) Len() int { return s.size }
func (s stubStore) Dim() int { return 4 }

func newTestServer(retriever botuc.Retriever, generator botuc.Generator, storeSize int) *Server {
	logger := zap.NewNop()
	bot := botuc.New(retriever, generator, 4,
		map[string]int{"short": 128, "medium": 256, "long": 512}, "medium", logger)
	health := healthuc.New(stubStore{size: storeSize}, nil)
	return NewServer(bot, health, logger)
}

func doAsk(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/ask", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	srv.Ask(rr, req)
	return rr
}

func TestAsk_Success(t *testing.T) {
	answer := domain.Answer{
		Text: "Attention weighs token pairs.",
		Citations: []domain.Citation{
			{Title: "Attention Is All You Need", PrimaryCategory: "cs.CL", SourceType: domain.SourceTypePaper},
			{Title: "Lecture 12", SourceType: domain.SourceTypeTranscript},
		},
	}
	srv := newTestServer(stubRetriever{}, stubGenerator{answer: answer}, 10)

	rr := doAsk(t, srv, `{"query":"what is attention?"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp AskResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != answer.Text {
		t.Errorf("answer = %q, want %q", resp.Answer, answer.Text)
	}
	want := []string{"Attention Is All You Need (cs.CL)", "Lecture 12"}
	if len(resp.Sources) != len(want) {
		t.Fatalf("sources = %v, want %v", resp.Sources, want)
	}
	for i := range want {
		if resp.Sources[i] != want[i] {
			t.Errorf("sources[%d] = %q, want %q", i, resp.Sources[i], want[i])
		}
	}
}

func TestAsk_InvalidBody(t *testing.T) {
	srv := newTestServer(stubRetriever{}, stubGenerator{}, 10)

	rr := doAsk(t, srv, `{not json`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAsk_EmptyQuery(t *testing.T) {
	srv := newTestServer(stubRetriever{}, stubGenerator{}, 10)

	rr := doAsk(t, srv, `{"query":""}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != codeValidationFailed {
		t.Errorf("error code = %s, want %s", errResp.Code, codeValidationFailed)
	}
}

func TestAsk_QueryTooLong(t *testing.T) {
	srv := newTestServer(stubRetriever{}, stubGenerator{}, 10)

	rr := doAsk(t, srv, `{"query":"`+strings.Repeat("a", maxQueryLength+1)+`"}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAsk_UnknownLength_400(t *testing.T) {
	srv := newTestServer(stubRetriever{}, stubGenerator{}, 10)

	rr := doAsk(t, srv, `{"query":"q","length":"epic"}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != codeValidationFailed {
		t.Errorf("error code = %s, want %s", errResp.Code, codeValidationFailed)
	}
}

func TestAsk_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   errorCode
	}{
		{"generation timeout", domain.ErrGenerationTimeout, http.StatusGatewayTimeout, codeGenerationTimeout},
		{"generation failed", domain.ErrGenerationFailed, http.StatusBadGateway, codeGenerationFailed},
		{"model unavailable", domain.ErrModelUnavailable, http.StatusBadGateway, codeModelUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(stubRetriever{}, stubGenerator{err: tt.err}, 10)

			rr := doAsk(t, srv, `{"query":"q"}`)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != tt.wantCode {
				t.Errorf("error code = %s, want %s", errResp.Code, tt.wantCode)
			}
		})
	}
}

func TestAsk_RetrieveErrorIs500(t *testing.T) {
	srv := newTestServer(stubRetriever{err: context.Canceled}, stubGenerator{}, 10)

	rr := doAsk(t, srv, `{"query":"q"}`)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Message != "internal error" {
		t.Errorf("message = %q, want internal error without details", errResp.Message)
	}
}

func TestHealthCheck_OK(t *testing.T) {
	srv := newTestServer(stubRetriever{}, stubGenerator{}, 10)

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	srv.HealthCheck(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var report healthuc.Report
	if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Status != healthuc.Healthy {
		t.Errorf("status = %q, want %q", report.Status, healthuc.Healthy)
	}
	if report.IndexSize != 10 {
		t.Errorf("IndexSize = %d, want 10", report.IndexSize)
	}
}

func TestHealthCheck_EmptyStore_503(t *testing.T) {
	srv := newTestServer(stubRetriever{}, stubGenerator{}, 0)

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	srv.HealthCheck(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestRouter_RoutesMounted(t *testing.T) {
	srv := newTestServer(stubRetriever{}, stubGenerator{answer: domain.Answer{Text: "hi"}}, 10)
	router := srv.Router(nil)

	req := httptest.NewRequest("POST", "/ask", bytes.NewBufferString(`{"query":"q"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("POST /ask via router: status = %d, want %d", rr.Code, http.StatusOK)
	}

	req = httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("GET /healthz via router: status = %d, want %d", rr.Code, http.StatusOK)
	}
}
