//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eunoia-health/eunoia/internal/api/handlers"
	"github.com/eunoia-health/eunoia/internal/domain"
	"github.com/eunoia-health/eunoia/internal/index"
	"github.com/eunoia-health/eunoia/internal/policy"
	"github.com/eunoia-health/eunoia/internal/repository"
	"github.com/eunoia-health/eunoia/internal/server"
	"github.com/eunoia-health/eunoia/internal/service"
	"github.com/eunoia-health/eunoia/internal/translate"
)

const testDimensions = 8

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	ServerURL  string
	HTTPClient *http.Client
	closer     func()
}

// stubEmbedder maps every text to the same vector, so every corpus row is a
// perfect neighbour and retrieval behaviour is deterministic.
type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, testDimensions), nil
}

// stubGenerator returns a fixed well-formed answer that passes the quality
// gates.
type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "Period pain is very common and usually nothing to worry about. " +
		"A warm compress on your lower belly can ease cramps within minutes. " +
		"Gentle movement like walking or stretching also helps many people. " +
		"If the pain regularly keeps you home from school or work, check in with a clinic.", nil
}

var testCorpus = []domain.CorpusEntry{
	{Question: "Why do periods hurt?", Answer: "Period pain comes from the uterus contracting. A warm compress can ease cramps. Gentle exercise also helps."},
	{Question: "How long does a period last?", Answer: "Most periods last between three and seven days. The flow is usually heaviest in the first two days."},
	{Question: "Can I swim on my period?", Answer: "Yes, swimming during your period is safe. Water pressure reduces flow while you swim."},
}

// SetupE2EEnv builds an in-process server: real router, services, and file
// store, with the inference server stubbed out.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	t.Helper()

	pol, err := policy.Load()
	if err != nil {
		t.Fatalf("failed to load policy tables: %v", err)
	}

	rows := make([][]float32, len(testCorpus))
	for i := range rows {
		rows[i] = make([]float32, testDimensions)
	}
	idx, err := index.NewFlatIndex(testDimensions, rows)
	if err != nil {
		t.Fatalf("failed to build index: %v", err)
	}

	store, err := repository.NewConversationFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open conversation store: %v", err)
	}

	translator := translate.NewTranslator(nil, pol.Translation)
	rng := rand.New(rand.NewSource(1))

	retriever := service.NewRetriever(stubEmbedder{}, idx, testCorpus, nil, nil, translator, pol.Retrieval)
	chatSvc := service.NewChatService(
		service.NewLanguageDetector(),
		retriever,
		service.NewGenerator(stubGenerator{}),
		service.NewValidator(pol, rng),
		service.NewFallbackComposer(pol.Fallback, translator, rng),
		translator,
		store,
		pol,
	)

	router := server.NewRouter(server.RouterConfig{
		ChatHandler: handlers.NewChatHandler(chatSvc, store),
	})
	srv := httptest.NewServer(router)

	return &E2ETestEnv{
		T:          t,
		ServerURL:  srv.URL,
		HTTPClient: srv.Client(),
		closer:     srv.Close,
	}
}

// Cleanup shuts down the test server.
func (env *E2ETestEnv) Cleanup() {
	env.closer()
}

// Response wraps a decoded API response.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

// Post sends a JSON POST request.
func (env *E2ETestEnv) Post(path string, body interface{}) (*Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp, err := env.HTTPClient.Post(env.ServerURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return env.read(resp)
}

// Get sends a GET request.
func (env *E2ETestEnv) Get(path string) (*Response, error) {
	resp, err := env.HTTPClient.Get(env.ServerURL + path)
	if err != nil {
		return nil, err
	}
	return env.read(resp)
}

// Delete sends a DELETE request.
func (env *E2ETestEnv) Delete(path string) (*Response, error) {
	req, err := http.NewRequest(http.MethodDelete, env.ServerURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := env.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	return env.read(resp)
}

func (env *E2ETestEnv) read(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
