package explain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/churn-explainer/internal/cache"
	"github.com/miradorstack/churn-explainer/internal/dataset"
	"github.com/miradorstack/churn-explainer/internal/models"
	"github.com/miradorstack/churn-explainer/internal/utils"
)

var sampleFeatures = []models.Feature{
	{Name: "CreditScore", Value: 650},
	{Name: "Age", Value: 55},
	{Name: "Balance", Value: 100000.5},
}

func loadTestDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load("../dataset/testdata/customers.csv")
	require.NoError(t, err)
	return ds
}

func TestBuildPromptSentenceInstruction(t *testing.T) {
	high := BuildPrompt(PromptInput{Surname: "Hargrave", Risk: 0.75, Importances: DefaultImportances(), TopFeatures: 10})
	assert.Contains(t, high, "generate a 3 sentence explanation")
	assert.NotContains(t, high, "2 sentence")

	low := BuildPrompt(PromptInput{Surname: "Hargrave", Risk: 0.45, Importances: DefaultImportances(), TopFeatures: 10})
	assert.Contains(t, low, "generate a 2 sentence explanation")
	assert.NotContains(t, low, "3 sentence")

	assert.Equal(t, 3, SentenceCount(0.6, 0))
	assert.Equal(t, 2, SentenceCount(0.5999, 0.6))
}

func TestBuildPromptContents(t *testing.T) {
	ds := loadTestDataset(t)
	e := NewExplainer(nil, Options{}, nil)
	prompt := e.Prompt(0.6588, sampleFeatures, "Hargrave", ds)

	assert.Contains(t, prompt, "Name: Hargrave")
	assert.Contains(t, prompt, "Risk of churning: 65.9%")
	assert.Contains(t, prompt, "Balance: 100000.5")
	assert.Contains(t, prompt, "top 10 most important features")
	assert.Contains(t, prompt, "NumOfProducts       | 0.323888")
	assert.NotContains(t, prompt, "Gender_Male", "only the ten heaviest rows are listed")
	assert.Contains(t, prompt, "summary statistics for churned customers")
	assert.Contains(t, prompt, "summary statistics for non-churned customers")
	assert.Contains(t, prompt, "Don't mention the probability of churning")

	churned := strings.Index(prompt, "summary statistics for churned")
	retained := strings.Index(prompt, "summary statistics for non-churned")
	instruction := strings.Index(prompt, "sentence explanation")
	assert.True(t, churned < retained && retained < instruction)

	assert.Equal(t, prompt, e.Prompt(0.6588, sampleFeatures, "Hargrave", ds), "prompt must be deterministic")
}

func TestFormatRiskRounding(t *testing.T) {
	assert.Equal(t, "65.9", formatRisk(0.6587))
	assert.Equal(t, "0.0", formatRisk(0))
	assert.Equal(t, "100.0", formatRisk(1))
}

func TestLoadImportances(t *testing.T) {
	rows, err := LoadImportances("", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 13)

	rows, err = LoadImportances(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultImportances(), rows)

	path := filepath.Join(t.TempDir(), "imp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("importances:\n  - feature: Age\n    importance: 0.2\n  - feature: Tenure\n    importance: 0.5\n"), 0o600))
	rows, err = LoadImportances(path, nil)
	require.NoError(t, err)
	top := topImportances(rows, 1)
	require.Len(t, top, 1)
	assert.Equal(t, "Tenure", top[0].Feature)

	require.NoError(t, os.WriteFile(path, []byte("importances:\n  - feature: Age\n  - feature: Age\n"), 0o600))
	_, err = LoadImportances(path, nil)
	assert.Error(t, err)
}

func TestLoadImportancesRejectsEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("importances: []\n"), 0o600))
	_, err := LoadImportances(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table is empty")
}

func TestShippedImportanceFileMatchesDefaults(t *testing.T) {
	rows, err := LoadImportances("../../configs/importances.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultImportances(), rows)
}

func newFakeChatServer(t *testing.T, content string, status int, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			return
		}
		choices := []map[string]any{}
		if content != "-" {
			choices = append(choices, map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "chatcmpl-1", "object": "chat.completion", "model": "test-model", "choices": choices})
	}))
}

func newTestGenerator(t *testing.T, url string) *ChatGenerator {
	t.Helper()
	gen, err := NewChatGenerator(ChatConfig{BaseURL: url, APIKey: "test-key", Model: "test-model"})
	require.NoError(t, err)
	return gen
}

func TestChatGeneratorSuccess(t *testing.T) {
	srv := newFakeChatServer(t, "  They hold a single product.  ", http.StatusOK, nil)
	defer srv.Close()

	text, err := newTestGenerator(t, srv.URL).Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "They hold a single product.", text)
}

func TestChatGeneratorFailures(t *testing.T) {
	cases := map[string]*httptest.Server{
		"unauthorised": newFakeChatServer(t, "", http.StatusUnauthorized, nil),
		"no choices":   newFakeChatServer(t, "-", http.StatusOK, nil),
		"empty text":   newFakeChatServer(t, "   ", http.StatusOK, nil),
	}
	for name, srv := range cases {
		_, err := newTestGenerator(t, srv.URL).Generate(context.Background(), "prompt")
		require.Error(t, err, name)
		assert.True(t, utils.IsKind(err, utils.KindRemoteService), name)
		srv.Close()
	}
}

func TestNewChatGeneratorRequiresKey(t *testing.T) {
	_, err := NewChatGenerator(ChatConfig{})
	assert.Error(t, err)
}

func TestExplainerCachesResponses(t *testing.T) {
	var calls int32
	srv := newFakeChatServer(t, "Inactive members churn more.", http.StatusOK, &calls)
	defer srv.Close()

	store := cache.NewMemoryProvider()
	e := NewExplainer(newTestGenerator(t, srv.URL), Options{Model: "test-model", Cache: store, CacheTTL: time.Hour}, nil)
	ds := loadTestDataset(t)

	for i := 0; i < 2; i++ {
		text, err := e.Explain(context.Background(), 0.7, sampleFeatures, "Hargrave", ds)
		require.NoError(t, err)
		assert.Equal(t, "Inactive members churn more.", text)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err := e.Explain(context.Background(), 0.2, sampleFeatures, "Hargrave", ds)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "a different prompt misses the cache")
}

type failingCache struct{ cache.NoopProvider }

func (failingCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

type stubGenerator struct {
	text string
	err  error
}

func (s stubGenerator) Generate(context.Context, string) (string, error) { return s.text, s.err }

func TestExplainerIgnoresCacheFailures(t *testing.T) {
	e := NewExplainer(stubGenerator{text: "ok"}, Options{Cache: failingCache{}}, nil)
	text, err := e.Explain(context.Background(), 0.5, sampleFeatures, "Hill", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestExplainerDoesNotCacheFailures(t *testing.T) {
	store := cache.NewMemoryProvider()
	failure := utils.NewAppError(utils.KindRemoteService, "test", "down", nil)
	e := NewExplainer(stubGenerator{err: failure}, Options{Cache: store}, nil)
	_, err := e.Explain(context.Background(), 0.5, sampleFeatures, "Hill", nil)
	require.ErrorIs(t, err, failure)

	_, err = store.Get(context.Background(), e.cacheKey(e.Prompt(0.5, sampleFeatures, "Hill", nil)))
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}
