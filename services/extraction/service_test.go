package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"bemisreg-backend/lib/scrapers/bemis"
	"bemisreg-backend/lib/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticKeys string

func (s staticKeys) NextKey(ctx context.Context) (string, error) {
	return string(s), nil
}

type noKeys struct{}

func (noKeys) NextKey(ctx context.Context) (string, error) {
	return "", fmt.Errorf("no API key configured")
}

func completionWith(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(body)
}

func newFakeCompletionService(t *testing.T, content string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// assert, not require: handlers run off the test goroutine
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.NotEmpty(t, req.Model)
		if assert.Len(t, req.Messages, 1) && assert.Len(t, req.Messages[0].Content, 2) {
			assert.True(t, strings.HasPrefix(req.Messages[0].Content[1].ImageUrl.Url, "data:image/jpeg;base64,"))
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionWith(content))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestExtract(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "extraction"})
	t.Cleanup(cleanup)
	t.Setenv("OPENROUTER_API_KEY", "")

	server, calls := newFakeCompletionService(t, "```json\n"+`{
		"student.Surname": "OKAFOR",
		"student.FirstName": "CHINEDU",
		"student.Gender": 1,
		"student.Email": null
	}`+"\n```")

	service := NewService(context.Background(), staticKeys("test-key"), Config{ApiUrl: server.URL})

	record, err := service.Extract(context.Background(), []byte("fake-image"), "image/jpeg", "")
	require.NoError(t, err)

	require.Equal(t, "OKAFOR", record["student.Surname"])
	require.Equal(t, "CHINEDU", record["student.FirstName"])
	// non-string JSON values are stringified
	require.Equal(t, "1", record["student.Gender"])
	// nulls are dropped, then required fields are backfilled as empty
	require.Equal(t, "", record["student.OriginState"])
	require.Equal(t, "0", record["id"])
	require.Contains(t, record, "student.SchoolId")

	// the second scan of the same photo is served from cache
	_, err = service.Extract(context.Background(), []byte("fake-image"), "image/jpeg", "")
	require.NoError(t, err)
	require.Equal(t, int64(1), calls.Load())

	// a different photo misses the cache
	_, err = service.Extract(context.Background(), []byte("other-image"), "image/jpeg", "")
	require.NoError(t, err)
	require.Equal(t, int64(2), calls.Load())
}

func TestExtractUpstreamFailure(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "extraction"})
	t.Cleanup(cleanup)
	t.Setenv("OPENROUTER_API_KEY", "")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid key"}`)
	}))
	t.Cleanup(server.Close)

	service := NewService(context.Background(), staticKeys("test-key"), Config{ApiUrl: server.URL})

	_, err := service.Extract(context.Background(), []byte("img"), "image/png", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestExtractWithoutKeys(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "extraction"})
	t.Cleanup(cleanup)
	t.Setenv("OPENROUTER_API_KEY", "")

	service := NewService(context.Background(), noKeys{}, Config{ApiUrl: "http://localhost:0"})

	_, err := service.Extract(context.Background(), []byte("img"), "image/png", "")
	require.ErrorContains(t, err, "no API key configured")
}

func TestDecodeRecordWithoutFence(t *testing.T) {
	record, err := decodeRecord(context.Background(), `{"student.Surname":"ABUBAKAR"}`)
	require.NoError(t, err)
	require.Equal(t, "ABUBAKAR", record["student.Surname"])

	for _, required := range bemis.RequiredStudentFields {
		require.Contains(t, record, required)
	}
}

func TestDecodeRecordRejectsNonObject(t *testing.T) {
	_, err := decodeRecord(context.Background(), "sorry, I cannot read this form")
	require.Error(t, err)
}

func TestDecodeRecordPlainFence(t *testing.T) {
	record, err := decodeRecord(context.Background(), "```\n{\"id\":\"7\"}\n```")
	require.NoError(t, err)
	require.Equal(t, "7", record["id"])
}
