package xapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{BearerToken: "bearer", CSRFToken: "csrf", Cookie: "ct0=csrf"}

func adminBody(name string) string {
	return `{"data":{"communityResults":{"result":{"creator_results":{"result":{"core":{"screen_name":"` + name + `"}}}}}}}`
}

func TestClient_CommunityAdmin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/graphql/"+DefaultEndpoint, r.URL.Path)

		var vars map[string]string
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("variables")), &vars))
		assert.Equal(t, "1876543210", vars["communityId"])
		assert.Equal(t, featuresParam, r.URL.Query().Get("features"))

		assert.Equal(t, "Bearer bearer", r.Header.Get("Authorization"))
		assert.Equal(t, "csrf", r.Header.Get("X-Csrf-Token"))
		assert.Equal(t, "ct0=csrf", r.Header.Get("Cookie"))
		assert.Equal(t, "https://x.com/i/communities/1876543210", r.Header.Get("Referer"))
		assert.NotEmpty(t, r.Header.Get("X-Client-Transaction-Id"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(adminBody("dev_wallet")))
	}))
	defer server.Close()

	client := NewClient(testCreds, WithBaseURL(server.URL+"/graphql/"))
	admin, err := client.CommunityAdmin(context.Background(), "1876543210")
	require.NoError(t, err)
	assert.Equal(t, "dev_wallet", admin)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "non-2xx",
			status: http.StatusTooManyRequests,
			body:   `{"errors":[{"message":"Rate limit exceeded"}]}`,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusTooManyRequests, se.Code)
				assert.Contains(t, se.Body, "Rate limit")
			},
		},
		{
			name:   "html body",
			status: http.StatusOK,
			body:   `<html>login</html>`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnparsable)
			},
		},
		{
			name:   "missing creator",
			status: http.StatusOK,
			body:   `{"data":{"communityResults":{"result":{}}}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNoAdmin)
			},
		},
		{
			name:   "empty screen name",
			status: http.StatusOK,
			body:   adminBody(""),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNoAdmin)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(testCreds, WithBaseURL(server.URL))
			admin, err := client.CommunityAdmin(context.Background(), "1")
			assert.Empty(t, admin)
			tt.check(t, err)
		})
	}
}

func TestClient_TimeoutIsNetworkError(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(testCreds, WithBaseURL(server.URL), WithTimeout(50*time.Millisecond))
	_, err := client.CommunityAdmin(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNetwork)

	// Single attempt, no retry
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ConnectionRefused(t *testing.T) {
	client := NewClient(testCreds, WithBaseURL("http://127.0.0.1:1"))
	_, err := client.CommunityAdmin(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNetwork)
}
