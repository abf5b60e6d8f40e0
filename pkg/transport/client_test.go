/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: client_test.go
Description: Tests for the HTTP transport client. Verifies structural endpoint
routing, bearer authentication, synthetic failure responses, non-JSON body
capture, and payload-driven fault injection against a local test server.
*/

package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/evogene-fuzzer/pkg/genome"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestClient builds a client against the test server with fault
// injection off and sleeps stubbed out
func newTestClient(baseURL string) *Client {
	config := DefaultConfig(baseURL)
	config.EnableCorruption = false
	config.EnableMemleakFault = false
	config.Username = "fuzzer"
	config.Password = "secret"
	client := NewClient(config, quietLogger())
	client.sleep = func(time.Duration) {}
	return client
}

func userCandidate() *genome.Candidate {
	c := genome.NewCandidate()
	c.Set("name", genome.String("alice"))
	c.Set("age", genome.Int(30))
	return c
}

func authCandidate() *genome.Candidate {
	c := genome.NewCandidate()
	c.Set("username", genome.String("alice"))
	c.Set("password", genome.String("hunter22"))
	return c
}

func TestSelectEndpointRouting(t *testing.T) {
	client := newTestClient("http://example.com")

	url, authed := client.SelectEndpoint(authCandidate())
	assert.Equal(t, "http://example.com/api/auth/token", url)
	assert.False(t, authed)

	url, authed = client.SelectEndpoint(userCandidate())
	assert.Equal(t, "http://example.com/api/users", url)
	assert.True(t, authed)

	legacy := genome.NewCandidate()
	legacy.Set("input", genome.String("x"))
	url, authed = client.SelectEndpoint(legacy)
	assert.Equal(t, "http://example.com/predict", url)
	assert.False(t, authed)
}

func TestSendUserPayloadWithBearerToken(t *testing.T) {
	var sawAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/token":
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok-abc", "expires_in": 600})
		case "/api/users":
			sawAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]interface{}{"id": 1})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp := client.Send(context.Background(), userCandidate())

	require.NotNil(t, resp)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Bearer tok-abc", sawAuth)
	assert.Equal(t, float64(1), resp.Data["id"])
}

func TestSendAuthPayloadUnauthenticated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/token", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.True(t, strings.Contains(string(body), "username"))
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "invalid credentials"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp := client.Send(context.Background(), authCandidate())

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid credentials", resp.Data["error"])
}

func TestSendProceedsWhenTokenRefreshFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/token":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/api/users":
			assert.Empty(t, r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp := client.Send(context.Background(), userCandidate())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSendCapturesNonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>upstream broke</html>")
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	legacy := genome.NewCandidate()
	legacy.Set("input", genome.String("x"))
	resp := client.Send(context.Background(), legacy)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Invalid JSON response", resp.Data["error"])
	assert.Contains(t, resp.Data["raw_response"], "upstream broke")
}

func TestSendConnectionFailureSynthesizesStatusZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening anymore

	client := newTestClient(server.URL)
	legacy := genome.NewCandidate()
	legacy.Set("input", genome.String("x"))
	resp := client.Send(context.Background(), legacy)

	assert.Equal(t, 0, resp.StatusCode)
	errMsg, ok := resp.Data["error"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, errMsg)
}

func TestSendRetriesBeforeGivingUp(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			// Drop the connection to force a transport error
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	legacy := genome.NewCandidate()
	legacy.Set("input", genome.String("x"))
	resp := client.Send(context.Background(), legacy)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, attempts)
}

func TestSendDelayFieldInflatesLatency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var slept time.Duration
	client.sleep = func(d time.Duration) { slept += d }

	c := genome.NewCandidate()
	c.Set("input", genome.String("x"))
	c.Set("delay", genome.Float(1.5))
	resp := client.Send(context.Background(), c)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 1.5, slept.Seconds(), 0.001)
	assert.GreaterOrEqual(t, resp.Time, 1.5)
}

func TestSendMemleakFaultSynthesizesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
	}))
	defer server.Close()

	config := DefaultConfig(server.URL)
	config.EnableCorruption = false
	config.EnableMemleakFault = true
	client := NewClient(config, quietLogger())
	client.sleep = func(time.Duration) {}

	c := genome.NewCandidate()
	c.Set("input", genome.String("x"))
	c.Set("memleak", genome.Bool(true))

	sawFault := false
	for i := 0; i < 50 && !sawFault; i++ {
		resp := client.Send(context.Background(), c)
		if resp.StatusCode == http.StatusInternalServerError {
			assert.Equal(t, "Resource exhausted: memory allocation failed", resp.Data["error"])
			sawFault = true
		}
	}
	assert.True(t, sawFault, "memleak fault should fire within 50 sends at p=0.5")
}

func TestSerializePayloadCorruptionProducesInvalidJSON(t *testing.T) {
	config := DefaultConfig("http://example.com")
	config.EnableCorruption = true
	config.CorruptionProb = 1.0
	client := NewClient(config, quietLogger())

	c := userCandidate()
	sawRaw := false
	for i := 0; i < 50; i++ {
		body, raw := client.serializePayload(c)
		assert.NotEmpty(t, body)
		if raw {
			assert.False(t, json.Valid(body))
			sawRaw = true
		}
	}
	assert.True(t, sawRaw, "replacing a colon breaks JSON parsing")
}
