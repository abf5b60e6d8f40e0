/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: client.go
Description: HTTP transport for the Evogene Fuzzer. Routes candidate payloads
to the target API endpoint implied by their structure, manages bearer
authentication through a shared AuthSession, retries transient failures with
fixed backoff, optionally corrupts serialized payloads at a low rate, and
honors fault-injection hints (delay, memleak) carried by the payload itself.
Never fails the evaluation path: network errors degrade to synthetic scored
responses.
*/

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/evogene-fuzzer/pkg/genome"
	"github.com/kleascm/evogene-fuzzer/pkg/interfaces"
)

// MemleakFaultProb is the chance a memleak-flagged payload produces a
// synthetic resource-exhaustion response instead of a real call result
const MemleakFaultProb = 0.5

// Config holds the transport configuration
type Config struct {
	BaseURL            string        // Target API base URL, no trailing slash
	Username           string        // Credential used for token refresh
	Password           string        // Credential used for token refresh
	RequestTimeout     time.Duration // Per-attempt HTTP timeout
	MaxRetries         int           // Retry budget for connection errors and timeouts
	RetryBackoff       time.Duration // Fixed sleep between retry attempts
	CorruptionProb     float64       // Per-attempt payload corruption probability
	EnableCorruption   bool          // Switch for payload corruption
	EnableMemleakFault bool          // Switch for the memleak synthetic fault
}

// DefaultConfig returns the standard transport configuration for a
// target base URL
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:            strings.TrimRight(baseURL, "/"),
		RequestTimeout:     10 * time.Second,
		MaxRetries:         3,
		RetryBackoff:       time.Second,
		CorruptionProb:     0.05,
		EnableCorruption:   true,
		EnableMemleakFault: true,
	}
}

// Client sends candidate payloads to the target API. Safe for
// concurrent use by evaluation workers: the AuthSession and
// http.Client are concurrency-safe and the rng sits behind its own
// mutex.
type Client struct {
	http   *http.Client
	config Config
	auth   *AuthSession
	logger *logrus.Logger
	rngMu  sync.Mutex
	rng    *rand.Rand
	sleep  func(time.Duration) // Injectable for tests
}

// chance draws one corruption/fault decision under the rng lock
func (c *Client) chance(p float64) bool {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return c.rng.Float64() < p
}

// NewClient creates a transport client for the configured target
func NewClient(config Config, logger *logrus.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: config.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		config: config,
		auth:   NewAuthSession(func() int64 { return time.Now().Unix() }),
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:  time.Sleep,
	}
}

// SelectEndpoint maps a candidate's structure to its target endpoint.
// Credentials route to the token endpoint, named entities to user
// creation, everything else to the legacy predict endpoint.
func (c *Client) SelectEndpoint(candidate *genome.Candidate) (url string, authenticated bool) {
	if candidate.Has("username") && candidate.Has("password") {
		return c.config.BaseURL + "/api/auth/token", false
	}
	if candidate.Has("name") {
		return c.config.BaseURL + "/api/users", true
	}
	return c.config.BaseURL + "/predict", false
}

// Send delivers the candidate and returns the observed response. All
// failure modes degrade to synthetic ResponseInfo values so the
// evaluation loop never aborts.
func (c *Client) Send(ctx context.Context, candidate *genome.Candidate) *interfaces.ResponseInfo {
	url, authenticated := c.SelectEndpoint(candidate)

	var token string
	if authenticated {
		token = c.ensureToken(ctx)
	}

	resp := c.sendWithRetries(ctx, url, token, candidate)
	c.applyPayloadEffects(candidate, resp)
	return resp
}

// ensureToken obtains a bearer token through the shared session,
// refreshing at most once per expiry cycle across all workers. On
// refresh failure the request proceeds unauthenticated.
func (c *Client) ensureToken(ctx context.Context) string {
	token, err := c.auth.EnsureToken(func() (string, int64, error) {
		return c.refreshToken(ctx)
	})
	if err != nil {
		c.logger.WithError(err).Warn("Token refresh failed, proceeding unauthenticated")
		return ""
	}
	return token
}

// refreshToken POSTs the configured credentials to the token endpoint
// and extracts the token and its lifetime. The randomized pause keeps
// a burst of expired workers from hammering the token endpoint at the
// same instant.
func (c *Client) refreshToken(ctx context.Context) (string, int64, error) {
	c.rngMu.Lock()
	jitter := 0.5 + c.rng.Float64()*1.5
	c.rngMu.Unlock()
	c.sleep(time.Duration(jitter * float64(time.Second)))

	body, err := json.Marshal(map[string]string{
		"username": c.config.Username,
		"password": c.config.Password,
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to serialize credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", 0, fmt.Errorf("failed to parse token response: %w", err)
	}

	token, _ := payload["token"].(string)
	if token == "" {
		token, _ = payload["access_token"].(string)
	}
	if token == "" {
		return "", 0, fmt.Errorf("token response carried no token")
	}

	expiresIn := int64(3600)
	if v, ok := payload["expires_in"].(float64); ok && v > 0 {
		expiresIn = int64(v)
	}

	c.logger.WithField("expires_in", expiresIn).Debug("Bearer token refreshed")
	return token, expiresIn, nil
}

// sendWithRetries performs the HTTP POST with the configured retry
// budget, returning synthetic responses for failures that exhaust it
func (c *Client) sendWithRetries(ctx context.Context, url, token string, candidate *genome.Candidate) *interfaces.ResponseInfo {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(c.config.RetryBackoff)
		}

		body, raw := c.serializePayload(candidate)
		start := time.Now()
		resp, err := c.doPost(ctx, url, token, body, raw)
		elapsed := time.Since(start).Seconds()

		if err == nil {
			return c.readResponse(resp, elapsed)
		}
		lastErr = err
		c.logger.WithError(err).WithField("attempt", attempt+1).Debug("Request attempt failed")
	}

	if lastErr != nil && isTimeout(lastErr) {
		return &interfaces.ResponseInfo{
			Data:       map[string]interface{}{"error": "Request timed out"},
			StatusCode: http.StatusRequestTimeout,
			Headers:    map[string]string{},
		}
	}
	msg := "connection failed"
	if lastErr != nil {
		msg = lastErr.Error()
	}
	return &interfaces.ResponseInfo{
		Data:       map[string]interface{}{"error": msg},
		StatusCode: 0,
		Headers:    map[string]string{},
	}
}

// serializePayload marshals the candidate, occasionally corrupting the
// bytes. raw is true when the corrupted body no longer parses as JSON
// and must be sent as a plain string body.
func (c *Client) serializePayload(candidate *genome.Candidate) (body []byte, raw bool) {
	data, err := candidate.MarshalJSON()
	if err != nil {
		// Candidates are serializable by construction; degrade anyway
		return []byte("{}"), false
	}

	if !c.config.EnableCorruption || !c.chance(c.config.CorruptionProb) {
		return data, false
	}

	corrupted := string(data)
	if c.chance(0.5) {
		corrupted = strings.Replace(corrupted, ":", ";", 1)
	} else {
		corrupted = strings.Replace(corrupted, ",", ";", 1)
	}
	if !json.Valid([]byte(corrupted)) {
		c.logger.WithField("body", corrupted).Debug("Sending corrupted non-JSON payload")
		return []byte(corrupted), true
	}
	return []byte(corrupted), false
}

// doPost issues one POST attempt
func (c *Client) doPost(ctx context.Context, url, token string, body []byte, raw bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if raw {
		req.Header.Set("Content-Type", "text/plain")
	} else {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.http.Do(req)
}

// readResponse parses the response body, capturing non-JSON bodies
// instead of failing
func (c *Client) readResponse(resp *http.Response, elapsed float64) *interfaces.ResponseInfo {
	defer resp.Body.Close()

	headers := make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}

	info := &interfaces.ResponseInfo{
		Time:       elapsed,
		StatusCode: resp.StatusCode,
		Headers:    headers,
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		info.Data = map[string]interface{}{"error": fmt.Sprintf("failed to read response body: %v", err)}
		return info
	}

	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		info.Data = map[string]interface{}{
			"raw_response": string(body),
			"error":        "Invalid JSON response",
		}
		return info
	}
	info.Data = data
	return info
}

// applyPayloadEffects honors fault-injection hints carried by the
// payload: a delay field sleeps and inflates the reported latency, and
// a true memleak flag sometimes synthesizes a resource-exhaustion
// response
func (c *Client) applyPayloadEffects(candidate *genome.Candidate, resp *interfaces.ResponseInfo) {
	if v, ok := candidate.Get("delay"); ok {
		var seconds float64
		switch v.Kind {
		case genome.KindFloat:
			seconds = v.Float
		case genome.KindInt:
			seconds = float64(v.Int)
		}
		if seconds > 0 && seconds < 5 {
			c.sleep(time.Duration(seconds * float64(time.Second)))
			resp.Time += seconds
		}
	}

	if !c.config.EnableMemleakFault {
		return
	}
	if v, ok := candidate.Get("memleak"); ok && v.Kind == genome.KindBool && v.Bool {
		if c.chance(MemleakFaultProb) {
			resp.StatusCode = http.StatusInternalServerError
			resp.Data = map[string]interface{}{
				"error": "Resource exhausted: memory allocation failed",
			}
		}
	}
}

// isTimeout reports whether an error chain carries a timeout
func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "context deadline exceeded")
}
