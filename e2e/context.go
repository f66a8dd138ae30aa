package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// audience must match the aud claim the server accepts.
const audience = "hospital-registry"

// TestContext carries HTTP state across the steps of one scenario.
type TestContext struct {
	BaseURL    string
	SigningKey string
	Issuer     string

	client   *http.Client
	runID    string
	token    string
	status   int
	body     []byte
	response map[string]any
}

// NewTestContext reads E2E_BASE_URL, JWT_SIGNING_KEY and JWT_ISSUER, falling
// back to the server's development defaults.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:    envOr("E2E_BASE_URL", "http://localhost:8080"),
		SigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Issuer:     envOr("JWT_ISSUER", "scanbo"),
		client:     &http.Client{Timeout: 10 * time.Second},
		runID:      strconv.FormatInt(time.Now().UnixNano(), 36),
	}
}

// Reset clears per-scenario state. The run id is kept so aliases stay
// stable inside one run but never collide with earlier runs: records are
// permanent.
func (tc *TestContext) Reset() {
	tc.token = ""
	tc.status = 0
	tc.body = nil
	tc.response = nil
}

// AccountID maps a scenario alias to a run-unique account id.
func (tc *TestContext) AccountID(alias string) string {
	return alias + "-" + tc.runID
}

// Authenticate mints a bearer token for the account behind alias.
func (tc *TestContext) Authenticate(alias string) error {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   tc.AccountID(alias),
		Issuer:    tc.Issuer,
		Audience:  []string{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
	})
	signed, err := token.SignedString([]byte(tc.SigningKey))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	tc.token = signed
	return nil
}

// ClearToken drops the current bearer token.
func (tc *TestContext) ClearToken() {
	tc.token = ""
}

// POST sends body as JSON, with the bearer token when one is set.
func (tc *TestContext) POST(path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, tc.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return tc.do(req)
}

// GET issues an unauthenticated request.
func (tc *TestContext) GET(path string) error {
	req, err := http.NewRequest(http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	tc.status = resp.StatusCode
	tc.body, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.response = nil
	if len(tc.body) > 0 {
		_ = json.Unmarshal(tc.body, &tc.response)
	}
	return nil
}

// StatusCode of the last response.
func (tc *TestContext) StatusCode() int {
	return tc.status
}

// ResponseBody of the last response.
func (tc *TestContext) ResponseBody() string {
	return string(tc.body)
}

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.response == nil {
		return nil, fmt.Errorf("response is not a JSON object: %s", tc.body)
	}
	v, ok := tc.response[field]
	if !ok {
		return nil, fmt.Errorf("field %q missing from response: %s", field, tc.body)
	}
	return v, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
