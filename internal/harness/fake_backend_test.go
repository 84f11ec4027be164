package harness

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/loykin/aegisrun/internal/common"
	"github.com/loykin/aegisrun/internal/config"
	"github.com/tidwall/gjson"
)

const (
	testToken    = "id-token-1"
	testPassword = "correct-horse"
)

// fakeBackend stands in for the Aegis API and records every call it receives.
type fakeBackend struct {
	mu sync.Mutex

	calls   map[string]int
	uploads []string
	queries []string
	prompts []string

	failUploads   map[string]bool
	failPrompts   map[string]bool
	profileStatus int
	transactions  string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fb := &fakeBackend{
		calls:        map[string]int{},
		failUploads:  map[string]bool{},
		failPrompts:  map[string]bool{},
		transactions: `[{"id":"t1","merchant":"Lidl","amount":23.4,"category":"Groceries"}]`,
	}

	r := gin.New()
	api := r.Group("/api/v1", fb.requireBearer)
	api.POST("/transactions/process", fb.processReceipt)
	api.GET("/transactions", fb.listTransactions)
	api.POST("/users/me/agent/invoke", fb.invokeAgent)
	api.GET("/users/me", fb.profile)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) count(key string) {
	fb.mu.Lock()
	fb.calls[key]++
	fb.mu.Unlock()
}

func (fb *fakeBackend) total() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, v := range fb.calls {
		n += v
	}
	return n
}

func (fb *fakeBackend) requireBearer(c *gin.Context) {
	if c.GetHeader("Authorization") != "Bearer "+testToken {
		fb.count("unauthorized")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid authentication credentials"})
		return
	}
	c.Next()
}

func (fb *fakeBackend) processReceipt(c *gin.Context) {
	fb.count("upload")
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}
	fb.mu.Lock()
	fb.uploads = append(fb.uploads, fh.Filename)
	fail := fb.failUploads[fh.Filename]
	fb.mu.Unlock()
	if fail {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Could not parse receipt " + fh.Filename})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed", "filename": fh.Filename})
}

func (fb *fakeBackend) listTransactions(c *gin.Context) {
	fb.count("transactions")
	fb.mu.Lock()
	fb.queries = append(fb.queries, c.Request.URL.RawQuery)
	body := fb.transactions
	fb.mu.Unlock()
	c.Data(http.StatusOK, "application/json", []byte(body))
}

func (fb *fakeBackend) invokeAgent(c *gin.Context) {
	fb.count("agent")
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	fb.mu.Lock()
	fb.prompts = append(fb.prompts, req.Prompt)
	fail := fb.failPrompts[req.Prompt]
	fb.mu.Unlock()
	if fail {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "agent unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": "answer to: " + req.Prompt})
}

func (fb *fakeBackend) profile(c *gin.Context) {
	fb.count("profile")
	fb.mu.Lock()
	status := fb.profileStatus
	fb.mu.Unlock()
	if status != 0 {
		c.Header("X-Debug", "profile-failed")
		c.JSON(status, gin.H{"detail": "User profile not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": "uid-7", "email": "qa@example.com"})
}

// fakeIdentity mimics the Identity Toolkit password sign-in endpoint.
type fakeIdentity struct {
	mu    sync.Mutex
	calls int
}

func newFakeIdentity(t *testing.T) (*fakeIdentity, *httptest.Server) {
	t.Helper()
	fi := &fakeIdentity{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fi.mu.Lock()
		fi.calls++
		fi.mu.Unlock()

		var body struct {
			Email             string `json:"email"`
			Password          string `json:"password"`
			ReturnSecureToken bool   `json:"returnSecureToken"`
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/v1/accounts:signInWithPassword" || r.URL.Query().Get("key") == "" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"NOT_FOUND"}}`))
			return
		}
		if body.Password != testPassword || !body.ReturnSecureToken {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_PASSWORD"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"localId":"uid-7","email":"` + body.Email + `","idToken":"` + testToken + `","refreshToken":"r","expiresIn":"3600"}`))
	}))
	t.Cleanup(srv.Close)
	return fi, srv
}

func (fi *fakeIdentity) count() int {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return fi.calls
}

// testConfig returns a complete config aimed at the fake servers, with receipts
// written to a fresh directory.
func testConfig(t *testing.T, identityURL, apiURL string, receipts ...string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	for _, name := range receipts {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("image:"+name), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	c := config.Default()
	c.Firebase = config.FirebaseConfig{
		APIKey:            "test-api-key",
		AuthDomain:        "aegis.firebaseapp.com",
		ProjectID:         "aegis",
		StorageBucket:     "aegis.appspot.com",
		MessagingSenderID: "123",
		AppID:             "1:123:web:abc",
	}
	c.TestUser = config.TestUserConfig{Email: "qa@example.com", Password: testPassword}
	c.Identity.URL = identityURL
	c.API.BaseURL = apiURL + "/api/v1"
	c.Run.ReceiptsDir = dir
	return c
}

// logRecorder captures JSON log output for assertions.
type logRecorder struct {
	buf bytes.Buffer
}

func (l *logRecorder) logger() *common.Logger {
	return common.NewLoggerTo(&l.buf, common.LogLevelDebug, "json")
}

func (l *logRecorder) records() []gjson.Result {
	var out []gjson.Result
	sc := bufio.NewScanner(strings.NewReader(l.buf.String()))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, gjson.Parse(line))
		}
	}
	return out
}

// find returns the records with message msg in the given stage.
func (l *logRecorder) find(stage, msg string) []gjson.Result {
	var out []gjson.Result
	for _, r := range l.records() {
		if r.Get("msg").String() == msg && (stage == "" || r.Get("stage").String() == stage) {
			out = append(out, r)
		}
	}
	return out
}
