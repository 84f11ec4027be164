package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/aegisrun/internal/auth"
)

func newTestServer(t *testing.T, register func(r *gin.Engine)) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	register(engine)
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(url, &auth.Credential{Token: "tok-123"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RequiresValidCredential(t *testing.T) {
	cases := []*auth.Credential{
		nil,
		{Token: ""},
		{Token: "x", ExpiresAt: time.Now().Add(-time.Second)},
	}
	for i, cred := range cases {
		if _, err := New("http://localhost", cred, nil); !errors.Is(err, ErrNoCredential) {
			t.Fatalf("case %d: expected ErrNoCredential, got %v", i, err)
		}
	}
	if _, err := New(" ", &auth.Credential{Token: "x"}, nil); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"receipt.png":      "image/png",
		"RECEIPT.PNG":      "image/png",
		"dir/scan.Png":     "image/png",
		"receipt.jpg":      "image/jpeg",
		"receipt.jpeg":     "image/jpeg",
		"receipt.webp":     "image/jpeg",
		"noext":            "image/jpeg",
		"archive.png.heic": "image/jpeg",
	}
	for in, want := range cases {
		if got := ContentTypeFor(in); got != want {
			t.Fatalf("ContentTypeFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUploadReceipt_Multipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Lidl.PNG")
	if err := os.WriteFile(path, []byte("png-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	srv := newTestServer(t, func(r *gin.Engine) {
		r.POST("/api/v1/transactions/process", func(c *gin.Context) {
			if c.GetHeader("Authorization") != "Bearer tok-123" {
				c.JSON(http.StatusUnauthorized, gin.H{"detail": "missing token"})
				return
			}
			fh, err := c.FormFile("file")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
				return
			}
			f, _ := fh.Open()
			data, _ := io.ReadAll(f)
			_ = f.Close()
			c.JSON(http.StatusOK, gin.H{
				"filename":     fh.Filename,
				"content_type": fh.Header.Get("Content-Type"),
				"content":      string(data),
			})
		})
	})

	resp, err := newTestClient(t, srv.URL+"/api/v1").UploadReceipt(context.Background(), path)
	if err != nil {
		t.Fatalf("UploadReceipt: %v", err)
	}
	js := resp.JSON()
	if js.Get("filename").String() != "Lidl.PNG" || js.Get("content_type").String() != "image/png" || js.Get("content").String() != "png-bytes" {
		t.Fatalf("unexpected upload echo: %s", resp.Payload())
	}
}

func TestUploadReceipt_MissingFile(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	if _, err := c.UploadReceipt(context.Background(), filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Fatal("expected read error")
	}
}

func TestTransactionQuery_Params(t *testing.T) {
	start := time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC)

	p := TransactionQuery{Start: start, End: end}.Params()
	if p["start_date"] != "2024-05-01" || p["end_date"] != "2024-05-08" {
		t.Fatalf("unexpected dates: %v", p)
	}
	if _, ok := p["category"]; ok {
		t.Fatalf("category must be absent without a filter: %v", p)
	}

	p = TransactionQuery{Start: start, End: end, Category: "Groceries"}.Params()
	if p["category"] != "Groceries" {
		t.Fatalf("expected category=Groceries: %v", p)
	}
}

func TestFetchTransactions_QueryString(t *testing.T) {
	var rawQueries []string
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/transactions", func(c *gin.Context) {
			rawQueries = append(rawQueries, c.Request.URL.RawQuery)
			c.Data(http.StatusOK, "application/json", []byte(`[{"id":"t1","amount":12.5}]`))
		})
	})
	c := newTestClient(t, srv.URL)
	q := TransactionQuery{
		Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC),
	}

	resp, err := c.FetchTransactions(context.Background(), q)
	if err != nil {
		t.Fatalf("FetchTransactions: %v", err)
	}
	if resp.Payload() != `[{"id":"t1","amount":12.5}]` {
		t.Fatalf("payload must be returned unmodified, got %s", resp.Payload())
	}

	q.Category = "Groceries"
	if _, err := c.FetchTransactions(context.Background(), q); err != nil {
		t.Fatalf("FetchTransactions filtered: %v", err)
	}

	want := []string{
		"end_date=2024-05-08&start_date=2024-05-01",
		"category=Groceries&end_date=2024-05-08&start_date=2024-05-01",
	}
	if len(rawQueries) != 2 || rawQueries[0] != want[0] || rawQueries[1] != want[1] {
		t.Fatalf("unexpected query strings: %v", rawQueries)
	}
}

func TestInvokeAgent_JSONBody(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.POST("/users/me/agent/invoke", func(c *gin.Context) {
			var body struct {
				Prompt string `json:"prompt"`
			}
			if err := c.ShouldBindJSON(&body); err != nil || body.Prompt == "" {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"msg": "prompt required"}}})
				return
			}
			c.JSON(http.StatusOK, gin.H{"response": "echo: " + body.Prompt})
		})
	})
	c := newTestClient(t, srv.URL)

	resp, err := c.InvokeAgent(context.Background(), "What store did I spend the most at?")
	if err != nil {
		t.Fatalf("InvokeAgent: %v", err)
	}
	if got := resp.JSON().Get("response").String(); got != "echo: What store did I spend the most at?" {
		t.Fatalf("unexpected agent response: %q", got)
	}

	_, err = c.InvokeAgent(context.Background(), "")
	var re *ResponseError
	if !errors.As(err, &re) || re.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 ResponseError, got %v", err)
	}
	if re.Detail != `[{"msg":"prompt required"}]` {
		t.Fatalf("expected raw validation detail, got %q", re.Detail)
	}
}

func TestGetProfile_ErrorDetail(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/users/me", func(c *gin.Context) {
			c.Header("X-Request-Id", "req-1")
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
		})
	})

	_, err := newTestClient(t, srv.URL).GetProfile(context.Background())
	var re *ResponseError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResponseError, got %v", err)
	}
	if re.Status != http.StatusNotFound || re.Detail != "User not found" || re.Header.Get("X-Request-Id") != "req-1" {
		t.Fatalf("unexpected error: %+v", re)
	}
	if Detail(err) != "User not found" {
		t.Fatalf("Detail: %q", Detail(err))
	}
}

func TestErrorDetail(t *testing.T) {
	cases := map[string]string{
		`{"detail":"Invalid token"}`:               "Invalid token",
		`{"error":{"message":"PERMISSION_DENIED"}}`: "PERMISSION_DENIED",
		`{"error":"bad request"}`:                   "bad request",
		`{"message":"boom"}`:                        "boom",
		"  Internal Server Error \n":                "Internal Server Error",
		"":                                          "",
	}
	for in, want := range cases {
		if got := ErrorDetail([]byte(in)); got != want {
			t.Fatalf("ErrorDetail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetail_TransportError(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	_, err := c.GetProfile(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if Detail(err) == "" {
		t.Fatal("expected non-empty detail for transport error")
	}
	if Detail(nil) != "" {
		t.Fatal("expected empty detail for nil error")
	}
}
