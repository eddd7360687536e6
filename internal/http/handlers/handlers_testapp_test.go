package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gabriel/manhwa-hub/backend/internal/account"
	"github.com/gabriel/manhwa-hub/backend/internal/cache"
	"github.com/gabriel/manhwa-hub/backend/internal/config"
	"github.com/gabriel/manhwa-hub/backend/internal/content"
	"github.com/gabriel/manhwa-hub/backend/internal/database"
	"github.com/gabriel/manhwa-hub/backend/internal/extract"
	"github.com/gabriel/manhwa-hub/backend/internal/fetch"
	apihttp "github.com/gabriel/manhwa-hub/backend/internal/http"
	"github.com/gabriel/manhwa-hub/backend/internal/repository"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const upstreamHome = `<html><body>
<div class="page-item-detail"><a href="/manhwa/solo-leveling/" title="Solo Leveling"><img data-src="/covers/solo.jpg"></a><span class="chapter-item">Chapter 2</span></div>
<div class="page-item-detail"><a href="/manhwa/tower-of-god/" title="Tower of God"><img src="/covers/tog.jpg"></a></div>
</body></html>`

const upstreamDetail = `<html><body>
<div class="post-title"><h1>Solo Leveling</h1></div>
<div class="summary__content"><p>Hunters and gates.</p></div>
<div class="genres-content"><a href="/g/action/">Action</a></div>
<ul>
<li class="wp-manga-chapter"><a href="/manhwa/solo-leveling/chapter-2/">Chapter 2</a></li>
<li class="wp-manga-chapter"><a href="/manhwa/solo-leveling/chapter-1-5/">Chapter 1.5</a></li>
<li class="wp-manga-chapter"><a href="/manhwa/solo-leveling/chapter-1/">Chapter 1</a></li>
</ul>
</body></html>`

type testApp struct {
	app      *fiber.App
	upstream *httptest.Server
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(upstreamHome))
	})
	mux.HandleFunc("/manhwa/solo-leveling/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(upstreamDetail))
	})
	mux.HandleFunc("/manhwa/solo-leveling/chapter-1-5/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<div class="reading-content"><img data-src="https://cdn.example/solo/1-5/01.jpg"><img src="https://cdn.example/solo/1-5/02.jpg"></div>`))
	})
	mux.HandleFunc("/manhwa/solo-leveling/chapter-1/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<div class="reading-content"></div>`))
	})
	mux.HandleFunc("/genres/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<ul class="genres"><li><a href="/?slug=action">Action</a></li></ul>`))
	})
	upstream := httptest.NewServer(mux)
	t.Cleanup(upstream.Close)

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsPath := filepath.Join(filepath.Dir(currentFile), "..", "..", "..", "migrations")
	if err := database.ApplyMigrations(db, migrationsPath); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	popular := cache.New(15*time.Minute, 8, nil)
	fetcher := fetch.NewFetcher(fetch.Options{BaseURL: upstream.URL, Timeout: 5 * time.Second, Logger: logger})
	engine := extract.NewEngine(extract.Config{BaseURL: upstream.URL, Logger: logger}, fetcher, popular)

	tokens := account.TokenService{Secret: []byte("test-secret"), Issuer: "test", Duration: time.Hour}
	accounts := account.NewService(repository.NewUserRepository(db), repository.NewBookmarkRepository(db), tokens).
		WithHashCost(bcrypt.MinCost)

	cfg := config.Config{AppName: "test-app", CORSOrigins: "*"}
	app := apihttp.NewServer(cfg, apihttp.Dependencies{
		DB:       db,
		Content:  content.NewService(engine, fetcher, logger),
		Accounts: accounts,
		Popular:  popular,
	})
	t.Cleanup(func() { _ = app.Shutdown() })

	return &testApp{app: app, upstream: upstream}
}

func (a *testApp) do(t *testing.T, method string, target string, body any, token string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, target, err)
	}
	defer res.Body.Close()

	payload := map[string]any{}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode %s %s response: %v", method, target, err)
	}
	return res.StatusCode, payload
}
