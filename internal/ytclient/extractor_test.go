package ytclient

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hevcd/hevcd/internal/cookies"
	"github.com/hevcd/hevcd/internal/model"
)

type fakeRunner struct {
	extractErrs  []error // error per Extract call, nil means success
	extractMeta  *Metadata
	extractCalls int
	extractOpts  []RequestOptions

	downloadErrs  []error
	downloadCalls int
	onDownload    func(opts RequestOptions) // simulates files hitting disk
}

func (f *fakeRunner) Extract(ctx context.Context, url string, opts RequestOptions) (*Metadata, error) {
	idx := f.extractCalls
	f.extractCalls++
	f.extractOpts = append(f.extractOpts, opts)
	if idx < len(f.extractErrs) && f.extractErrs[idx] != nil {
		return nil, f.extractErrs[idx]
	}
	meta := f.extractMeta
	if meta == nil {
		meta = &Metadata{Title: "ok", Duration: 10}
	}
	return meta, nil
}

func (f *fakeRunner) Download(ctx context.Context, url string, opts RequestOptions) error {
	idx := f.downloadCalls
	f.downloadCalls++
	if f.onDownload != nil {
		f.onDownload(opts)
	}
	if idx < len(f.downloadErrs) {
		return f.downloadErrs[idx]
	}
	return nil
}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func testResolver(t *testing.T, withValidJar bool) *cookies.Resolver {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookies.txt")
	if withValidJar {
		jar := ".youtube.com\tTRUE\t/\tTRUE\t1999999999\tSID\tabc\n"
		if err := os.WriteFile(path, []byte(jar), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return cookies.NewResolver(path, testLogger())
}

func newTestExtractor(t *testing.T, runner Runner) *Extractor {
	t.Helper()
	e := NewExtractor(ExtractorConfig{
		Runner:      runner,
		Credentials: testResolver(t, true),
		Logger:      testLogger(),
	})
	e.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return e
}

func TestExtractSucceedsFirstAttempt(t *testing.T) {
	runner := &fakeRunner{extractMeta: &Metadata{Title: "My Video", Duration: 42}}
	e := newTestExtractor(t, runner)

	meta, err := e.Extract(context.Background(), "https://youtube.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if meta.Title != "My Video" {
		t.Errorf("unexpected title %q", meta.Title)
	}
	if runner.extractCalls != 1 {
		t.Errorf("expected 1 call, got %d", runner.extractCalls)
	}
}

func TestExtractRetryBound(t *testing.T) {
	// Every attempt rate limited: at most maxAttempts calls, then a
	// classified terminal error.
	rateLimited := errors.New("HTTP Error 429: Too Many Requests")
	runner := &fakeRunner{extractErrs: []error{rateLimited, rateLimited, rateLimited, rateLimited}}
	e := newTestExtractor(t, runner)

	_, err := e.Extract(context.Background(), "url")
	if err == nil {
		t.Fatal("expected error")
	}
	if runner.extractCalls != DefaultMaxAttempts {
		t.Errorf("expected exactly %d calls, got %d", DefaultMaxAttempts, runner.extractCalls)
	}
	if got := model.CategoryOf(err); got != model.CategoryRateLimited {
		t.Errorf("CategoryOf = %s, expected %s", got, model.CategoryRateLimited)
	}
}

func TestExtractDoesNotRetryFinalCategories(t *testing.T) {
	tests := []struct {
		msg      string
		category model.Category
	}{
		{"HTTP Error 403: Forbidden", model.CategoryForbidden},
		{"HTTP Error 404: Not Found", model.CategoryNotFound},
		{"something exploded", model.CategoryOther},
	}

	for _, test := range tests {
		runner := &fakeRunner{extractErrs: []error{errors.New(test.msg)}}
		e := newTestExtractor(t, runner)

		_, err := e.Extract(context.Background(), "url")
		if err == nil {
			t.Fatalf("%s: expected error", test.category)
		}
		if runner.extractCalls != 1 {
			t.Errorf("%s: expected 1 call, got %d", test.category, runner.extractCalls)
		}
		if got := model.CategoryOf(err); got != test.category {
			t.Errorf("CategoryOf = %s, expected %s", got, test.category)
		}
	}
}

func TestExtractRotatesIdentity(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestExtractor(t, runner)

	if _, err := e.Extract(context.Background(), "url"); err != nil {
		t.Fatal(err)
	}

	opts := runner.extractOpts[0]
	if opts.UserAgent == "" {
		t.Error("expected a user agent from the pool")
	}
	if len(opts.Headers) == 0 {
		t.Error("expected browser-like headers")
	}
}

func TestFallbackSweepStopsAtFirstSuccess(t *testing.T) {
	// First two applicable strategies fail, third succeeds: the sweep must
	// make exactly three attempts and surface the third result.
	blocked := errors.New("sign in to confirm you're not a bot")
	runner := &fakeRunner{
		extractErrs: []error{blocked, blocked, nil},
		extractMeta: &Metadata{Title: "recovered"},
	}
	e := newTestExtractor(t, runner)

	meta, err := e.ExtractWithFallback(context.Background(), "url")
	if err != nil {
		t.Fatalf("ExtractWithFallback returned error: %v", err)
	}
	if meta.Title != "recovered" {
		t.Errorf("unexpected title %q", meta.Title)
	}
	if runner.extractCalls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", runner.extractCalls)
	}
}

func TestFallbackSweepSurfacesLastError(t *testing.T) {
	blocked := errors.New("sign in to confirm you're not a bot")
	notFound := errors.New("HTTP Error 404: Not Found")
	// The last attempted strategy's error wins.
	runner := &fakeRunner{
		extractErrs: []error{blocked, blocked, blocked, notFound, notFound},
	}
	e := newTestExtractor(t, runner)

	_, err := e.ExtractWithFallback(context.Background(), "url")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := model.CategoryOf(err); got != model.CategoryNotFound {
		t.Errorf("CategoryOf = %s, expected %s", got, model.CategoryNotFound)
	}
}

func TestStrategyOrderAndDeltas(t *testing.T) {
	e := newTestExtractor(t, &fakeRunner{})

	strategies := e.strategies()
	wantOrder := []string{
		StrategyBrowserCookies, StrategyCookieFile, StrategyIgnoreAgeGate,
		StrategyGeoBypass, StrategyMinimal,
	}
	if len(strategies) != len(wantOrder) {
		t.Fatalf("expected %d strategies, got %d", len(wantOrder), len(strategies))
	}
	for i, name := range wantOrder {
		if strategies[i].Name != name {
			t.Errorf("strategy %d = %s, expected %s", i, strategies[i].Name, name)
		}
	}

	base := e.baseOptions()

	// Cookie file strategy binds the uploaded jar.
	opts, ok := strategies[1].Apply(base)
	if !ok {
		t.Fatal("cookie-file strategy should apply with a valid jar")
	}
	if opts.Credentials.Kind != cookies.SourceFile {
		t.Errorf("expected file credentials, got %s", opts.Credentials.Kind)
	}

	// Age gate strategy only flips the bypass knob.
	opts, ok = strategies[2].Apply(base)
	if !ok || !opts.BypassAgeGate {
		t.Error("ignore-age-gate strategy must set BypassAgeGate")
	}

	// Geo bypass forces a region.
	opts, ok = strategies[3].Apply(base)
	if !ok || opts.GeoBypassCountry == "" {
		t.Error("geo-bypass strategy must force a region")
	}

	// Minimal strips identity shaping.
	opts, ok = strategies[4].Apply(base)
	if !ok {
		t.Fatal("minimal strategy must always apply")
	}
	if opts.UserAgent != "" || len(opts.Headers) != 0 {
		t.Error("minimal strategy must strip identity headers")
	}
	if opts.Credentials.Kind != cookies.SourceNone {
		t.Error("minimal strategy must drop credentials")
	}
}
