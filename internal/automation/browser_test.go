package automation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/IshaanNene/BrokerScrape/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestSleepElapses(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Sleep returned early")
	}
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep ignored cancellation")
	}
}

func TestSleepZero(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Fatalf("Sleep(0): %v", err)
	}
}

// --- Browser-backed tests ---

const testPage = `<!DOCTYPE html><html><body>
<nav><button>Companies</button><button> Broker Contacts </button></nav>
<input id="q" value="old">
<select id="years"><option value="0">Any</option><option value="5">5</option></select>
<div id="out"></div>
<script>
document.querySelectorAll('button').forEach((b) => b.addEventListener('click', () => {
  document.getElementById('out').textContent = b.textContent.trim();
}));
</script>
</body></html>`

func newTestPage(t *testing.T) *BrowserAutomation {
	t.Helper()
	if testing.Short() || os.Getenv("BROKERSCRAPE_BROWSER_TESTS") != "1" {
		t.Skip("set BROKERSCRAPE_BROWSER_TESTS=1 to run browser tests")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(testPage))
	}))
	t.Cleanup(srv.Close)

	l := launcher.New().Headless(true).Set("no-sandbox")
	controlURL, err := l.Launch()
	if err != nil {
		t.Fatalf("launch browser: %v", err)
	}
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		t.Fatalf("connect browser: %v", err)
	}
	t.Cleanup(func() {
		_ = b.Close()
		l.Kill()
		l.Cleanup()
	})

	page, err := b.Page(proto.TargetCreateTarget{URL: srv.URL})
	if err != nil {
		t.Fatalf("open page: %v", err)
	}
	if err := page.WaitLoad(); err != nil {
		t.Fatalf("wait load: %v", err)
	}
	return NewBrowserAutomation(page, testLogger)
}

func TestClickByText(t *testing.T) {
	ba := newTestPage(t)
	ctx := context.Background()

	if err := ba.ClickByText(ctx, "button", "Broker Contacts", 5*time.Second); err != nil {
		t.Fatalf("ClickByText: %v", err)
	}
	out, err := ba.Page().MustElement("#out").Text()
	if err != nil {
		t.Fatal(err)
	}
	if out != "Broker Contacts" {
		t.Errorf("clicked %q", out)
	}
}

func TestClickByTextMissing(t *testing.T) {
	ba := newTestPage(t)

	err := ba.ClickByText(context.Background(), "button", "Contacts", 500*time.Millisecond)
	if !errors.Is(err, types.ErrNavigationTimeout) {
		t.Fatalf("expected a navigation timeout, got %v", err)
	}
}

func TestTypeSlowlyReplacesValue(t *testing.T) {
	ba := newTestPage(t)

	if err := ba.TypeSlowly(context.Background(), "#q", "Jane", time.Millisecond, 5*time.Second); err != nil {
		t.Fatalf("TypeSlowly: %v", err)
	}
	res, err := ba.EvalJS(context.Background(), `() => document.getElementById('q').value`)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Value.String(); got != "Jane" {
		t.Errorf("input value = %q", got)
	}
}

func TestSelectByValue(t *testing.T) {
	ba := newTestPage(t)
	ctx := context.Background()

	el, err := ba.WaitFor(ctx, "#years", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if err := ba.SelectByValue(el, "5"); err != nil {
		t.Fatalf("SelectByValue: %v", err)
	}
	res, err := ba.EvalJS(ctx, `() => document.getElementById('years').value`)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Value.String(); got != "5" {
		t.Errorf("select value = %q", got)
	}
}
