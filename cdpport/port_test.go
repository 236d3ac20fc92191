package cdpport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/require"

	"github.com/pagewait/pagewait"
	"github.com/pagewait/pagewait/domnode"
	"github.com/pagewait/pagewait/pagewaittest"
)

func TestQueryTimeout(t *testing.T) {
	t.Parallel()

	p := New()
	require.Equal(t, DefaultQueryTimeout, p.timeout(context.Background()))
	require.Equal(t, 5*time.Second, New(WithQueryTimeout(5*time.Second)).timeout(context.Background()))

	// the query timeout follows what is left of the wait, down to the
	// minimum
	w := pagewait.New(nil, pagewait.WithClock(pagewaittest.NewClock()))
	var got []time.Duration
	w.Until(context.Background(), "never", func(ctx context.Context) (bool, error) {
		got = append(got, p.timeout(ctx))
		return false, nil
	}, pagewait.Timeout(2500*time.Millisecond))
	require.Equal(t, DefaultQueryTimeout, got[0])
	require.Equal(t, DefaultQueryTimeout, got[5])
	require.Equal(t, 1400*time.Millisecond, got[11])
	require.Equal(t, MinQueryTimeout, got[len(got)-1])

	got = got[:0]
	w.Until(context.Background(), "once", func(ctx context.Context) (bool, error) {
		got = append(got, p.timeout(ctx))
		return false, nil
	}, pagewait.Timeout(0))
	require.Equal(t, []time.Duration{MinQueryTimeout}, got)
}

func TestQueryError(t *testing.T) {
	t.Parallel()

	p := New()
	loc := pagewait.CSS(".spinner")

	// cut short by the query timeout: unknown, not absent
	err := p.queryError(context.Background(), loc, time.Second, fmt.Errorf("nodes: %w", context.DeadlineExceeded))
	require.ErrorIs(t, err, pagewait.ErrStaleReference)
	require.ErrorContains(t, err, "no answer within 1s")

	// the caller gave up
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.queryError(ctx, loc, time.Second, context.DeadlineExceeded)
	require.False(t, errors.Is(err, pagewait.ErrStaleReference))

	err = p.queryError(context.Background(), loc, time.Second, &cdproto.Error{Code: -32000, Message: "DOM Error while querying"})
	require.False(t, errors.Is(err, pagewait.ErrStaleReference))
	require.ErrorContains(t, err, `cdpport: query css(".spinner")`)
}

// A query that never answers keeps a busy indicator busy.
func TestWaitBusyQueryCutShort(t *testing.T) {
	t.Parallel()

	p := New()
	cutShort := &queryFunc{fn: func(ctx context.Context, loc pagewait.Locator) ([]pagewait.Element, error) {
		return nil, p.queryError(ctx, loc, p.timeout(ctx), context.DeadlineExceeded)
	}}
	clock := pagewaittest.NewClock()
	w := pagewait.New(cutShort, pagewait.WithClock(clock), pagewait.WithErrorf(t.Logf))
	err := w.WaitBusy(context.Background(), pagewait.CSS(".spinner"), time.Second)
	require.ErrorIs(t, err, pagewait.ErrTimeout)
	require.Equal(t, time.Second, clock.Elapsed())
}

// queryFunc is a pagewait.Port answering queries with fn.
type queryFunc struct {
	fn func(context.Context, pagewait.Locator) ([]pagewait.Element, error)
}

func (q *queryFunc) Query(ctx context.Context, loc pagewait.Locator) ([]pagewait.Element, error) {
	return q.fn(ctx, loc)
}

func (q *queryFunc) Displayed(context.Context, pagewait.Element) (bool, error) { return true, nil }

func (q *queryFunc) Children(ctx context.Context, el pagewait.Element, loc pagewait.Locator) ([]pagewait.Element, error) {
	return q.fn(ctx, loc.Within(el))
}

func (q *queryFunc) Invoke(context.Context, pagewait.Element, pagewait.Action) error { return nil }

func TestElementType(t *testing.T) {
	t.Parallel()

	_, err := New().Displayed(context.Background(), "not a node")
	require.ErrorContains(t, err, "not *cdp.Node")
}

const testPage = `<!doctype html>
<html><body>
<button id="save" onclick="document.getElementById('status').textContent='saved'">Save</button>
<button id="later" onclick="setTimeout(() => { const d = document.createElement('div'); d.id = 'late'; d.textContent = 'late'; document.body.appendChild(d) }, 300)">Later</button>
<div id="status" data-state="idle"></div>
<div id="hidden" style="display:none">nope</div>
<ul id="list"><li>one</li><li>two</li></ul>
<ul id="nav" role="tree">
  <li role="treeitem" id="reports" aria-label="Reports" aria-expanded="false">
    <span role="presentation">Reports</span>
    <ul role="group" hidden>
      <li role="treeitem" id="daily" aria-label="Daily Summary"><span role="presentation">Daily Summary</span></li>
      <li role="treeitem" id="weekly" aria-label="Weekly"><span role="presentation">Weekly</span></li>
    </ul>
  </li>
</ul>
<script>
document.getElementById('nav').addEventListener('click', e => {
  const item = e.target.closest('[role=treeitem]');
  if (!item || !item.hasAttribute('aria-expanded')) return;
  const open = item.getAttribute('aria-expanded') !== 'true';
  item.setAttribute('aria-expanded', String(open));
  item.querySelector(':scope > [role=group]').hidden = !open;
});
</script>
</body></html>`

// newTab starts a headless browser on the test page, or skips the test
// when none is installed.
func newTab(t *testing.T) context.Context {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	bin := os.Getenv("PAGEWAIT_TEST_CHROME")
	if bin == "" {
		for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
			if path, err := exec.LookPath(name); err == nil {
				bin = path
				break
			}
		}
		if bin == "" {
			t.Skip("no browser found")
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, testPage)
	}))
	t.Cleanup(srv.Close)

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.ExecPath(bin))
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	t.Cleanup(cancelAlloc)
	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(t.Logf))
	t.Cleanup(cancel)
	ctx, cancelTimeout := context.WithTimeout(ctx, 30*time.Second)
	t.Cleanup(cancelTimeout)
	require.NoError(t, chromedp.Run(ctx, chromedp.Navigate(srv.URL)))
	return ctx
}

func TestBrowser(t *testing.T) {
	ctx := newTab(t)
	p := New(WithDebugf(t.Logf))
	w := pagewait.New(p, pagewait.WithPolicy(pagewait.Seconds(1, 5)), pagewait.WithLogf(t.Logf))

	busy, err := PageBusy(ctx)
	require.NoError(t, err)
	require.False(t, busy)

	// native click, then text and attributes
	require.NoError(t, w.Click(ctx, pagewait.ID("save")))
	status, err := w.WaitOne(ctx, pagewait.ID("status"))
	require.NoError(t, err)
	text, err := p.Text(ctx, status)
	require.NoError(t, err)
	require.Equal(t, "saved", text)
	v, ok, err := p.Attribute(ctx, status, "data-state")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "idle", v)
	_, ok, err = p.Attribute(ctx, status, "data-missing")
	require.NoError(t, err)
	require.False(t, ok)

	// script click, and a wait for content rendered afterwards
	later, err := w.WaitOne(ctx, pagewait.ID("later"), pagewait.Visible())
	require.NoError(t, err)
	require.NoError(t, p.Invoke(ctx, later, pagewait.ScriptClick))
	late, err := w.WaitOne(ctx, pagewait.ID("late"), pagewait.Visible())
	require.NoError(t, err)
	text, err = p.Text(ctx, late)
	require.NoError(t, err)
	require.Equal(t, "late", text)

	res, err := w.WaitAny(ctx, []pagewait.Locator{pagewait.ID("hidden"), pagewait.ID("save")},
		pagewait.Visible(), pagewait.Tiny())
	require.NoError(t, err)
	require.Nil(t, res[0])
	require.NotNil(t, res[1])
	hidden, err := w.WaitOne(ctx, pagewait.ID("hidden"))
	require.NoError(t, err)
	shown, err := p.Displayed(ctx, hidden)
	require.NoError(t, err)
	require.False(t, shown)

	list, err := w.WaitOne(ctx, pagewait.ID("list"))
	require.NoError(t, err)
	items, err := p.Children(ctx, list, pagewait.CSS(":scope > li"))
	require.NoError(t, err)
	require.Len(t, items, 2)
	xitems, err := p.Query(ctx, pagewait.XPath("//ul[@id='list']/li"))
	require.NoError(t, err)
	require.Len(t, xitems, 2)

	// tree resolution through domnode
	root, err := domnode.Root(ctx, w, domnode.TreeItem, pagewait.ID("nav"))
	require.NoError(t, err)
	n, err := w.Resolve(ctx, root, "reports/Weekly")
	require.NoError(t, err)
	path, err := pagewait.PathOf(ctx, n)
	require.NoError(t, err)
	require.Equal(t, "Reports/Weekly", path.String())
	paths, err := pagewait.AllLeafPaths(ctx, root)
	require.NoError(t, err)
	require.Equal(t, "[Reports/Daily Summary Reports/Weekly]", fmt.Sprint(paths))

	// busy while an element is marked busy
	require.NoError(t, chromedp.Run(ctx, chromedp.Evaluate(`document.getElementById('status').setAttribute('aria-busy', 'true')`, nil)))
	busy, err = PageBusy(ctx)
	require.NoError(t, err)
	require.True(t, busy)

	// handles to removed nodes are stale
	require.NoError(t, chromedp.Run(ctx, chromedp.Evaluate(`document.getElementById('list').remove()`, nil)))
	_, err = p.Text(ctx, list)
	require.ErrorIs(t, err, pagewait.ErrStaleReference)
	_, err = p.Children(ctx, list, pagewait.CSS(":scope > li"))
	require.ErrorIs(t, err, pagewait.ErrStaleReference)
}
