package pagewait_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pagewait/pagewait"
	"github.com/pagewait/pagewait/pagewaittest"
)

// page builds a small document: a visible button, a hidden dialog and a
// list of two items.
func page() (*pagewaittest.Port, map[string]*pagewaittest.Elem) {
	els := map[string]*pagewaittest.Elem{
		"button": pagewaittest.E("ok", "button"),
		"dialog": pagewaittest.E("dlg", "dialog").SetHidden(true),
		"list":   pagewaittest.E("list", "ul"),
		"item1":  pagewaittest.E("i1", "li"),
		"item2":  pagewaittest.E("i2", "li"),
	}
	els["list"].Append(els["item1"], els["item2"])
	root := pagewaittest.E("root").Append(els["button"], els["dialog"], els["list"])
	return pagewaittest.NewPort(root), els
}

func TestWaitOne(t *testing.T) {
	t.Parallel()

	port, els := page()
	w, _ := newWaiter(t, port)
	ctx := context.Background()

	el, err := w.WaitOne(ctx, pagewait.CSS("button"))
	if err != nil {
		t.Fatal(err)
	}
	if el != els["button"] {
		t.Fatalf("want %v, got %v", els["button"], el)
	}

	// present but hidden
	el, err = w.WaitOne(ctx, pagewait.CSS("dialog"))
	if err != nil || el != els["dialog"] {
		t.Fatalf("want hidden dialog without Visible, got %v, %v", el, err)
	}
	_, err = w.WaitOne(ctx, pagewait.CSS("dialog"), pagewait.Visible(), pagewait.Timeout(time.Second))
	if !errors.Is(err, pagewait.ErrTimeout) {
		t.Fatalf("want timeout, got %v", err)
	}
	if !strings.Contains(err.Error(), `visible css("dialog")`) {
		t.Errorf("want error to name the locator, got %q", err)
	}

	el, err = w.WaitOne(ctx, pagewait.CSS("dialog"), pagewait.Visible(), pagewait.Optional())
	if err != nil || el != nil {
		t.Fatalf("want absent, got %v, %v", el, err)
	}

	// scoped
	el, err = w.WaitOne(ctx, pagewait.CSS("li").Within(els["list"]))
	if err != nil || el != els["item1"] {
		t.Fatalf("want first item, got %v, %v", el, err)
	}

	_, err = w.WaitOne(ctx, pagewait.Locator{})
	if !errors.Is(err, pagewait.ErrInvalidLocator) {
		t.Fatalf("want ErrInvalidLocator, got %v", err)
	}
}

func TestWaitOneAppears(t *testing.T) {
	t.Parallel()

	port, els := page()
	w, clock := newWaiter(t, port)
	clock.At(1500*time.Millisecond, func() {
		els["dialog"].SetHidden(false)
	})

	el, err := w.WaitOne(context.Background(), pagewait.ID("dlg"), pagewait.Visible())
	if err != nil {
		t.Fatal(err)
	}
	if el != els["dialog"] {
		t.Fatalf("want dialog, got %v", el)
	}
	if got := clock.Elapsed(); got != 1500*time.Millisecond {
		t.Fatalf("want 1.5s, got %v", got)
	}
}

func TestWaitAnyPresentAbsent(t *testing.T) {
	t.Parallel()

	port, els := page()
	w, _ := newWaiter(t, port)

	res, err := w.WaitAny(context.Background(), []pagewait.Locator{
		pagewait.CSS("button"),
		pagewait.CSS("missing"),
	}, pagewait.Timeout(time.Second), pagewait.DisplayFlags(true, true))
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 || res[0] != els["button"] || res[1] != nil {
		t.Fatalf("want [button, nil], got %v", res)
	}
}

func TestWaitAnySubsets(t *testing.T) {
	t.Parallel()

	const n = 3
	for mask := 0; mask < 1<<n; mask++ {
		root := pagewaittest.E("root")
		locs := make([]pagewait.Locator, n)
		want := make([]*pagewaittest.Elem, n)
		for i := 0; i < n; i++ {
			tag := string(rune('a' + i))
			locs[i] = pagewait.CSS(tag)
			if mask&(1<<i) != 0 {
				want[i] = pagewaittest.E(tag, tag)
				root.Append(want[i])
			}
		}
		w, _ := newWaiter(t, pagewaittest.NewPort(root))
		res, err := w.WaitAny(context.Background(), locs, pagewait.Timeout(300*time.Millisecond))

		if mask == 0 {
			if !errors.Is(err, pagewait.ErrTimeout) {
				t.Fatalf("mask %03b: want timeout, got %v, %v", mask, res, err)
			}
			res, err = w.WaitAny(context.Background(), locs, pagewait.Optional())
			if err != nil || res != nil {
				t.Fatalf("mask %03b: want absent, got %v, %v", mask, res, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("mask %03b: %v", mask, err)
		}
		for i := 0; i < n; i++ {
			if (want[i] == nil) != (res[i] == nil) || (want[i] != nil && res[i] != want[i]) {
				t.Errorf("mask %03b: slot %d: want %v, got %v", mask, i, want[i], res[i])
			}
		}
	}
}

func TestWaitAnyDisplayFlags(t *testing.T) {
	t.Parallel()

	port, els := page()
	w, _ := newWaiter(t, port)
	locs := []pagewait.Locator{pagewait.CSS("dialog"), pagewait.CSS("button")}

	res, err := w.WaitAny(context.Background(), locs, pagewait.DisplayFlags(true, false))
	if err != nil {
		t.Fatal(err)
	}
	if res[0] != nil || res[1] != els["button"] {
		t.Fatalf("want [nil, button], got %v", res)
	}

	res, err = w.WaitAny(context.Background(), locs, pagewait.DisplayFlags(false, false))
	if err != nil {
		t.Fatal(err)
	}
	if res[0] != els["dialog"] || res[1] != els["button"] {
		t.Fatalf("want [dialog, button], got %v", res)
	}

	if _, err := w.WaitAny(context.Background(), nil); !errors.Is(err, pagewait.ErrInvalidLocator) {
		t.Fatalf("want ErrInvalidLocator for no locators, got %v", err)
	}
}

func TestWaitBusy(t *testing.T) {
	t.Parallel()

	spinner := pagewaittest.E("spinner", "spinner")
	port := pagewaittest.NewPort(pagewaittest.E("root").Append(spinner))
	w, clock := newWaiter(t, port)
	clock.At(2*time.Second, func() { spinner.SetHidden(true) })

	if err := w.WaitBusy(context.Background(), pagewait.CSS("spinner"), 5*time.Second); err != nil {
		t.Fatal(err)
	}
	if got := clock.Elapsed(); got != 2*time.Second {
		t.Fatalf("want 2s, got %v", got)
	}
}

func TestWaitWhileNeverClears(t *testing.T) {
	t.Parallel()

	w, clock := newWaiter(t, nil)
	err := w.WaitWhile(context.Background(), "loading", func(context.Context) (bool, error) {
		return true, nil
	}, 5*time.Second)
	var te *pagewait.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("want *TimeoutError, got %v", err)
	}
	if !te.Fatal || te.What != "loading" || te.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout error: %+v", te)
	}
	if got := clock.Elapsed(); got != 5*time.Second {
		t.Fatalf("want 5s, got %v", got)
	}
}

func TestWaitCountIncrease(t *testing.T) {
	t.Parallel()

	w, clock := newWaiter(t, nil)
	items := []string{"a", "b"}
	clock.At(time.Second, func() { items = append(items, "c") })

	var seen []int
	got, err := pagewait.WaitCountIncrease(context.Background(), w, "messages", len(items), func(context.Context) ([]string, error) {
		seen = append(seen, len(items))
		return append([]string(nil), items...), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[2] != "c" {
		t.Fatalf("want the longer sequence, got %v", got)
	}
	if len(seen) != 11 {
		t.Errorf("want 11 enumerations, got %d", len(seen))
	}

	_, err = pagewait.WaitCountIncrease(context.Background(), w, "messages", 3, func(context.Context) ([]string, error) {
		return items, nil
	}, pagewait.Timeout(time.Second))
	if !errors.Is(err, pagewait.ErrTimeout) || !strings.Contains(err.Error(), "messages to grow past 3") {
		t.Fatalf("want timeout naming the baseline, got %v", err)
	}
}

func TestWaitNewElements(t *testing.T) {
	t.Parallel()

	port, els := page()
	w, clock := newWaiter(t, port)
	ctx := context.Background()

	n, err := w.Count(ctx, pagewait.CSS("li"))
	if err != nil || n != 2 {
		t.Fatalf("want 2 items, got %d, %v", n, err)
	}
	clock.At(700*time.Millisecond, func() {
		els["list"].Append(pagewaittest.E("i3", "li"))
	})
	got, err := w.WaitNewElements(ctx, pagewait.CSS("li"), n)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 items, got %d", len(got))
	}

	ok, err := w.Exists(ctx, pagewait.ID("i3"))
	if err != nil || !ok {
		t.Fatalf("want new item to exist, got %v, %v", ok, err)
	}
}

func TestWaitStaleScope(t *testing.T) {
	t.Parallel()

	port, els := page()
	w, _ := newWaiter(t, port)
	els["list"].Remove()
	loc := pagewait.CSS("li").Within(els["list"])

	el, err := w.WaitOne(context.Background(), loc, pagewait.Timeout(time.Second), pagewait.Optional())
	if err != nil || el != nil {
		t.Fatalf("want stale scope absorbed, got %v, %v", el, err)
	}
	_, err = w.WaitOne(context.Background(), loc, pagewait.PropagateStale())
	if !errors.Is(err, pagewait.ErrStaleReference) {
		t.Fatalf("want ErrStaleReference, got %v", err)
	}
}
