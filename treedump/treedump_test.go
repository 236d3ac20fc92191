package treedump

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/mailru/easyjson"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"

	"github.com/pagewait/pagewait"
	"github.com/pagewait/pagewait/pagewaittest"
)

var update = flag.Bool("update", false, "update golden files")

func samples() *pagewaittest.Node {
	return pagewaittest.Folder("Samples",
		pagewaittest.Folder("Reports",
			pagewaittest.Leaf("Daily Summary"),
			pagewaittest.Leaf("Weekly").Hide(),
		).Open(),
		pagewaittest.Folder("Archive",
			pagewaittest.Folder("2023",
				pagewaittest.Leaf("Daily Summary"),
			),
		),
		pagewaittest.Folder("Empty").SetExpandable(false).SetContainer(true),
		pagewaittest.Leaf("Notes"),
	).Open()
}

// golden compares got with testdata/name, showing a unified diff on
// mismatch. Run with -update to rewrite the file.
func golden(t *testing.T, name, got string) {
	t.Helper()
	path := filepath.Join("testdata", name)
	if *update {
		require.NoError(t, os.WriteFile(path, []byte(got), 0o644))
		return
	}
	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	want := string(buf)
	if want == got {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: path,
		ToFile:   "got",
		Context:  3,
	})
	require.NoError(t, err)
	t.Fatalf("%s mismatch:\n%s", name, diff)
}

func TestTake(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		opts []Option
	}{
		{"current.golden", nil},
		{"forced.golden", []Option{Force()}},
		{"depth1.golden", []Option{Force(), MaxDepth(1)}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			s, err := Take(context.Background(), samples(), test.opts...)
			require.NoError(t, err)
			var buf bytes.Buffer
			_, err = s.WriteTo(&buf)
			require.NoError(t, err)
			golden(t, test.name, buf.String())
		})
	}
}

func TestTakeDoesNotExpand(t *testing.T) {
	t.Parallel()
	root := samples()
	_, err := Take(context.Background(), root)
	require.NoError(t, err)
	require.False(t, root.Child("Archive").IsExpanded())
	require.Zero(t, root.Child("Archive").Stats().ChildrenCalls)

	_, err = Take(context.Background(), root, MaxDepth(1), Force())
	require.NoError(t, err)
	require.False(t, root.Child("Archive").IsExpanded(), "beyond the depth limit")

	_, err = Take(context.Background(), root, Force())
	require.NoError(t, err)
	require.True(t, root.Child("Archive").Child("2023").IsExpanded())
}

func TestPaths(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := samples()
	s, err := Take(ctx, root, Force())
	require.NoError(t, err)

	want, err := pagewait.AllLeafPaths(ctx, root)
	require.NoError(t, err)
	require.Equal(t, want, s.Paths())

	n := s.Find(pagewait.Path{"archive", "2023"})
	require.NotNil(t, n)
	require.Equal(t, "2023", n.Label)
	require.Len(t, n.Children, 1)
	require.Nil(t, s.Find(pagewait.Path{"Archive", "2024"}))
	require.Same(t, s, s.Find(nil))
}

func TestJSON(t *testing.T) {
	t.Parallel()
	root := pagewaittest.Folder("Root",
		pagewaittest.Leaf(`Say "hi"`),
		pagewaittest.Folder("Closed"),
	).Open()
	s, err := Take(context.Background(), root)
	require.NoError(t, err)

	buf, err := easyjson.Marshal(s)
	require.NoError(t, err)
	const want = `{"label":"Root","displayed":true,"expandable":true,"expanded":true,"container":true,"children":[` +
		`{"label":"Say \"hi\"","displayed":true},` +
		`{"label":"Closed","displayed":true,"expandable":true,"expanded":false,"container":true}]}`
	require.Equal(t, want, string(buf))

	std, err := json.Marshal(s)
	require.NoError(t, err)
	require.JSONEq(t, want, string(std))

	var back Snapshot
	require.NoError(t, easyjson.Unmarshal(buf, &back))
	require.Equal(t, s, &back)

	require.Error(t, json.Unmarshal([]byte(`{"label":`), &back))
}

func TestTakeError(t *testing.T) {
	t.Parallel()
	root := samples()
	root.Child("Reports").GoStale(1)
	_, err := Take(context.Background(), root)
	require.ErrorIs(t, err, pagewait.ErrStaleReference)
}
