package domnode

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagewait/pagewait"
	"github.com/pagewait/pagewait/pagewaittest"
)

func TestParseKind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		want Kind
	}{
		{"treeitem", TreeItem},
		{"TreeItem", TreeItem},
		{"folder", Folder},
		{"MENU", Menu},
	}
	for _, test := range tests {
		k, err := ParseKind(test.name)
		require.NoError(t, err, test.name)
		require.Equal(t, test.want, k)
	}

	_, err := ParseKind("grid")
	require.ErrorContains(t, err, `unknown kind "grid"`)
	require.ErrorContains(t, err, "treeitem, folder, menu")

	require.Equal(t, "folder", Folder.String())
	require.Equal(t, "Kind(99)", Kind(99).String())
}

func TestKinds(t *testing.T) {
	t.Parallel()
	kinds := Kinds()
	require.True(t, slices.IsSorted(kinds), "%v", kinds)
	require.Equal(t, []Kind{TreeItem, Folder, Menu}, kinds[:3])

	// callers own the returned slice
	kinds[0] = Kind(42)
	require.Equal(t, TreeItem, Kinds()[0])
}

func TestRegister(t *testing.T) {
	t.Parallel()
	const Listbox Kind = 100

	require.ErrorContains(t, Register(Listbox, Style{Item: pagewait.CSS("li")}), "no name")
	require.ErrorContains(t, Register(Listbox, Style{Name: "listbox"}), "item")
	require.ErrorContains(t, Register(Listbox, Style{Name: "Menu", Item: pagewait.CSS("li")}), "already used")

	require.NoError(t, Register(Listbox, Style{
		Name:         "listbox",
		Item:         pagewait.CSS(":scope > [role=option]"),
		LabelAttr:    "aria-label",
		ExpandedAttr: "aria-expanded",
	}))
	k, err := ParseKind("listbox")
	require.NoError(t, err)
	require.Equal(t, Listbox, k)
	require.Contains(t, Kinds(), Listbox)

	ctx := context.Background()
	port := pagewaittest.NewPort(pagewaittest.E("doc").Append(
		pagewaittest.E("box", "[role=listbox]").Append(
			pagewaittest.E("a", "[role=option]").SetAttr("aria-label", "Alpha"),
			pagewaittest.E("b", "[role=option]").SetAttr("aria-label", "Beta"),
		),
	))
	w := pagewait.New(port, pagewait.WithClock(pagewaittest.NewClock()))
	root, err := Root(ctx, w, Listbox, pagewait.ID("box"))
	require.NoError(t, err)
	n, err := pagewait.FindLeaf(ctx, root, "beta")
	require.NoError(t, err)
	require.Equal(t, "#b", n.(*Node).Element().(*pagewaittest.Elem).String())
}
