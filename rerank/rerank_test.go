package rerank

import (
	"context"
	"testing"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/utils"
)

// fakeCatalog 只实现 Diversity 需要的目录读接口。
type fakeCatalog struct {
	books map[string]*core.Book
}

func (c *fakeCatalog) GetBook(_ context.Context, isbn string) (*core.Book, error) {
	b, ok := c.books[isbn]
	if !ok {
		return nil, core.NewNotFoundError("store", "book "+isbn)
	}
	return b, nil
}

func (c *fakeCatalog) GetBooksByGenre(context.Context, string, int) ([]string, error) {
	return nil, nil
}

func labeled(id, author string) *core.Item {
	it := core.NewItem(id)
	if author != "" {
		it.PutLabel("author", utils.Label{Value: author, Source: "recall"})
	}
	return it
}

func ids(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestDiversityCapsPrimaryAuthor(t *testing.T) {
	n := &Diversity{}
	items := []*core.Item{
		labeled("isbn-1", "Robin Hobb"),
		labeled("isbn-2", "Robin Hobb"),
		labeled("isbn-3", "Robin Hobb"), // 超过默认配额 2，被跳过
		labeled("isbn-4", "Ken Liu"),
		labeled("isbn-5", ""), // 无作者信息，不限流
	}

	out, err := n.Process(context.Background(), nil, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	want := []string{"isbn-1", "isbn-2", "isbn-4", "isbn-5"}
	got := ids(out)
	if len(got) != len(want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ids[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDiversityCatalogFallback(t *testing.T) {
	catalog := &fakeCatalog{books: map[string]*core.Book{
		"isbn-1": {ISBN: "isbn-1", Authors: []string{"Robin Hobb", "Megan Lindholm"}},
		"isbn-2": {ISBN: "isbn-2", Authors: []string{"Robin Hobb"}},
		"isbn-3": {ISBN: "isbn-3", Authors: []string{"Robin Hobb"}},
	}}
	n := &Diversity{Catalog: catalog, MaxPerAuthor: 1}
	items := []*core.Item{
		core.NewItem("isbn-1"),
		core.NewItem("isbn-2"), // 第一作者同为 Robin Hobb，配额 1 已用完
		core.NewItem("isbn-3"),
		core.NewItem("isbn-x"), // 目录里没有，视为无作者
	}

	out, err := n.Process(context.Background(), nil, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	want := []string{"isbn-1", "isbn-x"}
	got := ids(out)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func TestDiversityKeepsScoreOrder(t *testing.T) {
	// 限流只跳过超配额项，不改变其余候选的相对顺序
	n := &Diversity{MaxPerAuthor: 1}
	items := []*core.Item{
		labeled("isbn-a", "A"),
		labeled("isbn-b", "B"),
		labeled("isbn-a2", "A"),
		labeled("isbn-c", "C"),
	}

	out, err := n.Process(context.Background(), nil, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	want := []string{"isbn-a", "isbn-b", "isbn-c"}
	got := ids(out)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ids = %v, want %v", got, want)
			break
		}
	}
}

func TestTopN(t *testing.T) {
	items := []*core.Item{
		core.NewItem("isbn-1"),
		core.NewItem("isbn-2"),
		core.NewItem("isbn-3"),
	}
	cases := []struct {
		name string
		n    int
		rctx *core.RecommendContext
		want int
	}{
		{"explicit n", 2, nil, 2},
		{"fallback to request limit", 0, &core.RecommendContext{Limit: 1}, 1},
		{"no limit anywhere", 0, nil, 3},
		{"n beyond list", 10, nil, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			node := &TopN{N: tc.n}
			out, err := node.Process(context.Background(), tc.rctx, items)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if len(out) != tc.want {
				t.Errorf("len(out) = %d, want %d", len(out), tc.want)
			}
		})
	}
}
