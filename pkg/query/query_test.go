package query_test

import (
	"testing"

	"github.com/JaimeStill/glimpse/pkg/query"
)

func testProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "batches", "b").
		Project("id", "ID").
		Project("label_hint", "LabelHint").
		Project("created_at", "CreatedAt")
}

func ptr(s string) *string { return &s }

func TestProjectionMapTable(t *testing.T) {
	p := testProjection()
	if got, want := p.Table(), "public.batches b"; got != want {
		t.Errorf("Table() = %q, want %q", got, want)
	}
}

func TestProjectionMapColumns(t *testing.T) {
	p := testProjection()
	if got, want := p.Columns(), "b.id, b.label_hint, b.created_at"; got != want {
		t.Errorf("Columns() = %q, want %q", got, want)
	}
}

func TestProjectionMapColumn(t *testing.T) {
	p := testProjection()

	tests := []struct {
		name   string
		field  string
		want   string
		mapped bool
	}{
		{"mapped field", "LabelHint", "b.label_hint", true},
		{"mapped timestamp", "CreatedAt", "b.created_at", true},
		{"unmapped", "label_hint; DROP TABLE batches", "", false},
		{"column name is not a field", "label_hint", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Column(tt.field)
			if got != tt.want || ok != tt.mapped {
				t.Errorf("Column(%q) = (%q, %v), want (%q, %v)", tt.field, got, ok, tt.want, tt.mapped)
			}
		})
	}
}

func TestProjectionMapReproject(t *testing.T) {
	p := query.NewProjectionMap("public", "batch_results", "r").
		Project("rank", "Rank").
		Project("label", "Label").
		Project("position", "Rank")

	if got, want := p.Columns(), "r.position, r.label"; got != want {
		t.Errorf("Columns() = %q, want %q", got, want)
	}
	if got, _ := p.Column("Rank"); got != "r.position" {
		t.Errorf("Column(Rank) = %q, want r.position", got)
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{name: "empty string", input: "", want: nil},
		{
			name:  "single ascending",
			input: "LabelHint",
			want:  []query.SortField{{Field: "LabelHint"}},
		},
		{
			name:  "single descending",
			input: "-CreatedAt",
			want:  []query.SortField{{Field: "CreatedAt", Descending: true}},
		},
		{
			name:  "multiple mixed",
			input: "LabelHint,-CreatedAt",
			want: []query.SortField{
				{Field: "LabelHint"},
				{Field: "CreatedAt", Descending: true},
			},
		},
		{
			name:  "with spaces",
			input: " LabelHint , -CreatedAt ",
			want: []query.SortField{
				{Field: "LabelHint"},
				{Field: "CreatedAt", Descending: true},
			},
		},
		{
			name:  "empty parts skipped",
			input: "LabelHint,,CreatedAt",
			want: []query.SortField{
				{Field: "LabelHint"},
				{Field: "CreatedAt"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if tt.want == nil {
				if got != nil {
					t.Errorf("ParseSortFields(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseSortFields(%q) length = %d, want %d", tt.input, len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseSortFields(%q)[%d] = %v, want %v", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuilderBuild(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).Build()

	wantSQL := "SELECT b.id, b.label_hint, b.created_at FROM public.batches b"
	if sql != wantSQL {
		t.Errorf("Build() sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 0 {
		t.Errorf("Build() args = %v, want empty", args)
	}
}

func TestBuilderBuildCount(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).BuildCount()

	wantSQL := "SELECT COUNT(*) FROM public.batches b"
	if sql != wantSQL {
		t.Errorf("BuildCount() sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 0 {
		t.Errorf("BuildCount() args = %v, want empty", args)
	}
}

func TestBuilderBuildPage(t *testing.T) {
	b := query.NewBuilder(testProjection(), query.SortField{Field: "CreatedAt", Descending: true})
	sql, args := b.BuildPage(2, 10)

	wantSQL := "SELECT b.id, b.label_hint, b.created_at FROM public.batches b ORDER BY b.created_at DESC LIMIT 10 OFFSET 10"
	if sql != wantSQL {
		t.Errorf("BuildPage() sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 0 {
		t.Errorf("BuildPage() args = %v, want empty", args)
	}
}

func TestBuilderBuildSingle(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).BuildSingle("ID", "abc-123")

	wantSQL := "SELECT b.id, b.label_hint, b.created_at FROM public.batches b WHERE b.id = $1"
	if sql != wantSQL {
		t.Errorf("BuildSingle() sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "abc-123" {
		t.Errorf("BuildSingle() args = %v, want [abc-123]", args)
	}
}

func TestBuilderWhereEquals(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).
		WhereEquals("LabelHint", "cart").
		Build()

	wantSQL := "SELECT b.id, b.label_hint, b.created_at FROM public.batches b WHERE b.label_hint = $1"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "cart" {
		t.Errorf("args = %v, want [cart]", args)
	}
}

func TestBuilderWhereEqualsNilSkipped(t *testing.T) {
	var label *string
	sql, args := query.NewBuilder(testProjection()).
		WhereEquals("LabelHint", nil).
		WhereEquals("LabelHint", label).
		Build()

	wantSQL := "SELECT b.id, b.label_hint, b.created_at FROM public.batches b"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want empty", args)
	}
}

func TestBuilderWhereAtLeast(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).
		WhereAtLeast("CreatedAt", "2026-01-01").
		Build()

	wantSQL := "SELECT b.id, b.label_hint, b.created_at FROM public.batches b WHERE b.created_at >= $1"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "2026-01-01" {
		t.Errorf("args = %v, want [2026-01-01]", args)
	}
}

func TestBuilderWhereAtLeastNilSkipped(t *testing.T) {
	var since *float64
	_, args := query.NewBuilder(testProjection()).
		WhereAtLeast("CreatedAt", since).
		Build()

	if len(args) != 0 {
		t.Errorf("args = %v, want empty", args)
	}
}

func TestBuilderWhereSearch(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).
		WhereSearch(ptr("car"), "LabelHint", "ID").
		Build()

	wantSQL := "SELECT b.id, b.label_hint, b.created_at FROM public.batches b WHERE (b.label_hint ILIKE $1 OR b.id ILIKE $2)"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 2 || args[0] != "%car%" || args[1] != "%car%" {
		t.Errorf("args = %v, want [%%car%% %%car%%]", args)
	}
}

func TestBuilderWhereSearchSkipped(t *testing.T) {
	tests := []struct {
		name   string
		search *string
	}{
		{"nil", nil},
		{"empty", ptr("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, args := query.NewBuilder(testProjection()).
				WhereSearch(tt.search, "LabelHint").
				Build()
			if len(args) != 0 {
				t.Errorf("args = %v, want empty", args)
			}
		})
	}
}

func TestBuilderMultipleConditions(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).
		WhereEquals("LabelHint", "cart").
		WhereSearch(ptr("abc"), "ID").
		WhereAtLeast("CreatedAt", "2026-01-01").
		Build()

	wantSQL := "SELECT b.id, b.label_hint, b.created_at FROM public.batches b WHERE b.label_hint = $1 AND (b.id ILIKE $2) AND b.created_at >= $3"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	want := []any{"cart", "%abc%", "2026-01-01"}
	if len(args) != len(want) {
		t.Fatalf("args length = %d, want %d", len(args), len(want))
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %v, want %v", i, args[i], want[i])
		}
	}
}

func TestBuilderRebuildRestartsNumbering(t *testing.T) {
	b := query.NewBuilder(testProjection()).WhereEquals("LabelHint", "cart")

	countSQL, _ := b.BuildCount()
	pageSQL, _ := b.BuildPage(1, 20)

	if want := "SELECT COUNT(*) FROM public.batches b WHERE b.label_hint = $1"; countSQL != want {
		t.Errorf("count sql = %q, want %q", countSQL, want)
	}
	if want := "SELECT b.id, b.label_hint, b.created_at FROM public.batches b WHERE b.label_hint = $1 LIMIT 20 OFFSET 0"; pageSQL != want {
		t.Errorf("page sql = %q, want %q", pageSQL, want)
	}
}

func TestBuilderOrderByFields(t *testing.T) {
	b := query.NewBuilder(testProjection(), query.SortField{Field: "ID"})
	b.OrderByFields([]query.SortField{
		{Field: "CreatedAt", Descending: true},
		{Field: "LabelHint"},
	})
	sql, _ := b.Build()

	wantSQL := "SELECT b.id, b.label_hint, b.created_at FROM public.batches b ORDER BY b.created_at DESC, b.label_hint ASC"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
}

func TestBuilderDefaultSort(t *testing.T) {
	sql, _ := query.NewBuilder(testProjection(), query.SortField{Field: "CreatedAt", Descending: true}).Build()

	wantSQL := "SELECT b.id, b.label_hint, b.created_at FROM public.batches b ORDER BY b.created_at DESC"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
}

func TestBuilderBuildPageWithConditions(t *testing.T) {
	sql, args := query.NewBuilder(testProjection(), query.SortField{Field: "ID"}).
		WhereSearch(ptr("menu"), "LabelHint").
		BuildPage(3, 25)

	wantSQL := "SELECT b.id, b.label_hint, b.created_at FROM public.batches b WHERE (b.label_hint ILIKE $1) ORDER BY b.id ASC LIMIT 25 OFFSET 50"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "%menu%" {
		t.Errorf("args = %v, want [%%menu%%]", args)
	}
}

func TestBuilderUnmappedSortDropped(t *testing.T) {
	tests := []struct {
		name string
		sort []query.SortField
		want string
	}{
		{
			name: "mixed",
			sort: []query.SortField{{Field: "created_at; DROP TABLE batches"}, {Field: "LabelHint"}},
			want: " ORDER BY b.label_hint ASC",
		},
		{
			name: "all unmapped falls back to default",
			sort: []query.SortField{{Field: "nope", Descending: true}},
			want: " ORDER BY b.created_at DESC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, _ := query.NewBuilder(testProjection(), query.SortField{Field: "CreatedAt", Descending: true}).
				OrderByFields(tt.sort).
				Build()

			want := "SELECT b.id, b.label_hint, b.created_at FROM public.batches b" + tt.want
			if sql != want {
				t.Errorf("sql = %q, want %q", sql, want)
			}
		})
	}
}

func TestBuilderWhereSearchEscapesWildcards(t *testing.T) {
	_, args := query.NewBuilder(testProjection()).
		WhereSearch(ptr(`50%_off\`), "LabelHint").
		Build()

	if len(args) != 1 || args[0] != `%50\%\_off\\%` {
		t.Errorf("args = %v, want [%%50\\%%\\_off\\\\%%]", args)
	}
}

func TestBuilderUnmappedConditionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("WhereEquals on unmapped field did not panic")
		}
	}()
	query.NewBuilder(testProjection()).WhereEquals("Matched", 1)
}
