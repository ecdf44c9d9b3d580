package database

import "testing"

func TestWhereBuilder_Empty(t *testing.T) {
	wb := NewWhereBuilder(postgresDialect)
	clause, args := wb.Build()

	if clause != "" {
		t.Errorf("expected empty clause, got %q", clause)
	}
	if args != nil {
		t.Errorf("expected nil args, got %v", args)
	}
}

func TestWhereBuilder_Build(t *testing.T) {
	tests := []struct {
		name       string
		d          dialect
		category   string
		search     string
		wantClause string
		wantArgs   []any
	}{
		{
			name:       "category only",
			d:          postgresDialect,
			category:   "tools",
			wantClause: ` WHERE "category" = $1`,
			wantArgs:   []any{"tools"},
		},
		{
			name:       "search only postgres",
			d:          postgresDialect,
			search:     "ham",
			wantClause: ` WHERE "name" ILIKE $1 ESCAPE '\'`,
			wantArgs:   []any{"%ham%"},
		},
		{
			name:       "both postgres",
			d:          postgresDialect,
			category:   "tools",
			search:     "ham",
			wantClause: ` WHERE "category" = $1 AND "name" ILIKE $2 ESCAPE '\'`,
			wantArgs:   []any{"tools", "%ham%"},
		},
		{
			name:       "both sqlite",
			d:          sqliteDialect,
			category:   "tools",
			search:     "ham",
			wantClause: ` WHERE "category" = ? AND unicode_lower("name") LIKE unicode_lower(?) ESCAPE '\'`,
			wantArgs:   []any{"tools", "%ham%"},
		},
		{
			name:       "wildcards escaped",
			d:          sqliteDialect,
			search:     `50%_off\`,
			wantClause: ` WHERE unicode_lower("name") LIKE unicode_lower(?) ESCAPE '\'`,
			wantArgs:   []any{`%50\%\_off\\%`},
		},
		{
			name: "empty values skipped",
			d:    postgresDialect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, args := NewWhereBuilder(tt.d).
				Add("category", tt.category).
				AddContains("name", tt.search).
				Build()

			if clause != tt.wantClause {
				t.Errorf("clause = %q, want %q", clause, tt.wantClause)
			}
			if len(args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", args, tt.wantArgs)
			}
			for i := range args {
				if args[i] != tt.wantArgs[i] {
					t.Errorf("args[%d] = %v, want %v", i, args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestWhereBuilder_NumbersParameters(t *testing.T) {
	clause, args := NewWhereBuilder(postgresDialect).
		Add("a", "1").
		Add("b", "").
		AddContains("c", "x").
		Build()

	want := ` WHERE "a" = $1 AND "c" ILIKE $2 ESCAPE '\'`
	if clause != want {
		t.Errorf("clause = %q, want %q", clause, want)
	}
	if len(args) != 2 {
		t.Errorf("args = %v, want 2 values", args)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"name", `"name"`},
		{`we"ird`, `"we""ird"`},
		{"", `""`},
	}
	for _, tt := range tests {
		if got := quoteIdentifier(tt.in); got != tt.want {
			t.Errorf("quoteIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
