package safety

import (
	"errors"
	"testing"
)

func TestValidateAcceptsSelect(t *testing.T) {
	t.Parallel()

	queries := []string{
		"SELECT title, rating FROM movies ORDER BY rating DESC LIMIT 10",
		"select count(*) from patient_health_data",
		"  SELECT m.title FROM movies m JOIN directors d ON m.director_id = d.director_id",
		// Identifiers containing blocked keywords as substrings must pass.
		"SELECT last_update, dropout_rate FROM metrics",
	}
	for _, q := range queries {
		if err := Validate(q); err != nil {
			t.Fatalf("Validate(%q) = %v, want nil", q, err)
		}
	}
}

func TestValidateRejectsMutations(t *testing.T) {
	t.Parallel()

	queries := []string{
		"DELETE FROM movies",
		"drop table movies",
		"INSERT INTO movies VALUES (1)",
		"UPDATE movies SET rating = 0",
		"ALTER TABLE movies ADD COLUMN x",
		"TRUNCATE TABLE movies",
		"SELECT * FROM movies; DROP TABLE movies",
		"PRAGMA table_info(movies)",
		"",
	}
	for _, q := range queries {
		err := Validate(q)
		if err == nil {
			t.Fatalf("Validate(%q) = nil, want error", q)
		}
		if !errors.Is(err, ErrBlocked) {
			t.Fatalf("Validate(%q) = %v, want ErrBlocked", q, err)
		}
	}
}

func TestCleanSQL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "Fenced", in: "```sql\nSELECT 1\n```", want: "SELECT 1"},
		{name: "BareFence", in: "```\nSELECT 1\n```", want: "SELECT 1"},
		{name: "TrailingSemicolon", in: "SELECT 1;", want: "SELECT 1"},
		{name: "Plain", in: "  SELECT 1  ", want: "SELECT 1"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := CleanSQL(tc.in); got != tc.want {
				t.Fatalf("CleanSQL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
