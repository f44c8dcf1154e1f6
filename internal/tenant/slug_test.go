// internal/tenant/slug_test.go
//
// Unit-tests for slug derivation and collision suffixing.
//
// Run: go test ./internal/tenant -v

package tenant

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func TestMakeSlug(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Acme", "acme"},
		{"Ana's Café", "ana-s-caf"},
		{"  spaces   everywhere  ", "spaces-everywhere"},
		{"--already--kebab--", "already-kebab"},
		{"日本語のみ", "site"},
		{"", "site"},
		{"MiXeD CaSe 42", "mixed-case-42"},
	}
	for _, c := range cases {
		if got := MakeSlug(c.in); got != c.want {
			t.Errorf("MakeSlug(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMakeSlugCapsLength(t *testing.T) {
	got := MakeSlug(strings.Repeat("a", 100))
	if len(got) != 63 {
		t.Fatalf("len = %d, want 63", len(got))
	}
	if strings.HasSuffix(got, "-") {
		t.Error("truncation must not leave a trailing dash")
	}
}

const slugExistsQuery = `SELECT 1 FROM tenant WHERE slug = ? AND deleted_at IS NULL LIMIT 1`

func TestUniqueSlugFree(t *testing.T) {
	rawDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer rawDB.Close()
	db := sqlx.NewDb(rawDB, "mysql")

	mock.ExpectQuery(regexp.QuoteMeta(slugExistsQuery)).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	got, err := UniqueSlug(context.Background(), db, "acme")
	if err != nil {
		t.Fatalf("UniqueSlug: %v", err)
	}
	if got != "acme" {
		t.Fatalf("got %q, want acme", got)
	}
}

func TestUniqueSlugSuffixes(t *testing.T) {
	rawDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer rawDB.Close()
	db := sqlx.NewDb(rawDB, "mysql")

	taken := sqlmock.NewRows([]string{"1"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta(slugExistsQuery)).WithArgs("acme").WillReturnRows(taken)
	mock.ExpectQuery(regexp.QuoteMeta(slugExistsQuery)).WithArgs("acme-2").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(slugExistsQuery)).WithArgs("acme-3").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	got, err := UniqueSlug(context.Background(), db, "acme")
	if err != nil {
		t.Fatalf("UniqueSlug: %v", err)
	}
	if got != "acme-3" {
		t.Fatalf("got %q, want acme-3", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
