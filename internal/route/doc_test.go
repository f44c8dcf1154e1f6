// internal/route/doc_test.go
//
// Unit-tests for the route-id derivation and document builder.
//
// Run: go test ./internal/route -v

package route

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRouteID(t *testing.T) {
	cases := []struct{ in, want string }{
		{"acme.musedock.com", "route_acme_musedock_com"},
		{"Example.COM", "route_example_com"},
		{"my-shop.example.co.uk", "route_my_shop_example_co_uk"},
	}
	for _, c := range cases {
		if got := RouteID(c.in); got != c.want {
			t.Errorf("RouteID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBuildDocumentShape(t *testing.T) {
	doc := Build(Spec{
		Domain:      "acme.musedock.com",
		DocRoot:     "/var/www/tenants/acme/public",
		EntryScript: "index.php",
		PHPUpstream: "localhost:9000",
	})

	if doc.ID != "route_acme_musedock_com" {
		t.Fatalf("unexpected id %q", doc.ID)
	}
	if !doc.Terminal {
		t.Error("document must be terminal")
	}
	if len(doc.Match) != 1 || len(doc.Match[0].Host) != 1 || doc.Match[0].Host[0] != "acme.musedock.com" {
		t.Fatalf("unexpected host match: %#v", doc.Match)
	}
	if len(doc.Handle) != 1 || doc.Handle[0].Handler != "subroute" {
		t.Fatalf("top-level handler must be a subroute, got %#v", doc.Handle)
	}

	inner := doc.Handle[0].Routes
	if len(inner) != 10 {
		t.Fatalf("expected 10 inner routes, got %d", len(inner))
	}
	// Headers and root come first, file server last.
	if inner[0].Handle[0].Handler != "headers" {
		t.Errorf("first inner handler = %q, want headers", inner[0].Handle[0].Handler)
	}
	if last := inner[len(inner)-1].Handle[0].Handler; last != "file_server" {
		t.Errorf("last inner handler = %q, want file_server", last)
	}

	// The PHP dispatch must target the configured upstream.
	raw, _ := json.Marshal(doc)
	if !strings.Contains(string(raw), `"dial":"localhost:9000"`) {
		t.Error("document does not reference the PHP upstream")
	}
}

func TestBuildIncludesWwwAlias(t *testing.T) {
	doc := Build(Spec{Domain: "example.com", IncludeWww: true,
		DocRoot: "/srv/x", EntryScript: "index.php", PHPUpstream: "localhost:9000"})
	hosts := doc.Match[0].Host
	if len(hosts) != 2 || hosts[1] != "www.example.com" {
		t.Fatalf("unexpected hosts %v", hosts)
	}
}

func TestBuildErrorBranchID(t *testing.T) {
	doc := BuildErrorBranch(Spec{Domain: "acme.musedock.com",
		DocRoot: "/srv/x", EntryScript: "index.php", PHPUpstream: "localhost:9000"})
	if doc.ID != "route_acme_musedock_com_err" {
		t.Fatalf("unexpected error-branch id %q", doc.ID)
	}
	if !doc.Terminal {
		t.Error("error branch must be terminal")
	}
}
