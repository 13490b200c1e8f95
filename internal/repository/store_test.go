package repository

import "testing"

func TestBuilderPositions(t *testing.T) {
	var b builder
	b.where("status = " + b.arg("APPROVED"))
	b.where("category = " + b.arg("env"))
	b.set("title", "x")

	if got := b.whereClause(); got != " WHERE status = $1 AND category = $2" {
		t.Fatalf("unexpected where clause %q", got)
	}
	if b.sets[0] != "title = $3" {
		t.Fatalf("unexpected set clause %q", b.sets[0])
	}
	if len(b.args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(b.args))
	}
}

func TestEmptyWhereClause(t *testing.T) {
	var b builder
	if b.whereClause() != "" {
		t.Fatalf("expected empty where clause")
	}
}

func TestQualify(t *testing.T) {
	if got := qualify("a", "id, email,role"); got != "a.id, a.email, a.role" {
		t.Fatalf("unexpected qualified columns %q", got)
	}
}

func TestNullableID(t *testing.T) {
	if nullableID("") != nil {
		t.Fatalf("expected nil for empty id")
	}
	if v := nullableID("x"); v == nil || *v != "x" {
		t.Fatalf("expected pointer to id")
	}
}
