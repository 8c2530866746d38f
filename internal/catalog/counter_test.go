package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/voyagen/stationvault/internal/models"
)

func TestCountOverlapScenario(t *testing.T) {
	f := newFixture(t)
	base := numbered("s", 10)
	user := []map[string]any{
		station("s4", "Override", "OVR"),
		station("u1", "User One", "U1"),
		station("u2", "User Two", "U2"),
	}
	writeJSON(t, f.base, base, time.Hour)
	writeJSON(t, f.user, user, time.Hour)
	c := f.catalog(t)
	ctx := context.Background()

	// Before any merge: no combined file, total is the raw sum.
	if got, want := c.Breakdown(ctx), (models.Breakdown{Base: 10, User: 3, Total: 13}); got != want {
		t.Errorf("Breakdown before merge = %+v, want %+v", got, want)
	}
	if got := c.CountFast(); got != 13 {
		t.Errorf("CountFast = %d, want 13", got)
	}

	// The effective count merges; s4 is counted once.
	if got := c.Count(ctx); got != 12 {
		t.Errorf("Count = %d, want 12", got)
	}
	if got, want := c.Breakdown(ctx), (models.Breakdown{Base: 10, User: 3, Total: 12, Combined: true}); got != want {
		t.Errorf("Breakdown after merge = %+v, want %+v", got, want)
	}

	name, ok, err := c.Field(ctx, "s4", FieldName)
	if err != nil || !ok || name != "Override" {
		t.Errorf("Field(s4, name) = %q, %v, %v; want the user override", name, ok, err)
	}
}

func TestCountFastMatchesEffective(t *testing.T) {
	tests := []struct {
		name       string
		base, user []map[string]any
	}{
		{"base only", numbered("b", 4), nil},
		{"user only", nil, numbered("u", 2)},
		{"disjoint sources", numbered("b", 5), numbered("u", 3)},
		{"empty files", []map[string]any{}, []map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.base != nil {
				writeJSON(t, f.base, tt.base, time.Hour)
			}
			if tt.user != nil {
				writeJSON(t, f.user, tt.user, time.Hour)
			}
			c := f.catalog(t)
			fast := c.CountFast()
			b := c.Breakdown(context.Background())
			if b.Total != b.Base+b.User {
				t.Errorf("Breakdown total %d != base %d + user %d", b.Total, b.Base, b.User)
			}
			if eff := c.Count(context.Background()); eff != fast {
				t.Errorf("Count = %d, CountFast = %d", eff, fast)
			}
		})
	}
}

func TestCountNoDatabase(t *testing.T) {
	f := newFixture(t)
	c := f.catalog(t)
	ctx := context.Background()

	if got := c.Count(ctx); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
	if got := c.CountFast(); got != 0 {
		t.Errorf("CountFast = %d, want 0", got)
	}
	if got := c.Breakdown(ctx); got != (models.Breakdown{}) {
		t.Errorf("Breakdown = %+v, want zeros", got)
	}
}

func TestCountToleratesMalformedSource(t *testing.T) {
	f := newFixture(t)
	writeJSON(t, f.base, numbered("b", 6), time.Hour)
	writeRaw(t, f.user, `{"not": "an array"}`, time.Hour)
	c := f.catalog(t)
	ctx := context.Background()

	if got, want := c.Breakdown(ctx), (models.Breakdown{Base: 6, User: 0, Total: 6}); got != want {
		t.Errorf("Breakdown = %+v, want %+v", got, want)
	}
	// The merge fails, so the effective count degrades to the fast count.
	if got := c.Count(ctx); got != 6 {
		t.Errorf("Count = %d, want 6", got)
	}
	if exists(f.combined) {
		t.Error("combined file written from a malformed input")
	}
}

func TestBreakdownIgnoresStaleCombined(t *testing.T) {
	f := newFixture(t)
	writeJSON(t, f.combined, numbered("c", 50), 2*time.Hour)
	writeJSON(t, f.base, numbered("b", 2), time.Hour)
	writeJSON(t, f.user, numbered("u", 1), time.Hour)

	got := f.catalog(t).Breakdown(context.Background())
	if want := (models.Breakdown{Base: 2, User: 1, Total: 3}); got != want {
		t.Errorf("Breakdown = %+v, want %+v", got, want)
	}
}
