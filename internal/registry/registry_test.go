package registry

import (
	"testing"
)

func TestNewRejectsEmptyCatalog(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("New(nil) should fail")
	}
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	_, err := New([]Descriptor{
		{ID: "jira", Name: "JIRA"},
		{ID: "jira", Name: "JIRA again"},
	})
	if err == nil {
		t.Fatal("duplicate ids should fail")
	}
}

func TestNewRejectsEmptyID(t *testing.T) {
	_, err := New([]Descriptor{{Name: "nameless"}})
	if err == nil {
		t.Fatal("empty id should fail")
	}
}

func TestDefaultContainsBuiltins(t *testing.T) {
	r := Default()

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
	for _, id := range []SystemID{SystemJira, SystemConfluence, SystemBitbucket} {
		if !r.Has(id) {
			t.Errorf("Has(%q) = false, want true", id)
		}
	}
}

func TestListSortedByID(t *testing.T) {
	r, err := New([]Descriptor{
		{ID: "zulu", Name: "Z"},
		{ID: "alpha", Name: "A"},
		{ID: "mike", Name: "M"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ids := r.IDs()
	want := []SystemID{"alpha", "mike", "zulu"}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("IDs()[%d] = %q, want %q", i, ids[i], id)
		}
	}
}

func TestParse(t *testing.T) {
	r := Default()

	id, err := r.Parse("confluence")
	if err != nil {
		t.Fatalf("Parse(confluence): %v", err)
	}
	if id != SystemConfluence {
		t.Errorf("Parse(confluence) = %q", id)
	}

	if _, err := r.Parse("sharepoint"); err == nil {
		t.Error("Parse(sharepoint) should fail")
	}
}

func TestGetReturnsDescriptor(t *testing.T) {
	r := Default()

	d, ok := r.Get(SystemJira)
	if !ok {
		t.Fatal("Get(jira) not found")
	}
	if d.Name != "JIRA" {
		t.Errorf("Name = %q, want JIRA", d.Name)
	}
	if len(d.PrimaryKeywords) == 0 {
		t.Error("jira descriptor has no primary keywords")
	}
}
