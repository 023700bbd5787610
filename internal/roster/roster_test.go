package roster

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMergeNewEnforcesUniqueIDs(t *testing.T) {
	main := FromRecords([]Record{{RadioID: 1, Callsign: "K1AAA"}})
	audit := New()

	recs := []Record{
		{RadioID: 1, Callsign: "K1AAA"},
		{RadioID: 2, Callsign: "K2BBB"},
		{RadioID: 2, Callsign: "K2BBB-DUP"},
		{RadioID: 3, Callsign: "K3CCC"},
	}
	added := MergeNew(main, audit, recs)
	if added != 2 {
		t.Fatalf("expected 2 added, got %d", added)
	}
	seen := map[int]int{}
	for _, rec := range main.Records() {
		seen[rec.RadioID]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("radio ID %d appears %d times in main roster", id, n)
		}
	}
	if got := main.Records()[1].Callsign; got != "K2BBB" {
		t.Fatalf("expected first occurrence kept, got %s", got)
	}
}

func TestMergeNewAuditKeepsEveryAddition(t *testing.T) {
	main := New()
	audit := New()
	first := []Record{{RadioID: 5, Callsign: "K5EEE"}}
	second := []Record{{RadioID: 5, Callsign: "K5EEE"}, {RadioID: 6, Callsign: "K6FFF"}}
	MergeNew(main, audit, first)
	MergeNew(main, audit, second)

	inAudit := map[int]bool{}
	for _, rec := range audit.Records() {
		inAudit[rec.RadioID] = true
	}
	for _, rec := range main.Records() {
		if !inAudit[rec.RadioID] {
			t.Fatalf("radio ID %d merged into main but missing from audit", rec.RadioID)
		}
	}
	if audit.Len() != 3 {
		t.Fatalf("audit trail should not deduplicate, want 3 rows, got %d", audit.Len())
	}
}

func TestMergeNewEmptyInputIsNoop(t *testing.T) {
	main := FromRecords([]Record{{RadioID: 1}})
	audit := New()
	if added := MergeNew(main, audit, nil); added != 0 {
		t.Fatalf("expected 0 added, got %d", added)
	}
	if main.Dirty() || audit.Dirty() {
		t.Fatal("empty merge must not mark rosters dirty")
	}
}

func TestMergeGroupSkipsKnownIDs(t *testing.T) {
	group := FromRecords([]Record{{RadioID: 10, Callsign: "K0AAA"}})
	added := MergeGroup(group, []Record{
		{RadioID: 10, Callsign: "K0AAA"},
		{RadioID: 11, Callsign: "K0BBB"},
	})
	if added != 1 {
		t.Fatalf("expected 1 added, got %d", added)
	}
	if group.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", group.Len())
	}
}

func writeCSV(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s := &Store{
		CodePlugPath: filepath.Join(dir, "code_plug.csv"),
		AuditPath:    filepath.Join(dir, "add_users.csv"),
		GroupPath:    filepath.Join(dir, "mwg_users.csv"),
	}
	writeCSV(t, s.CodePlugPath, "RADIO_ID,CALLSIGN,FIRST_NAME,STATE\n1,K1AAA,Al,Arizona\n")
	writeCSV(t, s.AuditPath, "RADIO_ID,CALLSIGN,FIRST_NAME,STATE\n")
	writeCSV(t, s.GroupPath, "RADIO_ID,CALLSIGN,FIRST_NAME,STATE\n")
	return s
}

func TestLoadPersistRoundTrip(t *testing.T) {
	s := testStore(t)
	main, audit, group, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if main.Len() != 1 || !main.Contains(1) {
		t.Fatalf("unexpected main roster: %+v", main.Records())
	}

	MergeNew(main, audit, []Record{{RadioID: 2, Callsign: "K2BBB", FirstName: "Bo", State: "Arizona"}})
	MergeGroup(group, []Record{{RadioID: 2, Callsign: "K2BBB", FirstName: "Bo", State: "Arizona"}})
	if err := s.Persist(main, audit, group); err != nil {
		t.Fatalf("persist: %v", err)
	}

	main2, audit2, group2, err := s.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if main2.Len() != 2 || audit2.Len() != 1 || group2.Len() != 1 {
		t.Fatalf("unexpected sizes after reload: %d %d %d", main2.Len(), audit2.Len(), group2.Len())
	}
}

func TestPersistEmptyDiscoveryLeavesMainUntouched(t *testing.T) {
	s := testStore(t)
	before, err := os.ReadFile(s.CodePlugPath)
	if err != nil {
		t.Fatal(err)
	}

	main, audit, group, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	MergeNew(main, audit, nil)
	if err := s.Persist(main, audit, group); err != nil {
		t.Fatalf("persist: %v", err)
	}

	after, err := os.ReadFile(s.CodePlugPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatal("code plug rewritten despite empty discovery")
	}
	if _, err := os.Stat(s.GroupPath); err != nil {
		t.Fatalf("group roster should still be rewritten: %v", err)
	}
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	s := testStore(t)
	if err := os.Remove(s.AuditPath); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := s.Load(); err == nil {
		t.Fatal("expected load error for missing audit file")
	}
}

func TestLoadFailsOnBadHeader(t *testing.T) {
	s := testStore(t)
	writeCSV(t, s.GroupPath, "ID,CALL\n")
	if _, _, _, err := s.Load(); err == nil {
		t.Fatal("expected load error for malformed header")
	}
}
