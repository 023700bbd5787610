package roster

// Record is one identity row as stored in the CSV files.
type Record struct {
	RadioID   int
	Callsign  string
	FirstName string
	State     string
}

// Roster is an ordered collection of records with a radio ID index.
type Roster struct {
	records []Record
	ids     map[int]struct{}
	dirty   bool
}

func New() *Roster {
	return &Roster{ids: make(map[int]struct{})}
}

func FromRecords(recs []Record) *Roster {
	r := New()
	for _, rec := range recs {
		r.append(rec)
	}
	return r
}

func (r *Roster) Len() int { return len(r.records) }

func (r *Roster) Contains(id int) bool {
	_, ok := r.ids[id]
	return ok
}

// Records returns a copy of the roster rows in insertion order.
func (r *Roster) Records() []Record {
	return append([]Record(nil), r.records...)
}

// Dirty reports whether the roster changed since it was loaded.
func (r *Roster) Dirty() bool { return r.dirty }

func (r *Roster) append(rec Record) {
	r.records = append(r.records, rec)
	r.ids[rec.RadioID] = struct{}{}
}

// MergeNew appends newly enriched records to the main roster and the audit
// trail. Main keeps the first record seen for a radio ID; the audit trail is
// append-only and never deduplicated. Empty input changes nothing.
func MergeNew(main, audit *Roster, recs []Record) int {
	if len(recs) == 0 {
		return 0
	}
	added := 0
	for _, rec := range recs {
		audit.append(rec)
		audit.dirty = true
		if main.Contains(rec.RadioID) {
			continue
		}
		main.append(rec)
		main.dirty = true
		added++
	}
	return added
}

// MergeGroup appends records whose radio ID is not yet in the group roster.
func MergeGroup(group *Roster, recs []Record) int {
	added := 0
	for _, rec := range recs {
		if group.Contains(rec.RadioID) {
			continue
		}
		group.append(rec)
		group.dirty = true
		added++
	}
	return added
}
