package roster

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
)

var header = []string{"RADIO_ID", "CALLSIGN", "FIRST_NAME", "STATE"}

// Store owns the three persisted rosters: the code plug (main roster), the
// additions audit trail, and the group-of-interest roster.
type Store struct {
	CodePlugPath string
	AuditPath    string
	GroupPath    string
}

// Load reads all three rosters. Any unreadable or malformed file is an error;
// there is no partial-load mode because reconciliation needs a consistent
// baseline.
func (s *Store) Load() (main, audit, group *Roster, err error) {
	main, err = loadFile(s.CodePlugPath)
	if err != nil {
		return nil, nil, nil, err
	}
	audit, err = loadFile(s.AuditPath)
	if err != nil {
		return nil, nil, nil, err
	}
	group, err = loadFile(s.GroupPath)
	if err != nil {
		return nil, nil, nil, err
	}
	return main, audit, group, nil
}

// Persist writes the rosters back. The group roster is always rewritten; main
// and audit are rewritten only when they changed, so an empty discovery cycle
// leaves those files byte-for-byte untouched. The first write error aborts:
// continuing could leave the three stores out of step.
func (s *Store) Persist(main, audit, group *Roster) error {
	if err := writeFile(s.GroupPath, group); err != nil {
		log.Printf("WARN: persist aborted, stores may be out of step: %v", err)
		return err
	}
	if main.Dirty() {
		if err := writeFile(s.CodePlugPath, main); err != nil {
			log.Printf("WARN: persist aborted after group write, stores may be out of step: %v", err)
			return err
		}
	}
	if audit.Dirty() {
		if err := writeFile(s.AuditPath, audit); err != nil {
			log.Printf("WARN: persist aborted after main write, stores may be out of step: %v", err)
			return err
		}
	}
	return nil
}

func loadFile(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to access %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header in %s", path)
	}
	if len(rows[0]) != len(header) {
		return nil, fmt.Errorf("unexpected header in %s: %v", path, rows[0])
	}
	r := New()
	for i, row := range rows[1:] {
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("bad RADIO_ID on line %d of %s: %w", i+2, path, err)
		}
		r.append(Record{RadioID: id, Callsign: row[1], FirstName: row[2], State: row[3]})
	}
	return r, nil
}

func writeFile(path string, r *Roster) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to write %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	for _, rec := range r.records {
		row := []string{strconv.Itoa(rec.RadioID), rec.Callsign, rec.FirstName, rec.State}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
