package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyDomain is returned when a record has no domain.
var ErrEmptyDomain = errors.New("record has empty domain")

// Record is the persisted result for a single domain.
type Record struct {
	Domain string `json:"domain" yaml:"domain"`
	Status Status `json:"status" yaml:"status"`
}

// UnmarshalJSON rejects records without a domain. Status validation happens in Status.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Domain == "" {
		return ErrEmptyDomain
	}
	if !p.Status.IsValid() {
		return fmt.Errorf("%w: missing status for %s", ErrInvalidStatus, p.Domain)
	}
	*r = Record(p)
	return nil
}

// Records is an ordered set of records keyed by domain.
type Records []Record

// Contains reports whether a record for name exists.
func (rs Records) Contains(name string) bool {
	for i := range rs {
		if rs[i].Domain == name {
			return true
		}
	}
	return false
}

// Get returns the record for name.
func (rs Records) Get(name string) (Record, bool) {
	for i := range rs {
		if rs[i].Domain == name {
			return rs[i], true
		}
	}
	return Record{}, false
}

// Index returns the set of domains present.
func (rs Records) Index() map[string]struct{} {
	idx := make(map[string]struct{}, len(rs))
	for i := range rs {
		idx[rs[i].Domain] = struct{}{}
	}
	return idx
}

// WithoutStatus returns a copy with every record of status st removed.
func (rs Records) WithoutStatus(st Status) Records {
	out := make(Records, 0, len(rs))
	for _, r := range rs {
		if r.Status != st {
			out = append(out, r)
		}
	}
	return out
}

// WithStatus returns only the records of status st.
func (rs Records) WithStatus(st Status) Records {
	out := make(Records, 0)
	for _, r := range rs {
		if r.Status == st {
			out = append(out, r)
		}
	}
	return out
}

// Dedupe keeps the first record for each domain and reports how many were dropped.
func (rs Records) Dedupe() (Records, int) {
	seen := make(map[string]struct{}, len(rs))
	out := make(Records, 0, len(rs))
	for _, r := range rs {
		if _, ok := seen[r.Domain]; ok {
			continue
		}
		seen[r.Domain] = struct{}{}
		out = append(out, r)
	}
	return out, len(rs) - len(out)
}

// CountByStatus tallies records per status. Every known status has an entry.
func (rs Records) CountByStatus() map[Status]int {
	counts := make(map[Status]int, len(Statuses()))
	for _, st := range Statuses() {
		counts[st] = 0
	}
	for _, r := range rs {
		counts[r.Status]++
	}
	return counts
}

// Unresolved returns the names not present in rs, preserving input order.
func Unresolved(names []string, rs Records) []string {
	idx := rs.Index()
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := idx[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}
