package vector

// Record is the provenance attached to one embedding.
type Record struct {
	Source string                 `json:"source" msgpack:"source"`
	Page   int                    `json:"page" msgpack:"page"`
	Text   string                 `json:"text" msgpack:"text"`
	Extra  map[string]interface{} `json:"-" msgpack:"extra,omitempty"`
}

func (r Record) clone() Record {
	if r.Extra != nil {
		extra := make(map[string]interface{}, len(r.Extra))
		for k, v := range r.Extra {
			extra[k] = v
		}
		r.Extra = extra
	}
	return r
}

// Ledger is the append-only metadata sequence; records[i] describes vector row i.
type Ledger struct {
	records []Record
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Extend appends records in argument order.
func (l *Ledger) Extend(records []Record) {
	for _, r := range records {
		l.records = append(l.records, r.clone())
	}
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// At returns a copy of record i.
func (l *Ledger) At(i int) Record {
	return l.records[i].clone()
}

func (l *Ledger) snapshot() []Record {
	return l.records
}
