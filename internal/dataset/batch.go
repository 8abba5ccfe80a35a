package dataset

// SubstanceReports holds the report bodies harvested for one substance.
type SubstanceReports struct {
	Substance string
	Reports   []string
}

// Batch is one phase's harvest, in harvest order.
type Batch []SubstanceReports

// Report is one row of the trip-report table.
type Report struct {
	Substance string
	Text      string
}

// Rows flattens the batch into table rows, substance by substance.
func (b Batch) Rows() []Report {
	var rows []Report
	for _, s := range b {
		for _, text := range s.Reports {
			rows = append(rows, Report{Substance: s.Substance, Text: text})
		}
	}
	return rows
}

// Count returns the number of reports in the batch.
func (b Batch) Count() int {
	n := 0
	for _, s := range b {
		n += len(s.Reports)
	}
	return n
}

// Counts returns the number of reports per substance.
func (b Batch) Counts() map[string]int {
	counts := make(map[string]int, len(b))
	for _, s := range b {
		counts[s.Substance] += len(s.Reports)
	}
	return counts
}

// GroupRows groups table rows back into a batch, keeping first-seen
// substance order.
func GroupRows(rows []Report) Batch {
	index := make(map[string]int)
	var b Batch
	for _, r := range rows {
		i, ok := index[r.Substance]
		if !ok {
			i = len(b)
			index[r.Substance] = i
			b = append(b, SubstanceReports{Substance: r.Substance})
		}
		b[i].Reports = append(b[i].Reports, r.Text)
	}
	return b
}
