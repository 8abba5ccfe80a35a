package database

import "time"

// Revision records the wiki revision a substance's data was taken from.
type Revision struct {
	Substance  string
	Link       string
	Author     string
	UpdatedAt  time.Time
	RecordedAt *string
}

// RunReport holds metadata about a pipeline run.
type RunReport struct {
	ID         int64
	Phase      int
	StartedAt  time.Time
	FinishedAt time.Time
	Reports    int
	Removed    int
	Failed     bool
	// Pending holds the archive ids a quota-limited harvest did not reach.
	Pending []string
}

// Stats contains aggregate database statistics.
type Stats struct {
	DosechartSubstances int
	Routes              int
	EffectSubstances    int
	StopWords           int
	PhaseOneReports     int
	PhaseTwoReports     int
	Revisions           int
	Runs                int
}
