package importer

import "github.com/justestif/albumclub/internal/chat"

// Debug carries the diagnostic counters of an import run.
type Debug struct {
	TotalLines              int            `json:"totalLines"`
	ParsedLines             int            `json:"parsedLines"`
	WithinCutoffLines       int            `json:"withinCutoffLines"`
	LinksFound              int            `json:"linksFound"`
	UniqueCountBeforeInsert int            `json:"uniqueCountBeforeInsert"`
	SampleLinks             []string       `json:"sampleLinks"`
	ResolvedUsers           []string       `json:"resolvedUsers"`
	UnmatchedSenders        []string       `json:"unmatchedSenders"`
	MissingEmails           []string       `json:"missingEmails"`
	MissingAuthUsers        []string       `json:"missingAuthUsers"`
	ProfileInsertFailures   []string       `json:"profileInsertFailures"`
	MappingTraces           []string       `json:"mappingTraces"`
	DateOrder               chat.DateOrder `json:"dateOrder"`
}

// Summary is the result of an import run.
type Summary struct {
	Found              int      `json:"found"`
	Inserted           int      `json:"inserted"`
	Updated            int      `json:"updated"`
	Debug              Debug    `json:"debug"`
	MissingUserMapping []string `json:"missingUserMapping"`
	SkippedWeekLimit   int      `json:"skippedWeekLimit"`
	Errors             []string `json:"errors"`
	MappingTraces      []string `json:"mappingTraces"`
}

func newSummary() *Summary {
	return &Summary{
		Debug: Debug{
			SampleLinks:           []string{},
			ResolvedUsers:         []string{},
			UnmatchedSenders:      []string{},
			MissingEmails:         []string{},
			MissingAuthUsers:      []string{},
			ProfileInsertFailures: []string{},
			MappingTraces:         []string{},
			DateOrder:             chat.OrderMDY,
		},
		MissingUserMapping: []string{},
		Errors:             []string{},
		MappingTraces:      []string{},
	}
}

func (s *Summary) addMissingUser(sender string) {
	for _, existing := range s.MissingUserMapping {
		if existing == sender {
			return
		}
	}
	s.MissingUserMapping = append(s.MissingUserMapping, sender)
}
