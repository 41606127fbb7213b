package common

// Entity represents a single named-entity span recognized by the language
// service. The same text may be observed in many documents; the graph layer
// collapses all observations onto one canonical vertex keyed by the
// lower-cased text.
//
// Category comes from the recognizer's closed vocabulary (see Categories).
// ConfidenceScore is the recognizer's confidence in [0, 1]; entities below
// the configured threshold are never persisted.
type Entity struct {
	Text            string  `json:"text"`
	Category        string  `json:"category"`
	SubCategory     string  `json:"subCategory,omitempty"`
	ConfidenceScore float64 `json:"confidenceScore"`
	Offset          int     `json:"offset"`
	Length          int     `json:"length"`
}

// Document is the unit of graph mutation: one source text with
// its extracted entities. ID is caller-supplied and stable across
// re-processing; Metadata pairs are attached to the document vertex at
// creation time only.
type Document struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Entities []Entity          `json:"entities"`
}

// Categories is the closed vocabulary of entity categories the recognizer
// emits. The relationship table in pkg/graph is validated against this set
// at init so a typo there cannot mint an orphan relationship label.
var Categories = map[string]struct{}{
	"Person":       {},
	"PersonType":   {},
	"Organization": {},
	"Location":     {},
	"Event":        {},
	"Product":      {},
	"Skill":        {},
	"Address":      {},
	"PhoneNumber":  {},
	"Email":        {},
	"URL":          {},
	"IP":           {},
	"DateTime":     {},
	"Quantity":     {},
}

// KnownCategory reports whether category is part of the recognizer's
// vocabulary.
func KnownCategory(category string) bool {
	_, ok := Categories[category]
	return ok
}
