// Package catalog holds the normalized library catalog: record types, the
// overlay merge and normalization engine, version ordering, and the
// deterministic catalog writer.
package catalog

// Board compatibility statuses.
const (
	StatusWorking  = "working"
	StatusBroken   = "broken"
	StatusUntested = "untested"
)

// Recognized support statuses. Anything else is omitted from output.
const (
	SupportStable       = "stable"
	SupportExperimental = "experimental"
	SupportDeprecated   = "deprecated"
)

// Source identifies where a record was discovered.
type Source struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
}

// BoardSupport describes one board's compatibility with a library.
type BoardSupport struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// CompatibilitySummary partitions board identifiers by status.
type CompatibilitySummary struct {
	WorkingBoards  []string `json:"workingBoards"`
	BrokenBoards   []string `json:"brokenBoards"`
	UntestedBoards []string `json:"untestedBoards"`
}

// Record is one library in the catalog. Field order matches the serialized
// key order of the catalog document.
type Record struct {
	ID                   string                  `json:"id"`
	Source               Source                  `json:"source"`
	Latest               string                  `json:"latest"`
	Versions             []string                `json:"versions"`
	Summary              string                  `json:"summary,omitempty"`
	UpdatedAt            string                  `json:"updatedAt,omitempty"`
	License              string                  `json:"license,omitempty"`
	Tags                 []string                `json:"tags,omitempty"`
	Interfaces           []string                `json:"interfaces,omitempty"`
	MCU                  []string                `json:"mcu,omitempty"`
	BoardCompatibility   map[string]BoardSupport `json:"boardCompatibility,omitempty"`
	CompatibilitySummary *CompatibilitySummary   `json:"compatibilitySummary,omitempty"`
	SupportStatus        string                  `json:"supportStatus,omitempty"`
	Quality              map[string]any          `json:"quality,omitempty"`
}

// Document is the produced catalog document.
type Document struct {
	GeneratedAt string   `json:"generatedAt"`
	Libraries   []Record `json:"libraries"`
}
