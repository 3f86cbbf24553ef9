package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Record is one scraped page section from the corpus file.
type Record struct {
	ID         int    `json:"id"`
	URL        string `json:"url"`
	Section    string `json:"section"`
	Subsection string `json:"subsection"`
	Content    string `json:"content"`
}

// Load reads and parses the corpus JSON file. Records with empty content
// are dropped.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing corpus file %s: %w", path, err)
	}

	kept := records[:0]
	for _, rec := range records {
		if strings.TrimSpace(rec.Content) == "" {
			continue
		}
		kept = append(kept, rec)
	}
	return kept, nil
}
