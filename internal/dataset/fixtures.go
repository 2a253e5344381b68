package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"imdb-titles/internal/shared"
	"imdb-titles/internal/title"
)

// LoadFixtures reads a YAML list of title mappings from path.
func LoadFixtures(path string) ([]title.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	records, err := ParseFixtures(data)
	if err != nil {
		return nil, fmt.Errorf("fixtures %s: %w", path, err)
	}
	return records, nil
}

// ParseFixtures decodes a YAML list of mappings keyed like title.FromMapping:
//
//	# titles.yaml
//	- id: tt0000001
//	  title_type: short
//	  primary_title: Carmencita
//	  start_year: 1894
//
// A null value (~ or null) leaves the attribute absent. An entry without id
// fails the whole document.
func ParseFixtures(data []byte) ([]title.Record, error) {
	var entries []map[string]*string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, shared.MarkKind(fmt.Errorf("decode yaml: %w", err), shared.KindValidation)
	}

	records := make([]title.Record, 0, len(entries))
	for i, entry := range entries {
		fields := make(map[string]string, len(entry))
		for k, v := range entry {
			if v != nil {
				fields[k] = *v
			}
		}
		r, err := title.ParseMapping(fields)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		records = append(records, r)
	}
	return records, nil
}
