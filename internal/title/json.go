package title

import (
	"encoding/json"
	"fmt"
)

// wireRecord is the JSON shape of a Record; keys match the mapping keys.
type wireRecord struct {
	ID           *string `json:"id"`
	TitleType    *string `json:"title_type,omitempty"`
	PrimaryTitle *string `json:"primary_title,omitempty"`
	StartYear    *int32  `json:"start_year,omitempty"`
}

// MarshalJSON implements json.Marshaler. Absent attributes are omitted.
func (r Record) MarshalJSON() ([]byte, error) {
	id := r.id
	return json.Marshal(wireRecord{
		ID:           &id,
		TitleType:    r.titleType,
		PrimaryTitle: r.primaryTitle,
		StartYear:    r.startYear,
	})
}

// UnmarshalJSON implements json.Unmarshaler. A document without "id" is
// rejected with ErrMissingID.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.ID == nil {
		return fmt.Errorf("json field %q: %w", KeyID, ErrMissingID)
	}
	*r = Record{
		id:           *w.ID,
		titleType:    w.TitleType,
		primaryTitle: w.PrimaryTitle,
		startYear:    w.StartYear,
	}
	return nil
}
