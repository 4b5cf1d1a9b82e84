package probe

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Metadata is the timing and caching block the API attaches to query
// responses. Every field is optional: routes such as /health carry no
// metadata at all, so nil means "not reported" rather than zero.
type Metadata struct {
	Present      bool     `json:"-"`
	QueryTimeMs  *float64 `json:"query_time_ms"`
	Cached       *bool    `json:"cached"`
	ReturnedRows *int64   `json:"returned_rows"`
	TotalRows    *int64   `json:"total_rows"`
}

// QueryTime returns the server-reported query time, 0 when absent.
func (m Metadata) QueryTime() float64 {
	if m.QueryTimeMs == nil {
		return 0
	}
	return *m.QueryTimeMs
}

// IsCached returns the server's cache-hit flag, false when absent.
func (m Metadata) IsCached() bool {
	return m.Cached != nil && *m.Cached
}

// Rows returns the number of rows returned, 0 when absent.
func (m Metadata) Rows() int {
	if m.ReturnedRows == nil {
		return 0
	}
	return int(*m.ReturnedRows)
}

func (m Metadata) validate() error {
	if m.QueryTimeMs != nil && *m.QueryTimeMs < 0 {
		return errors.Errorf("negative query_time_ms %v", *m.QueryTimeMs)
	}
	if m.ReturnedRows != nil && *m.ReturnedRows < 0 {
		return errors.Errorf("negative returned_rows %d", *m.ReturnedRows)
	}
	if m.TotalRows != nil && *m.TotalRows < 0 {
		return errors.Errorf("negative total_rows %d", *m.TotalRows)
	}
	return nil
}

// parseMetadata checks that body is JSON and extracts its metadata object.
// A JSON document without metadata yields an absent Metadata.
func parseMetadata(body []byte) (Metadata, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Metadata{}, errors.New("empty response body")
	}
	if trimmed[0] != '{' {
		if !json.Valid(trimmed) {
			return Metadata{}, errors.New("malformed JSON response body")
		}
		return Metadata{}, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return Metadata{}, errors.Wrap(err, "malformed JSON response body")
	}
	raw, ok := doc["metadata"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return Metadata{}, nil
	}

	var md Metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return Metadata{}, errors.Wrap(err, "malformed metadata")
	}
	if err := md.validate(); err != nil {
		return Metadata{}, errors.Wrap(err, "malformed metadata")
	}
	md.Present = true
	return md, nil
}
