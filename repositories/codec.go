package repositories

import "encoding/json"

// Row values are stored as JSON. Keys carry all the ordering the engine
// relies on, so the value encoding only needs to round-trip fields.
func encodeRow(row any) ([]byte, error) {
	return json.Marshal(row)
}

func decodeRow(data []byte, row any) error {
	return json.Unmarshal(data, row)
}
