package repositories

import (
	"encoding/json"
	"fmt"

	"github.com/prudhvinik1/intakesync/internal/models"
)

// encodeClientDocs serializes the payload and server details. server is nil
// when the record has not been reconciled yet.
func encodeClientDocs(record *models.ClientRecord) (payload []byte, server []byte, err error) {
	payload, err = json.Marshal(record.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal client payload: %w", err)
	}
	if record.Server != nil {
		server, err = json.Marshal(record.Server)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal server details: %w", err)
		}
	}
	return payload, server, nil
}

func decodeClientDocs(record *models.ClientRecord, payload []byte, server []byte) error {
	if err := json.Unmarshal(payload, &record.Payload); err != nil {
		return fmt.Errorf("failed to unmarshal client payload: %w", err)
	}
	if len(server) > 0 {
		var details models.ServerDetails
		if err := json.Unmarshal(server, &details); err != nil {
			return fmt.Errorf("failed to unmarshal server details: %w", err)
		}
		record.Server = &details
	}
	return nil
}
