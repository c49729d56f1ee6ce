package cdc_emitter

import (
	"encoding/json"
	"time"

	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/rs/zerolog/log"
)

// CDCParams describes one applied row mutation.
type CDCParams struct {
	Operation litetable.Operation
	Row       litetable.RowKey
	Cells     []litetable.Cell
	Timestamp time.Time
}

// event is the wire form sent to consumers, one JSON object per line.
type event struct {
	Operation string           `json:"operation"`
	RowKey    string           `json:"key"`
	Cells     []litetable.Cell `json:"cells,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

func newEvent(params *CDCParams) *event {
	return &event{
		Operation: params.Operation.String(),
		RowKey:    string(params.Row),
		Cells:     params.Cells,
		Timestamp: params.Timestamp.UnixNano(),
	}
}

// Emit pushes a CDC event to the channel. This is how consumers get notified
// of a CDC event. When the buffer is full the event is dropped.
func (m *Manager) Emit(params *CDCParams) {
	select {
	case m.emitChan <- params:
	default:
		log.Warn().Msgf("CDC buffer full, dropping %s event for row %s", params.Operation,
			params.Row)
	}
}

// raiseCDCEvent will emit the CDC event to all connected clients.
func (m *Manager) raiseCDCEvent(params *CDCParams) {
	data, err := json.Marshal(newEvent(params))
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal CDC event")
		return
	}

	// Add newline for message framing
	message := append(data, '\n')

	// no new clients while writing
	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	for client := range m.clients {
		// Non-blocking write with short timeout
		_ = client.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
		_, err = client.Write(message)
		if err != nil {
			_ = client.Close()
			delete(m.clients, client)
		}
	}
}
