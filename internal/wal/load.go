package wal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/rs/zerolog/log"
)

// maxEntrySize bounds a single journaled mutation.
const maxEntrySize = 16 << 20

// Load replays every entry of the WAL file, oldest first, into apply. Malformed lines and
// unknown operations are skipped. An error from apply stops the replay.
func (m *Manager) Load(apply func(*Entry) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			// No WAL file exists yet, not an error
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEntrySize)

	replayed := 0
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			log.Warn().Err(err).Msg("Skipping malformed WAL entry")
			continue
		}

		switch entry.Operation {
		case litetable.OperationPut, litetable.OperationCheckAndPut, litetable.OperationDelete:
			if err := apply(&entry); err != nil {
				return fmt.Errorf("failed to replay %s of row %s: %w", entry.Operation,
					entry.Row, err)
			}
			replayed++
		default:
			log.Warn().Msgf("Unknown WAL operation %d, skipping", entry.Operation)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read WAL: %w", err)
	}

	log.Debug().Msgf("Replayed %d WAL entries from %s", replayed, m.path)
	return nil
}
