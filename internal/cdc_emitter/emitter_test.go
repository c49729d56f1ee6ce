package cdc_emitter

import (
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestManager_Emit(t *testing.T) {
	t.Parallel()
	m := &Manager{
		emitChan: make(chan *CDCParams, 1),
	}

	params := &CDCParams{Operation: litetable.OperationPut}
	m.Emit(params)

	// buffer is full, the second event is dropped instead of blocking
	m.Emit(&CDCParams{Operation: litetable.OperationDelete})

	emitted := <-m.emitChan
	require.Same(t, params, emitted)
	require.Empty(t, m.emitChan)
}

func TestManager_raiseCDCEvent(t *testing.T) {
	t.Parallel()
	now := time.Now()
	tests := map[string]struct {
		params        *CDCParams
		writeErrors   []error
		expectRemoved []bool
	}{
		"single client successful write": {
			params: &CDCParams{
				Operation: litetable.OperationPut,
				Row:       litetable.StringKey("user:123"),
				Cells: []litetable.Cell{
					{Family: "main", Qualifier: "name", Value: []byte("ada")},
				},
				Timestamp: now,
			},
			writeErrors:   []error{nil},
			expectRemoved: []bool{false},
		},
		"multiple clients successful write": {
			params: &CDCParams{
				Operation: litetable.OperationCheckAndPut,
				Row:       litetable.StringKey("user:456"),
				Cells: []litetable.Cell{
					{Family: "main", Qualifier: "version", Value: []byte{0, 1}},
				},
				Timestamp: now,
			},
			writeErrors:   []error{nil, nil, nil},
			expectRemoved: []bool{false, false, false},
		},
		"some clients with write errors": {
			params: &CDCParams{
				Operation: litetable.OperationDelete,
				Row:       litetable.StringKey("user:789"),
				Timestamp: now,
			},
			writeErrors:   []error{nil, errors.New("write error"), nil},
			expectRemoved: []bool{false, true, false},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			m := &Manager{
				clients: make(map[net.Conn]bool),
			}

			expectedData, err := json.Marshal(newEvent(tc.params))
			require.NoError(t, err)
			expectedMessage := append(expectedData, '\n')

			mockConns := make([]net.Conn, len(tc.writeErrors))
			for i, writeErr := range tc.writeErrors {
				mockConn := NewMockConn(ctrl)
				m.clients[mockConn] = true
				mockConns[i] = mockConn
				mockConn.EXPECT().SetWriteDeadline(gomock.Any()).Return(nil)
				mockConn.EXPECT().Write(gomock.Eq(expectedMessage)).
					Return(len(expectedMessage), writeErr)
				if writeErr != nil {
					mockConn.EXPECT().Close().Return(nil)
				}
			}

			m.raiseCDCEvent(tc.params)

			for i, conn := range mockConns {
				_, exists := m.clients[conn]
				assert.Equal(t, !tc.expectRemoved[i], exists, "client %d", i)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	t.Parallel()
	ts := time.Unix(10, 5)
	got := newEvent(&CDCParams{
		Operation: litetable.OperationDelete,
		Row:       litetable.StringKey("k"),
		Timestamp: ts,
	})

	require.Equal(t, "DELETE", got.Operation)
	require.Equal(t, "k", got.RowKey)
	require.Equal(t, ts.UnixNano(), got.Timestamp)
	require.Empty(t, got.Cells)
}
