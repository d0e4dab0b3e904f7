package action

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/dbgraph/dialect"
)

// Record is the serialisable trace of an action.
type Record struct {
	ID         uuid.UUID `msgpack:"id"`
	Kind       Kind      `msgpack:"kind"`
	Table      string    `msgpack:"table"`
	Statements []string  `msgpack:"statements"`
	Revertible bool      `msgpack:"revertible"`
}

// Records returns the records of the actions of the list with their
// statements for d.
func (l *List) Records(d dialect.Definition) ([]Record, error) {
	records := make([]Record, 0, len(l.actions))
	for _, a := range l.actions {
		stmts, err := a.SQL(d)
		if err != nil {
			return nil, err
		}
		_, rerr := a.Revert()
		records = append(records, Record{
			ID:         uuid.New(),
			Kind:       a.Kind(),
			Table:      a.Table(),
			Statements: stmts,
			Revertible: rerr == nil,
		})
	}
	return records, nil
}

// EncodeRecords encodes records with msgpack.
func EncodeRecords(records []Record) ([]byte, error) {
	b, err := msgpack.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("dbgraph: encoding action records: %w", err)
	}
	return b, nil
}

// DecodeRecords decodes records encoded by EncodeRecords.
func DecodeRecords(b []byte) ([]Record, error) {
	var records []Record
	if err := msgpack.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("dbgraph: decoding action records: %w", err)
	}
	return records, nil
}
