package audit

import (
	"context"
	"database/sql"
	"encoding/json"
)

type sqlRecorder struct {
	db *sql.DB
}

// NewSQLRecorder returns a recorder persisting to the audit_events table.
func NewSQLRecorder(db *sql.DB) Recorder {
	return &sqlRecorder{db: db}
}

func (r *sqlRecorder) Save(ctx context.Context, e Event) error {
	jsonData, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	jsonMetadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	statement := `INSERT INTO audit_events (id, event_type, event_data, event_metadata, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err = r.db.ExecContext(ctx, statement, e.ID, string(e.Kind), jsonData, jsonMetadata, e.CreatedAt)
	return err
}

func (r *sqlRecorder) GetByKind(ctx context.Context, kind Kind) ([]Event, error) {
	query := `SELECT id, event_type, event_data, event_metadata, created_at FROM audit_events WHERE event_type = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var event Event
		var jsonData, jsonMetadata []byte
		if err := rows.Scan(&event.ID, &event.Kind, &jsonData, &jsonMetadata, &event.CreatedAt); err != nil {
			return events, err
		}
		if err := json.Unmarshal(jsonData, &event.Data); err != nil {
			return events, err
		}
		if err := json.Unmarshal(jsonMetadata, &event.Metadata); err != nil {
			return events, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return events, err
	}

	return events, nil
}
