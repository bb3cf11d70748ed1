package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/izzyreal/resethook/internal/protocol"
)

func scanRun(scanner interface{ Scan(dest ...any) error }) (protocol.RunRecord, error) {
	var (
		run                     protocol.RunRecord
		event, targetsJSON      string
		message                 sql.NullString
		startedUTC, finishedUTC string
	)
	if err := scanner.Scan(&run.ID, &event, &run.Status, &message, &targetsJSON, &startedUTC, &finishedUTC); err != nil {
		return protocol.RunRecord{}, err
	}
	run.Event = protocol.Event(event)
	if message.Valid {
		run.Message = message.String
	}
	_ = json.Unmarshal([]byte(targetsJSON), &run.Targets)
	if t, err := time.Parse(time.RFC3339Nano, startedUTC); err == nil {
		run.StartedUTC = t
	}
	if t, err := time.Parse(time.RFC3339Nano, finishedUTC); err == nil {
		run.FinishedUTC = t
	}
	return run, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
