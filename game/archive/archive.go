package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/wricardo/grid-shooter/game/engine"
)

// SchemaVersion is stored in the file metadata under "schema"
const SchemaVersion = "grid_events_v1"

// EventRow is one game event flattened for columnar storage
type EventRow struct {
	ExportID  string `parquet:"export_id,dict"`
	SessionID string `parquet:"session_id,dict"`
	Config    string `parquet:"config,dict"`
	Sequence  int64  `parquet:"sequence"`
	Tick      int64  `parquet:"tick"`
	Type      string `parquet:"type,dict"`
	Kind      string `parquet:"kind,dict"`
	FromX     int32  `parquet:"from_x"`
	FromY     int32  `parquet:"from_y"`
	ToX       int32  `parquet:"to_x"`
	ToY       int32  `parquet:"to_y"`
	Reason    string `parquet:"reason,dict"`
	Message   string `parquet:"message,zstd"`
	Timestamp int64  `parquet:"timestamp"`
}

// Meta identifies the export every row belongs to
type Meta struct {
	ExportID   string
	SessionID  string
	ConfigName string
}

// NewMeta stamps a fresh export ID for a session
func NewMeta(sessionID, configName string) Meta {
	return Meta{
		ExportID:   uuid.NewString(),
		SessionID:  sessionID,
		ConfigName: configName,
	}
}

// Rows flattens events into parquet rows
func Rows(meta Meta, events []engine.GameEvent) []EventRow {
	rows := make([]EventRow, len(events))
	for i, ev := range events {
		rows[i] = EventRow{
			ExportID:  meta.ExportID,
			SessionID: meta.SessionID,
			Config:    meta.ConfigName,
			Sequence:  int64(ev.Sequence),
			Tick:      int64(ev.Tick),
			Type:      string(ev.Type),
			Kind:      string(ev.Kind),
			FromX:     int32(ev.From.X),
			FromY:     int32(ev.From.Y),
			ToX:       int32(ev.To.X),
			ToY:       int32(ev.To.Y),
			Reason:    ev.Reason,
			Message:   ev.Message,
			Timestamp: ev.Timestamp,
		}
	}
	return rows
}

// Events converts rows back into game events
func Events(rows []EventRow) []engine.GameEvent {
	events := make([]engine.GameEvent, len(rows))
	for i, r := range rows {
		events[i] = engine.GameEvent{
			Type:      engine.EventType(r.Type),
			Kind:      engine.EntityKind(r.Kind),
			From:      engine.Position{X: int(r.FromX), Y: int(r.FromY)},
			To:        engine.Position{X: int(r.ToX), Y: int(r.ToY)},
			Reason:    r.Reason,
			Message:   r.Message,
			Tick:      int(r.Tick),
			Sequence:  int(r.Sequence),
			Timestamp: r.Timestamp,
		}
	}
	return events
}

// Write streams the events as a zstd-compressed parquet file
func Write(w io.Writer, meta Meta, events []engine.GameEvent) (int, error) {
	writer := parquet.NewGenericWriter[EventRow](
		w,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	writer.SetKeyValueMetadata("schema", SchemaVersion)
	writer.SetKeyValueMetadata("export_id", meta.ExportID)

	n, err := writer.Write(Rows(meta, events))
	if err != nil {
		writer.Close()
		return n, fmt.Errorf("write parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return n, fmt.Errorf("close parquet: %w", err)
	}
	return n, nil
}

// WriteFile writes the events to path through a temp file
func WriteFile(path string, meta Meta, events []engine.GameEvent) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, Rows(meta, events),
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", SchemaVersion),
		parquet.KeyValueMetadata("export_id", meta.ExportID),
	); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

// Read loads every row from an in-memory or on-disk parquet source
func Read(r io.ReaderAt, size int64) ([]EventRow, error) {
	rows, err := parquet.Read[EventRow](r, size)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows, nil
}

// ReadFile loads every row from a parquet file
func ReadFile(path string) ([]EventRow, error) {
	rows, err := parquet.ReadFile[EventRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows, nil
}
