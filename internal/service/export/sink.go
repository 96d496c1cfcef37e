package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Sink receives scheduled snapshots.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, snap Snapshot) error
}

// Publish hands snap to every sink and joins their failures.
func Publish(ctx context.Context, snap Snapshot, sinks []Sink, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	var errs []error
	for _, sink := range sinks {
		if err := sink.Deliver(ctx, snap); err != nil {
			logger.Error("snapshot delivery failed", zap.String("sink", sink.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		logger.Info("snapshot delivered", zap.String("sink", sink.Name()), zap.String("file", snap.FileName))
	}
	return errors.Join(errs...)
}

// DirSink writes snapshots into a local directory.
type DirSink struct {
	dir string
}

// NewDirSink returns a sink writing into dir.
func NewDirSink(dir string) *DirSink { return &DirSink{dir: dir} }

// Name implements Sink.
func (s *DirSink) Name() string { return "dir" }

// Deliver implements Sink.
func (s *DirSink) Deliver(_ context.Context, snap Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(s.dir, snap.FileName)
	if err := os.WriteFile(path, snap.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ObjectWriter stores a blob under a key.
type ObjectWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// ObjectSink uploads snapshots to an object store under prefix.
type ObjectSink struct {
	store  ObjectWriter
	prefix string
}

// NewObjectSink returns a sink uploading through store.
func NewObjectSink(store ObjectWriter, prefix string) *ObjectSink {
	return &ObjectSink{store: store, prefix: prefix}
}

// Name implements Sink.
func (s *ObjectSink) Name() string { return "s3" }

// Deliver implements Sink.
func (s *ObjectSink) Deliver(ctx context.Context, snap Snapshot) error {
	return s.store.Put(ctx, s.prefix+snap.FileName, snap.Data, ContentType)
}

// SheetWriter replaces the content of a spreadsheet range.
type SheetWriter interface {
	ReplaceRange(ctx context.Context, sheetRange string, values [][]interface{}) error
}

// SheetSink mirrors the snapshot table into a Google Sheets tab named SheetName.
type SheetSink struct {
	writer SheetWriter
}

// NewSheetSink returns a sink writing through writer.
func NewSheetSink(writer SheetWriter) *SheetSink { return &SheetSink{writer: writer} }

// Name implements Sink.
func (s *SheetSink) Name() string { return "sheets" }

// Deliver implements Sink.
func (s *SheetSink) Deliver(ctx context.Context, snap Snapshot) error {
	return s.writer.ReplaceRange(ctx, fmt.Sprintf("'%s'", SheetName), snap.Table.Values())
}
