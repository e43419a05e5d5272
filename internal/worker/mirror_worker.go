package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// SnapshotSource reads persisted collection snapshots.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context, owner string, name core.Collection) (storage.Snapshot, error)
	ListSnapshots(ctx context.Context) ([]storage.SnapshotKey, error)
}

// MirrorObserver records mirror outcomes.
type MirrorObserver interface {
	ObserveMirror(collection string, err error)
}

// MirrorWorker copies stored snapshots into spreadsheet tabs, one tab per
// owner and collection.
type MirrorWorker struct {
	source   SnapshotSource
	writer   sheets.TableWriter
	observer MirrorObserver
	logger   *log.Logger

	mu       sync.Mutex
	mirrored map[storage.SnapshotKey]int64 // last revision written
}

func NewMirrorWorker(source SnapshotSource, writer sheets.TableWriter, observer MirrorObserver, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &MirrorWorker{
		source:   source,
		writer:   writer,
		observer: observer,
		logger:   logger,
		mirrored: make(map[storage.SnapshotKey]int64),
	}
}

// HandleCollectionSaved mirrors the collection named by an AMQP message.
func (w *MirrorWorker) HandleCollectionSaved(ctx context.Context, msg *amqp.CollectionSavedMessage) error {
	name := core.Collection(msg.Collection)
	if !name.IsValid() {
		// Unknown collections are dropped rather than requeued forever.
		w.logger.WarnContext(ctx, "Ignoring message for unknown collection",
			log.FieldOwnerID, msg.OwnerID,
			log.FieldCollection, msg.Collection)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing collection saved message",
		log.FieldOwnerID, msg.OwnerID,
		log.FieldCollection, msg.Collection,
		"timestamp", msg.Timestamp)

	_, err := w.mirror(ctx, storage.SnapshotKey{Owner: msg.OwnerID, Name: name})
	return err
}

// MirrorAll rewrites every stored snapshot whose revision changed since the
// last pass. Failures are logged and counted; the pass continues.
func (w *MirrorWorker) MirrorAll(ctx context.Context) (int, error) {
	keys, err := w.source.ListSnapshots(ctx)
	if err != nil {
		return 0, fmt.Errorf("list snapshots: %w", err)
	}

	written := 0
	var errs []error
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		ok, err := w.mirror(ctx, k)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			written++
		}
	}

	w.logger.InfoContext(ctx, "Mirror pass completed",
		"snapshots", len(keys),
		"written", written,
		"errors", len(errs))
	return written, errors.Join(errs...)
}

// mirror writes one snapshot. It reports false when the stored revision was
// already mirrored.
func (w *MirrorWorker) mirror(ctx context.Context, key storage.SnapshotKey) (bool, error) {
	snap, err := w.source.LoadSnapshot(ctx, key.Owner, key.Name)
	if err != nil {
		err = fmt.Errorf("load snapshot %s/%s: %w", key.Owner, key.Name, err)
		w.observe(key.Name, err)
		return false, err
	}

	w.mu.Lock()
	last, seen := w.mirrored[key]
	w.mu.Unlock()
	if seen && snap.Revision != 0 && snap.Revision <= last {
		w.logger.DebugContext(ctx, "Snapshot already mirrored",
			log.FieldOwnerID, key.Owner,
			log.FieldCollection, string(key.Name),
			log.FieldRevision, snap.Revision)
		return false, nil
	}

	table, err := sheets.TableFor(key.Name, snap.Payload)
	if err != nil {
		err = fmt.Errorf("build table %s/%s: %w", key.Owner, key.Name, err)
		w.observe(key.Name, err)
		return false, err
	}

	tab := sheets.TabName(key.Name, key.Owner)
	if err := w.writer.WriteTable(ctx, tab, table); err != nil {
		err = fmt.Errorf("write tab %s: %w", tab, err)
		w.observe(key.Name, err)
		w.logger.ErrorContext(ctx, "Failed to mirror snapshot",
			log.FieldOwnerID, key.Owner,
			log.FieldCollection, string(key.Name),
			log.FieldTab, tab,
			log.FieldError, err)
		return false, err
	}

	w.mu.Lock()
	if snap.Revision > w.mirrored[key] {
		w.mirrored[key] = snap.Revision
	}
	w.mu.Unlock()
	w.observe(key.Name, nil)

	w.logger.InfoContext(ctx, "Mirrored snapshot",
		log.FieldOwnerID, key.Owner,
		log.FieldCollection, string(key.Name),
		log.FieldTab, tab,
		log.FieldRevision, snap.Revision,
		log.FieldRecords, len(table.Rows))
	return true, nil
}

func (w *MirrorWorker) observe(collection core.Collection, err error) {
	if w.observer != nil {
		w.observer.ObserveMirror(string(collection), err)
	}
}
