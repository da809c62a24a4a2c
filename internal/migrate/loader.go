// Package migrate moves patient records between CSV files and a document
// collection and checks that the two agree.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/medmigrate/pkg/slogx"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// DefaultBatchSize is the number of documents per InsertMany call.
const DefaultBatchSize = 1000

var (
	ErrInvalidFilter = errors.New("migrate: invalid filter")
	ErrInvalidUpdate = errors.New("migrate: invalid update")
)

// Loader moves tables between CSV and a collection.
type Loader struct {
	Coll      Collection
	BatchSize int
}

// ImportReport summarises one Import call.
type ImportReport struct {
	RunID    uuid.UUID
	Rows     int
	Inserted int
	Duration time.Duration
}

func (l *Loader) batchSize() int {
	if l.BatchSize > 0 {
		return l.BatchSize
	}
	return DefaultBatchSize
}

// Import reads a CSV table from r and inserts one document per row. On a
// failed batch the report counts the documents inserted before it.
func (l *Loader) Import(ctx context.Context, r io.Reader) (ImportReport, error) {
	start := time.Now()
	report := ImportReport{RunID: uuid.New()}
	ctx = slogx.With(ctx, "run_id", report.RunID.String())
	log := slogx.FromContext(ctx)

	t, err := ReadTable(r)
	if err != nil {
		return report, err
	}
	report.Rows = t.Len()

	docs := t.Documents()
	size := l.batchSize()
	for from := 0; from < len(docs); from += size {
		to := min(from+size, len(docs))

		batch := make([]any, 0, to-from)
		for _, d := range docs[from:to] {
			batch = append(batch, d)
		}

		n, err := l.Coll.InsertMany(ctx, batch)
		report.Inserted += n
		if err != nil {
			report.Duration = time.Since(start)
			return report, fmt.Errorf("migrate: insert rows %d-%d: %w", from, to-1, err)
		}
		log.Debug("batch inserted", slog.Int("from", from), slog.Int("count", n))
	}

	report.Duration = time.Since(start)
	log.Info("import complete",
		slog.Int("rows", report.Rows),
		slog.Int("inserted", report.Inserted),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

// Snapshot reads the whole collection as a table.
func (l *Loader) Snapshot(ctx context.Context) (Table, error) {
	docs, err := l.Coll.Find(ctx, bson.D{})
	if err != nil {
		return Table{}, fmt.Errorf("migrate: read collection: %w", err)
	}
	return TableFromDocuments(docs), nil
}

// Export writes every document as CSV and returns the row count. _id is
// dropped and the header is the union of document keys in first-seen order.
func (l *Loader) Export(ctx context.Context, w io.Writer) (int, error) {
	t, err := l.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	if err := t.WriteCSV(w); err != nil {
		return 0, err
	}

	slogx.FromContext(ctx).Info("export complete", slog.Int("rows", t.Len()))
	return t.Len(), nil
}

// Drop removes the collection.
func (l *Loader) Drop(ctx context.Context) error {
	return l.Coll.Drop(ctx)
}

// Find returns documents matching an Extended JSON filter. An empty filter
// matches everything.
func (l *Loader) Find(ctx context.Context, filter string) ([]bson.D, error) {
	f, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	return l.Coll.Find(ctx, f)
}

// UpdateOne applies an Extended JSON update document to the first match.
func (l *Loader) UpdateOne(ctx context.Context, filter, update string) (UpdateResult, error) {
	f, u, err := parseFilterAndUpdate(filter, update)
	if err != nil {
		return UpdateResult{}, err
	}
	return l.Coll.UpdateOne(ctx, f, u)
}

// UpdateMany applies an Extended JSON update document to every match.
func (l *Loader) UpdateMany(ctx context.Context, filter, update string) (UpdateResult, error) {
	f, u, err := parseFilterAndUpdate(filter, update)
	if err != nil {
		return UpdateResult{}, err
	}
	return l.Coll.UpdateMany(ctx, f, u)
}

// DeleteOne removes the first match and returns the number deleted.
func (l *Loader) DeleteOne(ctx context.Context, filter string) (int64, error) {
	f, err := ParseFilter(filter)
	if err != nil {
		return 0, err
	}
	return l.Coll.DeleteOne(ctx, f)
}

// DeleteMany removes every match. An empty filter is rejected so a missing
// flag cannot wipe the collection; use Drop for that.
func (l *Loader) DeleteMany(ctx context.Context, filter string) (int64, error) {
	if strings.TrimSpace(filter) == "" {
		return 0, fmt.Errorf("%w: delete requires a filter", ErrInvalidFilter)
	}
	f, err := ParseFilter(filter)
	if err != nil {
		return 0, err
	}
	return l.Coll.DeleteMany(ctx, f)
}

// ParseFilter decodes relaxed or canonical Extended JSON into a filter.
func ParseFilter(s string) (bson.D, error) {
	if strings.TrimSpace(s) == "" {
		return bson.D{}, nil
	}

	var f bson.D
	if err := bson.UnmarshalExtJSON([]byte(s), false, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return f, nil
}

// ParseUpdate decodes an update document. Every top-level key must be an
// update operator such as $set.
func ParseUpdate(s string) (bson.D, error) {
	var u bson.D
	if err := bson.UnmarshalExtJSON([]byte(s), false, &u); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUpdate, err)
	}
	if len(u) == 0 {
		return nil, fmt.Errorf("%w: empty update", ErrInvalidUpdate)
	}
	for _, e := range u {
		if !strings.HasPrefix(e.Key, "$") {
			return nil, fmt.Errorf("%w: %q is not an update operator", ErrInvalidUpdate, e.Key)
		}
	}
	return u, nil
}

func parseFilterAndUpdate(filter, update string) (bson.D, bson.D, error) {
	f, err := ParseFilter(filter)
	if err != nil {
		return nil, nil, err
	}
	u, err := ParseUpdate(update)
	if err != nil {
		return nil, nil, err
	}
	return f, u, nil
}
