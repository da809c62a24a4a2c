package migrate

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errInsertFailed = errors.New("insert failed")

// fakeCollection keeps documents in memory. Filters match on top-level
// equality only and updates support $set, which covers the loader's needs.
type fakeCollection struct {
	mu   sync.Mutex
	docs []bson.D

	insertCalls int
	failOnCall  int // 1-based InsertMany call that fails; 0 never fails
}

var _ Collection = (*fakeCollection)(nil)

func (f *fakeCollection) InsertMany(_ context.Context, docs []any) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.insertCalls++
	if f.insertCalls == f.failOnCall {
		return 0, errInsertFailed
	}
	for _, d := range docs {
		doc := append(bson.D{{Key: "_id", Value: primitive.NewObjectID()}}, d.(bson.D)...)
		f.docs = append(f.docs, doc)
	}
	return len(docs), nil
}

func (f *fakeCollection) Find(_ context.Context, filter bson.D) ([]bson.D, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []bson.D
	for _, d := range f.docs {
		if matches(d, filter) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeCollection) UpdateOne(_ context.Context, filter, update bson.D) (UpdateResult, error) {
	return f.update(filter, update, false), nil
}

func (f *fakeCollection) UpdateMany(_ context.Context, filter, update bson.D) (UpdateResult, error) {
	return f.update(filter, update, true), nil
}

func (f *fakeCollection) update(filter, update bson.D, many bool) UpdateResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	var res UpdateResult
	for i, d := range f.docs {
		if !matches(d, filter) {
			continue
		}
		res.Matched++
		if applySet(&f.docs[i], update) {
			res.Modified++
		}
		if !many {
			break
		}
	}
	return res
}

func (f *fakeCollection) DeleteOne(_ context.Context, filter bson.D) (int64, error) {
	return f.delete(filter, false), nil
}

func (f *fakeCollection) DeleteMany(_ context.Context, filter bson.D) (int64, error) {
	return f.delete(filter, true), nil
}

func (f *fakeCollection) delete(filter bson.D, many bool) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	kept := f.docs[:0]
	for _, d := range f.docs {
		if matches(d, filter) && (many || n == 0) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	f.docs = kept
	return n
}

func (f *fakeCollection) Drop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = nil
	return nil
}

func matches(doc, filter bson.D) bool {
	for _, e := range filter {
		v, ok := lookup(doc, e.Key)
		if !ok || !equalValue(v, e.Value) {
			return false
		}
	}
	return true
}

func lookup(doc bson.D, key string) (any, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// equalValue treats int32 and int64 as the same number, as the server does.
func equalValue(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func applySet(doc *bson.D, update bson.D) bool {
	var changed bool
	for _, op := range update {
		if op.Key != "$set" {
			continue
		}
		for _, e := range op.Value.(bson.D) {
			found := false
			for i := range *doc {
				if (*doc)[i].Key == e.Key {
					found = true
					if !equalValue((*doc)[i].Value, e.Value) {
						(*doc)[i].Value = e.Value
						changed = true
					}
				}
			}
			if !found {
				*doc = append(*doc, e)
				changed = true
			}
		}
	}
	return changed
}
