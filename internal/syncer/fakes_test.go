package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/source"
	"github.com/JonMunkholm/sheetsync/internal/store"

	_ "github.com/JonMunkholm/sheetsync/internal/core/tables"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeFetcher struct {
	mu       sync.Mutex
	datasets map[string]*core.Dataset // by sheet id
	errs     map[string]error
	requests []source.Request
	onFetch  func(req source.Request)
	block    chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, req source.Request) (*core.Dataset, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	hook := f.onFetch
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if hook != nil {
		hook(req)
	}
	if err, ok := f.errs[req.SheetID]; ok {
		return nil, err
	}
	ds, ok := f.datasets[req.SheetID]
	if !ok {
		return nil, core.Ef(core.ErrFetch, "fetch", "unexpected status %d", 404)
	}
	return ds.Clone(), nil
}

func (f *fakeFetcher) Requests() []source.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]source.Request(nil), f.requests...)
}

type loadCall struct {
	Table string
	Rows  int
}

type fakeStore struct {
	mu         sync.Mutex
	pingErr    error
	schemaErr  map[string]error
	loadErr    map[string]error
	partial    int64
	existing   map[string]int64
	schemas    map[string]core.ColumnTypeMap
	loads      []loadCall
	batchSizes []int
	pings      int
}

var _ store.Gateway = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		schemaErr: map[string]error{},
		loadErr:   map[string]error{},
		existing:  map[string]int64{},
		schemas:   map[string]core.ColumnTypeMap{},
	}
}

func (s *fakeStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pings++
	return s.pingErr
}

func (s *fakeStore) RecreateTable(ctx context.Context, table string, columns core.ColumnTypeMap) error {
	if err := ctx.Err(); err != nil {
		return core.E(core.ErrSchema, "recreate table", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.schemaErr[table]; err != nil {
		return core.E(core.ErrSchema, "recreate table", err)
	}
	s.schemas[table] = columns
	return nil
}

func (s *fakeStore) ReplaceAll(ctx context.Context, table string, ds *core.Dataset, batchSize int) (store.Counts, error) {
	if err := ctx.Err(); err != nil {
		return store.Counts{}, core.E(core.ErrTransaction, "delete rows", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchSizes = append(s.batchSizes, batchSize)
	counts := store.Counts{Deleted: s.existing[table]}
	if err := s.loadErr[table]; err != nil {
		counts.Inserted = s.partial
		return counts, core.E(core.ErrTransaction, fmt.Sprintf("insert batch 2/%d", 3), err)
	}
	counts.Inserted = int64(ds.Len())
	s.existing[table] = counts.Inserted
	s.loads = append(s.loads, loadCall{Table: table, Rows: ds.Len()})
	return counts, nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) Loads() []loadCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]loadCall(nil), s.loads...)
}

func broochesDataset(rows ...[]core.Value) *core.Dataset {
	ds := core.NewDataset([]string{"ID", "cardID", "スコア"})
	ds.Rows = append(ds.Rows, rows...)
	return ds
}

func cardsDataset(rows ...[]core.Value) *core.Dataset {
	ds := core.NewDataset([]string{"ID", "cardID", "rarity"})
	ds.Rows = append(ds.Rows, rows...)
	return ds
}

func songsDataset(rows ...[]core.Value) *core.Dataset {
	ds := core.NewDataset([]string{"ID", "ノーツ数", "Shout白"})
	ds.Rows = append(ds.Rows, rows...)
	return ds
}

func defaultSheets() []core.TableSheet {
	return []core.TableSheet{
		{Kind: "songs", SheetID: "s1"},
		{Kind: "cards", SheetID: "c1"},
		{Kind: "brooches", SheetID: "b1"},
	}
}

func defaultFetcher() *fakeFetcher {
	return &fakeFetcher{
		datasets: map[string]*core.Dataset{
			"s1": songsDataset(
				[]core.Value{core.Text("1"), core.Float(120), core.Null()},
				[]core.Value{core.Text("2"), core.Float(300), core.Float(5)},
			),
			"c1": cardsDataset(
				[]core.Value{core.Text("1"), core.Text("c1"), core.Text("UR")},
				[]core.Value{core.Text("2"), core.Text("c2"), core.Text("XR")},
				[]core.Value{core.Text("3"), core.Text("c3"), core.Text("SR")},
			),
			"b1": broochesDataset(
				[]core.Value{core.Text("1"), core.Text("c1"), core.Float(1.5)},
			),
		},
		errs: map[string]error{},
	}
}
