package crud

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend unavailable")

type item struct {
	ID       string
	Name     string
	Group    string
	Size     int
	Tags     []string
	Schedule map[string][]string
}

func (it item) Key() string { return it.ID }

func (it item) Clone() item {
	c := it
	c.Tags = CopyStrings(it.Tags)
	if it.Schedule != nil {
		c.Schedule = make(map[string][]string, len(it.Schedule))
		for k, v := range it.Schedule {
			c.Schedule[k] = CopyStrings(v)
		}
	}
	return c
}

func itemTemplate() item {
	return item{Tags: []string{}, Schedule: map[string][]string{"monday": {}}}
}

func setItemField(it *item, path, value string) error {
	switch path {
	case "name":
		it.Name = value
	case "group":
		it.Group = value
	case "size":
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
			return err
		}
		it.Size = n
	default:
		return errors.Errorf("unknown field %q", path)
	}
	return nil
}

// fakeAdapter is an in-memory authoritative source with switchable failures.
type fakeAdapter struct {
	mu      sync.Mutex
	seq     int
	items   map[string]item
	calls   []string
	failOn  map[string]bool
	listErr error
}

func newFakeAdapter(seed ...item) *fakeAdapter {
	a := &fakeAdapter{items: make(map[string]item), failOn: make(map[string]bool)}
	for _, it := range seed {
		a.seq++
		it.ID = fmt.Sprintf("id-%d", a.seq)
		a.items[it.ID] = it.Clone()
	}
	return a
}

func (a *fakeAdapter) record(call string) error {
	a.calls = append(a.calls, call)
	if a.failOn[call] {
		return errBackend
	}
	return nil
}

func (a *fakeAdapter) List(_ context.Context) ([]item, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record("list"); err != nil {
		return nil, err
	}
	out := make([]item, 0, len(a.items))
	for _, it := range a.items {
		out = append(out, it.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (a *fakeAdapter) Create(_ context.Context, draft item) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record("create"); err != nil {
		return "", err
	}
	a.seq++
	draft.ID = fmt.Sprintf("id-%d", a.seq)
	a.items[draft.ID] = draft.Clone()
	return draft.ID, nil
}

func (a *fakeAdapter) Update(_ context.Context, id string, draft item) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record("update"); err != nil {
		return err
	}
	if _, ok := a.items[id]; !ok {
		return errors.New("not found")
	}
	draft.ID = id
	a.items[id] = draft.Clone()
	return nil
}

func (a *fakeAdapter) Delete(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record("delete"); err != nil {
		return err
	}
	if _, ok := a.items[id]; !ok {
		return errors.New("not found")
	}
	delete(a.items, id)
	return nil
}

func newLoadedStore(t *testing.T, seed ...item) (*Store[item], *fakeAdapter) {
	t.Helper()
	adapter := newFakeAdapter(seed...)
	store := NewStore[item](adapter)
	require.NoError(t, store.Refresh(context.Background()))
	adapter.calls = nil
	return store, adapter
}

func TestNewStore_NilAdapter(t *testing.T) {
	assert.Panics(t, func() { NewStore[item](nil) })
}

func TestStore_Refresh(t *testing.T) {
	ctx := context.Background()
	adapter := newFakeAdapter(item{Name: "a"}, item{Name: "b"})
	store := NewStore[item](adapter)

	assert.False(t, store.Loaded())
	assert.Equal(t, 0, store.Len())

	require.NoError(t, store.Refresh(ctx))
	assert.True(t, store.Loaded())
	assert.False(t, store.Loading())
	assert.NoError(t, store.Err())
	assert.Equal(t, 2, store.Len())

	t.Run("failed refresh keeps the previous snapshot", func(t *testing.T) {
		before := store.Items()
		adapter.failOn["list"] = true
		err := store.Refresh(ctx)

		var rerr *RefreshError
		require.True(t, errors.As(err, &rerr))
		assert.True(t, errors.Is(err, errBackend))
		assert.Equal(t, err, store.Err())
		assert.Equal(t, before, store.Items())
		assert.False(t, store.Loading())

		adapter.failOn["list"] = false
		require.NoError(t, store.Refresh(ctx))
		assert.NoError(t, store.Err())
	})
}

func TestStore_Mutations(t *testing.T) {
	ctx := context.Background()

	t.Run("create assigns id and refetches", func(t *testing.T) {
		store, adapter := newLoadedStore(t, item{Name: "a"})

		id, err := store.Create(ctx, item{Name: "b"})
		require.NoError(t, err)
		assert.Equal(t, "id-2", id)
		assert.Equal(t, []string{"create", "list"}, adapter.calls)

		got, ok := store.Find(id)
		require.True(t, ok)
		assert.Equal(t, "b", got.Name)
		assert.Equal(t, 2, store.Len())
	})

	t.Run("update refetches", func(t *testing.T) {
		store, adapter := newLoadedStore(t, item{Name: "a"})

		require.NoError(t, store.Update(ctx, "id-1", item{Name: "renamed"}))
		assert.Equal(t, []string{"update", "list"}, adapter.calls)

		got, _ := store.Find("id-1")
		assert.Equal(t, "renamed", got.Name)
	})

	t.Run("delete refetches", func(t *testing.T) {
		store, adapter := newLoadedStore(t, item{Name: "a"}, item{Name: "b"})

		require.NoError(t, store.Delete(ctx, "id-1"))
		assert.Equal(t, []string{"delete", "list"}, adapter.calls)

		_, ok := store.Find("id-1")
		assert.False(t, ok)
		assert.Equal(t, 1, store.Len())
	})

	for _, op := range []string{"create", "update", "delete"} {
		t.Run(op+" failure leaves the snapshot untouched", func(t *testing.T) {
			store, adapter := newLoadedStore(t, item{Name: "a"})
			before := store.Items()
			adapter.failOn[op] = true

			var err error
			switch op {
			case "create":
				_, err = store.Create(ctx, item{Name: "b"})
			case "update":
				err = store.Update(ctx, "id-1", item{Name: "b"})
			case "delete":
				err = store.Delete(ctx, "id-1")
			}

			assert.True(t, errors.Is(err, errBackend))
			assert.Equal(t, []string{op}, adapter.calls, "no refetch after a failed mutation")
			assert.Equal(t, before, store.Items())
			assert.NoError(t, store.Err())
		})
	}

	t.Run("refetch failure after a successful mutation", func(t *testing.T) {
		store, adapter := newLoadedStore(t, item{Name: "a"})
		adapter.failOn["list"] = true

		id, err := store.Create(ctx, item{Name: "b"})
		var rerr *RefreshError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, "id-2", id)
		assert.Equal(t, 1, store.Len(), "stale but intact")
	})
}

func TestStore_ItemsAreCopies(t *testing.T) {
	store, _ := newLoadedStore(t, item{Name: "a", Tags: []string{"x"}, Schedule: map[string][]string{"monday": {"09:00-10:00"}}})

	items := store.Items()
	items[0].Tags[0] = "changed"
	items[0].Schedule["monday"] = nil

	got, _ := store.Find("id-1")
	assert.Equal(t, []string{"x"}, got.Tags)
	assert.Equal(t, []string{"09:00-10:00"}, got.Schedule["monday"])
}

func TestStore_Filter(t *testing.T) {
	store, _ := newLoadedStore(t, item{Name: "a", Size: 10}, item{Name: "b", Size: 40}, item{Name: "c", Size: 50})

	big := store.Filter(func(it item) bool { return it.Size >= 40 })
	assert.Len(t, big, 2)
	assert.Empty(t, store.Filter(func(it item) bool { return it.Size > 100 }))
}

func TestFromService(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{adapter: newFakeAdapter()}
	store := NewStore[item](FromService[item](svc))

	id, err := store.Create(ctx, item{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)

	require.NoError(t, store.Update(ctx, id, item{Name: "b"}))
	got, _ := store.Find(id)
	assert.Equal(t, "b", got.Name)

	require.NoError(t, store.Delete(ctx, id))
	assert.Equal(t, 0, store.Len())
}

type fakeService struct {
	adapter *fakeAdapter
}

func (s *fakeService) List(ctx context.Context) ([]item, error) { return s.adapter.List(ctx) }

func (s *fakeService) Create(ctx context.Context, draft item) (item, error) {
	id, err := s.adapter.Create(ctx, draft)
	draft.ID = id
	return draft, err
}

func (s *fakeService) Update(ctx context.Context, id string, draft item) (item, error) {
	draft.ID = id
	return draft, s.adapter.Update(ctx, id, draft)
}

func (s *fakeService) Delete(ctx context.Context, id string) error { return s.adapter.Delete(ctx, id) }

// valueAdapter is an Adapter implemented on a value receiver.
type valueAdapter struct {
	*fakeAdapter
}

func TestNewStore_AdapterKinds(t *testing.T) {
	t.Run("value adapter", func(t *testing.T) {
		var store *Store[item]
		require.NotPanics(t, func() { store = NewStore[item](valueAdapter{newFakeAdapter(item{Name: "a"})}) })
		require.NoError(t, store.Refresh(context.Background()))
		assert.Equal(t, 1, store.Len())
	})

	t.Run("service adapter", func(t *testing.T) {
		assert.NotPanics(t, func() { NewStore[item](FromService[item](&fakeService{adapter: newFakeAdapter()})) })
	})

	t.Run("typed nil adapter", func(t *testing.T) {
		assert.Panics(t, func() { NewStore[item]((*fakeAdapter)(nil)) })
	})
}

// watchedAdapter samples store.Loading() from another goroutine between a mutation and the
// List that follows it.
type watchedAdapter struct {
	*fakeAdapter
	store   *Store[item]
	stop    chan struct{}
	done    chan struct{}
	dropped bool
}

func (a *watchedAdapter) Create(ctx context.Context, draft item) (string, error) {
	a.stop, a.done = make(chan struct{}), make(chan struct{})
	go func() {
		defer close(a.done)
		for {
			select {
			case <-a.stop:
				return
			default:
				if !a.store.Loading() {
					a.dropped = true
				}
			}
		}
	}()
	id, err := a.fakeAdapter.Create(ctx, draft)
	if err != nil {
		a.halt()
	}
	return id, err
}

func (a *watchedAdapter) halt() {
	if a.stop != nil {
		close(a.stop)
		<-a.done
		a.stop = nil
	}
}

func (a *watchedAdapter) List(ctx context.Context) ([]item, error) {
	a.halt()
	return a.fakeAdapter.List(ctx)
}

func TestStore_LoadingHeldThroughRefresh(t *testing.T) {
	ctx := context.Background()
	adapter := &watchedAdapter{fakeAdapter: newFakeAdapter()}
	store := NewStore[item](adapter)
	adapter.store = store

	for i := 0; i < 50; i++ {
		_, err := store.Create(ctx, item{Name: fmt.Sprintf("n%d", i)})
		require.NoError(t, err)
		assert.False(t, store.Loading())
	}
	assert.False(t, adapter.dropped, "loading must stay set until the refresh completes")
	assert.Equal(t, 50, store.Len())

	adapter.failOn["create"] = true
	_, err := store.Create(ctx, item{Name: "x"})
	require.Error(t, err)
	assert.False(t, store.Loading())
}
