package progress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/backend"
	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "progress.db"))
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()

	ctx := context.Background()
	key := Key{UserID: "u-1", StageID: 1, ExerciseID: 1}

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, practice.ProgressRecord{UserID: "u-1", StageID: 1, ExerciseID: 1, CurrentItemID: 3}))
	rec, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, rec.CurrentItemID)
	require.False(t, rec.Completed)
	require.Nil(t, rec.CompletedAt)

	require.NoError(t, store.Set(ctx, practice.ProgressRecord{UserID: "u-1", StageID: 1, ExerciseID: 1, CurrentItemID: 15, Completed: true}))
	rec, _, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, 15, rec.CurrentItemID)
	require.True(t, rec.Completed)
	require.NotNil(t, rec.CompletedAt)

	require.NoError(t, store.Set(ctx, practice.ResetRecord("u-1", 1, 1)))
	rec, _, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, 1, rec.CurrentItemID)
	require.False(t, rec.Completed)
	require.Nil(t, rec.CompletedAt)

	other, ok, err := store.Get(ctx, Key{UserID: "u-1", StageID: 1, ExerciseID: 3})
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, other)

	require.NoError(t, store.Init(ctx, "u-1"))
	require.NoError(t, store.Init(ctx, "u-1"))
	require.NoError(t, store.Ping(ctx))
}

func TestHTTPStore(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["path"] = r.URL.Path
		mu.Lock()
		requests = append(requests, body)
		mu.Unlock()

		switch {
		case r.URL.Path == initializePath:
			_, _ = w.Write([]byte(`{"success":true}`))
		case body["topic_id"] != nil:
			_, _ = w.Write([]byte(`{"success":true,"message":"updated"}`))
		case body["exercise_id"] == 3.0:
			_, _ = w.Write([]byte(`{"success":true,"data":{"success":true,"current_topic_id":1,"is_new_exercise":true}}`))
		default:
			_, _ = w.Write([]byte(`{"success":true,"data":{"success":true,"current_topic_id":4,"is_completed":true,"exercise_data":{"completed_at":"2026-03-01T10:00:00Z"}}}`))
		}
	}))
	defer srv.Close()

	store := HTTPStore{Client: backend.New(srv.URL)}
	ctx := context.Background()

	require.NoError(t, store.Init(ctx, "u-9"))

	rec, ok, err := store.Get(ctx, Key{UserID: "u-9", StageID: 4, ExerciseID: 1})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 4, rec.CurrentItemID)
	require.True(t, rec.Completed)
	require.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), rec.CompletedAt.UTC())

	_, ok, err = store.Get(ctx, Key{UserID: "u-9", StageID: 1, ExerciseID: 3})
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, practice.ProgressRecord{UserID: "u-9", StageID: 1, ExerciseID: 1, CurrentItemID: 2}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, requests, 4)
	require.Equal(t, initializePath, requests[0]["path"])
	require.Equal(t, "u-9", requests[0]["user_id"])
	require.Equal(t, currentPath, requests[3]["path"])
	require.Equal(t, 2.0, requests[3]["topic_id"])
	require.Equal(t, false, requests[3]["is_completed"])
}

func TestHTTPStoreFailuresWrapProgressSync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == initializePath {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error":"user not found"}`))
	}))
	defer srv.Close()

	store := HTTPStore{Client: backend.New(srv.URL)}
	ctx := context.Background()

	require.ErrorIs(t, store.Init(ctx, "u-1"), practice.ErrProgressSync)

	_, _, err := store.Get(ctx, Key{UserID: "u-1", StageID: 1, ExerciseID: 1})
	require.ErrorIs(t, err, practice.ErrProgressSync)
	require.ErrorContains(t, err, "user not found")

	err = store.Set(ctx, practice.ResetRecord("u-1", 1, 1))
	require.ErrorIs(t, err, practice.ErrProgressSync)
}

type blockingStore struct {
	*MemoryStore
	calls   atomic.Int32
	release chan struct{}
	fail    atomic.Bool
}

func (b *blockingStore) Init(ctx context.Context, userID string) error {
	b.calls.Add(1)
	<-b.release
	if b.fail.Load() {
		return errors.New("backend unavailable")
	}
	return b.MemoryStore.Init(ctx, userID)
}

func TestInitializerSharesInFlightCall(t *testing.T) {
	store := &blockingStore{MemoryStore: NewMemoryStore(), release: make(chan struct{})}
	initializer := NewInitializer(store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, initializer.Ensure(context.Background(), "u-1"))
		}()
	}
	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(store.release)
	wg.Wait()

	require.NoError(t, initializer.Ensure(context.Background(), "u-1"))
	require.Equal(t, int32(1), store.calls.Load())
	require.Equal(t, 1, store.Inits("u-1"))
}

func TestInitializerRetriesAfterFailure(t *testing.T) {
	store := &blockingStore{MemoryStore: NewMemoryStore(), release: make(chan struct{})}
	close(store.release)
	store.fail.Store(true)
	initializer := NewInitializer(store, nil)

	require.Error(t, initializer.Ensure(context.Background(), "u-2"))
	store.fail.Store(false)
	require.NoError(t, initializer.Ensure(context.Background(), "u-2"))
	require.Equal(t, int32(2), store.calls.Load())

	require.NoError(t, initializer.Ensure(context.Background(), ""))
}
