// Package storetest holds behaviour tests shared by every store.Store driver.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/confessional/internal/model"
	"github.com/alphabot-ai/confessional/internal/store"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, st store.Store)
	}{
		{"NewestFirst", testNewestFirst},
		{"CategoryFilter", testCategoryFilter},
		{"DuplicateID", testDuplicateID},
		{"ImageRoundTrip", testImageRoundTrip},
		{"LikeUnlike", testLikeUnlike},
		{"UnknownID", testUnknownID},
		{"DeletePurges", testDeletePurges},
		{"Reports", testReports},
		{"Counts", testCounts},
		{"Sessions", testSessions},
		{"ConcurrentLikes", testConcurrentLikes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newStore(t)
			t.Cleanup(func() { _ = st.Close() })
			tt.fn(t, st)
		})
	}
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func message(id int64, category model.Category) model.Message {
	return model.Message{
		ID:          id,
		Text:        fmt.Sprintf("message %d", id),
		Category:    category,
		Timestamp:   base.Add(time.Duration(id) * time.Second),
		DisplayName: "Anonymous",
		Avatar:      "👤",
	}
}

func insert(t *testing.T, st store.Store, msgs ...model.Message) {
	t.Helper()
	for _, m := range msgs {
		require.NoError(t, st.InsertMessage(context.Background(), m))
	}
}

func ids(msgs []model.Message) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func testNewestFirst(t *testing.T, st store.Store) {
	ctx := context.Background()
	insert(t, st, message(1, "thoughts"), message(2, "knowledge"), message(3, "thoughts"))

	all, err := st.ListMessages(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, ids(all))

	alias, err := st.ListMessages(ctx, model.CategoryAll)
	require.NoError(t, err)
	assert.Equal(t, ids(all), ids(alias))

	got, err := st.GetMessage(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "message 2", got.Text)
	assert.Equal(t, model.Category("knowledge"), got.Category)
	assert.True(t, got.Timestamp.Equal(base.Add(2*time.Second)))
	assert.Nil(t, got.Image)
	assert.Equal(t, "Anonymous", got.DisplayName)
}

func testCategoryFilter(t *testing.T, st store.Store) {
	insert(t, st, message(1, "thoughts"), message(2, "knowledge"), message(3, "thoughts"), message(4, "confessions"))

	got, err := st.ListMessages(context.Background(), "thoughts")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids(got))

	none, err := st.ListMessages(context.Background(), "inspiration")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testDuplicateID(t *testing.T, st store.Store) {
	insert(t, st, message(1, "thoughts"))
	err := st.InsertMessage(context.Background(), message(1, "knowledge"))
	assert.ErrorIs(t, err, store.ErrDuplicateID)
}

func testImageRoundTrip(t *testing.T, st store.Store) {
	m := message(1, "thoughts")
	ref := "data:image/png;base64,AAAA"
	m.Image = &ref
	insert(t, st, m)

	got, err := st.GetMessage(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got.Image)
	assert.Equal(t, ref, *got.Image)
}

func testLikeUnlike(t *testing.T, st store.Store) {
	ctx := context.Background()
	insert(t, st, message(1, "thoughts"))

	n, err := st.Unlike(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = st.Like(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = st.Like(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := st.GetMessage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Likes)

	n, err = st.Unlike(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := st.ListMessages(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, list[0].Likes)
}

func testUnknownID(t *testing.T, st store.Store) {
	ctx := context.Background()
	_, err := st.GetMessage(ctx, 42)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Like(ctx, 42)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Unlike(ctx, 42)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.AddReport(ctx, 42, model.Report{Reason: "spam", Timestamp: base})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, st.DeleteMessage(ctx, 42), store.ErrNotFound)
}

func testDeletePurges(t *testing.T, st store.Store) {
	ctx := context.Background()
	insert(t, st, message(1, "thoughts"), message(2, "thoughts"))
	_, err := st.Like(ctx, 1)
	require.NoError(t, err)
	_, err = st.AddReport(ctx, 1, model.Report{Reason: "spam", Timestamp: base})
	require.NoError(t, err)

	require.NoError(t, st.DeleteMessage(ctx, 1))
	assert.ErrorIs(t, st.DeleteMessage(ctx, 1), store.ErrNotFound)

	list, err := st.ListMessages(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(list))

	_, err = st.Like(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	reported, err := st.ListReported(ctx)
	require.NoError(t, err)
	assert.Empty(t, reported)
}

func testReports(t *testing.T, st store.Store) {
	ctx := context.Background()
	insert(t, st, message(1, "thoughts"), message(2, "knowledge"), message(3, "thoughts"))

	n, err := st.AddReport(ctx, 1, model.Report{Reason: "spam", Timestamp: base})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = st.AddReport(ctx, 1, model.Report{Reason: "rude", Timestamp: base.Add(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = st.AddReport(ctx, 3, model.Report{Reason: "off topic", Timestamp: base})
	require.NoError(t, err)

	reported, err := st.ListReported(ctx)
	require.NoError(t, err)
	require.Len(t, reported, 2)
	assert.Equal(t, int64(3), reported[0].ID)
	assert.Equal(t, int64(1), reported[1].ID)
	require.Len(t, reported[1].Reports, 2)
	assert.Equal(t, "spam", reported[1].Reports[0].Reason)
	assert.Equal(t, "rude", reported[1].Reports[1].Reason)
	assert.True(t, reported[1].Reports[1].Timestamp.Equal(base.Add(time.Minute)))
}

func testCounts(t *testing.T, st store.Store) {
	counts, err := st.CountsByCategory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, counts[model.CategoryAll])

	insert(t, st, message(1, "thoughts"), message(2, "knowledge"), message(3, "thoughts"))
	counts, err = st.CountsByCategory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[model.CategoryAll])
	assert.Equal(t, 2, counts["thoughts"])
	assert.Equal(t, 1, counts["knowledge"])
	assert.Equal(t, 0, counts["confessions"])
}

func testSessions(t *testing.T, st store.Store) {
	ctx := context.Background()
	ok, err := st.SessionExists(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.CreateSession(ctx, "abc"))
	require.NoError(t, st.CreateSession(ctx, "def"))
	ok, err = st.SessionExists(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := st.CountSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, st.DeleteSession(ctx, "abc"))
	require.NoError(t, st.DeleteSession(ctx, "abc"))
	ok, err = st.SessionExists(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testConcurrentLikes(t *testing.T, st store.Store) {
	ctx := context.Background()
	insert(t, st, message(1, "thoughts"))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = st.Like(ctx, 1)
		}()
	}
	wg.Wait()

	got, err := st.GetMessage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, workers, got.Likes)
}
