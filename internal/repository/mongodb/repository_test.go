package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func decodeEvent(t *testing.T, doc bson.M) changeEvent {
	t.Helper()
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var event changeEvent
	require.NoError(t, bson.Unmarshal(raw, &event))
	return event
}

func TestFromSelf(t *testing.T) {
	r := &MongoDBRepository{writer: "w-1"}

	own := decodeEvent(t, bson.M{
		"operationType": "replace",
		"fullDocument":  bson.M{"_id": "inventoryCounts", "value": []byte(`[]`), "writer": "w-1"},
	})
	assert.True(t, r.fromSelf(own))

	other := decodeEvent(t, bson.M{
		"operationType": "replace",
		"fullDocument":  bson.M{"_id": "inventoryCounts", "value": []byte(`[]`), "writer": "w-2"},
	})
	assert.False(t, r.fromSelf(other))

	legacy := decodeEvent(t, bson.M{
		"operationType": "insert",
		"fullDocument":  bson.M{"_id": "inventoryCounts", "value": []byte(`[]`)},
	})
	assert.False(t, r.fromSelf(legacy), "documents without a writer come from elsewhere")

	deleted := decodeEvent(t, bson.M{"operationType": "delete"})
	assert.Nil(t, deleted.FullDocument)
	assert.False(t, r.fromSelf(deleted))
}

// Needs a replica set, e.g. MONGODB_TEST_URI=mongodb://localhost:27017/?replicaSet=rs0
func TestWatchSkipsOwnWrites(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := "tracklog_test_" + uuid.NewString()[:8]
	watcher, err := NewMongoDBRepository(ctx, uri, db, "", zap.NewNop())
	require.NoError(t, err)
	other, err := NewMongoDBRepository(ctx, uri, db, "", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = watcher.client.Database(db).Drop(context.Background())
		_ = watcher.Close(context.Background())
		_ = other.Close(context.Background())
	})

	changes, err := watcher.Watch(ctx, "inventoryCounts")
	require.NoError(t, err)

	require.NoError(t, watcher.Put(ctx, "inventoryCounts", []byte(`[]`)))
	select {
	case <-changes:
		t.Fatal("own write reported as external")
	case <-time.After(time.Second):
	}

	require.NoError(t, other.Put(ctx, "inventoryCounts", []byte(`[{"Timestamp":1}]`)))
	select {
	case <-changes:
	case <-time.After(10 * time.Second):
		t.Fatal("write from another process not reported")
	}
}
