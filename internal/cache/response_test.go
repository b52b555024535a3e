package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseKey(t *testing.T) {
	base := ResponseKey("lokingai:resp:", "POST", "/text/summarizer", "", []byte(`{"text":"a"}`))

	assert.True(t, strings.HasPrefix(base, "lokingai:resp:"))
	assert.Len(t, strings.TrimPrefix(base, "lokingai:resp:"), 32)
	assert.Equal(t, base, ResponseKey("lokingai:resp:", "POST", "/text/summarizer", "", []byte(`{"text":"a"}`)))

	variants := []string{
		ResponseKey("lokingai:resp:", "GET", "/text/summarizer", "", []byte(`{"text":"a"}`)),
		ResponseKey("lokingai:resp:", "POST", "/text/classifier", "", []byte(`{"text":"a"}`)),
		ResponseKey("lokingai:resp:", "POST", "/text/summarizer", "x=1", []byte(`{"text":"a"}`)),
		ResponseKey("lokingai:resp:", "POST", "/text/summarizer", "", []byte(`{"text":"b"}`)),
	}
	for _, v := range variants {
		assert.NotEqual(t, base, v)
	}

	// 分隔符避免路径与查询拼接后碰撞
	assert.NotEqual(t,
		ResponseKey("p:", "GET", "/a", "b", nil),
		ResponseKey("p:", "GET", "/ab", "", nil))
}

func TestManager_ResponseRoundTrip(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	key := ResponseKey("lokingai:resp:", "GET", "/text/", "", nil)
	_, err := manager.GetResponse(ctx, key)
	assert.True(t, IsCacheMiss(err))

	want := &CachedResponse{Status: 200, ContentType: "application/json", Body: []byte(`{"error":null,"data":{"app":"text"}}`)}
	require.NoError(t, manager.SetResponse(ctx, key, want, 30*time.Second))

	got, err := manager.GetResponse(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 30*time.Second, mr.TTL(key))
}
