// internal/common/database/redis_test.go
package database

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisClient_GetSetDel(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{Client: db}
	ctx := context.Background()

	mock.ExpectSet("catalog:active", []byte(`[]`), 5*time.Minute).SetVal("OK")
	assert.NoError(t, client.Set(ctx, "catalog:active", []byte(`[]`), 5*time.Minute))

	mock.ExpectGet("catalog:active").SetVal(`[]`)
	got, err := client.Get(ctx, "catalog:active")
	assert.NoError(t, err)
	assert.Equal(t, `[]`, got)

	mock.ExpectDel("catalog:active").SetVal(1)
	assert.NoError(t, client.Del(ctx, "catalog:active"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClient_GetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{Client: db}

	mock.ExpectGet("missing").RedisNil()

	_, err := client.Get(context.Background(), "missing")
	assert.Error(t, err)
}
