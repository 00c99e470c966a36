package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedScore struct {
	Score   float64 `json:"score"`
	Reports int     `json:"reports"`
}

func TestSetJSON(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := Wrap(db)

	mock.ExpectSet("k", []byte(`{"score":80,"reports":2}`), time.Minute).SetVal("OK")

	require.NoError(t, c.SetJSON(context.Background(), "k", cachedScore{Score: 80, Reports: 2}, time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJSON(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := Wrap(db)

	mock.ExpectGet("k").SetVal(`{"score":80,"reports":2}`)

	var got cachedScore
	require.NoError(t, c.GetJSON(context.Background(), "k", &got))
	assert.Equal(t, cachedScore{Score: 80, Reports: 2}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJSON_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectGet("k").RedisNil()

	var got cachedScore
	err := Wrap(db).GetJSON(context.Background(), "k", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGetJSON_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := Wrap(db)

	mock.ExpectGet("down").SetErr(errors.New("connection refused"))
	mock.ExpectGet("garbage").SetVal("{")

	var got cachedScore
	err := c.GetJSON(context.Background(), "down", &got)
	assert.EqualError(t, err, "connection refused")

	err = c.GetJSON(context.Background(), "garbage", &got)
	assert.ErrorContains(t, err, "unmarshal garbage")
}

func TestPing(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := Wrap(db)

	mock.ExpectPing().SetVal("PONG")

	require.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
