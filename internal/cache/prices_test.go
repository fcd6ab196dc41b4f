package cache

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Allocator/internal/model"
)

type countingFetcher struct {
	points []model.PricePoint
	err    error
	calls  int
}

func (f *countingFetcher) FetchDaily(context.Context, string, time.Time, time.Time) ([]model.PricePoint, error) {
	f.calls++
	return f.points, f.err
}

var (
	start = time.Date(2018, 3, 25, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	key   = "prices:CCJ:2018-03-25:2024-04-01"
)

func samplePoints() []model.PricePoint {
	return []model.PricePoint{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 39.9},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Close: math.NaN()},
	}
}

const sampleJSON = `[{"d":"2024-01-02","c":39.9},{"d":"2024-01-03","c":null}]`

func TestKey(t *testing.T) {
	assert.Equal(t, key, Key("CCJ", start, end))
}

func TestFetchDaily_Hit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	fetcher := &countingFetcher{}

	mock.ExpectGet(key).SetVal(sampleJSON)

	points, err := NewPriceCache(db, fetcher, time.Hour).FetchDaily(context.Background(), "CCJ", start, end)
	require.NoError(t, err)
	assert.Equal(t, 0, fetcher.calls)
	require.Len(t, points, 2)
	assert.Equal(t, 39.9, points[0].Close)
	assert.True(t, math.IsNaN(points[1].Close))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchDaily_MissStoresResult(t *testing.T) {
	db, mock := redismock.NewClientMock()
	fetcher := &countingFetcher{points: samplePoints()}

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, sampleJSON, time.Hour).SetVal("OK")

	points, err := NewPriceCache(db, fetcher, time.Hour).FetchDaily(context.Background(), "CCJ", start, end)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
	assert.Len(t, points, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchDaily_RedisFailuresFallThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	fetcher := &countingFetcher{points: samplePoints()}

	mock.ExpectGet(key).SetErr(redis.TxFailedErr)
	mock.ExpectSet(key, sampleJSON, time.Hour).SetErr(errors.New("readonly replica"))

	points, err := NewPriceCache(db, fetcher, time.Hour).FetchDaily(context.Background(), "CCJ", start, end)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
	assert.Len(t, points, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchDaily_FetchErrorNotCached(t *testing.T) {
	db, mock := redismock.NewClientMock()
	boom := errors.New("upstream down")

	mock.ExpectGet(key).RedisNil()

	_, err := NewPriceCache(db, &countingFetcher{err: boom}, time.Hour).FetchDaily(context.Background(), "CCJ", start, end)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchDaily_CorruptEntryRefetched(t *testing.T) {
	db, mock := redismock.NewClientMock()
	fetcher := &countingFetcher{points: samplePoints()}

	mock.ExpectGet(key).SetVal("not json")
	mock.ExpectSet(key, sampleJSON, 0).SetVal("OK")

	_, err := NewPriceCache(db, fetcher, 0).FetchDaily(context.Background(), "CCJ", start, end)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
