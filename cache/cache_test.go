package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"companyresolver/config"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryClient struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryClient() *memoryClient {
	return &memoryClient{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryClient) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryClient) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	m.data[key] = string(value.([]byte))
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

type profile struct {
	URL string `json:"url"`
}

func TestMemoizeStoresAndReuses(t *testing.T) {
	client := newMemoryClient()
	calls := 0
	fn := func() (profile, error) {
		calls++
		return profile{URL: "https://www.linkedin.com/company/acme/"}, nil
	}

	first, err := Memoize(context.Background(), client, "k", time.Hour, fn)
	require.NoError(t, err)
	second, err := Memoize(context.Background(), client, "k", time.Hour, fn)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, time.Hour, client.ttls["k"])
}

func TestMemoizeSkipsFailures(t *testing.T) {
	client := newMemoryClient()
	_, err := Memoize(context.Background(), client, "k", time.Hour, func() (profile, error) {
		return profile{}, errors.New("boom")
	})
	require.Error(t, err)
	assert.Empty(t, client.data)
}

func TestMemoizeIgnoresCorruptEntries(t *testing.T) {
	client := newMemoryClient()
	client.data["k"] = "{not json"
	got, err := Memoize(context.Background(), client, "k", time.Minute, func() (profile, error) {
		return profile{URL: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.URL)
}

func TestMemoizeWithoutClient(t *testing.T) {
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := Memoize(context.Background(), nil, "k", time.Minute, func() (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	assert.Nil(t, NewClient(config.Redis{}))
	assert.NotNil(t, NewClient(config.Redis{Addr: "localhost:6379"}))
}
