package xconf

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redisYAML = `
redis:
  addr: redis.internal:6379
  db: 2
  dial_timeout: 3s
`

const redisJSON = `{"redis": {"addr": "redis.internal:6379", "db": 2, "dial_timeout": "3s"}}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		format  Format
	}{
		{"yaml", "xshield.yaml", redisYAML, FormatYAML},
		{"yml", "xshield.YML", redisYAML, FormatYAML},
		{"json", "xshield.json", redisJSON, FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			cfg, err := New(path)
			require.NoError(t, err)
			assert.Equal(t, path, cfg.Path())
			assert.Equal(t, tt.format, cfg.Format())
			assert.Equal(t, "redis.internal:6379", cfg.Client().String("redis.addr"))

			var r RedisSettings
			require.NoError(t, cfg.Unmarshal("redis", &r))
			assert.Equal(t, 2, r.DB)
			assert.Equal(t, 3*time.Second, r.DialTimeout)
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrLoadFailed)

	_, err = New(writeFile(t, "xshield.toml", "a = 1"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = New(writeFile(t, "bad.yaml", "redis: [unclosed"))
	assert.ErrorIs(t, err, ErrParseFailed)

	_, err = New(writeFile(t, "bad.json", "{"))
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestNew_EmptyFile(t *testing.T) {
	cfg, err := New(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Empty(t, cfg.Client().Keys())
}

func TestNewFromBytes(t *testing.T) {
	cfg, err := NewFromBytes([]byte(redisJSON), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, cfg.Path())
	assert.Equal(t, 2, cfg.Client().Int("redis.db"))
	assert.ErrorIs(t, cfg.Reload(), ErrNotReloadable)

	empty, err := NewFromBytes(nil, FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, empty.Client().Keys())

	_, err = NewFromBytes([]byte(redisYAML), "toml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOptions(t *testing.T) {
	cfg, err := NewFromBytes([]byte(redisYAML), FormatYAML, WithDelim("/"), WithTag("koanf"), nil)
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", cfg.Client().String("redis/addr"))
	assert.Empty(t, cfg.Client().String("redis.addr"))
}

func TestUnmarshal_Error(t *testing.T) {
	cfg, err := NewFromBytes([]byte("redis:\n  db: not-a-number\n"), FormatYAML)
	require.NoError(t, err)

	var r RedisSettings
	assert.ErrorIs(t, cfg.Unmarshal("redis", &r), ErrUnmarshalFailed)
}

func TestReload(t *testing.T) {
	path := writeFile(t, "xshield.yaml", redisYAML)
	cfg, err := New(path)
	require.NoError(t, err)
	old := cfg.Client()

	require.NoError(t, os.WriteFile(path, []byte("redis:\n  addr: other:6380\n"), 0o600))
	require.NoError(t, cfg.Reload())
	assert.Equal(t, "other:6380", cfg.Client().String("redis.addr"))
	assert.Equal(t, "redis.internal:6379", old.String("redis.addr"), "old snapshot is unchanged")

	// 解析失败保留旧配置
	require.NoError(t, os.WriteFile(path, []byte("redis: [broken"), 0o600))
	assert.ErrorIs(t, cfg.Reload(), ErrParseFailed)
	assert.Equal(t, "other:6380", cfg.Client().String("redis.addr"))

	require.NoError(t, os.Remove(path))
	assert.ErrorIs(t, cfg.Reload(), ErrLoadFailed)
}

func TestReload_ConcurrentReaders(t *testing.T) {
	path := writeFile(t, "xshield.yaml", redisYAML)
	cfg, err := New(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 50 {
				var r RedisSettings
				assert.NoError(t, cfg.Unmarshal("redis", &r))
				assert.Equal(t, "redis.internal:6379", r.Addr)
			}
		})
	}
	for range 20 {
		assert.NoError(t, cfg.Reload())
	}
	wg.Wait()
}

func TestDetectFormat(t *testing.T) {
	for path, want := range map[string]Format{
		"a.yaml": FormatYAML, "a.yml": FormatYAML, "A.JSON": FormatJSON,
	} {
		got, err := detectFormat(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got)
	}
	_, err := detectFormat("a")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
