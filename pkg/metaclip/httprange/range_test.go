package httprange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFull(t *testing.T) {
	rng, err := Resolve("", 100)
	require.NoError(t, err)

	assert.Equal(t, int64(0), rng.Start)
	assert.Equal(t, int64(99), rng.End)
	assert.Equal(t, int64(100), rng.Length)
	assert.Equal(t, int64(100), rng.Total)
	assert.False(t, rng.Partial)
}

func TestResolveFullEmptyContent(t *testing.T) {
	rng, err := Resolve("", 0)
	require.NoError(t, err)

	assert.Equal(t, int64(0), rng.Length)
	assert.False(t, rng.Partial)
}

func TestResolvePartial(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		total     int64
		wantStart int64
		wantEnd   int64
		wantLen   int64
	}{
		{
			name:      "interior window",
			spec:      "bytes=10-19",
			total:     100,
			wantStart: 10,
			wantEnd:   19,
			wantLen:   10,
		},
		{
			name:      "single byte",
			spec:      "bytes=0-0",
			total:     100,
			wantStart: 0,
			wantEnd:   0,
			wantLen:   1,
		},
		{
			name:      "open ended",
			spec:      "bytes=40-",
			total:     100,
			wantStart: 40,
			wantEnd:   99,
			wantLen:   60,
		},
		{
			name:      "open ended from zero",
			spec:      "bytes=0-",
			total:     100,
			wantStart: 0,
			wantEnd:   99,
			wantLen:   100,
		},
		{
			name:      "end clamps to last byte",
			spec:      "bytes=90-500",
			total:     100,
			wantStart: 90,
			wantEnd:   99,
			wantLen:   10,
		},
		{
			name:      "last byte exactly",
			spec:      "bytes=99-99",
			total:     100,
			wantStart: 99,
			wantEnd:   99,
			wantLen:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := Resolve(tt.spec, tt.total)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStart, rng.Start)
			assert.Equal(t, tt.wantEnd, rng.End)
			assert.Equal(t, tt.wantLen, rng.Length)
			assert.Equal(t, tt.total, rng.Total)
			assert.True(t, rng.Partial)
		})
	}
}

func TestResolveInvalid(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"wrong unit", "chunks=0-10"},
		{"missing prefix", "0-10"},
		{"no dash", "bytes=10"},
		{"suffix form", "bytes=-10"},
		{"negative start", "bytes=-1-10"},
		{"garbage start", "bytes=abc-10"},
		{"garbage end", "bytes=0-xyz"},
		{"multi-range", "bytes=0-10,20-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.spec, 100)
			assert.ErrorIs(t, err, ErrInvalidRange)
		})
	}
}

func TestResolveNotSatisfiable(t *testing.T) {
	tests := []struct {
		name  string
		spec  string
		total int64
	}{
		{"start at total", "bytes=100-", 100},
		{"start beyond total", "bytes=200-300", 100},
		{"start after end", "bytes=20-10", 100},
		{"any range over empty content", "bytes=0-", 0},
		{"explicit range over empty content", "bytes=0-0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.spec, tt.total)
			assert.ErrorIs(t, err, ErrNotSatisfiable)
		})
	}
}

func TestContentRangeDescriptors(t *testing.T) {
	rng := Range{Start: 10, End: 19, Length: 10, Total: 100, Partial: true}
	assert.Equal(t, "bytes 10-19/100", rng.ContentRange())
	assert.Equal(t, "bytes */100", Unsatisfiable(100))
	assert.Equal(t, "bytes */0", Unsatisfiable(0))
}
