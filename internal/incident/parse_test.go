package incident

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want Category
	}{
		{"2", CategoryFire},
		{" 5", CategoryDebrisFlow},
		{"3级", CategoryTyphoon},
		{"+1", CategoryFlood},
		{"-4", Category(-4)},
		{"42", Category(42)},
		{"", CategoryEarthquake},
		{"fire", CategoryEarthquake},
		{"99999999999", CategoryEarthquake},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCategory(tt.raw))
		})
	}
}

func TestCategoryLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "地震", CategoryEarthquake.Label())
	assert.Equal(t, "火灾", CategoryFire.Label())
	assert.Equal(t, "其他", CategoryOther.Label())
	assert.Equal(t, UnknownCategoryLabel, Category(42).Label())
	assert.False(t, Category(-1).Known())
	assert.Equal(t, "2024-05-01 上海市火灾", EventName("2024-05-01", "上海市", CategoryFire))
	assert.Equal(t, "2024-05-01 上海市未知灾情", EventName("2024-05-01", "上海市", Category(42)))
}

func TestParseCoordinate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want any
	}{
		{"121.47", 121.47},
		{" -31.5", -31.5},
		{"121.47E", 121.47},
		{".5", 0.5},
		{"1e2", 100.0},
		{"0", nil},
		{"0.000", nil},
		{"", nil},
		{"abc", nil},
		{"NaN", nil},
		{"Infinity", nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseCoordinate(tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 1e-9)
		})
	}
}

func TestParseObservedTime(t *testing.T) {
	t.Parallel()

	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, shanghai)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", "2024-05-01T08:30:00+08:00", time.Date(2024, 5, 1, 8, 30, 0, 0, shanghai)},
		{"rfc3339 utc", "2024-04-30T20:00:00Z", time.Date(2024, 5, 1, 4, 0, 0, 0, shanghai)},
		{"local datetime", "2024-05-01 09:15:00", time.Date(2024, 5, 1, 9, 15, 0, 0, shanghai)},
		{"local t-separated", "2024-05-01T09:15", time.Date(2024, 5, 1, 9, 15, 0, 0, shanghai)},
		{"date only", "2024-04-30", time.Date(2024, 4, 30, 0, 0, 0, 0, shanghai)},
		{"unix millis", "1714521600000", time.UnixMilli(1714521600000)},
		{"future", "2024-05-02T00:00:00+08:00", now},
		{"garbage", "yesterday", now},
		{"empty", "", now},
		{"epoch", "1970-01-01T00:00:00Z", now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseObservedTime(tt.raw, now, shanghai)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestDayOf(t *testing.T) {
	t.Parallel()

	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	// 16:30 UTC is 00:30 the next day in Shanghai
	assert.Equal(t, "2024-05-02", DayOf(time.Date(2024, 5, 1, 16, 30, 0, 0, time.UTC), shanghai))
	assert.Equal(t, "2024-05-01", DayOf(time.Date(2024, 5, 1, 15, 59, 0, 0, time.UTC), shanghai))
}

func TestPaging(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, maxPage(0, 10))
	assert.Equal(t, 1, maxPage(1, 10))
	assert.Equal(t, 1, maxPage(10, 10))
	assert.Equal(t, 3, maxPage(23, 10))
	assert.Equal(t, 0, pageOffset(-3, 10))
	assert.Equal(t, 40, pageOffset(2, 20))
}

func TestParseInt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, ParseInt("3"))
	assert.Equal(t, 12, ParseInt("12abc"))
	assert.Equal(t, -2, ParseInt("-2"))
	assert.Equal(t, 0, ParseInt("abc"))
	assert.Equal(t, 0, ParseInt(""))
}
