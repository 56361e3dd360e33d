package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOf_UsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 20:00 UTC on the 14th is already the 15th in Tokyo.
	ts := time.Date(2026, 1, 14, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, Date{2026, time.January, 14}, DateOf(ts, time.UTC))
	assert.Equal(t, Date{2026, time.January, 15}, DateOf(ts, tokyo))
}

func TestDate_Compare(t *testing.T) {
	a := Date{2026, time.March, 1}
	b := Date{2026, time.March, 2}

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.True(t, Date{2025, time.December, 31}.Before(a))
	assert.Equal(t, b, a.AddDays(1))
	assert.Equal(t, Date{2026, time.February, 28}, a.AddDays(-1))
}

func TestDate_JSONAndScan(t *testing.T) {
	d := Date{2026, time.May, 4}
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-05-04"`, string(data))

	var back Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-05-04"`), &back))
	assert.Equal(t, d, back)
	assert.Error(t, json.Unmarshal([]byte(`"04.05.2026"`), &back))

	var scanned Date
	require.NoError(t, scanned.Scan([]byte("2026-05-04")))
	assert.Equal(t, d, scanned)
	require.NoError(t, scanned.Scan(time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, d, scanned)
	assert.Error(t, scanned.Scan(42))
}

func TestWeekHours_CompleteAndNormalize(t *testing.T) {
	week := WeekHours{}
	for _, d := range AllWeekdays {
		week[d] = Open("09:00", "21:00")
	}
	assert.True(t, week.Complete())

	openAt, closeAt := "10:00", "12:00"
	week[Sunday] = DayHours{IsOpen: false, OpenTime: &openAt, CloseTime: &closeAt}
	norm := week.Normalize()
	assert.Nil(t, norm[Sunday].OpenTime)
	assert.Nil(t, norm[Sunday].CloseTime)
	assert.NotNil(t, week[Sunday].OpenTime, "input must not be mutated")

	delete(week, Monday)
	assert.False(t, week.Complete())
}

func TestWeekdayOf(t *testing.T) {
	assert.Equal(t, Sunday, WeekdayOf(time.Sunday))
	assert.Equal(t, Monday, WeekdayOf(time.Monday))
	assert.Equal(t, Saturday, WeekdayOf(time.Saturday))
	assert.True(t, Friday.Valid())
	assert.False(t, Weekday("funday").Valid())
}
