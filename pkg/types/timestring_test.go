package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeStringFromString(t *testing.T) {
	ts, err := NewTimeStringFromString("09:30:00")
	require.NoError(t, err)
	assert.Equal(t, TimeString("09:30"), ts)

	_, err = NewTimeStringFromString("25:00")
	assert.ErrorIs(t, err, ErrInvalidTimeString)
}

func TestMinutesAndFromMinutes(t *testing.T) {
	m, err := TimeString("01:15").Minutes()
	require.NoError(t, err)
	assert.Equal(t, 75, m)

	assert.Equal(t, TimeString("00:30"), FromMinutes(24*60+30))
	assert.Equal(t, TimeString("23:00"), FromMinutes(-60))
}

func TestAddMinutes(t *testing.T) {
	next, err := TimeString("23:00").AddMinutes(60)
	require.NoError(t, err)
	assert.Equal(t, TimeString("24:00"), next)

	_, err = TimeString("23:30").AddMinutes(60)
	assert.ErrorIs(t, err, ErrInvalidTimeString)
}

func TestOn(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	day := time.Date(2025, 3, 10, 15, 0, 0, 0, loc)

	at, err := TimeString("09:45").On(day, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 45, 0, 0, loc), at)
}

func TestScan(t *testing.T) {
	var ts TimeString
	require.NoError(t, ts.Scan([]byte("18:00:00")))
	assert.Equal(t, TimeString("18:00"), ts)

	require.NoError(t, ts.Scan(time.Date(0, 1, 1, 7, 5, 0, 0, time.UTC)))
	assert.Equal(t, TimeString("07:05"), ts)

	assert.Error(t, ts.Scan(42))
}
