package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsThirdFriday(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"third friday of march 2024", Date(2024, time.March, 15), true},
		{"second friday", Date(2024, time.March, 8), false},
		{"fourth friday", Date(2024, time.March, 22), false},
		{"thursday before", Date(2024, time.March, 14), false},
		{"month starting on friday", Date(2024, time.November, 15), true},
		{"month starting on saturday", Date(2024, time.June, 21), true},
		{"clock part ignored", time.Date(2024, time.March, 15, 23, 59, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsThirdFriday(tt.date))
		})
	}
}

func TestDaysBetweenAndDTE(t *testing.T) {
	today := Date(2024, time.March, 1)

	assert.Equal(t, 14, DaysBetween(today, Date(2024, time.March, 15)))
	assert.Equal(t, -1, DaysBetween(today, Date(2024, time.February, 29)))
	assert.Equal(t, 0, DTE(Date(2024, time.February, 20), today))
	assert.Equal(t, 30, DTE(Date(2024, time.March, 31), today))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	require.NoError(t, err)
	assert.True(t, d.Equal(Date(2024, time.March, 15)))
	assert.Equal(t, "2024-03-15", Format(d))

	_, err = ParseDate("15/03/2024")
	assert.Error(t, err)
}
