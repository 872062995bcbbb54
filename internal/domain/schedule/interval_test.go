package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Run("valid inputs", func(t *testing.T) {
		for in, want := range map[string]TimeOfDay{
			"09:00": NewTimeOfDay(9, 0),
			"9:00":  NewTimeOfDay(9, 0),
			"17:30": NewTimeOfDay(17, 30),
			"00:00": NewTimeOfDay(0, 0),
			"23:59": NewTimeOfDay(23, 59),
		} {
			got, err := ParseTimeOfDay(in)
			require.NoError(t, err, in)
			assert.Equal(t, want, got, in)
		}
	})

	t.Run("invalid inputs", func(t *testing.T) {
		for _, in := range []string{"", "25:00", "12:60", "noon", "12.30"} {
			_, err := ParseTimeOfDay(in)
			assert.Error(t, err, in)
		}
	})
}

func TestTimeOfDay(t *testing.T) {
	tod := NewTimeOfDay(14, 30)
	assert.Equal(t, 14, tod.Hour())
	assert.Equal(t, 30, tod.Minute())
	assert.Equal(t, "14:30", tod.String())
	assert.Equal(t, NewTimeOfDay(15, 0), tod.Add(30*time.Minute))

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC), tod.At(day))

	instant := time.Date(2025, 3, 10, 14, 30, 12, 0, time.UTC)
	assert.Equal(t, tod, TimeOfDayFrom(instant))
}

func TestNewInterval(t *testing.T) {
	t.Run("start must precede end", func(t *testing.T) {
		_, err := NewInterval(NewTimeOfDay(10, 0), NewTimeOfDay(10, 0))
		assert.ErrorIs(t, err, ErrInvalidInterval)

		_, err = NewInterval(NewTimeOfDay(11, 0), NewTimeOfDay(10, 0))
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("valid", func(t *testing.T) {
		iv, err := NewInterval(NewTimeOfDay(9, 0), NewTimeOfDay(12, 0))
		require.NoError(t, err)
		assert.Equal(t, "09:00-12:00", iv.String())
	})
}

func TestIntervalOverlaps(t *testing.T) {
	mk := func(sh, sm, eh, em int) Interval {
		return Interval{Start: NewTimeOfDay(sh, sm), End: NewTimeOfDay(eh, em)}
	}

	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", mk(9, 0, 10, 0), mk(11, 0, 12, 0), false},
		{"nested", mk(9, 0, 12, 0), mk(10, 0, 11, 0), true},
		{"partial", mk(9, 0, 10, 30), mk(10, 0, 11, 0), true},
		{"shared boundary counts as overlap", mk(9, 0, 10, 0), mk(10, 0, 11, 0), true},
		{"identical", mk(9, 0, 10, 0), mk(9, 0, 10, 0), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.want, tc.b.Overlaps(tc.a))
		})
	}
}

func TestParseInterval(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		iv, err := ParseInterval("13:00-17:30")
		require.NoError(t, err)
		assert.Equal(t, NewTimeOfDay(13, 0), iv.Start)
		assert.Equal(t, NewTimeOfDay(17, 30), iv.End)
	})

	t.Run("whitespace tolerated", func(t *testing.T) {
		iv, err := ParseInterval(" 09:00 - 11:59 ")
		require.NoError(t, err)
		assert.Equal(t, NewTimeOfDay(11, 59), iv.End)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, in := range []string{"", "09:00", "09:00-08:00", "abc-def"} {
			_, err := ParseInterval(in)
			assert.Error(t, err, in)
		}
	})
}

func TestTemplate(t *testing.T) {
	t.Run("default template cuts sixteen half-hour slots", func(t *testing.T) {
		slots := DefaultTemplate().Slots()
		require.Len(t, slots, 16)
		assert.Equal(t, NewTimeOfDay(9, 0), slots[0].Start)
		assert.Equal(t, NewTimeOfDay(11, 30), slots[5].Start)
		assert.Equal(t, NewTimeOfDay(13, 0), slots[6].Start)
		assert.Equal(t, NewTimeOfDay(17, 30), slots[15].Start)
		assert.Equal(t, NewTimeOfDay(18, 0), slots[15].End)
	})

	t.Run("workday end is the last window's end", func(t *testing.T) {
		assert.Equal(t, NewTimeOfDay(18, 0), DefaultTemplate().WorkdayEnd())
	})

	t.Run("covers", func(t *testing.T) {
		tpl := DefaultTemplate()
		assert.True(t, tpl.Covers(NewTimeOfDay(9, 0)))
		assert.True(t, tpl.Covers(NewTimeOfDay(14, 15)))
		assert.False(t, tpl.Covers(NewTimeOfDay(12, 30)))
		assert.False(t, tpl.Covers(NewTimeOfDay(8, 0)))
	})

	t.Run("parse from env string", func(t *testing.T) {
		tpl, err := ParseTemplate("08:00-10:00,15:00-16:00", 30*time.Minute)
		require.NoError(t, err)
		assert.Len(t, tpl.Slots(), 6)

		_, err = ParseTemplate("08:00-07:00", 30*time.Minute)
		assert.Error(t, err)
	})
}
