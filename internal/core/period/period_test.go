package period

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Period
		wantErr bool
	}{
		{input: "2026-01", want: Period{Year: 2026, Month: time.January}},
		{input: "2026-12", want: Period{Year: 2026, Month: time.December}},
		{input: "2026-13", wantErr: true},
		{input: "2026-00", wantErr: true},
		{input: "2026-1", wantErr: true},
		{input: "202601", wantErr: true},
		{input: "1999-06", wantErr: true},
		{input: "", wantErr: true},
		{input: "garbage", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriod_Bounds(t *testing.T) {
	p := MustParse("2026-02")

	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), p.Start())
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), p.End())

	// Half-open range: the first instant of March is outside February.
	assert.True(t, p.Contains(time.Date(2026, time.February, 28, 23, 59, 59, 0, time.UTC)))
	assert.False(t, p.Contains(p.End()))
	assert.True(t, p.Contains(p.Start()))
}

func TestPeriod_NextPrev(t *testing.T) {
	p := MustParse("2026-12")

	assert.Equal(t, MustParse("2027-01"), p.Next())
	assert.Equal(t, MustParse("2026-11"), p.Prev())
	assert.Equal(t, MustParse("2025-12"), MustParse("2026-01").Prev())
}

func TestPeriod_Ordering(t *testing.T) {
	jan := MustParse("2026-01")
	feb := MustParse("2026-02")

	assert.True(t, jan.Before(feb))
	assert.False(t, feb.Before(jan))
	assert.False(t, jan.Before(jan))
	assert.True(t, jan.Equal(jan))
	assert.True(t, MustParse("2025-12").Before(jan))
}

func TestPeriod_IsComplete(t *testing.T) {
	p := MustParse("2026-07")

	assert.False(t, p.IsComplete(time.Date(2026, time.July, 31, 12, 0, 0, 0, time.UTC)))
	assert.True(t, p.IsComplete(time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPeriod_JSON(t *testing.T) {
	p := MustParse("2026-08")

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `"2026-08"`, string(data))

	var decoded Period
	require.NoError(t, json.Unmarshal([]byte(`"2026-08"`), &decoded))
	assert.True(t, p.Equal(decoded))

	assert.Error(t, json.Unmarshal([]byte(`"2026-8"`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`42`), &decoded))
}

func TestPeriod_Scan(t *testing.T) {
	var p Period

	require.NoError(t, p.Scan(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, MustParse("2026-03"), p)

	require.NoError(t, p.Scan("2026-04"))
	assert.Equal(t, MustParse("2026-04"), p)

	require.NoError(t, p.Scan(nil))
	assert.True(t, p.IsZero())

	assert.Error(t, p.Scan(12345))
}
