package localday

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestStart(t *testing.T) {
	testCases := []struct {
		name   string
		t      time.Time
		offset int
		want   time.Time
	}{
		{
			name:   "UTC midday",
			t:      time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC),
			offset: 0,
			want:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "east of UTC rolls into next local day",
			t:      time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC),
			offset: 420, // UTC+07:00, 03:00 on the 11th locally
			want:   time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC),
		},
		{
			name:   "west of UTC stays on previous local day",
			t:      time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC),
			offset: -300, // UTC-05:00, 21:00 on the 9th locally
			want:   time.Date(2025, 3, 9, 5, 0, 0, 0, time.UTC),
		},
		{
			name:   "exact local midnight",
			t:      time.Date(2025, 3, 9, 5, 0, 0, 0, time.UTC),
			offset: -300,
			want:   time.Date(2025, 3, 9, 5, 0, 0, 0, time.UTC),
		},
		{
			name:   "half hour offset",
			t:      time.Date(2025, 1, 1, 18, 29, 0, 0, time.UTC),
			offset: 330, // UTC+05:30, 23:59 locally
			want:   time.Date(2024, 12, 31, 18, 30, 0, 0, time.UTC),
		},
		{
			name:   "non-UTC location input",
			t:      time.Date(2025, 3, 10, 8, 0, 0, 0, time.FixedZone("X", 3600)),
			offset: 0,
			want:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Start(tc.t, tc.offset)
			if !got.Equal(tc.want) {
				t.Errorf("Start(%v, %d) = %v, want %v", tc.t, tc.offset, got, tc.want)
			}
		})
	}
}

func randomInstant(rng *rand.Rand) time.Time {
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(rng.Int63n(int64(40 * 365 * Day))))
}

func randomOffset(rng *rand.Rand) int {
	return MinOffset + rng.Intn(MaxOffset-MinOffset+1)
}

func TestStartIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		ts := randomInstant(rng)
		off := randomOffset(rng)
		once := Start(ts, off)
		twice := Start(once, off)
		if !once.Equal(twice) {
			t.Fatalf("Start not idempotent for %v offset %d: %v then %v", ts, off, once, twice)
		}
		if once.After(ts) {
			t.Fatalf("Start(%v, %d) = %v is after its input", ts, off, once)
		}
		if ts.Sub(once) >= Day {
			t.Fatalf("Start(%v, %d) = %v is more than a day before its input", ts, off, once)
		}
	}
}

func TestStartMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 5000; i++ {
		a := randomInstant(rng)
		b := a.Add(time.Duration(rng.Int63n(int64(3 * Day))))
		off := randomOffset(rng)
		if Start(b, off).Before(Start(a, off)) {
			t.Fatalf("Start not monotonic: %v <= %v but Start %v > %v", a, b, Start(a, off), Start(b, off))
		}
	}
}

func TestEndAndPrevious(t *testing.T) {
	ts := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	start := Start(ts, 120)
	end := End(ts, 120)
	if got := end.Sub(start); got != Day-time.Nanosecond {
		t.Errorf("End - Start = %v, want %v", got, Day-time.Nanosecond)
	}
	if !Start(end, 120).Equal(start) {
		t.Errorf("End %v is not on the same local day as %v", end, start)
	}
	if got := Previous(start); !got.Equal(start.Add(-Day)) {
		t.Errorf("Previous(%v) = %v", start, got)
	}
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	got := WindowStart(now, 0, 7)
	want := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("WindowStart(7 days) = %v, want %v", got, want)
	}
	if got := WindowStart(now, 0, 0); !got.Equal(Start(now, 0)) {
		t.Errorf("WindowStart(0 days) = %v, want today's start", got)
	}
}

func TestOffsetOf(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	if got := OffsetOf(time.Now(), loc); got != 420 {
		t.Errorf("OffsetOf = %d, want 420", got)
	}
	if got := OffsetOf(time.Now(), nil); got != 0 {
		t.Errorf("OffsetOf(nil) = %d, want 0", got)
	}
}

func TestCheckOffset(t *testing.T) {
	for _, off := range []int{MinOffset, 0, 330, MaxOffset} {
		if err := CheckOffset(off); err != nil {
			t.Errorf("CheckOffset(%d) = %v, want nil", off, err)
		}
	}
	for _, off := range []int{MinOffset - 1, MaxOffset + 1, 10000} {
		if err := CheckOffset(off); !errors.Is(err, ErrInvalidOffset) {
			t.Errorf("CheckOffset(%d) = %v, want ErrInvalidOffset", off, err)
		}
	}
}
