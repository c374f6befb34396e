package reminder

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"
)

func ip(v int) *int { return &v }

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("LoadLocation(%q): %v", name, err)
	}
	return loc
}

func TestResolveAbsolute(t *testing.T) {
	t.Parallel()
	manila := mustLoc(t, "Asia/Manila")

	tests := []struct {
		name    string
		in      AbsoluteFields
		want    time.Time
		wantErr error
	}{
		{
			name: "zero-based month",
			in:   AbsoluteFields{Year: ip(2099), Month: ip(0), Day: ip(1), Hour: ip(9), Minute: ip(0)},
			want: time.Date(2099, time.January, 1, 9, 0, 0, 0, manila),
		},
		{
			name: "december",
			in:   AbsoluteFields{Year: ip(2099), Month: ip(11), Day: ip(31), Hour: ip(23), Minute: ip(59)},
			want: time.Date(2099, time.December, 31, 23, 59, 0, 0, manila),
		},
		{
			name: "hour and minute default to midnight",
			in:   AbsoluteFields{Year: ip(2099), Month: ip(5), Day: ip(15)},
			want: time.Date(2099, time.June, 15, 0, 0, 0, 0, manila),
		},
		{name: "missing year", in: AbsoluteFields{Month: ip(0), Day: ip(1)}, wantErr: ErrMissingRequiredField},
		{name: "missing month", in: AbsoluteFields{Year: ip(2099), Day: ip(1)}, wantErr: ErrMissingRequiredField},
		{name: "missing day", in: AbsoluteFields{Year: ip(2099), Month: ip(0)}, wantErr: ErrMissingRequiredField},
		{name: "zero year", in: AbsoluteFields{Year: ip(0), Month: ip(0), Day: ip(1)}, wantErr: ErrMissingRequiredField},
		{name: "month out of range", in: AbsoluteFields{Year: ip(2099), Month: ip(12), Day: ip(1)}, wantErr: ErrInvalidField},
		{name: "hour out of range", in: AbsoluteFields{Year: ip(2099), Month: ip(0), Day: ip(1), Hour: ip(24)}, wantErr: ErrInvalidField},
		{name: "february 30", in: AbsoluteFields{Year: ip(2099), Month: ip(1), Day: ip(30)}, wantErr: ErrInvalidDate},
		{name: "april 31", in: AbsoluteFields{Year: ip(2099), Month: ip(3), Day: ip(31)}, wantErr: ErrInvalidDate},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ResolveAbsolute(tt.in, manila)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) || got.Location() != manila {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveAbsoluteReportsField(t *testing.T) {
	t.Parallel()
	_, err := ResolveAbsolute(AbsoluteFields{Year: ip(2099), Month: ip(0), Day: ip(1), Minute: ip(60)}, time.UTC)
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "minute" {
		t.Fatalf("err = %v, want FieldError for minute", err)
	}
}

func TestResolveRelativeUsesCalendarDays(t *testing.T) {
	t.Parallel()
	ny := mustLoc(t, "America/New_York")
	// 2030-03-09 12:00 EST; DST starts 2030-03-10 02:00.
	now := time.Date(2030, time.March, 9, 12, 0, 0, 0, ny)

	got, err := ResolveRelative(RelativeOffsets{Days: 1}, now, ny)
	if err != nil {
		t.Fatalf("ResolveRelative: %v", err)
	}
	// Same wall clock next day, 23h of elapsed time.
	want := time.Date(2030, time.March, 10, 12, 0, 0, 0, ny)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got.Sub(now) != 23*time.Hour {
		t.Fatalf("elapsed = %v, want 23h", got.Sub(now))
	}
}

func TestResolveRelativeAddsAllUnits(t *testing.T) {
	t.Parallel()
	now := time.Date(2030, time.January, 31, 22, 50, 15, 0, time.UTC)
	got, err := ResolveRelative(RelativeOffsets{Days: 2, Hours: 1, Minutes: 15}, now, time.UTC)
	if err != nil {
		t.Fatalf("ResolveRelative: %v", err)
	}
	want := time.Date(2030, time.February, 3, 0, 5, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestResolveRelativeMatchesFiringMinute(t *testing.T) {
	t.Parallel()
	now := time.Date(2030, time.May, 1, 10, 0, 30, 0, time.UTC)
	got, err := ResolveRelative(RelativeOffsets{Minutes: 1}, now, time.UTC)
	if err != nil {
		t.Fatalf("ResolveRelative: %v", err)
	}
	if want := time.Date(2030, time.May, 1, 10, 1, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if err := Validate(got, now); err != nil {
		t.Fatalf("Validate = %v", err)
	}
}

func TestResolveRelativeRejectsOutOfRange(t *testing.T) {
	t.Parallel()
	_, err := ResolveRelative(RelativeOffsets{Hours: 24}, time.Now(), time.UTC)
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("err = %v, want ErrInvalidField", err)
	}
}

func TestGate(t *testing.T) {
	t.Parallel()
	now := time.Date(2030, time.January, 1, 12, 0, 0, 0, time.UTC)

	if err := Validate(now, now); !errors.Is(err, ErrPastInstant) {
		t.Fatalf("Validate(now, now) = %v, want ErrPastInstant", err)
	}
	if err := Validate(now.Add(-time.Second), now); !errors.Is(err, ErrPastInstant) {
		t.Fatalf("Validate(past) = %v", err)
	}
	if err := Validate(now.Add(time.Second), now); err != nil {
		t.Fatalf("Validate(future) = %v", err)
	}

	if err := CheckOffsets(RelativeOffsets{}); !errors.Is(err, ErrNoOffsetGiven) {
		t.Fatalf("CheckOffsets(zero) = %v", err)
	}
	if err := CheckOffsets(RelativeOffsets{Minutes: 1}); err != nil {
		t.Fatalf("CheckOffsets(1m) = %v", err)
	}

	if err := CheckEvent("   "); !errors.Is(err, ErrMissingEventName) {
		t.Fatalf("CheckEvent(blank) = %v", err)
	}
	if err := CheckEvent("this event name is definitely too long"); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("CheckEvent(long) = %v", err)
	}
	if err := CheckEvent("Launch"); err != nil {
		t.Fatalf("CheckEvent(ok) = %v", err)
	}
}
