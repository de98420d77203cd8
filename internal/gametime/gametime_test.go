package gametime

import "testing"

func TestTimeToSeconds(t *testing.T) {
	cases := map[string]int{
		"00:00":  0,
		"00:45":  45,
		"15:30":  930,
		"120:05": 7205,
	}
	for in, want := range cases {
		got, err := TimeToSeconds(in)
		if err != nil {
			t.Fatalf("TimeToSeconds(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("TimeToSeconds(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestTimeToSeconds_Malformed(t *testing.T) {
	for _, in := range []string{"15", "15:30:45", "15:60", "-1:30", "15:-3", "", ":30", "15:", "ab:cd", "15:5"} {
		if _, err := TimeToSeconds(in); err == nil {
			t.Errorf("TimeToSeconds(%q): expected error", in)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, in := range []string{"00:00", "00:59", "15:30", "59:59", "120:05"} {
		secs, err := TimeToSeconds(in)
		if err != nil {
			t.Fatalf("TimeToSeconds(%q): %v", in, err)
		}
		out, err := SecondsToTime(secs)
		if err != nil {
			t.Fatalf("SecondsToTime(%d): %v", secs, err)
		}
		if out != in {
			t.Errorf("round trip %q -> %d -> %q", in, secs, out)
		}
	}
	for secs := 0; secs < 4000; secs += 37 {
		s, _ := SecondsToTime(secs)
		back, err := TimeToSeconds(s)
		if err != nil || back != secs {
			t.Errorf("round trip %d -> %q -> %d (%v)", secs, s, back, err)
		}
	}
}

func TestSecondsToTime_Negative(t *testing.T) {
	if _, err := SecondsToTime(-1); err == nil {
		t.Error("expected error for negative seconds")
	}
}
