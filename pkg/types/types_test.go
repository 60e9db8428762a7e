package types

import "testing"

func intp(v int) *int { return &v }

func TestRewardRecordHasDrops(t *testing.T) {
	tests := []struct {
		name      string
		remaining *int
		want      bool
	}{
		{"nil remaining", nil, false},
		{"zero remaining", intp(0), false},
		{"positive remaining", intp(3), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := RewardRecord{AppID: 440, Remaining: tt.remaining}
			if got := rec.HasDrops(); got != tt.want {
				t.Errorf("HasDrops() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRewardRecordExhausted(t *testing.T) {
	tests := []struct {
		name      string
		remaining *int
		want      bool
	}{
		{"nil remaining is not exhaustion", nil, false},
		{"zero remaining is exhaustion", intp(0), true},
		{"positive remaining", intp(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := RewardRecord{AppID: 440, Remaining: tt.remaining}
			if got := rec.Exhausted(); got != tt.want {
				t.Errorf("Exhausted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortAppIDs(t *testing.T) {
	ids := SortAppIDs([]uint32{730, 440, 570, 440})
	want := []uint32{440, 440, 570, 730}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("SortAppIDs() = %v, want %v", ids, want)
		}
	}
}
