package hotkeys

import (
	"reflect"
	"sort"
	"testing"
)

func TestLockCombinations(t *testing.T) {
	tests := []struct {
		name  string
		masks []uint16
		want  []uint16
	}{
		{"none", nil, []uint16{0}},
		{"caps only", []uint16{2}, []uint16{0, 2}},
		{"caps and num", []uint16{2, 16}, []uint16{0, 2, 16, 18}},
		{"duplicates and zero dropped", []uint16{2, 0, 2, 16}, []uint16{0, 2, 16, 18}},
		{"three locks", []uint16{2, 16, 128}, []uint16{0, 2, 16, 18, 128, 130, 144, 146}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lockCombinations(tt.masks)
			sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("lockCombinations(%v) = %v, want %v", tt.masks, got, tt.want)
			}
		})
	}
}
