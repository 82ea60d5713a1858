package chat

import "testing"

func TestDetectDateOrder(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  DateOrder
	}{
		{
			name:  "day first evidence",
			lines: []string{"15/01/2024, 14:30 - Dave: hi", "3/4/24, 10:00 - Rory: yo"},
			want:  OrderDMY,
		},
		{
			name:  "month first evidence",
			lines: []string{"01/15/2024, 14:30 - Dave: hi", "1/20/24, 10:00 - Rory: yo"},
			want:  OrderMDY,
		},
		{
			name: "majority wins",
			lines: []string{
				"13/01/2024, 14:30 - Dave: a",
				"14/01/2024, 14:30 - Dave: b",
				"01/15/2024, 14:30 - Dave: c",
			},
			want: OrderDMY,
		},
		{
			name:  "tie defaults to month first",
			lines: []string{"13/01/2024, 14:30 - Dave: a", "01/13/2024, 14:30 - Dave: b"},
			want:  OrderMDY,
		},
		{
			name:  "no evidence",
			lines: []string{"1/2/24, 10:00 - Dave: hi", "not a header"},
			want:  OrderMDY,
		},
		{
			name:  "empty input",
			lines: nil,
			want:  OrderMDY,
		},
		{
			name:  "non header lines do not vote",
			lines: []string{"25/01/2024 is when we met", "1/20/24, 10:00 - Rory: yo"},
			want:  OrderMDY,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDateOrder(tt.lines); got != tt.want {
				t.Errorf("DetectDateOrder() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectDateOrderWithDefault(t *testing.T) {
	ambiguous := []string{"1/2/24, 10:00 - Dave: hi"}

	if got := DetectDateOrderWithDefault(ambiguous, OrderDMY); got != OrderDMY {
		t.Errorf("DetectDateOrderWithDefault(dmy) = %q, want dmy", got)
	}
	if got := DetectDateOrderWithDefault(ambiguous, ""); got != OrderMDY {
		t.Errorf("DetectDateOrderWithDefault(\"\") = %q, want mdy", got)
	}

	decided := []string{"1/20/24, 10:00 - Dave: hi"}
	if got := DetectDateOrderWithDefault(decided, OrderDMY); got != OrderMDY {
		t.Errorf("evidence should override the default, got %q", got)
	}
}
