package chat

// DetectDateOrder votes over all header lines and falls back to OrderMDY
// when the evidence is tied or absent.
func DetectDateOrder(lines []string) DateOrder {
	return DetectDateOrderWithDefault(lines, OrderMDY)
}

// DetectDateOrderWithDefault is DetectDateOrder with a configurable fallback.
// A leading number above 12 is a vote for day-first; a second number above 12
// is a vote for month-first.
func DetectDateOrderWithDefault(lines []string, fallback DateOrder) DateOrder {
	var mdy, dmy int
	for _, line := range lines {
		h, ok := scanHeader(line)
		if !ok {
			continue
		}
		switch {
		case h.a > 12 && h.b <= 12:
			dmy++
		case h.b > 12 && h.a <= 12:
			mdy++
		}
	}

	switch {
	case mdy > dmy:
		return OrderMDY
	case dmy > mdy:
		return OrderDMY
	case fallback == "":
		return OrderMDY
	default:
		return fallback
	}
}
