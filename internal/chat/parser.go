// Package chat parses WhatsApp chat exports into messages and music links.
package chat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DateOrder says how an ambiguous "a/b" date prefix is read.
type DateOrder string

const (
	// OrderMDY reads "a/b" as month/day.
	OrderMDY DateOrder = "mdy"
	// OrderDMY reads "a/b" as day/month.
	OrderDMY DateOrder = "dmy"
)

// ParseDateOrder converts a configuration value to a DateOrder.
func ParseDateOrder(s string) (DateOrder, error) {
	switch DateOrder(strings.ToLower(strings.TrimSpace(s))) {
	case OrderMDY:
		return OrderMDY, nil
	case OrderDMY:
		return OrderDMY, nil
	default:
		return "", fmt.Errorf("unknown date order %q", s)
	}
}

// Reason explains why a line was rejected.
type Reason string

const (
	// ReasonNoMatch means the line is not a message header line.
	ReasonNoMatch Reason = "no_match"
	// ReasonInvalidDate means the date or time fields are out of range.
	ReasonInvalidDate Reason = "invalid_date"
	// ReasonFuture means the timestamp is after the reference time.
	ReasonFuture Reason = "future_date"
)

// ErrRejected is matched by every *RejectError.
var ErrRejected = errors.New("line rejected")

// RejectError is returned by the parser for lines that are not imported.
type RejectError struct {
	Reason Reason
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("line rejected: %s", e.Reason)
	}
	return fmt.Sprintf("line rejected: %s: %s", e.Reason, e.Detail)
}

// Is reports whether target is ErrRejected.
func (e *RejectError) Is(target error) bool {
	return target == ErrRejected
}

func reject(reason Reason, format string, args ...any) error {
	return &RejectError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Message is one parsed chat message.
type Message struct {
	Date    time.Time
	Sender  string
	Text    string
	LineNum int // zero-based position in the export, used to order ties
}

// header holds the raw fields of a message header line before validation.
type header struct {
	a, b         int
	year         string
	hour, minute int
	sec          int
	meridiem     string
	sender       string
	text         string
}

// Parser turns export lines into messages.
type Parser struct {
	// Order resolves dates where both leading numbers are 12 or less.
	Order DateOrder
	// Location is the zone export timestamps are read in. Defaults to UTC.
	Location *time.Location
	// Now is the reference time for future-date rejection and the default year.
	Now time.Time
}

// ParseLine parses one line in UTC against the current time.
func ParseLine(line string, order DateOrder) (Message, error) {
	p := Parser{Order: order, Location: time.UTC, Now: time.Now()}
	return p.Parse(line)
}

// Parse parses one export line.
func (p Parser) Parse(line string) (Message, error) {
	h, ok := scanHeader(line)
	if !ok {
		return Message{}, &RejectError{Reason: ReasonNoMatch}
	}

	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	year := now.In(loc).Year()
	if h.year != "" {
		n, err := strconv.Atoi(h.year)
		if err != nil {
			return Message{}, reject(ReasonInvalidDate, "year %q", h.year)
		}
		if len(h.year) == 2 {
			n += 2000
		}
		year = n
	}

	month, day := resolveMonthDay(h.a, h.b, p.Order)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Message{}, reject(ReasonInvalidDate, "month %d day %d", month, day)
	}

	hour := h.hour
	switch h.meridiem {
	case "PM":
		if hour < 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || h.minute > 59 || h.sec > 59 {
		return Message{}, reject(ReasonInvalidDate, "time %02d:%02d:%02d", hour, h.minute, h.sec)
	}

	date := time.Date(year, time.Month(month), day, hour, h.minute, h.sec, 0, loc)
	// time.Date normalizes 31/02 into March; such dates do not exist in the export.
	if date.Day() != day || int(date.Month()) != month {
		return Message{}, reject(ReasonInvalidDate, "%04d-%02d-%02d does not exist", year, month, day)
	}
	if date.After(now) {
		return Message{}, reject(ReasonFuture, "%s", date.Format(time.RFC3339))
	}

	return Message{
		Date:   date,
		Sender: strings.TrimSpace(h.sender),
		Text:   strings.TrimSpace(h.text),
	}, nil
}

// resolveMonthDay applies the day-first/month-first rules. A number above 12
// can only be a day, so it wins over the detected order.
func resolveMonthDay(first, second int, order DateOrder) (month, day int) {
	switch {
	case first > 12 && second <= 12:
		return second, first
	case second > 12 && first <= 12:
		return first, second
	case order == OrderDMY:
		return second, first
	default:
		return first, second
	}
}

// scanner is a cursor over one line.
type scanner struct {
	s   string
	pos int
}

func (sc *scanner) peek() (rune, int) {
	if sc.pos >= len(sc.s) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(sc.s[sc.pos:])
}

func (sc *scanner) accept(r rune) bool {
	got, size := sc.peek()
	if size == 0 || got != r {
		return false
	}
	sc.pos += size
	return true
}

// skipSpace consumes Unicode whitespace, which includes the narrow and
// regular no-break spaces some exports put before AM/PM.
func (sc *scanner) skipSpace() int {
	n := 0
	for {
		r, size := sc.peek()
		if size == 0 || !unicode.IsSpace(r) {
			return n
		}
		sc.pos += size
		n++
	}
}

// digits reads between min and max ASCII digits.
func (sc *scanner) digits(min, max int) (string, bool) {
	start := sc.pos
	for sc.pos < len(sc.s) && sc.pos-start < max && sc.s[sc.pos] >= '0' && sc.s[sc.pos] <= '9' {
		sc.pos++
	}
	if sc.pos-start < min {
		sc.pos = start
		return "", false
	}
	return sc.s[start:sc.pos], true
}

func (sc *scanner) number(min, max int) (int, bool) {
	d, ok := sc.digits(min, max)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(d)
	return n, err == nil
}

// meridiem consumes AM or PM when it is not the start of a longer word.
func (sc *scanner) meridiem() string {
	if len(sc.s)-sc.pos < 2 {
		return ""
	}
	word := strings.ToUpper(sc.s[sc.pos : sc.pos+2])
	if word != "AM" && word != "PM" {
		return ""
	}
	if next, size := utf8.DecodeRuneInString(sc.s[sc.pos+2:]); size > 0 && unicode.IsLetter(next) {
		return ""
	}
	sc.pos += 2
	return word
}

func (sc *scanner) rest() string {
	return sc.s[sc.pos:]
}

// scanHeader tokenizes "[D/D/YY, H:MM:SS AM] - Sender: text" and its
// variants. It checks only the shape of the line; ranges are validated by
// the parser.
func scanHeader(line string) (header, bool) {
	var h header
	sc := &scanner{s: strings.TrimSpace(strings.TrimPrefix(line, "\uFEFF"))}

	sc.skipSpace()
	sc.accept('[')

	var ok bool
	if h.a, ok = sc.number(1, 2); !ok || !sc.accept('/') {
		return h, false
	}
	if h.b, ok = sc.number(1, 2); !ok {
		return h, false
	}
	if sc.accept('/') {
		if h.year, ok = sc.digits(2, 4); !ok {
			return h, false
		}
	}

	sc.accept(',')
	if sc.skipSpace() == 0 {
		return h, false
	}

	if h.hour, ok = sc.number(1, 2); !ok || !sc.accept(':') {
		return h, false
	}
	if h.minute, ok = sc.number(2, 2); !ok {
		return h, false
	}
	if sc.accept(':') {
		if h.sec, ok = sc.number(2, 2); !ok {
			return h, false
		}
	}

	sc.skipSpace()
	h.meridiem = sc.meridiem()
	sc.accept(']')
	sc.skipSpace()
	if !sc.accept('-') {
		sc.accept('–')
	}
	sc.skipSpace()

	rest := sc.rest()
	colon := strings.IndexByte(rest, ':')
	if colon <= 0 {
		return h, false
	}
	h.sender = rest[:colon]
	sc.pos += colon + 1
	if sc.skipSpace() == 0 {
		return h, false
	}
	h.text = sc.rest()
	return h, true
}

// SplitLines splits export text on line breaks and drops empty lines.
func SplitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSuffix(l, "\r")
		if l == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}
