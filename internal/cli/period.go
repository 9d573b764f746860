package cli

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"kasir/internal/posapi"
)

const defaultPeriodDays = 7

var (
	dateRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	yearRe = regexp.MustCompile(`\b(20\d{2})\b`)
)

type periodRange struct {
	From  time.Time
	To    time.Time
	Label string
}

func (p periodRange) Period() posapi.Period {
	return posapi.Period{Start: p.From, End: p.To}
}

var now = time.Now

// resolvePeriod reads a period from free text: explicit dates, or phrases
// like "hari ini", "kemarin", "minggu ini", "bulan lalu", "oktober 2026".
// Empty text means the last seven days.
func resolvePeriod(text string) (periodRange, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	t := now()

	if dates := dateRe.FindAllString(lower, 2); len(dates) > 0 {
		return periodFromDates(dates)
	}

	switch {
	case lower == "":
		return periodRange{From: startOfDay(t.AddDate(0, 0, -defaultPeriodDays+1)), To: t, Label: "7 hari terakhir"}, nil
	case strings.Contains(lower, "kemarin lusa"):
		d := t.AddDate(0, 0, -2)
		return periodRange{From: startOfDay(d), To: endOfDay(d), Label: "kemarin lusa"}, nil
	case strings.Contains(lower, "kemarin"):
		d := t.AddDate(0, 0, -1)
		return periodRange{From: startOfDay(d), To: endOfDay(d), Label: "kemarin"}, nil
	case strings.Contains(lower, "hari ini"):
		return periodRange{From: startOfDay(t), To: t, Label: "hari ini"}, nil
	case strings.Contains(lower, "minggu"):
		return periodRange{From: startOfDay(t.AddDate(0, 0, -defaultPeriodDays+1)), To: t, Label: "7 hari terakhir"}, nil
	case strings.Contains(lower, "bulan lalu"):
		first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, -1, 0)
		return monthRange(first), nil
	case strings.Contains(lower, "bulan ini"):
		first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
		return periodRange{From: first, To: t, Label: "bulan ini"}, nil
	}

	if month, ok := detectMonth(lower); ok {
		year := t.Year()
		if y, ok := detectYear(lower); ok {
			year = y
		}
		return monthRange(time.Date(year, month, 1, 0, 0, 0, 0, t.Location())), nil
	}

	return periodRange{}, fmt.Errorf("periode tidak dikenali: %q (contoh: hari ini, kemarin, bulan ini, oktober 2026, 2026-10-01 2026-10-18)", text)
}

func periodFromDates(dates []string) (periodRange, error) {
	from, err := parseDate(dates[0])
	if err != nil {
		return periodRange{}, fmt.Errorf("tanggal tidak valid: %w", err)
	}
	to := from
	if len(dates) > 1 {
		if to, err = parseDate(dates[1]); err != nil {
			return periodRange{}, fmt.Errorf("tanggal tidak valid: %w", err)
		}
	}
	if to.Before(from) {
		return periodRange{}, errors.New("tanggal akhir sebelum tanggal awal")
	}
	label := dates[0]
	if len(dates) > 1 {
		label += " s/d " + dates[1]
	}
	return periodRange{From: startOfDay(from), To: endOfDay(to), Label: label}, nil
}

func monthRange(first time.Time) periodRange {
	last := first.AddDate(0, 1, -1)
	return periodRange{
		From:  first,
		To:    endOfDay(last),
		Label: monthNames[first.Month()-1] + " " + strconv.Itoa(first.Year()),
	}
}

func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, time.Local)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

var monthNames = []string{
	"januari", "februari", "maret", "april", "mei", "juni",
	"juli", "agustus", "september", "oktober", "november", "desember",
}

func detectMonth(lower string) (time.Month, bool) {
	for _, word := range strings.Fields(lower) {
		for i, name := range monthNames {
			if word == name || (len(word) >= 3 && strings.HasPrefix(name, word)) {
				return time.Month(i + 1), true
			}
		}
	}
	return 0, false
}

func detectYear(lower string) (int, bool) {
	match := yearRe.FindStringSubmatch(lower)
	if len(match) < 2 {
		return 0, false
	}
	year, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return year, true
}
