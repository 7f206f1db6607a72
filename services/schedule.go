package services

import (
	"time"

	"github.com/managenow/api/models"
)

// Due dates are anchored on the bill's start date and due day. A due day past
// the end of a month falls on that month's last day, and the following month
// returns to the anchored day (Jan 31, Feb 28, Mar 31).

func validFrequency(f string) bool {
	switch f {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyBiweekly,
		models.FrequencyMonthly, models.FrequencyQuarterly, models.FrequencyYearly:
		return true
	}
	return false
}

func monthStep(frequency string) int {
	switch frequency {
	case models.FrequencyMonthly:
		return 1
	case models.FrequencyQuarterly:
		return 3
	case models.FrequencyYearly:
		return 12
	}
	return 0
}

func dayStep(frequency string) int {
	switch frequency {
	case models.FrequencyDaily:
		return 1
	case models.FrequencyWeekly:
		return 7
	case models.FrequencyBiweekly:
		return 14
	}
	return 0
}

func isoWeekday(d models.Date) int {
	return (int(d.Weekday())+6)%7 + 1
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// monthDay builds the date for day in the given month, clamped to its length.
func monthDay(year int, month time.Month, day int) models.Date {
	if n := daysIn(year, month); day > n {
		day = n
	}
	return models.NewDate(year, month, day)
}

// addMonths moves to the first day of the month n months after d.
func addMonths(d models.Date, n int) (int, time.Month) {
	t := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return t.Year(), t.Month()
}

func daysBetween(a, b models.Date) int {
	return int(b.Sub(a.Time).Hours() / 24)
}

func dueDayOf(b *models.Bill) int {
	switch {
	case dayStep(b.Frequency) == 7 || dayStep(b.Frequency) == 14:
		if b.DueDay >= 1 && b.DueDay <= 7 {
			return b.DueDay
		}
		return isoWeekday(b.StartDate)
	case monthStep(b.Frequency) > 0:
		if b.DueDay >= 1 && b.DueDay <= 31 {
			return b.DueDay
		}
		return b.StartDate.Day()
	}
	return 0
}

// anchor is the bill's first due date: the first date on or after the start
// date that matches the due day.
func anchor(b *models.Bill) models.Date {
	start := b.StartDate
	due := dueDayOf(b)

	if step := dayStep(b.Frequency); step > 1 {
		return start.AddDays((due - isoWeekday(start) + 7) % 7)
	}
	if monthStep(b.Frequency) > 0 {
		d := monthDay(start.Year(), start.Month(), due)
		if d.Before(start) {
			y, m := addMonths(start, 1)
			d = monthDay(y, m, due)
		}
		return d
	}
	return start
}

// occurrence returns the k-th due date of the bill, k >= 0.
func occurrence(b *models.Bill, first models.Date, k int) models.Date {
	if step := dayStep(b.Frequency); step > 0 {
		return first.AddDays(k * step)
	}
	y, m := addMonths(first, k*monthStep(b.Frequency))
	return monthDay(y, m, dueDayOf(b))
}

// occurrenceOnOrAfter returns the first due date that is not before from.
func occurrenceOnOrAfter(b *models.Bill, from models.Date) models.Date {
	first := anchor(b)
	if !first.Before(from) {
		return first
	}

	var k int
	if step := dayStep(b.Frequency); step > 0 {
		days := daysBetween(first, from)
		k = (days + step - 1) / step
	} else {
		months := (from.Year()-first.Year())*12 + int(from.Month()) - int(first.Month())
		k = months / monthStep(b.Frequency)
	}

	d := occurrence(b, first, k)
	for d.Before(from) {
		k++
		d = occurrence(b, first, k)
	}
	return d
}

// NextDueDate returns the due date following lastDue, or the first due date
// when the bill has never been due. ok is false once the bill's end date has
// passed.
func NextDueDate(b *models.Bill, lastDue *models.Date) (next models.Date, ok bool) {
	if !validFrequency(b.Frequency) || b.StartDate.IsZero() {
		return models.Date{}, false
	}

	if lastDue == nil {
		next = anchor(b)
	} else {
		next = occurrenceOnOrAfter(b, lastDue.AddDays(1))
	}
	if b.EndDate != nil && next.After(*b.EndDate) {
		return models.Date{}, false
	}
	return next, true
}

// DueDatesBetween lists the due dates in [from, through].
func DueDatesBetween(b *models.Bill, from, through models.Date) []models.Date {
	if !validFrequency(b.Frequency) || b.StartDate.IsZero() || through.Before(from) {
		return nil
	}

	var dates []models.Date
	for d := occurrenceOnOrAfter(b, from); !d.After(through); {
		if b.EndDate != nil && d.After(*b.EndDate) {
			break
		}
		dates = append(dates, d)
		next := d
		d, _ = NextDueDate(b, &next)
		if d.IsZero() {
			break
		}
	}
	return dates
}
