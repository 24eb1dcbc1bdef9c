package usecase

import "time"

// ScheduledDomain pairs a domain name with the day it becomes eligible.
type ScheduledDomain struct {
	Name string
	Date time.Time
}

// Day truncates an instant to its calendar day in the instant's location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// domainsPerDay computes how many domains land on each day: enough to finish
// within targetDays, never more than capPerDay.
func domainsPerDay(n, targetDays, capPerDay int) int {
	perDay := (n + targetDays - 1) / targetDays
	if perDay > capPerDay {
		perDay = capPerDay
	}
	return perDay
}

// ScheduleDomains assigns each name a scheduled date, filling days in input
// order: domain i lands on start + floor(i/perDay) days. Deterministic and
// order-preserving.
func ScheduleDomains(names []string, start time.Time, targetDays, capPerDay int) []ScheduledDomain {
	if len(names) == 0 {
		return nil
	}

	start = Day(start)
	perDay := domainsPerDay(len(names), targetDays, capPerDay)

	scheduled := make([]ScheduledDomain, len(names))
	for i, name := range names {
		scheduled[i] = ScheduledDomain{
			Name: name,
			Date: start.AddDate(0, 0, i/perDay),
		}
	}

	return scheduled
}

// ScheduleEndDate computes the last scheduled day for n domains from the same
// formula, without re-deriving the per-domain assignment. n=0 yields the
// start date itself.
func ScheduleEndDate(n int, start time.Time, targetDays, capPerDay int) time.Time {
	start = Day(start)
	if n == 0 {
		return start
	}

	perDay := domainsPerDay(n, targetDays, capPerDay)
	totalDays := (n + perDay - 1) / perDay
	return start.AddDate(0, 0, totalDays-1)
}
