// Package report folds meal submissions into headcount totals.
package report

import (
	"math"
	"sort"

	"github.com/ullaszensar/mealtrackpro/internal/domain"
)

// GroupBy selects how totals are bucketed.
type GroupBy int

const (
	GroupNone GroupBy = iota
	GroupByDate
)

// Headcount sums adults and children.
type Headcount struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Total    int `json:"total"`
}

func (h *Headcount) add(c domain.MealCount) {
	h.Adults += c.AdultCount
	h.Children += c.ChildCount
	h.Total += c.Total()
}

// Totals holds per-meal-type and overall headcounts.
type Totals struct {
	Submissions int                           `json:"submissions"`
	Overall     Headcount                     `json:"overall"`
	ByMealType  map[domain.MealType]Headcount `json:"byMealType"`
}

func newTotals(mealTypes []domain.MealType) Totals {
	t := Totals{ByMealType: make(map[domain.MealType]Headcount, len(mealTypes))}
	for _, mt := range mealTypes {
		t.ByMealType[mt] = Headcount{}
	}
	return t
}

func (t *Totals) add(sub *domain.Submission) {
	t.Submissions++
	for _, c := range sub.Counts {
		h := t.ByMealType[c.MealType]
		h.add(c)
		t.ByMealType[c.MealType] = h
		t.Overall.add(c)
	}
}

// DateTotals is the bucket for one meal date.
type DateTotals struct {
	Date string `json:"date"`
	Totals
}

// Report is the result of Aggregate.
type Report struct {
	Totals
	// ByDate is empty unless grouped by date; sorted by Date ascending.
	ByDate        []DateTotals                    `json:"byDate,omitempty"`
	Days          int                             `json:"days"`
	AveragePerDay int                             `json:"averagePerDay"`
	StatusCounts  map[domain.SubmissionStatus]int `json:"statusCounts"`
}

// Aggregate sums counts across submissions. The result does not depend on the
// order of subs. mealTypes seeds zero entries so every configured slot is present.
func Aggregate(subs []domain.Submission, group GroupBy, mealTypes []domain.MealType) Report {
	rep := Report{
		Totals:       newTotals(mealTypes),
		StatusCounts: make(map[domain.SubmissionStatus]int, len(domain.SubmissionStatuses)),
	}
	for _, status := range domain.SubmissionStatuses {
		rep.StatusCounts[status] = 0
	}

	buckets := make(map[string]*DateTotals)
	for i := range subs {
		sub := &subs[i]
		rep.Totals.add(sub)
		rep.StatusCounts[sub.Status]++

		key := sub.MealDateKey()
		bucket, ok := buckets[key]
		if !ok {
			bucket = &DateTotals{Date: key, Totals: newTotals(mealTypes)}
			buckets[key] = bucket
		}
		bucket.add(sub)
	}

	rep.Days = len(buckets)
	rep.AveragePerDay = averagePerDay(rep.Overall.Total, rep.Days)

	if group == GroupByDate {
		rep.ByDate = make([]DateTotals, 0, len(buckets))
		for _, bucket := range buckets {
			rep.ByDate = append(rep.ByDate, *bucket)
		}
		sort.Slice(rep.ByDate, func(i, j int) bool { return rep.ByDate[i].Date < rep.ByDate[j].Date })
	}
	return rep
}

func averagePerDay(total, days int) int {
	if days == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(days)))
}
