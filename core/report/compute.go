package report

import (
	"sort"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/payment"
)

const (
	controleWeight = 1
	syntheseWeight = 2
	// PassMark is the lowest passing weighted average.
	PassMark = 10
)

// WeightedAverage weighs the synthesis grade twice the control grade.
func WeightedAverage(controle, synthese float64) float64 {
	return (controle*controleWeight + synthese*syntheseWeight) / (controleWeight + syntheseWeight)
}

// BulletinAverage is the coefficient weighted mean of the subjects' weighted averages; 0 without subjects.
func BulletinAverage(subjects []BulletinSubject) float64 {
	var sum, coefs float64
	for _, s := range subjects {
		sum += s.WeightedAverage * s.Coefficient
		coefs += s.Coefficient
	}
	if coefs == 0 {
		return 0
	}
	return sum / coefs
}

// Performance folds bulletins into an overall average, nil without subjects,
// and the number of passed and failed subjects.
func Performance(bulletins []Bulletin) (avg *float64, passed, failed int) {
	var sum, coefs float64
	for _, b := range bulletins {
		for _, s := range b.Subjects {
			sum += s.WeightedAverage * s.Coefficient
			coefs += s.Coefficient
			if s.WeightedAverage >= PassMark {
				passed++
			} else {
				failed++
			}
		}
	}
	if coefs == 0 {
		return nil, passed, failed
	}
	overall := sum / coefs
	return &overall, passed, failed
}

// AttendanceTotals reads the absent, present and late counts.
func AttendanceTotals(counts map[attendance.Status]int) (absences, presences, late int) {
	return counts[attendance.StatusAbsent], counts[attendance.StatusPresent], counts[attendance.StatusLate]
}

// Financial sums the payments and buckets them by month name.
func Financial(payments []payment.Payment) (total float64, count int, byMonth map[string]float64) {
	byMonth = make(map[string]float64)
	for _, p := range payments {
		total += p.Amount
		byMonth[p.PaidAt.Month().String()] += p.Amount
	}
	return total, len(payments), byMonth
}

// LatestGrades keeps the most recently updated grade of each subject, ordered by subject.
func LatestGrades(grades []grade.Grade) []grade.Grade {
	latest := make(map[string]grade.Grade, len(grades))
	for _, g := range grades {
		if cur, ok := latest[g.SubjectID]; !ok || g.UpdatedAt.After(cur.UpdatedAt) {
			latest[g.SubjectID] = g
		}
	}
	res := make([]grade.Grade, 0, len(latest))
	for _, g := range latest {
		res = append(res, g)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].SubjectID < res[j].SubjectID })
	return res
}
