package course

import (
	"fmt"
	"strings"
)

// Slot is a half-open [Start, End) interval on a day of the week.
type Slot struct {
	Day   string
	Start string
	End   string
}

// Overlaps reports whether both slots share at least one minute.
// Touching slots (08:00-09:00 and 09:00-10:00) do not overlap; containment does.
func (s Slot) Overlaps(o Slot) bool {
	return s.Day == o.Day && s.Start < o.End && o.Start < s.End
}

// Valid reports whether the slot ends after it starts.
func (s Slot) Valid() bool {
	return s.Start < s.End
}

// Dimension is a resource that cannot be booked twice at the same time.
type Dimension string

const (
	DimensionTeacher   Dimension = "teacher"
	DimensionClassroom Dimension = "classroom"
	DimensionClass     Dimension = "class"
)

// SharedDimensions returns the resources booked by both courses.
func SharedDimensions(a, b Course) []Dimension {
	dims := make([]Dimension, 0, 3)
	if a.TeacherID == b.TeacherID {
		dims = append(dims, DimensionTeacher)
	}
	if a.ClassroomID == b.ClassroomID {
		dims = append(dims, DimensionClassroom)
	}
	if a.ClassID == b.ClassID {
		dims = append(dims, DimensionClass)
	}
	return dims
}

// Conflicts reports whether `existing` prevents booking `candidate`.
func Conflicts(candidate, existing Course) bool {
	return candidate.SchoolID == existing.SchoolID &&
		candidate.Slot().Overlaps(existing.Slot()) &&
		len(SharedDimensions(candidate, existing)) > 0
}

type Conflict struct {
	Course     Course      `json:"course"`
	Dimensions []Dimension `json:"dimensions"`
}

// ConflictError is returned when a course overlaps existing courses.
type ConflictError struct {
	Candidate Course
	Conflicts []Conflict
}

func (err ConflictError) Error() string {
	seen := make(map[Dimension]bool, 3)
	dims := make([]string, 0, 3)
	for _, c := range err.Conflicts {
		for _, d := range c.Dimensions {
			if !seen[d] {
				seen[d] = true
				dims = append(dims, string(d))
			}
		}
	}
	return fmt.Sprintf(
		"conflict detected: %s already booked on %s between %s and %s",
		strings.Join(dims, ", "), err.Candidate.Day, err.Candidate.StartTime, err.Candidate.EndTime,
	)
}
