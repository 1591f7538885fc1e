package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlot_Overlaps(t *testing.T) {
	base := Slot{Day: "Monday", Start: "08:00", End: "10:00"}
	tests := []struct {
		name  string
		other Slot
		want  bool
	}{
		{name: "same", other: base, want: true},
		{name: "overlaps start", other: Slot{Day: "Monday", Start: "07:00", End: "08:01"}, want: true},
		{name: "overlaps end", other: Slot{Day: "Monday", Start: "09:59", End: "11:00"}, want: true},
		{name: "contained", other: Slot{Day: "Monday", Start: "08:30", End: "09:30"}, want: true},
		{name: "containing", other: Slot{Day: "Monday", Start: "07:00", End: "12:00"}, want: true},
		{name: "touching before", other: Slot{Day: "Monday", Start: "07:00", End: "08:00"}, want: false},
		{name: "touching after", other: Slot{Day: "Monday", Start: "10:00", End: "11:00"}, want: false},
		{name: "before", other: Slot{Day: "Monday", Start: "06:00", End: "07:00"}, want: false},
		{name: "other day", other: Slot{Day: "Tuesday", Start: "08:00", End: "10:00"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "Overlaps() must be symmetric")
		})
	}
}

func TestSlot_Valid(t *testing.T) {
	assert.True(t, Slot{Start: "08:00", End: "08:01"}.Valid())
	assert.False(t, Slot{Start: "08:00", End: "08:00"}.Valid())
	assert.False(t, Slot{Start: "10:00", End: "09:00"}.Valid())
}

func TestConflicts(t *testing.T) {
	existing := Course{
		ID: "c1", SchoolID: "s1", TeacherID: "t1", ClassroomID: "r1", ClassID: "k1",
		Day: "Monday", StartTime: "08:00", EndTime: "10:00",
	}
	candidate := func(teacher, room, class, start, end string) Course {
		return Course{SchoolID: "s1", TeacherID: teacher, ClassroomID: room, ClassID: class, Day: "Monday", StartTime: start, EndTime: end}
	}

	tests := []struct {
		name     string
		cand     Course
		want     bool
		wantDims []Dimension
	}{
		{name: "teacher", cand: candidate("t1", "r2", "k2", "09:00", "11:00"), want: true, wantDims: []Dimension{DimensionTeacher}},
		{name: "classroom", cand: candidate("t2", "r1", "k2", "09:00", "11:00"), want: true, wantDims: []Dimension{DimensionClassroom}},
		{name: "class", cand: candidate("t2", "r2", "k1", "09:00", "11:00"), want: true, wantDims: []Dimension{DimensionClass}},
		{name: "all", cand: candidate("t1", "r1", "k1", "08:00", "10:00"), want: true, wantDims: []Dimension{DimensionTeacher, DimensionClassroom, DimensionClass}},
		{name: "nothing shared", cand: candidate("t2", "r2", "k2", "08:00", "10:00"), wantDims: []Dimension{}},
		{name: "adjacent", cand: candidate("t1", "r1", "k1", "10:00", "11:00"), wantDims: []Dimension{DimensionTeacher, DimensionClassroom, DimensionClass}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Conflicts(tt.cand, existing))
			assert.Equal(t, tt.wantDims, SharedDimensions(tt.cand, existing))
		})
	}

	t.Run("other school", func(t *testing.T) {
		c := candidate("t1", "r1", "k1", "08:00", "10:00")
		c.SchoolID = "s2"
		assert.False(t, Conflicts(c, existing))
	})
}

func TestConflictError_Error(t *testing.T) {
	err := &ConflictError{
		Candidate: Course{Day: "Monday", StartTime: "08:00", EndTime: "09:00"},
		Conflicts: []Conflict{
			{Dimensions: []Dimension{DimensionTeacher}},
			{Dimensions: []Dimension{DimensionTeacher, DimensionClass}},
		},
	}
	assert.EqualError(t, err, "conflict detected: teacher, class already booked on Monday between 08:00 and 09:00")
}

func TestNormalizeDay(t *testing.T) {
	assert.Equal(t, "Monday", normalizeDay(" MONDAY "))
	assert.Equal(t, "Friday", normalizeDay("friday"))
	assert.Equal(t, "", normalizeDay(""))
}

func TestWeekdayIndex(t *testing.T) {
	assert.Equal(t, 0, WeekdayIndex("Monday"))
	assert.Equal(t, 4, WeekdayIndex("Friday"))
	assert.Equal(t, 6, WeekdayIndex("Sunday"))
	assert.Equal(t, 7, WeekdayIndex("Someday"))
	assert.Less(t, WeekdayIndex("Tuesday"), WeekdayIndex("Saturday"), "not alphabetical")
}
