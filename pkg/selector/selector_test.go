package selector

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/lepdl/pkg/domain"
)

// archive makes episodes 1..758, one per day from 2009-04-12, plus three text-only posts
func archive() []domain.Episode {
	start := domain.NewDate(2009, time.April, 12)
	var res []domain.Episode
	for _, day := range []int{0, 100, 200} {
		d := domain.DateOf(start.Time().AddDate(0, 0, day))
		res = append(res, domain.Episode{Date: d, Title: fmt.Sprintf("text %d", day), FileName: fmt.Sprintf("[%s] # text", d)})
	}
	for i := 1; i <= 758; i++ {
		d := domain.DateOf(start.Time().AddDate(0, 0, i-1))
		res = append(res, domain.Episode{Number: i, Date: d, Title: fmt.Sprintf("%d. episode", i)})
	}
	return res
}

func nums(eps []domain.Episode) []int {
	res := make([]int, 0, len(eps))
	for _, e := range eps {
		res = append(res, e.Number)
	}
	return res
}

func mustRange(t *testing.T, s string) NumberRange {
	t.Helper()
	r, err := ParseRange(s)
	require.NoError(t, err)
	return r
}

func TestSelect_Numbers(t *testing.T) {
	eps := archive()

	t.Run("open upper bound", func(t *testing.T) {
		assert.Equal(t, []int{755, 756, 757, 758}, nums(Select(eps, Criteria{Numbers: mustRange(t, "755-")})))
	})

	t.Run("open lower bound skips text-only", func(t *testing.T) {
		got := nums(Select(eps, Criteria{Numbers: mustRange(t, "-10")}))
		assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got)
	})

	t.Run("zero range is text-only", func(t *testing.T) {
		got := Select(eps, Criteria{Numbers: mustRange(t, "0-0")})
		assert.Equal(t, []int{0, 0, 0}, nums(got))
	})

	t.Run("explicit zero lower bound includes text-only", func(t *testing.T) {
		assert.Equal(t, []int{0, 0, 0, 1, 2}, nums(Select(eps, Criteria{Numbers: mustRange(t, "0-2")})))
	})

	t.Run("single", func(t *testing.T) {
		assert.Equal(t, []int{100}, nums(Select(eps, Criteria{Numbers: mustRange(t, "100")})))
	})

	t.Run("closed", func(t *testing.T) {
		assert.Equal(t, []int{10, 11, 12}, nums(Select(eps, Criteria{Numbers: mustRange(t, "10-12")})))
	})

	t.Run("start after end", func(t *testing.T) {
		assert.Empty(t, Select(eps, Criteria{Numbers: mustRange(t, "12-10")}))
	})

	t.Run("out of domain", func(t *testing.T) {
		assert.Empty(t, Select(eps, Criteria{Numbers: mustRange(t, "900")}))
		assert.Empty(t, Select(eps, Criteria{Numbers: mustRange(t, "900-")}))
	})

	t.Run("open bound without numbered episodes", func(t *testing.T) {
		assert.Empty(t, Select(eps[:3], Criteria{Numbers: mustRange(t, "-5")}))
	})

	t.Run("zero lower bound without numbered episodes", func(t *testing.T) {
		textOnly := eps[:3]
		assert.Equal(t, []int{0, 0, 0}, nums(Select(textOnly, Criteria{Numbers: mustRange(t, "0-")})))
		assert.Equal(t, nums(Select(textOnly, Criteria{Numbers: mustRange(t, "0-0")})),
			nums(Select(textOnly, Criteria{Numbers: mustRange(t, "0-")})))
		assert.Empty(t, Select(textOnly, Criteria{Numbers: mustRange(t, "1-")}))
	})
}

func TestSelect_Dates(t *testing.T) {
	eps := archive()

	t.Run("closed range", func(t *testing.T) {
		got := Select(eps, Criteria{Dates: DateRange{
			From: domain.NewDate(2009, time.April, 12), To: domain.NewDate(2009, time.April, 14)}})
		assert.Equal(t, []int{0, 1, 2, 3}, nums(got))
	})

	t.Run("open end", func(t *testing.T) {
		last := eps[len(eps)-1].Date
		got := Select(eps, Criteria{Dates: DateRange{From: last}})
		assert.Equal(t, []int{758}, nums(got))
	})

	t.Run("open start", func(t *testing.T) {
		got := Select(eps, Criteria{Dates: DateRange{To: domain.NewDate(2009, time.April, 13)}})
		assert.Equal(t, []int{0, 1, 2}, nums(got))
	})

	t.Run("start after end", func(t *testing.T) {
		got := Select(eps, Criteria{Dates: DateRange{From: domain.NewDate(2012, time.January, 2), To: domain.NewDate(2012, time.January, 1)}})
		assert.Empty(t, got)
	})

	t.Run("no episodes", func(t *testing.T) {
		assert.Empty(t, Select(nil, Criteria{Dates: DateRange{From: domain.NewDate(2012, time.January, 2)}}))
	})
}

func TestSelect_Precedence(t *testing.T) {
	eps := archive()
	dates := DateRange{From: domain.NewDate(2009, time.April, 13), To: domain.NewDate(2009, time.April, 13)}

	c := Criteria{Dates: dates, Numbers: mustRange(t, "700-")}
	assert.True(t, c.Conflicting())
	assert.Equal(t, []int{2}, nums(Select(eps, c)), "date beats range")

	c.Last = true
	assert.Equal(t, []int{758}, nums(Select(eps, c)), "last beats everything")

	assert.Len(t, Select(eps, Criteria{}), len(eps))
	assert.Empty(t, Select(nil, Criteria{Last: true}))
}

func TestSelect_Last(t *testing.T) {
	d := domain.NewDate(2020, time.January, 1)
	eps := []domain.Episode{
		{Number: 5, Date: d, Title: "a"},
		{Number: 5, Date: domain.NewDate(2020, time.January, 2), Title: "b"},
		{Number: 0, Date: domain.NewDate(2021, time.January, 1), Title: "text"},
	}
	got := Select(eps, Criteria{Last: true})
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Title)
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in   string
		want NumberRange
		err  bool
	}{
		{in: "", want: NumberRange{}},
		{in: "7", want: NumberRange{From: 7, To: 7, HasFrom: true, HasTo: true}},
		{in: " 3-5 ", want: NumberRange{From: 3, To: 5, HasFrom: true, HasTo: true}},
		{in: "755-", want: NumberRange{From: 755, HasFrom: true}},
		{in: "-10", want: NumberRange{To: 10, HasTo: true}},
		{in: "0-0", want: NumberRange{HasFrom: true, HasTo: true}},
		{in: "-", err: true},
		{in: "a-5", err: true},
		{in: "1-2-3", err: true},
		{in: "+5", err: true},
		{in: "5.5", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRange(tt.in)
			if tt.err {
				require.ErrorIs(t, err, ErrBadRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumberRange_String(t *testing.T) {
	assert.Equal(t, "", NumberRange{}.String())
	assert.Equal(t, "7", mustRange(t, "7").String())
	assert.Equal(t, "755-", mustRange(t, "755-").String())
	assert.Equal(t, "-10", mustRange(t, "-10").String())
	assert.Equal(t, "1-3", mustRange(t, "1-3").String())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2020-01-01")
	require.NoError(t, err)
	assert.Equal(t, domain.NewDate(2020, time.January, 1), d)

	d, err = ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("01/01/2020")
	require.Error(t, err)
}
