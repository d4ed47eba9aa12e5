// Package catalog turns browse requests into filtered, paginated pages of
// catalog items.
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	AllPages = "All Pages"
	AllYears = "All Years"

	DefaultPerPage = 12
)

var (
	ErrInvalidPagesRange = errors.New("invalid pages range")
	ErrInvalidCentury    = errors.New("invalid century")
)

// PageSizes are the accepted per-page values.
var PageSizes = []int{12, 20, 50, 100}

// PagesRanges lists the page-count buckets offered to the UI.
var PagesRanges = []string{AllPages, "1-100", "101-200", "201-300", "301-400", "401-500", "501+"}

// Centuries lists the century buckets offered to the UI.
var Centuries = []string{
	AllYears,
	"16th century",
	"17th century",
	"18th century",
	"19th century",
	"20th century",
	"21st century",
}

// Query is one browse request.
type Query struct {
	Search     string `form:"search" json:"search"`
	Country    string `form:"country" json:"country"`
	Language   string `form:"language" json:"language"`
	PagesRange string `form:"pages" json:"pages"`
	Century    string `form:"century" json:"century"`
	Page       int    `form:"page" json:"page"`
	PerPage    int    `form:"per_page" json:"per_page"`
}

// Bounds is an inclusive range; zero means unbounded.
type Bounds struct {
	Min int
	Max int
}

// ParsePagesRange parses "All Pages", "N-M" or "N+".
func ParsePagesRange(s string) (Bounds, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == AllPages {
		return Bounds{}, nil
	}

	if lower, ok := strings.CutSuffix(s, "+"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(lower))
		if err != nil || n < 0 {
			return Bounds{}, fmt.Errorf("%w: %q", ErrInvalidPagesRange, s)
		}
		return Bounds{Min: n}, nil
	}

	loStr, hiStr, ok := strings.Cut(s, "-")
	if !ok {
		return Bounds{}, fmt.Errorf("%w: %q", ErrInvalidPagesRange, s)
	}
	lo, err1 := strconv.Atoi(strings.TrimSpace(loStr))
	hi, err2 := strconv.Atoi(strings.TrimSpace(hiStr))
	if err1 != nil || err2 != nil || lo < 0 || hi < lo {
		return Bounds{}, fmt.Errorf("%w: %q", ErrInvalidPagesRange, s)
	}
	return Bounds{Min: lo, Max: hi}, nil
}

var centuryPattern = regexp.MustCompile(`(?i)^(\d+)(st|nd|rd|th)(\s+century)?$`)

// ParseCentury parses "All Years" or an ordinal century such as
// "21st century" into the years it covers: the Nth century spans
// (N-1)*100+1 through N*100.
func ParseCentury(s string) (Bounds, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == AllYears {
		return Bounds{}, nil
	}

	m := centuryPattern.FindStringSubmatch(s)
	if m == nil {
		return Bounds{}, fmt.Errorf("%w: %q", ErrInvalidCentury, s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return Bounds{}, fmt.Errorf("%w: %q", ErrInvalidCentury, s)
	}
	return Bounds{Min: (n-1)*100 + 1, Max: n * 100}, nil
}

// NormalizePerPage returns perPage if it is an accepted size, otherwise
// DefaultPerPage.
func NormalizePerPage(perPage int) int {
	if slices.Contains(PageSizes, perPage) {
		return perPage
	}
	return DefaultPerPage
}

// TotalPages returns the number of pages for total items, at least 1.
func TotalPages(total int64, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// ClampPage keeps page within [1, totalPages].
func ClampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if totalPages >= 1 && page > totalPages {
		return totalPages
	}
	return page
}
