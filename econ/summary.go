package econ

import (
	"bytes"
	"fmt"
	"strings"
)

// SummaryTable renders the coefficient table for a fitted model as
// text.  It is consumed by downstream reporting; the estimation
// packages only fill it in.
type SummaryTable struct {

	// Title of the table
	Title string

	// Values displayed above the coefficient rows, e.g. the
	// number of observations or the covariance estimator used.
	Top []string

	// Column names
	ColNames []string

	// Cols[j] is the j'th column, either []string or []float64.
	Cols []interface{}

	// Messages displayed below the table
	Msg []string
}

// CoefSummary builds a standard coefficient table from a results
// value.
func CoefSummary(rslt *BaseResults, title string, top []string) *SummaryTable {

	s := &SummaryTable{
		Title: title,
		Top:   top,
	}

	if rslt.VCov() == nil {
		s.ColNames = []string{"Variable", "Coef"}
		s.Cols = []interface{}{rslt.Names(), rslt.Params()}
		s.Msg = append(s.Msg, "Standard errors not available")
		return s
	}

	s.ColNames = []string{"Variable", "Coef", "StdErr", "t-stat", "p-value"}
	s.Cols = []interface{}{
		rslt.Names(),
		rslt.Params(),
		rslt.StdErr(),
		rslt.TStats(),
		rslt.PValues(),
	}

	return s
}

// String returns the rendered table.
func (s *SummaryTable) String() string {

	tab := make([][]string, len(s.Cols))
	wx := make([]int, len(s.Cols))
	for j, c := range s.Cols {
		switch v := c.(type) {
		case []string:
			tab[j] = v
		case []float64:
			u := make([]string, len(v))
			for i, x := range v {
				u[i] = fmt.Sprintf("%12.4f", x)
			}
			tab[j] = u
		default:
			panic("econ: unsupported summary column type")
		}
		wx[j] = len(s.ColNames[j])
		for _, u := range tab[j] {
			if len(u) > wx[j] {
				wx[j] = len(u)
			}
		}
	}

	tw := 0
	for _, w := range wx {
		tw += w + 2
	}
	if tw < len(s.Title) {
		tw = len(s.Title)
	}

	var buf bytes.Buffer
	line := func(c string) {
		buf.WriteString(strings.Repeat(c, tw) + "\n")
	}

	k := (tw - len(s.Title)) / 2
	if k < 0 {
		k = 0
	}
	buf.WriteString(strings.Repeat(" ", k) + s.Title + "\n")
	line("=")

	for _, t := range s.Top {
		buf.WriteString(t + "\n")
	}
	if len(s.Top) > 0 {
		line("-")
	}

	for j, c := range s.ColNames {
		buf.WriteString(fmt.Sprintf("%*s  ", wx[j], c))
	}
	buf.WriteString("\n")
	line("-")

	for i := 0; i < len(tab[0]); i++ {
		for j := range tab {
			buf.WriteString(fmt.Sprintf("%*s  ", wx[j], tab[j][i]))
		}
		buf.WriteString("\n")
	}
	line("-")

	for _, m := range s.Msg {
		buf.WriteString(m + "\n")
	}

	return buf.String()
}
