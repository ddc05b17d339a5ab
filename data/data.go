// Package data loads delimited text files into keyed column tables and
// assembles the dense numeric arrays consumed by the estimation
// packages, which never depend on this package themselves.
package data

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/kshedden/dstream/dstream"
	"gonum.org/v1/gonum/mat"
)

// Table maps column names to numeric vectors, all of the same length.
type Table struct {
	names []string
	cols  map[string][]float64
	nobs  int
}

// FromCSV reads the named float columns from comma-separated data with
// a header row.  Cells holding the token NaN parse to NaN and flow
// through the estimation packages' missing-value handling.
func FromCSV(r io.Reader, names ...string) (*Table, error) {

	if len(names) == 0 {
		panic("data: at least one column name is required")
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("data: %v", err)
	}

	// Check the requested names against the header before handing the
	// stream off.
	head, err := csv.NewReader(bytes.NewReader(raw)).Read()
	if err != nil {
		return nil, fmt.Errorf("data: reading header: %v", err)
	}
	have := make(map[string]bool, len(head))
	for _, na := range head {
		have[strings.TrimSpace(na)] = true
	}
	for _, na := range names {
		if !have[na] {
			return nil, fmt.Errorf("data: column %q not found", na)
		}
	}

	types := make([]dstream.VarType, len(names))
	for j, na := range names {
		types[j] = dstream.VarType{Name: na, Type: dstream.Float64}
	}

	dst := dstream.FromCSV(bytes.NewReader(raw)).SetTypes(types).HasHeader().Done()
	dsc := dstream.MemCopy(dst, false)

	cols := make(map[string][]float64, len(names))
	pos := make(map[string]int)
	for k, na := range dsc.Names() {
		pos[na] = k
	}

	dsc.Reset()
	for dsc.Next() {
		for _, na := range names {
			cols[na] = append(cols[na], dsc.GetPos(pos[na]).([]float64)...)
		}
	}

	nobs := len(cols[names[0]])
	for _, na := range names {
		if len(cols[na]) != nobs {
			return nil, fmt.Errorf("data: column %q has %d rows, want %d", na, len(cols[na]), nobs)
		}
	}

	return &Table{names: names, cols: cols, nobs: nobs}, nil
}

// FromDelimited is like FromCSV but accepts whitespace-separated data;
// runs of spaces and tabs are treated as one separator, and the tokens
// "NA", "NaN" and empty cells become NaN.
func FromDelimited(r io.Reader, names ...string) (*Table, error) {

	var buf bytes.Buffer
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		for j, f := range fields {
			if f == "NA" || f == "" {
				fields[j] = "NaN"
			}
		}
		buf.WriteString(strings.Join(fields, ","))
		buf.WriteString("\n")
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("data: %v", err)
	}

	return FromCSV(&buf, names...)
}

// Names returns the column names in load order.
func (tb *Table) Names() []string { return tb.names }

// NumObs returns the number of rows.
func (tb *Table) NumObs() int { return tb.nobs }

// Col returns the column with the given name; it panics on an unknown
// name, which is a caller error.
func (tb *Table) Col(name string) []float64 {
	c, ok := tb.cols[name]
	if !ok {
		msg := fmt.Sprintf("data: unknown column %q", name)
		panic(msg)
	}
	return c
}

// Matrix assembles the named columns into a dense observation matrix,
// one column per name.
func (tb *Table) Matrix(names ...string) *mat.Dense {

	x := mat.NewDense(tb.nobs, len(names), nil)
	for j, na := range names {
		col := tb.Col(na)
		for t := 0; t < tb.nobs; t++ {
			x.Set(t, j, col[t])
		}
	}
	return x
}

// Design assembles a regressor matrix from the named columns,
// prepending a constant column when withConst is set.
func (tb *Table) Design(withConst bool, names ...string) *mat.Dense {

	nvar := len(names)
	off := 0
	if withConst {
		nvar++
		off = 1
	}

	x := mat.NewDense(tb.nobs, nvar, nil)
	if withConst {
		for t := 0; t < tb.nobs; t++ {
			x.Set(t, 0, 1)
		}
	}
	for j, na := range names {
		col := tb.Col(na)
		for t := 0; t < tb.nobs; t++ {
			x.Set(t, j+off, col[t])
		}
	}
	return x
}
