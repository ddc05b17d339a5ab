package ols

import (
	"math"
	"os"
	"testing"

	"github.com/RolfLobo/FinancialEconometrics/data"
)

// TestFactorModel reproduces the three-factor regression on the
// monthly factor dataset when the file is available in testdata.
func TestFactorModel(t *testing.T) {

	fname := "testdata/FFmFactorsPs.csv"
	fid, err := os.Open(fname)
	if err != nil {
		t.Skipf("factor dataset %s not present", fname)
	}
	defer fid.Close()

	tbl, err := data.FromCSV(fid, "RSMB", "RHML", "Rf", "R")
	if err != nil {
		t.Fatalf("loading factors: %v", err)
	}

	// Excess return of the test asset on SMB and HML.
	nobs := tbl.NumObs()
	re := make([]float64, nobs)
	r := tbl.Col("R")
	rf := tbl.Col("Rf")
	for i := range re {
		re[i] = (r[i] - rf[i]) / 100
	}

	x := tbl.Design(true, "RSMB", "RHML")
	for i := 0; i < nobs; i++ {
		x.Set(i, 1, x.At(i, 1)/100)
		x.Set(i, 2, x.At(i, 2)/100)
	}

	rslt, err := Single(re, x).Done().Fit()
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	wantB := []float64{0.007, 0.217, -0.429}
	wantSE := []float64{0.002, 0.073, 0.074}
	for k := range wantB {
		if math.Abs(rslt.Params()[k]-wantB[k]) > 1e-3 {
			t.Errorf("coefficient %d: %v, want %v", k, rslt.Params()[k], wantB[k])
		}
		if math.Abs(rslt.StdErr()[k]-wantSE[k]) > 1e-3 {
			t.Errorf("standard error %d: %v, want %v", k, rslt.StdErr()[k], wantSE[k])
		}
	}

	if math.Abs(rslt.RSquared()[0]-0.134) > 5e-3 {
		t.Errorf("R2 = %v, want about 0.134", rslt.RSquared()[0])
	}
}
