package panel

// FixedIndivEffects removes entity fixed effects: each entity's own
// time mean, computed over that entity's valid periods only, is
// subtracted from its observations.  An entity with no valid period
// contributes nothing and comes out as zeros.  The input is not
// mutated.
func FixedIndivEffects(d *Data) *Data {
	z := d.zeroed()
	demeanOverPeriods(z)
	return z
}

// FixedIndivTimeEffects removes entity fixed effects first, then time
// fixed effects: after demeaning within entities, a second demeaning
// pass runs across entities within each period, again restricted to
// valid cells.
func FixedIndivTimeEffects(d *Data) *Data {
	z := d.zeroed()
	demeanOverPeriods(z)
	demeanOverEntities(z)
	return z
}

// FixedTimeIndivEffects removes time fixed effects first, then entity
// fixed effects.  Under a balanced panel the point estimates match
// FixedIndivTimeEffects; the variant exists for the T > N case.
func FixedTimeIndivEffects(d *Data) *Data {
	z := d.zeroed()
	demeanOverEntities(z)
	demeanOverPeriods(z)
	return z
}

// demeanOverPeriods subtracts, for every variable and entity, the
// entity's mean over its valid periods.  Operates in place on a
// zeroed copy.
func demeanOverPeriods(d *Data) {

	nper, nent, _ := d.Dims()

	for _, a := range d.matrices() {
		for i := 0; i < nent; i++ {
			var sum float64
			var n int
			for t := 0; t < nper; t++ {
				if d.valid[t][i] {
					sum += a.At(t, i)
					n++
				}
			}
			if n == 0 {
				continue
			}
			mn := sum / float64(n)
			for t := 0; t < nper; t++ {
				if d.valid[t][i] {
					a.Set(t, i, a.At(t, i)-mn)
				}
			}
		}
	}
}

// demeanOverEntities subtracts, for every variable and period, the
// period's mean over its valid entities.
func demeanOverEntities(d *Data) {

	nper, nent, _ := d.Dims()

	for _, a := range d.matrices() {
		for t := 0; t < nper; t++ {
			var sum float64
			var n int
			for i := 0; i < nent; i++ {
				if d.valid[t][i] {
					sum += a.At(t, i)
					n++
				}
			}
			if n == 0 {
				continue
			}
			mn := sum / float64(n)
			for i := 0; i < nent; i++ {
				if d.valid[t][i] {
					a.Set(t, i, a.At(t, i)-mn)
				}
			}
		}
	}
}
