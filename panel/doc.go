// Package panel works with panel data laid out as time by entity
// arrays: reshaping flat records into rectangular form, removing
// individual and time fixed effects by demeaning, and pooled
// least-squares estimation with panel-structured covariance
// estimators (Driscoll-Kraay, Arellano, cluster-robust).
//
// A missing value (NaN) in the response or in any regressor marks the
// whole (period, entity) observation as missing: it is excluded from
// every mean and every sum it would otherwise contribute to, but other
// cells of the same entity or period are unaffected.
package panel
