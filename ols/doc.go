// Package ols fits one or several linear regressions sharing the same
// regressor matrix by least squares, with a selectable covariance
// estimator for the coefficients: classical i.i.d., White
// heteroskedasticity-robust, Newey-West and Hodrick-Hansen HAC, and
// one-way cluster-robust.
package ols
