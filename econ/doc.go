// Package econ holds the numerical routines shared by the estimation
// packages: long-run (HAC) covariance matrices of score and moment
// contributions, matrix inversion with explicit singular-design errors,
// and a common results type from which standard errors, t-statistics,
// and p-values are derived.
package econ
