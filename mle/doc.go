// Package mle maximizes a caller-supplied per-observation
// log-likelihood numerically and derives three covariance estimates
// for the parameters: from the information matrix, from the outer
// product of the gradients, and from the sandwich formula.  All three
// are always computed; their relative spread signals likelihood
// misspecification.
package mle
