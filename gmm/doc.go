// Package gmm estimates parameters by the generalized method of
// moments.  A caller supplies a per-observation moment-condition
// function; exactly identified systems are solved by root-finding,
// overidentified systems by a weighted quadratic loss with optional
// iterative refinement of the weighting matrix toward the efficient
// choice, or by linear recombination of the moments into an exactly
// identified subsystem.
package gmm
