// Package txreport reduces booking transactions into a summary: count,
// revenue and the most frequent vehicle, month and destination.
package txreport
