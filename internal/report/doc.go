// Package report renders evaluation results: the instance summary CSV and
// text table, confusion dumps, precision/recall plots and HTML charts.
package report
