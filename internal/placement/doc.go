// Package placement holds the desk adjacency rules, the position and group
// role tables, and the validator that keeps developers and testers off
// neighbouring desks.
//
// Two adjacency definitions exist and a deployment picks one:
//   - suffix: desk numbers of equal length that differ only in a trailing digit
//     by one are neighbours; otherwise desks with grid coordinates are
//     neighbours when their Chebyshev distance is at most one.
//   - numeric: integer desk numbers are neighbours when they differ by one.
//
// Pairs that neither rule can decide are not neighbours and are reported as
// DataIntegrityWarning values.
package placement
