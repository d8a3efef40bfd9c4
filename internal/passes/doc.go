// Package passes is kiln's concrete pipeline: the tags, markers and
// features it declares and the schedulables that check, simplify, fold,
// lower, verify and emit compilation units.
//
// Declaration order is significant: it is the tie-break when several
// steps could run next.
package passes
