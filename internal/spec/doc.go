// Package spec models binding specification documents.
//
// A document is read from TOML, JSON or YAML into a generic map and then
// decoded into typed values. Only the header version is a hard requirement
// (it must satisfy SupportedVersion); every other defect is reported as a
// diag.Problem and the offending entry is dropped, so a partially broken
// document still yields a usable binding set.
//
// Binding items are decoded into Item, a partial structure whose unset
// fields are nil. Merge combines a path default with an item: scalars from
// the item win, when clauses concatenate, and argument maps deep-merge.
package spec
