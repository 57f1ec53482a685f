// Package repository provides generic no-tracking repositories built on Bun.
//
// A ReadOnlyRepository reads single rows, streams lists as iterators and
// checks existence; a CrudRepository adds detached inserts, removal of a
// single matching row and updates of all or selected columns. Operations
// that need a second type parameter, such as projections, are free
// functions taking a ReadOnlyRepository.
package repository
