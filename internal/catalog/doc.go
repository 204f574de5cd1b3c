// Package catalog holds the sensor catalog, the occupied-room registry and the
// per-room threshold configuration used to decide whether a reading is an
// emergency.
//
// Rooms are immutable once built. The Registry swaps whole snapshots so a
// reader always sees either the previous or the next configuration.
package catalog
