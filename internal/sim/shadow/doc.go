// Package shadow derives the two axis shadows of a voxel set, compares them
// with goal shadows, and solves for extremal voxel sets that cast a given pair
// of goal shadows.
//
// Every derivation has a pure form over complete collections (Project, Errors,
// Maximal, Minimal, MinimalCardinality) and an incremental form that consumes
// deltas (Projector, Differ, MaximalSolver, MinimalCounter). The incremental
// forms produce the same results as the pure ones applied to the integrated
// inputs.
package shadow
