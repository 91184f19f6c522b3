// Package bresenham rasterizes straight integer line segments into dense
// 2D and 3D grids.
//
// # Overview
//
// [DrawLines] marks every cell on the discrete path of each segment in a
// batch, both endpoints included, by storing 1 into a caller-owned [Grid].
// The traversal is integer-only:
//
//   - 2D segments use the classic Bresenham error accumulator.
//   - 3D segments step one unit along the driving axis (the axis with the
//     largest absolute delta) on every iteration and carry doubled-delta
//     error terms for the two other axes.
//
// Consecutive path cells never differ by more than one unit per coordinate,
// so paths are 8-connected in 2D and 26-connected in 3D.
//
// # Coordinates
//
// Coordinate k of a point indexes axis k of the grid. A 2D segment
// (x0, y0, x1, y1) therefore marks grid.At(x, y) cells, and a grid of
// shape (n, n) holds a main diagonal from (0, 0) to (n-1, n-1).
//
// # Determinism
//
// Each segment is walked from its lexicographically smaller endpoint, so a
// segment and its reverse mark the same cells. When two axes tie for the
// largest delta, [DrivingAxis] picks the lowest axis index. Tied axes both
// step on every iteration, so the marked cells do not depend on that choice.
//
// # Validation
//
// The whole batch is validated before any cell is written. A grid rank
// other than 2 or 3, or a segment whose length is not twice the grid rank,
// fails with [ErrDimensionMismatch]. Any endpoint outside the grid fails with
// [ErrOutOfRange]; a straight segment between two in-bounds endpoints never
// leaves the grid, so no write can go out of range.
//
// # Usage
//
//	grid := bresenham.NewGrid(100, 100)
//	err := bresenham.DrawLines([]bresenham.Segment{{0, 0, 99, 99}}, grid)
//
// [DrawLinesParallel] splits the batch across goroutines. All writes store
// the same constant, so the result equals [DrawLines] for the same batch.
package bresenham
