// Package compose implements composite source generation: building a single
// harmonized best-estimate dataset out of several overlapping,
// partially-missing source datasets.
//
// Sources are ranked per region of the data by a PriorityDefinition. The
// highest-priority source initializes each result timeseries; remaining
// missing values are filled from lower-priority sources through the filling
// strategies configured in a StrategyDefinition. Statistical strategies
// harmonize the lower-priority data before splicing it in, either with one
// global least-squares fit or gap by gap with boundary-matched trend scaling.
//
// Every change to a result timeseries is recorded as a
// ProcessingStepDescription, so each composed value can be traced back to the
// source and method that produced it.
package compose
