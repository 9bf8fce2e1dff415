// Package analysis characterises the response of a simulated soft body.
//
// The tools work on the per-frame records of a run:
//
//   - [Spectrum], [DominantFrequency]: oscillation frequency of the tip
//   - [DampingRatio]: logarithmic decrement of successive peaks
//   - [TipPhasePortrait], [ReturnMap]: phase space views of the tip
//   - [StiffnessSweep]: response of the bar across a range of stiffness values
//
// # Example
//
//	frames, _ := store.LoadFrames(runID)
//	tip := metrics.TipSeries(frames)
//	f := analysis.DominantFrequency(tip, 1.0/60)
package analysis
