// Package viz renders a running soft body in the terminal.
//
// A [Model] is a Bubble Tea program that owns a softbody.Scheduler and
// advances it once per tick. Surface edges are drawn on a braille [Canvas]
// through an orbiting [Camera], with back facing edges culled using the
// vertex normals recomputed after every frame.
//
// # Key Bindings
//
//	←→↑↓ / wasd - Push the controllable top
//	q / e       - Twist counter-clockwise / clockwise
//	+ / -       - Scale the spring stiffness
//	Space       - Pause/Resume
//	R           - Reset to rest
//	T           - Cycle color themes
//	G           - Toggle GIF recording
//	?           - Show help overlay
//
// Terminals deliver no key release events, so a force stays applied for a
// short hold after the last key press.
package viz
