// Package softbody simulates a tetrahedral mesh as a mass-spring network.
//
// Every tetrahedron edge becomes a spring. Mass is spread from tetrahedron
// volumes, vertices below the floor line are pinned, and vertices near the
// top of the mesh respond to the interactive force:
//
//   - [BuildTopology]: inverse masses, neighbor rows, pin and control flags
//   - [ParticleBuffer]: ping-pong positions and velocities
//   - [ForceField]: gravity, interactive force and floor penalty
//   - [Solver]: symplectic Euler substeps over the buffer
//   - [Scheduler]: one frame per tick, gated on the mesh load
//
// # Example
//
//	solver, _ := softbody.NewSolver(softbody.DefaultOptions())
//	sched := softbody.NewScheduler(solver, mesh.LoadAsync(ctx, "bar.msh", "bar.obj", mesh.DefaultTolerance), renderer)
//	for {
//		if _, err := sched.Tick(ctx); err != nil && !errors.Is(err, softbody.ErrNotReady) {
//			return err
//		}
//	}
//
// # Thread Safety
//
// Frames must be driven from one goroutine. SetForceMode and SetStiffness
// may be called concurrently; their values are latched at frame start.
package softbody
