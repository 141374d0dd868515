// Package sim provides an in-memory channel.Provider.
//
// The simulated provider backs tests, examples and the sigio-mon CLI.
// Each point holds a value, metadata and per-point connection and
// access-rights state; test code drives monitor, connection and access
// callbacks by mutating points through the provider:
//
//	p := sim.NewProvider()
//	p.Define(sim.Point{Name: "motor.RBV", Value: 0.0})
//	p.SetValue("motor.RBV", 9.6)     // fires monitor callbacks
//	p.SetConnected("motor.RBV", false)
//
// Puts can be shaped with a hook to simulate sluggish or stuck hardware.
package sim
