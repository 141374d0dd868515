// Package collector gathers hardware-produced time series.
//
// A Timeseries drives a remote-side circular buffer through five
// signals: a control word, the requested point count, the current point
// counter, and a pair of waveforms holding the sampled values and their
// timestamps. Kickoff arms the buffer, Collect stops it and drains the
// paired waveforms into Sample records, Stop aborts acquisition.
//
// Collected runs can be persisted to a Store, a SQLite-backed archive
// keyed by generated run IDs.
package collector
