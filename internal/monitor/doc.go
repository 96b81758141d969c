// Package monitor supervises the external audio monitor executable.
//
// The executable is an opaque black box that polls the sound devices, writes
// one JSON record per stdout line when something changes, and accepts text
// commands on stdin. This package owns that child process end to end:
//
//   - Start spawns it (polling delay and volume step as arguments, or
//     argument-free for the in-band command variant) and wires its streams.
//   - stdout is framed, decoded, diffed against the previous snapshot, and
//     delivered as change events carrying a per-field change mask.
//   - stderr and malformed records become error events; the pipeline never
//     stops because of one bad line.
//   - Stop runs a two-phase termination: SIGTERM to the process group, then
//     SIGKILL when the configurable graceful deadline (default 3s) passes,
//     reported as a forceExit event ahead of the final exit event.
//
// Lifecycle is idle → running → (stopping →) terminated. There is no
// automatic restart; the caller observes the exit event and decides.
//
// Example usage:
//
//	mon := monitor.New(monitor.Config{
//	    Binary:     "./af-win-audio.exe",
//	    PollDelay:  250 * time.Millisecond,
//	    VolumeStep: 5,
//	})
//	mon.OnChange(func(ev monitor.ChangeEvent) {
//	    if ev.Changed.Volume {
//	        fmt.Println("volume:", ev.Snapshot.Volume)
//	    }
//	})
//
//	if err := mon.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mon.Shutdown(ctx)
//
//	mon.SetVolume(40)
package monitor
