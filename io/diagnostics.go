package io

import (
	"bufio"
	"fmt"
	"os"

	"github.com/ofenerci/behalf"
)

// EnergyLog appends per-boundary diagnostics to a text table readable
// by the plotting scripts: step, time, kinetic, potential, and total
// energy columns.
type EnergyLog struct {
	f *os.File
	w *bufio.Writer
}

// CreateEnergyLog creates (or truncates) the diagnostics table at
// fname and writes its header.
func CreateEnergyLog(fname string) (*EnergyLog, error) {
	f, err := os.Create(fname)
	if err != nil {
		return nil, err
	}

	l := &EnergyLog{f: f, w: bufio.NewWriter(f)}
	fmt.Fprintf(l.w, "# %6s %12s %14s %14s %14s %8s %10s\n",
		"step", "t", "KE", "PE", "E", "depth", "nodes")
	return l, nil
}

// Append writes one diagnostics row and flushes it, so the table stays
// readable while the run is still going.
func (l *EnergyLog) Append(d *behalf.Diagnostics) error {
	_, err := fmt.Fprintf(l.w, "%8d %12.6g %14.8g %14.8g %14.8g %8d %10d\n",
		d.Step, d.Time, d.Kinetic, d.Potential, d.Kinetic+d.Potential,
		d.TreeDepth, d.TreeNodes)
	if err != nil {
		return err
	}
	return l.w.Flush()
}

func (l *EnergyLog) Close() error {
	if err := l.w.Flush(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
