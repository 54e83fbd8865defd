package io

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ofenerci/behalf"
	"github.com/ofenerci/behalf/body"
)

// SnapshotPath returns the file name for the snapshot of a given step
// inside dir.
func SnapshotPath(dir string, step int) string {
	return path.Join(dir, fmt.Sprintf("step_%d.dat", step))
}

// WriteSnapshot writes one snapshot as a plain text table: a commented
// header followed by one "x y z vx vy vz" row per particle, in particle
// index order.
func WriteSnapshot(fname string, snap *behalf.Snapshot) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# step %d\n", snap.Step)
	fmt.Fprintf(w, "# time %g\n", snap.Time)
	fmt.Fprintf(w, "# nparts %d\n", len(snap.Pos))
	fmt.Fprintf(w, "# %12s %14s %14s %14s %14s %14s\n",
		"x", "y", "z", "vx", "vy", "vz")

	for i := range snap.Pos {
		p, v := &snap.Pos[i], &snap.Vel[i]
		_, err := fmt.Fprintf(w, "%14.8g %14.8g %14.8g %14.8g %14.8g %14.8g\n",
			p.X, p.Y, p.Z, v.X, v.Y, v.Z)
		if err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadSnapshot reads a file written by WriteSnapshot back into a
// snapshot. The header is parsed for the step and time; unknown
// comment lines are skipped.
func ReadSnapshot(fname string) (*behalf.Snapshot, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snap := &behalf.Snapshot{}

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "#") {
			fields := strings.Fields(strings.TrimPrefix(text, "#"))
			if len(fields) == 2 {
				switch fields[0] {
				case "step":
					snap.Step, _ = strconv.Atoi(fields[1])
				case "time":
					snap.Time, _ = strconv.ParseFloat(fields[1], 64)
				}
			}
			continue
		}

		xs, err := parseFloats(text, 6)
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %v", fname, line, err)
		}
		snap.Pos = append(snap.Pos, r3.Vec{X: xs[0], Y: xs[1], Z: xs[2]})
		snap.Vel = append(snap.Vel, r3.Vec{X: xs[3], Y: xs[4], Z: xs[5]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(snap.Pos) == 0 {
		return nil, fmt.Errorf("%s contains no particles.", fname)
	}
	return snap, nil
}

// ReadInitialConditions reads a particle table of "x y z vx vy vz mass"
// rows into a system. Comment lines start with '#'.
func ReadInitialConditions(fname string) (*body.System, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s := body.NewSystem(0)

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		xs, err := parseFloats(text, 7)
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %v", fname, line, err)
		}
		s.Pos = append(s.Pos, r3.Vec{X: xs[0], Y: xs[1], Z: xs[2]})
		s.Vel = append(s.Vel, r3.Vec{X: xs[3], Y: xs[4], Z: xs[5]})
		s.Acc = append(s.Acc, r3.Vec{})
		s.Mass = append(s.Mass, xs[6])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %v", fname, err)
	}
	return s, nil
}

func parseFloats(text string, n int) ([]float64, error) {
	fields := strings.Fields(text)
	if len(fields) != n {
		return nil, fmt.Errorf("got %d columns, wanted %d", len(fields), n)
	}
	xs := make([]float64, n)
	for i, field := range fields {
		x, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		xs[i] = x
	}
	return xs, nil
}
