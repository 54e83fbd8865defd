package io

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest records the effective parameters of a run next to its
// snapshots, so a results directory is self-describing.
type Manifest struct {
	RunName string    `yaml:"run_name"`
	Started time.Time `yaml:"started"`

	NParts    int     `yaml:"n_parts"`
	TotalMass float64 `yaml:"total_mass,omitempty"`
	Radius    float64 `yaml:"radius,omitempty"`
	Seed      int64   `yaml:"seed,omitempty"`
	Input     string  `yaml:"input,omitempty"`

	Theta     float64 `yaml:"theta"`
	Softening float64 `yaml:"softening"`
	Dt        float64 `yaml:"dt"`
	Steps     int     `yaml:"steps"`
	SaveEvery int     `yaml:"save_every"`
	G         float64 `yaml:"grav_const"`
	Workers   int     `yaml:"workers"`
}

// NewManifest fills a manifest from the run configuration. NParts is
// passed separately because it may come from an input table rather
// than the config.
func NewManifest(name string, nParts int, con *RunConfig) *Manifest {
	return &Manifest{
		RunName:   name,
		Started:   time.Now(),
		NParts:    nParts,
		TotalMass: con.TotalMass,
		Radius:    con.Radius,
		Seed:      con.Seed,
		Input:     con.Input,
		Theta:     con.Theta,
		Softening: con.Softening,
		Dt:        con.Dt,
		Steps:     con.Steps,
		SaveEvery: con.SaveEvery,
		G:         con.G,
		Workers:   con.Workers,
	}
}

// WriteManifest writes the manifest as YAML.
func WriteManifest(fname string, m *Manifest) error {
	buf, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(fname, buf, 0666)
}
