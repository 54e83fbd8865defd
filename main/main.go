package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"strings"

	"github.com/ofenerci/behalf"
	"github.com/ofenerci/behalf/body"
	"github.com/ofenerci/behalf/io"
)

func main() {
	var (
		run           string
		exampleConfig string
	)
	vars := map[string]*string{
		"Run":           &run,
		"ExampleConfig": &exampleConfig,
	}

	flag.StringVar(
		&run, "Run", "",
		"Configuration file for [Run] mode.",
	)
	flag.StringVar(
		&exampleConfig, "ExampleConfig", "",
		"Prints an example configuration file of the specified type to "+
			"stdout. The only accepted argument is 'Run'.",
	)

	flag.Parse()

	modeName, err := getModeName(vars)
	if err != nil {
		log.Fatal(err.Error())
	}

	switch modeName {
	case "Run":
		con, err := io.ReadRunConfig(run)
		if err != nil {
			log.Fatal(err.Error())
		}
		if err := con.CheckInit(); err != nil {
			log.Fatal(err.Error())
		}
		runMain(con)
	case "ExampleConfig":
		switch exampleConfig {
		case "Run":
			fmt.Println(io.ExampleRunFile)
		default:
			log.Fatal(
				"Unrecognized 'ExampleConfig' argument. The only recognized " +
					"argument is 'Run'.",
			)
		}
	default:
		panic("Impossible")
	}
}

func getModeName(vars map[string]*string) (string, error) {
	setNames := []string{}

	for name, varPtr := range vars {
		if *varPtr != "" {
			setNames = append(setNames, name)
		}
	}

	if len(setNames) == 0 {
		return "", fmt.Errorf("No flags have been set.")
	}

	if len(setNames) > 1 {
		return "", fmt.Errorf(
			"The following flags were set: %s, but behalf only accepts "+
				"one flag at a time.",
			strings.Join(setNames, ", "),
		)
	}

	return setNames[0], nil
}

func runMain(con *io.RunConfig) {
	outDir := con.Output
	if err := setupOutputDir(outDir, con.Clobber); err != nil {
		log.Fatal(err.Error())
	}

	if con.ValidLogFile() {
		f, err := os.Create(con.LogFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		defer f.Close()
		log.SetOutput(f)
	}

	s, err := loadParticles(con)
	if err != nil {
		log.Fatal(err.Error())
	}
	log.Printf("Loaded %d particles.", s.N())

	sim, err := behalf.New(con.Config(), s)
	if err != nil {
		log.Fatal(err.Error())
	}

	energies, err := io.CreateEnergyLog(path.Join(outDir, "energy.dat"))
	if err != nil {
		log.Fatal(err.Error())
	}
	defer energies.Close()

	sim.OnSnapshot(func(snap *behalf.Snapshot) error {
		return io.WriteSnapshot(io.SnapshotPath(outDir, snap.Step), snap)
	})
	sim.OnDiagnostics(func(d *behalf.Diagnostics) {
		if err := energies.Append(d); err != nil {
			log.Fatal(err.Error())
		}
	})

	man := io.NewManifest(path.Base(outDir), s.N(), con)
	if err := io.WriteManifest(path.Join(outDir, "run.yaml"), man); err != nil {
		log.Fatal(err.Error())
	}

	if err := sim.Run(); err != nil {
		log.Fatal(err.Error())
	}
	log.Printf("Run finished. Output written to %s.", outDir)
}

func loadParticles(con *io.RunConfig) (*body.System, error) {
	if con.ValidInput() {
		return io.ReadInitialConditions(con.Input)
	}
	return body.Plummer(
		con.NParts, con.Radius, con.TotalMass, con.G, con.Seed,
	), nil
}

func setupOutputDir(dir string, clobber bool) error {
	if _, err := os.Stat(dir); err == nil && !clobber {
		return fmt.Errorf(
			"Output directory '%s' already exists. Set 'Clobber = true' "+
				"to overwrite it.", dir,
		)
	}
	return os.MkdirAll(dir, 0777)
}
