/*plot_energy plots the kinetic, potential, and total energy columns of
a run's energy.dat table against time.

Usage: $ plot_energy energy.dat out.png
*/
package main

import (
	"log"
	"os"

	plt "github.com/phil-mansfield/pyplot"
	"github.com/phil-mansfield/table"
)

func main() {
	if len(os.Args) != 3 {
		log.Fatalf("Required file use: $ %s energy_file out_file", os.Args[0])
	}
	energyFile, outFile := os.Args[1], os.Args[2]

	tCol, keCol, peCol, eCol := 1, 2, 3, 4
	cols, err := table.ReadTable(energyFile, []int{tCol, keCol, peCol, eCol}, nil)
	if err != nil {
		log.Fatal(err.Error())
	}
	ts, kes, pes, es := cols[0], cols[1], cols[2], cols[3]

	plt.Reset()
	plt.Figure()

	plt.Plot(ts, kes, plt.LW(2), plt.C("b"))
	plt.Plot(ts, pes, plt.LW(2), plt.C("r"))
	plt.Plot(ts, es, "k", plt.LW(3))

	plt.Title(`$KE$ (blue), $PE$ (red), $E$ (black)`)
	plt.XLabel(`$t$ $[{\rm Myr}]$`, plt.FontSize(16))
	plt.YLabel(`$E$ $[10^9 M_\odot\,{\rm kpc^2/Myr^2}]$`, plt.FontSize(16))
	plt.Grid(plt.Axis("y"))
	plt.Grid(plt.Axis("x"), plt.Which("both"))

	plt.SaveFig(outFile)
	plt.Execute()
}
