// Command nocsim runs fault- and thermal-aware 3D mesh NoC simulations.
package main

import "github.com/sarchlab/faultnoc/nocsim/cmd"

func main() {
	cmd.Execute()
}
