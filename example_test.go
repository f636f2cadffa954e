package qspace_test

import (
	"fmt"
	"log"

	"github.com/ksaito/qspace"
	"github.com/ksaito/qspace/qubit"
)

// Example assembles a detuned qubit-resonator pair, generates the bare to
// dressed lookup and labels the two single excitation states.
func Example() {
	q, err := qubit.NewTwoLevel(5.3)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	osc, err := qubit.NewOscillator(6, 5, 0)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	space, err := qspace.New(q, osc)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	term, err := qspace.NewTerm(0.1, []qspace.TermOp{
		{Subsystem: 0, Name: "sp"},
		{Subsystem: 1, Name: "a"},
	}, qspace.NewTermOptions().HermitianConjugate(true))
	if err != nil {
		log.Fatalf("%+v", err)
	}
	space.AddInteraction(term)

	if err := space.GenerateLookup(4); err != nil {
		log.Fatalf("%+v", err)
	}

	fmt.Printf("dimension: %d\n", space.Dim())
	for _, state := range []struct {
		name string
		bare []int
	}{
		{name: "|g,1>", bare: []int{0, 1}},
		{name: "|e,0>", bare: []int{1, 0}},
	} {
		j, err := space.DressedIndex(state.bare)
		if err != nil {
			log.Fatalf("%+v", err)
		}
		e, err := space.EnergyByDressedIndex(j)
		if err != nil {
			log.Fatalf("%+v", err)
		}
		fmt.Printf("%s -> dressed %d, energy %.4f\n", state.name, j, e)
	}

	// Output:
	// dimension: 12
	// |g,1> -> dressed 1, energy 4.9697
	// |e,0> -> dressed 2, energy 5.3303
}
