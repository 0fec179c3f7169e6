package main

import (
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Lbalkenhol/OLE-candl-development/pkg/data"
	"github.com/Lbalkenhol/OLE-candl-development/pkg/ensemble"
	"github.com/Lbalkenhol/OLE-candl-development/pkg/plotting"
	"github.com/Lbalkenhol/OLE-candl-development/pkg/process"
	"github.com/Lbalkenhol/OLE-candl-development/pkg/rng"
)

const (
	quantity  = "spectrum"
	numParams = 3
	numBins   = 8
)

// simulate is the stand-in for an expensive simulation: a damped oscillation
// over numBins frequency bins, controlled by amplitude, frequency and tilt.
func simulate(params []float64) []float64 {
	amp, freq, tilt := params[0], params[1], params[2]
	out := make([]float64, numBins)
	for j := 0; j < numBins; j++ {
		x := float64(j) / float64(numBins-1)
		out[j] = amp*math.Sin(freq*x)*math.Exp(-tilt*x) + 0.1*amp*x
	}
	return out
}

// generateTrainingData draws n parameter vectors uniformly from the prior box
// and runs the simulation on each.
func generateTrainingData(n int, r *rand.Rand) (X, Y [][]float64) {
	X = make([][]float64, n)
	Y = make([][]float64, n)
	for i := 0; i < n; i++ {
		p := []float64{
			1 + r.Float64(),   // amplitude in [1,2]
			2 + 4*r.Float64(), // frequency in [2,6]
			r.Float64(),       // tilt in [0,1]
		}
		X[i] = p
		Y[i] = simulate(p)
	}
	return
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	r := rand.New(rand.NewPCG(1, 2))

	fmt.Println("=== Gaussian Process Emulator Demo ===")
	start := time.Now()

	// an optional CSV argument replaces the synthetic simulation runs
	var X, Y [][]float64
	if len(os.Args) > 1 {
		X, Y, err = data.LoadRuns(os.Args[1], numParams, numBins, logger)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Loaded %d recorded runs from %s.\n", len(X), os.Args[1])
	} else {
		n := 80
		X, Y = generateTrainingData(n, r)
		fmt.Printf("Generated %d simulation runs with %d parameters and %d output bins.\n", n, numParams, numBins)
	}

	cfg := ensemble.DefaultConfig()
	cfg.GP.NumIters = 300
	cfg.GP.ErrorTolerance = 1e-4
	cfg.GP.TestsetFraction = 0.2
	cfg.GP.SplitSeed = 7

	proc := process.NewDataProcessor(process.Config{NumComponents: 4}, logger)
	diag := plotting.New("plots", logger)

	emu, err := ensemble.New(quantity, cfg, proc, diag, logger)
	if err != nil {
		log.Fatal(err)
	}

	example := ensemble.ExampleState{
		Parameters: map[string]float64{"amplitude": 1.5, "frequency": 4, "tilt": 0.5},
		Quantities: map[string][]float64{quantity: simulate([]float64{1.5, 4, 0.5})},
	}
	if err := emu.Initialize(example); err != nil {
		log.Fatal(err)
	}
	if err := emu.LoadData(X, Y); err != nil {
		log.Fatal(err)
	}
	if err := emu.Train(); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Trained %d models in %v.\n", emu.NumModels(), time.Since(start))
	fmt.Println()

	// --- Prediction at a fresh parameter point ---
	probe := []float64{1.4, 3.7, 0.3}
	truth := simulate(probe)

	mean, std, err := emu.PredictValueAndStd(probe)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Prediction at %v:\n", probe)
	for j := range mean {
		fmt.Printf("  bin %d: truth %8.4f  emulated %8.4f +- %.4f\n", j, truth[j], mean[j], std[j])
	}
	fmt.Println()

	// --- Samples from the predictive distribution ---
	key := rng.NewKey(42)
	draws, key, err := emu.SamplePrediction(probe, 3, key)
	if err != nil {
		log.Fatal(err)
	}
	for i, d := range draws {
		fmt.Printf("Sample %d, first 4 bins: %.4f %.4f %.4f %.4f\n", i, d[0], d[1], d[2], d[3])
	}
	// the returned key carries the stream forward
	more, _, err := emu.SamplePrediction(probe, 1, key)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Follow-up sample, first 4 bins: %.4f %.4f %.4f %.4f\n", more[0][0], more[0][1], more[0][2], more[0][3])
	fmt.Println()

	// --- Jacobian of the emulated quantity ---
	jac, err := emu.PredictGradients(probe)
	if err != nil {
		log.Fatal(err)
	}
	rows, cols := jac.Dims()
	fmt.Printf("Jacobian is %d x %d; d bin0 / d params = [%.4f %.4f %.4f]\n",
		rows, cols, jac.At(0, 0), jac.At(0, 1), jac.At(0, 2))
	fmt.Println()

	// --- Accuracy maintenance: ratchet and held-out evaluation ---
	for i := 0; i < 3; i++ {
		if err := emu.UpdateError(probe); err != nil {
			log.Fatal(err)
		}
	}
	if err := emu.RunTests(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Diagnostics written under plots/.")
}
