// Package process prepares raw simulation samples for the emulator: inputs
// and outputs are standardized column-wise, and high-dimensional outputs are
// optionally compressed with a PCA projection so each emulator model works on
// one scalar component.
package process

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/Lbalkenhol/OLE-candl-development/pkg/stats"
)

// Processor is the normalization/compression collaborator consumed by the
// ensemble. All vectors exchanged with the emulator live in normalized or
// compressed space; the Decompress*/Denormalize* methods map predictions back
// to the caller's raw units.
type Processor interface {
	Initialize(inputDim, outputDim int) error
	LoadData(rawX, rawY [][]float64) error
	CleanData()

	NormalizeInputData(rawParams []float64) []float64
	DecompressData(compressed []float64) []float64
	DecompressStd(compressedStd []float64) []float64
	DenormalizeData(normalized []float64) []float64
	DenormalizeStd(normalizedStd []float64) []float64

	InputStds() []float64
	OutputStds() []float64

	InputDataRaw() [][]float64
	OutputDataRaw() [][]float64
	InputDataNormalized() [][]float64
	OutputDataEmulator() [][]float64
}

// Config controls the data processor.
type Config struct {
	// NumComponents is the maximum width of the compressed output space.
	// Zero disables compression: the emulator then works directly on the
	// normalized outputs. The effective width is additionally capped by the
	// output dimensionality and the sample count.
	NumComponents int
}

// DataProcessor standardizes inputs and outputs column-wise and compresses
// the normalized outputs onto their leading principal components.
type DataProcessor struct {
	cfg Config
	log *zap.Logger

	inputDim  int
	outputDim int

	inMeans, inStds   []float64
	outMeans, outStds []float64

	// comps holds the PCA directions, one column per retained component.
	// nil means identity compression.
	comps *mat.Dense

	rawX, rawY   [][]float64
	normX, normY [][]float64
	emulatorY    [][]float64
}

// NewDataProcessor creates a processor. A nil logger disables logging.
func NewDataProcessor(cfg Config, log *zap.Logger) *DataProcessor {
	if log == nil {
		log = zap.NewNop()
	}
	return &DataProcessor{cfg: cfg, log: log.Named("data_processor")}
}

// Initialize fixes the raw input and output dimensionality.
func (p *DataProcessor) Initialize(inputDim, outputDim int) error {
	if inputDim <= 0 || outputDim <= 0 {
		return fmt.Errorf("process: invalid dimensions %d x %d", inputDim, outputDim)
	}
	p.inputDim = inputDim
	p.outputDim = outputDim
	return nil
}

// LoadData replaces the held raw data, refits the scalers and the PCA
// projection, and recomputes the compressed training targets.
func (p *DataProcessor) LoadData(rawX, rawY [][]float64) error {
	if p.inputDim == 0 {
		return errors.New("process: processor not initialized")
	}
	if len(rawX) == 0 || len(rawX) != len(rawY) {
		return fmt.Errorf("process: %d input rows but %d output rows", len(rawX), len(rawY))
	}
	for i := range rawX {
		if len(rawX[i]) != p.inputDim {
			return fmt.Errorf("process: input row %d has %d columns, expected %d", i, len(rawX[i]), p.inputDim)
		}
		if len(rawY[i]) != p.outputDim {
			return fmt.Errorf("process: output row %d has %d columns, expected %d", i, len(rawY[i]), p.outputDim)
		}
	}

	p.rawX, p.rawY = rawX, rawY

	p.inMeans = stats.ColumnMeans(rawX)
	p.inStds = stats.ColumnStds(rawX)
	p.outMeans = stats.ColumnMeans(rawY)
	p.outStds = stats.ColumnStds(rawY)

	p.normX = standardize(rawX, p.inMeans, p.inStds)
	p.normY = standardize(rawY, p.outMeans, p.outStds)

	return p.fitCompression()
}

func (p *DataProcessor) fitCompression() error {
	n := len(p.normY)
	k := p.cfg.NumComponents
	if k <= 0 || k >= p.outputDim {
		p.comps = nil
		p.emulatorY = p.normY
		return nil
	}
	if k > n {
		// not enough samples yet to support the configured width
		k = n
		p.log.Debug("capping compression width at sample count",
			zap.Int("configured", p.cfg.NumComponents),
			zap.Int("effective", k),
		)
	}

	Z := mat.NewDense(n, p.outputDim, nil)
	for i, row := range p.normY {
		Z.SetRow(i, row)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(Z, nil); !ok {
		return errors.New("process: principal component analysis failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	d, avail := vecs.Dims()
	if k > avail {
		k = avail
	}
	comps := mat.NewDense(d, k, nil)
	comps.Copy(vecs.Slice(0, d, 0, k))
	p.comps = comps

	var proj mat.Dense
	proj.Mul(Z, comps)
	p.emulatorY = make([][]float64, n)
	for i := range p.emulatorY {
		p.emulatorY[i] = mat.Row(nil, i, &proj)
	}
	return nil
}

// CleanData drops the held training data; configuration and dimensionality
// survive.
func (p *DataProcessor) CleanData() {
	p.rawX, p.rawY = nil, nil
	p.normX, p.normY = nil, nil
	p.emulatorY = nil
	p.comps = nil
}

// NormalizeInputData maps a raw parameter vector into normalized space.
func (p *DataProcessor) NormalizeInputData(rawParams []float64) []float64 {
	out := make([]float64, len(rawParams))
	for j, v := range rawParams {
		out[j] = (v - p.inMeans[j]) / p.inStds[j]
	}
	return out
}

// DecompressData maps a compressed-space vector back to a normalized output
// vector by reversing the PCA projection.
func (p *DataProcessor) DecompressData(compressed []float64) []float64 {
	if p.comps == nil {
		out := make([]float64, len(compressed))
		copy(out, compressed)
		return out
	}
	d, k := p.comps.Dims()
	out := make([]float64, d)
	for j := 0; j < d; j++ {
		s := 0.0
		for c := 0; c < k && c < len(compressed); c++ {
			s += p.comps.At(j, c) * compressed[c]
		}
		out[j] = s
	}
	return out
}

// DecompressStd propagates per-component standard deviations through the
// projection: var_j = sum_c W_jc^2 * std_c^2.
func (p *DataProcessor) DecompressStd(compressedStd []float64) []float64 {
	if p.comps == nil {
		out := make([]float64, len(compressedStd))
		copy(out, compressedStd)
		return out
	}
	d, k := p.comps.Dims()
	out := make([]float64, d)
	for j := 0; j < d; j++ {
		s := 0.0
		for c := 0; c < k && c < len(compressedStd); c++ {
			w := p.comps.At(j, c)
			s += w * w * compressedStd[c] * compressedStd[c]
		}
		out[j] = sqrt(s)
	}
	return out
}

// DenormalizeData maps a normalized output vector back to raw units.
func (p *DataProcessor) DenormalizeData(normalized []float64) []float64 {
	out := make([]float64, len(normalized))
	for j, v := range normalized {
		out[j] = v*p.outStds[j] + p.outMeans[j]
	}
	return out
}

// DenormalizeStd rescales normalized standard deviations to raw units.
func (p *DataProcessor) DenormalizeStd(normalizedStd []float64) []float64 {
	out := make([]float64, len(normalizedStd))
	for j, v := range normalizedStd {
		out[j] = v * p.outStds[j]
	}
	return out
}

func (p *DataProcessor) InputStds() []float64  { return p.inStds }
func (p *DataProcessor) OutputStds() []float64 { return p.outStds }

func (p *DataProcessor) InputDataRaw() [][]float64        { return p.rawX }
func (p *DataProcessor) OutputDataRaw() [][]float64       { return p.rawY }
func (p *DataProcessor) InputDataNormalized() [][]float64 { return p.normX }

// OutputDataEmulator returns the compressed training targets, one row per
// sample, one column per emulator model.
func (p *DataProcessor) OutputDataEmulator() [][]float64 { return p.emulatorY }

func standardize(X [][]float64, means, stds []float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		for j, v := range row {
			r[j] = (v - means[j]) / stds[j]
		}
		out[i] = r
	}
	return out
}

// sqrt guards against tiny negative accumulation in variance sums.
func sqrt(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}
