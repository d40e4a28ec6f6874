// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Streams interleaved float32 blocks, carrying the last frame across calls
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64

	// position is measured in input frames relative to the current block;
	// index -1 refers to lastFrame from the previous block.
	position  float64
	lastFrame []float32
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	if channels < 1 {
		channels = 1
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastFrame:  make([]float32, channels),
	}
}

// Resample converts input samples to output sample rate using linear
// interpolation and returns the number of output samples written.
// output should hold OutputSamplesNeeded(len(input)) samples; anything that
// does not fit is dropped.
func (r *Resampler) Resample(input []float32, output []float32) int {
	ch := r.channels
	inputFrames := len(input) / ch
	if inputFrames == 0 {
		return 0
	}
	outputFrames := len(output) / ch

	frame := func(idx, c int) float32 {
		if idx < 0 {
			return r.lastFrame[c]
		}
		return input[idx*ch+c]
	}

	outIdx := 0
	for outIdx < outputFrames {
		idx := int(r.position)
		if r.position < 0 {
			idx = -1
		}
		if idx+1 > inputFrames-1 {
			break
		}
		frac := float32(r.position - float64(idx))
		for c := 0; c < ch; c++ {
			a := frame(idx, c)
			b := frame(idx+1, c)
			output[outIdx*ch+c] = a + (b-a)*frac
		}
		outIdx++
		r.position += r.ratio
	}

	copy(r.lastFrame, input[(inputFrames-1)*ch:inputFrames*ch])
	r.position -= float64(inputFrames)
	if r.position < -1 {
		r.position = -1
	}

	return outIdx * ch
}

// Reset clears carried state
func (r *Resampler) Reset() {
	r.position = 0
	clear(r.lastFrame)
}

// Ratio returns input frames consumed per output frame
func (r *Resampler) Ratio() float64 {
	return r.ratio
}

// OutputSamplesNeeded returns an output capacity that is always large
// enough for inputSamples of input.
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames+1)/r.ratio) + 1
	return outputFrames * r.channels
}

// InputSamplesNeeded estimates how many input samples produce outputSamples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames)*r.ratio) + 1
	return inputFrames * r.channels
}
