// Package resample converts PCM audio to 16 kHz mono f32 samples.
package resample

import "math"

// TargetRate is the sample rate every capture pipeline resamples to.
const TargetRate = 16000

// Ratio returns the resample ratio for converting inputRate to TargetRate.
func Ratio(inputRate int) float64 {
	if inputRate <= 0 {
		return 1
	}
	return float64(TargetRate) / float64(inputRate)
}

// Resample performs stateless linear-interpolation sample-rate conversion.
//
// ratio is TargetRate / input_sample_rate. When ratio is within 0.001 of 1 the
// input is copied through untouched; otherwise output length is
// ceil(len(xs) * ratio) and each output sample is linearly interpolated
// between its two nearest input neighbors.
func Resample(xs []float32, ratio float64) []float32 {
	if len(xs) == 0 {
		return nil
	}
	if math.Abs(ratio-1) < 0.001 {
		out := make([]float32, len(xs))
		copy(out, xs)
		return out
	}

	outLen := int(math.Ceil(float64(len(xs)) * ratio))
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		s := float64(i) / ratio
		lo := int(math.Floor(s))
		if lo >= len(xs) {
			out[i] = 0
			continue
		}
		frac := s - float64(lo)
		hi := lo + 1
		if hi > len(xs)-1 {
			hi = len(xs) - 1
		}
		out[i] = xs[lo]*float32(1-frac) + xs[hi]*float32(frac)
	}
	return out
}

// Downmix averages C interleaved channels down to mono f32 samples. Input
// must already be f32 in [-1, 1]; use Int16ToFloat32/Uint16ToFloat32 first
// for non-float PCM formats.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(interleaved))
		copy(out, interleaved)
		return out
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += interleaved[base+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// Int16ToFloat32 converts signed 16-bit little-endian-decoded PCM samples to
// f32 in [-1, 1].
func Int16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// Uint16ToFloat32 converts unsigned 16-bit PCM samples (centered at 32768) to
// f32 in [-1, 1].
func Uint16ToFloat32(samples []uint16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = (float32(s) - 32768.0) / 32768.0
	}
	return out
}
