package pronounce

// toMonoFloat converts interleaved 16-bit PCM to mono float32 in [-1, 1].
func toMonoFloat(pcm []int16, channels int) []float32 {
	if channels < 1 {
		channels = 1
	}
	out := make([]float32, len(pcm)/channels)
	for i := range out {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(pcm[i*channels+c]) / 32768
		}
		out[i] = sum / float32(channels)
	}
	return out
}

func resampleLinear(in []float32, srcSR, dstSR int) []float32 {
	if srcSR == dstSR || len(in) == 0 {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}
	ratio := float64(dstSR) / float64(srcSR)
	outLen := int(float64(len(in))*ratio + 0.9999)
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = in[idx]*(1-frac) + in[idx+1]*frac
	}
	return out
}
