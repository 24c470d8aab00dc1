// Package responder hosts the caller-facing conversation loop: detect an
// utterance in the audio stream, transcribe it, answer it through the
// policy engine, and speak the reply back.
package responder

// AudioFrame is one frame of 16-bit PCM samples.
type AudioFrame struct {
	Samples    []int16
	SampleRate int
}

// Energy returns the mean absolute sample amplitude, used for voice
// activity detection.
func (f AudioFrame) Energy() float64 {
	if len(f.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range f.Samples {
		if s < 0 {
			sum -= float64(s)
		} else {
			sum += float64(s)
		}
	}
	return sum / float64(len(f.Samples))
}

// Voice activity thresholds, in frames and mean sample amplitude. The
// silence threshold is generous so callers can finish full sentences.
const (
	energyThreshold = 300
	speechFrames    = 3
	silenceFrames   = 50
	minUtterance    = 15
)

// Detector segments a frame stream into utterances. Feed returns a
// non-nil frame buffer once a long-enough burst of speech is followed by
// sustained silence; short blips are discarded.
type Detector struct {
	speech    int
	silence   int
	recording bool
	buffer    []AudioFrame
}

// NewDetector creates a Detector with the default thresholds.
func NewDetector() *Detector {
	return &Detector{}
}

// Feed advances the detector by one frame.
func (d *Detector) Feed(frame AudioFrame) []AudioFrame {
	if frame.Energy() > energyThreshold {
		d.speech++
		d.silence = 0
		if d.speech > speechFrames {
			if !d.recording {
				d.recording = true
				d.buffer = nil
			}
			d.buffer = append(d.buffer, frame)
		}
		return nil
	}

	if !d.recording {
		return nil
	}

	d.silence++
	if d.silence <= silenceFrames {
		return nil
	}

	d.recording = false
	d.speech = 0
	utterance := d.buffer
	d.buffer = nil
	if len(utterance) < minUtterance {
		return nil
	}
	return utterance
}
