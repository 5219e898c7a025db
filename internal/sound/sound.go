package sound

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

type Cue int

const (
	CueHit Cue = iota
	CueMiss
	CueUnlock
	CueBroken
)

type note struct {
	freq float64
	dur  time.Duration
}

var cues = map[Cue][]note{
	CueHit:    {{880, 60 * time.Millisecond}},
	CueMiss:   {{220, 120 * time.Millisecond}},
	CueUnlock: {{660, 80 * time.Millisecond}, {880, 80 * time.Millisecond}, {1320, 160 * time.Millisecond}},
	CueBroken: {{330, 120 * time.Millisecond}, {196, 240 * time.Millisecond}},
}

// Player plays short feedback tones. Until Initialize succeeds every Play
// is a no-op, so the game runs fine without an audio device.
type Player struct {
	mu          sync.Mutex
	initialized bool
}

func NewPlayer() *Player {
	return &Player{}
}

func (p *Player) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return err
	}
	p.initialized = true
	return nil
}

func (p *Player) Play(c Cue) {
	p.mu.Lock()
	ready := p.initialized
	p.mu.Unlock()

	if !ready {
		return
	}
	s, err := Stream(c)
	if err != nil {
		return
	}
	speaker.Play(s)
}

// Close releases the audio device.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		speaker.Close()
		p.initialized = false
	}
}

// Stream builds the streamer for a cue.
func Stream(c Cue) (beep.Streamer, error) {
	var parts []beep.Streamer
	for _, n := range cues[c] {
		sine, err := generators.SineTone(sampleRate, n.freq)
		if err != nil {
			return nil, err
		}
		parts = append(parts, beep.Take(sampleRate.N(n.dur), sine))
	}
	return beep.Seq(parts...), nil
}

// Length is the number of samples a cue plays for.
func Length(c Cue) int {
	n := 0
	for _, nt := range cues[c] {
		n += sampleRate.N(nt.dur)
	}
	return n
}
