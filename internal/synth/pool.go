package synth

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/polysynth-go/internal/osc"
)

const (
	// Polyphony is the fixed number of voice slots.
	Polyphony = 8

	retuneTau     = 0.01 // tag retune and SetFrequency glide
	filterTau     = 0.02 // cutoff, resonance and master gain glide
	freqTolerance = 3.0  // Hz; untagged StopNote match window
)

// StartResult reports what StartNote did with a note.
type StartResult struct {
	Index   int
	Retuned bool // an active voice with the same tag was retuned in place
	Stolen  bool // the oldest voice was taken over
}

// Pool is the fixed set of voice slots. All mutating methods must be called
// from the audio goroutine; ActiveCount is safe from anywhere.
type Pool struct {
	voices     [Polyphony]Voice
	active     atomic.Int32
	last       int
	sampleRate float64
}

func newPool(sampleRate float64) *Pool {
	return &Pool{last: -1, sampleRate: sampleRate}
}

// ActiveCount returns the number of held (unreleased) voices.
func (p *Pool) ActiveCount() int { return int(p.active.Load()) }

// Voice returns slot i.
func (p *Pool) Voice(i int) *Voice { return &p.voices[i] }

// Snapshot copies every slot's state at now into dst.
func (p *Pool) Snapshot(now float64, dst []VoiceInfo) []VoiceInfo {
	dst = dst[:0]
	for i := range p.voices {
		dst = append(dst, p.voices[i].info(i, now))
	}
	return dst
}

// StartNote plays freq on a voice. A non-empty tag that is already held
// retunes that voice instead. Otherwise the first free slot is used, or the
// oldest voice is stolen when every slot is held.
func (p *Pool) StartNote(now, freq float64, tag string, params *Params) StartResult {
	if tag != "" {
		if i := p.findTag(tag); i >= 0 {
			p.voices[i].retune(now, freq)
			p.last = i
			return StartResult{Index: i, Retuned: true}
		}
	}

	for i := range p.voices {
		v := &p.voices[i]
		if v.active.CompareAndSwap(false, true) {
			p.active.Add(1)
			v.trigger(now, now, freq, tag, params, p.sampleRate)
			p.last = i
			return StartResult{Index: i}
		}
	}

	i := p.oldest()
	v := &p.voices[i]
	v.trigger(now, now+stealFade, freq, tag, params, p.sampleRate)
	p.last = i
	return StartResult{Index: i, Stolen: true}
}

// StopNote releases one voice: the held voice carrying tag, or failing that
// the last held voice in slot order whose frequency is within 3 Hz of freq.
// Returns the released slot or -1.
func (p *Pool) StopNote(now, freq float64, tag string, release float64) int {
	i := -1
	if tag != "" {
		i = p.findTag(tag)
	}
	if i < 0 {
		for j := range p.voices {
			v := &p.voices[j]
			if v.Active() && math.Abs(v.noteHz-freq) <= freqTolerance {
				i = j
			}
		}
	}
	if i >= 0 {
		p.releaseSlot(i, now, release)
	}
	return i
}

// StopAll releases every held voice and returns how many were released.
func (p *Pool) StopAll(now, release float64) int {
	n := 0
	for i := range p.voices {
		if p.voices[i].Active() {
			p.releaseSlot(i, now, release)
			n++
		}
	}
	return n
}

// Retune glides the most recently started or retuned voice to freq.
func (p *Pool) Retune(now, freq float64) bool {
	if p.last < 0 || !p.voices[p.last].occupied {
		return false
	}
	p.voices[p.last].retune(now, freq)
	return true
}

// Reclaim empties every released slot whose guard interval has passed and
// calls fn for each. A slot that was claimed again in the meantime is active
// and therefore left alone.
func (p *Pool) Reclaim(now float64, fn func(index int, tag string)) {
	for i := range p.voices {
		v := &p.voices[i]
		if !v.occupied || v.Active() || !v.released || now < v.freeAt {
			continue
		}
		tag := v.tag
		v.clear()
		if p.last == i {
			p.last = -1
		}
		if fn != nil {
			fn(i, tag)
		}
	}
}

func (p *Pool) setWaveform(w osc.Wave) {
	for i := range p.voices {
		if p.voices[i].occupied {
			p.voices[i].osc.SetWave(w)
		}
	}
}

func (p *Pool) setFilter(now float64, f FilterParams) {
	for i := range p.voices {
		v := &p.voices[i]
		if !v.occupied {
			continue
		}
		v.filter.SetKind(f.Kind)
		v.cutoff.Glide(f.Cutoff, now, filterTau)
		v.resonance.Glide(f.Resonance, now, filterTau)
	}
}

func (p *Pool) setEnvelope(now float64, env Envelope) {
	for i := range p.voices {
		v := &p.voices[i]
		if v.occupied && v.sounding(now) {
			v.retarget(now, env)
		}
	}
}

func (p *Pool) releaseSlot(i int, now, release float64) {
	v := &p.voices[i]
	if v.active.CompareAndSwap(true, false) {
		p.active.Add(-1)
	}
	v.release(now, release)
}

func (p *Pool) findTag(tag string) int {
	for i := range p.voices {
		v := &p.voices[i]
		if v.Active() && v.tag == tag {
			return i
		}
	}
	return -1
}

// oldest returns the held slot with the smallest start time; ties keep the
// lowest index.
func (p *Pool) oldest() int {
	idx := 0
	best := math.Inf(1)
	for i := range p.voices {
		if t := p.voices[i].startedAt; t < best {
			best = t
			idx = i
		}
	}
	return idx
}

func (p *Pool) reset() {
	for i := range p.voices {
		v := &p.voices[i]
		if v.active.Swap(false) {
			p.active.Add(-1)
		}
		v.clear()
	}
	p.last = -1
}
