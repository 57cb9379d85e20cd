// Package ramp schedules parameter automation against the engine clock.
//
// A Param never changes value directly. Callers append timed events (a step,
// a linear ramp ending at a time, or an exponential approach toward a target)
// and the audio path evaluates the resulting curve at each sample time.
package ramp

import "math"

type eventKind int

const (
	eventSet eventKind = iota
	eventLinear
	eventTarget
)

type event struct {
	kind  eventKind
	time  float64
	value float64
	tau   float64 // time constant for eventTarget
}

// Param is a scheduled value. The zero value holds 0 with no events.
type Param struct {
	initial float64
	events  []event
}

// New returns a Param holding v until events are scheduled.
func New(v float64) Param {
	return Param{initial: v}
}

// Reset drops every scheduled event and holds v.
func (p *Param) Reset(v float64) {
	p.initial = v
	p.events = p.events[:0]
}

// SetValueAt steps to v at time t.
func (p *Param) SetValueAt(v, t float64) {
	p.insert(event{kind: eventSet, time: t, value: v})
}

// LinearRampTo ramps linearly from the previous event to v, arriving at t.
// After a set-target event the ramp starts from the value at the target's
// start time and replaces the approach; Hold first to ramp from wherever the
// approach has got to.
func (p *Param) LinearRampTo(v, t float64) {
	p.insert(event{kind: eventLinear, time: t, value: v})
}

// SetTargetAt starts an exponential approach toward target at time t.
// A non-positive tau degrades to a step.
func (p *Param) SetTargetAt(target, t, tau float64) {
	if tau <= 0 {
		p.SetValueAt(target, t)
		return
	}
	p.insert(event{kind: eventTarget, time: t, value: target, tau: tau})
}

// CancelFrom removes every event scheduled at or after t.
func (p *Param) CancelFrom(t float64) {
	n := 0
	for _, e := range p.events {
		if e.time < t {
			p.events[n] = e
			n++
		}
	}
	p.events = p.events[:n]
}

// Hold freezes the curve at its current value: everything scheduled is
// discarded and the value at t is pinned with a step at t. Returns that value.
// History before t is collapsed, so ValueAt is only meaningful for times >= t
// afterwards.
func (p *Param) Hold(t float64) float64 {
	v := p.ValueAt(t)
	p.initial = v
	p.events = append(p.events[:0], event{kind: eventSet, time: t, value: v})
	return v
}

// Glide holds the current value at t and approaches target with time
// constant tau from there.
func (p *Param) Glide(target, t, tau float64) {
	p.Hold(t)
	p.SetTargetAt(target, t, tau)
}

// Pending reports whether any event ends after t.
func (p *Param) Pending(t float64) bool {
	for _, e := range p.events {
		if e.kind == eventTarget || e.time > t {
			return true
		}
	}
	return false
}

// ValueAt evaluates the curve at time t.
func (p *Param) ValueAt(t float64) float64 {
	lastT, lastV := math.Inf(-1), p.initial
	var tgt *event
	for i := range p.events {
		e := &p.events[i]
		switch e.kind {
		case eventSet:
			if t < e.time {
				return approach(tgt, lastT, lastV, t)
			}
			lastT, lastV, tgt = e.time, e.value, nil
		case eventTarget:
			if t < e.time {
				return approach(tgt, lastT, lastV, t)
			}
			lastV = approach(tgt, lastT, lastV, e.time)
			lastT, tgt = e.time, e
		case eventLinear:
			// a ramp supersedes a preceding target from the target's start
			if t < e.time {
				span := e.time - lastT
				if math.IsInf(span, 1) || span <= 0 {
					return lastV
				}
				return lastV + (e.value-lastV)*(t-lastT)/span
			}
			lastT, lastV, tgt = e.time, e.value, nil
		}
	}
	return approach(tgt, lastT, lastV, t)
}

func approach(tgt *event, from, v, t float64) float64 {
	if tgt == nil || t <= from {
		return v
	}
	return tgt.value + (v-tgt.value)*math.Exp(-(t-from)/tgt.tau)
}

// insert keeps events ordered by time; equal times keep insertion order.
func (p *Param) insert(e event) {
	i := len(p.events)
	for i > 0 && p.events[i-1].time > e.time {
		i--
	}
	p.events = append(p.events, event{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = e
}
