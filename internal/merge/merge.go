// Package merge implements the event merger of spec.md §3/§4.11: it
// expands each stage's notes into paired note-on/note-off OutputEvents,
// clips them to the piece's tick span, and returns them in the single
// stable sort order required by spec.md §8 invariant 7.
package merge

import (
	"sort"

	"github.com/groovegen/groovegen/internal/model"
)

const (
	channelDrums = 9 // GM percussion channel
	channelBass  = 0
	channelLead  = 1
)

// Merge converts the per-engine note streams into one sorted OutputEvent
// stream, grouped by track (spec.md §4.11).
func Merge(tb model.Timebase, drumEvents []model.DrumEvent, bassNotes []model.BassNote, leadNotes []model.LeadNote) map[model.TrackID][]model.OutputEvent {
	totalTicks := tb.Bars * tb.BarTicks()

	out := map[model.TrackID][]model.OutputEvent{
		model.TrackDrums: drumTrackEvents(drumEvents, tb, totalTicks),
		model.TrackBass:  bassTrackEvents(bassNotes, tb, totalTicks),
		model.TrackLead:  leadTrackEvents(leadNotes, totalTicks),
	}
	for track := range out {
		sortEvents(out[track])
	}
	return out
}

// Flatten merges every track's events into one combined, sorted stream
// (used by consumers that want a single MIDI track).
func Flatten(byTrack map[model.TrackID][]model.OutputEvent) []model.OutputEvent {
	var all []model.OutputEvent
	for _, events := range byTrack {
		all = append(all, events...)
	}
	sortEvents(all)
	return all
}

func sortEvents(events []model.OutputEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Less(events[j])
	})
}

func drumTrackEvents(events []model.DrumEvent, tb model.Timebase, totalTicks int) []model.OutputEvent {
	out := make([]model.OutputEvent, 0, len(events)*2)
	for _, e := range events {
		onTick := clip(e.Tick(tb), totalTicks)
		offTick := clip(onTick+e.DurationTicks, totalTicks)
		if offTick <= onTick {
			offTick = onTick + 1
		}
		out = append(out,
			model.OutputEvent{Tick: onTick, Track: model.TrackDrums, Channel: channelDrums, EventType: model.NoteOn, Pitch: e.Note, Velocity: e.Velocity},
			model.OutputEvent{Tick: offTick, Track: model.TrackDrums, Channel: channelDrums, EventType: model.NoteOff, Pitch: e.Note, Velocity: 0},
		)
	}
	return out
}

func bassTrackEvents(notes []model.BassNote, tb model.Timebase, totalTicks int) []model.OutputEvent {
	out := make([]model.OutputEvent, 0, len(notes)*2)
	for _, n := range notes {
		onTick := clip(n.Tick(tb), totalTicks)
		offTick := clip(onTick+int(n.DurationBeats*float64(tb.PPQ)), totalTicks)
		if offTick <= onTick {
			offTick = onTick + 1
		}
		out = append(out,
			model.OutputEvent{Tick: onTick, Track: model.TrackBass, Channel: channelBass, EventType: model.NoteOn, Pitch: n.Pitch, Velocity: n.Velocity},
			model.OutputEvent{Tick: offTick, Track: model.TrackBass, Channel: channelBass, EventType: model.NoteOff, Pitch: n.Pitch, Velocity: 0},
		)
	}
	return out
}

func leadTrackEvents(notes []model.LeadNote, totalTicks int) []model.OutputEvent {
	out := make([]model.OutputEvent, 0, len(notes)*2)
	for _, n := range notes {
		onTick := clip(n.StartTick, totalTicks)
		offTick := clip(n.StartTick+n.DurationTicks, totalTicks)
		if offTick <= onTick {
			offTick = onTick + 1
		}
		out = append(out,
			model.OutputEvent{Tick: onTick, Track: model.TrackLead, Channel: channelLead, EventType: model.NoteOn, Pitch: n.Pitch, Velocity: n.Velocity},
			model.OutputEvent{Tick: offTick, Track: model.TrackLead, Channel: channelLead, EventType: model.NoteOff, Pitch: n.Pitch, Velocity: 0},
		)
	}
	return out
}

func clip(tick, max int) int {
	if tick < 0 {
		return 0
	}
	if tick > max {
		return max
	}
	return tick
}
