// Package midi serialises a merged OutputEvent stream to a Standard
// MIDI File via gitlab.com/gomidi/midi/v2 and its smf subpackage
// (spec.md §4.12 output contract: one track per TrackID, metric ticks,
// tempo/time-signature meta events on track 0).
package midi

import (
	"io"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/groovegen/groovegen/internal/model"
)

var trackOrder = []model.TrackID{model.TrackDrums, model.TrackBass, model.TrackLead}

// Write serialises byTrack (as produced by merge.Merge) to w as an SMF1
// file at tb's tempo and tick resolution, one smf.Track per TrackID plus
// a leading tempo/meta track.
func Write(w io.Writer, tb model.Timebase, byTrack map[model.TrackID][]model.OutputEvent) (int64, error) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(uint16(tb.PPQ))

	var meta smf.Track
	meta.Add(0, smf.MetaTempo(tb.BPM))
	meta.Add(0, smf.MetaMeter(4, 4))
	meta.Close(0)
	s.Add(meta)

	for _, trackID := range trackOrder {
		events := byTrack[trackID]
		if len(events) == 0 {
			continue
		}
		s.Add(buildTrack(trackID, events))
	}

	return s.WriteTo(w)
}

func buildTrack(trackID model.TrackID, events []model.OutputEvent) smf.Track {
	var track smf.Track
	track.Add(0, midi.ProgramChange(uint8(channelFor(trackID)), programFor(trackID)))

	prevTick := 0
	for _, e := range events {
		delta := e.Tick - prevTick
		if delta < 0 {
			delta = 0
		}
		var msg midi.Message
		switch e.EventType {
		case model.NoteOn:
			msg = midi.NoteOn(uint8(e.Channel), uint8(e.Pitch), uint8(e.Velocity))
		case model.NoteOff:
			msg = midi.NoteOff(uint8(e.Channel), uint8(e.Pitch))
		}
		track.Add(uint32(delta), msg)
		prevTick = e.Tick
	}
	track.Close(0)
	return track
}

func channelFor(trackID model.TrackID) int {
	switch trackID {
	case model.TrackDrums:
		return 9
	case model.TrackBass:
		return 0
	case model.TrackLead:
		return 1
	default:
		return 0
	}
}

// programFor assigns a General MIDI program number per track (spec.md
// §4.12): drums ignore program change on channel 9 but one is still
// emitted for player compatibility.
func programFor(trackID model.TrackID) uint8 {
	switch trackID {
	case model.TrackBass:
		return 33 // Fingered Bass
	case model.TrackLead:
		return 80 // Lead 1 (square)
	default:
		return 0
	}
}
