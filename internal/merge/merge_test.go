package merge

import (
	"testing"

	"github.com/groovegen/groovegen/internal/model"
)

func tb() model.Timebase {
	return model.Timebase{BPM: 120, PPQ: 1920, Bars: 1, StepsPerBar: model.StepsPerBar}
}

func TestMergeOrdersNoteOffBeforeNoteOnAtSameTick(t *testing.T) {
	drums := []model.DrumEvent{
		{Layer: model.LayerKick, Bar: 0, Step: 0, Note: 36, Velocity: 100, DurationTicks: 480},
		{Layer: model.LayerKick, Bar: 0, Step: 1, Note: 36, Velocity: 100, DurationTicks: 480}, // on at step1 tick = off tick of first note
	}
	byTrack := Merge(tb(), drums, nil, nil)
	events := byTrack[model.TrackDrums]
	for i := 1; i < len(events); i++ {
		if events[i].Tick == events[i-1].Tick {
			if events[i-1].EventType != model.NoteOff && events[i].EventType == model.NoteOff {
				t.Fatalf("note_off must sort before note_on at equal tick")
			}
		}
	}
}

func TestMergeClipsToTotalTicks(t *testing.T) {
	timebase := tb()
	totalTicks := timebase.Bars * timebase.BarTicks()
	bass := []model.BassNote{{Bar: 0, Step: 15, Pitch: 40, DurationBeats: 10, Velocity: 90}}
	byTrack := Merge(timebase, nil, bass, nil)
	for _, e := range byTrack[model.TrackBass] {
		if e.Tick > totalTicks {
			t.Fatalf("event tick %d exceeds total piece length %d", e.Tick, totalTicks)
		}
	}
}

func TestFlattenIsSorted(t *testing.T) {
	timebase := tb()
	drums := []model.DrumEvent{{Layer: model.LayerKick, Bar: 0, Step: 4, Note: 36, Velocity: 100, DurationTicks: 100}}
	bass := []model.BassNote{{Bar: 0, Step: 0, Pitch: 36, DurationBeats: 1, Velocity: 90}}
	lead := []model.LeadNote{{StartTick: 200, DurationTicks: 100, Pitch: 60, Velocity: 80}}
	byTrack := Merge(timebase, drums, bass, lead)
	all := Flatten(byTrack)
	for i := 1; i < len(all); i++ {
		if all[i-1].Less(all[i]) == false && all[i].Less(all[i-1]) == true {
			t.Fatalf("flattened stream not sorted at index %d", i)
		}
	}
}
