package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cbegin/multisampler-go"
)

const defaultNotes = "60 64 67 72"

func main() {
	var (
		presetPath = flag.String("preset", "", "path to a preset file (.json or .dspreset)")
		notesArg   = flag.String("notes", defaultNotes, "space-separated MIDI notes to play in sequence")
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		velocity   = flag.Float64("velocity", 0.9, "note velocity (0-1)")
		noteMs     = flag.Int("note-ms", 400, "duration of each note in milliseconds")
		gapMs      = flag.Int("gap-ms", 100, "gap between notes in milliseconds")
		tailMs     = flag.Int("tail-ms", 1500, "release tail to render after the last note")
		group      = flag.Int("group", -1, "articulation group to select before playing (-1 = preset default)")
		volume     = flag.Float64("volume", 1.0, "master volume scalar")
		voices     = flag.Int("voices", 16, "polyphony limit")
		outPath    = flag.String("out", "", "render offline to a WAV file instead of playing")
	)
	flag.Parse()

	if *presetPath == "" {
		log.Fatal("a -preset file is required")
	}
	notes, err := parseNotes(*notesArg)
	if err != nil {
		log.Fatal(err)
	}

	pl, err := multisampler.NewPlayer(*sampleRate, multisampler.WithMaxVoices(*voices))
	if err != nil {
		log.Fatal(err)
	}
	pl.SetMasterVolume(*volume)

	failed, err := pl.LoadPreset(*presetPath)
	if err != nil {
		log.Fatal(err)
	}
	if failed > 0 {
		log.Printf("warning: %d region(s) failed to load and will stay silent", failed)
	}
	fmt.Printf("loaded %d region(s)\n", pl.RegionCount())
	if *group >= 0 {
		pl.SetActiveGroup(*group)
	}

	if *outPath != "" {
		renderOffline(pl, notes, *sampleRate, *velocity, *noteMs, *gapMs, *tailMs, *outPath)
		return
	}

	if err := pl.Start(); err != nil {
		log.Fatal(err)
	}
	for _, note := range notes {
		if slot := pl.NoteOn(note, *velocity); slot < 0 {
			fmt.Printf("note %d: no voice\n", note)
		}
		time.Sleep(time.Duration(*noteMs) * time.Millisecond)
		pl.NoteOff(note)
		time.Sleep(time.Duration(*gapMs) * time.Millisecond)
	}
	pl.AllNotesOff()
	time.Sleep(time.Duration(*tailMs) * time.Millisecond)
	if err := pl.Stop(); err != nil {
		log.Fatal(err)
	}
}

func renderOffline(pl *multisampler.Player, notes []int, sampleRate int, velocity float64, noteMs, gapMs, tailMs int, outPath string) {
	frame := 0
	noteFrames := sampleRate * noteMs / 1000
	gapFrames := sampleRate * gapMs / 1000
	events := make([]multisampler.NoteEvent, 0, len(notes))
	for _, note := range notes {
		events = append(events, multisampler.NoteEvent{
			Frame:    frame,
			Duration: noteFrames,
			Note:     note,
			Velocity: velocity,
		})
		frame += noteFrames + gapFrames
	}
	total := frame + sampleRate*tailMs/1000

	samples := multisampler.RenderEvents(pl.Engine(), events, total)
	if err := os.WriteFile(outPath, multisampler.EncodeWAVFloat32LE(samples, sampleRate, 2), 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s (%d frames)\n", outPath, total)
}

func parseNotes(s string) ([]int, error) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(fields) == 0 {
		return nil, fmt.Errorf("no notes given")
	}
	notes := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 || n > 127 {
			return nil, fmt.Errorf("invalid MIDI note %q (expected 0-127)", f)
		}
		notes = append(notes, n)
	}
	return notes, nil
}
