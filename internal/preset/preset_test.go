package preset

import (
	"path/filepath"
	"testing"
)

func TestParseJSONMultiGroup(t *testing.T) {
	data := []byte(`{
		"groups": [
			{
				"name": "Sustain",
				"keyswitch": 24,
				"volume_db": -1.5,
				"envelope": {"attack": 0.02, "release": 0.8},
				"samples": [
					{"path": "Samples/C4.wav", "root_note": 60, "lo_note": 58, "hi_note": 62,
					 "lo_vel": 0, "hi_vel": 100, "pan": -0.25, "tune_cents": 10,
					 "loop_enabled": true, "loop_start": 1000, "loop_end": 4000}
				]
			},
			{
				"name": "Staccato",
				"keyswitch": 25,
				"samples": [{"path": "Samples\\D4.wav", "root_note": 62}]
			}
		]
	}`)
	groups, err := ParseJSON(data, "/presets/piano")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}

	g := groups[0]
	if g.Name != "Sustain" || g.Keyswitch != 24 || g.VolumeDb != -1.5 {
		t.Fatalf("group header = %+v", g)
	}
	if g.Attack != 0.02 || g.Release != 0.8 {
		t.Fatalf("envelope override = %+v", g)
	}
	if g.Decay != -1 || g.Sustain != -1 {
		t.Fatalf("unset envelope fields should inherit (-1), got %+v", g)
	}
	r := g.Regions[0]
	if r.LoNote != 58 || r.HiNote != 62 || r.HiVel != 100 {
		t.Fatalf("region ranges = %+v", r)
	}
	if !r.LoopEnabled || r.LoopStart != 1000 || r.LoopEnd != 4000 {
		t.Fatalf("loop fields = %+v", r)
	}
	want := filepath.Join("/presets/piano", "Samples", "C4.wav")
	if r.Path != want {
		t.Fatalf("path = %q, want %q", r.Path, want)
	}

	// Backslashes normalized before resolution.
	r2 := groups[1].Regions[0]
	want2 := filepath.Join("/presets/piano", "Samples", "D4.wav")
	if r2.Path != want2 {
		t.Fatalf("path = %q, want %q", r2.Path, want2)
	}
	// lo/hi default to the root note.
	if r2.LoNote != 62 || r2.HiNote != 62 {
		t.Fatalf("lo/hi should default to root, got %+v", r2)
	}
}

func TestParseJSONFlatForm(t *testing.T) {
	data := []byte(`{
		"name": "Kick",
		"envelope": {"sustain": 0.5},
		"samples": [{"path": "kick.wav", "root_note": 36}]
	}`)
	groups, err := ParseJSON(data, "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if groups[0].Name != "Kick" || groups[0].Sustain != 0.5 {
		t.Fatalf("group = %+v", groups[0])
	}
	if groups[0].Keyswitch != -1 {
		t.Fatalf("flat form must not get a keyswitch, got %d", groups[0].Keyswitch)
	}
}

func TestParseJSONMalformed(t *testing.T) {
	if _, err := ParseJSON([]byte(`{"groups": [`), ""); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestParseDspreset(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<DecentSampler>
  <groups attack="10ms" release="1.2s" sustain="0.9" volume="-2dB">
    <group name="Open" keyswitch="36" volume="1dB">
      <sample path="Samples/E3.wav" rootNote="52" loNote="48" hiNote="55"
              loVel="0" hiVel="90" tuning="-15" pan="0.5"
              loopEnabled="true" loopStart="2000" loopEnd="9000" loopCrossfade="128"/>
    </group>
    <group name="Slide" keyswitch="37" attack="50ms">
      <sample path="Samples/E3-slide.wav" rootNote="52"/>
    </group>
    <group name="Empty"/>
  </groups>
</DecentSampler>`)
	groups, err := ParseDspreset(data, "/kits/lapsteel")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2 (empty group dropped)", len(groups))
	}

	g := groups[0]
	if g.Name != "Open" || g.Keyswitch != 36 {
		t.Fatalf("group header = %+v", g)
	}
	if g.Attack != 0.01 || g.Release != 1.2 || g.Sustain != 0.9 {
		t.Fatalf("inherited envelope = %+v", g)
	}
	if g.VolumeDb != -1 { // -2dB groups default + 1dB group
		t.Fatalf("volume = %v, want -1", g.VolumeDb)
	}
	r := g.Regions[0]
	if r.RootNote != 52 || r.LoNote != 48 || r.HiNote != 55 || r.HiVel != 90 {
		t.Fatalf("region = %+v", r)
	}
	if r.TuneCents != -15 || r.Pan != 0.5 {
		t.Fatalf("tuning/pan = %+v", r)
	}
	if !r.LoopEnabled || r.LoopStart != 2000 || r.LoopEnd != 9000 || r.LoopCrossfade != 128 {
		t.Fatalf("loop = %+v", r)
	}

	// Per-group override beats the groups-level default.
	if groups[1].Attack != 0.05 {
		t.Fatalf("override attack = %v, want 0.05", groups[1].Attack)
	}
}

func TestParseDspresetEmptyYieldsDefaultGroup(t *testing.T) {
	groups, err := ParseDspreset([]byte(`<DecentSampler/>`), "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(groups) != 1 || groups[0].Keyswitch != -1 || len(groups[0].Regions) != 0 {
		t.Fatalf("want one empty default group, got %+v", groups)
	}
}

func TestParseDspresetWrongRoot(t *testing.T) {
	if _, err := ParseDspreset([]byte(`<NotASampler/>`), ""); err == nil {
		t.Fatal("expected error for wrong root element")
	}
}

func TestParseTimeAndDb(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"100ms", 0.1},
		{"1.5s", 1.5},
		{"0.25", 0.25},
		{"", 0},
	}
	for _, tc := range cases {
		if got := parseTime(tc.in); got != tc.want {
			t.Errorf("parseTime(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if got := parseDb("-3dB"); got != -3 {
		t.Errorf("parseDb(-3dB) = %v, want -3", got)
	}
	if got := parseDb("1.5db"); got != 1.5 {
		t.Errorf("parseDb(1.5db) = %v, want 1.5", got)
	}
}
