package persistence

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/talgya/statecraft/internal/engine"
	"github.com/talgya/statecraft/internal/events"
	"github.com/talgya/statecraft/internal/social"
)

func sampleState() engine.State {
	cool := time.Date(2000, 1, 1, 0, 42, 0, 0, time.UTC)
	return engine.State{
		SessionID:   "session-1",
		Character:   "presidente",
		Day:         42,
		Metrics:     map[string]float64{"economia": 61.5, "estabilidad": 40},
		CrisisLevel: 2,
		Fired:       []string{"budget", "scandal", "budget"},
		Cooldowns:   map[string]time.Time{"scandal": cool},
		Decisions: []events.DecisionResult{{
			EventID:  "budget",
			ChoiceID: "austerity",
			Day:      40,
			Metrics:  map[string]float64{"economia": 5},
			Regional: []social.AppliedEffect{{
				RegionalEffect: social.RegionalEffect{ProvinceID: "north", PerceptionChange: -10, Description: "budget"},
				Depth:          1,
				Applied:        -10,
			}},
		}},
		Unlocked: []string{"strike"},
		Pending:  "scandal",
		Provinces: []*social.Province{
			{
				ID: "north", Name: "Norte", Population: 120000,
				Ideology: social.IdeologyPopulist, State: social.StateTense,
				Perception: -35, Loyalty: 40, Discontent: 55, RebellionLevel: 12, EconomicLevel: 48,
				Neighbors:    []string{"south"},
				ActiveEvents: []social.ActiveEvent{{Description: "budget", Day: 40, ExpiresDay: 47}},
				SocialHistory: []social.Transition{{
					ProvinceID: "north", From: social.StateCalm, To: social.StateTense, Day: 40,
				}},
			},
			{
				ID: "south", Name: "Sur", Population: 80000,
				Ideology: social.IdeologyConservative, State: social.StateCalm,
				Perception: 10, Loyalty: 60, Discontent: 20, EconomicLevel: 50,
				Neighbors: []string{"north"},
			},
		},
	}
}

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "statesim.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := openTemp(t)

	has, err := db.HasState()
	if err != nil || has {
		t.Fatalf("fresh db HasState = %v, %v", has, err)
	}

	want := sampleState()
	if err := db.SaveState(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if has, err := db.HasState(); err != nil || !has {
		t.Fatalf("HasState after save = %v, %v", has, err)
	}

	got, err := db.LoadState()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.SessionID != want.SessionID || got.Character != want.Character || got.Day != want.Day ||
		got.CrisisLevel != want.CrisisLevel || got.Pending != want.Pending {
		t.Fatalf("header fields = %+v", got)
	}
	if !reflect.DeepEqual(got.Metrics, want.Metrics) {
		t.Errorf("metrics = %v, want %v", got.Metrics, want.Metrics)
	}
	if !reflect.DeepEqual(got.Fired, want.Fired) {
		t.Errorf("fired = %v, want %v", got.Fired, want.Fired)
	}
	if !got.Cooldowns["scandal"].Equal(want.Cooldowns["scandal"]) {
		t.Errorf("cooldown = %v, want %v", got.Cooldowns["scandal"], want.Cooldowns["scandal"])
	}
	if !reflect.DeepEqual(got.Unlocked, want.Unlocked) {
		t.Errorf("unlocked = %v", got.Unlocked)
	}
	if len(got.Decisions) != 1 || got.Decisions[0].ChoiceID != "austerity" ||
		len(got.Decisions[0].Regional) != 1 || got.Decisions[0].Regional[0].ProvinceID != "north" {
		t.Errorf("decisions = %+v", got.Decisions)
	}
	if len(got.Provinces) != 2 || got.Provinces[0].ID != "north" || got.Provinces[1].ID != "south" {
		t.Fatalf("provinces out of order: %+v", got.Provinces)
	}
	if !reflect.DeepEqual(got.Provinces[0], want.Provinces[0]) {
		t.Errorf("province north = %+v\nwant %+v", got.Provinces[0], want.Provinces[0])
	}
}

func TestSaveReplacesPreviousState(t *testing.T) {
	db := openTemp(t)

	first := sampleState()
	if err := db.SaveState(first); err != nil {
		t.Fatal(err)
	}

	second := sampleState()
	second.Day = 43
	second.Fired = []string{"summit"}
	second.Pending = ""
	second.Unlocked = nil
	second.Provinces = second.Provinces[1:]
	if err := db.SaveState(second); err != nil {
		t.Fatal(err)
	}

	got, err := db.LoadState()
	if err != nil {
		t.Fatal(err)
	}
	if got.Day != 43 || got.Pending != "" {
		t.Errorf("day/pending = %d/%q", got.Day, got.Pending)
	}
	if len(got.Fired) != 1 || len(got.Unlocked) != 0 || len(got.Provinces) != 1 {
		t.Errorf("stale rows survived: fired=%v unlocked=%v provinces=%d",
			got.Fired, got.Unlocked, len(got.Provinces))
	}
}

func TestLoadStateEmpty(t *testing.T) {
	db := openTemp(t)
	if _, err := db.LoadState(); err == nil {
		t.Fatal("expected error loading from an empty database")
	}
}

func TestMeta(t *testing.T) {
	db := openTemp(t)
	if err := db.SaveMeta("scenario", "default"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta("scenario", "andes"); err != nil {
		t.Fatal(err)
	}
	v, err := db.GetMeta("scenario")
	if err != nil || v != "andes" {
		t.Fatalf("GetMeta = %q, %v", v, err)
	}
}

func TestOpenFromEnv(t *testing.T) {
	t.Run("sqlite default", func(t *testing.T) {
		t.Setenv(EnvDialect, "")
		t.Setenv(EnvPath, filepath.Join(t.TempDir(), "env.db"))
		db, err := OpenFromEnv("")
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer db.Close()
		if db.Dialect() != DialectSQLite {
			t.Errorf("dialect = %q", db.Dialect())
		}
	})

	t.Run("sqlite fallback path", func(t *testing.T) {
		t.Setenv(EnvDialect, "SQLite")
		t.Setenv(EnvPath, "")
		db, err := OpenFromEnv(filepath.Join(t.TempDir(), "fallback.db"))
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		db.Close()
	})

	tests := []struct {
		name    string
		dialect string
		path    string
		want    string
	}{
		{"sqlite without path", "sqlite", "", "requires"},
		{"postgres without dsn", "postgres", "", EnvPostgresDSN},
		{"unknown dialect", "oracle", "", "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDialect, tt.dialect)
			t.Setenv(EnvPath, tt.path)
			t.Setenv(EnvPostgresDSN, "")
			_, err := OpenFromEnv("")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", "day42.json.zst")
	want := sampleState()
	if err := WriteSnapshot(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}

	hdr, got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if hdr.Version != snapshotVersion || hdr.SessionID != want.SessionID || hdr.Day != want.Day {
		t.Errorf("header = %+v", hdr)
	}
	if got.Pending != want.Pending || !reflect.DeepEqual(got.Fired, want.Fired) {
		t.Errorf("state = %+v", got)
	}
	if !reflect.DeepEqual(got.Provinces[0], want.Provinces[0]) {
		t.Errorf("province = %+v", got.Provinces[0])
	}
}

func TestReadSnapshotRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zst")
	if err := os.WriteFile(path, []byte("not zstd at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadSnapshot(path); err == nil {
		t.Fatal("expected error")
	}
}
