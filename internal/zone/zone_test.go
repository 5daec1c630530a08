package zone

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/dated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "testdata/config"

func loadFixture(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(fixtureDir)
	require.NoError(t, err)
	return cfg
}

func TestParseExchangeKey(t *testing.T) {
	tests := []struct {
		in      string
		a, b    Key
		wantErr bool
	}{
		{in: "AT->DE", a: "AT", b: "DE"},
		{in: "DK-DK1->DK-DK2", a: "DK-DK1", b: "DK-DK2"},
		{in: "DE->AT", wantErr: true},
		{in: "DE->DE", wantErr: true},
		{in: "DE", wantErr: true},
		{in: "->DE", wantErr: true},
		{in: "A->B->C", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			a, b, err := ParseExchangeKey(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidExchangeKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.a, a)
			assert.Equal(t, tt.b, b)
		})
	}
}

func TestNewExchangeKey_SortsZones(t *testing.T) {
	assert.Equal(t, ExchangeKey("AT->DE"), NewExchangeKey("DE", "AT"))
	assert.Equal(t, ExchangeKey("AT->DE"), NewExchangeKey("AT", "DE"))
}

func TestLoad_Fixture(t *testing.T) {
	cfg := loadFixture(t)

	assert.Equal(t, []Key{"AT", "DE", "DK", "DK-DK1", "DK-DK2", "FR"}, cfg.ZoneKeys())
	assert.Equal(t, []ExchangeKey{"AT->DE", "DE->FR", "DK-DK1->DK-DK2"}, cfg.ExchangeKeys())

	fr, ok := cfg.Zone("FR")
	require.True(t, ok)
	assert.Equal(t, "CONSTANT.fetch_production", fr.Parsers["production"])
	require.NotNil(t, fr.Validation)
	assert.Equal(t, []string{"nuclear"}, fr.Validation.Required)

	ex, ok := cfg.Exchange("AT->DE")
	require.True(t, ok)
	require.NotNil(t, ex.Capacity)
	assert.Equal(t, [2]float64{-5000, 5000}, *ex.Capacity)

	assert.Equal(t, 2*time.Hour, cfg.Delay("production", "FR"))
	assert.Zero(t, cfg.Delay("price", "FR"))

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	assert.Equal(t, paris.String(), cfg.Location("FR").String())
	assert.Equal(t, time.UTC, cfg.Location("XX"))

	assert.Contains(t, cfg.Defaults().EmissionFactors["lifecycle"], "gas")
}

func TestConfig_Neighbours(t *testing.T) {
	cfg := loadFixture(t)

	assert.Equal(t, []Key{"AT", "FR"}, cfg.Neighbours("DE"))
	assert.Equal(t, []Key{"DE"}, cfg.Neighbours("AT"))
	// The Great Belt exchange has no parser and contributes nothing.
	assert.Empty(t, cfg.Neighbours("DK-DK1"))

	// neighbours(A) contains B exactly when a parsed exchange joins them.
	for _, a := range cfg.ZoneKeys() {
		for _, b := range cfg.ZoneKeys() {
			ex, ok := cfg.Exchange(NewExchangeKey(a, b))
			want := a != b && ok && len(ex.Parsers) > 0
			assert.Equal(t, want, contains(cfg.Neighbours(a), b), "%s/%s", a, b)
		}
	}
}

func TestConfig_Parent(t *testing.T) {
	cfg := loadFixture(t)

	p, ok := cfg.Parent("DK-DK1")
	require.True(t, ok)
	assert.Equal(t, Key("DK"), p)

	_, ok = cfg.Parent("DK")
	assert.False(t, ok)

	for _, k := range cfg.ZoneKeys() {
		parent, ok := cfg.Parent(k)
		if !ok {
			continue
		}
		assert.Contains(t, cfg.SubZones(parent), k)
	}
}

func TestConfig_BoundingBox(t *testing.T) {
	cfg := loadFixture(t)

	bb, ok := cfg.BoundingBox("FR")
	require.True(t, ok)
	assert.Equal(t, BoundingBox{{-5.5, 41.0}, {10.0, 51.5}}, bb)

	_, ok = cfg.BoundingBox("AT")
	assert.False(t, ok)
}

func TestConfig_AccessorsReturnCopies(t *testing.T) {
	cfg := loadFixture(t)

	zones := cfg.Zones()
	delete(zones, "FR")
	assert.True(t, cfg.HasZone("FR"))

	n := cfg.Neighbours("DE")
	n[0] = "ZZ"
	assert.Equal(t, []Key{"AT", "FR"}, cfg.Neighbours("DE"))
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	bad := BoundingBox{{10, 50}, {5, 40}}
	tests := []struct {
		name      string
		zones     []Record
		exchanges []ExchangeRecord
	}{
		{
			name:  "unknown sub-zone",
			zones: []Record{{Key: "X", Timezone: "UTC", SubZoneNames: []Key{"X1"}}},
		},
		{
			name: "sub-zone with two parents",
			zones: []Record{
				{Key: "A", Timezone: "UTC", SubZoneNames: []Key{"C"}},
				{Key: "B", Timezone: "UTC", SubZoneNames: []Key{"C"}},
				{Key: "C", Timezone: "UTC"},
			},
		},
		{
			name:  "invalid timezone",
			zones: []Record{{Key: "X", Timezone: "Mars/Olympus"}},
		},
		{
			name:  "missing timezone",
			zones: []Record{{Key: "X"}},
		},
		{
			name:  "unordered bounding box",
			zones: []Record{{Key: "X", Timezone: "UTC", BoundingBox: &bad}},
		},
		{
			name:      "exchange with unknown endpoint",
			zones:     []Record{{Key: "A", Timezone: "UTC"}},
			exchanges: []ExchangeRecord{{Key: "A->B"}},
		},
		{
			name:      "unsorted exchange key",
			zones:     []Record{{Key: "A", Timezone: "UTC"}, {Key: "B", Timezone: "UTC"}},
			exchanges: []ExchangeRecord{{Key: "B->A"}},
		},
		{
			name:      "inverted exchange capacity",
			zones:     []Record{{Key: "A", Timezone: "UTC"}, {Key: "B", Timezone: "UTC"}},
			exchanges: []ExchangeRecord{{Key: "A->B", Capacity: &[2]float64{100, -100}}},
		},
		{
			name: "sub-zone cycle",
			zones: []Record{
				{Key: "A", Timezone: "UTC", SubZoneNames: []Key{"B"}},
				{Key: "B", Timezone: "UTC", SubZoneNames: []Key{"A"}},
			},
		},
		{
			name:  "negative delay",
			zones: []Record{{Key: "A", Timezone: "UTC", Delays: map[string]int{"production": -1}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.zones, tt.exchanges, Defaults{})
			require.ErrorIs(t, err, ErrConfigLoad)
		})
	}
}

func TestNew_ReportsSubZoneCycleOnce(t *testing.T) {
	_, err := New([]Record{
		{Key: "C", Timezone: "UTC", SubZoneNames: []Key{"A"}},
		{Key: "A", Timezone: "UTC", SubZoneNames: []Key{"B"}},
		{Key: "B", Timezone: "UTC", SubZoneNames: []Key{"C"}},
		{Key: "D", Timezone: "UTC", SubZoneNames: []Key{"E"}},
		{Key: "E", Timezone: "UTC"},
	}, nil, Defaults{})
	require.ErrorIs(t, err, ErrConfigLoad)
	assert.Equal(t, 1, strings.Count(err.Error(), "sub-zone cycle"))
	assert.Contains(t, err.Error(), "A -> B -> C -> A")
	assert.NotContains(t, err.Error(), "D")
}

func TestConfig_RecordsAreDeepCopies(t *testing.T) {
	floor := 10.0
	cfg, err := New(
		[]Record{{
			Key:          "A",
			Timezone:     "UTC",
			SubZoneNames: []Key{"A1"},
			Parsers:      map[string]string{"production": "CONSTANT.fetch_production"},
			Delays:       map[string]int{"production": 2},
			Validation:   &ValidationRules{Required: []string{"nuclear"}, Floor: &floor},
		}, {Key: "A1", Timezone: "UTC"}, {Key: "B", Timezone: "UTC"}},
		[]ExchangeRecord{{Key: "A->B", Parsers: map[string]string{"exchange": "X.fetch_exchange"}}},
		Defaults{IsRenewable: map[string]dated.Entry{"solar": dated.Scalar(1)}},
	)
	require.NoError(t, err)

	z, ok := cfg.Zone("A")
	require.True(t, ok)
	z.Parsers["production"] = "OTHER.fetch_production"
	z.Delays["production"] = 9
	z.SubZoneNames[0] = "Z"
	z.Validation.Required[0] = "coal"
	*z.Validation.Floor = 0

	cfg.Zones()["A"].Parsers["consumption"] = "OTHER.fetch_consumption"
	cfg.Exchanges()["A->B"].Parsers["exchange"] = "OTHER.fetch_exchange"
	delete(cfg.Defaults().IsRenewable, "solar")

	again, _ := cfg.Zone("A")
	assert.Equal(t, map[string]string{"production": "CONSTANT.fetch_production"}, again.Parsers)
	assert.Equal(t, 2*time.Hour, cfg.Delay("production", "A"))
	assert.Equal(t, []Key{"A1"}, cfg.SubZones("A"))
	assert.Equal(t, []string{"nuclear"}, again.Validation.Required)
	assert.InDelta(t, 10.0, *again.Validation.Floor, 0)
	ex, _ := cfg.Exchange("A->B")
	assert.Equal(t, "X.fetch_exchange", ex.Parsers["exchange"])
	assert.Contains(t, cfg.Defaults().IsRenewable, "solar")
}

func TestLoad_RejectsBadFiles(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{
			name: "unknown yaml key",
			files: map[string]string{
				"zones/A.yaml": "timezone: UTC\ncolour: blue\n",
			},
		},
		{
			name: "unsorted exchange file name",
			files: map[string]string{
				"zones/A.yaml":       "timezone: UTC\n",
				"zones/B.yaml":       "timezone: UTC\n",
				"exchanges/B_A.yaml": "parsers: {exchange: X.fetch_exchange}\n",
			},
		},
		{
			name: "exchange file name without separator",
			files: map[string]string{
				"zones/A.yaml":     "timezone: UTC\n",
				"exchanges/A.yaml": "{}\n",
			},
		},
		{
			name: "malformed capacity entry",
			files: map[string]string{
				"zones/A.yaml": "timezone: UTC\ncapacity:\n  coal: lots\n",
			},
		},
		{
			name:  "missing zones directory",
			files: map[string]string{"defaults.yaml": "{}\n"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, body := range tt.files {
				path := filepath.Join(dir, name)
				require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
				require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			}
			_, err := Load(dir)
			require.ErrorIs(t, err, ErrConfigLoad)
		})
	}
}

func contains(keys []Key, k Key) bool {
	for _, x := range keys {
		if x == k {
			return true
		}
	}
	return false
}
