package score

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"logforge/core"
)

// Tier is one rung of a factor table: if any keyword matches, the tier's
// points apply. Tiers are evaluated in order and the first match wins, so
// tables list their highest tier first.
type Tier struct {
	Name     string   `json:"name" yaml:"name"`
	Points   int      `json:"points" yaml:"points"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// Thresholds map a summed score to a severity bucket. Comparison is strictly
// greater-than, so a score sitting exactly on a boundary falls into the less
// severe bucket.
type Thresholds struct {
	Critical int `json:"critical" yaml:"critical"`
	High     int `json:"high" yaml:"high"`
	Medium   int `json:"medium" yaml:"medium"`
}

// Config holds the factor tables and thresholds. The values are calibration
// data, not fixed constants; DefaultConfig is tuned so routine informational
// records stay out of the high bucket even on critical-tier services.
type Config struct {
	ServiceTiers    []Tier             `json:"service_tiers" yaml:"service_tiers"`
	ServiceDefault  int                `json:"service_default" yaml:"service_default"`
	LevelPoints     map[core.Level]int `json:"level_points" yaml:"level_points"`
	MessageTiers    []Tier             `json:"message_tiers" yaml:"message_tiers"`
	EndpointTiers   []Tier             `json:"endpoint_tiers" yaml:"endpoint_tiers"`
	EndpointDefault int                `json:"endpoint_default" yaml:"endpoint_default"`
	Thresholds      Thresholds         `json:"thresholds" yaml:"thresholds"`
}

// DefaultConfig returns the calibrated factor tables.
func DefaultConfig() Config {
	return Config{
		ServiceTiers: []Tier{
			{Name: "critical", Points: 35, Keywords: []string{
				"payment", "auth", "billing", "checkout", "ledger",
			}},
			{Name: "high", Points: 25, Keywords: []string{
				"order", "user", "account", "inventory", "transaction",
			}},
			{Name: "medium", Points: 15, Keywords: []string{
				"notification", "report", "search", "catalog",
			}},
			{Name: "low", Points: 0, Keywords: []string{
				"health", "ping", "test", "heartbeat",
			}},
		},
		ServiceDefault: 5,
		LevelPoints: map[core.Level]int{
			core.LevelFatal: 25,
			core.LevelError: 18,
			core.LevelWarn:  10,
			core.LevelInfo:  2,
			core.LevelDebug: 2,
		},
		MessageTiers: []Tier{
			{Name: "tier1", Points: 20, Keywords: []string{
				"unauthorized", "breach", "corruption", "data loss",
			}},
			{Name: "tier2", Points: 13, Keywords: []string{
				"connection failed", "timeout", "deadlock", "unavailable",
			}},
			{Name: "tier3", Points: 7, Keywords: []string{
				"slow", "retry", "degraded", "high latency",
			}},
		},
		EndpointTiers: []Tier{
			{Name: "tier1", Points: 15, Keywords: []string{
				"payment", "auth", "checkout", "billing",
				"fb60", "fb03", "f110", "fk01",
			}},
			{Name: "tier2", Points: 9, Keywords: []string{
				"order", "user", "account", "inventory",
				"va01", "va03", "me21n", "me23n", "migo", "mm02",
			}},
			{Name: "tier3", Points: 0, Keywords: []string{
				"health", "ping", "test", "status",
			}},
		},
		EndpointDefault: 4,
		Thresholds:      Thresholds{Critical: 75, High: 55, Medium: 25},
	}
}

// Load applies the YAML file at path on top of the default tables. Fields
// absent from the file keep their defaults; tier lists present in the file
// replace the default list wholesale.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scoring config %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scoring config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scoring config %q: %w", path, err)
	}
	return &cfg, nil
}

// Validate rejects tables a scorer cannot run on.
func (c Config) Validate() error {
	if len(c.ServiceTiers) == 0 {
		return fmt.Errorf("score: service tiers are empty")
	}
	if len(c.MessageTiers) == 0 {
		return fmt.Errorf("score: message tiers are empty")
	}
	if len(c.EndpointTiers) == 0 {
		return fmt.Errorf("score: endpoint tiers are empty")
	}
	for _, level := range []core.Level{
		core.LevelDebug, core.LevelInfo, core.LevelWarn, core.LevelError, core.LevelFatal,
	} {
		if _, ok := c.LevelPoints[level]; !ok {
			return fmt.Errorf("score: level %s has no point value", level)
		}
	}
	t := c.Thresholds
	if t.Critical <= t.High || t.High <= t.Medium || t.Medium < 0 {
		return fmt.Errorf("score: thresholds %+v are not strictly descending", t)
	}
	return nil
}
