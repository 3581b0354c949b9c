package options

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tailscale/hujson"
)

// fileConfig mirrors the JSON-serializable subset of Options that a config
// file may set. Durations are accepted as Go duration strings (e.g. "5h").
type fileConfig struct {
	DataDir         string `json:"dataDir"`
	Addr            string `json:"addr"`
	SyncOnWrite     *bool  `json:"syncOnWrite"`
	CompactInterval string `json:"compactInterval"`
	FileSizeLimit   uint64 `json:"fileSizeLimit"`
}

// LoadConfigFile reads a JSONC config file (comments and trailing commas
// allowed, per tailscale/hujson) and returns the OptionFuncs needed to apply
// its settings on top of the defaults. A missing path is not an error: it
// returns no OptionFuncs, since --config is optional.
func LoadConfigFile(path string) ([]OptionFunc, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("options: read config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("options: invalid JSONC in %s: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(standardized, &fc); err != nil {
		return nil, fmt.Errorf("options: invalid JSON in %s: %w", path, err)
	}

	var funcs []OptionFunc
	if fc.DataDir != "" {
		funcs = append(funcs, WithDataDir(fc.DataDir))
	}
	if fc.Addr != "" {
		funcs = append(funcs, WithAddr(fc.Addr))
	}
	if fc.SyncOnWrite != nil {
		funcs = append(funcs, WithSyncOnWrite(*fc.SyncOnWrite))
	}
	if fc.CompactInterval != "" {
		interval, err := time.ParseDuration(fc.CompactInterval)
		if err != nil {
			return nil, fmt.Errorf("options: invalid compactInterval %q in %s: %w", fc.CompactInterval, path, err)
		}
		funcs = append(funcs, WithCompactInterval(interval))
	}
	if fc.FileSizeLimit != 0 {
		funcs = append(funcs, WithSegmentSize(fc.FileSizeLimit))
	}

	return funcs, nil
}
