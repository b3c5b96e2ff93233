package report

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadOptions reads report options from a YAML file. Fields left out of the
// file keep their defaults; thresholds below 1 are rejected because both
// filters and truncation need a positive width.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse %s: %w", path, err)
	}
	if opts.TopAreaCodes < 1 || opts.MinAreaCodeCalls < 1 ||
		opts.MinCampaignCalls < 1 || opts.CampaignNameWidth < 3 {
		return opts, fmt.Errorf("%s: thresholds must be positive", path)
	}
	return opts, nil
}
