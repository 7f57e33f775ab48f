package utils

import (
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/monuverse/arch-of-peace-contract/types/episode"
	"github.com/monuverse/arch-of-peace-contract/whitelist"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WhitelistEntry is a whitelist record as written in a records file, with
// the chapter given by label.
type WhitelistEntry struct {
	Account string `yaml:"account"`
	Limit   uint64 `yaml:"limit"`
	Chapter string `yaml:"chapter"`
}

// LoadWhitelistRecords reads a YAML list of whitelist entries.
func LoadWhitelistRecords(path string) ([]whitelist.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load whitelist records")
	}

	entries := []WhitelistEntry{}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "load whitelist records")
	}

	records := make([]whitelist.Record, 0, len(entries))
	for i, e := range entries {
		if !common.IsHexAddress(e.Account) {
			return nil, errors.Errorf(
				"load whitelist records: entry %d: invalid account %q",
				i,
				e.Account,
			)
		}
		if e.Chapter == "" {
			return nil, errors.Errorf(
				"load whitelist records: entry %d: missing chapter",
				i,
			)
		}
		records = append(records, whitelist.Record{
			Account: common.HexToAddress(e.Account),
			Limit:   e.Limit,
			Chapter: episode.LabelID(e.Chapter),
		})
	}

	return records, nil
}
