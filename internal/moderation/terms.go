package moderation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultTerms are matched as case-insensitive substrings.
var defaultTerms = []string{
	"fuck",
	"shit",
	"bitch",
	"bastard",
	"asshole",
	"cunt",
	"dick",
	"pussy",
	"slut",
	"whore",
	"retard",
	"porn",
	"nude",
	"kill yourself",
}

var defaultTLDs = []string{
	"com", "net", "org", "io", "co", "info", "biz", "xyz", "me", "ly",
	"gg", "app", "dev", "ru", "cn", "tk", "us", "uk", "in", "de", "to",
	"site", "online", "link", "click", "live",
}

// Lists is the on-disk shape of a moderation term file.
//
//	banned_terms: [foo, bar]
//	tlds: [zip, mov]
type Lists struct {
	BannedTerms []string `yaml:"banned_terms"`
	TLDs        []string `yaml:"tlds"`
}

func LoadTermsFile(path string) (Lists, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lists{}, fmt.Errorf("read terms file: %w", err)
	}
	var lists Lists
	if err := yaml.Unmarshal(data, &lists); err != nil {
		return Lists{}, fmt.Errorf("parse terms file %s: %w", path, err)
	}
	return lists, nil
}

// DefaultLists returns copies of the built-in term and TLD lists.
func DefaultLists() Lists {
	return Lists{
		BannedTerms: append([]string(nil), defaultTerms...),
		TLDs:        append([]string(nil), defaultTLDs...),
	}
}

// Merge appends other's entries to l.
func (l Lists) Merge(other Lists) Lists {
	return Lists{
		BannedTerms: append(append([]string(nil), l.BannedTerms...), other.BannedTerms...),
		TLDs:        append(append([]string(nil), l.TLDs...), other.TLDs...),
	}
}
