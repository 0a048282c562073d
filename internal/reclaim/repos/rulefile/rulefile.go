// Package rulefile loads site rules from YAML, JSON and TOML files.
//
// Each file holds a "rules" list:
//
//	rules:
//	  - id: yt
//	    site: youtube.com
//	    mode: range
//	    start: "09:00"
//	    end: "17:00"
//	    skipDaysOff: true
//
// pattern defaults to one derived from site, enabled defaults to true, and
// rules without an id get "<file name>-<position>" so reloading the same
// file replaces rather than duplicates them.
package rulefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	"github.com/haukened/reclaim/internal/reclaim/common/utils"
	"github.com/haukened/reclaim/internal/reclaim/domain"
)

// LoadDirectory walks dir and loads every supported rule file, in lexical
// path order. Files with other extensions are ignored. Returns an error if
// any file fails to parse.
func LoadDirectory(dir string) ([]domain.SiteRule, error) {
	var rules []domain.SiteRule
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if parserFor(path) == nil {
			return nil
		}
		fileRules, err := LoadFile(path)
		if err != nil {
			return err
		}
		rules = append(rules, fileRules...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// LoadFile loads the rules of a single file. The parser is chosen by extension.
func LoadFile(path string) ([]domain.SiteRule, error) {
	parser := parserFor(path)
	if parser == nil {
		return nil, fmt.Errorf("unsupported rule file type %q", filepath.Ext(path))
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load rule file %s: %w", path, err)
	}
	if !k.Exists("rules") {
		return nil, fmt.Errorf("rule file %s missing 'rules'", path)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	entries := k.Slices("rules")
	rules := make([]domain.SiteRule, 0, len(entries))
	for i, entry := range entries {
		r, err := buildRule(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid rule #%d in %s: %w", i+1, path, err)
		}
		if r.ID == "" {
			r.ID = base + "-" + strconv.Itoa(i+1)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	case ".toml":
		return toml.Parser()
	default:
		return nil
	}
}

// buildRule converts one entry of the rules list into a validated SiteRule.
func buildRule(k *koanf.Koanf) (domain.SiteRule, error) {
	site := strings.TrimSpace(k.String("site"))
	pattern := strings.TrimSpace(k.String("pattern"))
	if pattern == "" {
		pattern = utils.DerivePattern(site)
	}

	kind := domain.ModeUntilTime
	if k.String("mode") != "" {
		var err error
		if kind, err = domain.ParseModeKind(k.String("mode")); err != nil {
			return domain.SiteRule{}, err
		}
	}
	mode, err := domain.BuildMode(kind, k.String("until"), k.String("start"), k.String("end"))
	if err != nil {
		return domain.SiteRule{}, err
	}

	r, err := domain.NewSiteRule(k.String("id"), site, pattern, mode, time.Time{})
	if err != nil {
		return domain.SiteRule{}, err
	}
	if k.Exists("enabled") {
		r.Enabled = k.Bool("enabled")
	}
	r.SkipDaysOff = k.Bool("skipDaysOff")
	return r, nil
}
