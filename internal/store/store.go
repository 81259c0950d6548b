// Package store loads the YAML-backed configuration data: the filename rule
// table and the company directory.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"

	"gopkg.in/yaml.v3"
)

// AppDirName is the directory under ~/.config searched for data files.
const AppDirName = "fiscal-organizer"

// FindConfigFile looks for a data file in the standard locations: the path
// itself, ./config/, then ~/.config/fiscal-organizer/.
func FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(homeDir, ".config", AppDirName, filename))
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}
	return "", os.ErrNotExist
}

// readOptional returns nil content, without error, when the file is absent.
func readOptional(filename string, logger logging.Logger) ([]byte, string, error) {
	path, err := FindConfigFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("Data file not found, using defaults", logging.F(logging.FieldPath, filename))
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("error resolving %s: %w", filename, err)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, "", fmt.Errorf("error reading %s: %w", path, err)
	}
	return data, path, nil
}

// RuleLoader supplies the filename rule table.
type RuleLoader interface {
	LoadRules() ([]models.CategoryRule, error)
}

// RuleStore reads the filename rule table from YAML.
type RuleStore struct {
	RulesFile string
	logger    logging.Logger
}

// NewRuleStore creates a store for the given rules file. An empty path
// means "use the built-in table".
func NewRuleStore(rulesFile string, logger logging.Logger) *RuleStore {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &RuleStore{RulesFile: rulesFile, logger: logger}
}

// LoadRules returns the rules in file order. A missing or empty file
// yields no rules, which callers treat as "use the defaults". Both the
// "rules: [...]" form and a bare list are accepted.
func (s *RuleStore) LoadRules() ([]models.CategoryRule, error) {
	if s.RulesFile == "" {
		return nil, nil
	}

	data, path, err := readOptional(s.RulesFile, s.logger)
	if err != nil || data == nil {
		return nil, err
	}

	var cfg models.RulesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil || len(cfg.Rules) == 0 {
		var list []models.CategoryRule
		if listErr := yaml.Unmarshal(data, &list); listErr != nil {
			if err == nil {
				err = listErr
			}
			return nil, fmt.Errorf("error parsing rules file %s: %w", path, err)
		}
		cfg.Rules = list
	}

	rules := make([]models.CategoryRule, 0, len(cfg.Rules))
	for i, r := range cfg.Rules {
		r = r.Normalize()
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d in %s: %w", i+1, path, err)
		}
		rules = append(rules, r)
	}

	s.logger.Debug("Loaded filename rules",
		logging.F(logging.FieldCount, len(rules)),
		logging.F(logging.FieldPath, path))
	return rules, nil
}

// CompanyDirectory maps company names to CNPJs from a YAML file such as
//
//	Acme Ltda: 12.345.678/0001-90
//	Beta: "98765432000110"
type CompanyDirectory struct {
	CompaniesFile string
	logger        logging.Logger
	entries       map[string]string
	names         []string
}

// NewCompanyDirectory creates a directory backed by companiesFile.
func NewCompanyDirectory(companiesFile string, logger logging.Logger) *CompanyDirectory {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &CompanyDirectory{CompaniesFile: companiesFile, logger: logger}
}

// Load reads the file. A missing file leaves the directory empty.
func (d *CompanyDirectory) Load() error {
	d.entries = make(map[string]string)
	d.names = nil
	if d.CompaniesFile == "" {
		return nil
	}

	data, path, err := readOptional(d.CompaniesFile, d.logger)
	if err != nil || data == nil {
		return err
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("error parsing company directory %s: %w", path, err)
	}

	for name, cnpj := range raw {
		normalized := models.NormalizeCNPJ(cnpj)
		if !models.IsValidCNPJFormat(normalized) {
			return fmt.Errorf("company %q in %s: invalid CNPJ %q", name, path, cnpj)
		}
		d.entries[directoryKey(name)] = normalized
		d.names = append(d.names, name)
	}
	sort.Strings(d.names)

	d.logger.Debug("Loaded company directory",
		logging.F(logging.FieldCount, len(d.entries)),
		logging.F(logging.FieldPath, path))
	return nil
}

// Lookup returns the CNPJ registered for name, case-insensitively.
func (d *CompanyDirectory) Lookup(name string) (string, bool) {
	if d.entries == nil {
		if err := d.Load(); err != nil {
			d.logger.WithError(err).Warn("Company directory unavailable")
			return "", false
		}
	}
	cnpj, ok := d.entries[directoryKey(name)]
	return cnpj, ok
}

// Names returns the registered company names, sorted.
func (d *CompanyDirectory) Names() []string {
	return append([]string(nil), d.names...)
}

func directoryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
