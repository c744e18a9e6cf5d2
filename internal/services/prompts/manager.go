// Package prompts loads section prompt templates from a YAML file and assembles
// complete generation prompts for a stock identity.
package prompts

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/equitylens/internal/models"
)

// DefaultExchangeKey selects the exchange context used when an exchange has no entry
const DefaultExchangeKey = "_default"

var variablePattern = regexp.MustCompile(`\{(\w+)\}`)

// File is the YAML document layout
type File struct {
	Global          GlobalConfig               `yaml:"global"`
	Sections        map[string]SectionTemplate `yaml:"sections"`
	ExchangeContext map[string]ExchangeContext `yaml:"exchange_context"`
}

type GlobalConfig struct {
	SystemRole  string `yaml:"system_role"`
	FormatRules string `yaml:"format_rules"`
}

type SectionTemplate struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
}

// ExchangeContext carries per-exchange wording substituted into prompts
type ExchangeContext struct {
	DataSource    string `yaml:"data_source"`
	Currency      string `yaml:"currency"`
	LegalFocus    string `yaml:"legal_focus"`
	ExtraAnalysis string `yaml:"extra_analysis"`
}

// SectionName pairs a section key with its display name
type SectionName struct {
	Section models.Section
	Name    string
}

// Manager serves prompts from a YAML file and reloads it when the file changes on disk
type Manager struct {
	path    string
	logger  arbor.ILogger
	mu      sync.Mutex
	file    *File
	modTime time.Time
}

// NewManager loads the prompt file at path
func NewManager(path string, logger arbor.ILogger) (*Manager, error) {
	m := &Manager{
		path:   path,
		logger: logger,
	}

	if err := m.load(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("path", path).
		Int("sections", len(m.file.Sections)).
		Msg("Prompt templates loaded")

	return m, nil
}

func (m *Manager) load() error {
	info, err := os.Stat(m.path)
	if err != nil {
		return fmt.Errorf("failed to stat prompt file: %w", err)
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("failed to read prompt file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse prompt file %s: %w", m.path, err)
	}

	m.file = &file
	m.modTime = info.ModTime()
	return nil
}

// current returns the loaded document, reloading it first if the file's mtime changed.
// A failed reload keeps the previous document.
func (m *Manager) current() *File {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, err := os.Stat(m.path)
	if err != nil {
		m.logger.Warn().Err(err).Str("path", m.path).Msg("Prompt file unavailable, using loaded templates")
		return m.file
	}

	if !info.ModTime().Equal(m.modTime) {
		m.logger.Info().Str("path", m.path).Msg("Prompt file changed, reloading")
		if err := m.load(); err != nil {
			m.logger.Error().Err(err).Msg("Prompt reload failed, keeping previous templates")
		}
	}

	return m.file
}

// Build assembles system role, section prompt and format rules, then substitutes
// {var} placeholders from identity, today and the exchange context.
func (m *Manager) Build(section models.Section, identity models.Identity, today string) (string, error) {
	file := m.current()

	template, ok := file.Sections[section.String()]
	if !ok {
		return "", fmt.Errorf("%w: no prompt template for %q (available: %s)",
			models.ErrInvalidSection, section, strings.Join(sortedKeys(file.Sections), ", "))
	}

	exchange := file.exchangeContext(identity.Exchange)
	replacer := strings.NewReplacer(
		"{ticker}", identity.Ticker,
		"{stock_name}", identity.EnglishName,
		"{exchange}", identity.Exchange,
		"{today}", today,
		"{chinese_name}", identity.LocalizedName,
		"{data_source}", exchange.DataSource,
		"{currency}", exchange.Currency,
		"{legal_focus}", exchange.LegalFocus,
		"{extra_analysis}", exchange.ExtraAnalysis,
	)

	prompt := file.Global.SystemRole + "\n\n" + template.Prompt + "\n\n" + file.Global.FormatRules
	return strings.TrimSpace(replacer.Replace(prompt)), nil
}

func (f *File) exchangeContext(exchange string) ExchangeContext {
	if ctx, ok := f.ExchangeContext[exchange]; ok {
		return ctx
	}
	if ctx, ok := f.ExchangeContext[strings.ToUpper(strings.TrimSpace(exchange))]; ok {
		return ctx
	}
	return f.ExchangeContext[DefaultExchangeKey]
}

// SectionNames returns display names in the fixed section order. Sections without a
// template fall back to their key.
func (m *Manager) SectionNames() []SectionName {
	file := m.current()

	names := make([]SectionName, 0, len(models.AllSections))
	for _, section := range models.AllSections {
		name := section.String()
		if template, ok := file.Sections[name]; ok && template.Name != "" {
			name = template.Name
		}
		names = append(names, SectionName{Section: section, Name: name})
	}
	return names
}

// Variables lists the distinct {var} names a section prompt uses, sorted
func (m *Manager) Variables(section models.Section) []string {
	file := m.current()

	template, ok := file.Sections[section.String()]
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	var vars []string
	for _, match := range variablePattern.FindAllStringSubmatch(template.Prompt, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			vars = append(vars, match[1])
		}
	}
	sort.Strings(vars)
	return vars
}

func sortedKeys(sections map[string]SectionTemplate) []string {
	keys := make([]string, 0, len(sections))
	for key := range sections {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
