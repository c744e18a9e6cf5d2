package models

import (
	"fmt"
	"strings"
	"time"
)

// Section identifies one independently generated and cached report category.
type Section string

const (
	SectionBusiness  Section = "biz"
	SectionExecutive Section = "exec"
	SectionFinance   Section = "finance"
	SectionCall      Section = "call"
	SectionPrice     Section = "ta_price"
	SectionAnalyst   Section = "ta_analyst"
	SectionSocial    Section = "ta_social"
)

// AllSections is the fixed section set in display order.
var AllSections = []Section{
	SectionBusiness,
	SectionExecutive,
	SectionFinance,
	SectionCall,
	SectionPrice,
	SectionAnalyst,
	SectionSocial,
}

// Valid reports whether s is one of the fixed section keys.
func (s Section) Valid() bool {
	for _, known := range AllSections {
		if s == known {
			return true
		}
	}
	return false
}

func (s Section) String() string {
	return string(s)
}

// ParseSection validates a raw section key. Keys are case-sensitive.
func ParseSection(raw string) (Section, error) {
	s := Section(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSection, raw)
	}
	return s, nil
}

// Identity is the resolved identity of a canonical ticker.
type Identity struct {
	Ticker        string `json:"ticker"`
	EnglishName   string `json:"stock_name"`
	LocalizedName string `json:"chinese_name"`
	Exchange      string `json:"exchange"`
}

// DisplayName returns the localized name, falling back to the English name.
func (i Identity) DisplayName() string {
	if i.LocalizedName != "" {
		return i.LocalizedName
	}
	return i.EnglishName
}

// StockRecord is the cached state of one canonical ticker.
// CreatedAt is set on first save and never changes; UpdatedAt moves on every write.
type StockRecord struct {
	Ticker        string             `json:"ticker"`
	EnglishName   string             `json:"stock_name"`
	LocalizedName string             `json:"chinese_name"`
	Exchange      string             `json:"exchange"`
	Sections      map[Section]string `json:"sections,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Identity returns the identity fields of the record.
func (r *StockRecord) Identity() Identity {
	return Identity{
		Ticker:        r.Ticker,
		EnglishName:   r.EnglishName,
		LocalizedName: r.LocalizedName,
		Exchange:      r.Exchange,
	}
}

// Section returns the cached content for a section and whether it is non-empty.
func (r *StockRecord) Section(section Section) (string, bool) {
	if r.Sections == nil {
		return "", false
	}
	content, ok := r.Sections[section]
	return content, ok && content != ""
}

// SymbolCandidate is one row of a symbol-search response.
type SymbolCandidate struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// AnalysisResult is the outcome of a section request.
type AnalysisResult struct {
	Ticker    string  `json:"ticker"`
	Section   Section `json:"section"`
	Content   string  `json:"content"`
	FromCache bool    `json:"from_cache"`
	// Degraded is set when Content is placeholder text from a failed or empty generation.
	Degraded bool `json:"degraded,omitempty"`
}
