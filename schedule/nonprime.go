/*
Package schedule classifies studio time slots as non-prime (off-peak).

PURPOSE:
  Non-prime hours count toward category requirements of exactly one
  discipline. Which discipline, and which studio/time slots are off-peak,
  is configuration: a YAML document loaded at startup.

YAML SCHEMA:
  discipline: "Síclo"
  slots:
    - studio: "Reducto"
      times: ["06:00", "13:00"]
    - studio: "*"               # every studio
      ranges:
        - from: "21:00"
          to: "23:59"           # inclusive

NAME MATCHING:
  Discipline and studio names are compared after folding: trimmed,
  lower-cased and stripped of diacritics, so "Síclo", "siclo" and
  "SICLO " are the same discipline.

SEE ALSO:
  - payroll/store.go: NonPrimeHourPolicy interface
  - payroll/metrics.go: Counts non-prime classes
*/
package schedule

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/warp/studio-payroll/payroll"
)

const anyStudio = "*"

// Document is the YAML form of a non-prime schedule.
type Document struct {
	Discipline string     `yaml:"discipline"`
	Slots      []SlotSpec `yaml:"slots"`
}

type SlotSpec struct {
	Studio string      `yaml:"studio"`
	Times  []string    `yaml:"times,omitempty"`
	Ranges []RangeSpec `yaml:"ranges,omitempty"`
}

type RangeSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Policy implements payroll.NonPrimeHourPolicy.
type Policy struct {
	discipline string
	times      map[string]map[string]struct{}
	ranges     map[string][]minuteRange
}

type minuteRange struct {
	from, to int
}

var _ payroll.NonPrimeHourPolicy = (*Policy)(nil)

// NewPolicy builds a policy from a parsed document.
func NewPolicy(doc Document) (*Policy, error) {
	if strings.TrimSpace(doc.Discipline) == "" {
		return nil, fmt.Errorf("non-prime schedule: discipline is required")
	}

	p := &Policy{
		discipline: Fold(doc.Discipline),
		times:      make(map[string]map[string]struct{}),
		ranges:     make(map[string][]minuteRange),
	}
	for i, slot := range doc.Slots {
		studio := Fold(slot.Studio)
		if studio == "" {
			return nil, fmt.Errorf("non-prime schedule: slot %d has no studio", i)
		}
		for _, t := range slot.Times {
			if _, err := parseHHMM(t); err != nil {
				return nil, fmt.Errorf("non-prime schedule: slot %d: %w", i, err)
			}
			if p.times[studio] == nil {
				p.times[studio] = make(map[string]struct{})
			}
			p.times[studio][t] = struct{}{}
		}
		for _, r := range slot.Ranges {
			from, err := parseHHMM(r.From)
			if err != nil {
				return nil, fmt.Errorf("non-prime schedule: slot %d: %w", i, err)
			}
			to, err := parseHHMM(r.To)
			if err != nil {
				return nil, fmt.Errorf("non-prime schedule: slot %d: %w", i, err)
			}
			if to < from {
				return nil, fmt.Errorf("non-prime schedule: slot %d: range %s-%s ends before it starts", i, r.From, r.To)
			}
			p.ranges[studio] = append(p.ranges[studio], minuteRange{from: from, to: to})
		}
	}
	return p, nil
}

// ForDiscipline returns a policy for a discipline with no off-peak slots.
func ForDiscipline(name string) (*Policy, error) {
	return NewPolicy(Document{Discipline: name})
}

// Parse reads a YAML schedule.
func Parse(data []byte) (*Policy, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse non-prime schedule: %w", err)
	}
	return NewPolicy(doc)
}

// LoadFile reads a YAML schedule from disk.
func LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read non-prime schedule: %w", err)
	}
	return Parse(data)
}

func (p *Policy) AppliesTo(disciplineName string) bool {
	return Fold(disciplineName) == p.discipline
}

func (p *Policy) IsNonPrimeHour(studio string, hhmm string) bool {
	minute, err := parseHHMM(hhmm)
	if err != nil {
		return false
	}
	for _, key := range []string{Fold(studio), anyStudio} {
		if _, ok := p.times[key][hhmm]; ok {
			return true
		}
		for _, r := range p.ranges[key] {
			if minute >= r.from && minute <= r.to {
				return true
			}
		}
	}
	return false
}

// Fold normalises a name for comparison.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parseHHMM(s string) (int, error) {
	if len(s) != 5 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
