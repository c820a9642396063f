// Package inspire provides prompt ideas for new songs, either from weighted
// presets or from an OpenAI chat model.
package inspire

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

type Preset struct {
	Name         string `yaml:"name" csv:"name" json:"name"`
	Prompt       string `yaml:"prompt" csv:"prompt" json:"prompt"`
	Style        string `yaml:"style" csv:"style" json:"style,omitempty"`
	Instrumental bool   `yaml:"instrumental" csv:"instrumental" json:"instrumental,omitempty"`
	Weight       int    `yaml:"weight" csv:"weight" json:"-"`
}

func (p Preset) String() string {
	return fmt.Sprintf("{%s, p: %s, s: %s, i: %v}", p.Name, p.Prompt, p.Style, p.Instrumental)
}

// Request converts the preset into a generation request.
func (p Preset) Request() music.Request {
	return music.Request{
		Prompt:       p.Prompt,
		Style:        p.Style,
		Instrumental: p.Instrumental,
	}
}

// Defaults are the built-in presets.
func Defaults() []Preset {
	return []Preset{
		{Name: "lofi", Prompt: "Chill lo-fi beats with soft rain and vinyl crackle for late night study", Style: "lo-fi, chillhop", Weight: 100},
		{Name: "synthwave", Prompt: "Retro synthwave drive through a neon city at midnight", Style: "synthwave, 80s", Weight: 80},
		{Name: "jazz", Prompt: "Smooth jazz in a smoky bar with a walking bass and muted trumpet", Style: "jazz", Weight: 80},
		{Name: "pop", Prompt: "Upbeat summer pop anthem about road trips with friends", Style: "pop", Weight: 60},
		{Name: "edm", Prompt: "Energetic festival EDM drop with huge supersaw chords", Style: "electronic dance", Weight: 50},
		{Name: "ballad", Prompt: "Emotional piano ballad about saying goodbye", Style: "ballad, piano", Weight: 40},
		{Name: "country", Prompt: "Country ballad about a small town and an old pickup truck", Style: "country", Weight: 20},
		{Name: "ambient", Prompt: "Slow evolving ambient soundscape for deep focus", Style: "ambient", Instrumental: true, Weight: 20},
		{Name: "film score", Prompt: "Epic orchestral film score for a mountain sunrise", Style: "film score, orchestral", Instrumental: true, Weight: 10},
		{Name: "post-rock", Prompt: "Cinematic post-rock crescendo with delayed guitars", Style: "post-rock", Instrumental: true, Weight: 10},
	}
}

// Load reads presets from a YAML or CSV file.
func Load(path string) ([]Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("inspire: couldn't read %s: %w", path, err)
	}
	var presets []Preset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &presets); err != nil {
			return nil, fmt.Errorf("inspire: couldn't parse yaml %s: %w", path, err)
		}
	case ".csv":
		if err := gocsv.Unmarshal(bytes.NewReader(b), &presets); err != nil {
			return nil, fmt.Errorf("inspire: couldn't parse csv %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("inspire: unsupported preset file %s", path)
	}
	var valid []Preset
	for _, p := range presets {
		if strings.TrimSpace(p.Prompt) == "" {
			continue
		}
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("inspire: no presets in %s", path)
	}
	return valid, nil
}

// Picker draws presets at random, proportionally to their weight. A weight
// of zero or less counts as one.
type Picker struct {
	mu      sync.Mutex
	presets []Preset
	total   int
	rnd     *rand.Rand
}

func NewPicker(presets []Preset, seed int64) *Picker {
	if len(presets) == 0 {
		presets = Defaults()
	}
	var total int
	for _, p := range presets {
		total += weight(p)
	}
	return &Picker{
		presets: presets,
		total:   total,
		rnd:     rand.New(rand.NewSource(seed)),
	}
}

func weight(p Preset) int {
	if p.Weight <= 0 {
		return 1
	}
	return p.Weight
}

func (p *Picker) Pick() Preset {
	p.mu.Lock()
	n := p.rnd.Intn(p.total)
	p.mu.Unlock()
	for _, pr := range p.presets {
		n -= weight(pr)
		if n < 0 {
			return pr
		}
	}
	return p.presets[len(p.presets)-1]
}

func (p *Picker) Presets() []Preset {
	return append([]Preset{}, p.presets...)
}
