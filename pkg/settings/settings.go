package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

var ErrInvalid = errors.New("invalid setting")

type AudioQuality string

const (
	Low    AudioQuality = "low"
	Medium AudioQuality = "medium"
	High   AudioQuality = "high"
)

type Theme string

const (
	Dark   Theme = "dark"
	Light  Theme = "light"
	System Theme = "system"
)

// Keys of the persisted settings.
const (
	KeyAudioQuality  = "audio_quality"
	KeyAutoPlay      = "auto_play"
	KeyNotifications = "notifications"
	KeyTheme         = "theme"
	KeyVolume        = "volume"
)

var Keys = []string{KeyAudioQuality, KeyAutoPlay, KeyNotifications, KeyTheme, KeyVolume}

type Values struct {
	AudioQuality  AudioQuality `json:"audioQuality" yaml:"audio_quality"`
	AutoPlay      bool         `json:"autoPlay" yaml:"auto_play"`
	Notifications bool         `json:"notifications" yaml:"notifications"`
	Theme         Theme        `json:"theme" yaml:"theme"`
	Volume        float64      `json:"volume" yaml:"volume"`
}

func Defaults() Values {
	return Values{
		AudioQuality:  High,
		AutoPlay:      true,
		Notifications: true,
		Theme:         Dark,
		Volume:        0.8,
	}
}

func (v Values) Validate() error {
	switch v.AudioQuality {
	case Low, Medium, High:
	default:
		return fmt.Errorf("settings: audio quality %q: %w", v.AudioQuality, ErrInvalid)
	}
	switch v.Theme {
	case Dark, Light, System:
	default:
		return fmt.Errorf("settings: theme %q: %w", v.Theme, ErrInvalid)
	}
	if v.Volume < 0 || v.Volume > 1 {
		return fmt.Errorf("settings: volume %v: %w", v.Volume, ErrInvalid)
	}
	return nil
}

// Store persists raw setting values.
type Store interface {
	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error
}

// Settings holds user preferences. A nil store keeps them in memory.
type Settings struct {
	mu     sync.RWMutex
	store  Store
	values Values
}

func New(store Store) *Settings {
	return &Settings{
		store:  store,
		values: Defaults(),
	}
}

// Load reads the persisted values over the defaults.
func (s *Settings) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	v := Defaults()
	for _, k := range Keys {
		raw, ok, err := s.store.GetValue(ctx, k)
		if err != nil {
			return fmt.Errorf("settings: couldn't get %s: %w", k, err)
		}
		if !ok {
			continue
		}
		if err := v.set(k, raw); err != nil {
			return err
		}
	}
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = v
	return nil
}

func (s *Settings) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

func (s *Settings) AutoPlay() bool {
	return s.Values().AutoPlay
}

func (s *Settings) Notifications() bool {
	return s.Values().Notifications
}

// Update validates and persists all values.
func (s *Settings) Update(ctx context.Context, v Values) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		for _, k := range Keys {
			if err := s.store.SetValue(ctx, k, v.get(k)); err != nil {
				return fmt.Errorf("settings: couldn't set %s: %w", k, err)
			}
		}
	}
	s.values = v
	return nil
}

// Set parses and persists a single value.
func (s *Settings) Set(ctx context.Context, key, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values
	if err := v.set(key, raw); err != nil {
		return err
	}
	if err := v.Validate(); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.SetValue(ctx, key, v.get(key)); err != nil {
			return fmt.Errorf("settings: couldn't set %s: %w", key, err)
		}
	}
	s.values = v
	return nil
}

// Get returns a single value formatted as a string.
func (s *Settings) Get(key string) (string, error) {
	v := s.Values()
	for _, k := range Keys {
		if k == key {
			return v.get(key), nil
		}
	}
	return "", fmt.Errorf("settings: unknown key %q: %w", key, ErrInvalid)
}

func (v *Values) set(key, raw string) error {
	switch key {
	case KeyAudioQuality:
		v.AudioQuality = AudioQuality(raw)
	case KeyTheme:
		v.Theme = Theme(raw)
	case KeyAutoPlay, KeyNotifications:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("settings: %s %q: %w", key, raw, ErrInvalid)
		}
		if key == KeyAutoPlay {
			v.AutoPlay = b
		} else {
			v.Notifications = b
		}
	case KeyVolume:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("settings: %s %q: %w", key, raw, ErrInvalid)
		}
		v.Volume = f
	default:
		return fmt.Errorf("settings: unknown key %q: %w", key, ErrInvalid)
	}
	return nil
}

func (v Values) get(key string) string {
	switch key {
	case KeyAudioQuality:
		return string(v.AudioQuality)
	case KeyTheme:
		return string(v.Theme)
	case KeyAutoPlay:
		return strconv.FormatBool(v.AutoPlay)
	case KeyNotifications:
		return strconv.FormatBool(v.Notifications)
	case KeyVolume:
		return strconv.FormatFloat(v.Volume, 'f', -1, 64)
	}
	return ""
}
