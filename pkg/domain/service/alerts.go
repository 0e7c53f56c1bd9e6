package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type AlertKind int

const (
	AlertNewOrder AlertKind = iota
	AlertOwnOrderUpdate
)

type Tone struct {
	FrequencyHz int
	Duration    time.Duration
}

type ToneSink interface {
	Play(tones []Tone) error
}

type VibrationSink interface {
	Vibrate(pattern []time.Duration) error
}

type BannerSink interface {
	Show(title, body string) error
}

// AlertSettings are process-wide, mutated immediately on toggle and not
// persisted across restarts. Defaults are all-on.
type AlertSettings struct {
	mu        sync.Mutex
	enabled   bool
	sound     bool
	vibration bool
}

func NewAlertSettings() *AlertSettings {
	return &AlertSettings{enabled: true, sound: true, vibration: true}
}

func (s *AlertSettings) SetEnabled(v bool) {
	s.mu.Lock()
	s.enabled = v
	s.mu.Unlock()
}

func (s *AlertSettings) SetSound(v bool) {
	s.mu.Lock()
	s.sound = v
	s.mu.Unlock()
}

func (s *AlertSettings) SetVibration(v bool) {
	s.mu.Lock()
	s.vibration = v
	s.mu.Unlock()
}

func (s *AlertSettings) Snapshot() (enabled, sound, vibration bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled, s.sound, s.vibration
}

// Alerter turns board and order events into local side effects: a short
// tone, a vibration pattern and a soft banner, each behind its own
// user-toggleable flag. Sink failures are logged and never propagated.
type Alerter struct {
	settings *AlertSettings
	tones    ToneSink
	vibes    VibrationSink
	banners  BannerSink
}

func NewAlerter(settings *AlertSettings, tones ToneSink, vibes VibrationSink, banners BannerSink) *Alerter {
	return &Alerter{settings: settings, tones: tones, vibes: vibes, banners: banners}
}

// NewPendingOrder satisfies the board's Notifier.
func (a *Alerter) NewPendingOrder(orderID uuid.UUID, customerName string) {
	a.Alert(AlertNewOrder, "New order", fmt.Sprintf("%s placed an order", customerName))
}

// OwnOrderUpdate announces a status change of the signed-in customer's
// own order.
func (a *Alerter) OwnOrderUpdate(orderID uuid.UUID, statusLabel string) {
	a.Alert(AlertOwnOrderUpdate, "Order update", fmt.Sprintf("your order is %s", statusLabel))
}

func (a *Alerter) Alert(kind AlertKind, title, body string) {
	enabled, sound, vibration := a.settings.Snapshot()
	if !enabled {
		return
	}

	if sound && a.tones != nil {
		if err := a.tones.Play(tonePattern(kind)); err != nil {
			log.WithError(err).Warn("alert tone failed")
		}
	}
	if vibration && a.vibes != nil {
		if err := a.vibes.Vibrate(vibrationPattern(kind)); err != nil {
			log.WithError(err).Warn("alert vibration failed")
		}
	}
	if a.banners != nil {
		if err := a.banners.Show(title, body); err != nil {
			log.WithError(err).Warn("alert banner failed")
		}
	}
}

// Each event kind has its own recognizable tone and vibration pattern.
func tonePattern(kind AlertKind) []Tone {
	switch kind {
	case AlertNewOrder:
		return []Tone{
			{FrequencyHz: 880, Duration: 200 * time.Millisecond},
			{FrequencyHz: 1320, Duration: 200 * time.Millisecond},
		}
	default:
		return []Tone{{FrequencyHz: 660, Duration: 150 * time.Millisecond}}
	}
}

func vibrationPattern(kind AlertKind) []time.Duration {
	switch kind {
	case AlertNewOrder:
		return []time.Duration{200 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}
	default:
		return []time.Duration{100 * time.Millisecond}
	}
}
