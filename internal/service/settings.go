package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gandash/dash/internal/clock"
	"github.com/gandash/dash/internal/logger"
)

var ErrInvalidSetting = errors.New("invalid setting")

// Settings are the runtime-editable preferences of the web UI. They live in
// memory and start from the environment on every boot.
type Settings struct {
	Timezone          string `json:"timezone"`
	DefaultRemindTime string `json:"defaultRemindTime"`
	DiscordChannelID  string `json:"discordChannelId"`
}

// ChannelSetter is the messaging client whose target channel follows the
// settings.
type ChannelSetter interface {
	SetChannelID(channelID string)
}

type SettingsService struct {
	mu      sync.RWMutex
	current Settings
	channel ChannelSetter
	log     *logger.Logger
}

func NewSettingsService(initial Settings, channel ChannelSetter, log *logger.Logger) *SettingsService {
	return &SettingsService{
		current: initial,
		channel: channel,
		log:     log.WithComponent("settings"),
	}
}

func (s *SettingsService) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies the non-empty fields of patch. A new channel id retargets
// the messaging client.
func (s *SettingsService) Update(patch Settings) (Settings, error) {
	if patch.Timezone != "" {
		if _, err := time.LoadLocation(patch.Timezone); err != nil {
			return Settings{}, fmt.Errorf("%w: timezone %q", ErrInvalidSetting, patch.Timezone)
		}
	}
	if patch.DefaultRemindTime != "" {
		if _, _, err := clock.ParseHHMM(patch.DefaultRemindTime); err != nil {
			return Settings{}, fmt.Errorf("%w: %v", ErrInvalidSetting, err)
		}
	}

	s.mu.Lock()
	if patch.Timezone != "" {
		s.current.Timezone = patch.Timezone
	}
	if patch.DefaultRemindTime != "" {
		s.current.DefaultRemindTime = patch.DefaultRemindTime
	}
	channelChanged := patch.DiscordChannelID != "" && patch.DiscordChannelID != s.current.DiscordChannelID
	if channelChanged {
		s.current.DiscordChannelID = patch.DiscordChannelID
	}
	updated := s.current
	s.mu.Unlock()

	if channelChanged && s.channel != nil {
		s.channel.SetChannelID(updated.DiscordChannelID)
	}
	s.log.Infow("Settings updated",
		"timezone", updated.Timezone,
		"default_remind_time", updated.DefaultRemindTime,
		"discord_channel_id", updated.DiscordChannelID,
	)
	return updated, nil
}
