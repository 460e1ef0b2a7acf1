// Package config loads the settings of the avatar binaries from an optional
// YAML file, environment variables and a .env file, in increasing order of
// precedence for the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/jinzhu/copier"
	"gopkg.in/yaml.v3"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar"
)

const (
	DefaultAvatarID        = "00e7b435191b4dcc85936073262b9aa8"
	DefaultKnowledgeBaseID = "6a065e56b4a74f7a884d8323e10ceb90"
	DefaultLanguage        = "nl"
	DefaultTokenEndpoint   = "http://localhost:3000/api/get-access-token"
	DefaultServerAddr      = ":3000"
)

type AudioBackend string

const (
	AudioMiniaudio AudioBackend = "miniaudio"
	AudioPortaudio AudioBackend = "portaudio"
	AudioNone      AudioBackend = "none"
)

type Config struct {
	Avatar   AvatarConfig   `yaml:"avatar" json:"avatar"`
	Client   ClientConfig   `yaml:"client" json:"client"`
	Deepgram DeepgramConfig `yaml:"deepgram" json:"deepgram"`
	Server   ServerConfig   `yaml:"server" json:"server"`
}

// AvatarConfig selects the avatar of new sessions.
type AvatarConfig struct {
	Quality            string       `yaml:"quality" json:"quality" jsonschema:"enum=low,enum=medium,enum=high,default=high"`
	AvatarID           string       `yaml:"avatar_id" json:"avatar_id" jsonschema:"required"`
	KnowledgeBaseID    string       `yaml:"knowledge_base_id" json:"knowledge_base_id"`
	Language           string       `yaml:"language" json:"language" jsonschema:"default=nl"`
	DisableIdleTimeout bool         `yaml:"disable_idle_timeout" json:"disable_idle_timeout"`
	Voice              avatar.Voice `yaml:"voice" json:"voice"`
}

type ClientConfig struct {
	// TokenEndpoint is where the client fetches session tokens.
	TokenEndpoint string       `yaml:"token_endpoint" json:"token_endpoint" jsonschema:"format=uri"`
	Debug         bool         `yaml:"debug" json:"debug"`
	Autoplay      bool         `yaml:"autoplay" json:"autoplay"`
	SilencePrompt bool         `yaml:"silence_prompt" json:"silence_prompt"`
	Audio         AudioBackend `yaml:"audio" json:"audio" jsonschema:"enum=miniaudio,enum=portaudio,enum=none"`
	// ArchivePath is the SQLite file transcripts are saved to, empty
	// disables archiving.
	ArchivePath string `yaml:"archive_path" json:"archive_path,omitempty"`
}

// DeepgramConfig enables local transcription of the microphone in voice
// mode when an API key is set.
type DeepgramConfig struct {
	APIKey string `yaml:"api_key" json:"api_key,omitempty"`
	Model  string `yaml:"model" json:"model,omitempty"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr" json:"addr"`
	APIKey  string `yaml:"api_key" json:"api_key,omitempty"`
	BaseURL string `yaml:"base_url" json:"base_url,omitempty" jsonschema:"format=uri"`
}

func Default() *Config {
	return &Config{
		Avatar: AvatarConfig{
			Quality:            string(avatar.QualityHigh),
			AvatarID:           DefaultAvatarID,
			KnowledgeBaseID:    DefaultKnowledgeBaseID,
			Language:           DefaultLanguage,
			DisableIdleTimeout: true,
		},
		Client: ClientConfig{
			TokenEndpoint: DefaultTokenEndpoint,
			Autoplay:      true,
			Audio:         AudioMiniaudio,
		},
		Server: ServerConfig{Addr: DefaultServerAddr},
	}
}

// Load reads the YAML file at path, when path is not empty, on top of the
// defaults and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Avatar.Quality = getEnv("AVATAR_QUALITY", c.Avatar.Quality)
	c.Avatar.AvatarID = getEnv("AVATAR_ID", c.Avatar.AvatarID)
	c.Avatar.KnowledgeBaseID = getEnv("AVATAR_KNOWLEDGE_BASE_ID", c.Avatar.KnowledgeBaseID)
	c.Avatar.Language = getEnv("AVATAR_LANGUAGE", c.Avatar.Language)
	c.Avatar.DisableIdleTimeout = getBoolEnv("AVATAR_DISABLE_IDLE_TIMEOUT", c.Avatar.DisableIdleTimeout)
	c.Avatar.Voice.VoiceID = getEnv("AVATAR_VOICE_ID", c.Avatar.Voice.VoiceID)

	c.Client.TokenEndpoint = getEnv("AVATAR_TOKEN_ENDPOINT", c.Client.TokenEndpoint)
	c.Client.Debug = getBoolEnv("AVATAR_DEBUG", c.Client.Debug)
	c.Client.Autoplay = getBoolEnv("AVATAR_AUTOPLAY", c.Client.Autoplay)
	c.Client.SilencePrompt = getBoolEnv("AVATAR_SILENCE_PROMPT", c.Client.SilencePrompt)
	c.Client.Audio = AudioBackend(getEnv("AVATAR_AUDIO", string(c.Client.Audio)))
	c.Client.ArchivePath = getEnv("AVATAR_ARCHIVE_PATH", c.Client.ArchivePath)

	c.Deepgram.APIKey = getEnv("DEEPGRAM_API_KEY", c.Deepgram.APIKey)
	c.Deepgram.Model = getEnv("DEEPGRAM_MODEL", c.Deepgram.Model)

	c.Server.Addr = getEnv("TOKEN_SERVER_ADDR", c.Server.Addr)
	c.Server.APIKey = getEnv("HEYGEN_API_KEY", c.Server.APIKey)
	c.Server.BaseURL = getEnv("HEYGEN_BASE_URL", c.Server.BaseURL)
}

func (c *Config) Validate() error {
	var errs []error
	switch avatar.Quality(c.Avatar.Quality) {
	case avatar.QualityLow, avatar.QualityMedium, avatar.QualityHigh:
	default:
		errs = append(errs, fmt.Errorf("invalid avatar quality %q", c.Avatar.Quality))
	}
	if c.Avatar.AvatarID == "" {
		errs = append(errs, errors.New("avatar id is required"))
	}
	if c.Avatar.Language == "" {
		errs = append(errs, errors.New("avatar language is required"))
	}
	switch c.Client.Audio {
	case AudioMiniaudio, AudioPortaudio, AudioNone:
	default:
		errs = append(errs, fmt.Errorf("invalid audio backend %q", c.Client.Audio))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SessionConfig maps the avatar settings onto a session request.
func (c *Config) SessionConfig() (avatar.SessionConfig, error) {
	session := avatar.SessionConfig{}
	if err := copier.Copy(&session, &c.Avatar); err != nil {
		return session, fmt.Errorf("failed to map session config: %w", err)
	}
	return session, nil
}

func getBoolEnv(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
