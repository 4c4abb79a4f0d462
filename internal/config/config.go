package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Configuration provides type-safe access to application settings
type Configuration struct {
	viper *viper.Viper
}

// setDefaults applies the default settings shared by all constructors
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_mb", 2048)
	v.SetDefault("ffmpeg.path", "ffmpeg")
	v.SetDefault("whisper.backend", "local")
	v.SetDefault("whisper.binary_path", "whisper-cli")
	v.SetDefault("whisper.model_name", "base.en")
	v.SetDefault("whisper.model_path", "./models/ggml-base.en.bin")
	v.SetDefault("whisper.server_url", "")
	v.SetDefault("whisper.api_key", "")
	v.SetDefault("whisper.language", "")
	v.SetDefault("transcription.chunk_duration_sec", 30)
	v.SetDefault("debug.enabled", false)
}

// NewConfiguration creates a new Configuration instance with default settings
func NewConfiguration() *Configuration {
	v := viper.New()
	setDefaults(v)
	return &Configuration{viper: v}
}

// NewConfigurationFromFile creates a Configuration instance from a config file
func NewConfigurationFromFile(configFile string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	return &Configuration{viper: v}, nil
}

// NewConfigurationFromEnv creates a Configuration instance that reads from environment variables
func NewConfigurationFromEnv() (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AUTOSUB")
	v.AutomaticEnv()

	// Map specific environment variables. BindEnv does not apply the prefix
	// to explicit names, so spell it out.
	v.BindEnv("server.addr", "AUTOSUB_SERVER_ADDR")
	v.BindEnv("server.max_upload_mb", "AUTOSUB_MAX_UPLOAD_MB")
	v.BindEnv("ffmpeg.path", "AUTOSUB_FFMPEG_PATH")
	v.BindEnv("whisper.backend", "AUTOSUB_WHISPER_BACKEND")
	v.BindEnv("whisper.binary_path", "AUTOSUB_WHISPER_BINARY_PATH")
	v.BindEnv("whisper.model_name", "AUTOSUB_WHISPER_MODEL_NAME")
	v.BindEnv("whisper.model_path", "AUTOSUB_WHISPER_MODEL_PATH")
	v.BindEnv("whisper.server_url", "AUTOSUB_WHISPER_SERVER_URL")
	v.BindEnv("whisper.api_key", "AUTOSUB_WHISPER_API_KEY")
	v.BindEnv("whisper.language", "AUTOSUB_WHISPER_LANGUAGE")
	v.BindEnv("transcription.chunk_duration_sec", "AUTOSUB_TRANSCRIPTION_CHUNK_DURATION_SEC")
	v.BindEnv("debug.enabled", "AUTOSUB_DEBUG_MODE")

	return &Configuration{viper: v}, nil
}

// GetServerAddr returns the listen address for the HTTP server
func (c *Configuration) GetServerAddr() string {
	return c.viper.GetString("server.addr")
}

// GetMaxUploadBytes returns the maximum accepted upload size in bytes
func (c *Configuration) GetMaxUploadBytes() int64 {
	return c.viper.GetInt64("server.max_upload_mb") * 1024 * 1024
}

// GetFFmpegPath returns the configured FFmpeg binary path
func (c *Configuration) GetFFmpegPath() string {
	return c.viper.GetString("ffmpeg.path")
}

// GetWhisperBackend returns the transcription backend selector ("local" or "server")
func (c *Configuration) GetWhisperBackend() string {
	return c.viper.GetString("whisper.backend")
}

// GetWhisperBinaryPath returns the whisper.cpp CLI binary path
func (c *Configuration) GetWhisperBinaryPath() string {
	return c.viper.GetString("whisper.binary_path")
}

// GetWhisperModelName returns the configured Whisper model variant
func (c *Configuration) GetWhisperModelName() string {
	return c.viper.GetString("whisper.model_name")
}

// GetWhisperModelPath returns the configured Whisper model path
func (c *Configuration) GetWhisperModelPath() string {
	return c.viper.GetString("whisper.model_path")
}

// GetWhisperServerURL returns the remote transcription server base URL
func (c *Configuration) GetWhisperServerURL() string {
	return c.viper.GetString("whisper.server_url")
}

// GetWhisperAPIKey returns the API key for the remote transcription server
func (c *Configuration) GetWhisperAPIKey() string {
	return c.viper.GetString("whisper.api_key")
}

// GetWhisperLanguage returns the transcription language hint ("" lets the model decide)
func (c *Configuration) GetWhisperLanguage() string {
	return c.viper.GetString("whisper.language")
}

// GetTranscriptionChunkDurationSec returns the audio chunk duration in seconds
func (c *Configuration) GetTranscriptionChunkDurationSec() int {
	return c.viper.GetInt("transcription.chunk_duration_sec")
}

// GetDebugMode returns whether verbose debug logging is enabled
func (c *Configuration) GetDebugMode() bool {
	return c.viper.GetBool("debug.enabled")
}
