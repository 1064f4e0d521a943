// Package config provides configuration management for clipd.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort     = 8690
	DefaultLogLevel = "info"
	DefaultDataDir  = ".clipd"

	// Environment variable names
	EnvPort     = "CLIPD_PORT"
	EnvLogLevel = "CLIPD_LOG_LEVEL"
	EnvDataDir  = "CLIPD_DATA_DIR"
	EnvWorkDir  = "CLIPD_WORK_DIR"

	EnvClipWidth    = "CLIPD_CLIP_WIDTH"
	EnvClipHeight   = "CLIPD_CLIP_HEIGHT"
	EnvClipDuration = "CLIPD_CLIP_DURATION_S"
	EnvClipCount    = "CLIPD_CLIP_COUNT"

	EnvVideoCodec = "CLIPD_VIDEO_CODEC"
	EnvAudioCodec = "CLIPD_AUDIO_CODEC"
	EnvFrameRate  = "CLIPD_FRAME_RATE"

	EnvFFmpegPath  = "CLIPD_FFMPEG_PATH"
	EnvFFprobePath = "CLIPD_FFPROBE_PATH"
	EnvYtdlpPath   = "CLIPD_YTDLP_PATH"

	EnvBlobBaseURL = "CLIPD_BLOB_BASE_URL"
	EnvBlobToken   = "CLIPD_BLOB_TOKEN"

	// Database filename
	DBFilename = "clipd.db"

	// Clip output geometry and encoder defaults
	DefaultClipWidth     = 1080
	DefaultClipHeight    = 1920
	DefaultClipDurationS = 27
	DefaultClipCount     = 5
	DefaultVideoCodec    = "libx264"
	DefaultAudioCodec    = "aac"
	DefaultFrameRate     = 24

	// Subprocess timeouts (seconds)
	DefaultAcquireTimeout = 900
	DefaultProbeTimeout   = 30
	DefaultRenderTimeout  = 600
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	WorkDir() string

	ClipWidth() int
	ClipHeight() int
	ClipDuration() float64
	ClipCount() int
	VideoCodec() string
	AudioCodec() string
	FrameRate() int

	FFmpegPath() string
	FFprobePath() string
	YtdlpPath() string

	BlobBaseURL() string
	BlobToken() string

	AcquireTimeout() time.Duration
	ProbeTimeout() time.Duration
	RenderTimeout() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	workDir  string

	clipWidth    int
	clipHeight   int
	clipDuration float64
	clipCount    int

	videoCodec string
	audioCodec string
	frameRate  int

	ffmpegPath  string
	ffprobePath string
	ytdlpPath   string

	blobBaseURL string
	blobToken   string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:         DefaultPort,
		logLevel:     DefaultLogLevel,
		dataDir:      defaultDataDir(),
		workDir:      os.TempDir(),
		clipWidth:    DefaultClipWidth,
		clipHeight:   DefaultClipHeight,
		clipDuration: DefaultClipDurationS,
		clipCount:    DefaultClipCount,
		videoCodec:   DefaultVideoCodec,
		audioCodec:   DefaultAudioCodec,
		frameRate:    DefaultFrameRate,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if wd := os.Getenv(EnvWorkDir); wd != "" {
		cfg.workDir = wd
	}

	if err := cfg.overrideClipSettings(); err != nil {
		return nil, err
	}

	cfg.ffmpegPath = os.Getenv(EnvFFmpegPath)
	cfg.ffprobePath = os.Getenv(EnvFFprobePath)
	cfg.ytdlpPath = os.Getenv(EnvYtdlpPath)

	cfg.blobBaseURL = os.Getenv(EnvBlobBaseURL)
	cfg.blobToken = os.Getenv(EnvBlobToken)

	return cfg, nil
}

func (c *EnvConfig) overrideClipSettings() error {
	if w := os.Getenv(EnvClipWidth); w != "" {
		width, err := strconv.Atoi(w)
		if err != nil || width < 1 {
			return fmt.Errorf("invalid %s: must be a positive integer", EnvClipWidth)
		}
		c.clipWidth = width
	}

	if h := os.Getenv(EnvClipHeight); h != "" {
		height, err := strconv.Atoi(h)
		if err != nil || height < 1 {
			return fmt.Errorf("invalid %s: must be a positive integer", EnvClipHeight)
		}
		c.clipHeight = height
	}

	if d := os.Getenv(EnvClipDuration); d != "" {
		dur, err := strconv.ParseFloat(d, 64)
		if err != nil || dur <= 0 {
			return fmt.Errorf("invalid %s: must be a positive number of seconds", EnvClipDuration)
		}
		c.clipDuration = dur
	}

	if n := os.Getenv(EnvClipCount); n != "" {
		count, err := strconv.Atoi(n)
		if err != nil || count < 1 {
			return fmt.Errorf("invalid %s: must be a positive integer", EnvClipCount)
		}
		c.clipCount = count
	}

	if vc := os.Getenv(EnvVideoCodec); vc != "" {
		c.videoCodec = vc
	}

	if ac := os.Getenv(EnvAudioCodec); ac != "" {
		c.audioCodec = ac
	}

	if fr := os.Getenv(EnvFrameRate); fr != "" {
		rate, err := strconv.Atoi(fr)
		if err != nil || rate < 1 {
			return fmt.Errorf("invalid %s: must be a positive integer", EnvFrameRate)
		}
		c.frameRate = rate
	}

	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// WorkDir returns the directory for temporary downloads and rendered clips
func (c *EnvConfig) WorkDir() string {
	return c.workDir
}

func (c *EnvConfig) ClipWidth() int {
	return c.clipWidth
}

func (c *EnvConfig) ClipHeight() int {
	return c.clipHeight
}

// ClipDuration returns the nominal clip length in seconds
func (c *EnvConfig) ClipDuration() float64 {
	return c.clipDuration
}

func (c *EnvConfig) ClipCount() int {
	return c.clipCount
}

func (c *EnvConfig) VideoCodec() string {
	return c.videoCodec
}

func (c *EnvConfig) AudioCodec() string {
	return c.audioCodec
}

func (c *EnvConfig) FrameRate() int {
	return c.frameRate
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

func (c *EnvConfig) YtdlpPath() string {
	return c.ytdlpPath
}

func (c *EnvConfig) BlobBaseURL() string {
	return c.blobBaseURL
}

func (c *EnvConfig) BlobToken() string {
	return c.blobToken
}

func (c *EnvConfig) AcquireTimeout() time.Duration {
	return DefaultAcquireTimeout * time.Second
}

func (c *EnvConfig) ProbeTimeout() time.Duration {
	return DefaultProbeTimeout * time.Second
}

func (c *EnvConfig) RenderTimeout() time.Duration {
	return DefaultRenderTimeout * time.Second
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
