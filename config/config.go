package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"retrohint/hintd/input"
)

// DefaultPath is used when neither AIHINT_CONFIG nor a CLI argument names a config file
const DefaultPath = "/userdata/system/ai-hints/config.toml"

type Config struct {
	Hint          HintConfig          `toml:"hint"`
	Hotkeys       HotkeyConfig        `toml:"hotkeys"`
	RetroArch     RetroArchConfig     `toml:"retroarch"`
	Paths         PathsConfig         `toml:"paths"`
	Notifications NotificationsConfig `toml:"notifications"`
	Render        RenderConfig        `toml:"render"`
	Display       DisplayConfig       `toml:"display"`
	Audio         AudioConfig         `toml:"audio"`
	Web           WebConfig           `toml:"web"`
	Debug         bool                `toml:"debug"`

	// not serialized
	path      string
	keySource string
}

type HintConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	APIKey         string `toml:"api_key"`
	DailyLimit     int    `toml:"daily_limit"`
	MaxTokens      int    `toml:"max_tokens"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	PromptTemplate string `toml:"prompt_template"`
}

type HotkeyConfig struct {
	Request          []string `toml:"request"`
	View             []string `toml:"view"`
	ControllerDevice string   `toml:"controller_device"`
}

type RetroArchConfig struct {
	Host               string `toml:"host"`
	Port               int    `toml:"port"`
	ProcessName        string `toml:"process_name"`
	SavestateSlot      int    `toml:"savestate_slot"`
	SavestateWaitMs    int    `toml:"savestate_wait_ms"`
	ScreenshotSettleMs int    `toml:"screenshot_settle_ms"`
}

type PathsConfig struct {
	ScreenshotDir string `toml:"screenshot_dir"`
	HintsDir      string `toml:"hints_dir"`
}

type NotificationsConfig struct {
	Ready        string `toml:"ready"`
	Generating   string `toml:"generating"`
	Error        string `toml:"error"`
	LimitReached string `toml:"limit_reached"`
	Busy         string `toml:"busy"`
	NoGame       string `toml:"no_game"`
	NoHint       string `toml:"no_hint"`
	Viewing      string `toml:"viewing"`
}

type RenderConfig struct {
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	FontSize  int    `toml:"font_size"`
	FontPath  string `toml:"font_path"`
	BgColor   [3]int `toml:"bg_color"`
	TextColor [3]int `toml:"text_color"`
}

type DisplayConfig struct {
	// Prefer forces a technique by name ("direct_fb", "mpv", "fbv", "fbi", "feh", "osd").
	// Empty means probe.
	Prefer                string `toml:"prefer"`
	DismissTimeoutSeconds int    `toml:"dismiss_timeout_seconds"`
	FramebufferDevice     string `toml:"framebuffer_device"`
	FramebufferSysfs      string `toml:"framebuffer_sysfs"`
	ConsoleDevice         string `toml:"console_device"`
}

type AudioConfig struct {
	Chime      bool    `toml:"chime"`
	Frequency  float64 `toml:"frequency"`
	DurationMs int     `toml:"duration_ms"`
}

type WebConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

const defaultPrompt = `You are helping a player who is stuck in a retro video game.

System: {system}
Game: {game}

Based on the screenshot, provide a brief, spoiler-minimal hint about what to do next.
- Keep it to 2-3 sentences maximum
- Be specific to what's visible on screen
- Don't reveal major plot points or surprises
- Focus on the immediate obstacle or puzzle

Provide only the hint text, no preamble.`

// Default configuration
func defaultConfig() *Config {
	return &Config{
		Hint: HintConfig{
			Provider:       "anthropic",
			Model:          "claude-sonnet-4-20250514",
			DailyLimit:     10,
			MaxTokens:      300,
			TimeoutSeconds: 60,
			PromptTemplate: defaultPrompt,
		},
		Hotkeys: HotkeyConfig{
			Request:          []string{"BTN_SELECT", "BTN_TL"},
			View:             []string{"BTN_SELECT", "BTN_TR"},
			ControllerDevice: "/dev/input/event0",
		},
		RetroArch: RetroArchConfig{
			Host:               "127.0.0.1",
			Port:               55355,
			ProcessName:        "retroarch",
			SavestateSlot:      9,
			SavestateWaitMs:    2000,
			ScreenshotSettleMs: 500,
		},
		Paths: PathsConfig{
			ScreenshotDir: "/userdata/screenshots",
			HintsDir:      "/userdata/system/ai-hints",
		},
		Notifications: NotificationsConfig{
			Ready:        "Hint Ready! Press Select+R1 to view.",
			Generating:   "Generating hint...",
			Error:        "Hint failed. Try again.",
			LimitReached: "Daily limit reached! ({used}/{limit})",
			Busy:         "Already generating hint...",
			NoGame:       "No game running!",
			NoHint:       "No hint ready! Press Select+L1 first.",
			Viewing:      "Hint is on screen.",
		},
		Render: RenderConfig{
			Width:     1280,
			Height:    720,
			FontSize:  32,
			BgColor:   [3]int{32, 32, 32},
			TextColor: [3]int{255, 255, 255},
		},
		Display: DisplayConfig{
			DismissTimeoutSeconds: 300,
			FramebufferDevice:     "/dev/fb0",
			FramebufferSysfs:      "/sys/class/graphics/fb0",
			ConsoleDevice:         "/dev/tty0",
		},
		Audio: AudioConfig{
			Chime:      false,
			Frequency:  880,
			DurationMs: 180,
		},
		Web: WebConfig{
			Enabled: false,
			Port:    8765,
		},
	}
}

// ConfigPath resolves the configuration file location.
// AIHINT_CONFIG wins over the CLI argument, which wins over DefaultPath.
func ConfigPath(arg string) string {
	if p := os.Getenv("AIHINT_CONFIG"); p != "" {
		return p
	}
	if arg != "" {
		return arg
	}
	return DefaultPath
}

// Load loads the configuration from the TOML file
// If the file doesn't exist, it creates it with default values
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := defaultConfig()
		cfg.path = path
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		cfg.resolveAPIKey()
		return cfg, nil
	}

	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.resolveAPIKey()

	return cfg, nil
}

// Path returns the file the configuration was loaded from
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration to its TOML file. The API key is never written.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	defer f.Close()

	out := *c
	out.Hint.APIKey = ""
	return toml.NewEncoder(f).Encode(&out)
}

// Validate checks the parts of the configuration that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Hint.Provider {
	case "anthropic", "openai", "gemini":
	default:
		return fmt.Errorf("unknown hint provider: %s", c.Hint.Provider)
	}
	if err := validateCombo("request", c.Hotkeys.Request); err != nil {
		return err
	}
	if err := validateCombo("view", c.Hotkeys.View); err != nil {
		return err
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render size must be positive, got %dx%d", c.Render.Width, c.Render.Height)
	}
	return nil
}

func validateCombo(name string, buttons []string) error {
	if len(buttons) == 0 {
		return fmt.Errorf("hotkeys.%s must name at least one button", name)
	}
	for _, b := range buttons {
		if _, ok := input.ButtonCode(b); !ok {
			return fmt.Errorf("hotkeys.%s: unknown button %q", name, b)
		}
	}
	return nil
}

// APIKeySource reports where the API key came from after loading
func (c *Config) APIKeySource() string {
	return c.keySource
}

// SecretsPath is the optional KEY=VALUE file next to the config
func (c *Config) SecretsPath() string {
	return filepath.Join(filepath.Dir(c.path), ".secrets")
}

// SavestateWait is how long a save-state needs before the emulator can be suspended
func (c *Config) SavestateWait() time.Duration {
	return time.Duration(c.RetroArch.SavestateWaitMs) * time.Millisecond
}

// DismissTimeout bounds the wait for the dismiss button press
func (c *Config) DismissTimeout() time.Duration {
	return time.Duration(c.Display.DismissTimeoutSeconds) * time.Second
}

// APIKeyEnvVar returns the environment variable consulted for the provider's key
func APIKeyEnvVar(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return "ANTHROPIC_API_KEY"
	}
}

// resolveAPIKey picks the key from the environment, then .secrets, then the config file
func (c *Config) resolveAPIKey() {
	if key := os.Getenv(APIKeyEnvVar(c.Hint.Provider)); key != "" {
		c.Hint.APIKey = key
		c.keySource = "env"
		return
	}

	if key, err := readSecret(c.SecretsPath(), "API_KEY"); err == nil && key != "" {
		c.Hint.APIKey = key
		c.keySource = "secrets"
		return
	}

	if c.Hint.APIKey != "" && c.Hint.APIKey != "YOUR_API_KEY_HERE" {
		c.keySource = "config"
		return
	}
	c.Hint.APIKey = ""
	c.keySource = ""
}

func readSecret(path, name string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if ok && strings.TrimSpace(key) == name {
			return strings.TrimSpace(value), nil
		}
	}
	return "", scanner.Err()
}
