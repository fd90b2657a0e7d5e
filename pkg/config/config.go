package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Repo        string            `mapstructure:"repo" yaml:"repo,omitempty" validate:"required,ownerrepo"`
	TemplateDir string            `mapstructure:"template_dir" yaml:"template_dir,omitempty" validate:"required"`
	Ref         string            `mapstructure:"ref" yaml:"ref,omitempty"`
	WorkflowDir string            `mapstructure:"workflow_dir" yaml:"workflow_dir,omitempty" validate:"required"`
	Source      string            `mapstructure:"source" yaml:"source,omitempty" validate:"oneof=api git"`
	APIURL      string            `mapstructure:"api_url" yaml:"api_url,omitempty" validate:"omitempty,url"`
	Token       string            `mapstructure:"token" yaml:"token,omitempty"`
	Retries     int               `mapstructure:"retries" yaml:"retries,omitempty" validate:"gte=0,lte=10"`
	Timeout     string            `mapstructure:"timeout" yaml:"timeout,omitempty" validate:"omitempty,duration"`
	TriggerKey  string            `mapstructure:"trigger_key" yaml:"trigger_key,omitempty" validate:"required"`
	Params      map[string]string `mapstructure:"params" yaml:"params,omitempty" validate:"dive,keys,required,endkeys"`
}

// HTTPTimeout returns the parsed timeout, zero when unset.
func (c *Config) HTTPTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Owner and Name split Repo; both are empty for a malformed value.
func (c *Config) Owner() string {
	owner, _, _ := strings.Cut(c.Repo, "/")
	return owner
}

func (c *Config) Name() string {
	_, name, _ := strings.Cut(c.Repo, "/")
	return name
}

const (
	DefaultRepo        = "Tieqiong/diffpyworkflow"
	DefaultTemplateDir = ".github/workflows/templates"
	DefaultWorkflowDir = ".github/workflows"
	DefaultAPIURL      = "https://api.github.com"
	DefaultTimeout     = "30s"
)

// ErrUnknownKey is returned by Get and Set for keys outside Keys().
var ErrUnknownKey = errors.New("unknown config key")

// keys settable with Set, in display order. params.<name> is also accepted.
var keys = []string{
	"repo", "template_dir", "ref", "workflow_dir", "source",
	"api_url", "token", "retries", "timeout", "trigger_key",
}

var (
	configFile = ".wfsync.yaml"
	v          *viper.Viper
	validate   = newValidator()
)

func init() {
	v = newViper()
	// Try to read config file (ignore if not exists)
	_ = v.ReadInConfig()
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")

	v.SetDefault("repo", DefaultRepo)
	v.SetDefault("template_dir", DefaultTemplateDir)
	v.SetDefault("workflow_dir", DefaultWorkflowDir)
	v.SetDefault("source", "api")
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("retries", 0)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("trigger_key", "on")

	v.SetEnvPrefix("WFSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("token", "WFSYNC_TOKEN", "GITHUB_TOKEN")
	return v
}

var ownerRepo = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		return name
	})
	_ = val.RegisterValidation("ownerrepo", func(fl validator.FieldLevel) bool {
		return ownerRepo.MatchString(fl.Field().String())
	})
	_ = val.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})
	return val
}

func Path() string {
	return configFile
}

// Use switches to an explicit config file, which must exist.
func Use(path string) error {
	configFile = path
	v = newViper()
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// Load merges defaults, the config file and the environment, then validates.
func Load() (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg and names the offending keys.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed '%s' (value %q)", fe.Field(), fe.Tag(), fmt.Sprint(fe.Value())))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func Keys() []string {
	return slices.Clone(keys)
}

func known(key string) bool {
	if name, ok := strings.CutPrefix(key, "params."); ok {
		return name != ""
	}
	return slices.Contains(keys, key)
}

func Get(key string) (string, error) {
	if key == "params" {
		return formatParams(v.GetStringMapString("params")), nil
	}
	if !known(key) {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return v.GetString(key), nil
}

// Set stores key in the config file. Only keys already in the file plus key
// are written; defaults and environment values stay out of it.
func Set(key, value string) error {
	if !known(key) {
		return fmt.Errorf("%w: %s (valid: %s, params.<name>)", ErrUnknownKey, key, strings.Join(keys, ", "))
	}

	var typed any = value
	if key == "retries" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("retries must be an integer: %w", err)
		}
		typed = n
	}

	prev := v.Get(key)
	v.Set(key, typed) // keep viper in sync
	if _, err := Load(); err != nil {
		v.Set(key, prev)
		return err
	}

	file, err := readFile()
	if err != nil {
		return err
	}
	if name, ok := strings.CutPrefix(key, "params."); ok {
		params, _ := file["params"].(map[string]any)
		if params == nil {
			params = map[string]any{}
		}
		params[name] = value
		file["params"] = params
	} else {
		file[key] = typed
	}
	return writeFile(file)
}

func readFile() (map[string]any, error) {
	data, err := os.ReadFile(configFile)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	file := map[string]any{}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configFile, err)
	}
	return file, nil
}

func writeFile(content any) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(content); err != nil {
		return err
	}
	return os.WriteFile(configFile, buf.Bytes(), 0o600)
}

// Save writes the full config, dropping the token.
func Save(c *Config) error {
	if err := Validate(c); err != nil {
		return err
	}
	out := *c
	out.Token = ""
	return writeFile(&out)
}

// All returns every key with its effective value. The token is masked.
func All() map[string]string {
	all := make(map[string]string, len(keys)+1)
	for _, k := range keys {
		all[k] = v.GetString(k)
	}
	if all["token"] != "" {
		all["token"] = "****"
	}
	all["params"] = formatParams(v.GetStringMapString("params"))
	return all
}

func formatParams(params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + params[name]
	}
	return strings.Join(parts, ",")
}

// ResetForTest resets viper for testing (only use in tests)
func ResetForTest(testPath string) {
	configFile = testPath + "/.wfsync.yaml"
	v = newViper()
}
