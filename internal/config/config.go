package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"geniereport/internal/domain"
)

const defaultExternalHTTPTimeout = 30 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const (
	DefaultAPIURL            = "https://api.opsgenie.com"
	DefaultQuietWindowSecond = 1800
	DefaultClientTagPrefix   = "client_"
)

// FetchErrorPolicy decides what a report does when alert pagination fails.
type FetchErrorPolicy string

const (
	// FetchErrorAbort prints whatever was computed and exits non-zero.
	FetchErrorAbort FetchErrorPolicy = "abort"
	// FetchErrorSkip logs the failure and reports the partial data as a success.
	FetchErrorSkip FetchErrorPolicy = "skip"
)

type ToilCategory struct {
	Tag   string  `yaml:"tag"`
	Value float64 `yaml:"value"`
}

type Config struct {
	OpsgenieAPIKey      string   `yaml:"opsgenie_api_key"`
	OpsgenieAPIURL      string   `yaml:"opsgenie_api_url"`
	OpsgenieScheduleID  string   `yaml:"opsgenie_schedule_id"`
	OpsgenieRotationIDs []string `yaml:"opsgenie_rotation_ids"`

	Timezone                   string           `yaml:"timezone"`
	ExternalHTTPTimeoutSeconds int              `yaml:"external_http_timeout_seconds"`
	RequestRetries             int              `yaml:"request_retries"`
	RequestsPerSecond          float64          `yaml:"requests_per_second"`
	OnFetchError               FetchErrorPolicy `yaml:"on_fetch_error"`

	NumDays            int            `yaml:"num_days"`
	Tags               []string       `yaml:"tags"`
	QuietWindowSeconds int            `yaml:"quiet_window_seconds"`
	ToilCategories     []ToilCategory `yaml:"toil_categories"`

	BusinessUnitTags []string `yaml:"business_unit_tags"`
	TimeTags         []string `yaml:"time_tags"`
	ClientTagPrefix  string   `yaml:"client_tag_prefix"`

	PaymentRate    string `yaml:"payment_rate"`
	CurrencySymbol string `yaml:"currency_symbol"`
	BillingWeekday string `yaml:"billing_weekday"`
	BillingHour    int    `yaml:"billing_hour"`
	OpsgenieDate   string `yaml:"opsgenie_date"`

	OnCallWeekday   string `yaml:"oncall_weekday"`
	OnCallHour      int    `yaml:"oncall_hour"`
	OnCallWeeks     int    `yaml:"oncall_weeks"`
	LookAheadMonths int    `yaml:"look_ahead_months"`

	TagsToExclude   []string `yaml:"tags_to_exclude"`
	TagLookbackDays int      `yaml:"tag_lookback_days"`

	AnthropicAPIKey string  `yaml:"anthropic_api_key"`
	LLMModel        string  `yaml:"llm_model"`
	LLMConfidence   float64 `yaml:"llm_confidence_threshold"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`
	SlackAPIURL    string `yaml:"slack_api_url"` // optional, e.g. for a proxy

	DBPath          string `yaml:"db_path"`
	MetricsTextfile string `yaml:"metrics_textfile"`
	ReportOutputDir string `yaml:"report_output_dir"`

	OnCallPostSchedule string `yaml:"oncall_post_schedule"`
	ToilPostSchedule   string `yaml:"toil_post_schedule"`

	Location         *time.Location  `yaml:"-"` // computed from Timezone
	PaymentRateValue decimal.Decimal `yaml:"-"` // computed from PaymentRate
	BillingDay       time.Weekday    `yaml:"-"`
	OnCallDay        time.Weekday    `yaml:"-"`
}

// Load reads the YAML file (if present), applies environment overrides and
// defaults, and validates the result. path falls back to CONFIG_PATH and then
// ./config.yaml.
func Load(path string) (Config, error) {
	cfg := zeroableDefaults()

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if path != "" {
		configPath = path
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, domain.NewConfigurationError(configPath, "parse yaml: %v", err)
		}
		log.Printf("config loaded path=%s", configPath)
	} else if path != "" {
		return Config{}, domain.NewConfigurationError(configPath, "read file: %v", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envOverride(&cfg.OpsgenieAPIKey, "OPSGENIE_API_KEY")
	envOverride(&cfg.OpsgenieAPIURL, "OPSGENIE_API_URL")
	envOverride(&cfg.OpsgenieScheduleID, "OPSGENIE_SCHEDULE_ID")
	envOverrideList(&cfg.OpsgenieRotationIDs, "OPSGENIE_ROTATION_ID")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride((*string)(&cfg.OnFetchError), "ON_FETCH_ERROR")
	envOverrideList(&cfg.Tags, "TAGS")
	envOverrideList(&cfg.BusinessUnitTags, "BUSINESS_UNIT_TAGS")
	envOverrideList(&cfg.TimeTags, "TIME_TAGS")
	envOverride(&cfg.ClientTagPrefix, "CLIENT_TAG_PREFIX")
	envOverride(&cfg.PaymentRate, "PAYMENT_RATE")
	envOverride(&cfg.CurrencySymbol, "CURRENCY_SYMBOL")
	envOverride(&cfg.BillingWeekday, "BILLING_WEEKDAY")
	envOverride(&cfg.OpsgenieDate, "OPSGENIE_DATE")
	envOverride(&cfg.OnCallWeekday, "ONCALL_WEEKDAY")
	envOverrideList(&cfg.TagsToExclude, "TAGS_TO_EXCLUDE")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.SlackAPIURL, "SLACK_API_URL")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.MetricsTextfile, "METRICS_TEXTFILE")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.OnCallPostSchedule, "ONCALL_POST_SCHEDULE")
	envOverride(&cfg.ToilPostSchedule, "TOIL_POST_SCHEDULE")

	for _, o := range []struct {
		field *int
		key   string
	}{
		{&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS"},
		{&cfg.RequestRetries, "REQUEST_RETRIES"},
		{&cfg.NumDays, "NUM_DAYS"},
		{&cfg.QuietWindowSeconds, "QUIET_WINDOW_SECONDS"},
		{&cfg.BillingHour, "BILLING_HOUR"},
		{&cfg.OnCallHour, "ONCALL_HOUR"},
		{&cfg.OnCallWeeks, "ONCALL_WEEKS"},
		{&cfg.LookAheadMonths, "LOOK_AHEAD_MONTHS"},
		{&cfg.TagLookbackDays, "TAG_LOOKBACK_DAYS"},
	} {
		if err := envOverrideInt(o.field, o.key); err != nil {
			return err
		}
	}
	if err := envOverrideFloat(&cfg.RequestsPerSecond, "REQUESTS_PER_SECOND"); err != nil {
		return err
	}
	if err := envOverrideFloat(&cfg.LLMConfidence, "LLM_CONFIDENCE_THRESHOLD"); err != nil {
		return err
	}

	// Per-tag shorthands; they update or append the matching toil category.
	for tag, key := range map[string]string{"sleepinghours": "TOIL_SLEEPING_HOURS", "wakinghours": "TOIL_WAKING_HOURS"} {
		val := os.Getenv(key)
		if val == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return domain.NewConfigurationError(key, "'%s' is not a number: %v", val, err)
		}
		cfg.setToilValue(tag, parsed)
	}
	return nil
}

// zeroableDefaults seeds the fields for which 0 is a valid setting, so that
// YAML and env only replace them when the key is present.
func zeroableDefaults() Config {
	return Config{
		RequestRetries:     4,
		NumDays:            7,
		QuietWindowSeconds: DefaultQuietWindowSecond,
		BillingHour:        10,
		OnCallHour:         19,
		TagLookbackDays:    30,
	}
}

func applyDefaults(cfg *Config) {
	if cfg.OpsgenieAPIURL == "" {
		cfg.OpsgenieAPIURL = DefaultAPIURL
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.OnFetchError == "" {
		cfg.OnFetchError = FetchErrorAbort
	}
	if len(cfg.ToilCategories) == 0 {
		cfg.ToilCategories = []ToilCategory{{Tag: "sleepinghours"}, {Tag: "wakinghours"}}
	}
	if len(cfg.BusinessUnitTags) == 0 {
		cfg.BusinessUnitTags = []string{"deliveryplus", "govpress"}
	}
	if len(cfg.TimeTags) == 0 {
		cfg.TimeTags = []string{"OOH", "inhours", "wakinghours", "sleepinghours"}
	}
	if cfg.ClientTagPrefix == "" {
		cfg.ClientTagPrefix = DefaultClientTagPrefix
	}
	if cfg.PaymentRate == "" {
		cfg.PaymentRate = "0"
	}
	if cfg.CurrencySymbol == "" {
		cfg.CurrencySymbol = "£"
	}
	if cfg.BillingWeekday == "" {
		cfg.BillingWeekday = "Wednesday"
	}
	if cfg.OnCallWeekday == "" {
		cfg.OnCallWeekday = "Wednesday"
	}
	if cfg.OnCallWeeks == 0 {
		cfg.OnCallWeeks = 4
	}
	if cfg.LookAheadMonths == 0 {
		cfg.LookAheadMonths = 6
	}
	if cfg.LLMConfidence == 0 {
		cfg.LLMConfidence = 0.70
	}
}

func (c *Config) validate() error {
	if strings.EqualFold(c.Timezone, "Local") {
		c.Location = time.Local
	} else {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return domain.NewConfigurationError("timezone", "'%s': %v", c.Timezone, err)
		}
		c.Location = loc
	}

	switch c.OnFetchError {
	case FetchErrorAbort, FetchErrorSkip:
	default:
		return domain.NewConfigurationError("on_fetch_error", "must be 'abort' or 'skip', got '%s'", c.OnFetchError)
	}

	rate, err := decimal.NewFromString(strings.TrimSpace(c.PaymentRate))
	if err != nil {
		return domain.NewConfigurationError("payment_rate", "'%s' is not a number", c.PaymentRate)
	}
	if rate.IsNegative() {
		return domain.NewConfigurationError("payment_rate", "must be >= 0, got %s", rate)
	}
	c.PaymentRateValue = rate

	day, err := ParseWeekday(c.BillingWeekday)
	if err != nil {
		return domain.NewConfigurationError("billing_weekday", "%v", err)
	}
	c.BillingDay = day
	day, err = ParseWeekday(c.OnCallWeekday)
	if err != nil {
		return domain.NewConfigurationError("oncall_weekday", "%v", err)
	}
	c.OnCallDay = day

	if c.ExternalHTTPTimeoutSeconds < 5 {
		return domain.NewConfigurationError("external_http_timeout_seconds", "must be >= 5, got %d", c.ExternalHTTPTimeoutSeconds)
	}
	if c.RequestRetries < 0 {
		return domain.NewConfigurationError("request_retries", "must be >= 0, got %d", c.RequestRetries)
	}
	if c.RequestsPerSecond < 0 {
		return domain.NewConfigurationError("requests_per_second", "must be >= 0, got %f", c.RequestsPerSecond)
	}
	if c.TagLookbackDays < 0 {
		return domain.NewConfigurationError("tag_lookback_days", "must be >= 0, got %d", c.TagLookbackDays)
	}
	if c.NumDays < 0 {
		return domain.NewConfigurationError("num_days", "must be >= 0, got %d", c.NumDays)
	}
	if c.QuietWindowSeconds < 0 {
		return domain.NewConfigurationError("quiet_window_seconds", "must be >= 0, got %d", c.QuietWindowSeconds)
	}
	for i, cat := range c.ToilCategories {
		if strings.TrimSpace(cat.Tag) == "" {
			return domain.NewConfigurationError("toil_categories", "entry %d has no tag", i)
		}
	}
	if c.BillingHour < 0 || c.BillingHour > 23 {
		return domain.NewConfigurationError("billing_hour", "must be between 0 and 23, got %d", c.BillingHour)
	}
	if c.OnCallHour < 0 || c.OnCallHour > 23 {
		return domain.NewConfigurationError("oncall_hour", "must be between 0 and 23, got %d", c.OnCallHour)
	}
	if c.OnCallWeeks < 1 {
		return domain.NewConfigurationError("oncall_weeks", "must be >= 1, got %d", c.OnCallWeeks)
	}
	if c.LookAheadMonths < 1 {
		return domain.NewConfigurationError("look_ahead_months", "must be >= 1, got %d", c.LookAheadMonths)
	}
	if c.LLMConfidence < 0 || c.LLMConfidence > 1 {
		return domain.NewConfigurationError("llm_confidence_threshold", "must be between 0 and 1, got %f", c.LLMConfidence)
	}
	return nil
}

func (c Config) QuietWindow() time.Duration {
	return time.Duration(c.QuietWindowSeconds) * time.Second
}

func (c Config) ExternalHTTPTimeout() time.Duration {
	return time.Duration(c.ExternalHTTPTimeoutSeconds) * time.Second
}

// ReferenceDate is OPSGENIE_DATE when set, otherwise now, in the configured location.
func (c Config) ReferenceDate(now time.Time) (time.Time, error) {
	if strings.TrimSpace(c.OpsgenieDate) == "" {
		return now.In(c.Location), nil
	}
	t, err := domain.ParseDate(strings.TrimSpace(c.OpsgenieDate), c.Location)
	if err != nil {
		return time.Time{}, domain.NewConfigurationError("opsgenie_date", "%v", err)
	}
	return t, nil
}

func (c Config) RequireAPIKey() error {
	if c.OpsgenieAPIKey == "" {
		return domain.NewConfigurationError("opsgenie_api_key", "is not set (via config.yaml or OPSGENIE_API_KEY)")
	}
	return nil
}

func (c Config) RequireSchedule() error {
	if err := c.RequireAPIKey(); err != nil {
		return err
	}
	if c.OpsgenieScheduleID == "" {
		return domain.NewConfigurationError("opsgenie_schedule_id", "is not set (via config.yaml or OPSGENIE_SCHEDULE_ID)")
	}
	return nil
}

func (c Config) RequireSlack() error {
	if c.SlackBotToken == "" || c.SlackChannelID == "" {
		return domain.NewConfigurationError("slack_bot_token", "slack_bot_token and slack_channel_id are required together for posting")
	}
	return nil
}

func (c Config) RequireLLM() error {
	if c.AnthropicAPIKey == "" {
		return domain.NewConfigurationError("anthropic_api_key", "is required for tag suggestions")
	}
	return nil
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

func (c *Config) setToilValue(tag string, value float64) {
	for i := range c.ToilCategories {
		if c.ToilCategories[i].Tag == tag {
			c.ToilCategories[i].Value = value
			return
		}
	}
	if len(c.ToilCategories) == 0 {
		c.ToilCategories = []ToilCategory{{Tag: "sleepinghours"}, {Tag: "wakinghours"}}
		c.setToilValue(tag, value)
		return
	}
	c.ToilCategories = append(c.ToilCategories, ToilCategory{Tag: tag, Value: value})
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func ParseWeekday(s string) (time.Weekday, error) {
	day, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday '%s'", s)
	}
	return day, nil
}

// ParseList splits a comma-separated value, trimming blanks.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideList(field *[]string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = ParseList(val)
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return domain.NewConfigurationError(envKey, "'%s' is not an integer: %v", val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return domain.NewConfigurationError(envKey, "'%s' is not a number: %v", val, err)
		}
		*field = parsed
	}
	return nil
}
