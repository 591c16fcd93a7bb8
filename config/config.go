package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de la señal y el backtest.
type Config struct {
	Strategy    StrategyConfig    `yaml:"strategy"`
	Backtest    BacktestConfig    `yaml:"backtest"`
	Instruments InstrumentsConfig `yaml:"instruments"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Storage     StorageConfig     `yaml:"storage"`
	Log         LogConfig         `yaml:"log"`
}

// StrategyConfig contiene los parámetros de la regla de señal.
// Los campos numéricos son punteros: solo los ausentes reciben default, y un
// valor explícito inválido llega a Validate en vez de reemplazarse.
type StrategyConfig struct {
	ReturnPeriod  *int     `yaml:"return_period"`
	BuyThreshold  *float64 `yaml:"buy_threshold"`
	SellThreshold *float64 `yaml:"sell_threshold"`
	StartDate     string   `yaml:"start_date"` // YYYY-MM-DD
}

// BacktestConfig controla la simulación de aportaciones mensuales.
type BacktestConfig struct {
	InitialInvestment *float64 `yaml:"initial_investment"`
	MonthlyInvestment *float64 `yaml:"monthly_investment"`
	MinHistory        *int     `yaml:"min_history"`
	CheckpointMode    string   `yaml:"checkpoint_mode"` // last_trading_day | exact
}

// InstrumentsConfig identifica el ETF de dividendo/baja volatilidad y su benchmark.
type InstrumentsConfig struct {
	HL        Instrument `yaml:"hl"`
	Benchmark Instrument `yaml:"benchmark"`
}

// Instrument es un fondo cotizado.
type Instrument struct {
	Code         string `yaml:"code"`
	Name         string `yaml:"name"`
	FallbackCode string `yaml:"fallback_code"` // código alternativo en la fuente secundaria
}

// ProvidersConfig ordena las fuentes de precios de la cadena de fallback.
type ProvidersConfig struct {
	Order     []string        `yaml:"order"` // eastmoney | fallback | store | synthetic
	Eastmoney EastmoneyConfig `yaml:"eastmoney"`
	Seed      int64           `yaml:"seed"`
}

// EastmoneyConfig configura el cliente HTTP de klines.
type EastmoneyConfig struct {
	BaseURL        string  `yaml:"base_url"`
	RatePerSec     float64 `yaml:"rate_per_sec"`
	Adjust         string  `yaml:"adjust"`          // "" | qfq | hfq
	FallbackAdjust string  `yaml:"fallback_adjust"` // ajuste usado con el código alternativo
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	Driver  string `yaml:"driver"`   // sqlite | postgres | parquet
	DSN     string `yaml:"dsn"`      // ruta SQLite, URL de Postgres
	DataDir string `yaml:"data_dir"` // raíz del archivo parquet
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	return &cfg, nil
}

// Default devuelve la configuración por defecto sin leer ningún archivo.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// Params convierte la sección strategy en parámetros de dominio validados.
func (c *Config) Params() (domain.Params, error) {
	p := domain.Params{
		Period: *c.Strategy.ReturnPeriod,
		Thresholds: domain.Thresholds{
			Buy:  *c.Strategy.BuyThreshold,
			Sell: *c.Strategy.SellThreshold,
		},
	}
	if err := p.Validate(); err != nil {
		return domain.Params{}, fmt.Errorf("config.Params: %w", err)
	}
	return p, nil
}

// BacktestParams convierte la sección backtest en parámetros de dominio validados.
func (c *Config) BacktestParams() (domain.BacktestParams, error) {
	bt := domain.BacktestParams{
		InitialInvestment: decimal.NewFromFloat(*c.Backtest.InitialInvestment),
		MonthlyInvestment: decimal.NewFromFloat(*c.Backtest.MonthlyInvestment),
		MinHistory:        *c.Backtest.MinHistory,
		Mode:              domain.CheckpointMode(c.Backtest.CheckpointMode),
	}
	if err := bt.Validate(); err != nil {
		return domain.BacktestParams{}, fmt.Errorf("config.BacktestParams: %w", err)
	}
	return bt, nil
}

// StartDate devuelve la fecha inicial de descarga.
func (c *Config) StartDate() (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, c.Strategy.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("config.StartDate: %w", err)
	}
	return t, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("RETURN_PERIOD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RETURN_PERIOD %q: %w", v, err)
		}
		cfg.Strategy.ReturnPeriod = &n
	}
	if v := os.Getenv("BUY_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("BUY_THRESHOLD %q: %w", v, err)
		}
		cfg.Strategy.BuyThreshold = &f
	}
	if v := os.Getenv("SELL_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SELL_THRESHOLD %q: %w", v, err)
		}
		cfg.Strategy.SellThreshold = &f
	}
	return nil
}

// setDefaults completa los valores ausentes. Los presentes no se tocan aunque
// sean inválidos: Params y BacktestParams los rechazan.
func setDefaults(cfg *Config) {
	def := domain.DefaultParams()
	if cfg.Strategy.ReturnPeriod == nil {
		v := def.Period
		cfg.Strategy.ReturnPeriod = &v
	}
	if cfg.Strategy.BuyThreshold == nil {
		v := def.Buy
		cfg.Strategy.BuyThreshold = &v
	}
	if cfg.Strategy.SellThreshold == nil {
		v := def.Sell
		cfg.Strategy.SellThreshold = &v
	}
	if cfg.Strategy.StartDate == "" {
		cfg.Strategy.StartDate = "2020-01-01"
	}

	defBT := domain.DefaultBacktestParams()
	if cfg.Backtest.InitialInvestment == nil {
		v := defBT.InitialInvestment.InexactFloat64()
		cfg.Backtest.InitialInvestment = &v
	}
	if cfg.Backtest.MonthlyInvestment == nil {
		v := defBT.MonthlyInvestment.InexactFloat64()
		cfg.Backtest.MonthlyInvestment = &v
	}
	if cfg.Backtest.MinHistory == nil {
		v := domain.DefaultMinHistory
		cfg.Backtest.MinHistory = &v
	}
	if cfg.Backtest.CheckpointMode == "" {
		cfg.Backtest.CheckpointMode = string(domain.CheckpointLastTradingDay)
	}

	if cfg.Instruments.HL.Code == "" {
		cfg.Instruments.HL = Instrument{Code: "515450", Name: "CSI Dividend Low Vol 50 ETF", FallbackCode: "512890"}
	}
	if cfg.Instruments.Benchmark.Code == "" {
		cfg.Instruments.Benchmark = Instrument{Code: "510210", Name: "SSE Composite ETF"}
	}

	if len(cfg.Providers.Order) == 0 {
		cfg.Providers.Order = []string{"eastmoney", "fallback", "store", "synthetic"}
	}
	if cfg.Providers.Eastmoney.BaseURL == "" {
		cfg.Providers.Eastmoney.BaseURL = "https://push2his.eastmoney.com"
	}
	if cfg.Providers.Eastmoney.RatePerSec <= 0 {
		cfg.Providers.Eastmoney.RatePerSec = 5
	}
	if cfg.Providers.Eastmoney.FallbackAdjust == "" {
		cfg.Providers.Eastmoney.FallbackAdjust = "hfq"
	}
	if cfg.Providers.Seed == 0 {
		cfg.Providers.Seed = 42
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DSN == "" && cfg.Storage.Driver == "sqlite" {
		cfg.Storage.DSN = "lowvol.db"
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
