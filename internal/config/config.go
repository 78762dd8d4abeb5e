// Package config resolves every tunable of the pipeline into one Config
// value built at process start.
//
// Values come from, in increasing priority: built-in defaults, an optional
// YAML file, a .env file in the working directory, and the process
// environment. Components receive the resulting struct and never read the
// environment themselves.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"transport_el/internal/pkg/pkgerror"
)

// EnvPrefix namespaces every key that has no legacy environment name.
const EnvPrefix = "TRANSPORT_EL"

// Storage backends.
const (
	BackendGCS = "gcs"
	BackendS3  = "s3"
)

// Source describes one of the fixed logical inputs.
type Source struct {
	Name  string // "Yellow Taxi"
	File  string // CSV file name inside the raw directory
	Table string // warehouse table the Parquet output lands in
}

// Slug returns the lower-case, underscore-joined form of the source name
// used for output file names.
func (s Source) Slug() string {
	return strings.ReplaceAll(strings.ToLower(s.Name), " ", "_")
}

// ParquetFile returns the output file name for the source.
func (s Source) ParquetFile() string {
	return s.Slug() + ".parquet"
}

type Paths struct {
	ProjectRoot  string
	RawDir       string
	ProcessedDir string
}

type Extract struct {
	ChunkSize   int
	Compression string
}

type Storage struct {
	Backend  string
	Bucket   string
	Prefix   string
	S3Region string
}

type Warehouse struct {
	ProjectID       string
	Dataset         string
	Location        string
	CreateDataset   bool
	CredentialsPath string
}

type Workflow struct {
	Name           string
	Schedule       string
	Retries        int
	RetryDelay     time.Duration
	DbtBinary      string
	DbtProfilesDir string
	DbtProjectDir  string
}

type Config struct {
	LogLevel        string
	ContinueOnError bool
	ReportDir       string

	Paths     Paths
	Extract   Extract
	Storage   Storage
	Warehouse Warehouse
	Workflow  Workflow
	Sources   []Source
}

// legacyEnv maps keys to the environment names the pipeline has always read.
var legacyEnv = map[string]string{
	"storage.bucket":             "GCS_BUCKET",
	"warehouse.project_id":       "GCP_PROJECT_ID",
	"warehouse.dataset":          "BQ_DATASET",
	"warehouse.credentials_path": "GOOGLE_APPLICATION_CREDENTIALS",
	"extract.chunk_size":         "CHUNK_SIZE",
}

var sourceKeys = []string{"yellow_taxi", "green_taxi", "taxi_zone"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("continue_on_error", false)
	v.SetDefault("report_dir", "")

	v.SetDefault("paths.project_root", ".")
	v.SetDefault("paths.raw_dir", filepath.Join("data", "raw"))
	v.SetDefault("paths.processed_dir", filepath.Join("data", "processed"))

	v.SetDefault("extract.chunk_size", 100000)
	v.SetDefault("extract.compression", "snappy")

	v.SetDefault("storage.backend", BackendGCS)
	v.SetDefault("storage.bucket", "transport-analytics")
	v.SetDefault("storage.prefix", "raw_data")
	v.SetDefault("storage.s3_region", "us-east-1")

	v.SetDefault("warehouse.project_id", "taxi-transport-analytics")
	v.SetDefault("warehouse.dataset", "new_york_analytic")
	v.SetDefault("warehouse.location", "US")
	v.SetDefault("warehouse.create_dataset", false)
	v.SetDefault("warehouse.credentials_path", "")

	v.SetDefault("workflow.name", "transport_elt_pipeline")
	v.SetDefault("workflow.schedule", "0 0 * * 0")
	v.SetDefault("workflow.retries", 2)
	v.SetDefault("workflow.retry_delay", 5*time.Minute)
	v.SetDefault("workflow.dbt_binary", "dbt")
	v.SetDefault("workflow.dbt_profiles_dir", filepath.Join("config", "dbt"))
	v.SetDefault("workflow.dbt_project_dir", "dbt")

	v.SetDefault("sources.yellow_taxi.name", "Yellow Taxi")
	v.SetDefault("sources.yellow_taxi.file", "yellow_tripdata_2019-12.csv")
	v.SetDefault("sources.yellow_taxi.table", "raw_yellow_taxi")
	v.SetDefault("sources.green_taxi.name", "Green Taxi")
	v.SetDefault("sources.green_taxi.file", "green_tripdata_2019-12.csv")
	v.SetDefault("sources.green_taxi.table", "raw_green_taxi")
	v.SetDefault("sources.taxi_zone.name", "Taxi Zone")
	v.SetDefault("sources.taxi_zone.file", "taxi_zone_lookup (1).csv")
	v.SetDefault("sources.taxi_zone.table", "raw_taxi_zone")
}

// Load builds the Config. path may be empty, in which case only defaults,
// .env and the environment are consulted.
func Load(path string) (Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, env, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))); err != nil {
			return Config{}, pkgerror.NewConfig(err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, pkgerror.NewConfig(fmt.Errorf("read config %s: %w", path, err))
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) Config {
	cfg := Config{
		LogLevel:        v.GetString("log_level"),
		ContinueOnError: v.GetBool("continue_on_error"),
		ReportDir:       v.GetString("report_dir"),
		Paths: Paths{
			ProjectRoot:  v.GetString("paths.project_root"),
			RawDir:       v.GetString("paths.raw_dir"),
			ProcessedDir: v.GetString("paths.processed_dir"),
		},
		Extract: Extract{
			ChunkSize:   v.GetInt("extract.chunk_size"),
			Compression: strings.ToLower(v.GetString("extract.compression")),
		},
		Storage: Storage{
			Backend:  strings.ToLower(v.GetString("storage.backend")),
			Bucket:   v.GetString("storage.bucket"),
			Prefix:   strings.Trim(v.GetString("storage.prefix"), "/"),
			S3Region: v.GetString("storage.s3_region"),
		},
		Warehouse: Warehouse{
			ProjectID:       v.GetString("warehouse.project_id"),
			Dataset:         v.GetString("warehouse.dataset"),
			Location:        v.GetString("warehouse.location"),
			CreateDataset:   v.GetBool("warehouse.create_dataset"),
			CredentialsPath: v.GetString("warehouse.credentials_path"),
		},
		Workflow: Workflow{
			Name:           v.GetString("workflow.name"),
			Schedule:       v.GetString("workflow.schedule"),
			Retries:        v.GetInt("workflow.retries"),
			RetryDelay:     v.GetDuration("workflow.retry_delay"),
			DbtBinary:      v.GetString("workflow.dbt_binary"),
			DbtProfilesDir: v.GetString("workflow.dbt_profiles_dir"),
			DbtProjectDir:  v.GetString("workflow.dbt_project_dir"),
		},
	}

	for _, key := range sourceKeys {
		cfg.Sources = append(cfg.Sources, Source{
			Name:  v.GetString("sources." + key + ".name"),
			File:  v.GetString("sources." + key + ".file"),
			Table: v.GetString("sources." + key + ".table"),
		})
	}

	return cfg
}

// Default returns the configuration built from defaults alone.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

var compressions = map[string]bool{
	"uncompressed": true,
	"snappy":       true,
	"gzip":         true,
	"lz4":          true,
	"zstd":         true,
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	var errs []error

	if c.Extract.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("extract.chunk_size must be positive, got %d", c.Extract.ChunkSize))
	}
	if !compressions[c.Extract.Compression] {
		errs = append(errs, fmt.Errorf("extract.compression %q is not supported", c.Extract.Compression))
	}
	if c.Storage.Backend != BackendGCS && c.Storage.Backend != BackendS3 {
		errs = append(errs, fmt.Errorf("storage.backend must be %q or %q, got %q", BackendGCS, BackendS3, c.Storage.Backend))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("storage.bucket is required"))
	}
	if c.Warehouse.ProjectID == "" || c.Warehouse.Dataset == "" {
		errs = append(errs, errors.New("warehouse.project_id and warehouse.dataset are required"))
	}
	if c.Workflow.Retries < 0 {
		errs = append(errs, fmt.Errorf("workflow.retries must not be negative, got %d", c.Workflow.Retries))
	}
	for _, s := range c.Sources {
		if s.Name == "" || s.File == "" || s.Table == "" {
			errs = append(errs, fmt.Errorf("source %+v needs a name, file and table", s))
		}
	}

	if len(errs) > 0 {
		return pkgerror.NewConfig(errors.Join(errs...))
	}
	return nil
}
