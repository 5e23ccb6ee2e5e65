package common

// Environment variable keys
const (
	EnvConfigFile          = "CONFIG_FILE"
	EnvEnvFile             = "ENV_FILE"
	EnvModelPath           = "MODEL_PATH"
	EnvModelLib            = "MODEL_LIB"
	EnvTrainingSamples     = "TRAINING_SAMPLES"
	EnvTrainingSeed        = "TRAINING_SEED"
	EnvHTTPPort            = "HTTP_PORT"
	EnvMetricsEnabled      = "METRICS_ENABLED"
	EnvEnableTrainEndpoint = "ENABLE_TRAIN_ENDPOINT"
	EnvDataPath            = "DATA_PATH"
	EnvLogLevel            = "LOG_LEVEL"
	EnvRequestTimeout      = "REQUEST_TIMEOUT"
	EnvDashboardEnabled    = "DASHBOARD_ENABLED"
	EnvDashboardInterval   = "DASHBOARD_INTERVAL"
	EnvAPIURL              = "AGRI_YIELD_URL"
)

// Configuration defaults
const (
	DefaultEnvFile           = ".env"
	DefaultModelPath         = "models/agri_yield_model.json"
	DefaultModelLib          = "gradient_boosting"
	DefaultTrainingSamples   = 1000
	DefaultTrainingSeed      = 42
	DefaultHTTPPort          = 8000
	DefaultLogLevel          = "info"
	DefaultAPIURL            = "http://localhost:8000"
	DefaultRequestTimeout    = 10  // seconds
	DefaultDashboardInterval = 5   // seconds
	DefaultPredictionLimit   = 100 // rows returned by the audit log endpoint
	DefaultTrainInterval     = 10  // seconds between training requests once the burst is spent
	DefaultTrainBurst        = 3
)

// Validation constants
const (
	MinTrainingSamples = 10
	MaxTrainingSamples = 1_000_000
	MinHTTPPort        = 1024
	MaxHTTPPort        = 65535
)
