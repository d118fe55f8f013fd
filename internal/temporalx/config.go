package temporalx

import (
	"time"

	"github.com/yungbote/adaptive-engine/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	AutoRegisterNamespace bool

	// EstimationEvery is the batch estimation schedule interval; zero disables the schedule.
	EstimationEvery   time.Duration
	WorkerConcurrency int
}

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "adaptive-engine"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "adaptive-engine"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		EstimationEvery:       envutil.Seconds("ESTIMATION_INTERVAL_SECONDS", 0),
		WorkerConcurrency:     envutil.Int("WORKER_CONCURRENCY", 2),
	}
}

func (c Config) tlsEnabled() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
