package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/adaptive-engine/internal/bkt"
	"github.com/yungbote/adaptive-engine/internal/engine"
	"github.com/yungbote/adaptive-engine/internal/pkg/matrix"
	"github.com/yungbote/adaptive-engine/internal/platform/envutil"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
)

type Config struct {
	Bucket string
	Prefix string
	// EmulatorHost points the client at a local fake-gcs-server.
	EmulatorHost string
}

func ConfigFromEnv() Config {
	return Config{
		Bucket:       envutil.String("GCS_EXPORT_BUCKET", ""),
		Prefix:       envutil.String("GCS_EXPORT_PREFIX", "estimates"),
		EmulatorHost: envutil.String("GCS_EMULATOR_HOST", ""),
	}
}

// Bucket is the object sink the exporter writes to.
type Bucket interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Name() string
}

// Exporter writes the diagnostic view of an estimation run as JSON. Cells that kept
// their previous value are null.
type Exporter struct {
	bucket Bucket
	prefix string
	log    *logger.Logger
	now    func() time.Time
}

var _ engine.Exporter = (*Exporter)(nil)

func New(ctx context.Context, cfg Config, log *logger.Logger) (*Exporter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("missing GCS_EXPORT_BUCKET")
	}
	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return NewWithBucket(&gcsBucket{client: client, name: cfg.Bucket}, cfg.Prefix, log), nil
}

func NewWithBucket(b Bucket, prefix string, log *logger.Logger) *Exporter {
	return &Exporter{
		bucket: b,
		prefix: strings.Trim(prefix, "/"),
		log:    log.With("service", "EstimateExporter"),
		now:    time.Now,
	}
}

// Close releases the storage client when the bucket holds one.
func (x *Exporter) Close() error {
	if c, ok := x.bucket.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func newStorageClient(ctx context.Context, cfg Config) (*storage.Client, error) {
	if host := strings.TrimRight(cfg.EmulatorHost, "/"); host != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	opts := clientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func clientOptionsFromEnv() []option.ClientOption {
	creds := envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	if creds == "" {
		creds = envutil.String("GOOGLE_APPLICATION_CREDENTIALS", "")
	}
	switch {
	case creds == "":
		return nil
	case strings.HasPrefix(creds, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	default:
		return []option.ClientOption{option.WithCredentialsFile(creds)}
	}
}

func (x *Exporter) ExportEstimate(ctx context.Context, model *engine.Model, res *bkt.Result) (string, error) {
	at := x.now().UTC()
	raw, err := json.Marshal(BuildReport(model, res, at))
	if err != nil {
		return "", fmt.Errorf("encode estimate: %w", err)
	}
	key := path.Join(x.prefix, at.Format("20060102T150405Z")+".json")
	if err := x.bucket.Put(ctx, key, "application/json", bytes.NewReader(raw)); err != nil {
		return "", err
	}
	loc := fmt.Sprintf("gs://%s/%s", x.bucket.Name(), key)
	x.log.Debug("estimate written", "location", loc, "bytes", len(raw))
	return loc, nil
}

// Report is the exported estimate. Matrices hold probabilities with activity rows and
// KC columns.
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Learners    int            `json:"learners"`
	Submissions int            `json:"submissions"`
	Activities  []string       `json:"activities"`
	KCs         []string       `json:"kcs"`
	Guess       [][]*float64   `json:"guess"`
	Slip        [][]*float64   `json:"slip"`
	Transit     [][]*float64   `json:"transit"`
	Prior       []*float64     `json:"prior"`
	Sparse      map[string]int `json:"sparse"`
	Degenerate  map[string]int `json:"degenerate"`
}

func BuildReport(model *engine.Model, res *bkt.Result, at time.Time) Report {
	r := Report{
		GeneratedAt: at,
		Learners:    res.Learners,
		Submissions: res.Submissions,
		Activities:  make([]string, model.Activities.Len()),
		KCs:         make([]string, model.KCs.Len()),
		Guess:       probRows(res.Diagnostic.Guess),
		Slip:        probRows(res.Diagnostic.Slip),
		Transit:     probRows(res.Diagnostic.Transit),
		Prior:       probVec(res.Diagnostic.Prior),
		Sparse:      res.Rejections.Sparse,
		Degenerate:  res.Rejections.Degenerate,
	}
	for i, id := range model.Activities.IDs() {
		r.Activities[i] = id.String()
	}
	for i, id := range model.KCs.IDs() {
		r.KCs[i] = id.String()
	}
	return r
}

func probRows(m *matrix.Dense) [][]*float64 {
	if m == nil {
		return nil
	}
	q, _ := m.Dims()
	out := make([][]*float64, q)
	for i := range out {
		out[i] = probVec(m.Row(i))
	}
	return out
}

func probVec(v []float64) []*float64 {
	out := make([]*float64, len(v))
	for i, o := range v {
		if math.IsNaN(o) {
			continue
		}
		p := bkt.Probability(o)
		out[i] = &p
	}
	return out
}

type gcsBucket struct {
	client *storage.Client
	name   string
}

func (b *gcsBucket) Name() string { return b.name }

func (b *gcsBucket) Close() error { return b.client.Close() }

func (b *gcsBucket) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	w := b.client.Bucket(b.name).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}
