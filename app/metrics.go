package app

import (
	"context"
	"strconv"
	"sync"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	oczipkin "contrib.go.opencensus.io/exporter/zipkin"
	"github.com/gin-gonic/gin"
	zipkin "github.com/openzipkin/zipkin-go"
	zipkinhttp "github.com/openzipkin/zipkin-go/reporter/http"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.opencensus.io/trace"

	"github.com/flagonhq/flagon/common"
)

var (
	pathKey     = common.MakeKey("path")
	methodKey   = common.MakeKey("method")
	statusKey   = common.MakeKey("status")
	endpointKey = common.MakeKey("endpoint")

	requestCountMeasure  = common.MakeMeasure("http/request_count", "Count of requests started", stats.UnitDimensionless)
	responseCountMeasure = common.MakeMeasure("http/response_count", "Response count", stats.UnitDimensionless)
	latencyMeasure       = common.MakeMeasure("http/latency", "Latency distribution of requests", stats.UnitMilliseconds)

	// ViewsGetPath tags measurements with the matched route pattern, swap it
	// out to coarsen tag cardinality.
	ViewsGetPath = DefaultViewsGetPath

	defaultViewsOnce sync.Once
)

// DefaultViewsGetPath returns the route pattern the request matched, e.g.
// /users/:user_id, never the raw URL, which would blow up tag cardinality.
func DefaultViewsGetPath(c *gin.Context) string {
	if url := c.FullPath(); url != "" {
		return url
	}
	return "invalid"
}

// RegisterViews registers the request count and latency views, with any
// extra tag keys added on top of the defaults and the given latency
// distribution in milliseconds.
func RegisterViews(tagKeys []string, dist []float64) {

	// default tags for request and response
	reqTags := []tag.Key{pathKey, methodKey}
	respTags := []tag.Key{pathKey, methodKey, statusKey, endpointKey}

	// add extra tags if not already in default tags for req/resp
	for _, key := range tagKeys {
		if key != pathKey.Name() && key != methodKey.Name() && key != statusKey.Name() && key != endpointKey.Name() {
			respTags = append(respTags, common.MakeKey(key))
		}
		if key != pathKey.Name() && key != methodKey.Name() {
			reqTags = append(reqTags, common.MakeKey(key))
		}
	}

	err := view.Register(
		common.CreateViewWithTags(requestCountMeasure, view.Count(), reqTags),
		common.CreateViewWithTags(responseCountMeasure, view.Count(), respTags),
		common.CreateViewWithTags(latencyMeasure, view.Distribution(dist...), respTags),
	)
	if err != nil {
		logrus.WithError(err).Fatal("cannot register view")
	}
}

func registerDefaultViews() {
	defaultViewsOnce.Do(func() {
		RegisterViews(nil, common.GenerateLogScaleHistogramBuckets(60000, 18))
	})
}

func (a *App) metricsWrap() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, err := tag.New(c.Request.Context(),
			tag.Upsert(pathKey, ViewsGetPath(c)),
			tag.Upsert(methodKey, c.Request.Method),
		)
		if err != nil {
			logrus.Fatal(err)
		}
		stats.Record(ctx, requestCountMeasure.M(0))
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		endpoint := ""
		if rule := CurrentRule(c.Request); rule != nil {
			endpoint = rule.Endpoint
		}

		ctx, err = tag.New(c.Request.Context(), // important, request context could be mutated by now
			tag.Upsert(pathKey, ViewsGetPath(c)),
			tag.Upsert(methodKey, c.Request.Method),
			tag.Upsert(statusKey, status),
			tag.Upsert(endpointKey, endpoint),
		)
		if err != nil {
			logrus.Fatal(err)
		}
		stats.Record(ctx, responseCountMeasure.M(0))
		stats.Record(ctx, latencyMeasure.M(int64(time.Since(start)/time.Millisecond)))
	}
}

// WithPrometheus registers the default request views and serves them on
// /metrics in the prometheus exposition format, alongside the standard go
// runtime and process collectors.
func WithPrometheus() Option {
	return func(ctx context.Context, a *App) error {
		registry := promclient.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		exporter, err := prometheus.NewExporter(prometheus.Options{
			Namespace: "flagon",
			Registry:  registry,
			OnError: func(err error) {
				logrus.WithError(err).Error("prometheus exporter error")
			},
		})
		if err != nil {
			return err
		}
		registerDefaultViews()
		a.promExporter = exporter
		return nil
	}
}

// WithZipkin exports request spans to a zipkin collector, e.g.
// http://zipkin:9411/api/v2/spans. An empty url is a no-op so the option can
// be driven straight from the environment.
func WithZipkin(zipkinURL string) Option {
	return func(ctx context.Context, a *App) error {
		if zipkinURL == "" {
			return nil
		}

		reporter := zipkinhttp.NewReporter(zipkinURL)
		endpoint, err := zipkin.NewEndpoint(a.importName, "")
		if err != nil {
			return err
		}
		trace.RegisterExporter(oczipkin.NewExporter(reporter, endpoint))
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.AlwaysSample()})

		common.Logger(ctx).WithFields(logrus.Fields{"url": zipkinURL}).Info("exporting spans to zipkin")
		return nil
	}
}
