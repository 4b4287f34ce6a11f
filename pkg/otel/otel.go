package otel

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	ServiceAPI            = "matchbook-api"
	ServiceMatchingEngine = "matchbook-engine"
)

var (
	apiTracer              trace.Tracer
	matchingEngineTracer   trace.Tracer
	apiResource            *sdkresource.Resource
	matchingEngineResource *sdkresource.Resource
	apiTracerProvider      *sdktrace.TracerProvider
	matchingTracerProvider *sdktrace.TracerProvider
	meterProvider          *sdkmetric.MeterProvider
)

// Config holds the OpenTelemetry configuration
type Config struct {
	ServiceName      string
	ServiceVersion   string
	Endpoint         string
	ConnectTimeout   time.Duration
	CollectorEnabled bool
}

// Init sets up tracing and metrics export to an OTLP collector. Failures to
// reach the collector are logged and tolerated so the engine can run without
// observability infrastructure.
func Init(cfg Config) (func(), error) {
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "0.1.0"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	var cleanup []func()

	apiResource = initResource(ServiceAPI, cfg.ServiceVersion)
	matchingEngineResource = initResource(ServiceMatchingEngine, cfg.ServiceVersion)

	if cfg.CollectorEnabled {
		apiTP, err := initTracerProvider(cfg, apiResource)
		if err != nil {
			log.Printf("Warning: Failed to initialize API tracer provider: %v", err)
		} else {
			apiTracerProvider = apiTP
			cleanup = append(cleanup, func() {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
				defer cancel()
				if err := apiTP.Shutdown(ctx); err != nil {
					log.Printf("Error shutting down API tracer provider: %v", err)
				}
			})
		}

		matchingTP, err := initTracerProvider(cfg, matchingEngineResource)
		if err != nil {
			log.Printf("Warning: Failed to initialize matching engine tracer provider: %v", err)
		} else {
			matchingTracerProvider = matchingTP
			cleanup = append(cleanup, func() {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
				defer cancel()
				if err := matchingTP.Shutdown(ctx); err != nil {
					log.Printf("Error shutting down matching engine tracer provider: %v", err)
				}
			})
		}

		mp, err := initMeterProvider(cfg, matchingEngineResource)
		if err != nil {
			log.Printf("Warning: Failed to initialize meter provider: %v. Continuing without metrics.", err)
		} else {
			meterProvider = mp
			cleanup = append(cleanup, func() {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
				defer cancel()
				if err := mp.Shutdown(ctx); err != nil {
					log.Printf("Error shutting down meter provider: %v", err)
				}
			})
		}
	}

	if apiTracerProvider != nil {
		apiTracer = apiTracerProvider.Tracer(ServiceAPI)
	}
	if matchingTracerProvider != nil {
		matchingEngineTracer = matchingTracerProvider.Tracer(ServiceMatchingEngine)
	}

	return func() {
		for _, fn := range cleanup {
			fn()
		}
	}, nil
}

func initResource(serviceName, serviceVersion string) *sdkresource.Resource {
	extraResources, err := sdkresource.New(
		context.Background(),
		sdkresource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
		sdkresource.WithOS(),
		sdkresource.WithProcess(),
		sdkresource.WithContainer(),
		sdkresource.WithHost(),
	)
	if err != nil {
		log.Printf("Failed to create resource: %v", err)
		return sdkresource.Default()
	}

	resource, err := sdkresource.Merge(
		sdkresource.Default(),
		extraResources,
	)
	if err != nil {
		log.Printf("Failed to merge resources: %v", err)
		return sdkresource.Default()
	}

	return resource
}

func initTracerProvider(cfg Config, resource *sdkresource.Resource) (*sdktrace.TracerProvider, error) {
	ctx := context.Background()

	conn, err := grpc.DialContext(ctx, cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithTimeout(cfg.ConnectTimeout),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithGRPCConn(conn),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource),
		sdktrace.WithSampler(sdktrace.ParentBased(
			sdktrace.TraceIDRatioBased(1),
		)),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	otel.SetTracerProvider(tp)

	return tp, nil
}

func initMeterProvider(cfg Config, resource *sdkresource.Resource) (*sdkmetric.MeterProvider, error) {
	ctx := context.Background()

	conn, err := grpc.DialContext(ctx, cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithTimeout(cfg.ConnectTimeout),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithGRPCConn(conn),
	)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(5*time.Second))),
		sdkmetric.WithResource(resource),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}

// GetAPITracer returns the tracer for the HTTP API layer
func GetAPITracer() trace.Tracer {
	return apiTracer
}

// GetMatchingEngineTracer returns the tracer for the matching engine
func GetMatchingEngineTracer() trace.Tracer {
	return matchingEngineTracer
}

// GetTextMapPropagator returns the configured propagator
func GetTextMapPropagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// GetMeterProvider returns the global meter provider
func GetMeterProvider() metric.MeterProvider {
	if meterProvider == nil {
		return otel.GetMeterProvider()
	}
	return meterProvider
}

// ResetForTesting resets the global tracers
func ResetForTesting() {
	apiTracer = nil
	matchingEngineTracer = nil
	apiTracerProvider = nil
	matchingTracerProvider = nil
}

// InitForTesting installs the given tracer for both services
func InitForTesting(tracer trace.Tracer) error {
	apiTracer = tracer
	matchingEngineTracer = tracer
	return nil
}
