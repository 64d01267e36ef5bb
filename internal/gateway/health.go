package gateway

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
)

// ReadinessProbe reports whether the backend can take traffic.
type ReadinessProbe func(ctx context.Context) error

// GRPCHealthProbe checks the backend over the standard gRPC health protocol.
type GRPCHealthProbe struct {
	conn    *grpc.ClientConn
	client  healthpb.HealthClient
	service string

	apiKey   string
	apiExtra string
}

func NewGRPCHealthProbe(addr, service, apiKey, apiExtra string, opts ...grpc.DialOption) (*GRPCHealthProbe, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc health client %s: %w", addr, err)
	}
	return &GRPCHealthProbe{
		conn:     conn,
		client:   healthpb.NewHealthClient(conn),
		service:  service,
		apiKey:   apiKey,
		apiExtra: apiExtra,
	}, nil
}

func (p *GRPCHealthProbe) Check(ctx context.Context) error {
	if p.apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-api-key", p.apiKey, "x-api-extra", p.apiExtra)
	}
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("backend status %s", resp.GetStatus())
	}
	return nil
}

func (p *GRPCHealthProbe) Close() error {
	return p.conn.Close()
}
