package health

import (
	"context"

	"github.com/atelierforma/configurator/internal/geometry"
)

// GeometryChecker implements health checking for the geometry service.
type GeometryChecker struct {
	client *geometry.Client
}

// NewGeometryChecker creates a new geometry service health checker.
func NewGeometryChecker(client *geometry.Client) *GeometryChecker {
	return &GeometryChecker{client: client}
}

// HealthCheck pings the geometry service.
func (g *GeometryChecker) HealthCheck(ctx context.Context) error {
	return g.client.Ping(ctx)
}
