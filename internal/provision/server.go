package provision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lexfrei/midgard/internal/fault"
	"github.com/lexfrei/midgard/internal/ingress"
)

const serverStatusActive = "ACTIVE"

// ServerStatus reports the state of the tenant's server after EnsureServer.
type ServerStatus struct {
	Name       string
	Status     string
	FloatingIP string

	// Hostname is the published SSH endpoint hostname, set only when the
	// server was created by this call.
	Hostname string

	// Created is true when this call booted the server.
	Created bool
}

// PortForward reports a published port-forward endpoint.
type PortForward struct {
	Hostname   string
	Service    string
	Protocol   string
	Port       int
	FloatingIP string
}

// EnsureServer makes sure the tenant's fixed-name server exists and is
// reachable. An existing server is never mutated: active servers report
// "already running", anything else reports its current status. An absent
// server is created synchronously and its SSH endpoint published through
// the edge router.
func (e *Engine) EnsureServer(ctx context.Context, requesterID, flavor, image string) (*ServerStatus, error) {
	cred, err := e.requireTenant(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	serverName := e.settings.Compute.ServerName

	existing, err := e.cloud.FindServer(ctx, serverName)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.Status != serverStatusActive {
			slog.Default().Warn("server exists but is not active",
				"component", "reconcile-engine",
				"requester", requesterID,
				"server", existing.Name,
				"status", existing.Status,
			)
		}

		return &ServerStatus{
			Name:       existing.Name,
			Status:     existing.Status,
			FloatingIP: existing.FloatingIP,
		}, nil
	}

	// Server creation needs the keypair and the default security group to
	// exist already; without the keypair the instance would be unreachable.
	keypair, err := e.cloud.FindKeypair(ctx, e.settings.Compute.KeypairName)
	if err != nil {
		return nil, err
	}

	if keypair == nil {
		return nil, fault.Newf(fault.KindPreconditionFailed,
			"keypair %s not found; add a keypair before creating a server", e.settings.Compute.KeypairName)
	}

	_, err = e.defaultSecurityGroup(ctx, cred.ProjectName)
	if err != nil {
		return nil, err
	}

	flavorID, err := e.resolveFlavor(ctx, flavor)
	if err != nil {
		return nil, err
	}

	imageID, err := e.resolveImage(ctx, image)
	if err != nil {
		return nil, err
	}

	network, err := e.cloud.FindNetwork(ctx, e.settings.Network.NetworkName)
	if err != nil {
		return nil, err
	}

	if network == nil {
		return nil, fault.Newf(fault.KindPreconditionFailed,
			"tenant network %s not found", e.settings.Network.NetworkName)
	}

	server, err := e.cloud.CreateServer(ctx, ServerSpec{
		Name:          serverName,
		FlavorID:      flavorID,
		ImageID:       imageID,
		NetworkID:     network.ID,
		KeypairName:   e.settings.Compute.KeypairName,
		SecurityGroup: e.settings.Network.SecurityGroup,
	})
	if err != nil {
		return nil, err
	}

	if server.FloatingIP == "" {
		return nil, fault.Newf(fault.KindRemoteUnavailable,
			"server %s has no floating ip", server.Name)
	}

	service := fmt.Sprintf("ssh://%s:22", server.FloatingIP)

	hostname, err := e.edge.Publish(ctx, service, requesterID+"-ssh", nil)
	if err != nil {
		return nil, err
	}

	slog.Default().Info("server created and ssh endpoint published",
		"component", "reconcile-engine",
		"requester", requesterID,
		"server", server.Name,
		"hostname", hostname,
	)

	return &ServerStatus{
		Name:       server.Name,
		Status:     server.Status,
		FloatingIP: server.FloatingIP,
		Hostname:   hostname,
		Created:    true,
	}, nil
}

// ForwardPort opens port on the tenant's security group and publishes
// <protocol>://<floating-ip>:<port> under the <requester>-<protocol>-<port>
// hostname.
func (e *Engine) ForwardPort(ctx context.Context, requesterID string, port int, protocol string) (*PortForward, error) {
	if protocol == "" {
		protocol = "http"
	}

	server, err := e.requireServer(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	err = e.OpenPort(ctx, requesterID, port, e.settings.Network.RuleDirection)
	if err != nil {
		return nil, err
	}

	service := fmt.Sprintf("%s://%s:%d", protocol, server.FloatingIP, port)
	rawHostname := fmt.Sprintf("%s-%s-%d", requesterID, protocol, port)

	hostname, err := e.edge.Publish(ctx, service, rawHostname, nil)
	if err != nil {
		return nil, err
	}

	return &PortForward{
		Hostname:   hostname,
		Service:    service,
		Protocol:   protocol,
		Port:       port,
		FloatingIP: server.FloatingIP,
	}, nil
}

// PublishEndpoint publishes an arbitrary service endpoint for the tenant
// under the given hostname. The tenant must be registered and its server
// running. Returns the normalized hostname.
func (e *Engine) PublishEndpoint(ctx context.Context, requesterID, service, hostname string, origin *ingress.OriginRequest) (string, error) {
	_, err := e.requireServer(ctx, requesterID)
	if err != nil {
		return "", err
	}

	return e.edge.Publish(ctx, service, hostname, origin)
}

// ServerStatus reports the current state of the tenant's server without
// mutating anything.
func (e *Engine) ServerStatus(ctx context.Context, requesterID string) (*ServerStatus, error) {
	_, err := e.requireTenant(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	server, err := e.cloud.FindServer(ctx, e.settings.Compute.ServerName)
	if err != nil {
		return nil, err
	}

	if server == nil {
		return nil, fault.Newf(fault.KindNotFound, "server %s not found", e.settings.Compute.ServerName)
	}

	return &ServerStatus{
		Name:       server.Name,
		Status:     server.Status,
		FloatingIP: server.FloatingIP,
	}, nil
}

// requireServer returns the tenant's server with a floating address,
// failing with a precondition fault when the tenant or server is missing.
func (e *Engine) requireServer(ctx context.Context, requesterID string) (*Server, error) {
	_, err := e.requireTenant(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	server, err := e.cloud.FindServer(ctx, e.settings.Compute.ServerName)
	if err != nil {
		return nil, err
	}

	if server == nil {
		return nil, fault.Newf(fault.KindPreconditionFailed,
			"server %s not found; create a server first", e.settings.Compute.ServerName)
	}

	if server.FloatingIP == "" {
		return nil, fault.Newf(fault.KindPreconditionFailed,
			"server %s has no floating ip", server.Name)
	}

	return server, nil
}

// resolveFlavor matches the given flavor by ID or name.
func (e *Engine) resolveFlavor(ctx context.Context, flavor string) (string, error) {
	available, err := e.cloud.ListFlavors(ctx)
	if err != nil {
		return "", err
	}

	for _, candidate := range available {
		if candidate.ID == flavor || strings.EqualFold(candidate.Name, flavor) {
			return candidate.ID, nil
		}
	}

	return "", fault.Newf(fault.KindValidation, "unknown flavor %q", flavor)
}

// resolveImage matches the given image by ID or name.
func (e *Engine) resolveImage(ctx context.Context, image string) (string, error) {
	available, err := e.cloud.ListImages(ctx)
	if err != nil {
		return "", err
	}

	for _, candidate := range available {
		if candidate.ID == image || strings.EqualFold(candidate.Name, image) {
			return candidate.ID, nil
		}
	}

	return "", fault.Newf(fault.KindValidation, "unknown image %q", image)
}

// ListFlavors lists the flavors available for server creation.
func (e *Engine) ListFlavors(ctx context.Context) ([]Flavor, error) {
	return e.cloud.ListFlavors(ctx)
}

// ListImages lists the images available for server creation.
func (e *Engine) ListImages(ctx context.Context) ([]Image, error) {
	return e.cloud.ListImages(ctx)
}
