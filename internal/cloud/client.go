// Package cloud implements the control-plane client against OpenStack:
// Keystone identity, Neutron networking and Nova compute, through
// gophercloud. It satisfies provision.ControlPlane.
//
// Find operations return (nil, nil) when the resource is absent; every
// other failure carries a fault kind so callers never branch on provider
// error text.
package cloud

import (
	"context"
	"net/http"
	"time"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"

	"github.com/lexfrei/midgard/internal/config"
	"github.com/lexfrei/midgard/internal/fault"
	"github.com/lexfrei/midgard/internal/metrics"
	"github.com/lexfrei/midgard/internal/provision"
)

// Client is a per-operation control-plane session. Build one at the start
// of an operation and let it go out of scope at the end; it holds no state
// beyond the authenticated service endpoints.
type Client struct {
	identity *gophercloud.ServiceClient
	network  *gophercloud.ServiceClient
	compute  *gophercloud.ServiceClient
	image    *gophercloud.ServiceClient

	metrics metrics.Collector
}

// Connect authenticates against Keystone and builds service clients for the
// identity, network, compute and image endpoints.
func Connect(ctx context.Context, settings *config.Settings, collector metrics.Collector) (*Client, error) {
	if collector == nil {
		collector = metrics.NewNoopCollector()
	}

	authOpts := gophercloud.AuthOptions{
		IdentityEndpoint: settings.AuthURL,
		Username:         settings.Username,
		Password:         settings.Password,
		DomainName:       settings.UserDomainName,
		TenantName:       settings.ProjectName,
		AllowReauth:      true,
	}

	provider, err := openstack.AuthenticatedClient(ctx, authOpts)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindRemoteUnavailable, "failed to authenticate against control plane")
	}

	endpointOpts := gophercloud.EndpointOpts{Region: settings.Region}

	identity, err := openstack.NewIdentityV3(provider, endpointOpts)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindRemoteUnavailable, "failed to locate identity endpoint")
	}

	network, err := openstack.NewNetworkV2(provider, endpointOpts)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindRemoteUnavailable, "failed to locate network endpoint")
	}

	compute, err := openstack.NewComputeV2(provider, endpointOpts)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindRemoteUnavailable, "failed to locate compute endpoint")
	}

	image, err := openstack.NewImageV2(provider, endpointOpts)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindRemoteUnavailable, "failed to locate image endpoint")
	}

	return &Client{
		identity: identity,
		network:  network,
		compute:  compute,
		image:    image,
		metrics:  collector,
	}, nil
}

// observe records one control-plane API call. Call with the start time and
// final error.
func (c *Client) observe(ctx context.Context, service, method string, startTime time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"

		c.metrics.RecordCloudAPIError(ctx, method, metrics.ClassifyOpenStackError(err))
	}

	c.metrics.RecordCloudAPICall(ctx, service, method, status, time.Since(startTime))
}

// isNotFound reports whether err is a provider 404.
func isNotFound(err error) bool {
	return gophercloud.ResponseCodeIs(err, http.StatusNotFound)
}

// isConflict reports whether err is a provider 409.
func isConflict(err error) bool {
	return gophercloud.ResponseCodeIs(err, http.StatusConflict)
}

// wrapRemote classifies a provider error: conflicts keep their kind, all
// else is a remote failure.
func wrapRemote(err error, msg string) error {
	if isConflict(err) {
		return fault.Wrap(err, fault.KindConflict, msg)
	}

	return fault.Wrap(err, fault.KindRemoteUnavailable, msg)
}

var _ provision.ControlPlane = (*Client)(nil)
