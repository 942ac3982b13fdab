package cloud

import (
	"context"
	"time"

	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/flavors"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/keypairs"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/servers"
	"github.com/gophercloud/gophercloud/v2/openstack/image/v2/images"

	"github.com/lexfrei/midgard/internal/fault"
	"github.com/lexfrei/midgard/internal/provision"
)

// FindKeypair looks the keypair up by name. Absent keypairs return
// (nil, nil).
func (c *Client) FindKeypair(ctx context.Context, name string) (*provision.Keypair, error) {
	startTime := time.Now()

	keypair, err := keypairs.Get(ctx, c.compute, name, keypairs.GetOpts{}).Extract()
	c.observe(ctx, "compute", "find_keypair", startTime, err)

	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}

		return nil, wrapRemote(err, "failed to get keypair")
	}

	return &provision.Keypair{
		Name:        keypair.Name,
		PublicKey:   keypair.PublicKey,
		Fingerprint: keypair.Fingerprint,
	}, nil
}

// CreateKeypair registers publicKey under name.
func (c *Client) CreateKeypair(ctx context.Context, name, publicKey string) error {
	startTime := time.Now()

	_, err := keypairs.Create(ctx, c.compute, keypairs.CreateOpts{
		Name:      name,
		PublicKey: publicKey,
		Type:      "ssh",
	}).Extract()
	c.observe(ctx, "compute", "create_keypair", startTime, err)

	if err != nil {
		if isConflict(err) {
			return fault.Wrapf(err, fault.KindConflict, "keypair %s already exists", name)
		}

		return wrapRemote(err, "failed to create keypair")
	}

	return nil
}

// DeleteKeypair removes the keypair by name.
func (c *Client) DeleteKeypair(ctx context.Context, name string) error {
	startTime := time.Now()

	err := keypairs.Delete(ctx, c.compute, name, keypairs.DeleteOpts{}).ExtractErr()
	c.observe(ctx, "compute", "delete_keypair", startTime, err)

	if err != nil {
		return wrapRemote(err, "failed to delete keypair")
	}

	return nil
}

// FindServer looks a server up by exact name. Absent servers return
// (nil, nil).
func (c *Client) FindServer(ctx context.Context, name string) (*provision.Server, error) {
	startTime := time.Now()

	pages, err := servers.List(c.compute, servers.ListOpts{Name: name}).AllPages(ctx)
	c.observe(ctx, "compute", "find_server", startTime, err)

	if err != nil {
		return nil, wrapRemote(err, "failed to list servers")
	}

	found, err := servers.ExtractServers(pages)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindRemoteUnavailable, "failed to decode server listing")
	}

	for i := range found {
		// ListOpts.Name is a regex on the provider side; match exactly.
		if found[i].Name == name {
			return serverToDomain(&found[i]), nil
		}
	}

	return nil, nil
}

// CreateServer boots a server and blocks until it reaches ACTIVE or ctx
// expires.
func (c *Client) CreateServer(ctx context.Context, spec provision.ServerSpec) (*provision.Server, error) {
	createOpts := servers.CreateOpts{
		Name:      spec.Name,
		FlavorRef: spec.FlavorID,
		ImageRef:  spec.ImageID,
		Networks: []servers.Network{
			{UUID: spec.NetworkID},
		},
		SecurityGroups: []string{spec.SecurityGroup},
	}

	startTime := time.Now()

	server, err := servers.Create(ctx, c.compute, keypairs.CreateOptsExt{
		CreateOptsBuilder: createOpts,
		KeyName:           spec.KeypairName,
	}, nil).Extract()
	c.observe(ctx, "compute", "create_server", startTime, err)

	if err != nil {
		return nil, wrapRemote(err, "failed to create server")
	}

	err = servers.WaitForStatus(ctx, c.compute, server.ID, "ACTIVE")
	if err != nil {
		return nil, fault.Wrap(err, fault.KindRemoteUnavailable, "server did not become active")
	}

	created, err := servers.Get(ctx, c.compute, server.ID).Extract()
	if err != nil {
		return nil, wrapRemote(err, "failed to fetch created server")
	}

	return serverToDomain(created), nil
}

// ListFlavors lists all compute flavors.
func (c *Client) ListFlavors(ctx context.Context) ([]provision.Flavor, error) {
	startTime := time.Now()

	pages, err := flavors.ListDetail(c.compute, flavors.ListOpts{}).AllPages(ctx)
	c.observe(ctx, "compute", "list_flavors", startTime, err)

	if err != nil {
		return nil, wrapRemote(err, "failed to list flavors")
	}

	found, err := flavors.ExtractFlavors(pages)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindRemoteUnavailable, "failed to decode flavor listing")
	}

	out := make([]provision.Flavor, 0, len(found))
	for _, flavor := range found {
		out = append(out, provision.Flavor{
			ID:    flavor.ID,
			Name:  flavor.Name,
			VCPUs: flavor.VCPUs,
			RAM:   flavor.RAM,
			Disk:  flavor.Disk,
		})
	}

	return out, nil
}

// ListImages lists all bootable images.
func (c *Client) ListImages(ctx context.Context) ([]provision.Image, error) {
	startTime := time.Now()

	pages, err := images.List(c.image, images.ListOpts{}).AllPages(ctx)
	c.observe(ctx, "image", "list_images", startTime, err)

	if err != nil {
		return nil, wrapRemote(err, "failed to list images")
	}

	found, err := images.ExtractImages(pages)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindRemoteUnavailable, "failed to decode image listing")
	}

	out := make([]provision.Image, 0, len(found))
	for _, image := range found {
		out = append(out, provision.Image{ID: image.ID, Name: image.Name})
	}

	return out, nil
}

func serverToDomain(s *servers.Server) *provision.Server {
	return &provision.Server{
		ID:         s.ID,
		Name:       s.Name,
		Status:     s.Status,
		FloatingIP: floatingIPFromAddresses(s.Addresses),
	}
}

// floatingIPFromAddresses digs the first floating address out of the
// server's address map. The map shape is provider-defined:
// network name -> list of {addr, OS-EXT-IPS:type, ...}.
func floatingIPFromAddresses(addresses map[string]any) string {
	for _, entries := range addresses {
		list, ok := entries.([]any)
		if !ok {
			continue
		}

		for _, entry := range list {
			attrs, ok := entry.(map[string]any)
			if !ok {
				continue
			}

			kind, _ := attrs["OS-EXT-IPS:type"].(string)
			if kind != "floating" {
				continue
			}

			if addr, ok := attrs["addr"].(string); ok {
				return addr
			}
		}
	}

	return ""
}
