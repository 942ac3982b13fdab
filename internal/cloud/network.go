package cloud

import (
	"context"
	"time"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/layer3/routers"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/security/groups"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/security/rules"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/networks"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/subnets"

	"github.com/lexfrei/midgard/internal/fault"
	"github.com/lexfrei/midgard/internal/provision"
)

// FindNetwork looks a network up by exact name. Absent networks return
// (nil, nil).
func (c *Client) FindNetwork(ctx context.Context, name string) (*provision.Network, error) {
	startTime := time.Now()

	pages, err := networks.List(c.network, networks.ListOpts{Name: name}).AllPages(ctx)
	c.observe(ctx, "network", "find_network", startTime, err)

	if err != nil {
		return nil, wrapRemote(err, "failed to list networks")
	}

	found, err := networks.ExtractNetworks(pages)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindRemoteUnavailable, "failed to decode network listing")
	}

	if len(found) == 0 {
		return nil, nil
	}

	return &provision.Network{ID: found[0].ID, Name: found[0].Name}, nil
}

// CreateRouter creates a NAT router scoped to the project with the external
// gateway attached.
func (c *Client) CreateRouter(ctx context.Context, spec provision.RouterSpec) (string, error) {
	startTime := time.Now()

	router, err := routers.Create(ctx, c.network, routers.CreateOpts{
		Name:      spec.Name,
		ProjectID: spec.ProjectID,
		GatewayInfo: &routers.GatewayInfo{
			NetworkID: spec.ExternalNetworkID,
		},
	}).Extract()
	c.observe(ctx, "network", "create_router", startTime, err)

	if err != nil {
		return "", wrapRemote(err, "failed to create router")
	}

	return router.ID, nil
}

// CreateNetwork creates a tenant network scoped to the project.
func (c *Client) CreateNetwork(ctx context.Context, name, projectID string) (string, error) {
	startTime := time.Now()

	network, err := networks.Create(ctx, c.network, networks.CreateOpts{
		Name:      name,
		ProjectID: projectID,
	}).Extract()
	c.observe(ctx, "network", "create_network", startTime, err)

	if err != nil {
		return "", wrapRemote(err, "failed to create network")
	}

	return network.ID, nil
}

// CreateSubnet creates a subnet with the configured addressing constants.
func (c *Client) CreateSubnet(ctx context.Context, spec provision.SubnetSpec) (string, error) {
	startTime := time.Now()

	gatewayIP := spec.GatewayIP

	subnet, err := subnets.Create(ctx, c.network, subnets.CreateOpts{
		Name:           spec.Name,
		NetworkID:      spec.NetworkID,
		ProjectID:      spec.ProjectID,
		CIDR:           spec.CIDR,
		GatewayIP:      &gatewayIP,
		DNSNameservers: spec.DNSNameservers,
		IPVersion:      gophercloud.IPVersion(spec.IPVersion),
	}).Extract()
	c.observe(ctx, "network", "create_subnet", startTime, err)

	if err != nil {
		return "", wrapRemote(err, "failed to create subnet")
	}

	return subnet.ID, nil
}

// AttachRouterInterface attaches the subnet to the router as an interface.
func (c *Client) AttachRouterInterface(ctx context.Context, routerID, subnetID string) error {
	startTime := time.Now()

	_, err := routers.AddInterface(ctx, c.network, routerID, routers.AddInterfaceOpts{
		SubnetID: subnetID,
	}).Extract()
	c.observe(ctx, "network", "attach_router_interface", startTime, err)

	if err != nil {
		return wrapRemote(err, "failed to attach router interface")
	}

	return nil
}

// FindSecurityGroup returns the ID of the named security group within the
// project, or an empty string when absent.
func (c *Client) FindSecurityGroup(ctx context.Context, name, projectID string) (string, error) {
	startTime := time.Now()

	pages, err := groups.List(c.network, groups.ListOpts{Name: name, ProjectID: projectID}).AllPages(ctx)
	c.observe(ctx, "network", "find_security_group", startTime, err)

	if err != nil {
		return "", wrapRemote(err, "failed to list security groups")
	}

	found, err := groups.ExtractGroups(pages)
	if err != nil {
		return "", fault.Wrap(err, fault.KindRemoteUnavailable, "failed to decode security group listing")
	}

	if len(found) == 0 {
		return "", nil
	}

	return found[0].ID, nil
}

// CreateSecurityGroupRule appends one rule to the group. A provider 409
// (duplicate rule) comes back with a conflict kind.
func (c *Client) CreateSecurityGroupRule(ctx context.Context, spec provision.SecurityRuleSpec) error {
	direction := rules.DirIngress
	if spec.Direction == "egress" {
		direction = rules.DirEgress
	}

	startTime := time.Now()

	_, err := rules.Create(ctx, c.network, rules.CreateOpts{
		SecGroupID:     spec.GroupID,
		Direction:      direction,
		EtherType:      rules.EtherType4,
		Protocol:       rules.RuleProtocol(spec.Protocol),
		PortRangeMin:   spec.PortMin,
		PortRangeMax:   spec.PortMax,
		RemoteIPPrefix: spec.RemoteIPPrefix,
	}).Extract()
	c.observe(ctx, "network", "create_security_group_rule", startTime, err)

	if err != nil {
		if isConflict(err) {
			return fault.Wrapf(err, fault.KindConflict,
				"security group rule for port %d-%d already exists", spec.PortMin, spec.PortMax)
		}

		return wrapRemote(err, "failed to create security group rule")
	}

	return nil
}
