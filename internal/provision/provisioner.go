package provision

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/midgard/internal/fault"
)

// Provisioning sub-protocol step names, used as metrics labels and carried
// on partial-provisioning faults.
const (
	StepCreateProject = "create_project"
	StepCreateUser    = "create_user"
	StepAssignRole    = "assign_role"
	StepNetworkStack  = "network_stack"
	StepSecurityGroup = "security_group"
)

// provisionTenant runs the ABSENT-path sub-protocol in strict order. There
// is no compensation: a failed step leaves everything created so far, and
// any failure after the project exists is marked partial so operators know
// to inspect the orphaned resources.
func (e *Engine) provisionTenant(ctx context.Context, requesterID string) (*TenantCredential, error) {
	projectName := e.ProjectName(requesterID)

	project, err := e.cloud.CreateProject(ctx, projectName)
	e.recordStep(ctx, StepCreateProject, err)

	if err != nil {
		return nil, err
	}

	newSecret, err := e.secrets.Generate()
	if err != nil {
		return nil, e.partial(err, StepCreateUser)
	}

	user, err := e.cloud.CreateUser(ctx, requesterID, newSecret, project.ID)
	e.recordStep(ctx, StepCreateUser, err)

	if err != nil {
		return nil, e.partial(err, StepCreateUser)
	}

	err = e.cloud.AssignRole(ctx, user.ID, project.ID, e.settings.Network.RoleName)
	e.recordStep(ctx, StepAssignRole, err)

	if err != nil {
		return nil, e.partial(err, StepAssignRole)
	}

	_, err = e.provisionNetworkStack(ctx, project.ID)
	e.recordStep(ctx, StepNetworkStack, err)

	if err != nil {
		return nil, e.partial(err, StepNetworkStack)
	}

	err = e.ensureSecurityGroup(ctx, project.ID)
	e.recordStep(ctx, StepSecurityGroup, err)

	if err != nil {
		return nil, e.partial(err, StepSecurityGroup)
	}

	cred := &TenantCredential{
		RequesterID: requesterID,
		Secret:      newSecret,
		ProjectName: projectName,
	}

	err = e.store.Put(ctx, cred)
	if err != nil {
		return nil, e.partial(errors.Wrap(err, "failed to write credential cache"), "cache_write")
	}

	return cred, nil
}

// provisionNetworkStack creates the router, network and subnet for a
// project and wires them together. The triple is created as a unit and
// never individually inspected afterward.
func (e *Engine) provisionNetworkStack(ctx context.Context, projectID string) (*NetworkStack, error) {
	netCfg := e.settings.Network

	external, err := e.cloud.FindNetwork(ctx, netCfg.ExternalNetwork)
	if err != nil {
		return nil, err
	}

	if external == nil {
		return nil, fault.Newf(fault.KindNotFound,
			"external gateway network %s not found", netCfg.ExternalNetwork)
	}

	routerID, err := e.cloud.CreateRouter(ctx, RouterSpec{
		Name:              netCfg.RouterName,
		ProjectID:         projectID,
		ExternalNetworkID: external.ID,
	})
	if err != nil {
		return nil, err
	}

	networkID, err := e.cloud.CreateNetwork(ctx, netCfg.NetworkName, projectID)
	if err != nil {
		return nil, err
	}

	subnetID, err := e.cloud.CreateSubnet(ctx, SubnetSpec{
		Name:           netCfg.SubnetName,
		NetworkID:      networkID,
		ProjectID:      projectID,
		CIDR:           netCfg.SubnetCIDR,
		GatewayIP:      netCfg.GatewayIP,
		DNSNameservers: netCfg.DNSNameservers,
		IPVersion:      netCfg.IPVersion,
	})
	if err != nil {
		return nil, err
	}

	err = e.cloud.AttachRouterInterface(ctx, routerID, subnetID)
	if err != nil {
		return nil, err
	}

	return &NetworkStack{
		RouterID:  routerID,
		NetworkID: networkID,
		SubnetID:  subnetID,
	}, nil
}

// ensureSecurityGroup verifies the project's default security group exists.
// The control plane creates it with the project, so a miss here means the
// project is in a broken state.
func (e *Engine) ensureSecurityGroup(ctx context.Context, projectID string) error {
	groupID, err := e.cloud.FindSecurityGroup(ctx, e.settings.Network.SecurityGroup, projectID)
	if err != nil {
		return err
	}

	if groupID == "" {
		return fault.Newf(fault.KindNotFound,
			"security group %s not found for project", e.settings.Network.SecurityGroup)
	}

	return nil
}

func (e *Engine) recordStep(ctx context.Context, step string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	e.metrics.RecordProvisionStep(ctx, step, status)
}

// partial marks a failure that happened after the project was created.
func (e *Engine) partial(err error, step string) error {
	return fault.Wrapf(err, fault.KindPartialProvisioning, "provisioning failed at step %s", step)
}
