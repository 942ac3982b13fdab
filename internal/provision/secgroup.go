package provision

import (
	"context"

	"github.com/lexfrei/midgard/internal/fault"
)

// OpenPort appends an ingress rule for port on the tenant's default
// security group. Rules are only ever appended by this core; a duplicate
// reported by the provider surfaces as a benign conflict.
func (e *Engine) OpenPort(ctx context.Context, requesterID string, port int, direction string) error {
	if port < 1 || port > 65535 {
		return fault.Newf(fault.KindValidation, "invalid port %d", port)
	}

	if direction == "" {
		direction = e.settings.Network.RuleDirection
	}

	cred, err := e.requireTenant(ctx, requesterID)
	if err != nil {
		return err
	}

	groupID, err := e.defaultSecurityGroup(ctx, cred.ProjectName)
	if err != nil {
		return err
	}

	return e.cloud.CreateSecurityGroupRule(ctx, SecurityRuleSpec{
		GroupID:        groupID,
		Direction:      direction,
		Protocol:       e.settings.Network.RuleProtocol,
		PortMin:        port,
		PortMax:        port,
		RemoteIPPrefix: e.settings.Network.RemoteIPPrefix,
	})
}

// defaultSecurityGroup resolves the project's default security group ID.
func (e *Engine) defaultSecurityGroup(ctx context.Context, projectName string) (string, error) {
	project, err := e.cloud.FindProject(ctx, projectName)
	if err != nil {
		return "", err
	}

	if project == nil {
		return "", fault.Newf(fault.KindPreconditionFailed, "project %s not found", projectName)
	}

	groupID, err := e.cloud.FindSecurityGroup(ctx, e.settings.Network.SecurityGroup, project.ID)
	if err != nil {
		return "", err
	}

	if groupID == "" {
		return "", fault.Newf(fault.KindPreconditionFailed,
			"security group %s not found for project %s", e.settings.Network.SecurityGroup, projectName)
	}

	return groupID, nil
}
