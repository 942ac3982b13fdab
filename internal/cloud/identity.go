package cloud

import (
	"context"
	"time"

	"github.com/gophercloud/gophercloud/v2/openstack/identity/v3/projects"
	"github.com/gophercloud/gophercloud/v2/openstack/identity/v3/roles"
	"github.com/gophercloud/gophercloud/v2/openstack/identity/v3/users"

	"github.com/lexfrei/midgard/internal/fault"
	"github.com/lexfrei/midgard/internal/provision"
)

// FindProject looks a project up by exact name. Absent projects return
// (nil, nil).
func (c *Client) FindProject(ctx context.Context, name string) (*provision.Project, error) {
	startTime := time.Now()

	pages, err := projects.List(c.identity, projects.ListOpts{Name: name}).AllPages(ctx)
	c.observe(ctx, "identity", "find_project", startTime, err)

	if err != nil {
		return nil, wrapRemote(err, "failed to list projects")
	}

	found, err := projects.ExtractProjects(pages)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindRemoteUnavailable, "failed to decode project listing")
	}

	if len(found) == 0 {
		return nil, nil
	}

	return &provision.Project{ID: found[0].ID, Name: found[0].Name}, nil
}

// CreateProject creates a new project.
func (c *Client) CreateProject(ctx context.Context, name string) (*provision.Project, error) {
	startTime := time.Now()

	project, err := projects.Create(ctx, c.identity, projects.CreateOpts{Name: name}).Extract()
	c.observe(ctx, "identity", "create_project", startTime, err)

	if err != nil {
		return nil, wrapRemote(err, "failed to create project")
	}

	return &provision.Project{ID: project.ID, Name: project.Name}, nil
}

// FindUser looks a user up by exact name. Absent users return (nil, nil).
func (c *Client) FindUser(ctx context.Context, name string) (*provision.User, error) {
	startTime := time.Now()

	pages, err := users.List(c.identity, users.ListOpts{Name: name}).AllPages(ctx)
	c.observe(ctx, "identity", "find_user", startTime, err)

	if err != nil {
		return nil, wrapRemote(err, "failed to list users")
	}

	found, err := users.ExtractUsers(pages)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindRemoteUnavailable, "failed to decode user listing")
	}

	if len(found) == 0 {
		return nil, nil
	}

	return &provision.User{
		ID:               found[0].ID,
		Name:             found[0].Name,
		DefaultProjectID: found[0].DefaultProjectID,
	}, nil
}

// CreateUser creates a user bound to projectID with the given password.
func (c *Client) CreateUser(ctx context.Context, name, password, projectID string) (*provision.User, error) {
	startTime := time.Now()

	user, err := users.Create(ctx, c.identity, users.CreateOpts{
		Name:             name,
		Password:         password,
		DefaultProjectID: projectID,
	}).Extract()
	c.observe(ctx, "identity", "create_user", startTime, err)

	if err != nil {
		return nil, wrapRemote(err, "failed to create user")
	}

	return &provision.User{
		ID:               user.ID,
		Name:             user.Name,
		DefaultProjectID: user.DefaultProjectID,
	}, nil
}

// UpdateUserPassword rotates the user's password.
func (c *Client) UpdateUserPassword(ctx context.Context, userID, password string) error {
	startTime := time.Now()

	_, err := users.Update(ctx, c.identity, userID, users.UpdateOpts{Password: password}).Extract()
	c.observe(ctx, "identity", "update_user", startTime, err)

	if err != nil {
		return wrapRemote(err, "failed to update user")
	}

	return nil
}

// AssignRole grants roleName to the user on the project.
func (c *Client) AssignRole(ctx context.Context, userID, projectID, roleName string) error {
	startTime := time.Now()

	pages, err := roles.List(c.identity, roles.ListOpts{Name: roleName}).AllPages(ctx)
	c.observe(ctx, "identity", "find_role", startTime, err)

	if err != nil {
		return wrapRemote(err, "failed to list roles")
	}

	found, err := roles.ExtractRoles(pages)
	if err != nil {
		return fault.Wrap(err, fault.KindRemoteUnavailable, "failed to decode role listing")
	}

	if len(found) == 0 {
		return fault.Newf(fault.KindNotFound, "role %s not found", roleName)
	}

	startTime = time.Now()

	err = roles.Assign(ctx, c.identity, found[0].ID, roles.AssignOpts{
		UserID:    userID,
		ProjectID: projectID,
	}).ExtractErr()
	c.observe(ctx, "identity", "assign_role", startTime, err)

	if err != nil {
		return wrapRemote(err, "failed to assign role")
	}

	return nil
}
