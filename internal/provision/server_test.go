package provision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/midgard/internal/fault"
)

// registeredEnv returns an env whose requester "42" already has a cached
// credential and a matching remote project.
func registeredEnv() *testEnv {
	env := newTestEnv()
	env.store.creds["42"] = &TenantCredential{
		RequesterID: "42",
		Secret:      "cached-secret",
		ProjectName: "guild_42",
	}
	env.cloud.projects["guild_42"] = &Project{ID: "project-42", Name: "guild_42"}
	env.cloud.secGroups["default/project-42"] = "secgroup-42"

	return env
}

func TestRotateKeypairCreatesWhenAbsent(t *testing.T) {
	t.Parallel()

	env := registeredEnv()

	err := env.engine.RotateKeypair(t.Context(), "42", "ssh-ed25519 AAAA first")
	require.NoError(t, err)

	assert.Zero(t, env.cloud.callCount("DeleteKeypair"))
	assert.Equal(t, 1, env.cloud.callCount("CreateKeypair"))
	assert.Equal(t, "ssh-ed25519 AAAA first", env.cloud.keypairs["midgard-keypair"].PublicKey)
}

func TestRotateKeypairDeletesBeforeCreate(t *testing.T) {
	t.Parallel()

	env := registeredEnv()
	require.NoError(t, env.engine.RotateKeypair(t.Context(), "42", "ssh-ed25519 AAAA first"))

	err := env.engine.RotateKeypair(t.Context(), "42", "ssh-ed25519 BBBB second")
	require.NoError(t, err)

	// Delete strictly precedes the second create.
	assert.Equal(t, []string{
		"FindKeypair", "CreateKeypair",
		"FindKeypair", "DeleteKeypair", "CreateKeypair",
	}, env.cloud.calls)

	assert.Equal(t, "ssh-ed25519 BBBB second", env.cloud.keypairs["midgard-keypair"].PublicKey)
}

func TestRotateKeypairRequiresRegistration(t *testing.T) {
	t.Parallel()

	env := newTestEnv()

	err := env.engine.RotateKeypair(t.Context(), "42", "ssh-ed25519 AAAA key")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindPreconditionFailed))
	assert.Empty(t, env.cloud.calls)
}

func TestOpenPort(t *testing.T) {
	t.Parallel()

	env := registeredEnv()

	err := env.engine.OpenPort(t.Context(), "42", 8080, "")
	require.NoError(t, err)

	require.Len(t, env.cloud.rules, 1)
	rule := env.cloud.rules[0]
	assert.Equal(t, "secgroup-42", rule.GroupID)
	assert.Equal(t, "ingress", rule.Direction)
	assert.Equal(t, "tcp", rule.Protocol)
	assert.Equal(t, 8080, rule.PortMin)
	assert.Equal(t, 8080, rule.PortMax)
	assert.Equal(t, "0.0.0.0/0", rule.RemoteIPPrefix)
}

func TestOpenPortValidatesPort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		port int
	}{
		{name: "zero", port: 0},
		{name: "negative", port: -1},
		{name: "too large", port: 65536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := registeredEnv()

			err := env.engine.OpenPort(t.Context(), "42", tt.port, "")
			require.Error(t, err)
			assert.True(t, fault.IsKind(err, fault.KindValidation))
			assert.Empty(t, env.cloud.calls)
		})
	}
}

func TestOpenPortDuplicateSurfacesConflict(t *testing.T) {
	t.Parallel()

	env := registeredEnv()
	env.cloud.errOn["CreateSecurityGroupRule"] = fault.Newf(fault.KindConflict,
		"security group rule for port 8080-8080 already exists")

	err := env.engine.OpenPort(t.Context(), "42", 8080, "")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindConflict))
}

func TestEnsureServerCreates(t *testing.T) {
	t.Parallel()

	env := registeredEnv()
	env.cloud.keypairs["midgard-keypair"] = &Keypair{Name: "midgard-keypair"}
	env.cloud.networks["midgard-net"] = &Network{ID: "net-42", Name: "midgard-net"}
	env.cloud.flavors = []Flavor{{ID: "flavor-1", Name: "m1.small"}}
	env.cloud.images = []Image{{ID: "image-1", Name: "debian-12"}}

	status, err := env.engine.EnsureServer(t.Context(), "42", "m1.small", "debian-12")
	require.NoError(t, err)

	assert.True(t, status.Created)
	assert.Equal(t, "midgard-server", status.Name)
	assert.Equal(t, "ACTIVE", status.Status)
	assert.Equal(t, "203.0.113.10", status.FloatingIP)
	assert.Equal(t, "42-ssh.example.com", status.Hostname)

	// The SSH endpoint was published for the server's floating address.
	require.Len(t, env.edge.published, 1)
	assert.Equal(t, "ssh://203.0.113.10:22", env.edge.published[0].service)
	assert.Equal(t, "42-ssh", env.edge.published[0].hostname)
}

func TestEnsureServerExistingIsNotMutated(t *testing.T) {
	t.Parallel()

	env := registeredEnv()
	env.cloud.servers["midgard-server"] = &Server{
		ID:         "server-1",
		Name:       "midgard-server",
		Status:     "ACTIVE",
		FloatingIP: "203.0.113.10",
	}

	status, err := env.engine.EnsureServer(t.Context(), "42", "m1.small", "debian-12")
	require.NoError(t, err)

	assert.False(t, status.Created)
	assert.Equal(t, "ACTIVE", status.Status)
	assert.Zero(t, env.cloud.callCount("CreateServer"))
	assert.Empty(t, env.edge.published)
}

func TestEnsureServerReportsNonActive(t *testing.T) {
	t.Parallel()

	env := registeredEnv()
	env.cloud.servers["midgard-server"] = &Server{
		ID:     "server-1",
		Name:   "midgard-server",
		Status: "ERROR",
	}

	status, err := env.engine.EnsureServer(t.Context(), "42", "m1.small", "debian-12")
	require.NoError(t, err)

	assert.False(t, status.Created)
	assert.Equal(t, "ERROR", status.Status)
	assert.Zero(t, env.cloud.callCount("CreateServer"))
}

func TestEnsureServerRequiresKeypair(t *testing.T) {
	t.Parallel()

	env := registeredEnv()

	_, err := env.engine.EnsureServer(t.Context(), "42", "m1.small", "debian-12")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindPreconditionFailed))
	assert.Zero(t, env.cloud.callCount("CreateServer"))
}

func TestEnsureServerUnknownFlavor(t *testing.T) {
	t.Parallel()

	env := registeredEnv()
	env.cloud.keypairs["midgard-keypair"] = &Keypair{Name: "midgard-keypair"}
	env.cloud.flavors = []Flavor{{ID: "flavor-1", Name: "m1.small"}}
	env.cloud.images = []Image{{ID: "image-1", Name: "debian-12"}}

	_, err := env.engine.EnsureServer(t.Context(), "42", "m9.huge", "debian-12")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindValidation))
}

func TestEnsureServerResolvesByID(t *testing.T) {
	t.Parallel()

	env := registeredEnv()
	env.cloud.keypairs["midgard-keypair"] = &Keypair{Name: "midgard-keypair"}
	env.cloud.networks["midgard-net"] = &Network{ID: "net-42", Name: "midgard-net"}
	env.cloud.flavors = []Flavor{{ID: "flavor-1", Name: "m1.small"}}
	env.cloud.images = []Image{{ID: "image-1", Name: "debian-12"}}

	status, err := env.engine.EnsureServer(t.Context(), "42", "flavor-1", "image-1")
	require.NoError(t, err)
	assert.True(t, status.Created)
}

func TestForwardPort(t *testing.T) {
	t.Parallel()

	env := registeredEnv()
	env.cloud.servers["midgard-server"] = &Server{
		ID:         "server-1",
		Name:       "midgard-server",
		Status:     "ACTIVE",
		FloatingIP: "203.0.113.10",
	}

	forward, err := env.engine.ForwardPort(t.Context(), "42", 8080, "")
	require.NoError(t, err)

	assert.Equal(t, "42-http-8080.example.com", forward.Hostname)
	assert.Equal(t, "http://203.0.113.10:8080", forward.Service)
	assert.Equal(t, "http", forward.Protocol)

	// The port was opened before publishing.
	require.Len(t, env.cloud.rules, 1)
	assert.Equal(t, 8080, env.cloud.rules[0].PortMin)
}

func TestForwardPortRequiresServer(t *testing.T) {
	t.Parallel()

	env := registeredEnv()

	_, err := env.engine.ForwardPort(t.Context(), "42", 8080, "")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindPreconditionFailed))
	assert.Empty(t, env.cloud.rules)
}

func TestPublishEndpoint(t *testing.T) {
	t.Parallel()

	env := registeredEnv()
	env.cloud.servers["midgard-server"] = &Server{
		ID:         "server-1",
		Name:       "midgard-server",
		Status:     "ACTIVE",
		FloatingIP: "203.0.113.10",
	}

	hostname, err := env.engine.PublishEndpoint(t.Context(), "42", "http://203.0.113.10:3000", "grafana", nil)
	require.NoError(t, err)
	assert.Equal(t, "grafana.example.com", hostname)
}

func TestServerStatus(t *testing.T) {
	t.Parallel()

	env := registeredEnv()
	env.cloud.servers["midgard-server"] = &Server{
		ID:         "server-1",
		Name:       "midgard-server",
		Status:     "SHUTOFF",
		FloatingIP: "203.0.113.10",
	}

	status, err := env.engine.ServerStatus(t.Context(), "42")
	require.NoError(t, err)
	assert.Equal(t, "SHUTOFF", status.Status)
}

func TestServerStatusAbsent(t *testing.T) {
	t.Parallel()

	env := registeredEnv()

	_, err := env.engine.ServerStatus(t.Context(), "42")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}
