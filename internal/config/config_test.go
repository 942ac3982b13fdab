package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.Set(KeyAuthURL, "https://keystone.example.com:5000/v3")
	v.Set(KeyCFAPIToken, "token")
	v.Set(KeyCFTunnelID, "tunnel-1")
	v.Set(KeyCFZoneID, "zone-1")
	v.Set(KeyDomain, "example.com")

	return v
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	s, err := Load(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, "midgard", s.ProjectPrefix)
	assert.Equal(t, "sqlite:./midgard.db", s.DBURL)
	assert.Equal(t, 5*time.Minute, s.ProvisionTimeout)
	assert.Equal(t, 24*time.Hour, s.CacheTTL)

	assert.Equal(t, "public1", s.Network.ExternalNetwork)
	assert.Equal(t, "midgard-NAT", s.Network.RouterName)
	assert.Equal(t, "midgard-net", s.Network.NetworkName)
	assert.Equal(t, "midgard-subnet", s.Network.SubnetName)
	assert.Equal(t, "10.0.0.0/24", s.Network.SubnetCIDR)
	assert.Equal(t, "10.0.0.1", s.Network.GatewayIP)
	assert.Equal(t, []string{"1.1.1.1", "1.0.0.1"}, s.Network.DNSNameservers)
	assert.Equal(t, 4, s.Network.IPVersion)
	assert.Equal(t, "member", s.Network.RoleName)
	assert.Equal(t, "default", s.Network.SecurityGroup)
	assert.Equal(t, "ingress", s.Network.RuleDirection)
	assert.Equal(t, "tcp", s.Network.RuleProtocol)
	assert.Equal(t, "0.0.0.0/0", s.Network.RemoteIPPrefix)

	assert.Equal(t, "midgard-keypair", s.Compute.KeypairName)
	assert.Equal(t, "ssh", s.Compute.KeypairType)
	assert.Equal(t, "midgard-server", s.Compute.ServerName)
}

func TestLoadRequiredFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		unset string
	}{
		{name: "auth url required", unset: KeyAuthURL},
		{name: "cf api token required", unset: KeyCFAPIToken},
		{name: "cf tunnel id required", unset: KeyCFTunnelID},
		{name: "cf zone id required", unset: KeyCFZoneID},
		{name: "domain required", unset: KeyDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := newTestViper()
			v.Set(tt.unset, "")

			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.unset)
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	v := newTestViper()
	v.Set(KeyProjectPrefix, "guild")
	v.Set(KeyExternalNetwork, "ext-net")
	v.Set(KeyProvisionTimeout, "90s")

	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "guild", s.ProjectPrefix)
	assert.Equal(t, "ext-net", s.Network.ExternalNetwork)
	assert.Equal(t, 90*time.Second, s.ProvisionTimeout)
}

func TestTunnelEndpoint(t *testing.T) {
	t.Parallel()

	s := &Settings{CFTunnelID: "abc-123"}
	assert.Equal(t, "abc-123.cfargotunnel.com", s.TunnelEndpoint())
}
