// Package config provides runtime configuration for the provisioner.
//
// Defaults own every provisioning constant (network CIDR, resource names,
// role names); flags and MIDGARD_-prefixed environment variables override
// them through viper.
package config

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Settings is the resolved runtime configuration.
type Settings struct {
	// OpenStack control plane credentials.
	AuthURL           string
	Region            string
	Username          string
	Password          string
	UserDomainName    string
	ProjectName       string
	ProjectDomainName string

	// Cloudflare edge routing credentials.
	CFAPIToken  string
	CFAccountID string
	CFTunnelID  string
	CFZoneID    string

	// Domain is the routing domain suffix appended to published hostnames.
	Domain string

	// DBURL selects the credential cache database, e.g. "sqlite:./midgard.db".
	DBURL string

	// ProjectPrefix prefixes provisioned project names: <prefix>_<requester>.
	ProjectPrefix string

	// ProvisionTimeout bounds the whole ABSENT-path provisioning sequence.
	ProvisionTimeout time.Duration

	// CacheTTL documents the accepted staleness window of the credential
	// cache. The cache is trusted without revalidation once populated; the
	// TTL exists so operators can reason about (and tests can exercise) the
	// divergence window.
	CacheTTL time.Duration

	Network NetworkDefaults
	Compute ComputeDefaults
}

// NetworkDefaults are the constants used when provisioning a tenant network
// stack and security rules.
type NetworkDefaults struct {
	ExternalNetwork string
	RouterName      string
	NetworkName     string
	SubnetName      string
	SubnetCIDR      string
	GatewayIP       string
	DNSNameservers  []string
	IPVersion       int

	SecurityGroup  string
	RuleDirection  string
	RuleProtocol   string
	RemoteIPPrefix string

	RoleName string
}

// ComputeDefaults are the fixed names used for per-tenant compute resources.
type ComputeDefaults struct {
	KeypairName string
	KeypairType string
	ServerName  string
}

// Keys for viper lookups. Flag names match these.
const (
	KeyAuthURL           = "os-auth-url"
	KeyRegion            = "os-region"
	KeyUsername          = "os-username"
	KeyPassword          = "os-password"
	KeyUserDomainName    = "os-user-domain"
	KeyProjectName       = "os-project-name"
	KeyProjectDomainName = "os-project-domain"

	KeyCFAPIToken  = "cf-api-token"
	KeyCFAccountID = "cf-account-id"
	KeyCFTunnelID  = "cf-tunnel-id"
	KeyCFZoneID    = "cf-zone-id"
	KeyDomain      = "domain"

	KeyDBURL            = "db-url"
	KeyProjectPrefix    = "project-prefix"
	KeyProvisionTimeout = "provision-timeout"
	KeyCacheTTL         = "cache-ttl"

	KeyExternalNetwork = "external-network"
	KeyRouterName      = "router-name"
	KeyNetworkName     = "network-name"
	KeySubnetName      = "subnet-name"
	KeySubnetCIDR      = "subnet-cidr"
	KeyGatewayIP       = "gateway-ip"
	KeyDNSNameservers  = "dns-nameservers"
	KeyRoleName        = "role-name"
	KeySecurityGroup   = "security-group"
	KeyKeypairName     = "keypair-name"
	KeyServerName      = "server-name"
)

// SetDefaults registers the default value for every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyUserDomainName, "Default")
	v.SetDefault(KeyProjectDomainName, "Default")

	v.SetDefault(KeyDBURL, "sqlite:./midgard.db")
	v.SetDefault(KeyProjectPrefix, "midgard")
	v.SetDefault(KeyProvisionTimeout, "5m")
	v.SetDefault(KeyCacheTTL, "24h")

	v.SetDefault(KeyExternalNetwork, "public1")
	v.SetDefault(KeyRouterName, "midgard-NAT")
	v.SetDefault(KeyNetworkName, "midgard-net")
	v.SetDefault(KeySubnetName, "midgard-subnet")
	v.SetDefault(KeySubnetCIDR, "10.0.0.0/24")
	v.SetDefault(KeyGatewayIP, "10.0.0.1")
	v.SetDefault(KeyDNSNameservers, []string{"1.1.1.1", "1.0.0.1"})
	v.SetDefault(KeyRoleName, "member")
	v.SetDefault(KeySecurityGroup, "default")
	v.SetDefault(KeyKeypairName, "midgard-keypair")
	v.SetDefault(KeyServerName, "midgard-server")
}

// Load resolves Settings from v and validates required credentials.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		AuthURL:           v.GetString(KeyAuthURL),
		Region:            v.GetString(KeyRegion),
		Username:          v.GetString(KeyUsername),
		Password:          v.GetString(KeyPassword),
		UserDomainName:    v.GetString(KeyUserDomainName),
		ProjectName:       v.GetString(KeyProjectName),
		ProjectDomainName: v.GetString(KeyProjectDomainName),

		CFAPIToken:  v.GetString(KeyCFAPIToken),
		CFAccountID: v.GetString(KeyCFAccountID),
		CFTunnelID:  v.GetString(KeyCFTunnelID),
		CFZoneID:    v.GetString(KeyCFZoneID),
		Domain:      v.GetString(KeyDomain),

		DBURL:            v.GetString(KeyDBURL),
		ProjectPrefix:    v.GetString(KeyProjectPrefix),
		ProvisionTimeout: v.GetDuration(KeyProvisionTimeout),
		CacheTTL:         v.GetDuration(KeyCacheTTL),

		Network: NetworkDefaults{
			ExternalNetwork: v.GetString(KeyExternalNetwork),
			RouterName:      v.GetString(KeyRouterName),
			NetworkName:     v.GetString(KeyNetworkName),
			SubnetName:      v.GetString(KeySubnetName),
			SubnetCIDR:      v.GetString(KeySubnetCIDR),
			GatewayIP:       v.GetString(KeyGatewayIP),
			DNSNameservers:  v.GetStringSlice(KeyDNSNameservers),
			IPVersion:       4,

			SecurityGroup:  v.GetString(KeySecurityGroup),
			RuleDirection:  "ingress",
			RuleProtocol:   "tcp",
			RemoteIPPrefix: "0.0.0.0/0",

			RoleName: v.GetString(KeyRoleName),
		},
		Compute: ComputeDefaults{
			KeypairName: v.GetString(KeyKeypairName),
			KeypairType: "ssh",
			ServerName:  v.GetString(KeyServerName),
		},
	}

	if s.AuthURL == "" {
		return nil, errors.New("os-auth-url is required (or MIDGARD_OS_AUTH_URL)")
	}

	if s.CFAPIToken == "" {
		return nil, errors.New("cf-api-token is required (or MIDGARD_CF_API_TOKEN)")
	}

	if s.CFTunnelID == "" {
		return nil, errors.New("cf-tunnel-id is required")
	}

	if s.CFZoneID == "" {
		return nil, errors.New("cf-zone-id is required")
	}

	if s.Domain == "" {
		return nil, errors.New("domain is required")
	}

	return s, nil
}

// TunnelEndpoint returns the canonical DNS target for the configured tunnel.
func (s *Settings) TunnelEndpoint() string {
	return s.CFTunnelID + ".cfargotunnel.com"
}
