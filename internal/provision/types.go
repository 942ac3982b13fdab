package provision

import (
	"context"
	"time"

	"github.com/lexfrei/midgard/internal/fault"
	"github.com/lexfrei/midgard/internal/ingress"
)

// TenantCredential is the cached credential record for one requester.
// Created on first successful reconciliation, updated when remote state is
// adopted, never deleted by this core.
type TenantCredential struct {
	RequesterID string
	Secret      string
	ProjectName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ErrCredentialNotFound is returned by CredentialStore.Get on a cache miss.
var ErrCredentialNotFound = fault.New(fault.KindNotFound, "tenant credential not found")

// CredentialStore is the write-through credential cache consumed by the
// engine. Get returns ErrCredentialNotFound on a miss; Put upserts.
type CredentialStore interface {
	Get(ctx context.Context, requesterID string) (*TenantCredential, error)
	Put(ctx context.Context, cred *TenantCredential) error
}

// Project is a control-plane project (identity scope for a tenant).
type Project struct {
	ID   string
	Name string
}

// User is a control-plane user bound to a project.
type User struct {
	ID               string
	Name             string
	DefaultProjectID string
}

// NetworkStack is the per-tenant router/network/subnet triple. Created
// together, never individually inspected afterward.
type NetworkStack struct {
	RouterID  string
	NetworkID string
	SubnetID  string
}

// Network is a control-plane network looked up by name.
type Network struct {
	ID   string
	Name string
}

// Keypair is a compute keypair. At most one exists under the fixed name.
type Keypair struct {
	Name        string
	PublicKey   string
	Fingerprint string
}

// Server is a compute instance owned by a tenant.
type Server struct {
	ID         string
	Name       string
	Status     string
	FloatingIP string
}

// Flavor is a compute flavor available for server creation.
type Flavor struct {
	ID    string
	Name  string
	VCPUs int
	RAM   int
	Disk  int
}

// Image is a bootable image available for server creation.
type Image struct {
	ID   string
	Name string
}

// RouterSpec describes a tenant NAT router with its external gateway.
type RouterSpec struct {
	Name              string
	ProjectID         string
	ExternalNetworkID string
}

// SubnetSpec describes a tenant subnet. The values are configuration
// constants, not caller input.
type SubnetSpec struct {
	Name           string
	NetworkID      string
	ProjectID      string
	CIDR           string
	GatewayIP      string
	DNSNameservers []string
	IPVersion      int
}

// SecurityRuleSpec describes a single security group rule to append.
type SecurityRuleSpec struct {
	GroupID        string
	Direction      string
	Protocol       string
	PortMin        int
	PortMax        int
	RemoteIPPrefix string
}

// ServerSpec describes a server to create. CreateServer blocks until the
// server reaches ACTIVE or the context expires.
type ServerSpec struct {
	Name          string
	FlavorID      string
	ImageID       string
	NetworkID     string
	KeypairName   string
	SecurityGroup string
}

// ControlPlane is the remote identity/network/compute provider consumed by
// the engine. Find operations return (nil, nil) when the resource is absent;
// all other failures carry a fault kind.
//
//nolint:interfacebloat // mirrors the full provider surface the engine drives
type ControlPlane interface {
	FindProject(ctx context.Context, name string) (*Project, error)
	CreateProject(ctx context.Context, name string) (*Project, error)

	FindUser(ctx context.Context, name string) (*User, error)
	CreateUser(ctx context.Context, name, password, projectID string) (*User, error)
	UpdateUserPassword(ctx context.Context, userID, password string) error
	AssignRole(ctx context.Context, userID, projectID, roleName string) error

	FindNetwork(ctx context.Context, name string) (*Network, error)
	CreateRouter(ctx context.Context, spec RouterSpec) (routerID string, err error)
	CreateNetwork(ctx context.Context, name, projectID string) (networkID string, err error)
	CreateSubnet(ctx context.Context, spec SubnetSpec) (subnetID string, err error)
	AttachRouterInterface(ctx context.Context, routerID, subnetID string) error

	FindSecurityGroup(ctx context.Context, name, projectID string) (groupID string, err error)
	CreateSecurityGroupRule(ctx context.Context, spec SecurityRuleSpec) error

	FindKeypair(ctx context.Context, name string) (*Keypair, error)
	CreateKeypair(ctx context.Context, name, publicKey string) error
	DeleteKeypair(ctx context.Context, name string) error

	FindServer(ctx context.Context, name string) (*Server, error)
	CreateServer(ctx context.Context, spec ServerSpec) (*Server, error)

	ListFlavors(ctx context.Context) ([]Flavor, error)
	ListImages(ctx context.Context) ([]Image, error)
}

// EndpointPublisher publishes a service endpoint through the edge router:
// one serialized fetch→insert→push cycle plus the CNAME record. Returns the
// normalized hostname that was published.
type EndpointPublisher interface {
	Publish(ctx context.Context, service, hostname string, origin *ingress.OriginRequest) (string, error)
}

// SecretSource produces random credential strings.
type SecretSource interface {
	Generate() (string, error)
}
