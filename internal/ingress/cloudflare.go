package ingress

import (
	"context"
	"time"

	"github.com/cloudflare/cloudflare-go/v6"
	"github.com/cloudflare/cloudflare-go/v6/dns"
	"github.com/cloudflare/cloudflare-go/v6/option"
	"github.com/cloudflare/cloudflare-go/v6/zero_trust"
	"github.com/cockroachdb/errors"

	"github.com/lexfrei/midgard/internal/metrics"
)

// CloudflareClient implements RemoteTable against the Cloudflare API: the
// tunnel's hosted ingress configuration and the zone's DNS records.
type CloudflareClient struct {
	api       *cloudflare.Client
	accountID string
	tunnelID  string
	zoneID    string

	// tunnelTarget is the canonical endpoint CNAMEs point at,
	// <tunnelID>.cfargotunnel.com.
	tunnelTarget string

	metrics metrics.Collector
}

// CloudflareOptions configures a CloudflareClient.
type CloudflareOptions struct {
	APIToken  string
	AccountID string
	TunnelID  string
	ZoneID    string
	Metrics   metrics.Collector
}

// NewCloudflareClient creates a client for the given account, tunnel and zone.
func NewCloudflareClient(opts CloudflareOptions) *CloudflareClient {
	collector := opts.Metrics
	if collector == nil {
		collector = metrics.NewNoopCollector()
	}

	return &CloudflareClient{
		api:          cloudflare.NewClient(option.WithAPIToken(opts.APIToken)),
		accountID:    opts.AccountID,
		tunnelID:     opts.TunnelID,
		zoneID:       opts.ZoneID,
		tunnelTarget: opts.TunnelID + ".cfargotunnel.com",
		metrics:      collector,
	}
}

// GetIngressTable fetches the tunnel's current ingress configuration.
func (c *CloudflareClient) GetIngressTable(ctx context.Context) (Table, error) {
	startTime := time.Now()

	current, err := c.api.ZeroTrust.Tunnels.Cloudflared.Configurations.Get(
		ctx,
		c.tunnelID,
		zero_trust.TunnelCloudflaredConfigurationGetParams{
			AccountID: cloudflare.String(c.accountID),
		},
	)
	if err != nil {
		c.metrics.RecordEdgeAPICall(ctx, "get_config", "error", time.Since(startTime))
		c.metrics.RecordEdgeAPIError(ctx, "get_config", metrics.ClassifyCloudflareError(err))

		return Table{}, errors.Wrap(err, "failed to get tunnel configuration")
	}

	c.metrics.RecordEdgeAPICall(ctx, "get_config", "success", time.Since(startTime))

	rules := make([]Rule, 0, len(current.Config.Ingress))
	for i := range current.Config.Ingress {
		rules = append(rules, ruleFromGet(&current.Config.Ingress[i]))
	}

	return NewTable(rules), nil
}

// PutIngressTable replaces the tunnel's ingress configuration with table.
func (c *CloudflareClient) PutIngressTable(ctx context.Context, table Table) error {
	rules := table.Rules()

	params := make([]zero_trust.TunnelCloudflaredConfigurationUpdateParamsConfigIngress, 0, len(rules))
	for i := range rules {
		params = append(params, ruleToUpdate(&rules[i]))
	}

	startTime := time.Now()

	_, err := c.api.ZeroTrust.Tunnels.Cloudflared.Configurations.Update(
		ctx,
		c.tunnelID,
		zero_trust.TunnelCloudflaredConfigurationUpdateParams{
			AccountID: cloudflare.String(c.accountID),
			Config: cloudflare.F(zero_trust.TunnelCloudflaredConfigurationUpdateParamsConfig{
				Ingress: cloudflare.F(params),
			}),
		},
	)
	if err != nil {
		c.metrics.RecordEdgeAPICall(ctx, "update_config", "error", time.Since(startTime))
		c.metrics.RecordEdgeAPIError(ctx, "update_config", metrics.ClassifyCloudflareError(err))

		return errors.Wrap(err, "failed to update tunnel configuration")
	}

	c.metrics.RecordEdgeAPICall(ctx, "update_config", "success", time.Since(startTime))

	return nil
}

// CreateDNSRecord creates a proxied CNAME from hostname to the tunnel's
// canonical endpoint. Pre-existence is not checked here; idempotency is the
// provider's responsibility.
func (c *CloudflareClient) CreateDNSRecord(ctx context.Context, hostname string) error {
	startTime := time.Now()

	_, err := c.api.DNS.Records.New(ctx, dns.RecordNewParams{
		ZoneID: cloudflare.F(c.zoneID),
		Body: dns.CNAMERecordParam{
			Type:    cloudflare.F(dns.CNAMERecordTypeCNAME),
			Name:    cloudflare.F(hostname),
			Content: cloudflare.F(c.tunnelTarget),
			TTL:     cloudflare.F(dns.TTL1),
			Proxied: cloudflare.F(true),
		},
	})
	if err != nil {
		c.metrics.RecordEdgeAPICall(ctx, "create_dns_record", "error", time.Since(startTime))
		c.metrics.RecordEdgeAPIError(ctx, "create_dns_record", metrics.ClassifyCloudflareError(err))

		return errors.Wrapf(err, "failed to create dns record for %s", hostname)
	}

	c.metrics.RecordEdgeAPICall(ctx, "create_dns_record", "success", time.Since(startTime))

	return nil
}

func ruleFromGet(r *zero_trust.TunnelCloudflaredConfigurationGetResponseConfigIngress) Rule {
	rule := Rule{
		Hostname: r.Hostname,
		Path:     r.Path,
		Service:  r.Service,
	}

	if r.OriginRequest.NoTLSVerify || r.OriginRequest.HTTPHostHeader != "" {
		rule.OriginRequest = &OriginRequest{
			NoTLSVerify:    r.OriginRequest.NoTLSVerify,
			HTTPHostHeader: r.OriginRequest.HTTPHostHeader,
		}
	}

	return rule
}

func ruleToUpdate(r *Rule) zero_trust.TunnelCloudflaredConfigurationUpdateParamsConfigIngress {
	result := zero_trust.TunnelCloudflaredConfigurationUpdateParamsConfigIngress{
		Service: cloudflare.F(r.Service),
	}

	if r.Hostname != "" {
		result.Hostname = cloudflare.F(r.Hostname)
	}

	if r.Path != "" {
		result.Path = cloudflare.F(r.Path)
	}

	if r.OriginRequest != nil {
		origin := zero_trust.TunnelCloudflaredConfigurationUpdateParamsConfigIngressOriginRequest{}

		if r.OriginRequest.NoTLSVerify {
			origin.NoTLSVerify = cloudflare.F(true)
		}

		if r.OriginRequest.HTTPHostHeader != "" {
			origin.HTTPHostHeader = cloudflare.F(r.OriginRequest.HTTPHostHeader)
		}

		result.OriginRequest = cloudflare.F(origin)
	}

	return result
}

var _ RemoteTable = (*CloudflareClient)(nil)
