package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/lexfrei/midgard/internal/config"
	"github.com/lexfrei/midgard/internal/fault"
	"github.com/lexfrei/midgard/internal/metrics"
)

// Reconciliation outcomes, used as metrics labels.
const (
	OutcomeCached      = "cached"
	OutcomeReconciled  = "reconciled"
	OutcomeProvisioned = "provisioned"
	OutcomeError       = "error"
)

// Engine orchestrates the credential cache, the control plane and the edge
// router to resolve requesters into provisioned tenants.
type Engine struct {
	store    CredentialStore
	cloud    ControlPlane
	edge     EndpointPublisher
	secrets  SecretSource
	settings *config.Settings
	metrics  metrics.Collector

	locks *keyedMutex
}

// NewEngine wires an Engine from its collaborators.
func NewEngine(
	store CredentialStore,
	controlPlane ControlPlane,
	edge EndpointPublisher,
	secrets SecretSource,
	settings *config.Settings,
	collector metrics.Collector,
) *Engine {
	if collector == nil {
		collector = metrics.NewNoopCollector()
	}

	return &Engine{
		store:    store,
		cloud:    controlPlane,
		edge:     edge,
		secrets:  secrets,
		settings: settings,
		metrics:  collector,
		locks:    newKeyedMutex(),
	}
}

// ProjectName returns the canonical project name for a requester.
func (e *Engine) ProjectName(requesterID string) string {
	return fmt.Sprintf("%s_%s", e.settings.ProjectPrefix, requesterID)
}

// ReconcileTenant resolves requesterID into a tenant credential, creating
// remote state only when neither the cache nor the control plane knows the
// requester.
func (e *Engine) ReconcileTenant(ctx context.Context, requesterID string) (*TenantCredential, error) {
	if requesterID == "" {
		return nil, fault.New(fault.KindValidation, "requester id must not be empty")
	}

	startTime := time.Now()

	cred, outcome, err := e.reconcile(ctx, requesterID)
	if err != nil {
		outcome = OutcomeError
	}

	e.metrics.RecordReconcile(ctx, outcome, time.Since(startTime))

	return cred, err
}

func (e *Engine) reconcile(ctx context.Context, requesterID string) (*TenantCredential, string, error) {
	// Single writer per requester: two concurrent calls that both miss the
	// cache must not both provision.
	unlock := e.locks.lock(requesterID)
	defer unlock()

	logger := slog.Default().With(
		"component", "reconcile-engine",
		"requester", requesterID,
		"operation", uuid.NewString(),
	)

	cached, err := e.store.Get(ctx, requesterID)
	if err == nil {
		logger.Debug("cache hit, trusting stored credential")

		return cached, OutcomeCached, nil
	}

	if !errors.Is(err, ErrCredentialNotFound) {
		return nil, "", errors.Wrap(err, "failed to read credential cache")
	}

	remote, err := e.cloud.FindUser(ctx, requesterID)
	if err != nil {
		return nil, "", err
	}

	if remote != nil {
		cred, err := e.adoptRemote(ctx, requesterID, remote)
		if err != nil {
			return nil, "", err
		}

		logger.Info("adopted pre-existing remote tenant", "project", cred.ProjectName)

		return cred, OutcomeReconciled, nil
	}

	provisionCtx := ctx
	if e.settings.ProvisionTimeout > 0 {
		var cancel context.CancelFunc

		provisionCtx, cancel = context.WithTimeout(ctx, e.settings.ProvisionTimeout)
		defer cancel()
	}

	cred, err := e.provisionTenant(provisionCtx, requesterID)
	if err != nil {
		return nil, "", err
	}

	logger.Info("provisioned new tenant", "project", cred.ProjectName)

	return cred, OutcomeProvisioned, nil
}

// adoptRemote handles the cache-miss, remote-exists state: the remote user
// is kept, its credential rotated, and the result written through to the
// cache. No project or network is ever created on this path.
func (e *Engine) adoptRemote(ctx context.Context, requesterID string, remote *User) (*TenantCredential, error) {
	newSecret, err := e.secrets.Generate()
	if err != nil {
		return nil, err
	}

	err = e.cloud.UpdateUserPassword(ctx, remote.ID, newSecret)
	if err != nil {
		return nil, err
	}

	project, err := e.cloud.FindProject(ctx, e.ProjectName(requesterID))
	if err != nil {
		return nil, err
	}

	if project == nil {
		return nil, fault.Newf(fault.KindPreconditionFailed,
			"remote user %s exists but project %s does not", requesterID, e.ProjectName(requesterID))
	}

	cred := &TenantCredential{
		RequesterID: requesterID,
		Secret:      newSecret,
		ProjectName: project.Name,
	}

	err = e.store.Put(ctx, cred)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write credential cache")
	}

	return cred, nil
}

// requireTenant returns the cached credential for requesterID, failing with
// a precondition fault when the requester was never reconciled.
func (e *Engine) requireTenant(ctx context.Context, requesterID string) (*TenantCredential, error) {
	cred, err := e.store.Get(ctx, requesterID)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return nil, fault.Newf(fault.KindPreconditionFailed,
				"requester %s is not registered", requesterID)
		}

		return nil, errors.Wrap(err, "failed to read credential cache")
	}

	return cred, nil
}
