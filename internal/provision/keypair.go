package provision

import (
	"context"
	"log/slog"
)

// RotateKeypair replaces the tenant's fixed-name keypair with publicKey.
// Replace means delete-then-create, in that order, non-atomically: a crash
// between the two leaves no keypair rather than two. Exactly one keypair
// exists under the fixed name after a successful call.
func (e *Engine) RotateKeypair(ctx context.Context, requesterID, publicKey string) error {
	_, err := e.requireTenant(ctx, requesterID)
	if err != nil {
		return err
	}

	name := e.settings.Compute.KeypairName

	existing, err := e.cloud.FindKeypair(ctx, name)
	if err != nil {
		return err
	}

	if existing != nil {
		err = e.cloud.DeleteKeypair(ctx, name)
		if err != nil {
			return err
		}

		slog.Default().Info("replaced existing keypair",
			"component", "reconcile-engine",
			"requester", requesterID,
			"keypair", name,
		)
	}

	return e.cloud.CreateKeypair(ctx, name, publicKey)
}
