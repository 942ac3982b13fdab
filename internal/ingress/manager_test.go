package ingress

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/midgard/internal/fault"
)

// fakeRemote is an in-memory RemoteTable that records call order.
type fakeRemote struct {
	mu    sync.Mutex
	table Table
	dns   []string
	calls []string

	getErr error
	putErr error
	dnsErr error
}

func (f *fakeRemote) GetIngressTable(_ context.Context) (Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "get")

	if f.getErr != nil {
		return Table{}, f.getErr
	}

	return f.table, nil
}

func (f *fakeRemote) PutIngressTable(_ context.Context, table Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "put")

	if f.putErr != nil {
		return f.putErr
	}

	f.table = table

	return nil
}

func (f *fakeRemote) CreateDNSRecord(_ context.Context, hostname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "dns")

	if f.dnsErr != nil {
		return f.dnsErr
	}

	f.dns = append(f.dns, hostname)

	return nil
}

func TestPublish(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{
		table: NewTable([]Rule{
			{Hostname: "old.example.com", Service: "http://10.0.0.5:80"},
			{Service: CatchAllService},
		}),
	}

	manager := NewManager(remote, "example.com", nil)

	hostname, err := manager.Publish(t.Context(), "ssh://10.0.0.7:22", "42-ssh", nil)
	require.NoError(t, err)
	assert.Equal(t, "42-ssh.example.com", hostname)

	rules := remote.table.Rules()
	require.Len(t, rules, 3)
	assert.Equal(t, "42-ssh.example.com", rules[0].Hostname)
	assert.Equal(t, "old.example.com", rules[1].Hostname)
	assert.True(t, IsCatchAll(rules[2]))

	// DNS record is created after the table push.
	assert.Equal(t, []string{"get", "put", "dns"}, remote.calls)
	assert.Equal(t, []string{"42-ssh.example.com"}, remote.dns)
}

func TestPublishConflictLeavesRemoteUntouched(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{
		table: NewTable([]Rule{
			{Hostname: "api.example.com", Service: "http://10.0.0.5:80"},
		}),
	}

	manager := NewManager(remote, "example.com", nil)

	_, err := manager.Publish(t.Context(), "http://10.0.0.9:80", "api", nil)
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindConflict))

	// No push, no DNS record.
	assert.Equal(t, []string{"get"}, remote.calls)
	assert.Empty(t, remote.dns)
}

func TestPublishRemoteFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		setup  func(*fakeRemote)
		nowant []string
	}{
		{
			name:   "fetch failure",
			setup:  func(f *fakeRemote) { f.getErr = errors.New("api down") },
			nowant: []string{"put", "dns"},
		},
		{
			name:   "push failure",
			setup:  func(f *fakeRemote) { f.putErr = errors.New("api down") },
			nowant: []string{"dns"},
		},
		{
			name:  "dns failure",
			setup: func(f *fakeRemote) { f.dnsErr = errors.New("api down") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			remote := &fakeRemote{}
			tt.setup(remote)

			manager := NewManager(remote, "example.com", nil)

			_, err := manager.Publish(t.Context(), "http://10.0.0.5:80", "api", nil)
			require.Error(t, err)
			assert.True(t, fault.IsKind(err, fault.KindRemoteUnavailable))

			for _, call := range tt.nowant {
				assert.NotContains(t, remote.calls, call)
			}
		})
	}
}

func TestPublishSerializesWriters(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{}
	manager := NewManager(remote, "example.com", nil)

	const writers = 8

	var wg sync.WaitGroup

	for i := range writers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := manager.Publish(t.Context(), "http://10.0.0.5:80", hostnameFor(i), nil)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	// Every writer's rule survived: no lost update.
	rules := remote.table.Rules()
	assert.Len(t, rules, writers+1)
	assert.True(t, IsCatchAll(rules[len(rules)-1]))
}

func hostnameFor(i int) string {
	return string(rune('a'+i)) + "-svc"
}

func TestPushTablePinsCatchAll(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{}
	manager := NewManager(remote, "example.com", nil)

	err := manager.PushTable(t.Context(), NewTable([]Rule{
		{Service: CatchAllService},
		{Hostname: "api.example.com", Service: "http://10.0.0.5:80"},
	}))
	require.NoError(t, err)

	rules := remote.table.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "api.example.com", rules[0].Hostname)
	assert.True(t, IsCatchAll(rules[1]))
}

func TestFetchTable(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{
		table: NewTable([]Rule{{Service: CatchAllService}}),
	}

	manager := NewManager(remote, "example.com", nil)

	table, err := manager.FetchTable(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}
