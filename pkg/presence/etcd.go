package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Key-space constants. All Harmony keys live under /harmony/v1/ to avoid
// collisions with other etcd tenants.
const (
	keyPrefix = "/harmony/v1"
)

func sessionKey(userID uint64, sessionID string) string {
	return fmt.Sprintf("%s/sessions/%d/%s", keyPrefix, userID, sessionID)
}

func sessionPrefix(userID uint64) string {
	return fmt.Sprintf("%s/sessions/%d/", keyPrefix, userID)
}

func statusKey(userID uint64) string {
	return fmt.Sprintf("%s/status/%d", keyPrefix, userID)
}

// EtcdStore is an etcd-backed Store suitable for multi-node gateway
// deployments: every gateway replica observes the same session lists, so a
// user's device set and status stay consistent across nodes.
type EtcdStore struct {
	client *clientv3.Client
}

// NewEtcdStore dials the etcd cluster at endpoints. The caller must call
// Close when finished.
func NewEtcdStore(endpoints []string) (*EtcdStore, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("presence: etcd dial: %w", err)
	}
	return &EtcdStore{client: client}, nil
}

// Close releases the underlying etcd client connection.
func (e *EtcdStore) Close() error {
	return e.client.Close()
}

func (e *EtcdStore) InsertSession(ctx context.Context, userID uint64, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("presence: marshal session: %w", err)
	}
	if _, err := e.client.Put(ctx, sessionKey(userID, s.SessionID), string(data)); err != nil {
		return fmt.Errorf("presence: etcd put session: %w", err)
	}
	return nil
}

func (e *EtcdStore) RemoveSession(ctx context.Context, userID uint64, sessionID string) error {
	if _, err := e.client.Delete(ctx, sessionKey(userID, sessionID)); err != nil {
		return fmt.Errorf("presence: etcd delete session: %w", err)
	}
	return nil
}

// listSessions returns the user's sessions ordered oldest-first.
func (e *EtcdStore) listSessions(ctx context.Context, userID uint64) ([]Session, error) {
	resp, err := e.client.Get(ctx, sessionPrefix(userID), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("presence: etcd list sessions: %w", err)
	}
	out := make([]Session, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var s Session
		if err := json.Unmarshal(kv.Value, &s); err != nil {
			return nil, fmt.Errorf("presence: unmarshal %q: %w", string(kv.Key), err)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OnlineSince.Before(out[j].OnlineSince) })
	return out, nil
}

func (e *EtcdStore) FirstSession(ctx context.Context, userID uint64) (*Session, error) {
	sessions, err := e.listSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

func (e *EtcdStore) AnySession(ctx context.Context, userID uint64) (bool, error) {
	resp, err := e.client.Get(ctx, sessionPrefix(userID), clientv3.WithPrefix(), clientv3.WithCountOnly())
	if err != nil {
		return false, fmt.Errorf("presence: etcd count sessions: %w", err)
	}
	return resp.Count > 0, nil
}

func (e *EtcdStore) Devices(ctx context.Context, userID uint64) ([]string, error) {
	sessions, err := e.listSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, s := range sessions {
		if _, dup := seen[s.Device]; dup {
			continue
		}
		seen[s.Device] = struct{}{}
		out = append(out, s.Device)
	}
	return out, nil
}

func (e *EtcdStore) SetStatus(ctx context.Context, userID uint64, status Status) error {
	if status == StatusOffline {
		if _, err := e.client.Delete(ctx, statusKey(userID)); err != nil {
			return fmt.Errorf("presence: etcd delete status: %w", err)
		}
		return nil
	}
	if _, err := e.client.Put(ctx, statusKey(userID), string(status)); err != nil {
		return fmt.Errorf("presence: etcd put status: %w", err)
	}
	return nil
}

func (e *EtcdStore) GetStatus(ctx context.Context, userID uint64) (Status, error) {
	resp, err := e.client.Get(ctx, statusKey(userID))
	if err != nil {
		return StatusOffline, fmt.Errorf("presence: etcd get status: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return StatusOffline, nil
	}
	return Status(resp.Kvs[0].Value), nil
}

func (e *EtcdStore) Reset(ctx context.Context) error {
	if _, err := e.client.Delete(ctx, keyPrefix+"/", clientv3.WithPrefix()); err != nil {
		return fmt.Errorf("presence: etcd reset: %w", err)
	}
	return nil
}
