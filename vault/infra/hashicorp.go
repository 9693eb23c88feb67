package infra

import (
	"context"
	"path"
	"strings"
	"time"

	"keyfade/vault/domain"

	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
)

const (
	metaExpiresOn = "expires_on"
	metaEnabled   = "enabled"
	dataValue     = "value"
)

// HashiCorpConfig configura o client do HashiCorp Vault.
type HashiCorpConfig struct {
	Address string
	Token   string
	Timeout time.Duration
}

// NewHashiCorpClient cria um client autenticado por token estático.
func NewHashiCorpClient(cfg HashiCorpConfig) (*api.Client, error) {
	config := api.DefaultConfig()
	config.Address = cfg.Address
	if cfg.Timeout > 0 {
		config.Timeout = cfg.Timeout
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create vault client")
	}
	if cfg.Token == "" {
		return nil, errors.New("token cannot be empty")
	}
	client.SetToken(cfg.Token)
	return client, nil
}

// HashiCorpStore implementa domain.Store sobre o KV v2.
//
// Cada item vira {mount}/data/{prefix}/{name} com data {"value": ...}. A
// expiração fica em custom_metadata.expires_on (RFC3339) e, de forma nativa,
// em delete_version_after, que faz o próprio Vault descartar a versão vencida.
// custom_metadata.enabled = "false" desabilita o item.
type HashiCorpStore struct {
	client *api.Client
	mount  string
	prefix string
	now    func() time.Time
}

type HashiCorpOption func(*HashiCorpStore)

func WithHashiCorpMount(mount string) HashiCorpOption {
	return func(s *HashiCorpStore) {
		if m := strings.Trim(mount, "/"); m != "" {
			s.mount = m
		}
	}
}

func WithHashiCorpPrefix(prefix string) HashiCorpOption {
	return func(s *HashiCorpStore) { s.prefix = strings.Trim(prefix, "/") }
}

func WithHashiCorpClock(now func() time.Time) HashiCorpOption {
	return func(s *HashiCorpStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewHashiCorpStore(client *api.Client, opts ...HashiCorpOption) *HashiCorpStore {
	s := &HashiCorpStore{
		client: client,
		mount:  "secret",
		prefix: "keyfade",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.Store = (*HashiCorpStore)(nil)

func (s *HashiCorpStore) secretPath(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *HashiCorpStore) kv() *api.KVv2 { return s.client.KVv2(s.mount) }

func (s *HashiCorpStore) Put(ctx context.Context, name, value string, expiresOn time.Time) error {
	p := s.secretPath(name)
	if _, err := s.kv().Put(ctx, p, map[string]interface{}{dataValue: value}); err != nil {
		return errors.Wrapf(err, "hashicorp vault: put %s", name)
	}

	meta := api.KVMetadataPutInput{
		CustomMetadata: map[string]interface{}{metaEnabled: "true"},
	}
	if !expiresOn.IsZero() {
		meta.CustomMetadata[metaExpiresOn] = expiresOn.UTC().Format(time.RFC3339)
		if ttl := expiresOn.Sub(s.now()); ttl > time.Second {
			meta.DeleteVersionAfter = ttl.Round(time.Second)
		} else {
			meta.DeleteVersionAfter = time.Second
		}
	}
	if err := s.kv().PutMetadata(ctx, p, meta); err != nil {
		return errors.Wrapf(err, "hashicorp vault: put metadata %s", name)
	}
	return nil
}

func (s *HashiCorpStore) Get(ctx context.Context, name string) (domain.Secret, bool, error) {
	sec, err := s.kv().Get(ctx, s.secretPath(name))
	if errors.Is(err, api.ErrSecretNotFound) {
		return domain.Secret{}, false, nil
	}
	if err != nil {
		return domain.Secret{}, false, errors.Wrapf(err, "hashicorp vault: get %s", name)
	}
	if sec == nil || sec.Data == nil {
		return domain.Secret{}, false, nil
	}

	value, ok := sec.Data[dataValue].(string)
	if !ok {
		return domain.Secret{}, false, nil
	}
	if !metaBool(sec.CustomMetadata, metaEnabled, true) {
		return domain.Secret{}, false, nil
	}
	exp := metaTime(sec.CustomMetadata, metaExpiresOn)
	if exp != nil && !exp.After(s.now()) {
		return domain.Secret{}, false, nil
	}
	return domain.Secret{Name: name, Value: value, ExpiresOn: exp}, true, nil
}

// Delete remove o item com todas as versões (metadata incluída).
func (s *HashiCorpStore) Delete(ctx context.Context, name string) error {
	if err := s.kv().DeleteMetadata(ctx, s.secretPath(name)); err != nil {
		return errors.Wrapf(err, "hashicorp vault: delete %s", name)
	}
	return nil
}

// Walk lista {mount}/metadata/{prefix} e lê a metadata de cada item.
// Subpastas são ignoradas. Uma falha lendo a metadata de um item chega ao
// callback como Item.Err; só a falha da listagem em si interrompe o Walk.
func (s *HashiCorpStore) Walk(ctx context.Context, fn func(domain.Item) error) error {
	listPath := path.Join(s.mount, "metadata", s.prefix)
	list, err := s.client.Logical().ListWithContext(ctx, listPath)
	if err != nil {
		return errors.Wrap(err, "hashicorp vault: list")
	}
	if list == nil || list.Data == nil {
		return nil
	}
	raw, _ := list.Data["keys"].([]interface{})

	for _, k := range raw {
		name, ok := k.(string)
		if !ok || name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		meta, err := s.kv().GetMetadata(ctx, s.secretPath(name))
		if errors.Is(err, api.ErrSecretNotFound) {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrap(ctxErr, "hashicorp vault: walk")
		}
		item := domain.Item{Name: name, Enabled: true}
		if err != nil {
			item.Err = errors.Wrapf(err, "hashicorp vault: metadata %s", name)
		} else if meta != nil {
			item.Enabled = metaBool(meta.CustomMetadata, metaEnabled, true)
			item.ExpiresOn = metaTime(meta.CustomMetadata, metaExpiresOn)
		}
		if err := fn(item); err != nil {
			if errors.Is(err, domain.ErrStopWalk) {
				return nil
			}
			return err
		}
	}
	return nil
}

func metaString(meta map[string]interface{}, key string) string {
	if meta == nil {
		return ""
	}
	v, _ := meta[key].(string)
	return strings.TrimSpace(v)
}

func metaTime(meta map[string]interface{}, key string) *time.Time {
	v := metaString(meta, key)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}

func metaBool(meta map[string]interface{}, key string, def bool) bool {
	switch strings.ToLower(metaString(meta, key)) {
	case "true":
		return true
	case "false":
		return false
	default:
		return def
	}
}
