package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hashicorp/vault/api"
)

var (
	// ErrKeyNotFound is returned when a key source holds no key at its location.
	ErrKeyNotFound = errors.New("signing key not found")

	// ErrKeySourceUnavailable is returned when a remote key source cannot be reached.
	ErrKeySourceUnavailable = errors.New("key source unavailable")
)

// KeySource loads the private key a session signs with.
type KeySource interface {
	LoadKey(ctx context.Context) (*ecdsa.PrivateKey, error)

	// Name identifies the source in logs. It never contains key material.
	Name() string
}

// PassphraseFunc supplies the passphrase for an encrypted keystore.
type PassphraseFunc func() (string, error)

// StaticPassphrase returns a PassphraseFunc that always yields passphrase.
func StaticPassphrase(passphrase string) PassphraseFunc {
	return func() (string, error) { return passphrase, nil }
}

// HexKeySource holds a raw hex private key, typically from a flag or environment variable.
type HexKeySource struct {
	hexKey string
	name   string
}

// NewHexKeySource creates a source for a hex private key with or without 0x prefix.
func NewHexKeySource(hexKey, name string) *HexKeySource {
	return &HexKeySource{hexKey: hexKey, name: name}
}

// NewEnvKeySource reads the hex key from the environment variable envVar.
func NewEnvKeySource(envVar string) *HexKeySource {
	return &HexKeySource{hexKey: os.Getenv(envVar), name: "env:" + envVar}
}

func (s *HexKeySource) LoadKey(ctx context.Context) (*ecdsa.PrivateKey, error) {
	if s.hexKey == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrKeyNotFound, s.name)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(s.hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key in %s: %w", s.name, err)
	}
	return key, nil
}

func (s *HexKeySource) Name() string {
	return s.name
}

// KeystoreFileSource decrypts a go-ethereum keystore file.
type KeystoreFileSource struct {
	path       string
	passphrase PassphraseFunc
}

// NewKeystoreFileSource creates a source for the keystore JSON at path.
func NewKeystoreFileSource(path string, passphrase PassphraseFunc) *KeystoreFileSource {
	return &KeystoreFileSource{path: path, passphrase: passphrase}
}

func (s *KeystoreFileSource) LoadKey(ctx context.Context) (*ecdsa.PrivateKey, error) {
	keyJSON, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, s.path)
		}
		return nil, fmt.Errorf("could not read keystore: %w", err)
	}
	return decryptKeystore(keyJSON, s.passphrase)
}

func (s *KeystoreFileSource) Name() string {
	return "file:" + s.path
}

// S3KeystoreSource fetches a keystore file from Amazon S3 or a compatible service.
type S3KeystoreSource struct {
	client     *s3.S3
	bucketName string
	key        string
	passphrase PassphraseFunc
	log        *slog.Logger
}

// NewS3KeystoreSource creates a source for the keystore object bucketName/key.
// Without accessKey and secretKey the object is fetched anonymously.
func NewS3KeystoreSource(bucketName, key, region, endpoint, accessKey, secretKey string, passphrase PassphraseFunc, log *slog.Logger) (*S3KeystoreSource, error) {
	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	} else {
		cfg.Credentials = credentials.AnonymousCredentials
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3KeystoreSource{
		client:     s3.New(sess),
		bucketName: bucketName,
		key:        strings.TrimPrefix(key, "/"),
		passphrase: passphrase,
		log:        log,
	}, nil
}

func (s *S3KeystoreSource) LoadKey(ctx context.Context) (*ecdsa.PrivateKey, error) {
	start := time.Now()
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if strings.Contains(err.Error(), s3.ErrCodeNoSuchKey) || strings.Contains(err.Error(), "404") {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, s.Name())
		}
		s.log.Error("Failed to get keystore from S3",
			slog.String("bucket", s.bucketName),
			slog.String("key", s.key),
			"err", err)
		return nil, fmt.Errorf("%w: %v", ErrKeySourceUnavailable, err)
	}
	defer result.Body.Close()

	keyJSON, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore object: %w", err)
	}

	s.log.Debug("Fetched keystore from S3",
		slog.String("bucket", s.bucketName),
		slog.String("key", s.key),
		slog.Duration("duration", time.Since(start)))
	return decryptKeystore(keyJSON, s.passphrase)
}

func (s *S3KeystoreSource) Name() string {
	return fmt.Sprintf("s3://%s/%s", s.bucketName, s.key)
}

// VaultKeySource reads a hex private key from a HashiCorp Vault KV v2 secret.
type VaultKeySource struct {
	client    *api.Client
	mountPath string
	dataPath  string
	field     string
	log       *slog.Logger
}

// NewVaultKeySource creates a source for field of the secret at mountPath/dataPath.
// An empty token falls back to VAULT_TOKEN.
func NewVaultKeySource(address, token, mountPath, dataPath, field string, log *slog.Logger) (*VaultKeySource, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}
	if field == "" {
		field = "private_key"
	}

	return &VaultKeySource{
		client:    client,
		mountPath: strings.Trim(mountPath, "/"),
		dataPath:  strings.Trim(dataPath, "/"),
		field:     field,
		log:       log,
	}, nil
}

func (s *VaultKeySource) LoadKey(ctx context.Context) (*ecdsa.PrivateKey, error) {
	// KV v2 path structure
	path := fmt.Sprintf("%s/data/%s", s.mountPath, s.dataPath)

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("Failed to read from Vault", slog.String("path", path), "err", err)
		return nil, fmt.Errorf("%w: %v", ErrKeySourceUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}
	hexKey, ok := data[s.field].(string)
	if !ok {
		return nil, fmt.Errorf("%w: field %q not found in %s", ErrKeyNotFound, s.field, path)
	}

	return NewHexKeySource(hexKey, s.Name()).LoadKey(ctx)
}

func (s *VaultKeySource) Name() string {
	return fmt.Sprintf("vault:%s/%s#%s", s.mountPath, s.dataPath, s.field)
}

func decryptKeystore(keyJSON []byte, passphrase PassphraseFunc) (*ecdsa.PrivateKey, error) {
	if passphrase == nil {
		passphrase = StaticPassphrase("")
	}
	pass, err := passphrase()
	if err != nil {
		return nil, fmt.Errorf("could not read keystore passphrase: %w", err)
	}
	key, err := keystore.DecryptKey(keyJSON, pass)
	if err != nil {
		return nil, fmt.Errorf("could not decrypt keystore: %w", err)
	}
	return key.PrivateKey, nil
}
