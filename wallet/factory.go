package wallet

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

// KeySourceFor creates a key source from a location URI.
//
// Supported schemes:
//   - env://VAR_NAME - hex key in an environment variable
//   - file:///path/to/keystore.json - encrypted keystore file
//   - s3://bucket/path/keystore.json?region=us-east-1&endpoint=... - encrypted keystore object
//   - vault://host:8200/mount/path?field=private_key&tls=false - hex key in a KV v2 secret
//
// passphrase is consulted for keystore sources only.
func KeySourceFor(locationURI string, passphrase PassphraseFunc, log *slog.Logger) (KeySource, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("invalid key source URI: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "env":
		return NewEnvKeySource(u.Host), nil
	case "file":
		path := u.Path
		if u.Host != "" {
			// file://relative/path
			path = u.Host + u.Path
		}
		return NewKeystoreFileSource(path, passphrase), nil
	case "s3":
		return createS3Source(u, passphrase, log)
	case "vault":
		return createVaultSource(u, log)
	default:
		return nil, fmt.Errorf("unsupported key source scheme: %q", u.Scheme)
	}
}

// createS3Source reads credentials from AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY when set.
func createS3Source(u *url.URL, passphrase PassphraseFunc, log *slog.Logger) (KeySource, error) {
	if u.Host == "" || strings.Trim(u.Path, "/") == "" {
		return nil, fmt.Errorf("invalid S3 key source URI, expected s3://bucket/key")
	}

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}

	return NewS3KeystoreSource(u.Host, u.Path, region, query.Get("endpoint"),
		os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"), passphrase, log)
}

func createVaultSource(u *url.URL, log *slog.Logger) (KeySource, error) {
	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if u.Host == "" || len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid Vault key source URI, expected vault://host:port/mount/path")
	}

	query := u.Query()
	scheme := "https"
	if query.Get("tls") == "false" {
		scheme = "http"
	}

	return NewVaultKeySource(scheme+"://"+u.Host, "", parts[0], parts[1], query.Get("field"), log)
}
